// Package casing re-keys JSON documents between the camelCase used locally and
// the snake_case used by the REST API.
package casing

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/iancoleman/strcase"
)

// KeysToSnake rewrites every object key in a JSON document to snake_case.
func KeysToSnake(data []byte) ([]byte, error) {
	return rekey(data, strcase.ToSnake)
}

// KeysToCamel rewrites every object key in a JSON document to lowerCamelCase.
func KeysToCamel(data []byte) ([]byte, error) {
	return rekey(data, strcase.ToLowerCamel)
}

// MarshalSnake encodes v and re-keys the result to snake_case.
func MarshalSnake(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	return KeysToSnake(data)
}

// UnmarshalCamel re-keys a snake_case document to camelCase and decodes it into v.
func UnmarshalCamel(data []byte, v interface{}) error {
	camel, err := KeysToCamel(data)
	if err != nil {
		return err
	}

	err = json.Unmarshal(camel, v)
	if err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	return nil
}

func rekey(data []byte, convert func(string) string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc interface{}
	err := dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out, err := json.Marshal(convertKeys(doc, convert))
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return out, nil
}

func convertKeys(v interface{}, convert func(string) string) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[convert(k)] = convertKeys(child, convert)
		}
		return out
	case []interface{}:
		for i := range val {
			val[i] = convertKeys(val[i], convert)
		}
		return val
	default:
		return v
	}
}
