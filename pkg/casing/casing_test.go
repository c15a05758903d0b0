package casing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysToSnake(t *testing.T) {
	in := []byte(`{"marketId":42,"outcomeId":0,"nested":{"networkId":2741},"items":[{"tokenAddress":"0xabc"}]}`)

	out, err := KeysToSnake(in)
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"market_id":42,"outcome_id":0,"nested":{"network_id":2741},"items":[{"token_address":"0xabc"}]}`,
		string(out))
}

func TestKeysToCamel(t *testing.T) {
	in := []byte(`{"market_id":7,"resolved_outcome_id":null,"outcomes":[{"id":1,"market_id":7}]}`)

	out, err := KeysToCamel(in)
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"marketId":7,"resolvedOutcomeId":null,"outcomes":[{"id":1,"marketId":7}]}`,
		string(out))
}

func TestKeysToCamel_PreservesLargeNumbers(t *testing.T) {
	in := []byte(`{"raw_amount":123456789012345678901234567890}`)

	out, err := KeysToCamel(in)
	require.NoError(t, err)
	assert.Equal(t, `{"rawAmount":123456789012345678901234567890}`, string(out))
}

func TestKeysToSnake_ScalarsAndArrays(t *testing.T) {
	out, err := KeysToSnake([]byte(`[1,"two",true]`))
	require.NoError(t, err)
	assert.JSONEq(t, `[1,"two",true]`, string(out))
}

func TestKeysToSnake_InvalidJSON(t *testing.T) {
	_, err := KeysToSnake([]byte(`{"broken"`))
	assert.Error(t, err)
}

func TestMarshalSnakeUnmarshalCamel(t *testing.T) {
	type payload struct {
		MarketID  uint64 `json:"marketId"`
		OutcomeID uint64 `json:"outcomeId"`
	}

	data, err := MarshalSnake(payload{MarketID: 3, OutcomeID: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"market_id":3,"outcome_id":1}`, string(data))

	var got payload
	require.NoError(t, UnmarshalCamel(data, &got))
	assert.Equal(t, payload{MarketID: 3, OutcomeID: 1}, got)
}
