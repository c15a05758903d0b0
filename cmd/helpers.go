package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/mselser95/polkamarkets-trader/internal/app"
	"github.com/mselser95/polkamarkets-trader/pkg/config"
	"go.uber.org/zap"
)

func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}

// withComponents loads configuration, builds the components, runs fn and
// releases everything afterwards.
func withComponents(ctx context.Context, requireTrading bool, fn func(c *app.Components, logger *zap.Logger) error) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	components, err := app.NewComponents(ctx, cfg, logger, &app.Options{RequireTrading: requireTrading})
	if err != nil {
		return err
	}
	defer components.Close()

	return fn(components, logger)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
