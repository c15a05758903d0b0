package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/mselser95/polkamarkets-trader/pkg/types"
	"go.uber.org/zap"
)

const schema = `
	CREATE TABLE IF NOT EXISTS attempts (
		id           UUID PRIMARY KEY,
		kind         TEXT NOT NULL,
		market_id    BIGINT NOT NULL,
		outcome_id   BIGINT,
		value        NUMERIC NOT NULL,
		account      TEXT NOT NULL,
		bundle_id    TEXT,
		tx_hash      TEXT,
		state        TEXT NOT NULL,
		error        TEXT,
		started_at   TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)
`

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage connects and creates the attempts table if needed.
func NewPostgresStorage(ctx context.Context, cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &PostgresStorage{db: db, logger: cfg.Logger}

	err = p.EnsureSchema(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return p, nil
}

// EnsureSchema creates the attempts table if it does not exist.
func (p *PostgresStorage) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create attempts table: %w", err)
	}
	return nil
}

// StoreAttempt inserts the attempt. A repeated id overwrites the terminal fields.
func (p *PostgresStorage) StoreAttempt(ctx context.Context, rec *types.AttemptRecord) error {
	query := `
		INSERT INTO attempts (
			id, kind, market_id, outcome_id, value, account,
			bundle_id, tx_hash, state, error, started_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (id) DO UPDATE SET
			bundle_id = EXCLUDED.bundle_id,
			tx_hash = EXCLUDED.tx_hash,
			state = EXCLUDED.state,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`

	var outcome sql.NullInt64
	if rec.OutcomeID != nil {
		outcome = sql.NullInt64{Int64: int64(*rec.OutcomeID), Valid: true}
	}

	var completed sql.NullTime
	if !rec.CompletedAt.IsZero() {
		completed = sql.NullTime{Time: rec.CompletedAt, Valid: true}
	}

	_, err := p.db.ExecContext(ctx, query,
		rec.ID,
		rec.Kind,
		int64(rec.MarketID),
		outcome,
		rec.Value.String(),
		rec.Account.Hex(),
		nullString(rec.BundleID),
		nullString(rec.TxHash),
		rec.State,
		nullString(rec.Error),
		rec.StartedAt,
		completed,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	p.logger.Debug("attempt-stored",
		zap.String("attempt-id", rec.ID),
		zap.String("kind", rec.Kind),
		zap.String("state", rec.State))

	return nil
}

// Ping checks the connection.
func (p *PostgresStorage) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
