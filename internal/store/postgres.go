package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
)

// Pool limits for the PostgreSQL backend. One row is written at a time, so
// the pool stays small.
const (
	postgresMaxConns    = 4
	postgresConnMaxLife = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore keeps the snapshot in a single-row PostgreSQL table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and applies the schema.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	cfg := collect(opts)
	if cfg.DSN == "" {
		return nil, errors.New("postgres: empty DSN")
	}
	db, err := openDatabase("PostgresStore", "postgres", cfg.DSN, postgresMigrations, cfg.RetryWindow,
		func(db *sql.DB) {
			db.SetMaxOpenConns(postgresMaxConns)
			db.SetMaxIdleConns(postgresMaxConns)
			db.SetConnMaxLifetime(postgresConnMaxLife)
		})
	if err != nil {
		return nil, err
	}
	slog.Info("PostgresStore.NewPostgresStore: snapshot database ready")
	return newPostgresStore(db), nil
}

func newPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveState(ctx context.Context, st models.StorageState) error {
	payload, err := models.EncodeStorage(st)
	if err != nil {
		slog.Error("PostgresStore SaveState encode failed", "error", err)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO app_state (id, version, screen, payload, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, screen = EXCLUDED.screen,
			payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		models.StorageVersion, string(st.Flow.Screen()), string(payload), time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore SaveState failed", "error", err, "screen", st.Flow.Screen())
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	slog.Debug("PostgresStore SaveState succeeded", "screen", st.Flow.Screen())
	return nil
}

func (s *PostgresStore) LoadState(ctx context.Context) (optic.Option[models.StorageState], error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM app_state WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("PostgresStore LoadState not found")
		return optic.None[models.StorageState](), nil
	}
	if err != nil {
		slog.Error("PostgresStore LoadState failed", "error", err)
		return optic.None[models.StorageState](), fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeRow("PostgresStore", payload), nil
}

func (s *PostgresStore) ClearState(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_state`); err != nil {
		slog.Error("PostgresStore ClearState failed", "error", err)
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	slog.Debug("PostgresStore ClearState succeeded")
	return nil
}

func (s *PostgresStore) Close() error {
	slog.Debug("PostgresStore.Close: closing database")
	return s.db.Close()
}
