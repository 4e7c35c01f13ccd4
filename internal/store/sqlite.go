package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
)

// sqliteDirMode is used when the database directory has to be created.
const sqliteDirMode = 0o755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore keeps the snapshot in a single-row SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at the DSN path, creating its
// directory and schema when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	cfg := collect(opts)
	if cfg.DSN == "" {
		return nil, errors.New("sqlite: empty DSN")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DSN), sqliteDirMode); err != nil {
		slog.Error("SQLiteStore.NewSQLiteStore: cannot create directory", "path", cfg.DSN, "error", err)
		return nil, fmt.Errorf("sqlite: create directory: %w", err)
	}
	// One connection serialises writers on the snapshot row.
	db, err := openDatabase("SQLiteStore", "sqlite3", cfg.DSN, sqliteMigrations, cfg.RetryWindow,
		func(db *sql.DB) { db.SetMaxOpenConns(1) })
	if err != nil {
		return nil, err
	}
	slog.Info("SQLiteStore.NewSQLiteStore: snapshot database ready", "path", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveState(ctx context.Context, st models.StorageState) error {
	payload, err := models.EncodeStorage(st)
	if err != nil {
		slog.Error("SQLiteStore SaveState encode failed", "error", err)
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO app_state (id, version, screen, payload, updated_at) VALUES (1, ?, ?, ?, ?)`,
		models.StorageVersion, string(st.Flow.Screen()), string(payload), time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore SaveState failed", "error", err, "screen", st.Flow.Screen())
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	slog.Debug("SQLiteStore SaveState succeeded", "screen", st.Flow.Screen())
	return nil
}

func (s *SQLiteStore) LoadState(ctx context.Context) (optic.Option[models.StorageState], error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM app_state WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("SQLiteStore LoadState not found")
		return optic.None[models.StorageState](), nil
	}
	if err != nil {
		slog.Error("SQLiteStore LoadState failed", "error", err)
		return optic.None[models.StorageState](), fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeRow("SQLiteStore", payload), nil
}

func (s *SQLiteStore) ClearState(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_state`); err != nil {
		slog.Error("SQLiteStore ClearState failed", "error", err)
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	slog.Debug("SQLiteStore ClearState succeeded")
	return nil
}

func (s *SQLiteStore) Close() error {
	slog.Debug("SQLiteStore.Close: closing database")
	return s.db.Close()
}
