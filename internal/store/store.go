// Package store provides the persistence backends for the FieldOps snapshot.
//
// Every backend keeps exactly one StorageState. An in-memory store serves
// tests and ephemeral runs; SQLite and PostgreSQL keep the snapshot across
// restarts.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
)

// Store is a Persistence backend that holds resources.
type Store interface {
	capability.Persistence
	Close() error
}

// Opts holds backend settings.
type Opts struct {
	DSN string
	// RetryWindow bounds how long opening a database keeps retrying the first ping.
	RetryWindow time.Duration
}

// Option configures a backend.
type Option func(*Opts)

// WithSQLiteDSN sets the path of the SQLite database file.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithRetry keeps retrying the initial connection for up to window.
func WithRetry(window time.Duration) Option {
	return func(o *Opts) { o.RetryWindow = window }
}

func collect(opts []Option) Opts {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// DetectDSNType returns the database/sql driver name for dsn.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// New opens the backend matching the DSN. An empty DSN gives an in-memory store.
func New(opts ...Option) (Store, error) {
	cfg := collect(opts)
	if cfg.DSN == "" {
		slog.Warn("store.New: no DSN configured, snapshot will not survive restarts")
		return NewInMemoryStore(), nil
	}
	switch DetectDSNType(cfg.DSN) {
	case "postgres":
		return NewPostgresStore(opts...)
	default:
		return NewSQLiteStore(opts...)
	}
}

// InMemoryStore keeps the snapshot in process memory.
type InMemoryStore struct {
	mu    sync.Mutex
	state optic.Option[models.StorageState]
	saves int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SaveState(ctx context.Context, st models.StorageState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Encode so a snapshot the SQL stores would reject is rejected here too.
	if _, err := models.EncodeStorage(st); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = optic.Some(st)
	s.saves++
	return nil
}

func (s *InMemoryStore) LoadState(ctx context.Context) (optic.Option[models.StorageState], error) {
	if err := ctx.Err(); err != nil {
		return optic.None[models.StorageState](), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *InMemoryStore) ClearState(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = optic.None[models.StorageState]()
	return nil
}

// Saves reports how many snapshots were written.
func (s *InMemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *InMemoryStore) Close() error { return nil }

// decodeRow turns a stored payload into a snapshot. Rows that no longer
// decode are logged and treated as absent.
func decodeRow(backend string, payload []byte) optic.Option[models.StorageState] {
	st, err := models.DecodeStorage(payload)
	if err != nil {
		slog.Warn(backend+".LoadState: discarding unreadable snapshot", "error", err)
		return optic.None[models.StorageState]()
	}
	return optic.Some(st)
}
