package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func newPingBackoff(window time.Duration) backoff.BackOff {
	if window <= 0 {
		return &backoff.StopBackOff{}
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = window
	return bo
}

// pingWithRetry pings db until it answers, ctx ends or window elapses.
func pingWithRetry(ctx context.Context, db *sql.DB, backend string, window time.Duration) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := db.PingContext(ctx)
		if err != nil {
			slog.Debug(backend+".ping: database not ready", "attempt", attempt, "error", err)
		}
		return err
	}, backoff.WithContext(newPingBackoff(window), ctx))
}

// openDatabase opens a database/sql handle, waits for it to answer and
// applies the embedded schema. tune runs before the first ping.
func openDatabase(backend, driver, dsn, schema string, window time.Duration, tune func(*sql.DB)) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		slog.Error(backend+".open: sql.Open failed", "driver", driver, "error", err)
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if tune != nil {
		tune(db)
	}
	if err := pingWithRetry(context.Background(), db, backend, window); err != nil {
		slog.Error(backend+".open: database unreachable", "window", window, "error", err)
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if _, err := db.Exec(schema); err != nil {
		slog.Error(backend+".open: schema migration failed", "error", err)
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", driver, err)
	}
	slog.Debug(backend+".open: schema ready", "driver", driver)
	return db, nil
}
