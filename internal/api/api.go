// Package api is the local control surface of a headless FieldOps process.
//
// It turns OS callbacks and user input into actions for the engine and
// exposes the current state, the persisted snapshot and the Prometheus
// metrics over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/models"
)

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = "127.0.0.1:8080"
	// DefaultRequestTimeout bounds how long a request waits for the engine.
	DefaultRequestTimeout = 10 * time.Second
	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second
)

// Dispatcher is the part of the engine the server drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, a models.Action) (models.AppState, error)
	State() models.AppState
}

// Opts holds the server configuration.
type Opts struct {
	Addr           string
	RequestTimeout time.Duration
	Persistence    capability.Persistence // serves GET /v1/snapshot when set
	Gatherer       prometheus.Gatherer
}

// Option configures the server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithRequestTimeout bounds how long a request waits for its action to be reduced.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.RequestTimeout = d
	}
}

// WithPersistence exposes the persisted snapshot.
func WithPersistence(p capability.Persistence) Option {
	return func(o *Opts) {
		o.Persistence = p
	}
}

// WithGatherer sets the metrics source for /metrics. It defaults to the
// Prometheus default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *Opts) {
		o.Gatherer = g
	}
}

// Server serves the control API.
type Server struct {
	opts    Opts
	engine  Dispatcher
	started time.Time
}

// NewServer returns a server driving engine.
func NewServer(engine Dispatcher, opts ...Option) *Server {
	o := Opts{Addr: DefaultAddr, RequestTimeout: DefaultRequestTimeout, Gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(&o)
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	return &Server{opts: o, engine: engine, started: time.Now()}
}

// Handler returns the routes of the control API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/launch", s.actionHandler("launchHandler", models.OSFinishedLaunching{}))
	mux.HandleFunc("/v1/foreground", s.actionHandler("foregroundHandler", models.AppBecameActive{}))
	mux.HandleFunc("/v1/deeplinks", s.deepLinkHandler)
	mux.HandleFunc("/v1/actions", s.actionsHandler)
	mux.HandleFunc("/v1/state", s.stateHandler)
	mux.HandleFunc("/v1/snapshot", s.snapshotHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Serve: listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Serve: shutdown failed", "error", err)
		return err
	}
	slog.Info("Server.Serve: stopped")
	return nil
}
