package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/BTreeMap/FieldOps/internal/api"
	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/capability/sandbox"
	"github.com/BTreeMap/FieldOps/internal/diagnostics"
	"github.com/BTreeMap/FieldOps/internal/engine"
	"github.com/BTreeMap/FieldOps/internal/flow"
	"github.com/BTreeMap/FieldOps/internal/lockfile"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/scheduler"
	"github.com/BTreeMap/FieldOps/internal/store"
	"github.com/BTreeMap/FieldOps/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FieldOps state data
	DefaultStateDir = "/var/lib/fieldops"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "fieldops.db"
	// DefaultRefreshCron refreshes the driver's history every night
	DefaultRefreshCron = "0 3 * * *"
	// DefaultStoreRetry bounds how long the first database connection is retried
	DefaultStoreRetry = 30 * time.Second

	defaultSandboxEmail    = "driver@example.com"
	defaultSandboxPassword = "fieldops"
	defaultSandboxKey      = "pk_sandbox"
)

func main() {
	config := loadEnvironmentConfig()
	initializeLogger(config.LogLevel)

	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		slog.Error("Invalid command line", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping FieldOps", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := run(ctx, flags); err != nil {
		var lockErr *lockfile.LockError
		if errors.As(err, &lockErr) {
			fmt.Fprintln(os.Stderr, lockErr.Error())
		}
		slog.Error("FieldOps failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("FieldOps exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir       string
	DatabaseDSN    string
	APIAddr        string
	LogLevel       string
	RefreshCron    string
	DeepLinkWindow time.Duration
	Trackable      bool
	AutoLaunch     bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir       *string
	dbDSN          *string
	apiAddr        *string
	refreshCron    *string
	deepLinkWindow *time.Duration
	trackable      *bool
	autoLaunch     *bool
	storeRetry     *time.Duration
}

// parseLogLevel maps a level name to a slog level, defaulting to debug.
func parseLogLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// initializeLogger sets up structured logging at the configured level
func initializeLogger(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:       os.Getenv("FIELDOPS_STATE_DIR"),
		DatabaseDSN:    os.Getenv("FIELDOPS_DB_DSN"),
		APIAddr:        os.Getenv("API_ADDR"),
		LogLevel:       os.Getenv("FIELDOPS_LOG_LEVEL"),
		RefreshCron:    os.Getenv("FIELDOPS_REFRESH_CRON"),
		DeepLinkWindow: util.ParseDurationEnv("FIELDOPS_DEEPLINK_WINDOW", capability.DefaultDeepLinkWindow),
		Trackable:      util.ParseBoolEnv("FIELDOPS_SANDBOX_TRACKABLE", true),
		AutoLaunch:     util.ParseBoolEnv("FIELDOPS_AUTO_LAUNCH", true),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FIELDOPS_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = os.Getenv("DATABASE_URL")
		if config.DatabaseDSN != "" {
			slog.Debug("Using DATABASE_URL as FIELDOPS_DB_DSN", "dsn_set", true)
		}
	}
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseDSN)
	}
	if config.APIAddr == "" {
		config.APIAddr = api.DefaultAddr
	}
	if config.RefreshCron == "" {
		config.RefreshCron = DefaultRefreshCron
	}

	slog.Debug("environment variables loaded",
		"FIELDOPS_STATE_DIR", config.StateDir,
		"FIELDOPS_DB_DSN_SET", config.DatabaseDSN != "",
		"API_ADDR", config.APIAddr,
		"FIELDOPS_DEEPLINK_WINDOW", config.DeepLinkWindow,
		"FIELDOPS_SANDBOX_TRACKABLE", config.Trackable)

	return config
}

// parseCommandLineFlags parses args with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	flags := Flags{
		stateDir:       fs.String("state-dir", config.StateDir, "state directory for FieldOps data (overrides $FIELDOPS_STATE_DIR)"),
		dbDSN:          fs.String("db-dsn", config.DatabaseDSN, "snapshot database DSN, a SQLite path or a PostgreSQL URL (overrides $FIELDOPS_DB_DSN or $DATABASE_URL)"),
		apiAddr:        fs.String("api-addr", config.APIAddr, "control API address (overrides $API_ADDR)"),
		refreshCron:    fs.String("refresh-cron", config.RefreshCron, "cron schedule of the history refresh (overrides $FIELDOPS_REFRESH_CRON)"),
		deepLinkWindow: fs.Duration("deeplink-window", config.DeepLinkWindow, "deep-link settle window (overrides $FIELDOPS_DEEPLINK_WINDOW)"),
		trackable:      fs.Bool("sandbox-trackable", config.Trackable, "whether the sandbox device can be tracked (overrides $FIELDOPS_SANDBOX_TRACKABLE)"),
		autoLaunch:     fs.Bool("auto-launch", config.AutoLaunch, "report OS launch on startup (overrides $FIELDOPS_AUTO_LAUNCH)"),
		storeRetry:     fs.Duration("store-retry", DefaultStoreRetry, "how long to retry the first database connection"),
	}
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	// Keep the default SQLite file inside an overridden state directory.
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"refreshCron", *flags.refreshCron,
		"deepLinkWindow", *flags.deepLinkWindow,
		"trackable", *flags.trackable)
	return flags, nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return storeOpts
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	if *flags.storeRetry > 0 {
		storeOpts = append(storeOpts, store.WithRetry(*flags.storeRetry))
	}
	return storeOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, p capability.Persistence) []api.Option {
	apiOpts := []api.Option{api.WithPersistence(p)}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

// newSandbox seeds the in-process capabilities with one driver account and a
// sample route so the headless binary can be driven end to end.
func newSandbox(flags Flags, now time.Time) *sandbox.Fixture {
	fx := sandbox.NewFixture()
	fx.Auth.AddAccount(defaultSandboxEmail, defaultSandboxPassword, defaultSandboxKey)
	fx.SDK.AllowKey(defaultSandboxKey)
	fx.Remote.SampleRoute(now)
	if !*flags.trackable {
		fx.SDK.SetTrackability(models.Trackability{Reason: models.LockNoMotionServices})
	}
	return fx
}

// run owns the process lifetime: it holds the state directory lock and runs
// the engine and the control API until ctx is done.
func run(ctx context.Context, flags Flags) error {
	lock, err := lockfile.Acquire(*flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := store.New(buildStoreOptions(flags)...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	sched := scheduler.NewScheduler()
	defer sched.Stop()

	fx := newSandbox(flags, sched.Now())
	env := fx.Env(st, sched)
	env.Diagnostics = diagnostics.NewSlogReporter(slog.Default())
	env.DeepLinkWindow = *flags.deepLinkWindow

	var initial models.AppState = models.Created{}
	eng := engine.New(initial, diagnostics.Middleware(flow.App()), env,
		engine.WithActionNames[models.AppState, models.Action](models.ActionName))

	if err := sched.AddJob(*flags.refreshCron, func() {
		slog.Debug("run: scheduled history refresh")
		eng.Send(models.RefreshRequested{Target: models.RefreshHistoryTarget})
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", *flags.refreshCron, err)
	}

	srv := api.NewServer(eng, buildAPIOptions(flags, st)...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := eng.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := srv.ListenAndServe(gctx)
		if err != nil {
			slog.Error("run: control API stopped", "error", err)
		}
		return err
	})
	if *flags.autoLaunch {
		eng.Send(models.OSFinishedLaunching{})
	}
	return g.Wait()
}
