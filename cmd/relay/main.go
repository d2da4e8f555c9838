package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/price-relay/internal/api"
	"github.com/rickgao/price-relay/internal/config"
	"github.com/rickgao/price-relay/internal/connection"
	"github.com/rickgao/price-relay/internal/database"
	"github.com/rickgao/price-relay/internal/holdings"
	"github.com/rickgao/price-relay/internal/metrics"
	"github.com/rickgao/price-relay/internal/portfolio"
	"github.com/rickgao/price-relay/internal/relay"
	"github.com/rickgao/price-relay/internal/server"
	"github.com/rickgao/price-relay/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	envFile := flag.String("env-file", ".env", "optional .env file loaded before the config")
	flag.Parse()

	if err := config.LoadEnvFiles(*envFile); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting price relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		m    *metrics.Metrics
		deps server.Deps
	)
	if cfg.Metrics.IsEnabled() {
		m = metrics.New()
		deps.Metrics = m.Handler()
	}

	// Holdings database (optional)
	var pool *pgxpool.Pool
	if cfg.Database.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := holdings.NewPGStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure holdings schema", "error", err)
			os.Exit(1)
		}
		deps.Holdings = store
		deps.Database = store
		logger.Info("database connected")
	} else {
		logger.Warn("database not configured, holdings and analytics disabled")
	}

	// Finnhub REST client (quotes, history)
	token := cfg.Provider.APIToken()
	if token != "" {
		apiClient := api.NewClient(
			cfg.Provider.RestURL,
			token,
			api.WithLogger(logger.With("component", "finnhub_api")),
			api.WithTimeout(cfg.Provider.Timeout),
			api.WithRetries(cfg.Provider.MaxRetries, config.DefaultReconnectBaseDelay),
		)
		deps.Quotes = apiClient
		if deps.Holdings != nil {
			deps.Analytics = portfolio.NewService(deps.Holdings, apiClient, logger)
		}
	} else {
		logger.Warn("provider token not set, quotes disabled", "token_env", cfg.Provider.TokenEnv)
	}

	// Relay engine
	engine := relay.New(relay.Config{
		Endpoint:      cfg.Provider.StreamURL,
		QueueCapacity: cfg.Stream.QueueCapacity,
		Source:        cfg.Provider.Source,
		Connection: connection.Config{
			BaseDelay:    cfg.Stream.ReconnectBaseDelay,
			MaxDelay:     cfg.Stream.ReconnectMaxDelay,
			IdleInterval: cfg.Stream.IdleInterval,
			PingTimeout:  cfg.Stream.PingTimeout,
			WriteTimeout: cfg.Stream.WriteTimeout,
		},
	}, logger.With("component", "relay"), m)
	deps.Engine = engine

	if err := engine.Start(ctx); err != nil {
		logger.Error("failed to start relay engine", "error", err)
		os.Exit(1)
	}

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		WriteTimeout:    cfg.Stream.WriteTimeout,
		ClientRateLimit: cfg.Stream.ClientRateLimit,
		ClientRateBurst: cfg.Stream.ClientRateBurst,
		MetricsPath:     cfg.Metrics.Path,
		Debug:           cfg.Logging.SlogLevel() == slog.LevelDebug,
	}, deps, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	logger.Info("price relay running",
		"addr", cfg.Server.Addr,
		"streaming", engine.Enabled(),
		"database", cfg.Database.Enabled(),
	)

	runErr := g.Wait()
	if runErr != nil {
		logger.Error("http server failed", "error", runErr)
	}

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := engine.Stop(shutdownCtx); err != nil {
		logger.Warn("relay engine stop", "error", err)
	}

	logger.Info("price relay stopped")
	if runErr != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
