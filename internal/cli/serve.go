package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/99minutos/trading-simulator/internal/api"
	"github.com/99minutos/trading-simulator/internal/api/handler"
	"github.com/99minutos/trading-simulator/internal/core/ports"
	"github.com/99minutos/trading-simulator/internal/core/service"
	mongostore "github.com/99minutos/trading-simulator/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/trading-simulator/internal/infrastructure/db/redis"
	"github.com/99minutos/trading-simulator/internal/infrastructure/db/sqlstore"
	"github.com/99minutos/trading-simulator/internal/infrastructure/queue"
	"github.com/99minutos/trading-simulator/internal/infrastructure/quote"
	"github.com/99minutos/trading-simulator/internal/pkg/config"
	"github.com/99minutos/trading-simulator/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the trading simulator HTTP API.

Configuration is read from the environment. SESSION_SECRET and the
credentials of the selected QUOTE_PROVIDER are required. Activity logging
is enabled when MONGO_URI is set.

Example:
  SESSION_SECRET=change-me API_KEY=pk_xxx simulator serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), rootOpts.Config)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitConfigError, "invalid configuration", err)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Account database ---
	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return WrapExitError(ExitConfigError, "invalid DB_DRIVER", err)
	}
	db, err := sqlstore.Open(ctx, sqlstore.Config{Dialect: dialect, DSN: cfg.Database.URL})
	if err != nil {
		return WrapExitError(ExitStartupError, "failed to open database", err)
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
			return WrapExitError(ExitStartupError, "migration failed", err)
		}
	}
	store := sqlstore.New(db, dialect)

	// --- Sessions ---
	rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return WrapExitError(ExitStartupError, "failed to connect to redis", err)
	}
	defer rdb.Close()

	readiness := map[string]handler.Check{
		"database": handler.SQLCheck(db),
		"redis":    handler.RedisCheck(rdb),
	}

	// --- Activity log (optional) ---
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var (
		recorder     ports.ActivityRecorder
		activityRepo ports.ActivityRepository
	)
	if cfg.Mongo.URI != "" {
		client, mdb, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return WrapExitError(ExitStartupError, "failed to connect to mongodb", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		repo := mongostore.NewActivityRepository(mdb)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("could not ensure activity indexes")
		}
		dispatcher := queue.NewDispatcher(cfg.Activity.Workers, repo, logger.Component("activity"))
		dispatcher.Start(workerCtx)

		recorder, activityRepo = dispatcher, repo
		readiness["mongodb"] = handler.MongoCheck(mdb)
	} else {
		log.Info().Msg("MONGO_URI not set, activity log disabled")
	}

	// --- Market data ---
	quotes, err := quote.New(quote.Config{
		Provider: strings.ToLower(cfg.Quote.Provider),
		APIKey:   cfg.Quote.APIKey,
		BaseURL:  cfg.Quote.BaseURL,
		Timeout:  cfg.Quote.Timeout,
		Alpaca: quote.AlpacaConfig{
			APIKey:    cfg.Quote.AlpacaKeyID,
			APISecret: cfg.Quote.AlpacaSecret,
			DataURL:   cfg.Quote.AlpacaDataURL,
			BaseURL:   cfg.Quote.AlpacaBaseURL,
		},
	})
	if err != nil {
		return WrapExitError(ExitConfigError, "invalid quote provider", err)
	}

	// --- Services and HTTP ---
	e := api.NewRouter(api.Deps{
		Auth:        service.NewAuthService(store, recorder, cfg.InitialCash, logger.Component("auth")),
		Sessions:    service.NewSessionService(redisstore.NewSessionStore(rdb), cfg.SessionSecret, cfg.SessionTTL),
		Trading:     service.NewTradingService(store, quotes, recorder, logger.Component("trading")),
		Activity:    service.NewActivityService(activityRepo),
		Recorder:    recorder,
		Idempotency: redisstore.NewIdempotencyGuard(rdb),
		SessionTTL:  cfg.SessionTTL,
		Readiness:   readiness,
		Log:         logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("db", string(dialect)).Str("quotes", cfg.Quote.Provider).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return WrapExitError(ExitFailure, "server error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "graceful shutdown failed", err)
	}
	stopWorkers()
	log.Info().Msg("server stopped")
	return nil
}
