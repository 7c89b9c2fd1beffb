package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	amqpAdapter "github.com/iho/bizledger/internal/adapter/amqp"
	httpAdapter "github.com/iho/bizledger/internal/adapter/http"
	"github.com/iho/bizledger/internal/adapter/http/handler"
	"github.com/iho/bizledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/bizledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bizledger/internal/adapter/repository/redis"
	"github.com/iho/bizledger/internal/infrastructure/amqp"
	"github.com/iho/bizledger/internal/infrastructure/config"
	"github.com/iho/bizledger/internal/infrastructure/logger"
	"github.com/iho/bizledger/internal/infrastructure/metrics"
	"github.com/iho/bizledger/internal/infrastructure/postgres"
	"github.com/iho/bizledger/internal/infrastructure/redis"
	"github.com/iho/bizledger/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := usecase.ParseReconcilePolicy(cfg.ReconcilePolicy)
	if err != nil {
		return err
	}

	m := metrics.New()

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return err
		}
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	checks := map[string]handler.Pinger{
		"postgres": pool,
		"redis": handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	}

	publisher, broker, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	if broker != nil {
		defer func() {
			if err := broker.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close amqp connection")
			}
		}()
		checks["amqp"] = handler.PingFunc(func(context.Context) error {
			if broker.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		})
	}

	// Initialize repositories
	entryRepo := postgresRepo.NewEntryRepository(pool)
	clients := redisRepo.NewCachedClientDirectory(
		postgresRepo.NewClientRepository(pool),
		redisRepo.NewCache(redisClient, m),
		cfg.ClientCacheTTL,
		log,
	)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	sessions := usecase.NewSessionManager(usecase.SessionManagerConfig{
		Repo:         entryRepo,
		Publisher:    publisher,
		Retrier:      postgresRepo.NewRetrier(log),
		IDGen:        idGen,
		Policy:       policy,
		Backlog:      cfg.WriteQueueSize,
		DrainTimeout: cfg.WriteDrainTimeout,
		Logger:       log,
		Metrics:      m,
	})
	ledger := usecase.NewLedgerUseCase(sessions, clients, idGen, m, log)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	go cleanupLimiters(ctx, rateLimiter, log)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		EntryHandler:      handler.NewEntryHandler(ledger),
		PlanHandler:       handler.NewPlanHandler(ledger),
		ReportHandler:     handler.NewReportHandler(ledger),
		SessionHandler:    handler.NewSessionHandler(ledger, signOut{sessions: sessions, clients: clients, logger: log}),
		HealthHandler:     handler.NewHealthHandler(checks),
		SessionMiddleware: middleware.NewSessionMiddleware(sessions, log),
		IdempotencyStore:  idempotencyStore,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		RateLimiter:       rateLimiter,
		Metrics:           m,
		MetricsHandler:    promhttp.Handler(),
		Logger:            log,
	})

	server := &http.Server{
		Addr:         listenAddr(cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("policy", string(policy)).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Flush what the sessions still hold before the pool goes away.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.WriteDrainTimeout)
	defer cancelDrain()
	if err := sessions.CloseAll(drainCtx); err != nil {
		log.Error().Err(err).Msg("failed to drain sessions")
	}

	log.Info().Msg("server stopped")
	return nil
}

// newPublisher connects to the broker when AMQP_URL is set. Without it,
// entry events are not published and both results are nil.
func newPublisher(cfg *config.Config, log zerolog.Logger) (usecase.EventPublisher, *amqp.Client, error) {
	if cfg.AMQPURL == "" {
		log.Info().Msg("AMQP_URL not set, entry events disabled")
		return nil, nil, nil
	}

	client, err := amqp.Dial(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to amqp: %w", err)
	}
	log.Info().Str("exchange", client.Exchange()).Msg("connected to amqp")

	return amqpAdapter.NewEventPublisher(client, client.Exchange()), client, nil
}

type clientInvalidator interface {
	Invalidate(ctx context.Context, ownerID string) error
}

// signOut closes the session and drops the cached client list so the next
// sign-in sees clients added meanwhile.
type signOut struct {
	sessions handler.SessionCloser
	clients  clientInvalidator
	logger   zerolog.Logger
}

func (s signOut) Close(ctx context.Context, userID string) error {
	if err := s.sessions.Close(ctx, userID); err != nil {
		return err
	}
	if err := s.clients.Invalidate(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate client cache")
	}
	return nil
}

func cleanupLimiters(ctx context.Context, rl *middleware.RateLimiter, log zerolog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.CleanupLimiters(limiterIdleTimeout); n > 0 {
				log.Debug().Int("removed", n).Msg("dropped idle rate limiters")
			}
		}
	}
}

func listenAddr(port string) string {
	return ":" + port
}
