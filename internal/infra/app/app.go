package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/core/port"
	"github.com/docmesh/docman-service/internal/infra/config"
	"github.com/docmesh/docman-service/internal/infra/database"
	kafkainfra "github.com/docmesh/docman-service/internal/infra/kafka"
	"github.com/docmesh/docman-service/internal/infra/logger"
	redisinfra "github.com/docmesh/docman-service/internal/infra/redis"
	"github.com/docmesh/docman-service/internal/infra/security"
	"github.com/docmesh/docman-service/internal/infra/storage"
	"github.com/docmesh/docman-service/internal/infra/telemetry"
	postgresrepo "github.com/docmesh/docman-service/internal/repository/postgres"
	redisrepo "github.com/docmesh/docman-service/internal/repository/redis"
	"github.com/docmesh/docman-service/internal/transport/http/middleware"
	"github.com/docmesh/docman-service/internal/transport/http/routes"
	"github.com/docmesh/docman-service/internal/usecase"
)

// Application wires configuration, storage, messaging and the HTTP engine.
type Application struct {
	cfg             *config.AppConfig
	engine          *gin.Engine
	logger          *zap.Logger
	pool            *pgxpool.Pool
	redis           *redisinfra.Client
	tracer          *telemetry.TracerProvider
	producer        *kafkainfra.Producer
	dispatcher      *usecase.OutboxDispatcher
	cleanupConsumer *kafkainfra.FileCleanupConsumer
}

// New builds the application from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if _, err := telemetry.Attach(ctx, cfg); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracerProvider *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracerProvider, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("failed to init tracer provider, continuing without tracing", zap.Error(err))
			tracerProvider = nil
		}
	}

	if cfg.Postgres.MigrationsEnabled {
		if err := database.RunMigrations(ctx, cfg.Postgres, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	store := postgresrepo.NewStore(pool)

	fileStore, err := buildFileStore(ctx, cfg.Storage)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	totpVerifier := security.NewTotpVerifier(cfg.Auth.TotpIssuer)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "docs:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	authService := usecase.NewAuthService(cfg, repos.Users, repos.Tokens, store, totpVerifier, log)
	userService := usecase.NewUserService(cfg, repos.Users, repos.Roles, repos.Tokens, totpVerifier, log)
	sessionService := usecase.NewSessionService(repos.Tokens)
	recoveryService := usecase.NewPasswordRecoveryService(cfg, repos.Users, repos.Recoveries, store, log)
	deletionService := usecase.NewAccountDeletionService(repos.Users, repos.Roles, repos.RouteModels, store, log)
	documentService := usecase.NewDocumentService(repos.Documents, repos.Files, fileStore, store, log)

	dispatcher := usecase.NewOutboxDispatcher(repos.Outbox, eventPublisher, log)
	cleanupConsumer := kafkainfra.NewFileCleanupConsumer(fileStore, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:      authService,
			Users:     userService,
			Sessions:  sessionService,
			Recovery:  recoveryService,
			Deletion:  deletionService,
			Documents: documentService,
		},
	})

	return &Application{
		cfg:             cfg,
		engine:          engine,
		logger:          log,
		pool:            pool,
		redis:           redisClient,
		tracer:          tracerProvider,
		producer:        producer,
		dispatcher:      dispatcher,
		cleanupConsumer: cleanupConsumer,
	}, nil
}

// Run starts the HTTP server, the outbox dispatcher and the file cleanup
// consumer, blocking until the context is cancelled or a component fails.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			_ = a.tracer.Shutdown(context.Background())
		}
	}()

	go a.dispatcher.Run(ctx)

	consumerErrCh := make(chan error, 1)
	if len(a.cfg.Kafka.Brokers) > 0 {
		topic := domain.EventTypeFileDeleted
		groupID := a.cfg.Kafka.CleanupConsumerGroup
		go func() {
			if err := kafkainfra.RunFileCleanupConsumer(ctx, a.cfg.Kafka.Brokers, groupID, topic, a.cleanupConsumer, a.logger); err != nil {
				consumerErrCh <- fmt.Errorf("run cleanup consumer: %w", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting document API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	case err := <-consumerErrCh:
		return err
	}
}

func buildFileStore(ctx context.Context, cfg config.StorageSettings) (port.FileStore, error) {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3Store(ctx, cfg)
	case "", "local":
		return storage.NewLocalStore(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
