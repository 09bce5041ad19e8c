package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/PostsGo/internal/auth"
	"github.com/utafrali/PostsGo/internal/cache"
	"github.com/utafrali/PostsGo/internal/config"
	"github.com/utafrali/PostsGo/internal/event"
	handler "github.com/utafrali/PostsGo/internal/handler/http"
	"github.com/utafrali/PostsGo/internal/repository/postgres"
	"github.com/utafrali/PostsGo/internal/service"
	"github.com/utafrali/PostsGo/migrations"
	"github.com/utafrali/PostsGo/pkg/database"
	"github.com/utafrali/PostsGo/pkg/health"
	pkgkafka "github.com/utafrali/PostsGo/pkg/kafka"
	"github.com/utafrali/PostsGo/pkg/middleware"
	"github.com/utafrali/PostsGo/pkg/tracing"
)

// App wires together all dependencies and runs the posts API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Redis and Kafka are optional; Postgres is not.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeClients()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	a.pool, err = database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(reg, a.pool, cfg.ServiceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThreshold > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})

	// Optional post feed cache.
	var postCache service.PostCache
	if cfg.RedisEnabled {
		a.redis, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		postCache = cache.NewPostListCache(a.redis, cfg.PostsCacheTTL)
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
		logger.Info("post cache enabled",
			slog.String("addr", cfg.Redis().Addr()),
			slog.Duration("ttl", cfg.PostsCacheTTL),
		)
	}

	// Optional Kafka domain events.
	var publisher service.EventPublisher = event.NoopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(
			pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers),
			pkgkafka.NewMetrics(reg),
			logger,
		)
		publisher = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	jwtManager, err := auth.NewJWTManager(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry,
	)
	if err != nil {
		return nil, fmt.Errorf("create jwt manager: %w", err)
	}
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	userRepo := postgres.NewUserRepository(a.pool)
	postRepo := postgres.NewPostRepository(a.pool)

	authService := service.NewAuthService(userRepo, hasher, jwtManager, publisher, service.NewMetrics(reg), logger)
	userService := service.NewUserService(userRepo, hasher, postCache, publisher, logger)
	postService := service.NewPostService(postRepo, postCache, publisher, logger)

	router := handler.NewRouter(
		authService, userService, postService, jwtManager,
		healthHandler, reg, middleware.NewHTTPMetrics(reg, cfg.ServiceName),
		handler.RouterConfig{
			ServiceName:       cfg.ServiceName,
			AllowedOrigins:    cfg.CORSAllowedOrigins,
			PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
			Cookies: handler.CookieConfig{
				Secure:     cfg.CookieSecure,
				SameSite:   handler.ParseSameSite(cfg.CookieSameSite),
				AccessTTL:  cfg.AccessTokenExpiry,
				RefreshTTL: cfg.RefreshTokenExpiry,
			},
		},
		logger,
	)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown stops all components in order: the HTTP server drains in-flight
// requests, the tracer flushes their spans, then the clients are closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeClients())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeClients releases Kafka, Redis and Postgres, whichever were opened.
func (a *App) closeClients() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
