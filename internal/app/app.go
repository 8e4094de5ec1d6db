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
	goredis "github.com/redis/go-redis/v9"

	"github.com/Shahil0511/OakMirror/internal/auth"
	"github.com/Shahil0511/OakMirror/internal/config"
	"github.com/Shahil0511/OakMirror/internal/event"
	handler "github.com/Shahil0511/OakMirror/internal/handler/http"
	"github.com/Shahil0511/OakMirror/internal/repository"
	"github.com/Shahil0511/OakMirror/internal/repository/postgres"
	redisrepo "github.com/Shahil0511/OakMirror/internal/repository/redis"
	"github.com/Shahil0511/OakMirror/internal/service"
	"github.com/Shahil0511/OakMirror/migrations"
	"github.com/Shahil0511/OakMirror/pkg/database"
	"github.com/Shahil0511/OakMirror/pkg/health"
	pkgkafka "github.com/Shahil0511/OakMirror/pkg/kafka"
	"github.com/Shahil0511/OakMirror/pkg/middleware"
	"github.com/Shahil0511/OakMirror/pkg/tracing"
)

const serviceName = "oakmirror"

// App wires together all dependencies and runs the OakMirror server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	publisher      pkgkafka.Publisher
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Token settings are checked before anything is dialled.
	tokens, err := auth.NewTokenService(cfg.TokenConfig())
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}
	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	tracerShutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Insecure:       cfg.OTelInsecure,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}
	ok := false
	defer func() {
		if !ok {
			a.closeResources()
		}
	}()

	// PostgreSQL
	pgCfg := cfg.Postgres()
	a.pool, err = database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.pool); err != nil {
		logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	// Refresh token revocation (optional)
	var revocations repository.RevocationStore = redisrepo.NoopRevocationStore{}
	if cfg.TokenRevocationEnabled {
		a.redis, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		revocations = redisrepo.NewRevocationStore(a.redis)
		logger.Info("refresh token revocation enabled", slog.String("redis", cfg.Redis().Addr()))
	}

	// Kafka (optional)
	a.publisher = pkgkafka.NoopPublisher{}
	if cfg.KafkaEnabled {
		a.publisher = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	userRepo := postgres.NewUserRepository(a.pool)
	postRepo := postgres.NewPostRepository(a.pool)
	eventProducer := event.NewProducer(a.publisher, logger)
	authService := service.NewAuthService(userRepo, tokens, hasher, revocations, eventProducer, logger)
	postService := service.NewPostService(postRepo, eventProducer, logger)

	healthHandler := a.healthChecks()

	router := handler.NewRouter(handler.RouterConfig{
		AuthService: authService,
		PostService: postService,
		Health:      healthHandler,
		Logger:      logger,
		CORS:        corsConfig(cfg),
		GlobalLimit: middleware.RateLimitConfig{
			Name:       "global",
			Requests:   cfg.RateLimitGlobalRequests,
			Window:     cfg.RateLimitGlobalWindow.Duration(),
			TrustProxy: cfg.TrustProxy,
			Message:    "Too many requests from this IP, please try again later",
		},
		RegisterLimit: middleware.RateLimitConfig{
			Name:       "register",
			Requests:   cfg.RateLimitRegisterRequests,
			Window:     cfg.RateLimitRegisterWindow.Duration(),
			TrustProxy: cfg.TrustProxy,
			Message:    "Too many requests from this IP, please try again later",
		},
		LoginLimit: middleware.RateLimitConfig{
			Name:       "login",
			Requests:   cfg.RateLimitLoginRequests,
			Window:     cfg.RateLimitLoginWindow.Duration(),
			TrustProxy: cfg.TrustProxy,
			Message:    "Too many login attempts, please try again later",
		},
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ok = true
	return a, nil
}

func (a *App) healthChecks() *health.Handler {
	h := health.NewHandler()
	h.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	if a.redis != nil {
		h.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if p, ok := a.publisher.(*pkgkafka.Producer); ok {
		h.RegisterNonCritical("kafka", p.Ping)
	}
	return h
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		c.AllowedOrigins = cfg.CORSAllowedOrigins
	}
	return c
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
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush spans of drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	errs = append(errs, a.closeResources()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeResources() []error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
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
	return errs
}
