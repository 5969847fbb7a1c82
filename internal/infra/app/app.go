package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nrodcast/account-service/internal/core/port"
	"github.com/nrodcast/account-service/internal/infra/config"
	"github.com/nrodcast/account-service/internal/infra/database"
	kafkainfra "github.com/nrodcast/account-service/internal/infra/kafka"
	"github.com/nrodcast/account-service/internal/infra/logger"
	redisinfra "github.com/nrodcast/account-service/internal/infra/redis"
	"github.com/nrodcast/account-service/internal/infra/security"
	smtpinfra "github.com/nrodcast/account-service/internal/infra/smtp"
	"github.com/nrodcast/account-service/internal/infra/telemetry"
	postgresrepo "github.com/nrodcast/account-service/internal/repository/postgres"
	redisrepo "github.com/nrodcast/account-service/internal/repository/redis"
	"github.com/nrodcast/account-service/internal/transport/http/middleware"
	"github.com/nrodcast/account-service/internal/transport/http/routes"
	"github.com/nrodcast/account-service/internal/usecase"
)

// Application bundles the wired HTTP engine with the resources it owns.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	users  *usecase.UserService
}

// New wires configuration into a ready-to-run application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	telemetryProvider, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
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

	keyProvider, kid, err := security.NewKeyProvider(cfg.JWT.KeyDirectory, cfg.JWT.KeyID)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init key provider: %w", err)
	}

	tokenIssuer, err := security.NewTokenIssuer(keyProvider, kid, security.TokenIssuerOptions{
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.AccessTokenTTL,
	})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	hasher := security.NewPasswordHasher(security.PBKDF2Params{
		Iterations: cfg.PBKDF2.Iterations,
		SaltLength: cfg.PBKDF2.SaltLength,
		KeyLength:  cfg.PBKDF2.KeyLength,
	})
	passwordValidator := security.DefaultPasswordValidator()

	repos := postgresrepo.NewRepositories(pool)
	cache := redisrepo.NewCacheRepository(redisClient.Client())

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "account:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var notifier port.Notifier
	if cfg.SMTP.Host != "" {
		notifier = smtpinfra.NewNotifier(cfg.SMTP, log)
	} else {
		log.Info("smtp host not configured, using logging notifier")
		notifier = smtpinfra.NewStubNotifier(log)
	}

	authService := usecase.NewAuthService(cfg, repos.Users, hasher, tokenIssuer, rateLimitStore, log)
	userService := usecase.NewUserService(cfg, repos.Users, hasher, passwordValidator, eventPublisher, log)
	resetService := usecase.NewPasswordResetService(cfg, repos.Users, cache, hasher, passwordValidator, notifier, eventPublisher, rateLimitStore, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Telemetry:   telemetryProvider,
		RateLimiter: rateLimiter,
		KeyProvider: keyProvider,
		KeyID:       kid,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:          authService,
			Users:         userService,
			PasswordReset: resetService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		users:  userService,
	}, nil
}

// Run seeds the bootstrap administrator and serves HTTP until ctx is canceled.
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

	if err := a.users.EnsureAdmin(ctx); err != nil {
		a.logger.Warn("failed to seed bootstrap administrator", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting account API",
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
	}
}
