package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nrodcast/account-service/internal/infra/config"
	"github.com/nrodcast/account-service/internal/infra/security"
	"github.com/nrodcast/account-service/internal/infra/telemetry"
	"github.com/nrodcast/account-service/internal/transport/http/handlers"
	"github.com/nrodcast/account-service/internal/transport/http/middleware"
	"github.com/nrodcast/account-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Users         *usecase.UserService
	PasswordReset *usecase.PasswordResetService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Telemetry   *telemetry.Provider
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	KeyProvider security.KeyProvider
	KeyID       string
	Database    DatabaseChecker
	Cache       CacheChecker
	// Metrics receives the HTTP collectors; defaults to the process-wide
	// prometheus registerer when nil.
	Metrics prometheus.Registerer
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	if origins := deps.Config.CORS.AllowedOrigins; len(origins) > 0 {
		r.Use(middleware.CORS(origins))
	}

	metrics := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: deps.Metrics})
	r.Use(metrics.Handler())

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)
	adminMiddleware := middleware.RequireAdmin()

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jwksHandler := handlers.NewJWKSHandler(deps.KeyProvider, deps.KeyID)
	r.GET("/.well-known/jwks.json", jwksHandler.Keys)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Telemetry, deps.Config.JWT.AccessTokenTTL)
		authHandler.RegisterRoutes(authGroup, buildSignInMiddlewares(deps)...)

		userGroup := api.Group("/users")

		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset, deps.Telemetry)
		passwordHandler.RegisterRoutes(userGroup, buildPasswordResetMiddlewares(deps)...)

		userHandler := handlers.NewUserHandler(deps.Services.Users)
		userGroup.GET("/me", authMiddleware, userHandler.Me)
		userHandler.RegisterRoutes(userGroup, authMiddleware, adminMiddleware)
	}

	return r
}

// buildSignInMiddlewares adds an IP-scoped limit ahead of the per-email limit
// enforced inside the sign-in flow.
func buildSignInMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.SignInMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "signin_ip",
		Limit:      limit * ipLimitMultiplier,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildPasswordResetMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.PasswordResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	rule := middleware.RateLimitRule{
		Name:       "password_reset_ip",
		Limit:      limit * ipLimitMultiplier,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

// ipLimitMultiplier loosens the IP budget relative to the per-account budget
// so shared NATs are not locked out by a single noisy account.
const ipLimitMultiplier = 10
