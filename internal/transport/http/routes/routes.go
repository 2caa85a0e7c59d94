package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codecrafthub/user-service/internal/core/port"
	"github.com/codecrafthub/user-service/internal/infra/config"
	"github.com/codecrafthub/user-service/internal/transport/http/handlers"
	"github.com/codecrafthub/user-service/internal/transport/http/middleware"
	"github.com/codecrafthub/user-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Passwords    *usecase.PasswordService
	Profiles     *usecase.ProfileService
	Users        *usecase.UserService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
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

	if deps.Config.Metrics.Enabled {
		if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
			r.Use(metrics.Handler())
		} else if deps.Logger != nil {
			deps.Logger.Warn("http metrics disabled", zap.Error(err))
		}
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)

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

	if deps.Config.Metrics.Enabled {
		path := deps.Config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Profiles)
		authHandler.RegisterRoutes(authGroup, buildRateLimit(deps, port.RateLimitScopeLogin, deps.Config.RateLimit.LoginMaxAttempts)...)

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
		registrationHandler.RegisterRoutes(authGroup, buildRateLimit(deps, port.RateLimitScopeRegister, deps.Config.RateLimit.RegisterMaxAttempts)...)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords)

		resetMiddlewares := buildRateLimit(deps, port.RateLimitScopePasswordReset, deps.Config.RateLimit.PasswordResetMaxAttempts)

		forgotChain := append([]gin.HandlerFunc{}, resetMiddlewares...)
		forgotChain = append(forgotChain, passwordHandler.ForgotPassword)
		authGroup.POST("/forgot-password", forgotChain...)

		resetChain := append([]gin.HandlerFunc{}, resetMiddlewares...)
		resetChain = append(resetChain, passwordHandler.ResetPassword)
		authGroup.POST("/reset-password", resetChain...)

		authGroup.POST("/change-password", authMiddleware, passwordHandler.ChangePassword)

		profileGroup := api.Group("/profile")
		profileGroup.Use(authMiddleware)
		profileHandler := handlers.NewProfileHandler(deps.Services.Profiles)
		profileHandler.RegisterRoutes(profileGroup)

		usersGroup := api.Group("/users")
		usersGroup.Use(authMiddleware)
		userHandler := handlers.NewUserHandler(deps.Services.Users)
		userHandler.RegisterRoutes(usersGroup)
	}

	return r
}

func buildRateLimit(deps Dependencies, scope string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	return []gin.HandlerFunc{deps.RateLimiter.Limit(scope, limit, window)}
}
