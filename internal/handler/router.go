package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/urlessen/identity-api/internal/middleware"
	"github.com/urlessen/identity-api/internal/service"
	"github.com/urlessen/identity-api/pkg/logger"
	corsmiddleware "github.com/urlessen/identity-api/pkg/middleware/cors"
	reqidmiddleware "github.com/urlessen/identity-api/pkg/middleware/requestid"
)

// RouterDeps carries everything NewRouter mounts.
type RouterDeps struct {
	Auth           *AuthHandler
	Metrics        *MetricsHandler
	Tokens         *service.TokenService
	MetricsService *service.MetricsService
	Logger         *zap.Logger
	AllowedOrigins []string
	EnableDocs     bool
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.AllowedOrigins))
	r.Use(middleware.Metrics(deps.MetricsService))

	r.GET("/health", deps.Metrics.Health)
	r.GET("/ready", deps.Metrics.Ready)
	r.GET("/metrics", deps.Metrics.Prometheus)

	if deps.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := r.Group("/auth")
	auth.POST("/signup", deps.Auth.SignUp)
	auth.POST("/signin", deps.Auth.SignIn)

	rotation := auth.Group("", middleware.StaleIdentity(deps.Tokens), middleware.RequireIdentity())
	rotation.POST("/refresh", deps.Auth.Refresh)
	rotation.POST("/logout", deps.Auth.Logout)

	auth.GET("/me", middleware.Identity(deps.Tokens), middleware.RequireIdentity(), deps.Auth.Me)

	return r
}
