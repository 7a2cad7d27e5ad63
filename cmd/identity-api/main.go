package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/urlessen/identity-api/api/swagger"
	"github.com/urlessen/identity-api/internal/handler"
	"github.com/urlessen/identity-api/internal/migrations"
	"github.com/urlessen/identity-api/internal/repository"
	"github.com/urlessen/identity-api/internal/service"
	"github.com/urlessen/identity-api/pkg/cache"
	"github.com/urlessen/identity-api/pkg/config"
	"github.com/urlessen/identity-api/pkg/database"
	"github.com/urlessen/identity-api/pkg/jobs"
	"github.com/urlessen/identity-api/pkg/logger"
	"github.com/urlessen/identity-api/pkg/password"
	"github.com/urlessen/identity-api/pkg/securecookie"
)

// @title urlessen identity API
// @version 1.0.0
// @description Signup, signin and refresh-token rotation with reuse detection
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, migrations.FS); err != nil {
			return err
		}
		logr.Info("database migrations applied")
	}

	var sessions interface {
		service.SessionStore
		handler.Pinger
	}
	switch cfg.Auth.SessionStore {
	case config.SessionStoreRedis:
		rdb, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		sessions = repository.NewRedisSessionRepository(rdb, cfg.Auth.RefreshTokenTTL)
	default:
		sessions = repository.NewSessionRepository(db)
	}
	logr.Info("session store selected", zap.String("store", cfg.Auth.SessionStore))

	metrics := service.NewMetricsService()

	hasher, err := password.NewHasher(cfg.Auth.Pepper)
	if err != nil {
		return err
	}
	pool := jobs.NewPool("password", jobs.PoolConfig{
		Workers:    cfg.Hashing.Workers,
		BufferSize: cfg.Hashing.QueueSize,
		Logger:     logr,
	})
	pool.Start(ctx)
	defer pool.Stop()
	metrics.RegisterQueueGauge("password", pool.Pending)

	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return err
	}

	sealer, err := securecookie.NewSealer(cfg.Cookie.Secret, cfg.Cookie.Name)
	if err != nil {
		return err
	}

	authSvc := service.NewAuthService(
		repository.NewUserRepository(db),
		sessions,
		service.NewPasswordService(hasher, pool, metrics),
		tokens,
		metrics,
		logr,
	)

	router := handler.NewRouter(handler.RouterDeps{
		Auth: handler.NewAuthHandler(authSvc, sealer, securecookie.Options{
			Path:   cfg.Cookie.Path,
			Secure: cfg.Cookie.Secure,
			MaxAge: cfg.Auth.RefreshTokenTTL,
		}, logr),
		Metrics:        handler.NewMetricsHandler(metrics, sessions),
		Tokens:         tokens,
		MetricsService: metrics,
		Logger:         logr,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
