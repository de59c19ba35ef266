// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"authgate/internal/config"
	"authgate/internal/db"
	"authgate/internal/db/migrations"
	"authgate/internal/logging"
	"authgate/internal/middleware"
	"authgate/internal/repository"
	"authgate/internal/routes"
	"authgate/internal/services"
)

// @title authgate API
// @version 1.0
// @description Email/password authentication with password reset and a session-gated page router.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.CreateDatabaseIfNotExists(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to ensure database exists", zap.Error(err))
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := migrations.RunMigrations(ctx, database.DB); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	store := repository.NewStore(database.DB)
	hasher := services.NewBcryptHasher()

	var transport services.EmailSender = services.LogSender{}
	if cfg.SMTPHost != "" {
		transport = &services.SMTPSender{
			Host:   cfg.SMTPHost,
			Port:   cfg.SMTPPort,
			User:   cfg.SMTPUser,
			Pass:   cfg.SMTPPassword,
			From:   cfg.SMTPFrom,
			UseTLS: cfg.SMTPUseTLS,
		}
	} else {
		logger.Warn("SMTP_HOST is not set, emails will only be logged")
	}
	mailer := services.NewRetryingSender(transport, cfg.EmailMaxRetries)

	verifier := services.NewVerificationService(store, mailer, cfg.AppBaseURL, cfg.VerificationTokenTTL)
	resets := services.NewPasswordResetService(store, hasher, mailer, cfg.AppBaseURL, cfg.ResetTokenTTL)
	sessions := services.NewSessionService(store, hasher, services.NewSessionTokens(cfg.SessionSecret), verifier, cfg.SessionTTL)

	var fetcher middleware.SessionFetcher = services.NewLocalFetcher(sessions, cfg.SessionCookieName)
	if cfg.SessionUpstreamURL != "" {
		fetcher = services.NewSessionClient(cfg.SessionUpstreamURL)
		logger.Info("Resolving sessions upstream", zap.String("url", cfg.SessionUpstreamURL))
	}

	cache := middleware.NewSessionCache(cfg.SessionCacheTTL, uint64(cfg.SessionCacheCapacity))
	cache.Start()
	defer cache.Stop()

	gate := middleware.NewSessionGate(fetcher, cache, middleware.DefaultRouteRules(), cfg.AppBaseURL)
	resets.SetRevoker(gate)

	s3Config, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to configure S3", zap.Error(err))
	}
	avatars := services.NewAvatarService(store.Users, s3Config, cfg.AvatarMaxBytes)
	if !avatars.Enabled() {
		logger.Warn("S3_BUCKET_NAME is not set, avatar uploads are disabled")
	}

	limiter := middleware.NewRateLimiter(cfg.ForgotPasswordRatePerMinute, 0)
	defer limiter.Stop()

	var pages http.Handler
	if cfg.FrontendURL != "" {
		pages, err = routes.NewFrontendProxy(cfg.FrontendURL)
		if err != nil {
			logger.Fatal("Failed to configure frontend proxy", zap.Error(err))
		}
	}

	cleanupDone := services.StartTokenCleanup(ctx, store, cfg.TokenCleanupInterval)

	router := routes.SetupRoutes(routes.Dependencies{
		Config:   cfg,
		Logger:   logger,
		DB:       database.DB,
		Gate:     gate,
		Sessions: sessions,
		Resets:   resets,
		Verifier: verifier,
		Users:    store.Users,
		Avatars:  avatars,
		Limiter:  limiter,
		Pages:    pages,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	// Give in-flight requests 5 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	<-cleanupDone

	logger.Info("Server exiting")
}
