package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/dongne-market/backend/internal/router"
	"github.com/anonto42/dongne-market/backend/internal/services"
	"github.com/anonto42/dongne-market/backend/internal/validators"
	"github.com/anonto42/dongne-market/backend/pkg/config"
	"github.com/anonto42/dongne-market/backend/pkg/firebase"
	"github.com/anonto42/dongne-market/backend/pkg/logger"
	"github.com/anonto42/dongne-market/backend/pkg/storage"
	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.Env)

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize databases")
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	objects, err := storage.NewMinioStore(
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioPublicURL, cfg.MinioUseSSL,
		services.ItemImagesBucket, services.AvatarsBucket,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize object storage")
	}

	// Firebase login is optional
	var firebaseAuth *auth.Client
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			logger.Warn().Err(err).Msg("Firebase login disabled")
		} else {
			firebaseAuth = firebaseApp.AuthClient
		}
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	err = router.SetupRoutes(e, router.Dependencies{
		Config:       cfg,
		DB:           db,
		Objects:      objects,
		FirebaseAuth: firebaseAuth,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up routes")
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	logger.Info().Msg("Server stopped.")
}
