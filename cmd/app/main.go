package main

import (
	"ProjectIVR/internal/config"
	"ProjectIVR/pkg/log"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.NewLogger().Fatalf("Error loading .env file: %v", err)
	}
	logger := log.NewLogger()

	settings, err := config.LoadSettings()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithSettings(settings),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithSessionStore(),
		config.WithLLM(),
		config.WithTwilio(),
		config.WithOTPSender(),
		config.WithExportPublishers(),
		config.WithMetrics(),
		config.WithLiveFeed(),
		config.WithMiddleware(),
		config.WithBcryptUtils(),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	if err := server.RegisterHandler(); err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithField("port", settings.Port).Info("Server starting")

	if err := server.Run(ctx); err != nil {
		logger.Errorf("Server stopped: %v", err)
	}

	logger.Info("Waiting for in-flight calls to finalize...")
	if err := server.Close(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
	logger.Info("Server stopped")
}
