package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/septentria/land-office/internal/config"
	"github.com/septentria/land-office/internal/container"
	"github.com/septentria/land-office/pkg/utils"
)

func main() {
	// Local overrides from .env, if present
	_ = gotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting land registration office",
		zap.String("jurisdiction", cfg.Office.Jurisdiction),
		zap.Int("port", cfg.Server.Port))

	app, err := container.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build application", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
	}

	if err := app.Stop(); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}

	logger.Info("Server exited")
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "configs/config.yaml"
}
