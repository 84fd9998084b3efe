package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/envoverlay/internal/application"
	"github.com/eugenenazirov/envoverlay/internal/config"
	"github.com/eugenenazirov/envoverlay/internal/logging"
	"github.com/eugenenazirov/envoverlay/internal/overlay"
)

var signalNotify = signal.Notify

func main() {
	c := newCLI()
	command, overrides, err := c.parse(os.Args[1:])
	c.app.FatalIfError(err, "")

	cfg, err := config.Load(overrides)
	if err != nil {
		c.app.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case c.apply.FullCommand():
		if err := application.RunApply(cfg, overlay.OSLookup, logger, os.Stdout); err != nil {
			logger.Fatal("failed to apply overlay", zap.Error(err))
		}
	case c.serve.FullCommand():
		serve(cfg, logger)
	}
}

func serve(cfg config.Config, logger *zap.Logger) {
	app, err := application.New(cfg, overlay.OSLookup, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
