package main

import (
	"context"
	"os"
	"os/signal"
	"praid/config"
	"praid/internal/app"
	"praid/internal/logger"
	"praid/internal/server"
	"syscall"
	"time"
)

// shutdownGrace bounds how long open event streams may keep the process alive.
const shutdownGrace = 5 * time.Second

func main() {
	log := logger.New("main")

	cfg, err := config.FromArgs("praid-console", os.Args[1:])
	if err != nil {
		log.Er("failed to load config", err)
		os.Exit(2)
	}

	application, err := app.NewWithConfig(cfg)
	if err != nil {
		os.Exit(1)
	}

	appServer, err := server.New(application)
	if err != nil {
		closeApp(application, log)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- appServer.Listen(cfg.ServerPort)
	}()

	select {
	case err := <-serveErr:
		log.Er("Server stopped", err)
		closeApp(application, log)
		os.Exit(1)
	case <-ctx.Done():
	}

	stop()
	log.Info("Shutting down gracefully, press Ctrl+C again to force", "grace", shutdownGrace)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := appServer.FiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		log.Er("Server forced to shutdown", err)
	}

	closeApp(application, log)
	log.Info("Graceful shutdown complete")
}

func closeApp(application *app.App, log logger.Logger) {
	if err := application.Close(); err != nil {
		log.Er("failed to close app", err)
	}
}
