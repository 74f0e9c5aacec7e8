package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/builder-faucet/builder_faucet/internal/config"
	"github.com/builder-faucet/builder_faucet/internal/infra"
	"github.com/builder-faucet/builder_faucet/internal/logging"
	"github.com/builder-faucet/builder_faucet/internal/routes"
	"github.com/builder-faucet/builder_faucet/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadVerifier()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New("verifier", cfg.LogLevel)

	ctx := context.Background()

	deps := routes.VerifierDeps{Cfg: cfg, Logger: logger}
	if cfg.DatabaseURL != "" {
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		deps.DB = db
	} else {
		logger.Warn("no DATABASE_URL set, payout history is in-memory only")
	}

	srv, err := server.New(cfg.Base, func(app *fiber.App) error {
		return routes.SetupVerifier(app, deps)
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
