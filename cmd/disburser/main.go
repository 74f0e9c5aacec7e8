package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/builder-faucet/builder_faucet/internal/config"
	"github.com/builder-faucet/builder_faucet/internal/infra"
	"github.com/builder-faucet/builder_faucet/internal/logging"
	"github.com/builder-faucet/builder_faucet/internal/routes"
	"github.com/builder-faucet/builder_faucet/internal/server"
	"github.com/builder-faucet/builder_faucet/internal/treasury"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadDisburser()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New("disburser", cfg.LogLevel)

	ctx := context.Background()

	account, err := treasury.NewAccount(cfg.TreasurySecret)
	if err != nil {
		logger.Error("derive treasury account", "error", err)
		os.Exit(1)
	}
	logger.Info("treasury account loaded", "address", account.Address().Hex())

	chain, err := ethclient.DialContext(ctx, cfg.ChainRPCURL)
	if err != nil {
		logger.Error("dial chain rpc", "error", err)
		os.Exit(1)
	}
	defer chain.Close()

	treasurySvc, err := treasury.NewService(ctx, chain, account, cfg.GasLimit, cfg.ConfirmCeiling, logger)
	if err != nil {
		logger.Error("init treasury", "error", err)
		os.Exit(1)
	}

	deps := routes.DisburserDeps{Cfg: cfg, Treasury: treasurySvc, Logger: logger}
	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		deps.Cache = cache
	} else {
		logger.Warn("no REDIS_URL set, idempotency guard disabled")
	}

	srv, err := server.New(cfg.Base, func(app *fiber.App) error {
		return routes.SetupDisburser(app, deps)
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
