package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/builder-faucet/builder_faucet/internal/config"
	"github.com/builder-faucet/builder_faucet/internal/disbursement"
	"github.com/builder-faucet/builder_faucet/internal/middleware"
	"github.com/builder-faucet/builder_faucet/internal/treasury"
	"github.com/builder-faucet/builder_faucet/internal/verification"
)

// DisburserDeps aggregates shared dependencies for the disbursement service.
type DisburserDeps struct {
	Cfg      config.Disburser
	Cache    *redis.Client
	Treasury *treasury.Service
	Logger   *slog.Logger
}

// SetupDisburser configures middlewares and the disbursement endpoint.
func SetupDisburser(app *fiber.App, d DisburserDeps) error {
	if d.Treasury == nil {
		return fmt.Errorf("treasury service is required")
	}
	if d.Cache == nil && !d.Cfg.IsDev() {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	verifier := verification.NewClient(d.Cfg.VerificationURL)
	svc := disbursement.NewService(verifier, d.Treasury, d.Cfg.PayoutAmount, d.Logger)
	handler := disbursement.NewHandler(svc)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/requests", handler.Request)

	return nil
}
