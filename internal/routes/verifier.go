package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/builder-faucet/builder_faucet/internal/config"
	"github.com/builder-faucet/builder_faucet/internal/github"
	"github.com/builder-faucet/builder_faucet/internal/middleware"
	"github.com/builder-faucet/builder_faucet/internal/payouts"
	"github.com/builder-faucet/builder_faucet/internal/verification"
)

// VerifierDeps aggregates shared dependencies for the verification service.
type VerifierDeps struct {
	Cfg    config.Verifier
	DB     *pgxpool.Pool
	Logger *slog.Logger
}

// SetupVerifier configures middlewares and the verification endpoints.
func SetupVerifier(app *fiber.App, d VerifierDeps) error {
	if d.DB == nil && !d.Cfg.IsDev() {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	var store payouts.Store
	if d.DB != nil {
		pg := payouts.NewPostgresStore(d.DB)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("ensure payout schema: %w", err)
		}
		store = pg
	} else {
		store = payouts.NewMemoryStore()
	}

	identities := github.NewClient(d.Cfg.GithubAPIURL, d.Cfg.GithubToken)
	svc := verification.NewService(identities, store, d.Logger)
	handler := verification.NewHandler(svc)

	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		status := http.StatusOK
		if dbStatus != "ok" {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{"status": "ok", "postgres": dbStatus})
	})

	app.Post("/verify", handler.Verify)
	app.Post("/record-payout", handler.RecordPayout)

	return nil
}
