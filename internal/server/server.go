package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/builder-faucet/builder_faucet/internal/config"
)

// Server wraps the Fiber application for one faucet service.
type Server struct {
	app  *fiber.App
	addr string
}

// New instantiates the HTTP server and hands the app to the provided route
// setup function.
func New(cfg config.Base, setup func(app *fiber.App) error) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // a payout request blocks on chain confirmation
	})

	if err := setup(app); err != nil {
		return nil, err
	}

	return &Server{app: app, addr: cfg.Address()}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
