package disbursement

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the disbursement endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a disbursement handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Request processes one payout request end to end.
func (h *Handler) Request(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.GithubUsername == "" || req.WalletAddress == "" {
		return fiber.NewError(http.StatusBadRequest, "github_username and wallet_address are required")
	}

	result, err := h.service.Disburse(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, ErrVerificationDenied) {
			return c.Status(http.StatusForbidden).JSON(result)
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(result)
}
