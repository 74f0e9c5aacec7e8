package verification

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the verification endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a verification handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Verify runs the eligibility gates for the submitted wallet request.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.GithubUsername == "" {
		return fiber.NewError(http.StatusBadRequest, "github_username is required for verification")
	}

	verdict := h.service.Verify(c.UserContext(), req.GithubUsername, req.WalletAddress)
	return c.Status(http.StatusOK).JSON(verdict)
}

// RecordPayout stamps a successful payout for rate limiting. The write is an
// upsert, so replaying the call is harmless.
func (h *Handler) RecordPayout(c *fiber.Ctx) error {
	var req RecordPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.GithubUserID == 0 {
		return fiber.NewError(http.StatusBadRequest, "github_user_id is required")
	}

	if err := h.service.RecordPayout(c.UserContext(), req.GithubUserID); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "failed to record payout")
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":         "recorded",
		"github_user_id": req.GithubUserID,
	})
}
