// Package handlers contains the HTTP handlers for the API. Handlers parse
// and validate requests, delegate to services, and translate service errors
// into HTTP responses.
package handlers

import (
	"errors"

	"kobo/internal/models"
	"kobo/internal/services/auth"
	"kobo/internal/services/ledger"
	"kobo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService   auth.Service
	ledgerService ledger.Service
}

func NewAuthHandler(authService auth.Service, ledgerService ledger.Service) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		ledgerService: ledgerService,
	}
}

// extractUserClaims is a helper shared by all handlers in this package.
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Email == "" || input.Password == "" {
		return utils.BadRequest(c, "email and password are required")
	}

	user, err := h.authService.Register(input.Email, input.Username, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return utils.BadRequest(c, "email already registered")
		}
		return utils.BadRequest(c, err.Error())
	}

	// Every user gets exactly one wallet, created at registration.
	wallet, err := h.ledgerService.CreateWallet(c.Context(), user.ID, "")
	if err != nil && !errors.Is(err, ledger.ErrWalletExists) {
		return utils.InternalError(c, "failed to create wallet")
	}

	return utils.Created(c, fiber.Map{
		"user": fiber.Map{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
		},
		"wallet": wallet,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	_, token, err := h.authService.Login(input.Email, input.Password)
	if err != nil {
		return utils.Unauthorized(c, "invalid credentials")
	}

	return utils.Success(c, fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}
