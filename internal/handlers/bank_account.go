package handlers

import (
	"context"
	"errors"

	"kobo/internal/models"
	"kobo/internal/repositories"
	"kobo/internal/services/paystack"
	"kobo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AccountResolver validates a bank account with the provider before linking.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error)
	ListBanks(ctx context.Context) ([]paystack.Bank, error)
}

type BankAccountHandler struct {
	repo     repositories.BankAccountRepository
	resolver AccountResolver
}

func NewBankAccountHandler(repo repositories.BankAccountRepository, resolver AccountResolver) *BankAccountHandler {
	return &BankAccountHandler{
		repo:     repo,
		resolver: resolver,
	}
}

func (h *BankAccountHandler) Link(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		BankCode      string `json:"bank_code"`
		AccountNumber string `json:"account_number"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.BankCode == "" || input.AccountNumber == "" {
		return utils.BadRequest(c, "bank_code and account_number are required")
	}

	// Re-linking the same account is a no-op, skipping the provider call.
	if existing, err := h.repo.Find(claims.UserID, input.BankCode, input.AccountNumber); err == nil {
		return utils.Success(c, fiber.Map{
			"message":      "bank account already linked",
			"bank_account": existing,
		})
	}

	resolved, err := h.resolver.ResolveAccount(c.Context(), input.AccountNumber, input.BankCode)
	if err != nil {
		if errors.Is(err, paystack.ErrProviderUnavailable) {
			return utils.BadGateway(c, "account resolution unavailable, try again")
		}
		return utils.BadRequest(c, "account resolution failed")
	}

	account := &models.BankAccount{
		UserID:        claims.UserID,
		BankCode:      input.BankCode,
		AccountNumber: resolved.AccountNumber,
		AccountName:   resolved.AccountName,
	}
	if err := h.repo.Create(account); err != nil {
		if errors.Is(err, repositories.ErrDuplicateBankAccount) {
			return utils.BadRequest(c, "bank account already linked")
		}
		return utils.InternalError(c, "failed to link bank account")
	}

	return utils.Created(c, fiber.Map{
		"message":      "bank account linked",
		"bank_account": account,
	})
}

func (h *BankAccountHandler) List(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	accounts, err := h.repo.GetByUserID(claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to list bank accounts")
	}
	return utils.Success(c, fiber.Map{"bank_accounts": accounts})
}

// ListBanks proxies the provider's supported-banks list.
func (h *BankAccountHandler) ListBanks(c *fiber.Ctx) error {
	banks, err := h.resolver.ListBanks(c.Context())
	if err != nil {
		return utils.BadGateway(c, "bank list unavailable")
	}
	return utils.Success(c, fiber.Map{"banks": banks})
}
