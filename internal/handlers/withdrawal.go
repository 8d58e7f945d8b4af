package handlers

import (
	"errors"

	"kobo/internal/repositories"
	"kobo/internal/services/ledger"
	"kobo/internal/services/paystack"
	"kobo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// WithdrawalHandler exposes external transfers to linked bank accounts.
type WithdrawalHandler struct {
	ledgerService ledger.Service
	bankAccounts  repositories.BankAccountRepository
}

func NewWithdrawalHandler(ledgerService ledger.Service, bankAccounts repositories.BankAccountRepository) *WithdrawalHandler {
	return &WithdrawalHandler{
		ledgerService: ledgerService,
		bankAccounts:  bankAccounts,
	}
}

func (h *WithdrawalHandler) Request(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	key := c.Get(IdempotencyKeyHeader)
	if key == "" {
		return utils.BadRequest(c, "Idempotency-Key header is required")
	}

	var input struct {
		AmountKobo    int64 `json:"amount_kobo"`
		BankAccountID uint  `json:"bank_account_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	account, err := h.bankAccounts.GetByID(input.BankAccountID)
	if err != nil {
		if errors.Is(err, repositories.ErrBankAccountNotFound) {
			return utils.NotFound(c, "bank account not found")
		}
		return utils.InternalError(c, "failed to get bank account")
	}
	if account.UserID != claims.UserID {
		return utils.NotFound(c, "bank account not found")
	}

	wallet, err := h.ledgerService.GetWalletByUser(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return utils.NotFound(c, "wallet not found")
		}
		return utils.InternalError(c, "failed to get wallet")
	}

	entry, err := h.ledgerService.ExternalTransfer(c.Context(), wallet.ID, account, input.AmountKobo, key)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return utils.BadRequest(c, "invalid amount")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return utils.BadRequest(c, "insufficient funds")
		case errors.Is(err, paystack.ErrTransferRejected):
			return utils.BadGateway(c, "transfer rejected by provider, funds restored")
		default:
			return utils.InternalError(c, "withdrawal failed")
		}
	}

	return utils.Success(c, fiber.Map{
		"message":      "withdrawal requested",
		"reference":    entry.TransferReference,
		"status":       entry.Status,
		"bank_account": account.AccountName,
	})
}
