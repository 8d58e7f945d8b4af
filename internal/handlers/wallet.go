package handlers

import (
	"context"
	"errors"
	"strconv"

	"kobo/internal/models"
	"kobo/internal/services/ledger"
	"kobo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// IdempotencyKeyHeader carries the caller-supplied idempotency key on every
// mutating wallet operation.
const IdempotencyKeyHeader = "Idempotency-Key"

type WalletHandler struct {
	ledgerService ledger.Service
}

func NewWalletHandler(ledgerService ledger.Service) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService}
}

func walletIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (h *WalletHandler) CreateWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	wallet, err := h.ledgerService.CreateWallet(c.Context(), claims.UserID, "")
	if err != nil {
		if errors.Is(err, ledger.ErrWalletExists) {
			return utils.BadRequest(c, "wallet already exists")
		}
		return utils.InternalError(c, "failed to create wallet")
	}
	return utils.Created(c, fiber.Map{"wallet": wallet})
}

func (h *WalletHandler) GetMyWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	wallet, err := h.ledgerService.GetWalletByUser(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return utils.NotFound(c, "wallet not found")
		}
		return utils.InternalError(c, "failed to get wallet")
	}
	return utils.Success(c, fiber.Map{"wallet": wallet})
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	walletID, err := walletIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid wallet id")
	}

	wallet, err := h.ledgerService.GetWallet(c.Context(), walletID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return utils.NotFound(c, "wallet not found")
		}
		return utils.InternalError(c, "failed to get wallet")
	}
	if wallet.UserID != claims.UserID && !claims.IsAdmin() {
		return utils.Forbidden(c, "not authorized")
	}
	return utils.Success(c, fiber.Map{"wallet": wallet})
}

func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	return h.mutate(c, h.ledgerService.Deposit)
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	return h.mutate(c, h.ledgerService.Withdraw)
}

// mutate is the shared deposit/withdraw request path: ownership check,
// idempotency key extraction, then the ledger operation.
func (h *WalletHandler) mutate(c *fiber.Ctx, op func(ctx context.Context, walletID uint, amountKobo int64, key string) (*models.Wallet, error)) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	walletID, err := walletIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid wallet id")
	}

	key := c.Get(IdempotencyKeyHeader)
	if key == "" {
		return utils.BadRequest(c, "Idempotency-Key header is required")
	}

	var input struct {
		AmountKobo int64 `json:"amount_kobo"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	wallet, err := h.ledgerService.GetWallet(c.Context(), walletID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return utils.NotFound(c, "wallet not found")
		}
		return utils.InternalError(c, "failed to get wallet")
	}
	if wallet.UserID != claims.UserID {
		return utils.NotFound(c, "wallet not found")
	}

	updated, err := op(c.Context(), walletID, input.AmountKobo, key)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return utils.BadRequest(c, "invalid amount")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return utils.BadRequest(c, "insufficient funds")
		case errors.Is(err, ledger.ErrWalletNotFound):
			return utils.NotFound(c, "wallet not found")
		default:
			return utils.InternalError(c, "operation failed")
		}
	}

	return utils.Success(c, fiber.Map{"wallet": updated})
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	key := c.Get(IdempotencyKeyHeader)
	if key == "" {
		return utils.BadRequest(c, "Idempotency-Key header is required")
	}

	var input struct {
		TargetWalletID uint  `json:"target_wallet_id"`
		AmountKobo     int64 `json:"amount_kobo"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	sender, err := h.ledgerService.GetWalletByUser(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return utils.NotFound(c, "sender wallet not found")
		}
		return utils.InternalError(c, "failed to get wallet")
	}

	result, err := h.ledgerService.Transfer(c.Context(), sender.ID, input.TargetWalletID, input.AmountKobo, key)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return utils.BadRequest(c, "invalid amount")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return utils.BadRequest(c, "insufficient funds")
		case errors.Is(err, ledger.ErrWalletNotFound):
			return utils.NotFound(c, "target wallet not found")
		default:
			return utils.InternalError(c, "transfer failed")
		}
	}

	return utils.Success(c, fiber.Map{
		"wallet":       result.Sender,
		"operation_id": result.OperationID,
	})
}
