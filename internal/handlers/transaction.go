package handlers

import (
	"errors"
	"time"

	"kobo/internal/repositories"
	"kobo/internal/services/ledger"
	"kobo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const maxPageSize = 100

type TransactionHandler struct {
	repo          repositories.LedgerRepository
	ledgerService ledger.Service
}

func NewTransactionHandler(repo repositories.LedgerRepository, ledgerService ledger.Service) *TransactionHandler {
	return &TransactionHandler{
		repo:          repo,
		ledgerService: ledgerService,
	}
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 20)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if limit <= 0 {
		limit = 20
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *TransactionHandler) GetMyTransactions(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit, offset := pagination(c)
	entries, err := h.repo.ListTransactionsByUser(c.Context(), claims.UserID, limit, offset)
	if err != nil {
		return utils.InternalError(c, "failed to list transactions")
	}
	return utils.Success(c, fiber.Map{"transactions": entries})
}

func (h *TransactionHandler) GetWalletTransactions(c *fiber.Ctx) error {
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

	limit, offset := pagination(c)
	entries, err := h.repo.ListTransactionsByWallet(c.Context(), walletID, limit, offset)
	if err != nil {
		return utils.InternalError(c, "failed to list transactions")
	}
	return utils.Success(c, fiber.Map{"transactions": entries})
}

// Statement returns a wallet's transactions between two dates, oldest first.
func (h *TransactionHandler) Statement(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return utils.BadRequest(c, "invalid from date, use RFC3339")
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return utils.BadRequest(c, "invalid to date, use RFC3339")
	}

	wallet, err := h.ledgerService.GetWalletByUser(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return utils.Success(c, fiber.Map{
				"from":         from,
				"to":           to,
				"count":        0,
				"transactions": []struct{}{},
			})
		}
		return utils.InternalError(c, "failed to get wallet")
	}

	entries, err := h.repo.ListTransactionsBetween(wallet.ID, from, to)
	if err != nil {
		return utils.InternalError(c, "failed to build statement")
	}

	return utils.Success(c, fiber.Map{
		"from":         from,
		"to":           to,
		"count":        len(entries),
		"transactions": entries,
	})
}
