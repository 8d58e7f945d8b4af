package handlers

import (
	"errors"

	"kobo/internal/services/audit"
	"kobo/internal/services/ledger"
	"kobo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type AuditHandler struct {
	auditService  audit.Service
	ledgerService ledger.Service
}

func NewAuditHandler(auditService audit.Service, ledgerService ledger.Service) *AuditHandler {
	return &AuditHandler{
		auditService:  auditService,
		ledgerService: ledgerService,
	}
}

// VerifyOwnWallet lets a user audit a wallet they own.
func (h *AuditHandler) VerifyOwnWallet(c *fiber.Ctx) error {
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
	if wallet.UserID != claims.UserID {
		return utils.Forbidden(c, "not authorized")
	}

	report, err := h.auditService.Verify(c.Context(), walletID)
	if err != nil {
		return utils.InternalError(c, "audit failed")
	}
	return utils.Success(c, report)
}

// VerifyWallet is the admin variant without an ownership check.
func (h *AuditHandler) VerifyWallet(c *fiber.Ctx) error {
	walletID, err := walletIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid wallet id")
	}

	report, err := h.auditService.Verify(c.Context(), walletID)
	if err != nil {
		if errors.Is(err, audit.ErrWalletNotFound) {
			return utils.NotFound(c, "wallet not found")
		}
		return utils.InternalError(c, "audit failed")
	}
	return utils.Success(c, report)
}

// Mismatches runs the audit over every wallet and returns the invalid subset.
func (h *AuditHandler) Mismatches(c *fiber.Ctx) error {
	summary, err := h.auditService.AuditAll(c.Context())
	if err != nil {
		return utils.InternalError(c, "audit failed")
	}
	return utils.Success(c, summary)
}

// Repair overwrites a drifted stored balance with the ledger-computed value.
// Deliberately admin-only and manual.
func (h *AuditHandler) Repair(c *fiber.Ctx) error {
	walletID, err := walletIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid wallet id")
	}

	report, err := h.auditService.Repair(c.Context(), walletID)
	if err != nil {
		if errors.Is(err, audit.ErrWalletNotFound) {
			return utils.NotFound(c, "wallet not found")
		}
		return utils.InternalError(c, "repair failed")
	}
	return utils.Success(c, fiber.Map{
		"message": "wallet balance reconciled",
		"report":  report,
	})
}
