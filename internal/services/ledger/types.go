package ledger

import "kobo/internal/models"

// TransferResult carries both wallets and both ledger legs of a committed
// internal transfer. The legs share one operation id.
type TransferResult struct {
	Sender      *models.Wallet      `json:"sender"`
	Receiver    *models.Wallet      `json:"receiver"`
	OutLeg      *models.Transaction `json:"out_leg"`
	InLeg       *models.Transaction `json:"in_leg"`
	OperationID string              `json:"operation_id"`
}

// Config holds ledger service configuration.
type Config struct {
	DefaultCurrency string
}

const defaultCurrency = "NGN"
