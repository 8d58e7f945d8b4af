package ledger

import "errors"

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrMissingKey        = errors.New("idempotency key is required")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrWalletExists      = errors.New("wallet already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLedgerFailed      = errors.New("ledger operation failed")
)
