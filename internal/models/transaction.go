package models

import (
	"time"
)

// Transaction types. The sign of a ledger entry is derived from its type,
// never stored: deposits and transfer_in credit a wallet, withdrawals and
// transfer_out debit it. AmountKobo is always positive.
const (
	TransactionTypeDeposit     = "deposit"
	TransactionTypeWithdraw    = "withdraw"
	TransactionTypeTransferIn  = "transfer_in"
	TransactionTypeTransferOut = "transfer_out"
)

// Transaction statuses
const (
	TransactionStatusPending  = "pending"
	TransactionStatusSuccess  = "success"
	TransactionStatusFailed   = "failed"
	TransactionStatusReversed = "reversed"
)

// Transaction is an immutable ledger entry backing every balance change.
// (WalletID, IdempotencyKey) is unique so a retried request can never append
// a second entry. The two legs of a transfer share one OperationID.
type Transaction struct {
	ID                uint    `gorm:"primarykey" json:"id"`
	WalletID          uint    `gorm:"not null;index;uniqueIndex:uq_wallet_idempotency" json:"wallet_id"`
	AmountKobo        int64   `gorm:"not null" json:"amount_kobo"`
	Type              string  `gorm:"not null;index" json:"type"`
	Status            string  `gorm:"not null;default:'pending';index" json:"status"`
	IdempotencyKey    string  `gorm:"not null;uniqueIndex:uq_wallet_idempotency" json:"idempotency_key"`
	OperationID       string  `gorm:"not null;index" json:"operation_id"`
	TransferReference *string `gorm:"uniqueIndex" json:"transfer_reference,omitempty"`
	Currency          string  `gorm:"not null;default:'NGN'" json:"currency"`
	Metadata          JSON    `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TransactionSign returns the signed effect of a transaction type on a
// wallet balance: +1 for credits, -1 for debits, 0 for unknown types.
func TransactionSign(txType string) int64 {
	switch txType {
	case TransactionTypeDeposit, TransactionTypeTransferIn:
		return 1
	case TransactionTypeWithdraw, TransactionTypeTransferOut:
		return -1
	default:
		return 0
	}
}
