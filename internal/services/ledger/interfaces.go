package ledger

import (
	"context"

	"kobo/internal/models"
)

// Service orchestrates every client-initiated balance mutation. All
// operations are idempotent per (wallet, key): retrying with the same key
// returns the original result and never appends a second ledger entry.
type Service interface {
	CreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error)
	GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error)
	GetWalletByUser(ctx context.Context, userID uint) (*models.Wallet, error)

	Deposit(ctx context.Context, walletID uint, amountKobo int64, key string) (*models.Wallet, error)
	Withdraw(ctx context.Context, walletID uint, amountKobo int64, key string) (*models.Wallet, error)
	Transfer(ctx context.Context, senderWalletID, receiverWalletID uint, amountKobo int64, key string) (*TransferResult, error)
	ExternalTransfer(ctx context.Context, walletID uint, account *models.BankAccount, amountKobo int64, key string) (*models.Transaction, error)
}

// WalletCache is the read cache in front of wallet lookups. Mutating
// operations invalidate; they never write through.
type WalletCache interface {
	GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, walletID uint) error
}

// TransferInitiator is the outbound payment-provider call used by external
// transfers. It is only ever invoked outside the unit of work: validation
// happens before locks, initiation after commit.
type TransferInitiator interface {
	InitiateTransfer(ctx context.Context, amountKobo int64, bankCode, accountNumber, reference string) (string, error)
}
