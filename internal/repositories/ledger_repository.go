package repositories

import (
	"context"
	"errors"
	"time"

	"kobo/internal/models"
)

var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrWebhookEventNotFound = errors.New("webhook event not found")
)

// LedgerRepository is the unit-of-work boundary for everything that touches
// wallet balances. Balance mutations and their backing ledger entries are
// always written through the same repository instance inside
// ExecuteInTransaction, so they commit or roll back together.
type LedgerRepository interface {
	// ExecuteInTransaction runs fn against a repository bound to a single
	// database transaction. Any error from fn rolls the whole unit back.
	ExecuteInTransaction(fn func(tx LedgerRepository) error) error

	// Wallet operations
	CreateWallet(wallet *models.Wallet) error
	GetWalletByID(id uint) (*models.Wallet, error)
	GetWalletByUserID(userID uint) (*models.Wallet, error)
	// LockWallet loads a wallet row FOR UPDATE. Only valid inside
	// ExecuteInTransaction.
	LockWallet(id uint) (*models.Wallet, error)
	// LockWallets locks several wallet rows FOR UPDATE in ascending id
	// order, which keeps concurrent transfers over the same pair of
	// wallets from deadlocking each other.
	LockWallets(ids []uint) (map[uint]*models.Wallet, error)
	UpdateWallet(wallet *models.Wallet) error
	ListWallets() ([]*models.Wallet, error)

	// Transaction (ledger entry) operations
	CreateTransaction(entry *models.Transaction) error
	GetTransactionByID(id uint) (*models.Transaction, error)
	GetTransactionByKey(walletID uint, idempotencyKey string) (*models.Transaction, error)
	GetTransactionByReference(reference string) (*models.Transaction, error)
	UpdateTransaction(entry *models.Transaction) error
	ListTransactionsByWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.Transaction, error)
	ListTransactionsByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error)
	ListTransactionsBetween(walletID uint, from, to time.Time) ([]models.Transaction, error)
	// ListAllTransactions returns a wallet's full history, oldest first.
	// Used by the audit engine to recompute balances.
	ListAllTransactions(walletID uint) ([]models.Transaction, error)

	// Webhook dedupe records
	CreateWebhookEvent(event *models.WebhookEvent) error
	GetWebhookEvent(provider, reference string) (*models.WebhookEvent, error)
}
