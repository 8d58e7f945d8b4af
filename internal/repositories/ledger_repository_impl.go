package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kobo/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ExecuteInTransaction(fn func(tx LedgerRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}

func (r *ledgerRepository) CreateWallet(wallet *models.Wallet) error {
	if err := r.db.Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetWalletByID(id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.First(&wallet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletByUserID(userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) LockWallet(id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) LockWallets(ids []uint) (map[uint]*models.Wallet, error) {
	var wallets []*models.Wallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&wallets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallets: %w", err)
	}

	locked := make(map[uint]*models.Wallet, len(wallets))
	for _, w := range wallets {
		locked[w.ID] = w
	}
	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return nil, ErrWalletNotFound
		}
	}
	return locked, nil
}

func (r *ledgerRepository) UpdateWallet(wallet *models.Wallet) error {
	if err := r.db.Save(wallet).Error; err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	return nil
}

func (r *ledgerRepository) ListWallets() ([]*models.Wallet, error) {
	var wallets []*models.Wallet
	if err := r.db.Order("id ASC").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

func (r *ledgerRepository) CreateTransaction(entry *models.Transaction) error {
	if err := r.db.Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetTransactionByID(id uint) (*models.Transaction, error) {
	var entry models.Transaction
	if err := r.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &entry, nil
}

func (r *ledgerRepository) GetTransactionByKey(walletID uint, idempotencyKey string) (*models.Transaction, error) {
	var entry models.Transaction
	err := r.db.Where("wallet_id = ? AND idempotency_key = ?", walletID, idempotencyKey).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by key: %w", err)
	}
	return &entry, nil
}

func (r *ledgerRepository) GetTransactionByReference(reference string) (*models.Transaction, error) {
	var entry models.Transaction
	err := r.db.Where("transfer_reference = ?", reference).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}
	return &entry, nil
}

func (r *ledgerRepository) UpdateTransaction(entry *models.Transaction) error {
	if err := r.db.Save(entry).Error; err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) ListTransactionsByWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.Transaction, error) {
	var entries []models.Transaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) ListTransactionsByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	var entries []models.Transaction
	err := r.db.WithContext(ctx).
		Joins("JOIN wallets ON wallets.id = transactions.wallet_id").
		Where("wallets.user_id = ?", userID).
		Order("transactions.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user transactions: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) ListTransactionsBetween(walletID uint, from, to time.Time) ([]models.Transaction, error) {
	var entries []models.Transaction
	err := r.db.
		Where("wallet_id = ? AND created_at BETWEEN ? AND ?", walletID, from, to).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions between dates: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) ListAllTransactions(walletID uint) ([]models.Transaction, error) {
	var entries []models.Transaction
	err := r.db.
		Where("wallet_id = ?", walletID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) CreateWebhookEvent(event *models.WebhookEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		return fmt.Errorf("failed to create webhook event: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetWebhookEvent(provider, reference string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.Where("provider = ? AND reference = ?", provider, reference).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebhookEventNotFound
		}
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}
	return &event, nil
}
