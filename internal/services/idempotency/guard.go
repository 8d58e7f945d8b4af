// Package idempotency deduplicates client-initiated ledger operations by
// (wallet, idempotency key). The pre-check is a fast path for retries; the
// race between two identical in-flight requests is closed by the unique
// index on (wallet_id, idempotency_key), which surfaces at commit time as
// gorm.ErrDuplicatedKey.
package idempotency

import (
	"errors"

	"kobo/internal/models"
	"kobo/internal/repositories"

	"gorm.io/gorm"
)

type Guard struct {
	repo repositories.LedgerRepository
}

func NewGuard(repo repositories.LedgerRepository) *Guard {
	return &Guard{repo: repo}
}

// Existing returns the previously committed transaction for (walletID, key),
// or nil if the key has never been used on that wallet. Callers must run
// this before acquiring any wallet lock.
func (g *Guard) Existing(walletID uint, key string) (*models.Transaction, error) {
	entry, err := g.repo.GetTransactionByKey(walletID, key)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// IsDuplicate reports whether err is a commit-time uniqueness violation.
// Such an error means a concurrent identical request won the race; the
// caller discards its own mutation and returns the winner's result.
func (g *Guard) IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
