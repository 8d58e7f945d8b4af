package idempotency

import (
	"errors"
	"testing"

	"kobo/internal/models"
	"kobo/internal/repositories/ledgertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestExisting(t *testing.T) {
	repo := ledgertest.NewLedger()
	guard := NewGuard(repo)

	wallet := &models.Wallet{UserID: 1, Currency: "NGN"}
	require.NoError(t, repo.CreateWallet(wallet))

	t.Run("unseen key", func(t *testing.T) {
		entry, err := guard.Existing(wallet.ID, "k1")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("returns the committed entry", func(t *testing.T) {
		require.NoError(t, repo.CreateTransaction(&models.Transaction{
			WalletID:       wallet.ID,
			AmountKobo:     1000,
			Type:           models.TransactionTypeDeposit,
			Status:         models.TransactionStatusSuccess,
			IdempotencyKey: "k1",
			OperationID:    "op-1",
			Currency:       "NGN",
		}))

		entry, err := guard.Existing(wallet.ID, "k1")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, int64(1000), entry.AmountKobo)
	})

	t.Run("keys are scoped per wallet", func(t *testing.T) {
		other := &models.Wallet{UserID: 2, Currency: "NGN"}
		require.NoError(t, repo.CreateWallet(other))

		entry, err := guard.Existing(other.ID, "k1")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})
}

func TestIsDuplicate(t *testing.T) {
	guard := NewGuard(ledgertest.NewLedger())

	assert.True(t, guard.IsDuplicate(gorm.ErrDuplicatedKey))
	assert.True(t, guard.IsDuplicate(errors.Join(errors.New("wrapped"), gorm.ErrDuplicatedKey)))
	assert.False(t, guard.IsDuplicate(errors.New("other")))
	assert.False(t, guard.IsDuplicate(nil))
}
