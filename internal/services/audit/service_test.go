package audit

import (
	"context"
	"testing"

	"kobo/internal/models"
	"kobo/internal/repositories/ledgertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWallet(t *testing.T, repo *ledgertest.Ledger, userID uint, balanceKobo int64) *models.Wallet {
	t.Helper()
	wallet := &models.Wallet{UserID: userID, BalanceKobo: balanceKobo, Currency: "NGN"}
	require.NoError(t, repo.CreateWallet(wallet))
	return wallet
}

func addEntry(t *testing.T, repo *ledgertest.Ledger, walletID uint, amountKobo int64, txType, status, key string) {
	t.Helper()
	require.NoError(t, repo.CreateTransaction(&models.Transaction{
		WalletID:       walletID,
		AmountKobo:     amountKobo,
		Type:           txType,
		Status:         status,
		IdempotencyKey: key,
		OperationID:    key,
		Currency:       "NGN",
	}))
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown wallet", func(t *testing.T) {
		svc := NewService(ledgertest.NewLedger())
		_, err := svc.Verify(ctx, 999)
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})

	t.Run("consistent history", func(t *testing.T) {
		repo := ledgertest.NewLedger()
		wallet := seedWallet(t, repo, 1, 3000)
		addEntry(t, repo, wallet.ID, 5000, models.TransactionTypeDeposit, models.TransactionStatusSuccess, "d1")
		addEntry(t, repo, wallet.ID, 2000, models.TransactionTypeWithdraw, models.TransactionStatusSuccess, "w1")

		report, err := NewService(repo).Verify(ctx, wallet.ID)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Equal(t, int64(3000), report.ComputedKobo)
		assert.Equal(t, int64(0), report.DifferenceKobo)
		assert.Equal(t, 2, report.TransactionCount)
	})

	t.Run("pending debits count as reserved funds", func(t *testing.T) {
		repo := ledgertest.NewLedger()
		wallet := seedWallet(t, repo, 1, 1000)
		addEntry(t, repo, wallet.ID, 5000, models.TransactionTypeDeposit, models.TransactionStatusSuccess, "d1")
		addEntry(t, repo, wallet.ID, 4000, models.TransactionTypeTransferOut, models.TransactionStatusPending, "x1")

		report, err := NewService(repo).Verify(ctx, wallet.ID)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Equal(t, int64(1000), report.ComputedKobo)
	})

	t.Run("failed and reversed entries never count", func(t *testing.T) {
		repo := ledgertest.NewLedger()
		wallet := seedWallet(t, repo, 1, 5000)
		addEntry(t, repo, wallet.ID, 5000, models.TransactionTypeDeposit, models.TransactionStatusSuccess, "d1")
		addEntry(t, repo, wallet.ID, 4000, models.TransactionTypeTransferOut, models.TransactionStatusFailed, "x1")
		addEntry(t, repo, wallet.ID, 2000, models.TransactionTypeWithdraw, models.TransactionStatusReversed, "w1")
		addEntry(t, repo, wallet.ID, 9000, models.TransactionTypeDeposit, models.TransactionStatusPending, "d2")

		report, err := NewService(repo).Verify(ctx, wallet.ID)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Equal(t, int64(5000), report.ComputedKobo)
	})

	t.Run("detects drift", func(t *testing.T) {
		repo := ledgertest.NewLedger()
		wallet := seedWallet(t, repo, 1, 9999)
		addEntry(t, repo, wallet.ID, 5000, models.TransactionTypeDeposit, models.TransactionStatusSuccess, "d1")

		report, err := NewService(repo).Verify(ctx, wallet.ID)
		require.NoError(t, err)
		assert.False(t, report.Valid)
		assert.Equal(t, int64(9999), report.StoredKobo)
		assert.Equal(t, int64(5000), report.ComputedKobo)
		assert.Equal(t, int64(-4999), report.DifferenceKobo)
	})
}

func TestAuditAll(t *testing.T) {
	repo := ledgertest.NewLedger()
	ctx := context.Background()

	clean := seedWallet(t, repo, 1, 5000)
	addEntry(t, repo, clean.ID, 5000, models.TransactionTypeDeposit, models.TransactionStatusSuccess, "d1")

	drifted := seedWallet(t, repo, 2, 100)
	addEntry(t, repo, drifted.ID, 5000, models.TransactionTypeDeposit, models.TransactionStatusSuccess, "d2")

	summary, err := NewService(repo).AuditAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalWallets)
	assert.Equal(t, 1, summary.MismatchedWallets)
	require.Len(t, summary.Details, 1)
	assert.Equal(t, drifted.ID, summary.Details[0].WalletID)
}

func TestRepair(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrites the stored balance with the ledger sum", func(t *testing.T) {
		repo := ledgertest.NewLedger()
		wallet := seedWallet(t, repo, 1, 100)
		addEntry(t, repo, wallet.ID, 5000, models.TransactionTypeDeposit, models.TransactionStatusSuccess, "d1")

		report, err := NewService(repo).Repair(ctx, wallet.ID)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Equal(t, int64(5000), report.StoredKobo)

		current, err := repo.GetWalletByID(wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), current.BalanceKobo)
	})

	t.Run("valid wallet is untouched", func(t *testing.T) {
		repo := ledgertest.NewLedger()
		wallet := seedWallet(t, repo, 1, 5000)
		addEntry(t, repo, wallet.ID, 5000, models.TransactionTypeDeposit, models.TransactionStatusSuccess, "d1")

		report, err := NewService(repo).Repair(ctx, wallet.ID)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Equal(t, int64(0), report.DifferenceKobo)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := NewService(ledgertest.NewLedger()).Repair(ctx, 42)
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})
}
