package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"kobo/internal/models"
	"kobo/internal/repositories"
	"kobo/internal/repositories/ledgertest"
	"kobo/internal/services/idempotency"
	"kobo/internal/services/paystack"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider records initiation calls and returns a scripted outcome.
type stubProvider struct {
	calls int
	err   error
}

func (p *stubProvider) InitiateTransfer(ctx context.Context, amountKobo int64, bankCode, accountNumber, reference string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return reference, nil
}

func newTestService(t *testing.T, provider TransferInitiator) (Service, *ledgertest.Ledger) {
	t.Helper()
	repo := ledgertest.NewLedger()
	svc := NewService(repo, idempotency.NewGuard(repo), nil, provider, Config{})
	return svc, repo
}

func seedWallet(t *testing.T, svc Service, userID uint, balanceKobo int64) *models.Wallet {
	t.Helper()
	wallet, err := svc.CreateWallet(context.Background(), userID, "")
	require.NoError(t, err)
	if balanceKobo > 0 {
		wallet, err = svc.Deposit(context.Background(), wallet.ID, balanceKobo, fmt.Sprintf("seed-%d", userID))
		require.NoError(t, err)
	}
	return wallet
}

func TestCreateWallet(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	wallet, err := svc.CreateWallet(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.BalanceKobo)
	assert.Equal(t, "NGN", wallet.Currency)

	t.Run("one wallet per user", func(t *testing.T) {
		_, err := svc.CreateWallet(ctx, 1, "")
		assert.ErrorIs(t, err, ErrWalletExists)
	})
}

func TestDeposit(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	wallet, err := svc.CreateWallet(ctx, 1, "")
	require.NoError(t, err)

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := svc.Deposit(ctx, wallet.ID, 0, "k0")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = svc.Deposit(ctx, wallet.ID, -500, "k0")
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("requires an idempotency key", func(t *testing.T) {
		_, err := svc.Deposit(ctx, wallet.ID, 1000, "")
		assert.ErrorIs(t, err, ErrMissingKey)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := svc.Deposit(ctx, 999, 1000, "k0")
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})

	t.Run("retries apply once, new keys apply again", func(t *testing.T) {
		got, err := svc.Deposit(ctx, wallet.ID, 1000, "k1")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), got.BalanceKobo)

		got, err = svc.Deposit(ctx, wallet.ID, 1000, "k1")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), got.BalanceKobo)

		got, err = svc.Deposit(ctx, wallet.ID, 1000, "k2")
		require.NoError(t, err)
		assert.Equal(t, int64(2000), got.BalanceKobo)

		entries, err := repo.ListAllTransactions(wallet.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		for _, e := range entries {
			assert.Equal(t, models.TransactionTypeDeposit, e.Type)
			assert.Equal(t, models.TransactionStatusSuccess, e.Status)
		}
	})
}

// staleKeyLookupRepo hides committed entries from key lookups, standing in
// for a concurrent writer that commits between the guard pre-check and this
// request's own transaction. Only the unique index can stop the double
// apply then.
type staleKeyLookupRepo struct {
	repositories.LedgerRepository
}

func (r *staleKeyLookupRepo) GetTransactionByKey(walletID uint, idempotencyKey string) (*models.Transaction, error) {
	return nil, repositories.ErrTransactionNotFound
}

func TestConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("racing identical deposits apply exactly once", func(t *testing.T) {
		svc, repo := newTestService(t, nil)
		wallet, err := svc.CreateWallet(ctx, 1, "")
		require.NoError(t, err)

		const workers = 16
		start := make(chan struct{})
		errs := make(chan error, workers)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := svc.Deposit(ctx, wallet.ID, 5000, "dup-key")
				errs <- err
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}

		current, err := repo.GetWalletByID(wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), current.BalanceKobo)

		entries, err := repo.ListAllTransactions(wallet.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.TransactionStatusSuccess, entries[0].Status)
		assert.Equal(t, "dup-key", entries[0].IdempotencyKey)
	})

	t.Run("racing identical transfers move funds exactly once", func(t *testing.T) {
		svc, repo := newTestService(t, nil)
		sender := seedWallet(t, svc, 1, 10_000)
		receiver := seedWallet(t, svc, 2, 0)

		const workers = 8
		start := make(chan struct{})
		errs := make(chan error, workers)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := svc.Transfer(ctx, sender.ID, receiver.ID, 4000, "dup-t")
				errs <- err
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}

		s, err := repo.GetWalletByID(sender.ID)
		require.NoError(t, err)
		r, err := repo.GetWalletByID(receiver.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(6000), s.BalanceKobo)
		assert.Equal(t, int64(4000), r.BalanceKobo)

		inEntries, err := repo.ListAllTransactions(receiver.ID)
		require.NoError(t, err)
		require.Len(t, inEntries, 1)
		assert.Equal(t, "dup-t:in", inEntries[0].IdempotencyKey)
	})

	t.Run("duplicate at commit time resolves to the winner", func(t *testing.T) {
		inner := ledgertest.NewLedger()
		stale := &staleKeyLookupRepo{LedgerRepository: inner}
		svc := NewService(stale, idempotency.NewGuard(stale), nil, nil, Config{})

		wallet, err := svc.CreateWallet(ctx, 1, "")
		require.NoError(t, err)

		got, err := svc.Deposit(ctx, wallet.ID, 5000, "k1")
		require.NoError(t, err)
		assert.Equal(t, int64(5000), got.BalanceKobo)

		// Pre-check cannot see the committed entry, so the retry reaches
		// the insert and loses on the unique index.
		got, err = svc.Deposit(ctx, wallet.ID, 5000, "k1")
		require.NoError(t, err)
		assert.Equal(t, int64(5000), got.BalanceKobo)

		entries, err := inner.ListAllTransactions(wallet.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestWithdraw(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	wallet := seedWallet(t, svc, 1, 5000)

	t.Run("debits the balance", func(t *testing.T) {
		got, err := svc.Withdraw(ctx, wallet.ID, 2000, "w1")
		require.NoError(t, err)
		assert.Equal(t, int64(3000), got.BalanceKobo)
	})

	t.Run("retry returns the settled balance without a second debit", func(t *testing.T) {
		got, err := svc.Withdraw(ctx, wallet.ID, 2000, "w1")
		require.NoError(t, err)
		assert.Equal(t, int64(3000), got.BalanceKobo)
	})

	t.Run("insufficient funds leaves no trace", func(t *testing.T) {
		before, err := repo.ListAllTransactions(wallet.ID)
		require.NoError(t, err)

		_, err = svc.Withdraw(ctx, wallet.ID, 1_000_000, "w2")
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		after, err := repo.ListAllTransactions(wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, len(before), len(after))

		current, err := repo.GetWalletByID(wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3000), current.BalanceKobo)
	})
}

func TestTransfer(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	sender := seedWallet(t, svc, 1, 10_000)
	receiver := seedWallet(t, svc, 2, 0)

	t.Run("moves funds atomically", func(t *testing.T) {
		result, err := svc.Transfer(ctx, sender.ID, receiver.ID, 4000, "t1")
		require.NoError(t, err)

		assert.Equal(t, int64(6000), result.Sender.BalanceKobo)
		assert.Equal(t, int64(4000), result.Receiver.BalanceKobo)

		assert.Equal(t, models.TransactionTypeTransferOut, result.OutLeg.Type)
		assert.Equal(t, models.TransactionTypeTransferIn, result.InLeg.Type)
		assert.Equal(t, "t1:out", result.OutLeg.IdempotencyKey)
		assert.Equal(t, "t1:in", result.InLeg.IdempotencyKey)

		// Both legs carry the same operation id.
		assert.NotEmpty(t, result.OperationID)
		assert.Equal(t, result.OperationID, result.OutLeg.OperationID)
		assert.Equal(t, result.OperationID, result.InLeg.OperationID)
	})

	t.Run("retry replays the committed result", func(t *testing.T) {
		result, err := svc.Transfer(ctx, sender.ID, receiver.ID, 4000, "t1")
		require.NoError(t, err)
		assert.Equal(t, int64(6000), result.Sender.BalanceKobo)
		assert.Equal(t, int64(4000), result.Receiver.BalanceKobo)

		outEntries, err := repo.ListAllTransactions(sender.ID)
		require.NoError(t, err)
		var outLegs int
		for _, e := range outEntries {
			if e.Type == models.TransactionTypeTransferOut {
				outLegs++
			}
		}
		assert.Equal(t, 1, outLegs)
	})

	t.Run("insufficient funds rolls everything back", func(t *testing.T) {
		_, err := svc.Transfer(ctx, sender.ID, receiver.ID, 1_000_000, "t2")
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		s, err := repo.GetWalletByID(sender.ID)
		require.NoError(t, err)
		r, err := repo.GetWalletByID(receiver.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(6000), s.BalanceKobo)
		assert.Equal(t, int64(4000), r.BalanceKobo)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		_, err := svc.Transfer(ctx, sender.ID, 999, 100, "t3")
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})

	t.Run("self transfer nets to zero but records both legs", func(t *testing.T) {
		result, err := svc.Transfer(ctx, sender.ID, sender.ID, 1000, "t4")
		require.NoError(t, err)
		assert.Equal(t, int64(6000), result.Sender.BalanceKobo)
		assert.Equal(t, result.OutLeg.OperationID, result.InLeg.OperationID)
		assert.NotEqual(t, result.OutLeg.ID, result.InLeg.ID)
	})
}

func TestExternalTransfer(t *testing.T) {
	account := &models.BankAccount{
		UserID:        1,
		BankCode:      "058",
		AccountNumber: "0123456789",
		AccountName:   "ADA OBI",
	}
	ctx := context.Background()

	t.Run("reserves funds as a pending debit", func(t *testing.T) {
		provider := &stubProvider{}
		svc, repo := newTestService(t, provider)
		wallet := seedWallet(t, svc, 1, 10_000)

		entry, err := svc.ExternalTransfer(ctx, wallet.ID, account, 4000, "x1")
		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusPending, entry.Status)
		assert.Equal(t, models.TransactionTypeTransferOut, entry.Type)
		require.NotNil(t, entry.TransferReference)
		assert.Equal(t, 1, provider.calls)

		current, err := repo.GetWalletByID(wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(6000), current.BalanceKobo)
	})

	t.Run("retry does not reinitiate with the provider", func(t *testing.T) {
		provider := &stubProvider{}
		svc, repo := newTestService(t, provider)
		wallet := seedWallet(t, svc, 1, 10_000)

		first, err := svc.ExternalTransfer(ctx, wallet.ID, account, 4000, "x1")
		require.NoError(t, err)
		second, err := svc.ExternalTransfer(ctx, wallet.ID, account, 4000, "x1")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, provider.calls)

		current, err := repo.GetWalletByID(wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(6000), current.BalanceKobo)
	})

	t.Run("provider rejection compensates the reservation", func(t *testing.T) {
		provider := &stubProvider{err: paystack.ErrTransferRejected}
		svc, repo := newTestService(t, provider)
		wallet := seedWallet(t, svc, 1, 10_000)

		entry, err := svc.ExternalTransfer(ctx, wallet.ID, account, 4000, "x1")
		assert.ErrorIs(t, err, paystack.ErrTransferRejected)
		require.NotNil(t, entry)

		settled, err := repo.GetTransactionByID(entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusFailed, settled.Status)

		current, err := repo.GetWalletByID(wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10_000), current.BalanceKobo)
	})

	t.Run("transport failure leaves the reservation pending", func(t *testing.T) {
		provider := &stubProvider{err: errors.New("connection refused")}
		svc, repo := newTestService(t, provider)
		wallet := seedWallet(t, svc, 1, 10_000)

		entry, err := svc.ExternalTransfer(ctx, wallet.ID, account, 4000, "x1")
		require.NoError(t, err)

		pending, err := repo.GetTransactionByID(entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TransactionStatusPending, pending.Status)

		current, err := repo.GetWalletByID(wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(6000), current.BalanceKobo)
	})

	t.Run("insufficient funds never reaches the provider", func(t *testing.T) {
		provider := &stubProvider{}
		svc, _ := newTestService(t, provider)
		wallet := seedWallet(t, svc, 1, 1000)

		_, err := svc.ExternalTransfer(ctx, wallet.ID, account, 4000, "x1")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, 0, provider.calls)
	})
}
