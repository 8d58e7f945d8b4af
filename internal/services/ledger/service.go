package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"

	"kobo/internal/models"
	"kobo/internal/repositories"
	"kobo/internal/services/idempotency"
	"kobo/internal/services/paystack"

	"github.com/google/uuid"
)

type service struct {
	repo     repositories.LedgerRepository
	guard    *idempotency.Guard
	cache    WalletCache
	provider TransferInitiator
	config   Config
}

// NewService creates the transfer orchestrator.
func NewService(
	repo repositories.LedgerRepository,
	guard *idempotency.Guard,
	cache WalletCache,
	provider TransferInitiator,
	config Config,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if guard == nil {
		panic("idempotency guard is required")
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = defaultCurrency
	}

	return &service{
		repo:     repo,
		guard:    guard,
		cache:    cache,
		provider: provider,
		config:   config,
	}
}

func (s *service) CreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	if currency == "" {
		currency = s.config.DefaultCurrency
	}

	wallet := &models.Wallet{
		UserID:      userID,
		BalanceKobo: 0,
		Currency:    currency,
	}

	if err := s.repo.CreateWallet(wallet); err != nil {
		if s.guard.IsDuplicate(err) {
			return nil, ErrWalletExists
		}
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wallet, nil
}

func (s *service) GetWallet(ctx context.Context, walletID uint) (*models.Wallet, error) {
	if s.cache != nil {
		if wallet, err := s.cache.GetWallet(ctx, walletID); err == nil {
			return wallet, nil
		}
	}

	wallet, err := s.repo.GetWalletByID(walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if s.cache != nil {
		s.cache.SetWallet(ctx, wallet)
	}
	return wallet, nil
}

func (s *service) GetWalletByUser(ctx context.Context, userID uint) (*models.Wallet, error) {
	wallet, err := s.repo.GetWalletByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

func (s *service) Deposit(ctx context.Context, walletID uint, amountKobo int64, key string) (*models.Wallet, error) {
	if amountKobo <= 0 {
		return nil, ErrInvalidAmount
	}
	if key == "" {
		return nil, ErrMissingKey
	}

	// Fast path for retries; the unique index closes the race at commit.
	existing, err := s.guard.Existing(walletID, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}
	if existing != nil {
		return s.currentWallet(ctx, walletID)
	}

	var wallet *models.Wallet
	err = s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		w, err := tx.LockWallet(walletID)
		if err != nil {
			return err
		}

		w.BalanceKobo += amountKobo
		if err := tx.UpdateWallet(w); err != nil {
			return err
		}

		entry := &models.Transaction{
			WalletID:       w.ID,
			AmountKobo:     amountKobo,
			Type:           models.TransactionTypeDeposit,
			Status:         models.TransactionStatusSuccess,
			IdempotencyKey: key,
			OperationID:    uuid.NewString(),
			Currency:       w.Currency,
		}
		if err := tx.CreateTransaction(entry); err != nil {
			return err
		}

		wallet = w
		return nil
	})
	if err != nil {
		if s.guard.IsDuplicate(err) {
			// A concurrent identical request committed first; its result wins.
			return s.currentWallet(ctx, walletID)
		}
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}

	s.invalidate(ctx, walletID)
	return wallet, nil
}

func (s *service) Withdraw(ctx context.Context, walletID uint, amountKobo int64, key string) (*models.Wallet, error) {
	if amountKobo <= 0 {
		return nil, ErrInvalidAmount
	}
	if key == "" {
		return nil, ErrMissingKey
	}

	existing, err := s.guard.Existing(walletID, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}
	if existing != nil {
		return s.currentWallet(ctx, walletID)
	}

	var wallet *models.Wallet
	err = s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		w, err := tx.LockWallet(walletID)
		if err != nil {
			return err
		}

		// The funds check reads the locked row, never a stale pre-lock value.
		if w.BalanceKobo < amountKobo {
			return ErrInsufficientFunds
		}

		w.BalanceKobo -= amountKobo
		if err := tx.UpdateWallet(w); err != nil {
			return err
		}

		entry := &models.Transaction{
			WalletID:       w.ID,
			AmountKobo:     amountKobo,
			Type:           models.TransactionTypeWithdraw,
			Status:         models.TransactionStatusSuccess,
			IdempotencyKey: key,
			OperationID:    uuid.NewString(),
			Currency:       w.Currency,
		}
		if err := tx.CreateTransaction(entry); err != nil {
			return err
		}

		wallet = w
		return nil
	})
	if err != nil {
		if s.guard.IsDuplicate(err) {
			return s.currentWallet(ctx, walletID)
		}
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}

	s.invalidate(ctx, walletID)
	return wallet, nil
}

func (s *service) Transfer(ctx context.Context, senderWalletID, receiverWalletID uint, amountKobo int64, key string) (*TransferResult, error) {
	if amountKobo <= 0 {
		return nil, ErrInvalidAmount
	}
	if key == "" {
		return nil, ErrMissingKey
	}

	outKey := key + ":out"
	inKey := key + ":in"

	existing, err := s.guard.Existing(senderWalletID, outKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}
	if existing != nil {
		return s.transferResult(senderWalletID, receiverWalletID, outKey, inKey)
	}

	// Receiver existence is checked before any lock is taken.
	if _, err := s.repo.GetWalletByID(receiverWalletID); err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}

	operationID := uuid.NewString()
	ids := []uint{senderWalletID, receiverWalletID}
	if senderWalletID == receiverWalletID {
		// Self-transfer is allowed and nets to zero, but still records both legs.
		ids = ids[:1]
	}

	var result *TransferResult
	err = s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		locked, err := tx.LockWallets(ids)
		if err != nil {
			return err
		}

		sender := locked[senderWalletID]
		receiver := locked[receiverWalletID]

		if sender.BalanceKobo < amountKobo {
			return ErrInsufficientFunds
		}

		sender.BalanceKobo -= amountKobo
		receiver.BalanceKobo += amountKobo

		if err := tx.UpdateWallet(sender); err != nil {
			return err
		}
		if receiver != sender {
			if err := tx.UpdateWallet(receiver); err != nil {
				return err
			}
		}

		outLeg := &models.Transaction{
			WalletID:       sender.ID,
			AmountKobo:     amountKobo,
			Type:           models.TransactionTypeTransferOut,
			Status:         models.TransactionStatusSuccess,
			IdempotencyKey: outKey,
			OperationID:    operationID,
			Currency:       sender.Currency,
		}
		inLeg := &models.Transaction{
			WalletID:       receiver.ID,
			AmountKobo:     amountKobo,
			Type:           models.TransactionTypeTransferIn,
			Status:         models.TransactionStatusSuccess,
			IdempotencyKey: inKey,
			OperationID:    operationID,
			Currency:       receiver.Currency,
		}

		if err := tx.CreateTransaction(outLeg); err != nil {
			return err
		}
		if err := tx.CreateTransaction(inLeg); err != nil {
			return err
		}

		result = &TransferResult{
			Sender:      sender,
			Receiver:    receiver,
			OutLeg:      outLeg,
			InLeg:       inLeg,
			OperationID: operationID,
		}
		return nil
	})
	if err != nil {
		if s.guard.IsDuplicate(err) {
			return s.transferResult(senderWalletID, receiverWalletID, outKey, inKey)
		}
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}

	s.invalidate(ctx, senderWalletID)
	s.invalidate(ctx, receiverWalletID)
	return result, nil
}

func (s *service) ExternalTransfer(ctx context.Context, walletID uint, account *models.BankAccount, amountKobo int64, key string) (*models.Transaction, error) {
	if amountKobo <= 0 {
		return nil, ErrInvalidAmount
	}
	if key == "" {
		return nil, ErrMissingKey
	}

	existing, err := s.guard.Existing(walletID, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}
	if existing != nil {
		return existing, nil
	}

	reference := uuid.NewString()

	// Reserve funds and record intent in one atomic unit. The provider call
	// happens strictly after commit so no wallet lock is held across I/O.
	var entry *models.Transaction
	err = s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		w, err := tx.LockWallet(walletID)
		if err != nil {
			return err
		}

		if w.BalanceKobo < amountKobo {
			return ErrInsufficientFunds
		}

		w.BalanceKobo -= amountKobo
		if err := tx.UpdateWallet(w); err != nil {
			return err
		}

		entry = &models.Transaction{
			WalletID:          w.ID,
			AmountKobo:        amountKobo,
			Type:              models.TransactionTypeTransferOut,
			Status:            models.TransactionStatusPending,
			IdempotencyKey:    key,
			OperationID:       uuid.NewString(),
			TransferReference: &reference,
			Currency:          w.Currency,
			Metadata: models.JSON{
				"bank_code":      account.BankCode,
				"account_number": account.AccountNumber,
				"account_name":   account.AccountName,
			},
		}
		return tx.CreateTransaction(entry)
	})
	if err != nil {
		if s.guard.IsDuplicate(err) {
			if prior, lookupErr := s.guard.Existing(walletID, key); lookupErr == nil && prior != nil {
				return prior, nil
			}
		}
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}

	s.invalidate(ctx, walletID)

	if s.provider == nil {
		return entry, nil
	}

	_, err = s.provider.InitiateTransfer(ctx, amountKobo, account.BankCode, account.AccountNumber, reference)
	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, paystack.ErrTransferRejected):
		// Explicit rejection: compensate the reservation.
		if compErr := s.failReservation(ctx, entry); compErr != nil {
			log.Printf("failed to compensate rejected transfer %s: %v", reference, compErr)
			return entry, fmt.Errorf("%w: %v", ErrLedgerFailed, compErr)
		}
		return entry, err
	default:
		// Transport failure: outcome unknown. The reservation stays pending
		// and is settled by the provider webhook.
		log.Printf("transfer initiation outcome unknown for %s: %v", reference, err)
		return entry, nil
	}
}

// failReservation restores reserved funds and marks the pending entry
// failed, in one atomic unit. This is the compensating action for a
// provider-rejected external transfer.
func (s *service) failReservation(ctx context.Context, entry *models.Transaction) error {
	err := s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		w, err := tx.LockWallet(entry.WalletID)
		if err != nil {
			return err
		}

		w.BalanceKobo += entry.AmountKobo
		if err := tx.UpdateWallet(w); err != nil {
			return err
		}

		entry.Status = models.TransactionStatusFailed
		return tx.UpdateTransaction(entry)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, entry.WalletID)
	return nil
}

func (s *service) currentWallet(ctx context.Context, walletID uint) (*models.Wallet, error) {
	wallet, err := s.repo.GetWalletByID(walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}
	return wallet, nil
}

// transferResult rebuilds the result of a previously committed transfer
// from its two ledger legs.
func (s *service) transferResult(senderWalletID, receiverWalletID uint, outKey, inKey string) (*TransferResult, error) {
	outLeg, err := s.repo.GetTransactionByKey(senderWalletID, outKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}
	inLeg, err := s.repo.GetTransactionByKey(receiverWalletID, inKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}

	sender, err := s.repo.GetWalletByID(senderWalletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}
	receiver, err := s.repo.GetWalletByID(receiverWalletID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}

	return &TransferResult{
		Sender:      sender,
		Receiver:    receiver,
		OutLeg:      outLeg,
		InLeg:       inLeg,
		OperationID: outLeg.OperationID,
	}, nil
}

func (s *service) invalidate(ctx context.Context, walletID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateWallet(ctx, walletID); err != nil {
		log.Printf("failed to invalidate wallet cache %d: %v", walletID, err)
	}
}
