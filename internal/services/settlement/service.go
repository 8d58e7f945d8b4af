// Package settlement consumes asynchronous payment-provider callbacks and
// advances pending ledger state: deposit confirmations credit wallets,
// transfer confirmations settle pending external transfers, and transfer
// failures restore reserved funds.
//
// Callbacks are deduplicated by (provider, reference) independently of
// client idempotency keys. The dedupe row and the ledger effect commit in
// the same unit of work, so a crash can never apply one without the other.
package settlement

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"kobo/internal/models"
	"kobo/internal/repositories"
	"kobo/internal/services/idempotency"

	"github.com/google/uuid"
)

// Provider is the name recorded on dedupe rows.
const Provider = "paystack"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook payload")
)

// errSkipEvent aborts the unit of work without recording a dedupe row, so
// the provider's next retry gets another chance (e.g. a deposit for a user
// who has not registered yet).
var errSkipEvent = errors.New("event skipped")

// WalletInvalidator evicts a wallet from the read cache after settlement
// mutates its balance.
type WalletInvalidator interface {
	InvalidateWallet(ctx context.Context, walletID uint) error
}

type Service interface {
	// HandleEvent verifies, deduplicates, and applies one provider callback.
	// It returns ErrInvalidSignature without writing anything if the
	// signature does not match the raw body.
	HandleEvent(ctx context.Context, body []byte, signature string) (*Ack, error)
}

type service struct {
	repo   repositories.LedgerRepository
	users  repositories.UserRepository
	guard  *idempotency.Guard
	cache  WalletInvalidator
	secret []byte
}

func NewService(
	repo repositories.LedgerRepository,
	users repositories.UserRepository,
	guard *idempotency.Guard,
	cache WalletInvalidator,
	secret string,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if users == nil {
		panic("user repo is required")
	}
	if guard == nil {
		panic("idempotency guard is required")
	}
	if secret == "" {
		panic("webhook secret is required")
	}

	return &service{
		repo:   repo,
		users:  users,
		guard:  guard,
		cache:  cache,
		secret: []byte(secret),
	}
}

func (s *service) HandleEvent(ctx context.Context, body []byte, signature string) (*Ack, error) {
	if !s.verifySignature(body, signature) {
		return nil, ErrInvalidSignature
	}

	var event providerEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	kind := kindOf(event.Event)
	if event.Data.Reference == "" {
		// Nothing to dedupe on; acknowledge so the provider stops retrying.
		return &Ack{Status: AckIgnored, Message: "event has no reference"}, nil
	}

	if existing, err := s.repo.GetWebhookEvent(Provider, event.Data.Reference); err == nil && existing != nil {
		return &Ack{Status: AckOK, Message: "event already processed"}, nil
	} else if err != nil && !errors.Is(err, repositories.ErrWebhookEventNotFound) {
		return nil, fmt.Errorf("failed to check webhook event: %w", err)
	}

	var walletID uint
	err := s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		record := &models.WebhookEvent{
			Provider:   Provider,
			Event:      event.Event,
			Reference:  event.Data.Reference,
			Payload:    string(body),
			ReceivedAt: time.Now().UTC(),
		}
		if err := tx.CreateWebhookEvent(record); err != nil {
			return err
		}

		switch kind {
		case eventChargeSuccess:
			id, err := s.applyDeposit(tx, &event)
			walletID = id
			return err
		case eventTransferSuccess:
			id, err := s.applyTransferSuccess(tx, event.Data.Reference)
			walletID = id
			return err
		case eventTransferFailed, eventTransferReversed:
			id, err := s.applyTransferFailed(tx, event.Data.Reference)
			walletID = id
			return err
		case eventUnknown:
			// Recorded for dedupe, otherwise ignored.
			return nil
		}
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, errSkipEvent):
		return &Ack{Status: AckIgnored, Message: "event not applicable"}, nil
	case s.guard.IsDuplicate(err):
		// Concurrent delivery of the same event; the first one won.
		return &Ack{Status: AckOK, Message: "event already processed"}, nil
	default:
		return nil, fmt.Errorf("failed to process webhook event: %w", err)
	}

	if walletID != 0 && s.cache != nil {
		if cacheErr := s.cache.InvalidateWallet(ctx, walletID); cacheErr != nil {
			log.Printf("failed to invalidate wallet cache %d: %v", walletID, cacheErr)
		}
	}

	if kind == eventUnknown {
		return &Ack{Status: AckIgnored, Message: fmt.Sprintf("event %s not processed", event.Event)}, nil
	}
	return &Ack{Status: AckSuccess, Message: "event processed"}, nil
}

// verifySignature recomputes the HMAC-SHA512 digest of the raw body and
// compares it to the provided header value in constant time.
func (s *service) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, s.secret)
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(signature))
}

// applyDeposit credits a provider-confirmed deposit. The wallet is created
// on the fly if the user has none yet; the deposit entry is keyed by the
// provider reference.
func (s *service) applyDeposit(tx repositories.LedgerRepository, event *providerEvent) (uint, error) {
	if event.Data.AmountKobo <= 0 || event.Data.Customer.Email == "" {
		return 0, errSkipEvent
	}

	user, err := s.users.GetByEmail(event.Data.Customer.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return 0, errSkipEvent
		}
		return 0, err
	}

	wallet, err := tx.GetWalletByUserID(user.ID)
	if err != nil {
		if !errors.Is(err, repositories.ErrWalletNotFound) {
			return 0, err
		}
		wallet = &models.Wallet{UserID: user.ID, Currency: "NGN"}
		if err := tx.CreateWallet(wallet); err != nil {
			return 0, err
		}
	}

	locked, err := tx.LockWallet(wallet.ID)
	if err != nil {
		return 0, err
	}

	// Belt and braces on top of the webhook dedupe: the provider reference
	// doubles as the idempotency key on the deposit entry.
	if existing, err := tx.GetTransactionByKey(locked.ID, event.Data.Reference); err == nil && existing != nil {
		return locked.ID, nil
	} else if err != nil && !errors.Is(err, repositories.ErrTransactionNotFound) {
		return 0, err
	}

	locked.BalanceKobo += event.Data.AmountKobo
	if err := tx.UpdateWallet(locked); err != nil {
		return 0, err
	}

	entry := &models.Transaction{
		WalletID:       locked.ID,
		AmountKobo:     event.Data.AmountKobo,
		Type:           models.TransactionTypeDeposit,
		Status:         models.TransactionStatusSuccess,
		IdempotencyKey: event.Data.Reference,
		OperationID:    uuid.NewString(),
		Currency:       locked.Currency,
	}
	if err := tx.CreateTransaction(entry); err != nil {
		return 0, err
	}

	return locked.ID, nil
}

func (s *service) applyTransferSuccess(tx repositories.LedgerRepository, reference string) (uint, error) {
	entry, err := tx.GetTransactionByReference(reference)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return 0, errSkipEvent
		}
		return 0, err
	}

	if entry.Status != models.TransactionStatusPending {
		// Already settled; nothing further to apply.
		return 0, nil
	}

	entry.Status = models.TransactionStatusSuccess
	if err := tx.UpdateTransaction(entry); err != nil {
		return 0, err
	}
	return entry.WalletID, nil
}

// applyTransferFailed settles a rejected external transfer: the pending
// entry becomes failed and the reserved amount is credited back to the
// sender under lock. The failed entry no longer counts against the wallet,
// so the audit sum stays consistent without a second ledger row.
func (s *service) applyTransferFailed(tx repositories.LedgerRepository, reference string) (uint, error) {
	entry, err := tx.GetTransactionByReference(reference)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return 0, errSkipEvent
		}
		return 0, err
	}

	if entry.Status != models.TransactionStatusPending {
		return 0, nil
	}

	wallet, err := tx.LockWallet(entry.WalletID)
	if err != nil {
		return 0, err
	}

	wallet.BalanceKobo += entry.AmountKobo
	if err := tx.UpdateWallet(wallet); err != nil {
		return 0, err
	}

	entry.Status = models.TransactionStatusFailed
	if err := tx.UpdateTransaction(entry); err != nil {
		return 0, err
	}
	return wallet.ID, nil
}
