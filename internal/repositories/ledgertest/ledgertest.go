// Package ledgertest provides in-memory repository fakes for service tests.
// The ledger fake enforces the same uniqueness rules as the real schema
// (wallet per user, (wallet_id, idempotency_key), transfer reference,
// (provider, reference)) and gives ExecuteInTransaction real rollback
// semantics by running each unit of work against a copy of the state.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"kobo/internal/models"
	"kobo/internal/repositories"

	"gorm.io/gorm"
)

type state struct {
	wallets      map[uint]*models.Wallet
	entries      map[uint]*models.Transaction
	events       map[uint]*models.WebhookEvent
	nextWalletID uint
	nextEntryID  uint
	nextEventID  uint
}

func newState() *state {
	return &state{
		wallets:      make(map[uint]*models.Wallet),
		entries:      make(map[uint]*models.Transaction),
		events:       make(map[uint]*models.WebhookEvent),
		nextWalletID: 1,
		nextEntryID:  1,
		nextEventID:  1,
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextWalletID = s.nextWalletID
	c.nextEntryID = s.nextEntryID
	c.nextEventID = s.nextEventID
	for id, w := range s.wallets {
		cp := *w
		c.wallets[id] = &cp
	}
	for id, e := range s.entries {
		cp := *e
		if e.TransferReference != nil {
			ref := *e.TransferReference
			cp.TransferReference = &ref
		}
		c.entries[id] = &cp
	}
	for id, ev := range s.events {
		cp := *ev
		c.events[id] = &cp
	}
	return c
}

// Ledger is an in-memory repositories.LedgerRepository.
type Ledger struct {
	mu sync.Mutex
	st *state

	// tx is non-nil when this instance is bound to an open unit of work.
	tx *state
}

// NewLedger returns an empty in-memory ledger repository.
func NewLedger() *Ledger {
	return &Ledger{st: newState()}
}

func (l *Ledger) state() *state {
	if l.tx != nil {
		return l.tx
	}
	return l.st
}

func (l *Ledger) ExecuteInTransaction(fn func(tx repositories.LedgerRepository) error) error {
	if l.tx != nil {
		// Already inside a unit of work; reuse it.
		return fn(l)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	work := l.st.clone()
	if err := fn(&Ledger{st: work, tx: work}); err != nil {
		return err
	}
	l.st = work
	return nil
}

func (l *Ledger) lockRoot() func() {
	if l.tx != nil {
		return func() {}
	}
	l.mu.Lock()
	return l.mu.Unlock
}

func (l *Ledger) CreateWallet(wallet *models.Wallet) error {
	unlock := l.lockRoot()
	defer unlock()

	st := l.state()
	for _, w := range st.wallets {
		if w.UserID == wallet.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	wallet.ID = st.nextWalletID
	st.nextWalletID++
	now := time.Now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	cp := *wallet
	st.wallets[wallet.ID] = &cp
	return nil
}

func (l *Ledger) GetWalletByID(id uint) (*models.Wallet, error) {
	unlock := l.lockRoot()
	defer unlock()

	w, ok := l.state().wallets[id]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (l *Ledger) GetWalletByUserID(userID uint) (*models.Wallet, error) {
	unlock := l.lockRoot()
	defer unlock()

	for _, w := range l.state().wallets {
		if w.UserID == userID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, repositories.ErrWalletNotFound
}

func (l *Ledger) LockWallet(id uint) (*models.Wallet, error) {
	return l.GetWalletByID(id)
}

func (l *Ledger) LockWallets(ids []uint) (map[uint]*models.Wallet, error) {
	out := make(map[uint]*models.Wallet, len(ids))
	for _, id := range ids {
		w, err := l.GetWalletByID(id)
		if err != nil {
			return nil, err
		}
		out[id] = w
	}
	return out, nil
}

func (l *Ledger) UpdateWallet(wallet *models.Wallet) error {
	unlock := l.lockRoot()
	defer unlock()

	st := l.state()
	if _, ok := st.wallets[wallet.ID]; !ok {
		return repositories.ErrWalletNotFound
	}
	wallet.UpdatedAt = time.Now()
	cp := *wallet
	st.wallets[wallet.ID] = &cp
	return nil
}

func (l *Ledger) ListWallets() ([]*models.Wallet, error) {
	unlock := l.lockRoot()
	defer unlock()

	st := l.state()
	out := make([]*models.Wallet, 0, len(st.wallets))
	for _, w := range st.wallets {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *Ledger) CreateTransaction(entry *models.Transaction) error {
	unlock := l.lockRoot()
	defer unlock()

	st := l.state()
	for _, e := range st.entries {
		if e.WalletID == entry.WalletID && e.IdempotencyKey == entry.IdempotencyKey {
			return gorm.ErrDuplicatedKey
		}
		if e.TransferReference != nil && entry.TransferReference != nil &&
			*e.TransferReference == *entry.TransferReference {
			return gorm.ErrDuplicatedKey
		}
	}
	entry.ID = st.nextEntryID
	st.nextEntryID++
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	cp := *entry
	st.entries[entry.ID] = &cp
	return nil
}

func (l *Ledger) GetTransactionByID(id uint) (*models.Transaction, error) {
	unlock := l.lockRoot()
	defer unlock()

	e, ok := l.state().entries[id]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	cp := *e
	return &cp, nil
}

func (l *Ledger) GetTransactionByKey(walletID uint, idempotencyKey string) (*models.Transaction, error) {
	unlock := l.lockRoot()
	defer unlock()

	for _, e := range l.state().entries {
		if e.WalletID == walletID && e.IdempotencyKey == idempotencyKey {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (l *Ledger) GetTransactionByReference(reference string) (*models.Transaction, error) {
	unlock := l.lockRoot()
	defer unlock()

	for _, e := range l.state().entries {
		if e.TransferReference != nil && *e.TransferReference == reference {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (l *Ledger) UpdateTransaction(entry *models.Transaction) error {
	unlock := l.lockRoot()
	defer unlock()

	st := l.state()
	if _, ok := st.entries[entry.ID]; !ok {
		return repositories.ErrTransactionNotFound
	}
	entry.UpdatedAt = time.Now()
	cp := *entry
	st.entries[entry.ID] = &cp
	return nil
}

func (l *Ledger) ListTransactionsByWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.Transaction, error) {
	all, err := l.ListAllTransactions(walletID)
	if err != nil {
		return nil, err
	}
	// Newest first, like the real query.
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (l *Ledger) ListTransactionsByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	wallet, err := l.GetWalletByUserID(userID)
	if err != nil {
		return nil, err
	}
	return l.ListTransactionsByWallet(ctx, wallet.ID, limit, offset)
}

func (l *Ledger) ListTransactionsBetween(walletID uint, from, to time.Time) ([]models.Transaction, error) {
	all, err := l.ListAllTransactions(walletID)
	if err != nil {
		return nil, err
	}
	var out []models.Transaction
	for _, e := range all {
		if !e.CreatedAt.Before(from) && !e.CreatedAt.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *Ledger) ListAllTransactions(walletID uint) ([]models.Transaction, error) {
	unlock := l.lockRoot()
	defer unlock()

	var out []models.Transaction
	for _, e := range l.state().entries {
		if e.WalletID == walletID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *Ledger) CreateWebhookEvent(event *models.WebhookEvent) error {
	unlock := l.lockRoot()
	defer unlock()

	st := l.state()
	for _, ev := range st.events {
		if ev.Provider == event.Provider && ev.Reference == event.Reference {
			return gorm.ErrDuplicatedKey
		}
	}
	event.ID = st.nextEventID
	st.nextEventID++
	cp := *event
	st.events[event.ID] = &cp
	return nil
}

func (l *Ledger) GetWebhookEvent(provider, reference string) (*models.WebhookEvent, error) {
	unlock := l.lockRoot()
	defer unlock()

	for _, ev := range l.state().events {
		if ev.Provider == provider && ev.Reference == reference {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, repositories.ErrWebhookEventNotFound
}

// WebhookEventCount reports how many dedupe rows have been committed.
func (l *Ledger) WebhookEventCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.st.events)
}

// Users is an in-memory repositories.UserRepository.
type Users struct {
	mu     sync.Mutex
	users  map[uint]*models.User
	nextID uint
}

func NewUsers() *Users {
	return &Users{users: make(map[uint]*models.User), nextID: 1}
}

func (u *Users) Create(user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, existing := range u.users {
		if existing.Email == user.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	user.ID = u.nextID
	u.nextID++
	cp := *user
	u.users[user.ID] = &cp
	return nil
}

func (u *Users) GetByID(id uint) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	user, ok := u.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (u *Users) GetByEmail(email string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, user := range u.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (u *Users) Update(user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	cp := *user
	u.users[user.ID] = &cp
	return nil
}
