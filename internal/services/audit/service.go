// Package audit recomputes wallet balances from the transaction log and
// reports drift against the stored counter. Repair trusts the ledger over
// the stored balance; it is a manual, admin-only operation and never runs
// on the hot path.
package audit

import (
	"context"
	"errors"
	"fmt"

	"kobo/internal/models"
	"kobo/internal/repositories"
)

var ErrWalletNotFound = errors.New("wallet not found")

// Report is the outcome of recomputing one wallet's balance.
type Report struct {
	WalletID         uint  `json:"wallet_id"`
	StoredKobo       int64 `json:"stored_balance_kobo"`
	ComputedKobo     int64 `json:"calculated_balance_kobo"`
	DifferenceKobo   int64 `json:"difference_kobo"`
	Valid            bool  `json:"valid"`
	TransactionCount int   `json:"transaction_count"`
}

// Summary aggregates an audit run over every wallet.
type Summary struct {
	TotalWallets      int      `json:"total_wallets"`
	MismatchedWallets int      `json:"mismatched_wallets"`
	Details           []Report `json:"details"`
}

type Service interface {
	Verify(ctx context.Context, walletID uint) (*Report, error)
	AuditAll(ctx context.Context) (*Summary, error)
	// Repair overwrites the stored balance with the ledger-computed value.
	Repair(ctx context.Context, walletID uint) (*Report, error)
}

type service struct {
	repo repositories.LedgerRepository
}

func NewService(repo repositories.LedgerRepository) Service {
	if repo == nil {
		panic("repo is required")
	}
	return &service{repo: repo}
}

func (s *service) Verify(ctx context.Context, walletID uint) (*Report, error) {
	wallet, err := s.repo.GetWalletByID(walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	entries, err := s.repo.ListAllTransactions(walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	return buildReport(wallet, entries), nil
}

func (s *service) AuditAll(ctx context.Context) (*Summary, error) {
	wallets, err := s.repo.ListWallets()
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	summary := &Summary{TotalWallets: len(wallets)}
	for _, wallet := range wallets {
		entries, err := s.repo.ListAllTransactions(wallet.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions for wallet %d: %w", wallet.ID, err)
		}

		report := buildReport(wallet, entries)
		if !report.Valid {
			summary.MismatchedWallets++
			summary.Details = append(summary.Details, *report)
		}
	}
	return summary, nil
}

func (s *service) Repair(ctx context.Context, walletID uint) (*Report, error) {
	var report *Report
	err := s.repo.ExecuteInTransaction(func(tx repositories.LedgerRepository) error {
		wallet, err := tx.LockWallet(walletID)
		if err != nil {
			return err
		}

		entries, err := tx.ListAllTransactions(walletID)
		if err != nil {
			return err
		}

		report = buildReport(wallet, entries)
		if report.Valid {
			return nil
		}

		wallet.BalanceKobo = report.ComputedKobo
		if err := tx.UpdateWallet(wallet); err != nil {
			return err
		}

		report.StoredKobo = wallet.BalanceKobo
		report.DifferenceKobo = 0
		report.Valid = true
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to repair wallet: %w", err)
	}
	return report, nil
}

// buildReport computes the signed sum of a wallet's history. Successful
// entries always count. Pending debits count too: an external transfer
// reserves funds at creation time, so the stored balance already reflects
// the deduction while the entry is pending. Failed and reversed entries
// never count, which is what makes balance restoration on a failed
// transfer consistent without a compensating ledger row.
func buildReport(wallet *models.Wallet, entries []models.Transaction) *Report {
	var computed int64
	for _, entry := range entries {
		sign := models.TransactionSign(entry.Type)
		switch entry.Status {
		case models.TransactionStatusSuccess:
			computed += entry.AmountKobo * sign
		case models.TransactionStatusPending:
			if sign < 0 {
				computed += entry.AmountKobo * sign
			}
		}
	}

	diff := computed - wallet.BalanceKobo
	return &Report{
		WalletID:         wallet.ID,
		StoredKobo:       wallet.BalanceKobo,
		ComputedKobo:     computed,
		DifferenceKobo:   diff,
		Valid:            diff == 0,
		TransactionCount: len(entries),
	}
}
