package models

import (
	"time"
)

// Wallet holds a user's balance in kobo (integer minor units, never floats).
// One wallet per user, enforced by the unique index on UserID.
type Wallet struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	UserID      uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	BalanceKobo int64  `gorm:"not null;default:0" json:"balance_kobo"`
	Currency    string `gorm:"not null;default:'NGN'" json:"currency"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
