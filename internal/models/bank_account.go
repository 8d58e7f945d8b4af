package models

import "time"

// BankAccount is a user-linked destination for external transfers.
// AccountName is resolved through the payment provider before linking.
type BankAccount struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	UserID        uint   `gorm:"not null;index;uniqueIndex:uq_user_bank_account" json:"user_id"`
	BankCode      string `gorm:"not null;uniqueIndex:uq_user_bank_account" json:"bank_code"`
	AccountNumber string `gorm:"not null;uniqueIndex:uq_user_bank_account" json:"account_number"`
	AccountName   string `gorm:"not null" json:"account_name"`
	CreatedAt     time.Time
}
