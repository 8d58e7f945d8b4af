package repositories

import (
	"errors"
	"fmt"

	"kobo/internal/models"

	"gorm.io/gorm"
)

var (
	ErrBankAccountNotFound  = errors.New("bank account not found")
	ErrDuplicateBankAccount = errors.New("bank account already linked")
)

// BankAccountRepository defines database operations for linked bank accounts.
type BankAccountRepository interface {
	Create(account *models.BankAccount) error
	GetByID(id uint) (*models.BankAccount, error)
	GetByUserID(userID uint) ([]models.BankAccount, error)
	Find(userID uint, bankCode, accountNumber string) (*models.BankAccount, error)
}

type bankAccountRepository struct {
	db *gorm.DB
}

func NewBankAccountRepository(db *gorm.DB) BankAccountRepository {
	return &bankAccountRepository{db: db}
}

func (r *bankAccountRepository) Create(account *models.BankAccount) error {
	if err := r.db.Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateBankAccount
		}
		return fmt.Errorf("failed to create bank account: %w", err)
	}
	return nil
}

func (r *bankAccountRepository) GetByID(id uint) (*models.BankAccount, error) {
	var account models.BankAccount
	if err := r.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	return &account, nil
}

func (r *bankAccountRepository) GetByUserID(userID uint) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	if err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	return accounts, nil
}

func (r *bankAccountRepository) Find(userID uint, bankCode, accountNumber string) (*models.BankAccount, error) {
	var account models.BankAccount
	err := r.db.Where("user_id = ? AND bank_code = ? AND account_number = ?",
		userID, bankCode, accountNumber).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("failed to find bank account: %w", err)
	}
	return &account, nil
}
