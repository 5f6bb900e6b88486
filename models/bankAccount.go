package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"gorm.io/gorm"
)

// BankAccount pairs a real-world bank account with its ledger account. The
// ledger account must be an asset flagged is_bank; the pairing is one-to-one.
type BankAccount struct {
	ID              int       `gorm:"primary_key" json:"id"`
	Name            string    `gorm:"size:200;not null" json:"name" binding:"required"`
	BankName        string    `gorm:"size:100" json:"bank_name"`
	AccountNumber   string    `gorm:"size:30" json:"account_number"`
	Clabe           string    `gorm:"size:18" json:"clabe"`
	CurrencyCode    string    `gorm:"size:3;not null;default:'MXN'" json:"currency_code"`
	LedgerAccountId int       `gorm:"uniqueIndex;not null" json:"ledger_account_id"`
	IsActive        *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *BankAccount) GetId() int {
	return b.ID
}

type NewBankAccount struct {
	Name            string `json:"name" binding:"required"`
	BankName        string `json:"bank_name"`
	AccountNumber   string `json:"account_number"`
	Clabe           string `json:"clabe"`
	CurrencyCode    string `json:"currency_code"`
	LedgerAccountId int    `json:"ledger_account_id" binding:"required"`
}

func (input *NewBankAccount) validate(ctx context.Context, id int) error {
	ledger, err := GetAccount(ctx, input.LedgerAccountId)
	if err != nil {
		return errors.New("ledger account not found")
	}
	if ledger.AccountType != AccountTypeAsset || ledger.IsBank == nil || !*ledger.IsBank {
		return fmt.Errorf("account %s is not a bank asset account", ledger.Code)
	}
	if err := utils.ValidateUnique[BankAccount](ctx, "ledger_account_id", input.LedgerAccountId, id); err != nil {
		if errors.Is(err, utils.ErrorDuplicateValue) {
			return fmt.Errorf("account %s is already linked to a bank account", ledger.Code)
		}
		return err
	}
	if input.CurrencyCode == "" {
		input.CurrencyCode = config.GetLedgerSettings().BaseCurrencyCode
	}
	return nil
}

func CreateBankAccount(ctx context.Context, input *NewBankAccount) (*BankAccount, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	bank := BankAccount{
		Name:            input.Name,
		BankName:        input.BankName,
		AccountNumber:   input.AccountNumber,
		Clabe:           input.Clabe,
		CurrencyCode:    input.CurrencyCode,
		LedgerAccountId: input.LedgerAccountId,
		IsActive:        utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&bank).Error; err != nil {
		return nil, err
	}
	return &bank, nil
}

func GetBankAccount(ctx context.Context, id int) (*BankAccount, error) {
	var bank BankAccount
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&bank).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &bank, nil
}

func GetBankAccounts(ctx context.Context, activeOnly bool) ([]*BankAccount, error) {
	var banks []*BankAccount
	db := config.GetDB().WithContext(ctx).Order("name")
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	if err := db.Find(&banks).Error; err != nil {
		return nil, err
	}
	return banks, nil
}

func DeactivateBankAccount(ctx context.Context, id int) error {
	if err := utils.ValidateResourceId[BankAccount](ctx, id); err != nil {
		return err
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(&BankAccount{}).Where("id = ?", id).
		Update("is_active", false).Error
}
