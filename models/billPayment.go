package models

import (
	"context"
	"errors"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillPayment settles part or all of a bill out of a bank account. The row is
// created by workflow.PayBill together with its journal entry; it never
// exists unposted.
type BillPayment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	PaymentNumber string          `gorm:"size:30;uniqueIndex" json:"payment_number"`
	BillId        int             `gorm:"index;not null" json:"bill_id"`
	BankAccountId int             `gorm:"not null" json:"bank_account_id"`
	PaymentDate   time.Time       `gorm:"not null;index" json:"payment_date"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Method        PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Reference     string          `gorm:"size:100" json:"reference"`
	EntryId       int             `gorm:"index" json:"entry_id"`
	IsVoided      *bool           `gorm:"not null;default:false" json:"is_voided"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *BillPayment) GetId() int {
	return p.ID
}

type NewBillPayment struct {
	BillId        int             `json:"bill_id" binding:"required"`
	BankAccountId int             `json:"bank_account_id" binding:"required"`
	PaymentDate   time.Time       `json:"payment_date" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Method        PaymentMethod   `json:"method" binding:"required"`
	Reference     string          `json:"reference"`
}

func (input *NewBillPayment) Validate() error {
	if !input.Amount.IsPositive() {
		return errors.New("payment amount must be positive")
	}
	if !input.Amount.Equal(input.Amount.Round(2)) {
		return errors.New("payment amount must have at most two decimal places")
	}
	if !input.Method.IsValid() {
		return errors.New("invalid payment method")
	}
	return nil
}

func GetBillPayment(ctx context.Context, id int) (*BillPayment, error) {
	var payment BillPayment
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func GetBillPayments(ctx context.Context, billId int) ([]*BillPayment, error) {
	var payments []*BillPayment
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("bill_id = ?", billId).
		Order("payment_date, id").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
