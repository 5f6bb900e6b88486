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

// InvoicePayment is a customer receipt against an invoice, created by
// workflow.ReceiveInvoicePayment together with its journal entry.
type InvoicePayment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	PaymentNumber string          `gorm:"size:30;uniqueIndex" json:"payment_number"`
	InvoiceId     int             `gorm:"index;not null" json:"invoice_id"`
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

func (p *InvoicePayment) GetId() int {
	return p.ID
}

type NewInvoicePayment struct {
	InvoiceId     int             `json:"invoice_id" binding:"required"`
	BankAccountId int             `json:"bank_account_id" binding:"required"`
	PaymentDate   time.Time       `json:"payment_date" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Method        PaymentMethod   `json:"method" binding:"required"`
	Reference     string          `json:"reference"`
}

func (input *NewInvoicePayment) Validate() error {
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

func GetInvoicePayment(ctx context.Context, id int) (*InvoicePayment, error) {
	var payment InvoicePayment
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func GetInvoicePayments(ctx context.Context, invoiceId int) ([]*InvoicePayment, error) {
	var payments []*InvoicePayment
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceId).
		Order("payment_date, id").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
