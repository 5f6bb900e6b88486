package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is a customer invoice in the AR subledger. Issuing it posts the
// ledger effect (AR control debit, revenue credit) via workflow.IssueInvoice.
type Invoice struct {
	ID            int           `gorm:"primary_key" json:"id"`
	InvoiceNumber string        `gorm:"size:30;uniqueIndex" json:"invoice_number"`
	CustomerId    int           `gorm:"not null;index" json:"customer_id"`
	InvoiceDate   time.Time     `gorm:"not null;index" json:"invoice_date"`
	DueDate       time.Time     `gorm:"not null;index" json:"due_date"`
	Status        InvoiceStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`

	Subtotal decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`
	Tax      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"tax"`
	Total    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total"`

	AmountPaid decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"amount_paid"`

	Notes string `gorm:"type:text" json:"notes"`

	Lines    []InvoiceLine `gorm:"foreignKey:InvoiceId" json:"lines"`
	Customer *Customer     `gorm:"foreignKey:CustomerId" json:"customer,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (inv *Invoice) GetId() int {
	return inv.ID
}

// InvoiceLine distributes an invoice across revenue accounts.
type InvoiceLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	AccountId   int             `gorm:"not null" json:"account_id"`
	Description string          `gorm:"size:300" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoiceLine struct {
	AccountId   int             `json:"account_id" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
}

type NewInvoice struct {
	CustomerId  int              `json:"customer_id" binding:"required"`
	InvoiceDate time.Time        `json:"invoice_date" binding:"required"`
	DueDate     *time.Time       `json:"due_date"`
	Tax         decimal.Decimal  `json:"tax"`
	Notes       string           `json:"notes"`
	Lines       []NewInvoiceLine `json:"lines" binding:"required"`
}

func (input *NewInvoice) validate(ctx context.Context) (*Customer, error) {
	customer, err := GetCustomer(ctx, input.CustomerId)
	if err != nil {
		return nil, errors.New("customer not found")
	}
	if customer.IsActive == nil || !*customer.IsActive {
		return nil, fmt.Errorf("customer %s is inactive", customer.Name)
	}
	if len(input.Lines) == 0 {
		return nil, errors.New("invoice requires at least one line")
	}
	for i, line := range input.Lines {
		if !line.Amount.IsPositive() {
			return nil, fmt.Errorf("line %d: amount must be positive", i+1)
		}
		if !line.Amount.Equal(line.Amount.Round(2)) {
			return nil, fmt.Errorf("line %d: amount must have at most two decimal places", i+1)
		}
	}
	if input.Tax.IsNegative() || !input.Tax.Equal(input.Tax.Round(2)) {
		return nil, errors.New("tax must be a non-negative amount with at most two decimal places")
	}
	return customer, nil
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	customer, err := input.validate(ctx)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, line := range input.Lines {
		subtotal = subtotal.Add(line.Amount)
	}

	dueDate := DueDateFor(customer.PaymentTerms, input.InvoiceDate)
	if input.DueDate != nil {
		dueDate = utils.StartOfDay(*input.DueDate)
	}

	invoice := Invoice{
		CustomerId:  input.CustomerId,
		InvoiceDate: utils.StartOfDay(input.InvoiceDate),
		DueDate:     dueDate,
		Status:      InvoiceStatusDraft,
		Subtotal:    subtotal,
		Tax:         input.Tax,
		Total:       subtotal.Add(input.Tax),
		AmountPaid:  decimal.Zero,
		Notes:       input.Notes,
	}
	for _, line := range input.Lines {
		invoice.Lines = append(invoice.Lines, InvoiceLine{
			AccountId:   line.AccountId,
			Description: line.Description,
			Amount:      line.Amount,
		})
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	var invoice Invoice
	db := config.GetDB()
	err := db.WithContext(ctx).Preload("Lines").Preload("Customer").
		Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

type InvoiceFilter struct {
	CustomerId *int
	Status     *InvoiceStatus
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

func GetInvoices(ctx context.Context, filter *InvoiceFilter) ([]*Invoice, error) {
	db := config.GetDB().WithContext(ctx).Model(&Invoice{}).Preload("Lines").Preload("Customer")
	if filter != nil {
		if filter.CustomerId != nil {
			db = db.Where("customer_id = ?", *filter.CustomerId)
		}
		if filter.Status != nil {
			db = db.Where("status = ?", *filter.Status)
		}
		if filter.FromDate != nil {
			db = db.Where("invoice_date >= ?", utils.StartOfDay(*filter.FromDate))
		}
		if filter.ToDate != nil {
			db = db.Where("invoice_date <= ?", utils.EndOfDay(*filter.ToDate))
		}
		if filter.Limit > 0 {
			db = db.Limit(filter.Limit).Offset(filter.Offset)
		}
	}
	var invoices []*Invoice
	if err := db.Order("invoice_date DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (inv *Invoice) BalanceDue() decimal.Decimal {
	return inv.Total.Sub(inv.AmountPaid)
}
