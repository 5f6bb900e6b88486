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

// Customer is an AR counterparty, typically a pet owner billed on account.
type Customer struct {
	ID           int          `gorm:"primary_key" json:"id"`
	Name         string       `gorm:"size:200;not null" json:"name" binding:"required"`
	Rfc          string       `gorm:"size:13;index" json:"rfc"`
	Email        string       `gorm:"size:200" json:"email"`
	Phone        string       `gorm:"size:30" json:"phone"`
	Address      string       `gorm:"size:500" json:"address"`
	PaymentTerms PaymentTerms `gorm:"size:20;not null;default:'net15'" json:"payment_terms"`
	Notes        string       `gorm:"type:text" json:"notes"`
	IsActive     *bool        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Customer) GetId() int {
	return c.ID
}

type NewCustomer struct {
	Name         string       `json:"name" binding:"required"`
	Rfc          string       `json:"rfc"`
	Email        string       `json:"email" binding:"omitempty,email"`
	Phone        string       `json:"phone"`
	Address      string       `json:"address"`
	PaymentTerms PaymentTerms `json:"payment_terms"`
	Notes        string       `json:"notes"`
}

func (input *NewCustomer) validate(ctx context.Context, id int) error {
	if input.Rfc != "" {
		if err := utils.ValidateUnique[Customer](ctx, "rfc", input.Rfc, id); err != nil {
			return err
		}
	}
	if input.PaymentTerms == "" {
		input.PaymentTerms = PaymentTermsNet15
	}
	switch input.PaymentTerms {
	case PaymentTermsPrepaid, PaymentTermsNet15, PaymentTermsNet30, PaymentTermsNet60:
	default:
		return errors.New("invalid payment terms")
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	customer := Customer{
		Name:         input.Name,
		Rfc:          input.Rfc,
		Email:        input.Email,
		Phone:        input.Phone,
		Address:      input.Address,
		PaymentTerms: input.PaymentTerms,
		Notes:        input.Notes,
		IsActive:     utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	if err := utils.ValidateResourceId[Customer](ctx, id); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	db := config.GetDB()
	err := db.WithContext(ctx).Model(&Customer{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":          input.Name,
			"rfc":           input.Rfc,
			"email":         input.Email,
			"phone":         input.Phone,
			"address":       input.Address,
			"payment_terms": input.PaymentTerms,
			"notes":         input.Notes,
		}).Error
	if err != nil {
		return nil, err
	}
	return GetCustomer(ctx, id)
}

func DeactivateCustomer(ctx context.Context, id int) error {
	if err := utils.ValidateResourceId[Customer](ctx, id); err != nil {
		return err
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(&Customer{}).Where("id = ?", id).
		Update("is_active", false).Error
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	var customer Customer
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func GetCustomers(ctx context.Context, activeOnly bool) ([]*Customer, error) {
	var customers []*Customer
	db := config.GetDB().WithContext(ctx).Order("name")
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	if err := db.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// GetCustomerBalance is the customer's open AR balance from the invoice
// subledger.
func GetCustomerBalance(ctx context.Context, customerId int) (decimal.Decimal, error) {
	type sums struct {
		Total decimal.Decimal
		Paid  decimal.Decimal
	}
	var s sums
	db := config.GetDB()
	err := db.WithContext(ctx).Model(&Invoice{}).
		Select("COALESCE(SUM(total),0) AS total, COALESCE(SUM(amount_paid),0) AS paid").
		Where("customer_id = ?", customerId).
		Where("status IN ?", []InvoiceStatus{InvoiceStatusIssued, InvoiceStatusPartial, InvoiceStatusPaid}).
		Scan(&s).Error
	if err != nil {
		return decimal.Zero, err
	}
	return s.Total.Sub(s.Paid), nil
}
