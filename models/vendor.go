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

// Vendor is an AP counterparty. RFC is the Mexican tax id; it is unique when
// present but optional for small cash suppliers.
type Vendor struct {
	ID           int          `gorm:"primary_key" json:"id"`
	Name         string       `gorm:"size:200;not null" json:"name" binding:"required"`
	Rfc          string       `gorm:"size:13;index" json:"rfc"`
	Email        string       `gorm:"size:200" json:"email"`
	Phone        string       `gorm:"size:30" json:"phone"`
	Address      string       `gorm:"size:500" json:"address"`
	PaymentTerms PaymentTerms `gorm:"size:20;not null;default:'net30'" json:"payment_terms"`
	Notes        string       `gorm:"type:text" json:"notes"`
	IsActive     *bool        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v *Vendor) GetId() int {
	return v.ID
}

type NewVendor struct {
	Name         string       `json:"name" binding:"required"`
	Rfc          string       `json:"rfc"`
	Email        string       `json:"email" binding:"omitempty,email"`
	Phone        string       `json:"phone"`
	Address      string       `json:"address"`
	PaymentTerms PaymentTerms `json:"payment_terms"`
	Notes        string       `json:"notes"`
}

func (input *NewVendor) validate(ctx context.Context, id int) error {
	if input.Rfc != "" {
		if err := utils.ValidateUnique[Vendor](ctx, "rfc", input.Rfc, id); err != nil {
			return err
		}
	}
	if input.PaymentTerms == "" {
		input.PaymentTerms = PaymentTermsNet30
	}
	switch input.PaymentTerms {
	case PaymentTermsPrepaid, PaymentTermsNet15, PaymentTermsNet30, PaymentTermsNet60:
	default:
		return errors.New("invalid payment terms")
	}
	return nil
}

func CreateVendor(ctx context.Context, input *NewVendor) (*Vendor, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	vendor := Vendor{
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
	if err := db.WithContext(ctx).Create(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func UpdateVendor(ctx context.Context, id int, input *NewVendor) (*Vendor, error) {
	if err := utils.ValidateResourceId[Vendor](ctx, id); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	db := config.GetDB()
	err := db.WithContext(ctx).Model(&Vendor{}).Where("id = ?", id).
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
	return GetVendor(ctx, id)
}

func DeactivateVendor(ctx context.Context, id int) error {
	if err := utils.ValidateResourceId[Vendor](ctx, id); err != nil {
		return err
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(&Vendor{}).Where("id = ?", id).
		Update("is_active", false).Error
}

func GetVendor(ctx context.Context, id int) (*Vendor, error) {
	var vendor Vendor
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

func GetVendors(ctx context.Context, activeOnly bool) ([]*Vendor, error) {
	var vendors []*Vendor
	db := config.GetDB().WithContext(ctx).Order("name")
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	if err := db.Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

// GetVendorBalance is the vendor's open AP balance: total approved bill
// amounts minus payments, from the bills table (the subledger), not the
// control account.
func GetVendorBalance(ctx context.Context, vendorId int) (decimal.Decimal, error) {
	type sums struct {
		Total decimal.Decimal
		Paid  decimal.Decimal
	}
	var s sums
	db := config.GetDB()
	err := db.WithContext(ctx).Model(&Bill{}).
		Select("COALESCE(SUM(total),0) AS total, COALESCE(SUM(amount_paid),0) AS paid").
		Where("vendor_id = ?", vendorId).
		Where("status IN ?", []BillStatus{BillStatusApproved, BillStatusPartial, BillStatusPaid}).
		Scan(&s).Error
	if err != nil {
		return decimal.Zero, err
	}
	return s.Total.Sub(s.Paid), nil
}
