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

// Bill is a vendor invoice in the AP subledger. Its ledger effect (expense
// debit, AP control credit) is posted by workflow.ApproveBill; the bill row
// itself carries the operational state (status, amount paid).
type Bill struct {
	ID            int        `gorm:"primary_key" json:"id"`
	BillNumber    string     `gorm:"size:30;uniqueIndex" json:"bill_number"`
	VendorId      int        `gorm:"not null;uniqueIndex:idx_vendor_invoice" json:"vendor_id"`
	InvoiceNumber string     `gorm:"size:50;not null;uniqueIndex:idx_vendor_invoice" json:"invoice_number"`
	BillDate      time.Time  `gorm:"not null;index" json:"bill_date"`
	DueDate       time.Time  `gorm:"not null;index" json:"due_date"`
	Status        BillStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`

	Subtotal decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`
	Tax      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"tax"`
	Total    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total"`

	AmountPaid decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"amount_paid"`

	// CfdiUuid is the fiscal stamp of the vendor's CFDI, stored as received.
	CfdiUuid string `gorm:"size:36" json:"cfdi_uuid"`
	Notes    string `gorm:"type:text" json:"notes"`

	Lines  []BillLine `gorm:"foreignKey:BillId" json:"lines"`
	Vendor *Vendor    `gorm:"foreignKey:VendorId" json:"vendor,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Bill) GetId() int {
	return b.ID
}

// BillLine distributes a bill across expense (or asset) accounts.
type BillLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BillId      int             `gorm:"index;not null" json:"bill_id"`
	AccountId   int             `gorm:"not null" json:"account_id"`
	Description string          `gorm:"size:300" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBillLine struct {
	AccountId   int             `json:"account_id" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
}

type NewBill struct {
	VendorId      int             `json:"vendor_id" binding:"required"`
	InvoiceNumber string          `json:"invoice_number" binding:"required"`
	BillDate      time.Time       `json:"bill_date" binding:"required"`
	DueDate       *time.Time      `json:"due_date"`
	Tax           decimal.Decimal `json:"tax"`
	CfdiUuid      string          `json:"cfdi_uuid"`
	Notes         string          `json:"notes"`
	Lines         []NewBillLine   `json:"lines" binding:"required"`
}

// DueDateFor applies payment terms to a document date. Prepaid documents are
// due on the document date itself.
func DueDateFor(terms PaymentTerms, docDate time.Time) time.Time {
	day := utils.StartOfDay(docDate)
	switch terms {
	case PaymentTermsNet15:
		return day.AddDate(0, 0, 15)
	case PaymentTermsNet30:
		return day.AddDate(0, 0, 30)
	case PaymentTermsNet60:
		return day.AddDate(0, 0, 60)
	default:
		return day
	}
}

// validate checks the input for create (excludeId = 0) or draft update.
func (input *NewBill) validate(ctx context.Context, excludeId int) (*Vendor, error) {
	vendor, err := GetVendor(ctx, input.VendorId)
	if err != nil {
		return nil, errors.New("vendor not found")
	}
	if vendor.IsActive == nil || !*vendor.IsActive {
		return nil, fmt.Errorf("vendor %s is inactive", vendor.Name)
	}
	if len(input.Lines) == 0 {
		return nil, errors.New("bill requires at least one line")
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

	var count int64
	db := config.GetDB()
	query := db.WithContext(ctx).Model(&Bill{}).
		Where("vendor_id = ? AND invoice_number = ?", input.VendorId, input.InvoiceNumber).
		Where("status <> ?", BillStatusVoid)
	if excludeId > 0 {
		query = query.Where("id <> ?", excludeId)
	}
	err = query.Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &DuplicateVendorInvoiceError{VendorId: input.VendorId, InvoiceNumber: input.InvoiceNumber}
	}
	return vendor, nil
}

// CreateBill records the bill as a draft. Nothing touches the ledger until
// approval.
func CreateBill(ctx context.Context, input *NewBill) (*Bill, error) {
	vendor, err := input.validate(ctx, 0)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, line := range input.Lines {
		subtotal = subtotal.Add(line.Amount)
	}

	dueDate := DueDateFor(vendor.PaymentTerms, input.BillDate)
	if input.DueDate != nil {
		dueDate = utils.StartOfDay(*input.DueDate)
	}

	bill := Bill{
		VendorId:      input.VendorId,
		InvoiceNumber: input.InvoiceNumber,
		BillDate:      utils.StartOfDay(input.BillDate),
		DueDate:       dueDate,
		Status:        BillStatusDraft,
		Subtotal:      subtotal,
		Tax:           input.Tax,
		Total:         subtotal.Add(input.Tax),
		AmountPaid:    decimal.Zero,
		CfdiUuid:      input.CfdiUuid,
		Notes:         input.Notes,
	}
	for _, line := range input.Lines {
		bill.Lines = append(bill.Lines, BillLine{
			AccountId:   line.AccountId,
			Description: line.Description,
			Amount:      line.Amount,
		})
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func GetBill(ctx context.Context, id int) (*Bill, error) {
	var bill Bill
	db := config.GetDB()
	err := db.WithContext(ctx).Preload("Lines").Preload("Vendor").
		Where("id = ?", id).First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &bill, nil
}

type BillFilter struct {
	VendorId *int
	Status   *BillStatus
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

func GetBills(ctx context.Context, filter *BillFilter) ([]*Bill, error) {
	db := config.GetDB().WithContext(ctx).Model(&Bill{}).Preload("Lines").Preload("Vendor")
	if filter != nil {
		if filter.VendorId != nil {
			db = db.Where("vendor_id = ?", *filter.VendorId)
		}
		if filter.Status != nil {
			db = db.Where("status = ?", *filter.Status)
		}
		if filter.FromDate != nil {
			db = db.Where("bill_date >= ?", utils.StartOfDay(*filter.FromDate))
		}
		if filter.ToDate != nil {
			db = db.Where("bill_date <= ?", utils.EndOfDay(*filter.ToDate))
		}
		if filter.Limit > 0 {
			db = db.Limit(filter.Limit).Offset(filter.Offset)
		}
	}
	var bills []*Bill
	if err := db.Order("bill_date DESC, id DESC").Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

// BalanceDue is total minus payments recorded so far.
func (b *Bill) BalanceDue() decimal.Decimal {
	return b.Total.Sub(b.AmountPaid)
}

// UpdateDraftBill replaces a draft's content in place. Approved bills are
// immutable; correct them by voiding and re-entering.
func UpdateDraftBill(ctx context.Context, id int, input *NewBill) (*Bill, error) {
	bill, err := GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill.Status != BillStatusDraft {
		return nil, &IntegrityError{Op: "UpdateDraftBill",
			Detail: fmt.Sprintf("bill %s is %s", bill.BillNumber, bill.Status)}
	}
	vendor, err := input.validate(ctx, id)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, line := range input.Lines {
		subtotal = subtotal.Add(line.Amount)
	}
	dueDate := DueDateFor(vendor.PaymentTerms, input.BillDate)
	if input.DueDate != nil {
		dueDate = utils.StartOfDay(*input.DueDate)
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bill_id = ?", id).Delete(&BillLine{}).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"vendor_id":      input.VendorId,
			"invoice_number": input.InvoiceNumber,
			"bill_date":      utils.StartOfDay(input.BillDate),
			"due_date":       dueDate,
			"subtotal":       subtotal,
			"tax":            input.Tax,
			"total":          subtotal.Add(input.Tax),
			"cfdi_uuid":      input.CfdiUuid,
			"notes":          input.Notes,
		}
		if err := tx.Model(&Bill{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		for _, line := range input.Lines {
			row := BillLine{
				BillId:      id,
				AccountId:   line.AccountId,
				Description: line.Description,
				Amount:      line.Amount,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetBill(ctx, id)
}
