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

// BankReconciliation compares the ledger's view of a bank account against the
// bank's statement for a period. The adjustment fields are snapshots entered
// or derived while reconciling; Difference is recomputed on every save and
// must be exactly zero before approval.
type BankReconciliation struct {
	ID            int                  `gorm:"primary_key" json:"id"`
	BankAccountId int                  `gorm:"index;not null" json:"bank_account_id"`
	StatementDate time.Time            `gorm:"not null;index" json:"statement_date"`
	Status        ReconciliationStatus `gorm:"size:20;not null;default:'in_progress';index" json:"status"`

	StatementBalance decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"statement_balance"`
	BookBalance      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"book_balance"`

	DepositsInTransit   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"deposits_in_transit"`
	OutstandingPayments decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"outstanding_payments"`
	UnrecordedFees      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"unrecorded_fees"`
	UnrecordedInterest  decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"unrecorded_interest"`

	AdjustedBookBalance decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"adjusted_book_balance"`
	Difference          decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"difference"`

	Notes      string     `gorm:"type:text" json:"notes"`
	ApprovedBy string     `gorm:"size:100" json:"approved_by"`
	ApprovedAt *time.Time `json:"approved_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *BankReconciliation) GetId() int {
	return r.ID
}

// ReconciliationAdjustments are the four classic book-side adjustments.
type ReconciliationAdjustments struct {
	DepositsInTransit   decimal.Decimal `json:"deposits_in_transit"`
	OutstandingPayments decimal.Decimal `json:"outstanding_payments"`
	UnrecordedFees      decimal.Decimal `json:"unrecorded_fees"`
	UnrecordedInterest  decimal.Decimal `json:"unrecorded_interest"`
}

// AdjustedBookBalance applies the adjustments to the book balance: deposits
// in transit add, outstanding payments subtract, fees the bank took but the
// book missed subtract, interest the bank paid but the book missed adds.
func AdjustedBookBalance(book decimal.Decimal, adj ReconciliationAdjustments) decimal.Decimal {
	return book.
		Add(adj.DepositsInTransit).
		Sub(adj.OutstandingPayments).
		Sub(adj.UnrecordedFees).
		Add(adj.UnrecordedInterest)
}

// Recompute refreshes the derived fields from the snapshot fields.
func (r *BankReconciliation) Recompute() {
	adj := ReconciliationAdjustments{
		DepositsInTransit:   r.DepositsInTransit,
		OutstandingPayments: r.OutstandingPayments,
		UnrecordedFees:      r.UnrecordedFees,
		UnrecordedInterest:  r.UnrecordedInterest,
	}
	r.AdjustedBookBalance = AdjustedBookBalance(r.BookBalance, adj)
	r.Difference = r.StatementBalance.Sub(r.AdjustedBookBalance)
}

// IsBalanced reports whether the adjusted book balance equals the statement
// balance exactly. Close is never good enough.
func (r *BankReconciliation) IsBalanced() bool {
	return r.Difference.IsZero()
}

func GetReconciliation(ctx context.Context, id int) (*BankReconciliation, error) {
	var rec BankReconciliation
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func GetReconciliations(ctx context.Context, bankAccountId int) ([]*BankReconciliation, error) {
	var recs []*BankReconciliation
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("bank_account_id = ?", bankAccountId).
		Order("statement_date DESC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// LatestApprovedReconciliation is the anchor the next reconciliation starts
// from; nil when the account has never been reconciled.
func LatestApprovedReconciliation(ctx context.Context, bankAccountId int) (*BankReconciliation, error) {
	var rec BankReconciliation
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("bank_account_id = ? AND status = ?", bankAccountId, ReconciliationApproved).
		Order("statement_date DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
