package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BankStatementLine is one imported row from a bank statement file. Amount is
// signed from the bank's perspective: deposits positive, withdrawals
// negative. ImportHash dedupes re-imports of the same file content.
type BankStatementLine struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	BankAccountId int                 `gorm:"index;not null" json:"bank_account_id"`
	TxnDate       time.Time           `gorm:"not null;index" json:"txn_date"`
	Description   string              `gorm:"size:500" json:"description"`
	Reference     string              `gorm:"size:100" json:"reference"`
	Amount        decimal.Decimal     `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status        StatementLineStatus `gorm:"size:20;not null;default:'unmatched';index" json:"status"`

	// MatchedLineId points at the journal line this row cleared.
	MatchedLineId    *int   `gorm:"index" json:"matched_line_id"`
	ReconciliationId *int   `gorm:"index" json:"reconciliation_id"`
	ImportHash       string `gorm:"size:64;uniqueIndex" json:"import_hash"`
	ImportBatchId    string `gorm:"size:36;index" json:"import_batch_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *BankStatementLine) GetId() int {
	return l.ID
}

// ComputeImportHash fingerprints a statement row so the same row imported
// twice collides on the unique index instead of duplicating.
func ComputeImportHash(bankAccountId int, txnDate time.Time, amount decimal.Decimal, description, reference string) string {
	payload := fmt.Sprintf("%d|%s|%s|%s|%s",
		bankAccountId, txnDate.Format("2006-01-02"), amount.StringFixed(2), description, reference)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func GetStatementLine(ctx context.Context, id int) (*BankStatementLine, error) {
	var line BankStatementLine
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &line, nil
}

type StatementLineFilter struct {
	BankAccountId int
	Status        *StatementLineStatus
	FromDate      *time.Time
	ToDate        *time.Time
}

func GetStatementLines(ctx context.Context, filter *StatementLineFilter) ([]*BankStatementLine, error) {
	db := config.GetDB().WithContext(ctx).
		Where("bank_account_id = ?", filter.BankAccountId)
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		db = db.Where("txn_date >= ?", utils.StartOfDay(*filter.FromDate))
	}
	if filter.ToDate != nil {
		db = db.Where("txn_date <= ?", utils.EndOfDay(*filter.ToDate))
	}
	var lines []*BankStatementLine
	if err := db.Order("txn_date, id").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// UnmatchStatementLine undoes a manual or automatic match. Locked lines
// belong to an approved reconciliation and never come back.
func UnmatchStatementLine(ctx context.Context, id int) error {
	line, err := GetStatementLine(ctx, id)
	if err != nil {
		return err
	}
	if line.Status == StatementLineLocked {
		return &IntegrityError{Op: "UnmatchStatementLine",
			Detail: fmt.Sprintf("statement line %d is locked by an approved reconciliation", id)}
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(&BankStatementLine{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          StatementLineUnmatched,
			"matched_line_id": nil,
		}).Error
}
