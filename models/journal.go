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
	"gorm.io/gorm/clause"
)

// JournalEntry is the unit of posting. Once posted it is immutable; the only
// later change allowed is the void linkage written by the reversal workflow.
type JournalEntry struct {
	ID          int         `gorm:"primary_key" json:"id"`
	EntryNumber string      `gorm:"size:30;uniqueIndex" json:"entry_number"`
	EntryDate   time.Time   `gorm:"not null;index" json:"entry_date"`
	Description string      `gorm:"size:500" json:"description"`
	Status      EntryStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	PeriodId    int         `gorm:"index" json:"period_id"`

	SourceKind SourceKind `gorm:"size:30;not null;default:'manual';index:idx_journal_source" json:"source_kind"`
	SourceId   int        `gorm:"index:idx_journal_source" json:"source_id"`

	IsReversal        *bool      `gorm:"not null;default:false" json:"is_reversal"`
	ReversesEntryId   *int       `gorm:"index" json:"reverses_entry_id"`
	ReversedByEntryId *int       `json:"reversed_by_entry_id"`
	VoidReason        *string    `gorm:"size:300" json:"void_reason"`
	VoidedAt          *time.Time `json:"voided_at"`

	Lines []JournalLine `gorm:"foreignKey:EntryId" json:"lines"`

	CreatedBy string     `gorm:"size:100" json:"created_by"`
	PostedAt  *time.Time `json:"posted_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *JournalEntry) GetId() int {
	return e.ID
}

// JournalLine carries exactly one of debit or credit, both stored
// non-negative. Lines are immutable once their entry is posted.
type JournalLine struct {
	ID        int             `gorm:"primary_key" json:"id"`
	EntryId   int             `gorm:"index;not null" json:"entry_id"`
	AccountId int             `gorm:"index;not null" json:"account_id"`
	Debit     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"debit"`
	Credit    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"credit"`
	Memo      string          `gorm:"size:300" json:"memo"`

	CounterpartyKind CounterpartyKind `gorm:"size:20" json:"counterparty_kind"`
	CounterpartyId   int              `json:"counterparty_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewJournalLine struct {
	AccountId        int              `json:"account_id" binding:"required"`
	Debit            decimal.Decimal  `json:"debit"`
	Credit           decimal.Decimal  `json:"credit"`
	Memo             string           `json:"memo"`
	CounterpartyKind CounterpartyKind `json:"counterparty_kind"`
	CounterpartyId   int              `json:"counterparty_id"`
}

type NewJournalEntry struct {
	EntryDate   time.Time        `json:"entry_date" binding:"required"`
	Description string           `json:"description"`
	SourceKind  SourceKind       `json:"source_kind"`
	SourceId    int              `json:"source_id"`
	Lines       []NewJournalLine `json:"lines" binding:"required"`
}

// hasAtMostTwoDecimals rejects sub-cent amounts before they reach a
// decimal(20,2) column, where they would be silently rounded.
func hasAtMostTwoDecimals(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// Validate checks every structural rule that does not need the database:
// line shape, amount precision, and balance. Account and period checks need
// a transaction and live in ValidateTx.
func (input *NewJournalEntry) Validate() error {
	if len(input.Lines) < 2 {
		return errors.New("entry requires at least two lines")
	}
	if input.SourceKind != "" && !input.SourceKind.IsValid() {
		return fmt.Errorf("unknown source kind %q", input.SourceKind)
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, line := range input.Lines {
		debitSet := !line.Debit.IsZero()
		creditSet := !line.Credit.IsZero()
		if debitSet == creditSet {
			return fmt.Errorf("line %d: exactly one of debit or credit must be set", i+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("line %d: amounts must be non-negative", i+1)
		}
		if !hasAtMostTwoDecimals(line.Debit) || !hasAtMostTwoDecimals(line.Credit) {
			return fmt.Errorf("line %d: amounts must have at most two decimal places", i+1)
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return &UnbalancedEntryError{TotalDebit: totalDebit, TotalCredit: totalCredit}
	}
	return nil
}

// ValidateTx checks the rules that need DB state: accounts exist and are
// active, and the entry date falls in an open period. The one exception is
// the closing entry itself, which posts into the period being closed while
// its status is already closing.
func (input *NewJournalEntry) ValidateTx(tx *gorm.DB) (*AccountingPeriod, error) {
	period, err := FindPeriodForDate(tx, input.EntryDate)
	if err != nil {
		return nil, err
	}
	if period.Status != PeriodStatusOpen {
		closingException := input.SourceKind == SourceKindClosing && period.Status == PeriodStatusClosing
		if !closingException {
			return nil, &PeriodClosedError{Date: input.EntryDate, Period: period.Name, Status: period.Status}
		}
	}
	for _, line := range input.Lines {
		var account Account
		if err := tx.Where("id = ?", line.AccountId).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("account %d not found", line.AccountId)
			}
			return nil, err
		}
		if account.IsActive == nil || !*account.IsActive {
			return nil, &InactiveAccountError{AccountCode: account.Code}
		}
	}
	return period, nil
}

// CreateDraftEntry validates and persists the entry as a draft. Drafts carry
// no entry number; numbers are allocated at post time so voided drafts never
// burn a sequence value.
func CreateDraftEntry(ctx context.Context, input *NewJournalEntry) (*JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	kind := input.SourceKind
	if kind == "" {
		kind = SourceKindManual
	}

	userName, _ := utils.GetUserNameFromContext(ctx)
	entry := JournalEntry{
		EntryDate:   utils.StartOfDay(input.EntryDate),
		Description: input.Description,
		Status:      EntryStatusDraft,
		SourceKind:  kind,
		SourceId:    input.SourceId,
		IsReversal:  utils.NewFalse(),
		CreatedBy:   userName,
	}
	for _, line := range input.Lines {
		entry.Lines = append(entry.Lines, JournalLine{
			AccountId:        line.AccountId,
			Debit:            line.Debit,
			Credit:           line.Credit,
			Memo:             line.Memo,
			CounterpartyKind: line.CounterpartyKind,
			CounterpartyId:   line.CounterpartyId,
		})
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		period, err := input.ValidateTx(tx)
		if err != nil {
			return err
		}
		entry.PeriodId = period.ID
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func GetEntry(ctx context.Context, id int) (*JournalEntry, error) {
	var entry JournalEntry
	db := config.GetDB()
	err := db.WithContext(ctx).Preload("Lines").Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func GetEntryByNumber(ctx context.Context, number string) (*JournalEntry, error) {
	var entry JournalEntry
	db := config.GetDB()
	err := db.WithContext(ctx).Preload("Lines").Where("entry_number = ?", number).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetEntryBySource finds the posted entry for an upstream document, used both
// for idempotent re-posting and for void-by-source.
func GetEntryBySource(tx *gorm.DB, kind SourceKind, sourceId int) (*JournalEntry, error) {
	var entry JournalEntry
	err := tx.Preload("Lines").
		Where("source_kind = ? AND source_id = ?", kind, sourceId).
		Where("is_reversal = ?", false).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &entry, nil
}

type JournalEntryFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Status    *EntryStatus
	AccountId *int
	Kind      *SourceKind
	Limit     int
	Offset    int
}

func GetEntries(ctx context.Context, filter *JournalEntryFilter) ([]*JournalEntry, error) {
	db := config.GetDB().WithContext(ctx).Model(&JournalEntry{}).Preload("Lines")
	if filter != nil {
		if filter.FromDate != nil {
			db = db.Where("entry_date >= ?", utils.StartOfDay(*filter.FromDate))
		}
		if filter.ToDate != nil {
			db = db.Where("entry_date <= ?", utils.EndOfDay(*filter.ToDate))
		}
		if filter.Status != nil {
			db = db.Where("status = ?", *filter.Status)
		}
		if filter.Kind != nil {
			db = db.Where("source_kind = ?", *filter.Kind)
		}
		if filter.AccountId != nil {
			db = db.Where("id IN (?)",
				config.GetDB().Model(&JournalLine{}).Select("entry_id").Where("account_id = ?", *filter.AccountId))
		}
		if filter.Limit > 0 {
			db = db.Limit(filter.Limit).Offset(filter.Offset)
		}
	}
	var entries []*JournalEntry
	if err := db.Order("entry_date DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Totals returns the entry's debit and credit sums.
func (e *JournalEntry) Totals() (decimal.Decimal, decimal.Decimal) {
	debit := decimal.Zero
	credit := decimal.Zero
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// allowedPostedEntryUpdates are the only columns that may change after an
// entry is posted: the posting stamp itself, the status flip to voided, and
// the reversal back-link.
var allowedPostedEntryUpdates = map[string]bool{
	"status":               true,
	"reversed_by_entry_id": true,
	"void_reason":          true,
	"voided_at":            true,
	"updated_at":           true,
}

// currentEntryForStatement loads the row an update/delete statement targets.
// The hook receiver is an empty struct when the caller went through
// Model(&JournalEntry{}).Where(...).Updates(map), so when the receiver
// carries no id the statement's own WHERE conditions locate the row.
func currentEntryForStatement(tx *gorm.DB, op string, id int) (*JournalEntry, error) {
	query := tx.Session(&gorm.Session{NewDB: true}).Model(&JournalEntry{})
	if id > 0 {
		query = query.Where("id = ?", id)
	} else {
		c, ok := tx.Statement.Clauses["WHERE"]
		if !ok {
			return nil, &IntegrityError{Op: op, Detail: "statement has no target row"}
		}
		where, ok := c.Expression.(clause.Where)
		if !ok || len(where.Exprs) == 0 {
			return nil, &IntegrityError{Op: op, Detail: "statement has no target row"}
		}
		query = query.Clauses(clause.Where{Exprs: where.Exprs})
	}
	var current JournalEntry
	if err := query.First(&current).Error; err != nil {
		return nil, err
	}
	return &current, nil
}

// BeforeUpdate enforces ledger immutability at the lowest layer. Drafts are
// freely editable; posted entries accept only the void linkage; voided
// entries accept nothing.
func (e *JournalEntry) BeforeUpdate(tx *gorm.DB) error {
	current, err := currentEntryForStatement(tx, "JournalEntry.BeforeUpdate", e.ID)
	if err != nil {
		return err
	}
	if current.Status == EntryStatusDraft {
		return nil
	}
	if current.Status == EntryStatusVoided {
		return &IntegrityError{Op: "JournalEntry.BeforeUpdate",
			Detail: fmt.Sprintf("entry %s is voided and cannot change", current.EntryNumber)}
	}

	dest, ok := tx.Statement.Dest.(map[string]interface{})
	if !ok {
		return &IntegrityError{Op: "JournalEntry.BeforeUpdate",
			Detail: fmt.Sprintf("posted entry %s may only be updated with an explicit column map", current.EntryNumber)}
	}
	for column := range dest {
		if !allowedPostedEntryUpdates[column] {
			return &IntegrityError{Op: "JournalEntry.BeforeUpdate",
				Detail: fmt.Sprintf("column %q of posted entry %s is immutable", column, current.EntryNumber)}
		}
	}
	return nil
}

// BeforeDelete blocks deletion of anything but drafts. Posted entries are
// voided via reversal, never removed.
func (e *JournalEntry) BeforeDelete(tx *gorm.DB) error {
	current, err := currentEntryForStatement(tx, "JournalEntry.BeforeDelete", e.ID)
	if err != nil {
		return err
	}
	if current.Status != EntryStatusDraft {
		return &IntegrityError{Op: "JournalEntry.BeforeDelete",
			Detail: fmt.Sprintf("entry %s is %s and cannot be deleted", current.EntryNumber, current.Status)}
	}
	return nil
}

// BeforeUpdate on lines: a line may only change while its entry is a draft.
func (l *JournalLine) BeforeUpdate(tx *gorm.DB) error {
	return l.requireDraftEntry(tx, "JournalLine.BeforeUpdate")
}

func (l *JournalLine) BeforeDelete(tx *gorm.DB) error {
	return l.requireDraftEntry(tx, "JournalLine.BeforeDelete")
}

func (l *JournalLine) requireDraftEntry(tx *gorm.DB, op string) error {
	var entry JournalEntry
	err := tx.Session(&gorm.Session{NewDB: true}).
		Where("id = ?", l.EntryId).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if entry.Status != EntryStatusDraft {
		return &IntegrityError{Op: op,
			Detail: fmt.Sprintf("lines of %s entry %s are immutable", entry.Status, entry.EntryNumber)}
	}
	return nil
}

// DeleteDraftEntry removes a draft and its lines. The hooks reject anything
// already posted.
func DeleteDraftEntry(ctx context.Context, id int) error {
	entry, err := GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if entry.Status != EntryStatusDraft {
		return &IntegrityError{Op: "DeleteDraftEntry",
			Detail: fmt.Sprintf("entry %s is %s", entry.EntryNumber, entry.Status)}
	}
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range entry.Lines {
			if err := tx.Delete(&entry.Lines[i]).Error; err != nil {
				return err
			}
		}
		return tx.Delete(entry).Error
	})
}
