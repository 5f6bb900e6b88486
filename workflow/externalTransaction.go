package workflow

import (
	"context"
	"fmt"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"gorm.io/gorm"
)

// ExternalTransaction is what upstream producers (practice management,
// payroll, inventory) send when an event needs a ledger effect. The producer
// names accounts by code and supplies a stable idempotency key so at-least-
// once delivery posts exactly once.
type ExternalTransaction struct {
	IdempotencyKey string                    `json:"idempotency_key" binding:"required"`
	SourceKind     models.SourceKind         `json:"source_kind" binding:"required"`
	SourceId       int                       `json:"source_id" binding:"required"`
	EntryDate      string                    `json:"entry_date" binding:"required"` // 2006-01-02
	Description    string                    `json:"description"`
	Lines          []ExternalTransactionLine `json:"lines" binding:"required"`
}

type ExternalTransactionLine struct {
	AccountCode string `json:"account_code" binding:"required"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Memo        string `json:"memo"`
}

// RecordExternalTransaction posts an upstream event to the ledger, exactly
// once per idempotency key. A replayed key returns the entry the first
// delivery produced.
//
// The switch on SourceKind is deliberately closed: a producer inventing a new
// kind fails loudly instead of posting under a silently accepted tag.
func RecordExternalTransaction(ctx context.Context, input *ExternalTransaction) (*models.JournalEntry, error) {
	logger := config.GetLogger()

	switch input.SourceKind {
	case models.SourceKindInvoice, models.SourceKindBillPayment,
		models.SourceKindPayrollRun, models.SourceKindInventoryAdjustment,
		models.SourceKindManual:
	case models.SourceKindBill, models.SourceKindInvoicePayment, models.SourceKindClosing:
		return nil, fmt.Errorf("source kind %q is internal and cannot be posted externally", input.SourceKind)
	default:
		return nil, fmt.Errorf("unknown source kind %q", input.SourceKind)
	}

	entryInput, err := buildEntryInput(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := entryInput.Validate(); err != nil {
		return nil, err
	}

	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	// The key row commits before posting so a FAILED status survives the
	// posting transaction's rollback.
	doneEntryId, err := BeginIdempotency(db.WithContext(ctx), input.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if doneEntryId > 0 {
		return models.GetEntry(ctx, doneEntryId)
	}

	var entry *models.JournalEntry
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posted, err := PostEntryTx(tx, logger, userName, entryInput)
		if err != nil {
			return err
		}
		if err := MarkIdempotencySucceeded(tx, input.IdempotencyKey, posted.ID); err != nil {
			return err
		}
		entry = posted
		return nil
	})
	if err != nil {
		_ = MarkIdempotencyFailed(db.WithContext(ctx), input.IdempotencyKey, err)
		config.LogError(logger, "workflow", "RecordExternalTransaction", "external posting failed", input.IdempotencyKey, err)
		return nil, err
	}
	return entry, nil
}

func buildEntryInput(ctx context.Context, input *ExternalTransaction) (*models.NewJournalEntry, error) {
	entryDate, err := utils.ParseDate(input.EntryDate)
	if err != nil {
		return nil, fmt.Errorf("invalid entry_date %q", input.EntryDate)
	}

	entryInput := models.NewJournalEntry{
		EntryDate:   entryDate,
		Description: input.Description,
		SourceKind:  input.SourceKind,
		SourceId:    input.SourceId,
	}
	for i, line := range input.Lines {
		account, err := models.GetAccountByCode(ctx, line.AccountCode)
		if err != nil {
			return nil, fmt.Errorf("line %d: account code %q not found", i+1, line.AccountCode)
		}
		debit, err := utils.ParseAmount(line.Debit)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid debit %q", i+1, line.Debit)
		}
		credit, err := utils.ParseAmount(line.Credit)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid credit %q", i+1, line.Credit)
		}
		entryInput.Lines = append(entryInput.Lines, models.NewJournalLine{
			AccountId: account.ID,
			Debit:     debit,
			Credit:    credit,
			Memo:      line.Memo,
		})
	}
	return &entryInput, nil
}
