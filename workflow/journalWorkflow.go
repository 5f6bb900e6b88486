package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PostEntryTx validates, numbers and posts a new entry inside tx. All posting
// paths funnel through here so the invariants are enforced once: balanced
// lines, active accounts, open period, number allocated at post time, balance
// cache refreshed in the same transaction.
//
// Callers must run this on the connection that acquired the posting locks.
func PostEntryTx(tx *gorm.DB, logger *logrus.Logger, userName string, input *models.NewJournalEntry) (*models.JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	accountIds := make([]int, 0, len(input.Lines))
	seen := map[int]bool{}
	for _, line := range input.Lines {
		if !seen[line.AccountId] {
			seen[line.AccountId] = true
			accountIds = append(accountIds, line.AccountId)
		}
	}
	if err := AcquirePostingLocks(tx, accountIds); err != nil {
		return nil, err
	}
	defer ReleasePostingLocks(tx, accountIds)

	period, err := input.ValidateTx(tx)
	if err != nil {
		return nil, err
	}

	number, _, err := models.NextNumber(tx, models.NumberModuleJournal)
	if err != nil {
		return nil, err
	}

	kind := input.SourceKind
	if kind == "" {
		kind = models.SourceKindManual
	}
	now := time.Now().UTC()
	entry := models.JournalEntry{
		EntryNumber: number,
		EntryDate:   utils.StartOfDay(input.EntryDate),
		Description: input.Description,
		Status:      models.EntryStatusPosted,
		PeriodId:    period.ID,
		SourceKind:  kind,
		SourceId:    input.SourceId,
		IsReversal:  utils.NewFalse(),
		CreatedBy:   userName,
		PostedAt:    &now,
	}
	for _, line := range input.Lines {
		entry.Lines = append(entry.Lines, models.JournalLine{
			AccountId:        line.AccountId,
			Debit:            line.Debit,
			Credit:           line.Credit,
			Memo:             line.Memo,
			CounterpartyKind: line.CounterpartyKind,
			CounterpartyId:   line.CounterpartyId,
		})
	}

	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	if err := UpdateAccountBalances(tx, accountIds, now); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"entry_number": entry.EntryNumber,
		"entry_date":   entry.EntryDate.Format("2006-01-02"),
		"source_kind":  entry.SourceKind,
		"source_id":    entry.SourceId,
	}).Info("journal entry posted")
	return &entry, nil
}

// PostNewEntry creates and posts in one transaction. This is the path for
// manual journal entries that skip the draft stage.
func PostNewEntry(ctx context.Context, input *models.NewJournalEntry) (*models.JournalEntry, error) {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)

	var entry *models.JournalEntry
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = PostEntryTx(tx, logger, userName, input)
		return err
	})
	if err != nil {
		config.LogError(logger, "workflow", "PostNewEntry", "posting failed", input, err)
		return nil, err
	}
	return entry, nil
}

// PostDraftEntry promotes an existing draft to posted. The draft's lines are
// revalidated at post time; the draft may have been created before its period
// closed or an account was deactivated.
func PostDraftEntry(ctx context.Context, entryId int) (*models.JournalEntry, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	var posted *models.JournalEntry
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var draft models.JournalEntry
		if err := tx.Preload("Lines").Where("id = ?", entryId).First(&draft).Error; err != nil {
			return err
		}
		if draft.Status == models.EntryStatusPosted {
			posted = &draft
			return nil
		}
		if draft.Status != models.EntryStatusDraft {
			return &models.IntegrityError{Op: "PostDraftEntry",
				Detail: fmt.Sprintf("entry %d is %s", entryId, draft.Status)}
		}

		accountIds := entryAccountIds(&draft)
		if err := AcquirePostingLocks(tx, accountIds); err != nil {
			return err
		}
		defer ReleasePostingLocks(tx, accountIds)

		input := draftToInput(&draft)
		period, err := input.ValidateTx(tx)
		if err != nil {
			return err
		}

		number, _, err := models.NextNumber(tx, models.NumberModuleJournal)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		err = tx.Model(&models.JournalEntry{}).Where("id = ?", draft.ID).
			Updates(map[string]interface{}{
				"entry_number": number,
				"status":       models.EntryStatusPosted,
				"period_id":    period.ID,
				"posted_at":    &now,
			}).Error
		if err != nil {
			return err
		}
		if err := UpdateAccountBalances(tx, accountIds, now); err != nil {
			return err
		}

		draft.EntryNumber = number
		draft.Status = models.EntryStatusPosted
		draft.PeriodId = period.ID
		draft.PostedAt = &now
		posted = &draft

		logger.WithFields(logrus.Fields{
			"entry_number": number,
			"entry_date":   draft.EntryDate.Format("2006-01-02"),
		}).Info("draft journal entry posted")
		return nil
	})
	if err != nil {
		config.LogError(logger, "workflow", "PostDraftEntry", "posting failed", entryId, err)
		return nil, err
	}
	return posted, nil
}

func draftToInput(entry *models.JournalEntry) *models.NewJournalEntry {
	input := models.NewJournalEntry{
		EntryDate:   entry.EntryDate,
		Description: entry.Description,
		SourceKind:  entry.SourceKind,
		SourceId:    entry.SourceId,
	}
	for _, line := range entry.Lines {
		input.Lines = append(input.Lines, models.NewJournalLine{
			AccountId:        line.AccountId,
			Debit:            line.Debit,
			Credit:           line.Credit,
			Memo:             line.Memo,
			CounterpartyKind: line.CounterpartyKind,
			CounterpartyId:   line.CounterpartyId,
		})
	}
	return &input
}

// VoidEntry voids a posted entry by posting its reversal. The original keeps
// its lines and history; status becomes voided and both entries link to each
// other.
func VoidEntry(ctx context.Context, entryId int, reason string) (*models.JournalEntry, error) {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	var reversal *models.JournalEntry
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var original models.JournalEntry
		if err := tx.Preload("Lines").Where("id = ?", entryId).First(&original).Error; err != nil {
			return err
		}
		var err error
		reversal, err = ReverseEntryTx(tx, logger, userName, &original, reason)
		return err
	})
	if err != nil {
		config.LogError(logger, "workflow", "VoidEntry", "void failed", entryId, err)
		return nil, err
	}
	return reversal, nil
}
