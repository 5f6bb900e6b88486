package workflow

import (
	"fmt"
	"time"

	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReverseEntryTx posts the reversal of original and marks the original
// voided.
//
// Posted entries are never deleted or edited: the reversal carries the same
// lines with debit and credit swapped, so the two together net to zero on
// every account. The reversal is dated today (not the original's date) so a
// void after period close lands in the open period.
//
// Idempotent: an already reversed original returns the existing reversal.
func ReverseEntryTx(tx *gorm.DB, logger *logrus.Logger, userName string, original *models.JournalEntry, reason string) (*models.JournalEntry, error) {
	if tx == nil || original == nil {
		return nil, fmt.Errorf("reverse entry: tx/original is nil")
	}
	if original.Status == models.EntryStatusDraft {
		return nil, &models.IntegrityError{Op: "ReverseEntryTx",
			Detail: fmt.Sprintf("entry %d is a draft; delete it instead of voiding", original.ID)}
	}
	if original.ReversedByEntryId != nil && *original.ReversedByEntryId > 0 {
		var existing models.JournalEntry
		if err := tx.Preload("Lines").Where("id = ?", *original.ReversedByEntryId).First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if original.IsReversal != nil && *original.IsReversal {
		return nil, &models.IntegrityError{Op: "ReverseEntryTx",
			Detail: fmt.Sprintf("entry %s is itself a reversal", original.EntryNumber)}
	}

	if original.Lines == nil {
		var loaded models.JournalEntry
		if err := tx.Preload("Lines").Where("id = ?", original.ID).First(&loaded).Error; err != nil {
			return nil, err
		}
		original = &loaded
	}

	accountIds := entryAccountIds(original)
	if err := AcquirePostingLocks(tx, accountIds); err != nil {
		return nil, err
	}
	defer ReleasePostingLocks(tx, accountIds)

	now := time.Now().UTC()
	reversalDate := utils.StartOfDay(now)
	period, err := models.ValidatePostingPeriod(tx, reversalDate)
	if err != nil {
		return nil, err
	}

	number, _, err := models.NextNumber(tx, models.NumberModuleJournal)
	if err != nil {
		return nil, err
	}

	reversal := models.JournalEntry{
		EntryNumber:     number,
		EntryDate:       reversalDate,
		Description:     "Reversal of " + original.EntryNumber + ": " + reason,
		Status:          models.EntryStatusPosted,
		PeriodId:        period.ID,
		SourceKind:      original.SourceKind,
		SourceId:        original.SourceId,
		IsReversal:      utils.NewTrue(),
		ReversesEntryId: &original.ID,
		CreatedBy:       userName,
		PostedAt:        &now,
	}
	for _, line := range original.Lines {
		reversal.Lines = append(reversal.Lines, models.JournalLine{
			AccountId:        line.AccountId,
			Debit:            line.Credit,
			Credit:           line.Debit,
			Memo:             line.Memo,
			CounterpartyKind: line.CounterpartyKind,
			CounterpartyId:   line.CounterpartyId,
		})
	}

	if err := tx.Create(&reversal).Error; err != nil {
		return nil, err
	}

	reasonCopy := reason
	err = tx.Model(&models.JournalEntry{}).
		Where("id = ?", original.ID).
		Updates(map[string]interface{}{
			"status":               models.EntryStatusVoided,
			"reversed_by_entry_id": reversal.ID,
			"void_reason":          &reasonCopy,
			"voided_at":            &now,
		}).Error
	if err != nil {
		return nil, err
	}

	if err := UpdateAccountBalances(tx, accountIds, now); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"original_number": original.EntryNumber,
		"reversal_number": reversal.EntryNumber,
		"reason":          reason,
	}).Info("journal entry voided via reversal")
	return &reversal, nil
}
