package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"gorm.io/gorm"
)

// MatchResult summarizes one auto-matching run.
type MatchResult struct {
	Matched   int `json:"matched"`
	Ambiguous int `json:"ambiguous"`
	Unmatched int `json:"unmatched"`
}

// AutoMatchStatementLines pairs unmatched statement lines with ledger lines
// on the bank's account. A statement line matches only when exactly one
// candidate has the same amount within the date window; zero candidates stay
// unmatched, two or more stay unmatched as ambiguous for a human to resolve.
// Amounts must be exact: near misses are discrepancies, not matches.
func AutoMatchStatementLines(ctx context.Context, bankAccountId int) (*MatchResult, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	bank, err := models.GetBankAccount(ctx, bankAccountId)
	if err != nil {
		return nil, fmt.Errorf("bank account not found")
	}
	windowDays := config.GetLedgerSettings().BankMatchWindowDays

	result := MatchResult{}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var statementLines []models.BankStatementLine
		err := tx.Where("bank_account_id = ? AND status = ?", bankAccountId, models.StatementLineUnmatched).
			Order("txn_date, id").
			Find(&statementLines).Error
		if err != nil {
			return err
		}

		for i := range statementLines {
			sl := &statementLines[i]
			candidates, err := matchCandidates(tx, bank.LedgerAccountId, sl, windowDays)
			if err != nil {
				return err
			}
			switch len(candidates) {
			case 0:
				result.Unmatched++
			case 1:
				if err := applyMatch(tx, sl.ID, candidates[0]); err != nil {
					return err
				}
				result.Matched++
			default:
				result.Ambiguous++
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, "workflow", "AutoMatchStatementLines", "matching failed", bankAccountId, err)
		return nil, err
	}

	logger.WithField("bank_account_id", bankAccountId).
		WithField("matched", result.Matched).
		WithField("ambiguous", result.Ambiguous).
		Info("bank statement auto-match complete")
	return &result, nil
}

// matchCandidates finds posted, not-yet-matched journal lines on the bank's
// ledger account with the exact amount inside the date window. A positive
// statement amount (deposit) corresponds to a debit on the bank account, a
// negative one to a credit.
func matchCandidates(tx *gorm.DB, ledgerAccountId int, sl *models.BankStatementLine, windowDays int) ([]int, error) {
	from := sl.TxnDate.AddDate(0, 0, -windowDays)
	to := utils.EndOfDay(sl.TxnDate.AddDate(0, 0, windowDays))

	query := tx.Model(&models.JournalLine{}).
		Select("journal_lines.id").
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.entry_id").
		Where("journal_lines.account_id = ?", ledgerAccountId).
		Where("journal_entries.status = ?", models.EntryStatusPosted).
		Where("journal_entries.entry_date BETWEEN ? AND ?", from, to).
		Where("journal_lines.id NOT IN (?)",
			tx.Session(&gorm.Session{NewDB: true}).
				Model(&models.BankStatementLine{}).
				Select("matched_line_id").
				Where("matched_line_id IS NOT NULL"))

	if sl.Amount.IsPositive() {
		query = query.Where("journal_lines.debit = ?", sl.Amount)
	} else {
		query = query.Where("journal_lines.credit = ?", sl.Amount.Neg())
	}

	var ids []int
	if err := query.Order("journal_lines.id").Find(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func applyMatch(tx *gorm.DB, statementLineId, journalLineId int) error {
	return tx.Model(&models.BankStatementLine{}).
		Where("id = ?", statementLineId).
		Updates(map[string]interface{}{
			"status":          models.StatementLineMatched,
			"matched_line_id": journalLineId,
		}).Error
}

// ManualMatch pairs a statement line with a chosen journal line when the
// auto-matcher found none or too many. The amount must still agree exactly.
func ManualMatch(ctx context.Context, statementLineId, journalLineId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sl models.BankStatementLine
		if err := tx.Where("id = ?", statementLineId).First(&sl).Error; err != nil {
			return err
		}
		if sl.Status != models.StatementLineUnmatched {
			return &models.IntegrityError{Op: "ManualMatch",
				Detail: fmt.Sprintf("statement line %d is %s", statementLineId, sl.Status)}
		}

		var jl models.JournalLine
		if err := tx.Where("id = ?", journalLineId).First(&jl).Error; err != nil {
			return err
		}
		var entry models.JournalEntry
		if err := tx.Where("id = ?", jl.EntryId).First(&entry).Error; err != nil {
			return err
		}
		if entry.Status != models.EntryStatusPosted {
			return &models.IntegrityError{Op: "ManualMatch",
				Detail: fmt.Sprintf("journal line %d belongs to a %s entry", journalLineId, entry.Status)}
		}

		if sl.Amount.IsPositive() {
			if !jl.Debit.Equal(sl.Amount) {
				return fmt.Errorf("amount mismatch: statement %s vs ledger debit %s",
					sl.Amount.StringFixed(2), jl.Debit.StringFixed(2))
			}
		} else {
			if !jl.Credit.Equal(sl.Amount.Neg()) {
				return fmt.Errorf("amount mismatch: statement %s vs ledger credit %s",
					sl.Amount.StringFixed(2), jl.Credit.StringFixed(2))
			}
		}

		var taken int64
		err := tx.Model(&models.BankStatementLine{}).
			Where("matched_line_id = ?", journalLineId).
			Count(&taken).Error
		if err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("journal line %d is already matched to another statement line", journalLineId)
		}

		return applyMatch(tx, statementLineId, journalLineId)
	})
}

// StartReconciliation opens a reconciliation for a statement date, snapshots
// the book balance as of that date, and recomputes the difference.
func StartReconciliation(ctx context.Context, bankAccountId int, statementDate time.Time, statementBalance string) (*models.BankReconciliation, error) {
	bank, err := models.GetBankAccount(ctx, bankAccountId)
	if err != nil {
		return nil, fmt.Errorf("bank account not found")
	}
	balance, err := utils.ParseAmount(statementBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid statement balance %q", statementBalance)
	}

	book, err := models.GetAccountBalance(ctx, bank.LedgerAccountId, statementDate)
	if err != nil {
		return nil, err
	}

	rec := models.BankReconciliation{
		BankAccountId:    bankAccountId,
		StatementDate:    utils.StartOfDay(statementDate),
		Status:           models.ReconciliationInProgress,
		StatementBalance: balance,
		BookBalance:      book,
	}
	rec.Recompute()

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateReconciliation saves the adjustment worksheet and recomputes the
// derived fields. Status moves to reconciled exactly when the difference
// reaches zero, and back to in_progress when an edit breaks it again.
func UpdateReconciliation(ctx context.Context, id int, adj models.ReconciliationAdjustments, notes string) (*models.BankReconciliation, error) {
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.BankReconciliation
		if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
			return err
		}
		if rec.Status == models.ReconciliationApproved {
			return &models.IntegrityError{Op: "UpdateReconciliation",
				Detail: fmt.Sprintf("reconciliation %d is approved", id)}
		}

		rec.DepositsInTransit = adj.DepositsInTransit
		rec.OutstandingPayments = adj.OutstandingPayments
		rec.UnrecordedFees = adj.UnrecordedFees
		rec.UnrecordedInterest = adj.UnrecordedInterest
		rec.Notes = notes
		rec.Recompute()

		status := models.ReconciliationInProgress
		if rec.IsBalanced() {
			status = models.ReconciliationReconciled
		}

		return tx.Model(&models.BankReconciliation{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"deposits_in_transit":   rec.DepositsInTransit,
				"outstanding_payments":  rec.OutstandingPayments,
				"unrecorded_fees":       rec.UnrecordedFees,
				"unrecorded_interest":   rec.UnrecordedInterest,
				"adjusted_book_balance": rec.AdjustedBookBalance,
				"difference":            rec.Difference,
				"notes":                 notes,
				"status":                status,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return models.GetReconciliation(ctx, id)
}

// ApproveReconciliation finalizes a reconciled worksheet: the difference must
// be exactly zero, and all matched statement lines up to the statement date
// become locked so no later run can steal their matches. The redis lock keeps
// two approvers from racing on the same bank account.
func ApproveReconciliation(ctx context.Context, id int) (*models.BankReconciliation, error) {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	rec, err := models.GetReconciliation(ctx, id)
	if err != nil {
		return nil, err
	}

	locker := config.GetRedisLock()
	if locker != nil {
		lockKey := fmt.Sprintf("reconciliation:approve:%d", rec.BankAccountId)
		lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
		if err != nil {
			return nil, fmt.Errorf("another approval is in progress for this bank account")
		}
		defer func() { _ = lock.Release(ctx) }()
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.BankReconciliation
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			return err
		}
		if current.Status == models.ReconciliationApproved {
			return nil
		}
		current.Recompute()
		if !current.IsBalanced() {
			return &models.NotReconciledError{Difference: current.Difference}
		}

		now := time.Now().UTC()
		err := tx.Model(&models.BankReconciliation{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":      models.ReconciliationApproved,
				"approved_by": userName,
				"approved_at": &now,
			}).Error
		if err != nil {
			return err
		}

		return tx.Model(&models.BankStatementLine{}).
			Where("bank_account_id = ?", current.BankAccountId).
			Where("status = ?", models.StatementLineMatched).
			Where("txn_date <= ?", utils.EndOfDay(current.StatementDate)).
			Updates(map[string]interface{}{
				"status":            models.StatementLineLocked,
				"reconciliation_id": id,
			}).Error
	})
	if err != nil {
		config.LogError(logger, "workflow", "ApproveReconciliation", "approval failed", id, err)
		return nil, err
	}

	logger.WithField("reconciliation_id", id).Info("bank reconciliation approved")
	return models.GetReconciliation(ctx, id)
}
