package workflow

import (
	"context"
	"fmt"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ClosePeriod runs the month-end close:
//
//  1. flip the period to closing, which shuts the posting gate for everyone
//     else while the closing entry is being computed
//  2. net every revenue and expense account over the period and post one
//     closing entry that zeroes them against Retained Earnings
//  3. mark the period closed and remember the closing entry
//
// The steps are individually idempotent, so a close that died between 1 and 3
// can simply be run again.
func ClosePeriod(ctx context.Context, periodId int) (*models.AccountingPeriod, error) {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	period, err := models.GetPeriod(ctx, periodId)
	if err != nil {
		return nil, err
	}
	switch period.Status {
	case models.PeriodStatusClosed, models.PeriodStatusLocked:
		return period, nil
	case models.PeriodStatusOpen, models.PeriodStatusClosing:
	default:
		return nil, &models.IntegrityError{Op: "ClosePeriod",
			Detail: fmt.Sprintf("period %s has unknown status %s", period.Name, period.Status)}
	}

	retained, err := models.GetAccountByCode(ctx, config.GetLedgerSettings().RetainedEarningsCode)
	if err != nil {
		return nil, fmt.Errorf("retained earnings account not configured: %w", err)
	}

	// Step 1: shut the gate. Committed on its own so concurrent postings see
	// it immediately.
	if period.Status == models.PeriodStatusOpen {
		if err := models.TransitionPeriod(db.WithContext(ctx), period.ID, models.PeriodStatusClosing); err != nil {
			return nil, err
		}
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Reload under the transaction; another worker may have finished the
		// close between our read and here.
		var current models.AccountingPeriod
		if err := tx.Where("id = ?", period.ID).First(&current).Error; err != nil {
			return err
		}
		if current.Status == models.PeriodStatusClosed || current.Status == models.PeriodStatusLocked {
			return nil
		}

		if current.ClosingEntryId == nil {
			entryId, err := postClosingEntry(tx, logger, userName, &current, retained)
			if err != nil {
				return err
			}
			if entryId > 0 {
				if err := tx.Model(&models.AccountingPeriod{}).Where("id = ?", current.ID).
					Update("closing_entry_id", entryId).Error; err != nil {
					return err
				}
			}
		}

		return models.TransitionPeriod(tx, current.ID, models.PeriodStatusClosed)
	})
	if err != nil {
		config.LogError(logger, "workflow", "ClosePeriod", "close failed", periodId, err)
		return nil, err
	}

	logger.WithField("period", period.Name).Info("accounting period closed")
	return models.GetPeriod(ctx, periodId)
}

// postClosingEntry zeroes every revenue and expense account for the period
// against Retained Earnings. Returns 0 when the period had no P&L activity.
func postClosingEntry(tx *gorm.DB, logger *logrus.Logger, userName string, period *models.AccountingPeriod, retained *models.Account) (int, error) {
	type row struct {
		AccountId     int
		NormalBalance models.NormalBalance
		Debit         decimal.Decimal
		Credit        decimal.Decimal
	}
	var rows []row
	err := tx.Model(&models.JournalLine{}).
		Select("journal_lines.account_id AS account_id, accounts.normal_balance AS normal_balance, "+
			"COALESCE(SUM(journal_lines.debit),0) AS debit, COALESCE(SUM(journal_lines.credit),0) AS credit").
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.entry_id").
		Joins("JOIN accounts ON accounts.id = journal_lines.account_id").
		Where("journal_entries.status IN ?", []models.EntryStatus{models.EntryStatusPosted, models.EntryStatusVoided}).
		Where("journal_entries.entry_date BETWEEN ? AND ?", period.StartDate, utils.EndOfDay(period.EndDate)).
		Where("accounts.account_type IN ?", []models.AccountType{models.AccountTypeRevenue, models.AccountTypeExpense}).
		Group("journal_lines.account_id, accounts.normal_balance").
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	input := models.NewJournalEntry{
		EntryDate:   period.EndDate,
		Description: fmt.Sprintf("Closing entry for %s", period.Name),
		SourceKind:  models.SourceKindClosing,
		SourceId:    period.ID,
	}
	netIncome := decimal.Zero
	for _, r := range rows {
		net := models.SignedBalance(r.NormalBalance, r.Debit, r.Credit)
		if net.IsZero() {
			continue
		}
		// Closing a credit-normal (revenue) account means debiting it by its
		// net, and the mirror for debit-normal (expense) accounts. A negative
		// net flips the side.
		line := models.NewJournalLine{AccountId: r.AccountId, Memo: "period close"}
		if r.NormalBalance == models.NormalBalanceCredit {
			netIncome = netIncome.Add(net)
			if net.IsPositive() {
				line.Debit = net
			} else {
				line.Credit = net.Neg()
			}
		} else {
			netIncome = netIncome.Sub(net)
			if net.IsPositive() {
				line.Credit = net
			} else {
				line.Debit = net.Neg()
			}
		}
		input.Lines = append(input.Lines, line)
	}
	if len(input.Lines) == 0 {
		return 0, nil
	}

	retainedLine := models.NewJournalLine{AccountId: retained.ID, Memo: "net income"}
	if netIncome.IsPositive() {
		retainedLine.Credit = netIncome
	} else {
		retainedLine.Debit = netIncome.Neg()
	}
	if !netIncome.IsZero() {
		input.Lines = append(input.Lines, retainedLine)
	}

	entry, err := PostEntryTx(tx, logger, userName, &input)
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// CloseFiscalYear closes every remaining period of the year in order, then
// marks the year closed. Monthly closes already moved each month's net income
// into Retained Earnings, so no extra year-end entry is needed.
func CloseFiscalYear(ctx context.Context, fiscalYearId int) error {
	logger := config.GetLogger()
	db := config.GetDB()

	var year models.FiscalYear
	err := db.WithContext(ctx).Preload("Periods", func(db *gorm.DB) *gorm.DB {
		return db.Order("start_date")
	}).Where("id = ?", fiscalYearId).First(&year).Error
	if err != nil {
		return err
	}
	if year.Status == models.PeriodStatusClosed || year.Status == models.PeriodStatusLocked {
		return nil
	}

	for _, period := range year.Periods {
		if period.Status == models.PeriodStatusClosed || period.Status == models.PeriodStatusLocked {
			continue
		}
		if _, err := ClosePeriod(ctx, period.ID); err != nil {
			return fmt.Errorf("closing %s: %w", period.Name, err)
		}
	}

	if err := db.WithContext(ctx).Model(&models.FiscalYear{}).
		Where("id = ?", fiscalYearId).
		Update("status", models.PeriodStatusClosed).Error; err != nil {
		return err
	}
	logger.WithField("fiscal_year", year.Name).Info("fiscal year closed")
	return nil
}
