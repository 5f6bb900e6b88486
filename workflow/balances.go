package workflow

import (
	"time"

	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UpdateAccountBalances recomputes the cached balance of each account from
// its journal lines and stamps balance_as_of. Runs inside the posting
// transaction so the cache can never be observed out of step with the lines.
//
// The cache covers every posted line, including future-dated ones (legal in
// an open period), so balance_as_of advances to the latest included entry
// date when that lies past asOf. The stamp always bounds what the sum holds.
func UpdateAccountBalances(tx *gorm.DB, accountIds []int, asOf time.Time) error {
	for _, id := range accountIds {
		var account models.Account
		if err := tx.Where("id = ?", id).First(&account).Error; err != nil {
			return err
		}

		type sums struct {
			Debit     decimal.Decimal
			Credit    decimal.Decimal
			LastEntry *time.Time
		}
		var s sums
		err := tx.Model(&models.JournalLine{}).
			Select("COALESCE(SUM(journal_lines.debit),0) AS debit, "+
				"COALESCE(SUM(journal_lines.credit),0) AS credit, "+
				"MAX(journal_entries.entry_date) AS last_entry").
			Joins("JOIN journal_entries ON journal_entries.id = journal_lines.entry_id").
			Where("journal_lines.account_id = ?", id).
			Where("journal_entries.status IN ?", []models.EntryStatus{models.EntryStatusPosted, models.EntryStatusVoided}).
			Scan(&s).Error
		if err != nil {
			return err
		}

		balance := models.SignedBalance(account.NormalBalance, s.Debit, s.Credit)
		stamp := balanceStamp(asOf, s.LastEntry)
		err = tx.Model(&models.Account{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"balance":       balance,
				"balance_as_of": stamp,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// balanceStamp returns the later of the posting time and the newest entry
// date the sum included.
func balanceStamp(asOf time.Time, lastEntry *time.Time) time.Time {
	if lastEntry != nil && lastEntry.After(asOf) {
		return *lastEntry
	}
	return asOf
}

// entryAccountIds collects the distinct account ids an entry touches.
func entryAccountIds(entry *models.JournalEntry) []int {
	seen := make(map[int]bool, len(entry.Lines))
	ids := make([]int, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		if !seen[line.AccountId] {
			seen[line.AccountId] = true
			ids = append(ids, line.AccountId)
		}
	}
	return ids
}
