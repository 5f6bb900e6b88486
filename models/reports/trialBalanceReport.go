package reports

import (
	"context"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one account's raw debit/credit totals as of a date.
type TrialBalanceRow struct {
	AccountCode string          `gorm:"column:code" json:"accountCode"`
	AccountName string          `gorm:"column:name" json:"accountName"`
	Debit       decimal.Decimal `gorm:"column:debit" json:"debit"`
	Credit      decimal.Decimal `gorm:"column:credit" json:"credit"`
}

type TrialBalanceReport struct {
	AsOf        time.Time          `json:"asOf"`
	Rows        []*TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal    `json:"totalDebit"`
	TotalCredit decimal.Decimal    `json:"totalCredit"`
}

const trialBalanceSQL = `
SELECT
    accounts.code AS code,
    accounts.name AS name,
    COALESCE(SUM(journal_lines.debit), 0) AS debit,
    COALESCE(SUM(journal_lines.credit), 0) AS credit
FROM
    accounts
    JOIN journal_lines ON journal_lines.account_id = accounts.id
        AND journal_lines.entry_id IN (
            SELECT id FROM journal_entries
            WHERE status IN ('posted', 'voided')
              AND entry_date <= @asOf
        )
GROUP BY
    accounts.code, accounts.name
ORDER BY
    accounts.code;
`

// GetTrialBalanceReport lists every account with activity and its gross
// debit/credit totals. Total debits always equal total credits; a difference
// means corrupted data, not a report bug.
func GetTrialBalanceReport(ctx context.Context, asOf time.Time) (*TrialBalanceReport, error) {
	var rows []*TrialBalanceRow
	db := config.GetDB()
	err := db.WithContext(ctx).Raw(trialBalanceSQL, map[string]interface{}{
		"asOf": utils.EndOfDay(asOf),
	}).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	report := TrialBalanceReport{
		AsOf: utils.StartOfDay(asOf),
		Rows: rows,
	}
	for _, row := range rows {
		report.TotalDebit = report.TotalDebit.Add(row.Debit)
		report.TotalCredit = report.TotalCredit.Add(row.Credit)
	}
	return &report, nil
}
