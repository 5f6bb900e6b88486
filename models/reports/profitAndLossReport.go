package reports

import (
	"context"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// ProfitAndLossReport covers a date range. Revenue and expense figures are
// the signed activity inside the range only; the balance sheet owns the
// cumulative view.
type ProfitAndLossReport struct {
	FromDate  time.Time        `json:"fromDate"`
	ToDate    time.Time        `json:"toDate"`
	Revenue   []*StatementNode `json:"revenue"`
	Expenses  []*StatementNode `json:"expenses"`
	TotalRev  decimal.Decimal  `json:"totalRevenue"`
	TotalExp  decimal.Decimal  `json:"totalExpenses"`
	NetIncome decimal.Decimal  `json:"netIncome"`
}

const plSQL = `
SELECT
    accounts.id AS account_id,
    accounts.code AS code,
    accounts.name AS name,
    accounts.parent_id AS parent_id,
    accounts.account_type AS account_type,
    accounts.normal_balance AS normal_balance,
    COALESCE(SUM(journal_lines.debit), 0) AS debit,
    COALESCE(SUM(journal_lines.credit), 0) AS credit
FROM
    accounts
    LEFT JOIN journal_lines ON journal_lines.account_id = accounts.id
        AND journal_lines.entry_id IN (
            SELECT id FROM journal_entries
            WHERE status IN ('posted', 'voided')
              AND source_kind <> 'closing'
              AND entry_date BETWEEN @fromDate AND @toDate
        )
WHERE
    accounts.account_type IN ('revenue', 'expense')
GROUP BY
    accounts.id, accounts.code, accounts.name, accounts.parent_id,
    accounts.account_type, accounts.normal_balance
ORDER BY
    accounts.code;
`

// GetProfitAndLossReport sums revenue and expense activity between two dates
// inclusive. Closing entries are excluded so a closed month reports the same
// P&L it showed while open.
func GetProfitAndLossReport(ctx context.Context, from, to time.Time) (*ProfitAndLossReport, error) {
	cacheKey := reportCacheKey("pl", from.Format("2006-01-02"), to.Format("2006-01-02"))
	return cachedReport(cacheKey, func() (*ProfitAndLossReport, error) {
		return computeProfitAndLoss(ctx, from, to)
	})
}

func computeProfitAndLoss(ctx context.Context, from, to time.Time) (*ProfitAndLossReport, error) {
	var rows []*accountAmount
	db := config.GetDB()
	err := db.WithContext(ctx).Raw(plSQL, map[string]interface{}{
		"fromDate": utils.StartOfDay(from),
		"toDate":   utils.EndOfDay(to),
	}).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var revenueRows, expenseRows []*accountAmount
	for _, row := range rows {
		if row.AccountType == models.AccountTypeRevenue {
			revenueRows = append(revenueRows, row)
		} else {
			expenseRows = append(expenseRows, row)
		}
	}

	report := ProfitAndLossReport{
		FromDate: utils.StartOfDay(from),
		ToDate:   utils.StartOfDay(to),
		Revenue:  buildTree(revenueRows),
		Expenses: buildTree(expenseRows),
	}
	report.TotalRev = sumNodes(report.Revenue)
	report.TotalExp = sumNodes(report.Expenses)
	report.NetIncome = report.TotalRev.Sub(report.TotalExp)
	return &report, nil
}
