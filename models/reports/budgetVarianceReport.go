package reports

import (
	"context"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// BudgetVarianceRow compares one account's plan against actuals for a single
// month. Variance is actual minus planned, so overspending an expense budget
// shows positive. VariancePercent is nil when nothing was planned; a percent
// of zero would misread as "on budget".
type BudgetVarianceRow struct {
	AccountCode     string           `json:"accountCode"`
	AccountName     string           `json:"accountName"`
	Month           string           `json:"month"` // "2026-01"
	Planned         decimal.Decimal  `json:"planned"`
	Actual          decimal.Decimal  `json:"actual"`
	Variance        decimal.Decimal  `json:"variance"`
	VariancePercent *decimal.Decimal `json:"variancePercent,omitempty"`
}

// variancePercent is variance over planned, in percent rounded to two
// places. Nil when planned is zero.
func variancePercent(planned, variance decimal.Decimal) *decimal.Decimal {
	if planned.IsZero() {
		return nil
	}
	pct := variance.Div(planned).Mul(decimal.NewFromInt(100)).Round(2)
	return &pct
}

const monthlyActualsSQL = `
SELECT
    accounts.id AS account_id,
    accounts.code AS code,
    accounts.name AS name,
    accounts.parent_id AS parent_id,
    accounts.account_type AS account_type,
    accounts.normal_balance AS normal_balance,
    MONTH(journal_entries.entry_date) AS month,
    COALESCE(SUM(journal_lines.debit), 0) AS debit,
    COALESCE(SUM(journal_lines.credit), 0) AS credit
FROM
    journal_lines
    JOIN journal_entries ON journal_entries.id = journal_lines.entry_id
    JOIN accounts ON accounts.id = journal_lines.account_id
WHERE
    journal_entries.status IN ('posted', 'voided')
    AND journal_entries.source_kind <> 'closing'
    AND journal_entries.entry_date BETWEEN @fromDate AND @toDate
GROUP BY
    accounts.id, accounts.code, accounts.name, accounts.parent_id,
    accounts.account_type, accounts.normal_balance,
    MONTH(journal_entries.entry_date);
`

type monthlyActual struct {
	accountAmount
	Month int `gorm:"column:month"`
}

// GetBudgetVarianceReport lines up each budgeted account's plan against its
// actual signed activity, month by month for one year. Accounts without a
// budget row are omitted; a budget against an account with no activity shows
// actual zero.
func GetBudgetVarianceReport(ctx context.Context, year int) ([]*BudgetVarianceRow, error) {
	budgets, err := models.GetBudgetsForYear(ctx, year)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return nil, nil
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	var actuals []*monthlyActual
	db := config.GetDB()
	err = db.WithContext(ctx).Raw(monthlyActualsSQL, map[string]interface{}{
		"fromDate": from,
		"toDate":   utils.EndOfDay(to),
	}).Scan(&actuals).Error
	if err != nil {
		return nil, err
	}

	type key struct {
		accountId int
		month     int
	}
	actualByKey := make(map[key]decimal.Decimal, len(actuals))
	for _, a := range actuals {
		actualByKey[key{a.AccountId, a.Month}] = a.signed()
	}

	var rows []*BudgetVarianceRow
	for _, budget := range budgets {
		account, err := models.GetAccount(ctx, budget.AccountId)
		if err != nil {
			return nil, err
		}
		for m := time.January; m <= time.December; m++ {
			planned := budget.MonthAmount(m)
			actual := actualByKey[key{budget.AccountId, int(m)}]
			if planned.IsZero() && actual.IsZero() {
				continue
			}
			variance := actual.Sub(planned)
			rows = append(rows, &BudgetVarianceRow{
				AccountCode:     account.Code,
				AccountName:     account.Name,
				Month:           time.Date(year, m, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
				Planned:         planned,
				Actual:          actual,
				Variance:        variance,
				VariancePercent: variancePercent(planned, variance),
			})
		}
	}
	return rows, nil
}
