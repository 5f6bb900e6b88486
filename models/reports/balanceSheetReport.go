package reports

import (
	"context"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// BalanceSheetReport is the cumulative position as of a date. CurrentEarnings
// is revenue minus expenses not yet swept into Retained Earnings by a period
// close; it sits in the equity section so the sheet always balances.
type BalanceSheetReport struct {
	AsOf             time.Time        `json:"asOf"`
	Assets           []*StatementNode `json:"assets"`
	Liabilities      []*StatementNode `json:"liabilities"`
	Equity           []*StatementNode `json:"equity"`
	CurrentEarnings  decimal.Decimal  `json:"currentEarnings"`
	TotalAssets      decimal.Decimal  `json:"totalAssets"`
	TotalLiabilities decimal.Decimal  `json:"totalLiabilities"`
	TotalEquity      decimal.Decimal  `json:"totalEquity"`
}

const balanceSheetSQL = `
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
              AND entry_date <= @asOf
        )
GROUP BY
    accounts.id, accounts.code, accounts.name, accounts.parent_id,
    accounts.account_type, accounts.normal_balance
ORDER BY
    accounts.code;
`

// GetBalanceSheetReport reports assets, liabilities and equity as of a date.
// Every posting since the beginning of the ledger participates; the date only
// caps the range.
func GetBalanceSheetReport(ctx context.Context, asOf time.Time) (*BalanceSheetReport, error) {
	cacheKey := reportCacheKey("balance-sheet", asOf.Format("2006-01-02"))
	return cachedReport(cacheKey, func() (*BalanceSheetReport, error) {
		return computeBalanceSheet(ctx, asOf)
	})
}

func computeBalanceSheet(ctx context.Context, asOf time.Time) (*BalanceSheetReport, error) {
	var rows []*accountAmount
	db := config.GetDB()
	err := db.WithContext(ctx).Raw(balanceSheetSQL, map[string]interface{}{
		"asOf": utils.EndOfDay(asOf),
	}).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var assetRows, liabilityRows, equityRows []*accountAmount
	earnings := decimal.Zero
	for _, row := range rows {
		switch row.AccountType {
		case models.AccountTypeAsset:
			assetRows = append(assetRows, row)
		case models.AccountTypeLiability:
			liabilityRows = append(liabilityRows, row)
		case models.AccountTypeEquity:
			equityRows = append(equityRows, row)
		case models.AccountTypeRevenue:
			earnings = earnings.Add(row.signed())
		case models.AccountTypeExpense:
			earnings = earnings.Sub(row.signed())
		}
	}

	report := BalanceSheetReport{
		AsOf:            utils.StartOfDay(asOf),
		Assets:          buildTree(assetRows),
		Liabilities:     buildTree(liabilityRows),
		Equity:          buildTree(equityRows),
		CurrentEarnings: earnings,
	}
	report.TotalAssets = sumNodes(report.Assets)
	report.TotalLiabilities = sumNodes(report.Liabilities)
	report.TotalEquity = sumNodes(report.Equity).Add(earnings)
	return &report, nil
}
