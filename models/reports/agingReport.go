package reports

import (
	"context"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// AgingBucket names the five standard buckets.
type AgingBucket string

const (
	BucketCurrent AgingBucket = "current"
	Bucket1To30   AgingBucket = "1-30"
	Bucket31To60  AgingBucket = "31-60"
	Bucket61To90  AgingBucket = "61-90"
	BucketOver90  AgingBucket = "90+"
)

// AgingBucketFor places a document by days overdue. Not yet due (zero or
// negative) is current; day 30 is still the first bucket, day 31 the second.
func AgingBucketFor(daysOverdue int) AgingBucket {
	switch {
	case daysOverdue <= 0:
		return BucketCurrent
	case daysOverdue <= 30:
		return Bucket1To30
	case daysOverdue <= 60:
		return Bucket31To60
	case daysOverdue <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// AgingRow is one counterparty's open balance split across buckets.
type AgingRow struct {
	CounterpartyId   int             `gorm:"column:counterparty_id" json:"counterpartyId"`
	CounterpartyName string          `gorm:"column:counterparty_name" json:"counterpartyName"`
	Current          decimal.Decimal `gorm:"column:current" json:"current"`
	Int1To30         decimal.Decimal `gorm:"column:int1_to30" json:"int1to30"`
	Int31To60        decimal.Decimal `gorm:"column:int31_to60" json:"int31to60"`
	Int61To90        decimal.Decimal `gorm:"column:int61_to90" json:"int61to90"`
	Over90           decimal.Decimal `gorm:"column:over90" json:"over90"`
	Total            decimal.Decimal `gorm:"column:total" json:"total"`
	DocumentCount    int             `gorm:"column:document_count" json:"documentCount"`
}

const apAgingSQL = `
WITH BillAging AS (
    SELECT
        b.vendor_id AS counterparty_id,
        b.total - b.amount_paid AS open_balance,
        DATEDIFF(@asOf, b.due_date) AS days_overdue
    FROM
        bills b
    WHERE
        b.status IN ('approved', 'partial')
        AND b.bill_date <= @asOf
        AND b.total - b.amount_paid > 0
)
SELECT
    counterparty_id,
    vendors.name AS counterparty_name,
    COUNT(*) AS document_count,
    SUM(open_balance) AS total,
    SUM(CASE WHEN days_overdue <= 0 THEN open_balance ELSE 0 END) AS current,
    SUM(CASE WHEN days_overdue BETWEEN 1 AND 30 THEN open_balance ELSE 0 END) AS int1_to30,
    SUM(CASE WHEN days_overdue BETWEEN 31 AND 60 THEN open_balance ELSE 0 END) AS int31_to60,
    SUM(CASE WHEN days_overdue BETWEEN 61 AND 90 THEN open_balance ELSE 0 END) AS int61_to90,
    SUM(CASE WHEN days_overdue > 90 THEN open_balance ELSE 0 END) AS over90
FROM
    BillAging
    LEFT JOIN vendors ON vendors.id = BillAging.counterparty_id
GROUP BY
    counterparty_id, vendors.name
ORDER BY
    counterparty_id;
`

const arAgingSQL = `
WITH InvoiceAging AS (
    SELECT
        i.customer_id AS counterparty_id,
        i.total - i.amount_paid AS open_balance,
        DATEDIFF(@asOf, i.due_date) AS days_overdue
    FROM
        invoices i
    WHERE
        i.status IN ('issued', 'partial')
        AND i.invoice_date <= @asOf
        AND i.total - i.amount_paid > 0
)
SELECT
    counterparty_id,
    customers.name AS counterparty_name,
    COUNT(*) AS document_count,
    SUM(open_balance) AS total,
    SUM(CASE WHEN days_overdue <= 0 THEN open_balance ELSE 0 END) AS current,
    SUM(CASE WHEN days_overdue BETWEEN 1 AND 30 THEN open_balance ELSE 0 END) AS int1_to30,
    SUM(CASE WHEN days_overdue BETWEEN 31 AND 60 THEN open_balance ELSE 0 END) AS int31_to60,
    SUM(CASE WHEN days_overdue BETWEEN 61 AND 90 THEN open_balance ELSE 0 END) AS int61_to90,
    SUM(CASE WHEN days_overdue > 90 THEN open_balance ELSE 0 END) AS over90
FROM
    InvoiceAging
    LEFT JOIN customers ON customers.id = InvoiceAging.counterparty_id
GROUP BY
    counterparty_id, customers.name
ORDER BY
    counterparty_id;
`

// GetAgingReport returns the AP or AR aging summary as of a date. Days
// overdue count from each document's due date, so the same report for the
// same as-of date is always identical.
func GetAgingReport(ctx context.Context, side models.AgingSide, asOf time.Time) ([]*AgingRow, error) {
	sql := apAgingSQL
	if side == models.AgingSideReceivable {
		sql = arAgingSQL
	}

	var rows []*AgingRow
	db := config.GetDB()
	err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"asOf": utils.EndOfDay(asOf),
	}).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
