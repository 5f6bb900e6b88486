package models

import (
	"gorm.io/gorm"
)

// AutoMigrate creates or updates every ledger table, then seeds the number
// series. Order matters only for readability; gorm resolves references.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Account{},
		&FiscalYear{},
		&AccountingPeriod{},
		&NumberSeries{},
		&JournalEntry{},
		&JournalLine{},
		&Vendor{},
		&Customer{},
		&Bill{},
		&BillLine{},
		&BillPayment{},
		&Invoice{},
		&InvoiceLine{},
		&InvoicePayment{},
		&BankAccount{},
		&BankStatementLine{},
		&BankReconciliation{},
		&Budget{},
		&IdempotencyKey{},
	)
	if err != nil {
		return err
	}
	return EnsureNumberSeries(db)
}
