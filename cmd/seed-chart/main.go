// seed-chart loads the default chart of accounts for a small veterinary
// clinic and creates the fiscal year for the current calendar year. Safe to
// run repeatedly: existing account codes are left untouched.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-chart
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
)

type seedAccount struct {
	code       string
	name       string
	accType    models.AccountType
	parentCode string
	isBank     bool
	isAR       bool
	isAP       bool
}

var defaultChart = []seedAccount{
	{code: "1000", name: "Cash and Banks", accType: models.AccountTypeAsset},
	{code: "1010", name: "Operating Account", accType: models.AccountTypeAsset, parentCode: "1000", isBank: true},
	{code: "1020", name: "Petty Cash", accType: models.AccountTypeAsset, parentCode: "1000"},
	{code: "1200", name: "Accounts Receivable", accType: models.AccountTypeAsset, isAR: true},
	{code: "1300", name: "Inventory", accType: models.AccountTypeAsset},
	{code: "1310", name: "Medical Supplies", accType: models.AccountTypeAsset, parentCode: "1300"},
	{code: "1320", name: "Food and Retail", accType: models.AccountTypeAsset, parentCode: "1300"},
	{code: "1500", name: "Equipment", accType: models.AccountTypeAsset},

	{code: "2000", name: "Accounts Payable", accType: models.AccountTypeLiability, isAP: true},
	{code: "2100", name: "Taxes Payable", accType: models.AccountTypeLiability},
	{code: "2200", name: "Payroll Liabilities", accType: models.AccountTypeLiability},

	{code: "3000", name: "Owner's Capital", accType: models.AccountTypeEquity},
	{code: "3200", name: "Retained Earnings", accType: models.AccountTypeEquity},

	{code: "4000", name: "Service Revenue", accType: models.AccountTypeRevenue},
	{code: "4010", name: "Consultations", accType: models.AccountTypeRevenue, parentCode: "4000"},
	{code: "4020", name: "Surgery", accType: models.AccountTypeRevenue, parentCode: "4000"},
	{code: "4030", name: "Grooming and Boarding", accType: models.AccountTypeRevenue, parentCode: "4000"},
	{code: "4100", name: "Product Sales", accType: models.AccountTypeRevenue},
	{code: "4200", name: "Interest Income", accType: models.AccountTypeRevenue},

	{code: "5000", name: "Cost of Goods Sold", accType: models.AccountTypeExpense},
	{code: "6000", name: "Operating Expenses", accType: models.AccountTypeExpense},
	{code: "6010", name: "Salaries and Wages", accType: models.AccountTypeExpense, parentCode: "6000"},
	{code: "6020", name: "Rent", accType: models.AccountTypeExpense, parentCode: "6000"},
	{code: "6030", name: "Utilities", accType: models.AccountTypeExpense, parentCode: "6000"},
	{code: "6040", name: "Laboratory Fees", accType: models.AccountTypeExpense, parentCode: "6000"},
	{code: "6050", name: "Bank Fees", accType: models.AccountTypeExpense, parentCode: "6000"},
	{code: "6060", name: "Insurance", accType: models.AccountTypeExpense, parentCode: "6000"},
}

func main() {
	ctx := context.Background()
	ctx = utils.SetUserNameInContext(ctx, "seed-chart")

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	if err := models.AutoMigrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	created := 0
	for _, seed := range defaultChart {
		if _, err := models.GetAccountByCode(ctx, seed.code); err == nil {
			continue
		} else if !errors.Is(err, utils.ErrorRecordNotFound) {
			fmt.Fprintf(os.Stderr, "lookup %s failed: %v\n", seed.code, err)
			os.Exit(1)
		}

		input := models.NewAccount{
			Code:        seed.code,
			Name:        seed.name,
			AccountType: seed.accType,
			IsBank:      seed.isBank,
			IsAR:        seed.isAR,
			IsAP:        seed.isAP,
		}
		if seed.parentCode != "" {
			parent, err := models.GetAccountByCode(ctx, seed.parentCode)
			if err != nil {
				fmt.Fprintf(os.Stderr, "parent %s of %s not found\n", seed.parentCode, seed.code)
				os.Exit(1)
			}
			input.ParentId = parent.ID
		}
		if _, err := models.CreateAccount(ctx, &input); err != nil {
			fmt.Fprintf(os.Stderr, "creating %s failed: %v\n", seed.code, err)
			os.Exit(1)
		}
		created++
	}

	yearName := fmt.Sprintf("FY%d", time.Now().Year())
	start := time.Date(time.Now().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	if _, err := models.CreateFiscalYear(ctx, &models.NewFiscalYear{Name: yearName, StartDate: start}); err != nil {
		if !errors.Is(err, utils.ErrorDuplicateValue) {
			fmt.Fprintf(os.Stderr, "note: fiscal year not created: %v\n", err)
		}
	} else {
		fmt.Printf("Created fiscal year %s with 12 periods\n", yearName)
	}

	fmt.Printf("Chart seeded: %d accounts created, %d already present\n", created, len(defaultChart)-created)
}
