// generate-statement renders a financial report as JSON on stdout, or as an
// xlsx workbook when -excel is given.
//
// Usage:
//
//	go run ./cmd/generate-statement -report pl -from 2026-01-01 -to 2026-01-31
//	go run ./cmd/generate-statement -report balance-sheet -as-of 2026-01-31
//	go run ./cmd/generate-statement -report trial-balance -as-of 2026-01-31 -excel tb.xlsx
//	go run ./cmd/generate-statement -report ap-aging -as-of 2026-01-31
//	go run ./cmd/generate-statement -report budget-variance -year 2026
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/models/reports"
	"github.com/petfriendlyvet/ledger_backend/utils"
)

func main() {
	report := flag.String("report", "", "pl | balance-sheet | trial-balance | ap-aging | ar-aging | budget-variance")
	from := flag.String("from", "", "range start, 2006-01-02")
	to := flag.String("to", "", "range end, 2006-01-02")
	asOf := flag.String("as-of", "", "as-of date, 2006-01-02 (default today)")
	year := flag.Int("year", time.Now().Year(), "budget year")
	excelPath := flag.String("excel", "", "write xlsx to this path instead of JSON")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized. Set DB_* env vars.")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()

	asOfDate := time.Now().UTC()
	if *asOf != "" {
		var err error
		asOfDate, err = utils.ParseDate(*asOf)
		if err != nil {
			fail("invalid -as-of %q", *asOf)
		}
	}

	switch *report {
	case "pl":
		if *from == "" || *to == "" {
			fail("pl requires -from and -to")
		}
		fromDate, err := utils.ParseDate(*from)
		if err != nil {
			fail("invalid -from %q", *from)
		}
		toDate, err := utils.ParseDate(*to)
		if err != nil {
			fail("invalid -to %q", *to)
		}
		pl, err := reports.GetProfitAndLossReport(ctx, fromDate, toDate)
		if err != nil {
			fail("report failed: %v", err)
		}
		if *excelPath != "" {
			writeExcel(*excelPath, func(f *os.File) error {
				return reports.ExportProfitAndLossExcel(pl, f)
			})
			return
		}
		printJSON(pl)

	case "balance-sheet":
		bs, err := reports.GetBalanceSheetReport(ctx, asOfDate)
		if err != nil {
			fail("report failed: %v", err)
		}
		printJSON(bs)

	case "trial-balance":
		tb, err := reports.GetTrialBalanceReport(ctx, asOfDate)
		if err != nil {
			fail("report failed: %v", err)
		}
		if *excelPath != "" {
			writeExcel(*excelPath, func(f *os.File) error {
				return reports.ExportTrialBalanceExcel(tb, f)
			})
			return
		}
		printJSON(tb)

	case "ap-aging":
		rows, err := reports.GetAgingReport(ctx, models.AgingSidePayable, asOfDate)
		if err != nil {
			fail("report failed: %v", err)
		}
		printJSON(rows)

	case "ar-aging":
		rows, err := reports.GetAgingReport(ctx, models.AgingSideReceivable, asOfDate)
		if err != nil {
			fail("report failed: %v", err)
		}
		printJSON(rows)

	case "budget-variance":
		rows, err := reports.GetBudgetVarianceReport(ctx, *year)
		if err != nil {
			fail("report failed: %v", err)
		}
		printJSON(rows)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func writeExcel(path string, write func(*os.File) error) {
	f, err := os.Create(path)
	if err != nil {
		fail("creating %s: %v", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		fail("writing %s: %v", path, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
