// reconcile-bank drives the bank reconciliation cycle from the command line:
// import a statement file, auto-match, open a reconciliation, save the
// adjustment worksheet and approve. Results print as JSON on stdout.
//
// Usage:
//
//	go run ./cmd/reconcile-bank -bank 1 -import statement.csv
//	go run ./cmd/reconcile-bank -bank 1 -import statement.ofx
//	go run ./cmd/reconcile-bank -bank 1 -match
//	go run ./cmd/reconcile-bank -bank 1 -start -date 2026-01-31 -balance 158450.00
//	go run ./cmd/reconcile-bank -rec 3 -deposits 12830 -payments 14500 -fees 500 -interest 20
//	go run ./cmd/reconcile-bank -rec 3 -approve
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/petfriendlyvet/ledger_backend/workflow"
)

func main() {
	bankId := flag.Int("bank", 0, "bank account id")
	importFile := flag.String("import", "", "statement file to import (.csv or .ofx)")
	match := flag.Bool("match", false, "run the auto-matcher")
	start := flag.Bool("start", false, "start a reconciliation")
	date := flag.String("date", "", "statement date, 2006-01-02")
	balance := flag.String("balance", "", "statement ending balance")
	recId := flag.Int("rec", 0, "reconciliation id")
	deposits := flag.String("deposits", "", "deposits in transit")
	payments := flag.String("payments", "", "outstanding payments")
	fees := flag.String("fees", "", "unrecorded bank fees")
	interest := flag.String("interest", "", "unrecorded interest")
	notes := flag.String("notes", "", "worksheet notes")
	approve := flag.Bool("approve", false, "approve the reconciliation")
	flag.Parse()

	ctx := context.Background()
	ctx = utils.SetUserNameInContext(ctx, "reconcile-bank")

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized. Set DB_* env vars.")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()

	switch {
	case *importFile != "":
		requireBank(*bankId)
		f, err := os.Open(*importFile)
		if err != nil {
			fail("opening %s: %v", *importFile, err)
		}
		defer f.Close()

		var result *workflow.ImportResult
		if strings.EqualFold(filepath.Ext(*importFile), ".ofx") {
			result, err = workflow.ImportStatementOFX(ctx, *bankId, f)
		} else {
			result, err = workflow.ImportStatementCSV(ctx, *bankId, f)
		}
		if err != nil {
			fail("import failed: %v", err)
		}
		printJSON(result)

	case *match:
		requireBank(*bankId)
		result, err := workflow.AutoMatchStatementLines(ctx, *bankId)
		if err != nil {
			fail("matching failed: %v", err)
		}
		printJSON(result)

	case *start:
		requireBank(*bankId)
		if *date == "" || *balance == "" {
			fail("-start requires -date and -balance")
		}
		statementDate, err := utils.ParseDate(*date)
		if err != nil {
			fail("invalid date %q", *date)
		}
		rec, err := workflow.StartReconciliation(ctx, *bankId, statementDate, *balance)
		if err != nil {
			fail("start failed: %v", err)
		}
		printJSON(rec)

	case *approve:
		if *recId == 0 {
			fail("-approve requires -rec")
		}
		rec, err := workflow.ApproveReconciliation(ctx, *recId)
		if err != nil {
			fail("approval failed: %v", err)
		}
		printJSON(rec)

	case *recId > 0:
		adj := models.ReconciliationAdjustments{}
		var err error
		if adj.DepositsInTransit, err = utils.ParseAmount(*deposits); err != nil {
			fail("invalid -deposits %q", *deposits)
		}
		if adj.OutstandingPayments, err = utils.ParseAmount(*payments); err != nil {
			fail("invalid -payments %q", *payments)
		}
		if adj.UnrecordedFees, err = utils.ParseAmount(*fees); err != nil {
			fail("invalid -fees %q", *fees)
		}
		if adj.UnrecordedInterest, err = utils.ParseAmount(*interest); err != nil {
			fail("invalid -interest %q", *interest)
		}
		rec, err := workflow.UpdateReconciliation(ctx, *recId, adj, *notes)
		if err != nil {
			fail("update failed: %v", err)
		}
		printJSON(rec)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func requireBank(bankId int) {
	if bankId == 0 {
		fail("-bank is required")
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
