// close-period runs the month-end close for one accounting period, or locks
// an already closed one. The resulting period state prints as JSON on stdout;
// progress and errors go to stderr.
//
// Usage:
//
//	go run ./cmd/close-period -period 2026-01
//	go run ./cmd/close-period -period 2026-01 -lock
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/petfriendlyvet/ledger_backend/workflow"
)

func main() {
	periodName := flag.String("period", "", "period name, e.g. 2026-01")
	lock := flag.Bool("lock", false, "lock the period after (or instead of) closing")
	flag.Parse()

	if *periodName == "" {
		fmt.Fprintln(os.Stderr, "usage: close-period -period 2026-01 [-lock]")
		os.Exit(2)
	}

	ctx := context.Background()
	ctx = utils.SetUserNameInContext(ctx, "close-period")

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized. Set DB_* env vars.")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()

	var period models.AccountingPeriod
	err := config.GetDB().WithContext(ctx).Where("name = ?", *periodName).First(&period).Error
	if err != nil {
		fmt.Fprintf(os.Stderr, "period %s not found: %v\n", *periodName, err)
		os.Exit(1)
	}

	if period.Status == models.PeriodStatusOpen || period.Status == models.PeriodStatusClosing {
		fmt.Fprintf(os.Stderr, "closing period %s...\n", period.Name)
		closed, err := workflow.ClosePeriod(ctx, period.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "close failed: %v\n", err)
			os.Exit(1)
		}
		period = *closed
	}

	if *lock && period.Status == models.PeriodStatusClosed {
		if err := models.LockPeriod(ctx, period.ID); err != nil {
			fmt.Fprintf(os.Stderr, "lock failed: %v\n", err)
			os.Exit(1)
		}
		refreshed, err := models.GetPeriod(ctx, period.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			os.Exit(1)
		}
		period = *refreshed
	}

	out, _ := json.MarshalIndent(period, "", "  ")
	fmt.Println(string(out))
}
