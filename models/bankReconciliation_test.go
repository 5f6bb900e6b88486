package models

import (
	"errors"
	"testing"
)

// Classic worksheet: book 156,780.00, deposits in transit 12,830.00,
// outstanding payments 14,500.00, unrecorded fees 500.00, unrecorded
// interest 20.00 gives an adjusted book balance of 154,630.00.
func TestAdjustedBookBalance(t *testing.T) {
	adj := ReconciliationAdjustments{
		DepositsInTransit:   amt("12830.00"),
		OutstandingPayments: amt("14500.00"),
		UnrecordedFees:      amt("500.00"),
		UnrecordedInterest:  amt("20.00"),
	}
	got := AdjustedBookBalance(amt("156780.00"), adj)
	if !got.Equal(amt("154630.00")) {
		t.Fatalf("adjusted book balance = %s, want 154630.00", got)
	}
}

func TestReconciliationRecompute_NotBalanced(t *testing.T) {
	rec := &BankReconciliation{
		StatementBalance:    amt("158450.00"),
		BookBalance:         amt("156780.00"),
		DepositsInTransit:   amt("12830.00"),
		OutstandingPayments: amt("14500.00"),
		UnrecordedFees:      amt("500.00"),
		UnrecordedInterest:  amt("20.00"),
	}
	rec.Recompute()

	if !rec.AdjustedBookBalance.Equal(amt("154630.00")) {
		t.Fatalf("adjusted = %s, want 154630.00", rec.AdjustedBookBalance)
	}
	if !rec.Difference.Equal(amt("3820.00")) {
		t.Fatalf("difference = %s, want 3820.00", rec.Difference)
	}
	if rec.IsBalanced() {
		t.Fatal("reconciliation with a residual difference reported balanced")
	}
}

func TestReconciliationRecompute_Balanced(t *testing.T) {
	rec := &BankReconciliation{
		StatementBalance:    amt("154630.00"),
		BookBalance:         amt("156780.00"),
		DepositsInTransit:   amt("12830.00"),
		OutstandingPayments: amt("14500.00"),
		UnrecordedFees:      amt("500.00"),
		UnrecordedInterest:  amt("20.00"),
	}
	rec.Recompute()

	if !rec.Difference.IsZero() {
		t.Fatalf("difference = %s, want 0", rec.Difference)
	}
	if !rec.IsBalanced() {
		t.Fatal("zero-difference reconciliation reported unbalanced")
	}
}

// A one-cent residual must block approval: close is never good enough.
func TestReconciliation_OneCentOff(t *testing.T) {
	rec := &BankReconciliation{
		StatementBalance: amt("1000.00"),
		BookBalance:      amt("999.99"),
	}
	rec.Recompute()
	if rec.IsBalanced() {
		t.Fatal("one-cent difference reported balanced")
	}

	err := error(&NotReconciledError{Difference: rec.Difference})
	var notReconciled *NotReconciledError
	if !errors.As(err, &notReconciled) {
		t.Fatal("NotReconciledError should unwrap via errors.As")
	}
	if got := err.Error(); got != "reconciliation has a residual difference of 0.01: adjusted book balance must equal statement balance exactly" {
		t.Fatalf("unexpected message %q", got)
	}
}
