package models

import (
	"testing"
	"time"
)

func TestDueDateFor(t *testing.T) {
	docDate := time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)
	cases := []struct {
		terms PaymentTerms
		want  time.Time
	}{
		{PaymentTermsPrepaid, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{PaymentTermsNet15, time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)},
		{PaymentTermsNet30, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)},
		{PaymentTermsNet60, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := DueDateFor(tc.terms, docDate)
		if !got.Equal(tc.want) {
			t.Fatalf("DueDateFor(%s) = %s, want %s", tc.terms, got, tc.want)
		}
	}
}

func TestBillBalanceDue(t *testing.T) {
	bill := &Bill{Total: amt("1160.00"), AmountPaid: amt("400.00")}
	if got := bill.BalanceDue(); !got.Equal(amt("760.00")) {
		t.Fatalf("balance due = %s, want 760.00", got)
	}
}
