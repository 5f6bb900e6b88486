package models

import "testing"

func TestNormalBalanceFor(t *testing.T) {
	cases := []struct {
		accType AccountType
		want    NormalBalance
	}{
		{AccountTypeAsset, NormalBalanceDebit},
		{AccountTypeExpense, NormalBalanceDebit},
		{AccountTypeLiability, NormalBalanceCredit},
		{AccountTypeEquity, NormalBalanceCredit},
		{AccountTypeRevenue, NormalBalanceCredit},
	}
	for _, tc := range cases {
		if got := NormalBalanceFor(tc.accType); got != tc.want {
			t.Fatalf("NormalBalanceFor(%s) = %s, want %s", tc.accType, got, tc.want)
		}
	}
}

func TestSignedBalance(t *testing.T) {
	if got := SignedBalance(NormalBalanceDebit, amt("500"), amt("120")); !got.Equal(amt("380")) {
		t.Fatalf("debit-normal balance = %s, want 380", got)
	}
	if got := SignedBalance(NormalBalanceCredit, amt("120"), amt("500")); !got.Equal(amt("380")) {
		t.Fatalf("credit-normal balance = %s, want 380", got)
	}
	if got := SignedBalance(NormalBalanceCredit, amt("500"), amt("120")); !got.Equal(amt("-380")) {
		t.Fatalf("overdrawn credit-normal balance = %s, want -380", got)
	}
}

func TestSourceKindExternalPartition(t *testing.T) {
	external := map[SourceKind]bool{
		SourceKindInvoice:             true,
		SourceKindBillPayment:         true,
		SourceKindPayrollRun:          true,
		SourceKindInventoryAdjustment: true,
		SourceKindManual:              true,
	}
	all := []SourceKind{
		SourceKindManual, SourceKindInvoice, SourceKindInvoicePayment,
		SourceKindBill, SourceKindBillPayment, SourceKindPayrollRun,
		SourceKindInventoryAdjustment, SourceKindClosing,
	}
	for _, kind := range all {
		if !kind.IsValid() {
			t.Fatalf("%s should be valid", kind)
		}
		if kind.IsExternal() != external[kind] {
			t.Fatalf("%s IsExternal() = %v, want %v", kind, kind.IsExternal(), external[kind])
		}
	}
	if SourceKind("petty_cash").IsValid() {
		t.Fatal("unknown kind reported valid")
	}
}

func TestPeriodStatusRankIsMonotonic(t *testing.T) {
	order := []PeriodStatus{PeriodStatusOpen, PeriodStatusClosing, PeriodStatusClosed, PeriodStatusLocked}
	for i := 1; i < len(order); i++ {
		if order[i].rank() <= order[i-1].rank() {
			t.Fatalf("rank(%s)=%d not above rank(%s)=%d",
				order[i], order[i].rank(), order[i-1], order[i-1].rank())
		}
	}
	if PeriodStatus("archived").rank() != -1 {
		t.Fatal("unknown status should rank -1")
	}
}
