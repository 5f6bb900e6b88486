package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBudgetMonthAmountAndAnnualTotal(t *testing.T) {
	b := &Budget{
		Jan: amt("1000"), Feb: amt("1000"), Mar: amt("1200"),
		Apr: amt("1000"), May: amt("1000"), Jun: amt("1000"),
		Jul: amt("1500"), Aug: amt("1000"), Sep: amt("1000"),
		Oct: amt("1000"), Nov: amt("1000"), Dec: amt("2000"),
	}
	if got := b.MonthAmount(time.July); !got.Equal(amt("1500")) {
		t.Fatalf("July = %s, want 1500", got)
	}
	if got := b.AnnualTotal(); !got.Equal(amt("13700")) {
		t.Fatalf("annual total = %s, want 13700", got)
	}
}

func TestNewBudgetToRowMapsMonthsInOrder(t *testing.T) {
	months := make([]decimal.Decimal, 12)
	for i := range months {
		months[i] = decimal.NewFromInt(int64((i + 1) * 100))
	}
	input := &NewBudget{AccountId: 7, Year: 2026, Months: months}
	row := input.toRow()
	if row.AccountId != 7 || row.Year != 2026 {
		t.Fatalf("row identity %d/%d, want 7/2026", row.AccountId, row.Year)
	}
	for m := time.January; m <= time.December; m++ {
		want := months[int(m)-1]
		if !row.MonthAmount(m).Equal(want) {
			t.Fatalf("%s = %s, want %s", m, row.MonthAmount(m), want)
		}
	}
}
