package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func balancedInput() *NewJournalEntry {
	return &NewJournalEntry{
		EntryDate:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "consultation fee",
		Lines: []NewJournalLine{
			{AccountId: 1, Debit: amt("500.00")},
			{AccountId: 2, Credit: amt("500.00")},
		},
	}
}

func TestNewJournalEntryValidate_Balanced(t *testing.T) {
	if err := balancedInput().Validate(); err != nil {
		t.Fatalf("balanced entry rejected: %v", err)
	}
}

func TestNewJournalEntryValidate_Unbalanced(t *testing.T) {
	input := balancedInput()
	input.Lines[1].Credit = amt("499.99")

	err := input.Validate()
	var unbalanced *UnbalancedEntryError
	if !errors.As(err, &unbalanced) {
		t.Fatalf("expected UnbalancedEntryError, got %v", err)
	}
	want := "entry does not balance: debits 500.00, credits 499.99"
	if err.Error() != want {
		t.Fatalf("message %q, want %q", err.Error(), want)
	}
}

func TestNewJournalEntryValidate_RequiresTwoLines(t *testing.T) {
	input := balancedInput()
	input.Lines = input.Lines[:1]
	if err := input.Validate(); err == nil {
		t.Fatal("single-line entry accepted")
	}
}

func TestNewJournalEntryValidate_ExactlyOneSide(t *testing.T) {
	cases := []struct {
		name          string
		debit, credit string
	}{
		{"both sides set", "100.00", "100.00"},
		{"neither side set", "0", "0"},
	}
	for _, tc := range cases {
		input := balancedInput()
		input.Lines[0].Debit = amt(tc.debit)
		input.Lines[0].Credit = amt(tc.credit)
		err := input.Validate()
		if err == nil || !strings.Contains(err.Error(), "exactly one of debit or credit") {
			t.Fatalf("%s: expected one-side rejection, got %v", tc.name, err)
		}
	}
}

func TestNewJournalEntryValidate_RejectsSubCentAmounts(t *testing.T) {
	input := balancedInput()
	input.Lines[0].Debit = amt("100.005")
	input.Lines[1].Credit = amt("100.005")
	err := input.Validate()
	if err == nil || !strings.Contains(err.Error(), "two decimal places") {
		t.Fatalf("expected precision rejection, got %v", err)
	}
}

func TestNewJournalEntryValidate_RejectsUnknownSourceKind(t *testing.T) {
	input := balancedInput()
	input.SourceKind = "petty_cash"
	if err := input.Validate(); err == nil {
		t.Fatal("unknown source kind accepted")
	}
}

func TestHasAtMostTwoDecimals(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"100", true},
		{"100.5", true},
		{"100.50", true},
		{"100.005", false},
		{"0.001", false},
	}
	for _, tc := range cases {
		if got := hasAtMostTwoDecimals(amt(tc.in)); got != tc.ok {
			t.Fatalf("hasAtMostTwoDecimals(%s) = %v, want %v", tc.in, got, tc.ok)
		}
	}
}

func TestJournalEntryTotals(t *testing.T) {
	entry := &JournalEntry{
		Lines: []JournalLine{
			{Debit: amt("300.00")},
			{Debit: amt("48.00")},
			{Credit: amt("348.00")},
		},
	}
	debit, credit := entry.Totals()
	if !debit.Equal(amt("348.00")) || !credit.Equal(amt("348.00")) {
		t.Fatalf("totals %s/%s, want 348.00/348.00", debit, credit)
	}
}
