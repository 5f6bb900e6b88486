package models

import (
	"testing"
	"time"
)

func TestComputeImportHash_Stable(t *testing.T) {
	date := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	a := ComputeImportHash(1, date, amt("-500.00"), "COMISION MENSUAL", "F-2291")
	b := ComputeImportHash(1, date, amt("-500.00"), "COMISION MENSUAL", "F-2291")
	if a != b {
		t.Fatal("identical rows must hash identically")
	}
	if len(a) != 64 {
		t.Fatalf("hash length %d, want 64 hex chars", len(a))
	}
}

func TestComputeImportHash_TimeOfDayIgnored(t *testing.T) {
	morning := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 1, 12, 22, 15, 0, 0, time.UTC)
	if ComputeImportHash(1, morning, amt("100"), "x", "") != ComputeImportHash(1, evening, amt("100"), "x", "") {
		t.Fatal("same calendar day must hash identically regardless of time")
	}
}

func TestComputeImportHash_DistinguishesRows(t *testing.T) {
	date := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	base := ComputeImportHash(1, date, amt("100.00"), "desc", "ref")
	variants := []string{
		ComputeImportHash(2, date, amt("100.00"), "desc", "ref"),
		ComputeImportHash(1, date.AddDate(0, 0, 1), amt("100.00"), "desc", "ref"),
		ComputeImportHash(1, date, amt("100.01"), "desc", "ref"),
		ComputeImportHash(1, date, amt("100.00"), "other", "ref"),
		ComputeImportHash(1, date, amt("100.00"), "desc", "other"),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d hashed same as base", i)
		}
	}
}
