package utils

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-01-15")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	if _, err := ParseDate("15/01/2026"); err == nil {
		t.Fatal("non-ISO date accepted")
	}
}

func TestParseAmount(t *testing.T) {
	zero, err := ParseAmount("")
	if err != nil || !zero.IsZero() {
		t.Fatalf("empty amount: got %s, %v", zero, err)
	}
	d, err := ParseAmount("-1234.56")
	if err != nil || d.StringFixed(2) != "-1234.56" {
		t.Fatalf("got %s, %v", d, err)
	}
	if _, err := ParseAmount("12,34"); err == nil {
		t.Fatal("comma decimal accepted")
	}
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2026-01-01", "2026-01-31", 30},
		{"2026-01-31", "2026-01-01", -30},
		{"2026-02-28", "2026-03-01", 1},
		{"2026-01-15", "2026-01-15", 0},
	}
	for _, tc := range cases {
		a, _ := ParseDate(tc.a)
		b, _ := ParseDate(tc.b)
		// Time of day must never shift a day count.
		a = a.Add(23 * time.Hour)
		if got := DaysBetween(a, b); got != tc.want {
			t.Fatalf("DaysBetween(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 7, 3, 1, 7})
	if len(got) != 3 || got[0] != 3 || got[1] != 7 || got[2] != 1 {
		t.Fatalf("got %v, want [3 7 1]", got)
	}
}
