package reports

import "testing"

func TestVariancePercent(t *testing.T) {
	if got := variancePercent(amt("1000"), amt("250")); got == nil || !got.Equal(amt("25")) {
		t.Fatalf("got %v, want 25", got)
	}
	if got := variancePercent(amt("1000"), amt("-100")); got == nil || !got.Equal(amt("-10")) {
		t.Fatalf("got %v, want -10", got)
	}
	if got := variancePercent(amt("300"), amt("100")); got == nil || got.StringFixed(2) != "33.33" {
		t.Fatalf("got %v, want 33.33", got)
	}
}

// Unplanned spend has no meaningful percent; zero would misread as on budget.
func TestVariancePercent_NilWhenNothingPlanned(t *testing.T) {
	if got := variancePercent(amt("0"), amt("480.00")); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}
