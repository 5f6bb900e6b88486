package workflow

import (
	"testing"
	"time"
)

func TestBalanceStamp(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	past := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	future := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	if got := balanceStamp(now, nil); !got.Equal(now) {
		t.Fatalf("no lines: stamp %s, want %s", got, now)
	}
	if got := balanceStamp(now, &past); !got.Equal(now) {
		t.Fatalf("past entry: stamp %s, want %s", got, now)
	}
	// A future-dated posting is in the cached sum, so the stamp must cover it.
	if got := balanceStamp(now, &future); !got.Equal(future) {
		t.Fatalf("future entry: stamp %s, want %s", got, future)
	}
}
