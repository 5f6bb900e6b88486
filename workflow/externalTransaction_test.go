package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// The kind gate runs before any database work, so these paths are testable
// without a connection.
func TestRecordExternalTransaction_RejectsInternalKinds(t *testing.T) {
	for _, kind := range []models.SourceKind{
		models.SourceKindBill,
		models.SourceKindInvoicePayment,
		models.SourceKindClosing,
	} {
		input := &ExternalTransaction{
			IdempotencyKey: "k-1",
			SourceKind:     kind,
			SourceId:       1,
			EntryDate:      "2026-01-15",
		}
		_, err := RecordExternalTransaction(context.Background(), input)
		if err == nil || !strings.Contains(err.Error(), "internal") {
			t.Fatalf("%s: expected internal-kind rejection, got %v", kind, err)
		}
	}
}

func TestRecordExternalTransaction_RejectsUnknownKind(t *testing.T) {
	input := &ExternalTransaction{
		IdempotencyKey: "k-2",
		SourceKind:     "petty_cash",
		SourceId:       1,
		EntryDate:      "2026-01-15",
	}
	_, err := RecordExternalTransaction(context.Background(), input)
	if err == nil || !strings.Contains(err.Error(), "unknown source kind") {
		t.Fatalf("expected unknown-kind rejection, got %v", err)
	}
}

func TestEntryAccountIds_Dedupes(t *testing.T) {
	entry := &models.JournalEntry{
		Lines: []models.JournalLine{
			{AccountId: 3, Debit: amt("100")},
			{AccountId: 7, Credit: amt("60")},
			{AccountId: 3, Credit: amt("40")},
		},
	}
	ids := entryAccountIds(entry)
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2: %v", len(ids), ids)
	}
	seen := map[int]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if !seen[3] || !seen[7] {
		t.Fatalf("ids %v missing 3 or 7", ids)
	}
}
