package reports

import (
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

func revenueRow(id, parentId int, code, name, debit, credit string) *accountAmount {
	return &accountAmount{
		AccountId:   id,
		Code:        code,
		Name:        name,
		ParentId:    parentId,
		AccountType: models.AccountTypeRevenue,
		Normal:      models.NormalBalanceCredit,
		Debit:       amt(debit),
		Credit:      amt(credit),
	}
}

func TestBuildTree_RollsChildrenIntoParents(t *testing.T) {
	rows := []*accountAmount{
		revenueRow(1, 0, "4000", "Service Revenue", "0", "0"),
		revenueRow(2, 1, "4010", "Consultations", "0", "5200.00"),
		revenueRow(3, 1, "4020", "Surgery", "0", "12400.00"),
		revenueRow(4, 0, "4100", "Product Sales", "0", "900.00"),
	}
	roots := buildTree(rows)

	if len(roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(roots))
	}
	parent := roots[0]
	if parent.AccountCode != "4000" {
		t.Fatalf("first root = %s, want 4000", parent.AccountCode)
	}
	if !parent.Amount.Equal(amt("17600.00")) {
		t.Fatalf("parent rollup = %s, want 17600.00", parent.Amount)
	}
	if len(parent.Children) != 2 {
		t.Fatalf("parent has %d children, want 2", len(parent.Children))
	}
	if got := sumNodes(roots); !got.Equal(amt("18500.00")) {
		t.Fatalf("sumNodes = %s, want 18500.00", got)
	}
}

func TestBuildTree_OrphanBecomesRoot(t *testing.T) {
	// Parent 99 has no activity and is not in the result set; the child
	// must still appear, promoted to a root.
	rows := []*accountAmount{
		revenueRow(2, 99, "4010", "Consultations", "0", "300.00"),
	}
	roots := buildTree(rows)
	if len(roots) != 1 || roots[0].AccountCode != "4010" {
		t.Fatalf("orphan not promoted: %+v", roots)
	}
}

func TestPrune_DropsZeroLeaves(t *testing.T) {
	rows := []*accountAmount{
		revenueRow(1, 0, "4000", "Service Revenue", "0", "0"),
		revenueRow(2, 1, "4010", "Consultations", "0", "0"),
		revenueRow(3, 0, "4100", "Product Sales", "0", "900.00"),
	}
	roots := buildTree(rows)
	if len(roots) != 1 || roots[0].AccountCode != "4100" {
		t.Fatalf("zero branch not pruned: %+v", roots)
	}
}

func TestBuildTree_ContraActivityNetsNegative(t *testing.T) {
	// A refund posted as a debit against a revenue account shows as a
	// negative amount, not a silently clamped zero.
	rows := []*accountAmount{
		revenueRow(2, 0, "4010", "Consultations", "450.00", "100.00"),
	}
	roots := buildTree(rows)
	if len(roots) != 1 {
		t.Fatalf("got %d roots, want 1", len(roots))
	}
	if !roots[0].Amount.Equal(amt("-350.00")) {
		t.Fatalf("netted amount = %s, want -350.00", roots[0].Amount)
	}
}
