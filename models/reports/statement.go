package reports

import (
	"sort"

	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/shopspring/decimal"
)

// StatementNode is one line of a financial statement. Amount on a parent is
// the rolled-up total of its children plus its own activity.
type StatementNode struct {
	AccountCode string           `json:"accountCode"`
	AccountName string           `json:"accountName"`
	Amount      decimal.Decimal  `json:"amount"`
	Children    []*StatementNode `json:"children,omitempty"`
}

// accountAmount is the flat per-account figure the statement queries produce.
type accountAmount struct {
	AccountId   int                  `gorm:"column:account_id"`
	Code        string               `gorm:"column:code"`
	Name        string               `gorm:"column:name"`
	ParentId    int                  `gorm:"column:parent_id"`
	AccountType models.AccountType   `gorm:"column:account_type"`
	Normal      models.NormalBalance `gorm:"column:normal_balance"`
	Debit       decimal.Decimal      `gorm:"column:debit"`
	Credit      decimal.Decimal      `gorm:"column:credit"`
}

func (a *accountAmount) signed() decimal.Decimal {
	return models.SignedBalance(a.Normal, a.Debit, a.Credit)
}

// buildTree arranges flat account amounts into the chart's hierarchy and
// rolls child totals up into parents. Accounts with zero activity and no
// active children are dropped.
func buildTree(rows []*accountAmount) []*StatementNode {
	nodes := make(map[int]*StatementNode, len(rows))
	children := make(map[int][]int)
	ordered := make([]*accountAmount, len(rows))
	copy(ordered, rows)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Code < ordered[j].Code })

	for _, row := range ordered {
		nodes[row.AccountId] = &StatementNode{
			AccountCode: row.Code,
			AccountName: row.Name,
			Amount:      row.signed(),
		}
		if row.ParentId > 0 {
			children[row.ParentId] = append(children[row.ParentId], row.AccountId)
		}
	}

	var roots []*StatementNode
	var attach func(id int) *StatementNode
	attach = func(id int) *StatementNode {
		node := nodes[id]
		for _, childId := range children[id] {
			child := attach(childId)
			node.Children = append(node.Children, child)
			node.Amount = node.Amount.Add(child.Amount)
		}
		return node
	}
	for _, row := range ordered {
		if row.ParentId == 0 || nodes[row.ParentId] == nil {
			roots = append(roots, attach(row.AccountId))
		}
	}

	return prune(roots)
}

func prune(nodes []*StatementNode) []*StatementNode {
	var kept []*StatementNode
	for _, node := range nodes {
		node.Children = prune(node.Children)
		if node.Amount.IsZero() && len(node.Children) == 0 {
			continue
		}
		kept = append(kept, node)
	}
	return kept
}

func sumNodes(nodes []*StatementNode) decimal.Decimal {
	total := decimal.Zero
	for _, node := range nodes {
		total = total.Add(node.Amount)
	}
	return total
}
