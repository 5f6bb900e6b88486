package models

// AccountType is the five-way classification in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance is the side an account grows on. It is derived from the
// account type, never stored independently, so the two can't disagree.
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "DEBIT"
	NormalBalanceCredit NormalBalance = "CREDIT"
)

// NormalBalanceFor returns debit for asset/expense, credit for the rest.
func NormalBalanceFor(t AccountType) NormalBalance {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return NormalBalanceDebit
	}
	return NormalBalanceCredit
}

// EntryStatus is the journal entry lifecycle: draft -> posted -> voided
// (via reversal). No other transitions exist.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "draft"
	EntryStatusPosted EntryStatus = "posted"
	EntryStatusVoided EntryStatus = "voided"
)

// SourceKind is the closed set of upstream documents a journal entry can
// reference. A tagged (kind, id) pair replaces free-form polymorphic
// references; each kind resolves through its own table.
type SourceKind string

const (
	SourceKindManual              SourceKind = "manual"
	SourceKindInvoice             SourceKind = "invoice"
	SourceKindInvoicePayment      SourceKind = "invoice_payment"
	SourceKindBill                SourceKind = "bill"
	SourceKindBillPayment         SourceKind = "bill_payment"
	SourceKindPayrollRun          SourceKind = "payroll_run"
	SourceKindInventoryAdjustment SourceKind = "inventory_adjustment"
	SourceKindClosing             SourceKind = "closing"
)

func (k SourceKind) IsValid() bool {
	switch k {
	case SourceKindManual, SourceKindInvoice, SourceKindInvoicePayment,
		SourceKindBill, SourceKindBillPayment, SourceKindPayrollRun,
		SourceKindInventoryAdjustment, SourceKindClosing:
		return true
	}
	return false
}

// ExternalSourceKinds are the kinds external producers may post through
// RecordExternalTransaction. Internal kinds (bill, invoice_payment, closing)
// are only ever minted by this service.
func (k SourceKind) IsExternal() bool {
	switch k {
	case SourceKindInvoice, SourceKindBillPayment, SourceKindPayrollRun,
		SourceKindInventoryAdjustment, SourceKindManual:
		return true
	}
	return false
}

// CounterpartyKind tags a journal line with the customer/vendor it concerns.
type CounterpartyKind string

const (
	CounterpartyKindNone     CounterpartyKind = ""
	CounterpartyKindCustomer CounterpartyKind = "customer"
	CounterpartyKindVendor   CounterpartyKind = "vendor"
)

// PeriodStatus transitions are monotonic: open -> closing -> closed -> locked.
type PeriodStatus string

const (
	PeriodStatusOpen    PeriodStatus = "open"
	PeriodStatusClosing PeriodStatus = "closing"
	PeriodStatusClosed  PeriodStatus = "closed"
	PeriodStatusLocked  PeriodStatus = "locked"
)

// rank orders statuses for the monotonic-transition check.
func (s PeriodStatus) rank() int {
	switch s {
	case PeriodStatusOpen:
		return 0
	case PeriodStatusClosing:
		return 1
	case PeriodStatusClosed:
		return 2
	case PeriodStatusLocked:
		return 3
	}
	return -1
}

// BillStatus lifecycle. A bill posts to the ledger on approval; partial/paid
// track payments; void reverses the approval entry.
type BillStatus string

const (
	BillStatusDraft    BillStatus = "draft"
	BillStatusApproved BillStatus = "approved"
	BillStatusPartial  BillStatus = "partial"
	BillStatusPaid     BillStatus = "paid"
	BillStatusVoid     BillStatus = "void"
)

// InvoiceStatus mirrors BillStatus on the receivable side.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusIssued  InvoiceStatus = "issued"
	InvoiceStatusPartial InvoiceStatus = "partial"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

// PaymentMethod for bill/invoice payments.
type PaymentMethod string

const (
	PaymentMethodCheck    PaymentMethod = "check"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCheck, PaymentMethodTransfer, PaymentMethodCash, PaymentMethodCard:
		return true
	}
	return false
}

// PaymentTerms drive due-date defaults on AP/AR documents.
type PaymentTerms string

const (
	PaymentTermsPrepaid PaymentTerms = "prepaid"
	PaymentTermsNet15   PaymentTerms = "net15"
	PaymentTermsNet30   PaymentTerms = "net30"
	PaymentTermsNet60   PaymentTerms = "net60"
)

// StatementLineStatus for imported bank statement rows.
type StatementLineStatus string

const (
	StatementLineUnmatched StatementLineStatus = "unmatched"
	StatementLineMatched   StatementLineStatus = "matched"
	// locked = matched and covered by an approved reconciliation; never
	// re-matched.
	StatementLineLocked StatementLineStatus = "locked"
)

// ReconciliationStatus: in_progress until the adjusted book balance equals
// the statement balance exactly, then reconciled; approved locks it.
type ReconciliationStatus string

const (
	ReconciliationInProgress ReconciliationStatus = "in_progress"
	ReconciliationReconciled ReconciliationStatus = "reconciled"
	ReconciliationApproved   ReconciliationStatus = "approved"
)

// IdempotencyStatus for durable at-least-once handling of external postings.
type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// NumberModule names the sequences the allocator serves.
type NumberModule string

const (
	NumberModuleJournal        NumberModule = "journal"
	NumberModuleBill           NumberModule = "bill"
	NumberModuleBillPayment    NumberModule = "bill_payment"
	NumberModuleInvoice        NumberModule = "invoice"
	NumberModuleInvoicePayment NumberModule = "invoice_payment"
	NumberModulePurchaseOrder  NumberModule = "purchase_order"
)

// AgingSide selects which subledger an aging report covers.
type AgingSide string

const (
	AgingSidePayable    AgingSide = "payable"
	AgingSideReceivable AgingSide = "receivable"
)
