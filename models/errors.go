package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Error taxonomy:
//   - validation errors: rejected before any write, nothing persisted
//   - business-rule errors: typed, the caller corrects input and retries
//   - integrity errors: caller defect, always fatal, never swallowed
//
// Every message states the invariant that would have been violated, with
// amounts formatted to two decimal places.

// UnbalancedEntryError rejects an entry whose debits and credits differ.
type UnbalancedEntryError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("entry does not balance: debits %s, credits %s",
		e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2))
}

// PeriodClosedError rejects a posting dated inside a period that is not open.
type PeriodClosedError struct {
	Date   time.Time
	Period string
	Status PeriodStatus
}

func (e *PeriodClosedError) Error() string {
	return fmt.Sprintf("period %s is %s: cannot post entry dated %s",
		e.Period, e.Status, e.Date.Format("2006-01-02"))
}

// InactiveAccountError rejects a line referencing a deactivated account.
type InactiveAccountError struct {
	AccountCode string
}

func (e *InactiveAccountError) Error() string {
	return fmt.Sprintf("account %s is inactive: postings must reference active accounts", e.AccountCode)
}

// DuplicateCodeError rejects a second account with an existing code.
type DuplicateCodeError struct {
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("account code %s already exists", e.Code)
}

// OverpaymentError rejects a payment exceeding the document's balance due.
type OverpaymentError struct {
	Amount     decimal.Decimal
	BalanceDue decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment %s exceeds balance due %s",
		e.Amount.StringFixed(2), e.BalanceDue.StringFixed(2))
}

// DuplicateVendorInvoiceError rejects recording the same vendor invoice twice.
type DuplicateVendorInvoiceError struct {
	VendorId      int
	InvoiceNumber string
}

func (e *DuplicateVendorInvoiceError) Error() string {
	return fmt.Sprintf("vendor %d already has a bill for invoice number %q", e.VendorId, e.InvoiceNumber)
}

// NotReconciledError rejects approving a reconciliation whose adjusted book
// balance does not equal the statement balance exactly.
type NotReconciledError struct {
	Difference decimal.Decimal
}

func (e *NotReconciledError) Error() string {
	return fmt.Sprintf("reconciliation has a residual difference of %s: adjusted book balance must equal statement balance exactly",
		e.Difference.StringFixed(2))
}

// IntegrityError marks attempts to break ledger immutability or state-machine
// rules (mutating a posted entry, reopening a locked period). These indicate
// a caller defect rather than user-correctable input.
type IntegrityError struct {
	Op     string
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation in %s: %s", e.Op, e.Detail)
}
