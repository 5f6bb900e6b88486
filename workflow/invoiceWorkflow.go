package workflow

import (
	"context"
	"fmt"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"gorm.io/gorm"
)

// IssueInvoice numbers the invoice and posts AR control debit against the
// revenue credits of its lines. The invoice enters the receivable subledger
// at that moment.
func IssueInvoice(ctx context.Context, invoiceId int) (*models.Invoice, error) {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	arAccount, err := models.GetAccountByCode(ctx, config.GetLedgerSettings().ARControlCode)
	if err != nil {
		return nil, fmt.Errorf("AR control account not configured: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Preload("Lines").Where("id = ?", invoiceId).First(&invoice).Error; err != nil {
			return err
		}
		if invoice.Status != models.InvoiceStatusDraft {
			return &models.IntegrityError{Op: "IssueInvoice",
				Detail: fmt.Sprintf("invoice %d is %s", invoiceId, invoice.Status)}
		}

		number, _, err := models.NextNumber(tx, models.NumberModuleInvoice)
		if err != nil {
			return err
		}

		input := models.NewJournalEntry{
			EntryDate:   invoice.InvoiceDate,
			Description: fmt.Sprintf("Invoice %s", number),
			SourceKind:  models.SourceKindInvoice,
			SourceId:    invoice.ID,
			Lines: []models.NewJournalLine{
				{
					AccountId:        arAccount.ID,
					Debit:            invoice.Total,
					Memo:             "accounts receivable",
					CounterpartyKind: models.CounterpartyKindCustomer,
					CounterpartyId:   invoice.CustomerId,
				},
			},
		}
		for _, line := range invoice.Lines {
			input.Lines = append(input.Lines, models.NewJournalLine{
				AccountId: line.AccountId,
				Credit:    line.Amount,
				Memo:      line.Description,
			})
		}
		if !invoice.Tax.IsZero() {
			input.Lines = append(input.Lines, models.NewJournalLine{
				AccountId: invoice.Lines[0].AccountId,
				Credit:    invoice.Tax,
				Memo:      "tax",
			})
		}

		if _, err := PostEntryTx(tx, logger, userName, &input); err != nil {
			return err
		}

		return tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Updates(map[string]interface{}{
				"invoice_number": number,
				"status":         models.InvoiceStatusIssued,
			}).Error
	})
	if err != nil {
		config.LogError(logger, "workflow", "IssueInvoice", "issue failed", invoiceId, err)
		return nil, err
	}
	return models.GetInvoice(ctx, invoiceId)
}

// ReceiveInvoicePayment records a customer receipt and posts bank debit /
// AR control credit.
func ReceiveInvoicePayment(ctx context.Context, input *models.NewInvoicePayment) (*models.InvoicePayment, error) {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	if err := input.Validate(); err != nil {
		return nil, err
	}

	arAccount, err := models.GetAccountByCode(ctx, config.GetLedgerSettings().ARControlCode)
	if err != nil {
		return nil, fmt.Errorf("AR control account not configured: %w", err)
	}
	bank, err := models.GetBankAccount(ctx, input.BankAccountId)
	if err != nil {
		return nil, fmt.Errorf("bank account not found")
	}

	var payment *models.InvoicePayment
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Where("id = ?", input.InvoiceId).First(&invoice).Error; err != nil {
			return err
		}
		switch invoice.Status {
		case models.InvoiceStatusIssued, models.InvoiceStatusPartial:
		default:
			return &models.IntegrityError{Op: "ReceiveInvoicePayment",
				Detail: fmt.Sprintf("invoice %s is %s", invoice.InvoiceNumber, invoice.Status)}
		}
		balanceDue := invoice.BalanceDue()
		if input.Amount.GreaterThan(balanceDue) {
			return &models.OverpaymentError{Amount: input.Amount, BalanceDue: balanceDue}
		}

		number, _, err := models.NextNumber(tx, models.NumberModuleInvoicePayment)
		if err != nil {
			return err
		}

		row := models.InvoicePayment{
			PaymentNumber: number,
			InvoiceId:     invoice.ID,
			BankAccountId: bank.ID,
			PaymentDate:   utils.StartOfDay(input.PaymentDate),
			Amount:        input.Amount,
			Method:        input.Method,
			Reference:     input.Reference,
			IsVoided:      utils.NewFalse(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		entryInput := models.NewJournalEntry{
			EntryDate:   input.PaymentDate,
			Description: fmt.Sprintf("Receipt %s for invoice %s", number, invoice.InvoiceNumber),
			SourceKind:  models.SourceKindInvoicePayment,
			SourceId:    row.ID,
			Lines: []models.NewJournalLine{
				{
					AccountId: bank.LedgerAccountId,
					Debit:     input.Amount,
					Memo:      string(input.Method) + " " + input.Reference,
				},
				{
					AccountId:        arAccount.ID,
					Credit:           input.Amount,
					Memo:             "accounts receivable",
					CounterpartyKind: models.CounterpartyKindCustomer,
					CounterpartyId:   invoice.CustomerId,
				},
			},
		}
		entry, err := PostEntryTx(tx, logger, userName, &entryInput)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.InvoicePayment{}).Where("id = ?", row.ID).
			Update("entry_id", entry.ID).Error; err != nil {
			return err
		}

		newPaid := invoice.AmountPaid.Add(input.Amount)
		status := models.InvoiceStatusPartial
		if newPaid.Equal(invoice.Total) {
			status = models.InvoiceStatusPaid
		}
		if err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Updates(map[string]interface{}{
				"amount_paid": newPaid,
				"status":      status,
			}).Error; err != nil {
			return err
		}

		row.EntryId = entry.ID
		payment = &row
		return nil
	})
	if err != nil {
		config.LogError(logger, "workflow", "ReceiveInvoicePayment", "receipt failed", input, err)
		return nil, err
	}
	return payment, nil
}

// VoidInvoicePayment reverses a receipt's entry and restores the invoice's
// balance.
func VoidInvoicePayment(ctx context.Context, paymentId int, reason string) error {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.InvoicePayment
		if err := tx.Where("id = ?", paymentId).First(&payment).Error; err != nil {
			return err
		}
		if payment.IsVoided != nil && *payment.IsVoided {
			return nil
		}

		var entry models.JournalEntry
		if err := tx.Preload("Lines").Where("id = ?", payment.EntryId).First(&entry).Error; err != nil {
			return err
		}
		if _, err := ReverseEntryTx(tx, logger, userName, &entry, reason); err != nil {
			return err
		}

		var invoice models.Invoice
		if err := tx.Where("id = ?", payment.InvoiceId).First(&invoice).Error; err != nil {
			return err
		}
		newPaid := invoice.AmountPaid.Sub(payment.Amount)
		status := models.InvoiceStatusPartial
		if newPaid.IsZero() {
			status = models.InvoiceStatusIssued
		}
		if err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Updates(map[string]interface{}{
				"amount_paid": newPaid,
				"status":      status,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.InvoicePayment{}).Where("id = ?", payment.ID).
			Update("is_voided", true).Error
	})
	if err != nil {
		config.LogError(logger, "workflow", "VoidInvoicePayment", "void failed", paymentId, err)
		return err
	}
	return nil
}

// VoidInvoice reverses the issue entry and voids the invoice. Paid or
// partially paid invoices must have their receipts voided first.
func VoidInvoice(ctx context.Context, invoiceId int, reason string) error {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Where("id = ?", invoiceId).First(&invoice).Error; err != nil {
			return err
		}
		switch invoice.Status {
		case models.InvoiceStatusDraft:
			return tx.Model(&models.Invoice{}).Where("id = ?", invoiceId).
				Update("status", models.InvoiceStatusVoid).Error
		case models.InvoiceStatusIssued:
		default:
			return &models.IntegrityError{Op: "VoidInvoice",
				Detail: fmt.Sprintf("invoice %s is %s; void its receipts first", invoice.InvoiceNumber, invoice.Status)}
		}
		if !invoice.AmountPaid.IsZero() {
			return &models.IntegrityError{Op: "VoidInvoice",
				Detail: fmt.Sprintf("invoice %s has receipts; void them first", invoice.InvoiceNumber)}
		}

		entry, err := models.GetEntryBySource(tx, models.SourceKindInvoice, invoice.ID)
		if err != nil {
			return err
		}
		if _, err := ReverseEntryTx(tx, logger, userName, entry, reason); err != nil {
			return err
		}

		return tx.Model(&models.Invoice{}).Where("id = ?", invoiceId).
			Update("status", models.InvoiceStatusVoid).Error
	})
	if err != nil {
		config.LogError(logger, "workflow", "VoidInvoice", "void failed", invoiceId, err)
		return err
	}
	return nil
}
