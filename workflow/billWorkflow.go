package workflow

import (
	"context"
	"fmt"

	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"gorm.io/gorm"
)

// ApproveBill numbers the bill and posts its ledger effect: each line debits
// its expense (or asset) account, the total credits the AP control account.
// The bill enters the payable subledger at that moment and not before.
func ApproveBill(ctx context.Context, billId int) (*models.Bill, error) {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	apAccount, err := models.GetAccountByCode(ctx, config.GetLedgerSettings().APControlCode)
	if err != nil {
		return nil, fmt.Errorf("AP control account not configured: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bill models.Bill
		if err := tx.Preload("Lines").Where("id = ?", billId).First(&bill).Error; err != nil {
			return err
		}
		if bill.Status != models.BillStatusDraft {
			return &models.IntegrityError{Op: "ApproveBill",
				Detail: fmt.Sprintf("bill %d is %s", billId, bill.Status)}
		}

		number, _, err := models.NextNumber(tx, models.NumberModuleBill)
		if err != nil {
			return err
		}

		input := models.NewJournalEntry{
			EntryDate:   bill.BillDate,
			Description: fmt.Sprintf("Bill %s (%s)", number, bill.InvoiceNumber),
			SourceKind:  models.SourceKindBill,
			SourceId:    bill.ID,
		}
		for _, line := range bill.Lines {
			input.Lines = append(input.Lines, models.NewJournalLine{
				AccountId: line.AccountId,
				Debit:     line.Amount,
				Memo:      line.Description,
			})
		}
		if !bill.Tax.IsZero() {
			// Tax rides on the first line's account; a dedicated tax-credit
			// account can be modelled as its own bill line instead.
			input.Lines = append(input.Lines, models.NewJournalLine{
				AccountId: bill.Lines[0].AccountId,
				Debit:     bill.Tax,
				Memo:      "tax",
			})
		}
		input.Lines = append(input.Lines, models.NewJournalLine{
			AccountId:        apAccount.ID,
			Credit:           bill.Total,
			Memo:             "accounts payable",
			CounterpartyKind: models.CounterpartyKindVendor,
			CounterpartyId:   bill.VendorId,
		})

		if _, err := PostEntryTx(tx, logger, userName, &input); err != nil {
			return err
		}

		return tx.Model(&models.Bill{}).Where("id = ?", bill.ID).
			Updates(map[string]interface{}{
				"bill_number": number,
				"status":      models.BillStatusApproved,
			}).Error
	})
	if err != nil {
		config.LogError(logger, "workflow", "ApproveBill", "approval failed", billId, err)
		return nil, err
	}
	return models.GetBill(ctx, billId)
}

// PayBill records a payment against an approved bill and posts AP debit /
// bank credit. Overpayment is rejected; the remaining balance drives the
// partial/paid status flip.
func PayBill(ctx context.Context, input *models.NewBillPayment) (*models.BillPayment, error) {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	if err := input.Validate(); err != nil {
		return nil, err
	}

	apAccount, err := models.GetAccountByCode(ctx, config.GetLedgerSettings().APControlCode)
	if err != nil {
		return nil, fmt.Errorf("AP control account not configured: %w", err)
	}
	bank, err := models.GetBankAccount(ctx, input.BankAccountId)
	if err != nil {
		return nil, fmt.Errorf("bank account not found")
	}

	var payment *models.BillPayment
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bill models.Bill
		if err := tx.Where("id = ?", input.BillId).First(&bill).Error; err != nil {
			return err
		}
		switch bill.Status {
		case models.BillStatusApproved, models.BillStatusPartial:
		default:
			return &models.IntegrityError{Op: "PayBill",
				Detail: fmt.Sprintf("bill %s is %s", bill.BillNumber, bill.Status)}
		}
		balanceDue := bill.BalanceDue()
		if input.Amount.GreaterThan(balanceDue) {
			return &models.OverpaymentError{Amount: input.Amount, BalanceDue: balanceDue}
		}

		number, _, err := models.NextNumber(tx, models.NumberModuleBillPayment)
		if err != nil {
			return err
		}

		entryInput := models.NewJournalEntry{
			EntryDate:   input.PaymentDate,
			Description: fmt.Sprintf("Payment %s for bill %s", number, bill.BillNumber),
			SourceKind:  models.SourceKindBillPayment,
			Lines: []models.NewJournalLine{
				{
					AccountId:        apAccount.ID,
					Debit:            input.Amount,
					Memo:             "accounts payable",
					CounterpartyKind: models.CounterpartyKindVendor,
					CounterpartyId:   bill.VendorId,
				},
				{
					AccountId: bank.LedgerAccountId,
					Credit:    input.Amount,
					Memo:      string(input.Method) + " " + input.Reference,
				},
			},
		}

		row := models.BillPayment{
			PaymentNumber: number,
			BillId:        bill.ID,
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

		entryInput.SourceId = row.ID
		entry, err := PostEntryTx(tx, logger, userName, &entryInput)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.BillPayment{}).Where("id = ?", row.ID).
			Update("entry_id", entry.ID).Error; err != nil {
			return err
		}

		newPaid := bill.AmountPaid.Add(input.Amount)
		status := models.BillStatusPartial
		if newPaid.Equal(bill.Total) {
			status = models.BillStatusPaid
		}
		if err := tx.Model(&models.Bill{}).Where("id = ?", bill.ID).
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
		config.LogError(logger, "workflow", "PayBill", "payment failed", input, err)
		return nil, err
	}
	return payment, nil
}

// VoidBillPayment reverses a payment's entry and restores the bill's balance.
func VoidBillPayment(ctx context.Context, paymentId int, reason string) error {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.BillPayment
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

		var bill models.Bill
		if err := tx.Where("id = ?", payment.BillId).First(&bill).Error; err != nil {
			return err
		}
		newPaid := bill.AmountPaid.Sub(payment.Amount)
		status := models.BillStatusPartial
		if newPaid.IsZero() {
			status = models.BillStatusApproved
		}
		if err := tx.Model(&models.Bill{}).Where("id = ?", bill.ID).
			Updates(map[string]interface{}{
				"amount_paid": newPaid,
				"status":      status,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.BillPayment{}).Where("id = ?", payment.ID).
			Update("is_voided", true).Error
	})
	if err != nil {
		config.LogError(logger, "workflow", "VoidBillPayment", "void failed", paymentId, err)
		return err
	}
	return nil
}

// VoidBill reverses the approval entry and voids the bill. Bills with
// payments recorded must have those voided first.
func VoidBill(ctx context.Context, billId int, reason string) error {
	logger := config.GetLogger()
	userName, _ := utils.GetUserNameFromContext(ctx)
	db := config.GetDB()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bill models.Bill
		if err := tx.Where("id = ?", billId).First(&bill).Error; err != nil {
			return err
		}
		switch bill.Status {
		case models.BillStatusDraft:
			return tx.Model(&models.Bill{}).Where("id = ?", billId).
				Update("status", models.BillStatusVoid).Error
		case models.BillStatusApproved:
		default:
			return &models.IntegrityError{Op: "VoidBill",
				Detail: fmt.Sprintf("bill %s is %s; void its payments first", bill.BillNumber, bill.Status)}
		}
		if !bill.AmountPaid.IsZero() {
			return &models.IntegrityError{Op: "VoidBill",
				Detail: fmt.Sprintf("bill %s has payments; void them first", bill.BillNumber)}
		}

		entry, err := models.GetEntryBySource(tx, models.SourceKindBill, bill.ID)
		if err != nil {
			return err
		}
		if _, err := ReverseEntryTx(tx, logger, userName, entry, reason); err != nil {
			return err
		}

		return tx.Model(&models.Bill{}).Where("id = ?", billId).
			Update("status", models.BillStatusVoid).Error
	})
	if err != nil {
		config.LogError(logger, "workflow", "VoidBill", "void failed", billId, err)
		return err
	}
	return nil
}
