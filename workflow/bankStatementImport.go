package workflow

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petfriendlyvet/ledger_backend/config"
	"github.com/petfriendlyvet/ledger_backend/models"
	"github.com/petfriendlyvet/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ImportResult summarizes one statement file import.
type ImportResult struct {
	BatchId    string `json:"batch_id"`
	Imported   int    `json:"imported"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
}

type statementRow struct {
	TxnDate     time.Time
	Description string
	Reference   string
	Amount      decimal.Decimal
}

// ImportStatementCSV imports a bank CSV with columns
// date,description,reference,amount (header optional). Amounts are signed
// from the bank's perspective. Rows already imported are detected by content
// hash and counted as duplicates, so re-importing a file is harmless.
func ImportStatementCSV(ctx context.Context, bankAccountId int, r io.Reader) (*ImportResult, error) {
	rows, err := parseStatementCSV(r)
	if err != nil {
		return nil, err
	}
	return importRows(ctx, bankAccountId, rows)
}

// ImportStatementOFX imports the BANKTRANLIST of an OFX 1.x (SGML) file. The
// parser reads only STMTTRN blocks and tolerates the tag soup banks emit.
func ImportStatementOFX(ctx context.Context, bankAccountId int, r io.Reader) (*ImportResult, error) {
	rows, err := parseStatementOFX(r)
	if err != nil {
		return nil, err
	}
	return importRows(ctx, bankAccountId, rows)
}

func importRows(ctx context.Context, bankAccountId int, rows []statementRow) (*ImportResult, error) {
	logger := config.GetLogger()
	if _, err := models.GetBankAccount(ctx, bankAccountId); err != nil {
		return nil, fmt.Errorf("bank account not found")
	}

	result := ImportResult{BatchId: uuid.NewString()}
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if row.Amount.IsZero() {
				result.Skipped++
				continue
			}
			line := models.BankStatementLine{
				BankAccountId: bankAccountId,
				TxnDate:       utils.StartOfDay(row.TxnDate),
				Description:   row.Description,
				Reference:     row.Reference,
				Amount:        row.Amount,
				Status:        models.StatementLineUnmatched,
				ImportHash: models.ComputeImportHash(
					bankAccountId, row.TxnDate, row.Amount, row.Description, row.Reference),
				ImportBatchId: result.BatchId,
			}
			if err := tx.Create(&line).Error; err != nil {
				if isDuplicateKeyErr(err) {
					result.Duplicates++
					continue
				}
				return err
			}
			result.Imported++
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, "workflow", "importRows", "statement import failed", bankAccountId, err)
		return nil, err
	}

	logger.WithField("bank_account_id", bankAccountId).
		WithField("imported", result.Imported).
		WithField("duplicates", result.Duplicates).
		Info("bank statement imported")
	return &result, nil
}

func parseStatementCSV(r io.Reader) ([]statementRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	var rows []statementRow
	for i, record := range records {
		if len(record) < 4 {
			return nil, fmt.Errorf("row %d: expected 4 columns (date,description,reference,amount), got %d", i+1, len(record))
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "date") {
			continue
		}
		txnDate, err := utils.ParseDate(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q", i+1, record[0])
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(record[3]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q", i+1, record[3])
		}
		rows = append(rows, statementRow{
			TxnDate:     txnDate,
			Description: strings.TrimSpace(record[1]),
			Reference:   strings.TrimSpace(record[2]),
			Amount:      amount,
		})
	}
	return rows, nil
}

// parseStatementOFX walks STMTTRN blocks line by line. OFX 1.x is SGML, not
// XML: closing tags are optional, so a value runs to end of line.
func parseStatementOFX(r io.Reader) ([]statementRow, error) {
	var rows []statementRow
	var current *statementRow

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "<STMTTRN>"):
			current = &statementRow{}
		case strings.HasPrefix(line, "</STMTTRN>"):
			if current != nil && !current.Amount.IsZero() {
				rows = append(rows, *current)
			}
			current = nil
		case current == nil:
			continue
		case strings.HasPrefix(line, "<DTPOSTED>"):
			raw := ofxValue(line, "<DTPOSTED>")
			if len(raw) >= 8 {
				t, err := time.ParseInLocation("20060102", raw[:8], time.UTC)
				if err != nil {
					return nil, fmt.Errorf("invalid DTPOSTED %q", raw)
				}
				current.TxnDate = t
			}
		case strings.HasPrefix(line, "<TRNAMT>"):
			amount, err := decimal.NewFromString(ofxValue(line, "<TRNAMT>"))
			if err != nil {
				return nil, fmt.Errorf("invalid TRNAMT in %q", line)
			}
			current.Amount = amount
		case strings.HasPrefix(line, "<FITID>"):
			current.Reference = ofxValue(line, "<FITID>")
		case strings.HasPrefix(line, "<NAME>"):
			current.Description = ofxValue(line, "<NAME>")
		case strings.HasPrefix(line, "<MEMO>"):
			if current.Description == "" {
				current.Description = ofxValue(line, "<MEMO>")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func ofxValue(line, tag string) string {
	v := strings.TrimPrefix(line, tag)
	if i := strings.Index(v, "</"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
