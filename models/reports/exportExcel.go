package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportTrialBalanceExcel writes the trial balance as an xlsx workbook.
func ExportTrialBalanceExcel(report *TrialBalanceReport, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Trial Balance"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Code", "Account", "Debit", "Credit"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, row := range report.Rows {
		r := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", r), row.AccountCode)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", r), row.AccountName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", r), row.Debit.InexactFloat64())
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", r), row.Credit.InexactFloat64())
	}

	totalRow := len(report.Rows) + 2
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", totalRow), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", totalRow), report.TotalDebit.InexactFloat64())
	_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", totalRow), report.TotalCredit.InexactFloat64())

	return f.Write(w)
}

// ExportProfitAndLossExcel writes the P&L as an xlsx workbook, one indented
// row per statement line.
func ExportProfitAndLossExcel(report *ProfitAndLossReport, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Profit and Loss"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Profit and Loss %s to %s",
		report.FromDate.Format("2006-01-02"), report.ToDate.Format("2006-01-02")))

	row := 3
	row = writeSection(f, sheet, row, "Revenue", report.Revenue)
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total Revenue")
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), report.TotalRev.InexactFloat64())
	row += 2

	row = writeSection(f, sheet, row, "Expenses", report.Expenses)
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total Expenses")
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), report.TotalExp.InexactFloat64())
	row += 2

	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Net Income")
	_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), report.NetIncome.InexactFloat64())

	return f.Write(w)
}

func writeSection(f *excelize.File, sheet string, row int, title string, nodes []*StatementNode) int {
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), title)
	row++
	return writeNodes(f, sheet, row, nodes, 1)
}

func writeNodes(f *excelize.File, sheet string, row int, nodes []*StatementNode, depth int) int {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	for _, node := range nodes {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), indent+node.AccountCode)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), node.AccountName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), node.Amount.InexactFloat64())
		row++
		row = writeNodes(f, sheet, row, node.Children, depth+1)
	}
	return row
}
