package ledger

import (
	"fmt"
	"io"

	"project-ledger-api/internal/models"

	"github.com/tealeg/xlsx/v3"
)

// amountColumns are the ExportRow indexes written as numeric cells.
var amountColumns = map[int]bool{4: true, 5: true, 6: true, 7: true}

// WriteXLSX writes the export table as a single-sheet workbook. Amounts are numeric cells
// so spreadsheet formulas work on them; everything else matches the CSV export.
func WriteXLSX(w io.Writer, projects []models.Project, sheetName, currency string) error {
	if sheetName == "" {
		sheetName = "Ledger"
	}
	if len(sheetName) > 31 {
		sheetName = sheetName[:31]
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders(currency) {
		header.AddCell().SetString(h)
	}

	for _, p := range projects {
		row := sheet.AddRow()
		amounts := []float64{
			p.BudgetAmount.InexactFloat64(),
			p.AdvanceAmount.InexactFloat64(),
			p.ExpenseAmount.InexactFloat64(),
			p.BalanceAmount.InexactFloat64(),
		}
		for i, v := range ExportRow(p) {
			cell := row.AddCell()
			if amountColumns[i] {
				cell.SetFloat(amounts[i-4])
				continue
			}
			cell.SetString(v)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
