package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"project-ledger-api/internal/models"
)

// utf8BOM lets spreadsheet tools detect the encoding of the CSV export.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportHeaders names the export columns in order.
var ExportHeaders = []string{
	"Project ID",
	"Project Name",
	"Start Date",
	"End Date",
	"Budget Amount (BDT)",
	"Advance Amount (BDT)",
	"Expense Amount (BDT)",
	"Balance Amount (BDT)",
	"Bill Submission Date",
	"SOP ROI Submission Date",
}

// exportHeaders returns ExportHeaders with the currency code substituted.
func exportHeaders(currency string) []string {
	if currency == "" || currency == DefaultCurrency {
		return ExportHeaders
	}
	out := make([]string, len(ExportHeaders))
	for i, h := range ExportHeaders {
		out[i] = strings.Replace(h, "("+DefaultCurrency+")", "("+currency+")", 1)
	}
	return out
}

// ExportRow is the textual form of one project in the delimited and xlsx exports.
// Dates are ISO, amounts are plain decimals, absent optional dates are the placeholder.
func ExportRow(p models.Project) []string {
	return []string{
		p.ID,
		p.Name,
		p.StartDate.String(),
		p.EndDate.String(),
		p.BudgetAmount.String(),
		p.AdvanceAmount.String(),
		p.ExpenseAmount.String(),
		p.BalanceAmount.String(),
		isoOrPlaceholder(p.BillSubmissionDate),
		isoOrPlaceholder(p.SopRoiEmailSubmissionDate),
	}
}

// WriteCSV writes the whole export document: byte-order mark, header, one row per project.
func WriteCSV(w io.Writer, projects []models.Project, currency string) error {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	cw := csv.NewWriter(&buf)
	if err := cw.Write(exportHeaders(currency)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range projects {
		if err := cw.Write(ExportRow(p)); err != nil {
			return fmt.Errorf("write csv row %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// ExportFilename follows <org>_Ledger_Export_<mode>_<isodate>.<ext>.
func ExportFilename(org string, mode Mode, day time.Time, ext string) string {
	org = strings.Join(strings.Fields(org), "_")
	if org == "" {
		org = "Ledger"
	}
	return fmt.Sprintf("%s_Ledger_Export_%s_%s.%s", org, mode, day.Format(models.DateLayout), strings.TrimPrefix(ext, "."))
}
