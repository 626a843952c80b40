package ledger

import (
	"strings"

	"project-ledger-api/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// DefaultCurrency is the ledger's single currency code.
	DefaultCurrency = "BDT"
	// Placeholder stands in for an optional date that was never recorded.
	Placeholder = "N/A"
	// DisplayDateLayout renders dates as "5 Mar 2024".
	DisplayDateLayout = "2 Jan 2006"
)

// Formatter applies the presentation rules shared by the list view, the audit view and
// the exports, so all of them agree on how a project's figures read.
type Formatter struct {
	Currency string
	printer  *message.Printer
}

// NewFormatter returns a formatter for the given currency code using British grouping.
func NewFormatter(currency string) Formatter {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Formatter{
		Currency: currency,
		printer:  message.NewPrinter(language.BritishEnglish),
	}
}

// FormatCurrency renders v with zero decimals, half away from zero, and thousands
// separators: "BDT 100,000", "-BDT 5,000".
func (f Formatter) FormatCurrency(v decimal.Decimal) string {
	if f.printer == nil {
		f = NewFormatter(f.Currency)
	}
	rounded := v.Round(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	if n := rounded.BigInt(); !n.IsInt64() {
		return sign + f.Currency + " " + groupThousands(n.String())
	}
	return sign + f.Currency + " " + f.printer.Sprintf("%d", rounded.IntPart())
}

// groupThousands inserts commas into a string of decimal digits, for amounts past int64.
func groupThousands(digits string) string {
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatDate renders d as "5 Mar 2024". An unset date renders as the placeholder.
func (f Formatter) FormatDate(d models.Date) string {
	if d.IsZero() {
		return Placeholder
	}
	return d.Format(DisplayDateLayout)
}

// FormatOptionalDate is FormatDate for nullable dates.
func (f Formatter) FormatOptionalDate(d *models.Date) string {
	if d == nil {
		return Placeholder
	}
	return f.FormatDate(*d)
}

// isoOrPlaceholder renders an optional date for machine-readable exports.
func isoOrPlaceholder(d *models.Date) string {
	if d == nil || d.IsZero() {
		return Placeholder
	}
	return d.String()
}
