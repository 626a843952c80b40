package ledger

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"project-ledger-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, utf8BOM), "export must start with a UTF-8 BOM")
	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV_RoundTripsSpecialCharacters(t *testing.T) {
	p := project("p-1", `Q4, "Phase 2"`, "2024-01-01", "2024-03-31", "100000", "40000", "15000")
	bill := models.MustParseDate("2024-04-02")
	p.BillSubmissionDate = &bill

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.Project{p}, "BDT"))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, ExportHeaders, records[0])
	assert.Equal(t, []string{
		"p-1",
		`Q4, "Phase 2"`,
		"2024-01-01",
		"2024-03-31",
		"100000",
		"40000",
		"15000",
		"25000",
		"2024-04-02",
		"N/A",
	}, records[1])

	assert.Contains(t, buf.String(), `"Q4, ""Phase 2"""`)
}

func TestWriteCSV_EmptyListHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, ""))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 1)
	assert.Equal(t, "Budget Amount (BDT)", records[0][4])
}

func TestWriteCSV_CurrencyInHeaders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, "USD"))

	records := readCSV(t, buf.Bytes())
	assert.Equal(t, "Balance Amount (USD)", records[0][7])
	assert.Equal(t, "Budget Amount (BDT)", ExportHeaders[4], "package headers stay untouched")
}

func TestWriteCSV_MultilineName(t *testing.T) {
	p := project("p-2", "Line one\nLine two", "2024-01-01", "2024-01-02", "1", "1", "1")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.Project{p}, "BDT"))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, "Line one\nLine two", records[1][1])
	assert.Equal(t, "0", records[1][7])
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "Akij_Ledger_Export_completed_2024-02-01.csv",
		ExportFilename("Akij", ModeCompleted, day("2024-02-01"), "csv"))
	assert.Equal(t, "Akij_Venture_Ledger_Export_upcoming_2024-02-01.xlsx",
		ExportFilename(" Akij  Venture ", ModeUpcoming, day("2024-02-01"), ".xlsx"))
	assert.True(t, strings.HasPrefix(ExportFilename("", ModeUpcoming, day("2024-02-01"), "csv"), "Ledger_"))
}

func TestWriteXLSX(t *testing.T) {
	projects := []models.Project{
		project("p-1", "Site A", "2024-01-01", "2024-01-31", "100000", "40000", "15000"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, projects, "Completed", "BDT"))

	wb, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)

	sh := wb.Sheets[0]
	assert.Equal(t, "Completed", sh.Name)

	header, err := sh.Cell(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Project ID", header.Value)

	name, err := sh.Cell(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Site A", name.Value)

	balance, err := sh.Cell(1, 7)
	require.NoError(t, err)
	f, err := balance.Float()
	require.NoError(t, err)
	assert.Equal(t, 25000.0, f)
}
