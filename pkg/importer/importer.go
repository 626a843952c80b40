package importer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"project-ledger-api/internal/models"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"
)

//go:embed mapping/projects.yaml
var defaultMapping []byte

// ErrRowErrors is returned when at least one row could not be turned into a project.
// Nothing is written in that case.
var ErrRowErrors = errors.New("rows with errors")

// Gateway is the subset of the project store an import writes to.
type Gateway interface {
	CreateProjects(ctx context.Context, projects []models.Project) ([]models.Project, error)
}

// ImportOptions defines the configuration for Excel import operations
type ImportOptions struct {
	Mapping   *MappingConfig // nil selects the built-in mapping
	DryRun    bool
	MaxErrors int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name    string     `json:"name"`
	Parsed  int        `json:"parsed"`
	Skipped int        `json:"skipped"`
	Errors  int        `json:"errors"`
	Samples []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Parsed   int            `json:"parsed"`
	Inserted int            `json:"inserted"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// MappingConfig represents the YAML mapping configuration
type MappingConfig struct {
	Version int                    `yaml:"version"`
	Sheets  map[string]SheetConfig `yaml:"sheets"`
}

type SheetConfig struct {
	Aliases map[string][]string     `yaml:"aliases"`
	Columns map[string]ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Field string `yaml:"field"`
	Type  string `yaml:"type"`
}

// Optional reports whether blank cells are allowed in the column.
func (c ColumnConfig) Optional() bool {
	return strings.HasSuffix(c.Type, "?")
}

// knownFields are the project fields a column may target.
var knownFields = map[string]bool{
	"name":                          true,
	"start_date":                    true,
	"end_date":                      true,
	"budget_amount":                 true,
	"advance_amount":                true,
	"expense_amount":                true,
	"bill_submission_date":          true,
	"sop_roi_email_submission_date": true,
	"is_settled":                    true,
}

// DefaultMapping returns the built-in mapping, which reads the workbook produced by the
// xlsx export.
func DefaultMapping() (*MappingConfig, error) {
	m, err := ParseMapping(defaultMapping)
	if err != nil {
		return nil, fmt.Errorf("built-in mapping: %w", err)
	}
	return m, nil
}

// LoadMapping reads a mapping file. An empty path selects the built-in mapping.
func LoadMapping(path string) (*MappingConfig, error) {
	if path == "" {
		return DefaultMapping()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return ParseMapping(data)
}

// ParseMapping decodes and checks a YAML mapping.
func ParseMapping(data []byte) (*MappingConfig, error) {
	var m MappingConfig
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	if len(m.Sheets) == 0 {
		return nil, errors.New("mapping has no sheets")
	}
	for sheet, sc := range m.Sheets {
		for header, col := range sc.Columns {
			if !knownFields[col.Field] {
				return nil, fmt.Errorf("sheet %q column %q: unknown field %q", sheet, header, col.Field)
			}
			switch strings.TrimSuffix(strings.ToUpper(col.Type), "?") {
			case "TEXT", "DATE", "DECIMAL", "BOOL":
			default:
				return nil, fmt.Errorf("sheet %q column %q: unknown type %q", sheet, header, col.Type)
			}
		}
	}
	return &m, nil
}

// sheet returns the mapping for a sheet name, falling back to the "*" entry.
func (m *MappingConfig) sheet(name string) (SheetConfig, bool) {
	if sc, ok := m.Sheets[name]; ok {
		return sc, true
	}
	sc, ok := m.Sheets["*"]
	return sc, ok
}

// ParseExcel reads every mapped sheet of an xlsx workbook into unsaved projects. Rows that
// fail are counted and sampled in the summary instead of aborting the parse.
func ParseExcel(r io.Reader, opts ImportOptions) ([]models.Project, ImportSummary, error) {
	summary := ImportSummary{
		DryRun: opts.DryRun,
		Sheets: []SheetSummary{},
	}

	mapping := opts.Mapping
	if mapping == nil {
		m, err := DefaultMapping()
		if err != nil {
			return nil, summary, err
		}
		mapping = m
	}
	if opts.MaxErrors == 0 {
		opts.MaxErrors = 50
	}

	// xlsx.OpenBinary needs the whole file
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to read Excel file: %w", err)
	}
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to open Excel file: %w", err)
	}

	var projects []models.Project
	for _, sheet := range xlFile.Sheets {
		config, ok := mapping.sheet(sheet.Name)
		if !ok {
			continue
		}

		parsed, sheetSummary := processSheet(sheet, config, xlFile.Date1904)
		projects = append(projects, parsed...)
		summary.Sheets = append(summary.Sheets, sheetSummary)
		summary.Parsed += sheetSummary.Parsed
		summary.Skipped += sheetSummary.Skipped
		summary.Errors += sheetSummary.Errors

		if summary.Errors > opts.MaxErrors {
			return projects, summary, fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
		}
	}
	return projects, summary, nil
}

// ImportExcel parses a workbook and stores its projects in one all-or-nothing batch.
// A dry run, or a workbook with any failing row, writes nothing.
func ImportExcel(ctx context.Context, gw Gateway, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	projects, summary, err := ParseExcel(r, opts)
	if err != nil {
		return summary, err
	}
	if summary.Errors > 0 {
		return summary, fmt.Errorf("%w: %d", ErrRowErrors, summary.Errors)
	}
	if opts.DryRun || len(projects) == 0 {
		return summary, nil
	}

	saved, err := gw.CreateProjects(ctx, projects)
	if err != nil {
		return summary, err
	}
	summary.Inserted = len(saved)
	return summary, nil
}

// columnIndex maps each configured header to its column, resolving aliases.
func columnIndex(header *xlsx.Row, config SheetConfig) map[string]int {
	lookup := make(map[string]string)
	for canonical := range config.Columns {
		lookup[strings.ToUpper(canonical)] = canonical
	}
	for canonical, aliases := range config.Aliases {
		for _, alias := range aliases {
			if _, taken := lookup[strings.ToUpper(alias)]; !taken {
				lookup[strings.ToUpper(alias)] = canonical
			}
		}
	}

	index := make(map[string]int)
	_ = header.ForEachCell(func(c *xlsx.Cell) error {
		name := strings.ToUpper(strings.TrimSpace(c.String()))
		if canonical, ok := lookup[name]; ok {
			if _, seen := index[canonical]; !seen {
				col, _ := c.GetCoordinates()
				index[canonical] = col
			}
		}
		return nil
	}, xlsx.SkipEmptyCells)
	return index
}

func processSheet(sheet *xlsx.Sheet, config SheetConfig, date1904 bool) ([]models.Project, SheetSummary) {
	summary := SheetSummary{Name: sheet.Name}
	fail := func(row int, msg string) {
		summary.Errors++
		if len(summary.Samples) < 10 {
			summary.Samples = append(summary.Samples, RowError{Sheet: sheet.Name, Row: row, Message: msg})
		}
	}

	headerRow, err := sheet.Row(0)
	if err != nil {
		fail(1, "Failed to read header row: "+err.Error())
		return nil, summary
	}
	index := columnIndex(headerRow, config)
	for canonical, col := range config.Columns {
		if _, ok := index[canonical]; !ok && !col.Optional() {
			fail(1, fmt.Sprintf("missing column %q", canonical))
		}
	}
	if summary.Errors > 0 {
		return nil, summary
	}

	var projects []models.Project
	for rowIdx := 1; rowIdx < sheet.MaxRow; rowIdx++ {
		row, err := sheet.Row(rowIdx)
		if err != nil {
			break
		}

		cells := make(map[string]*xlsx.Cell, len(index))
		empty := true
		for canonical, col := range index {
			cell := row.GetCell(col)
			cells[canonical] = cell
			if !blank(cell.String()) {
				empty = false
			}
		}
		if empty {
			summary.Skipped++
			continue
		}

		in, err := buildInput(cells, config, date1904)
		if err != nil {
			fail(rowIdx+1, err.Error())
			continue
		}
		p := in.Project()
		if err := p.Validate(); err != nil {
			fail(rowIdx+1, err.Error())
			continue
		}
		projects = append(projects, p)
		summary.Parsed++
	}
	return projects, summary
}

func buildInput(cells map[string]*xlsx.Cell, config SheetConfig, date1904 bool) (models.ProjectInput, error) {
	var in models.ProjectInput
	for canonical, col := range config.Columns {
		cell, ok := cells[canonical]
		if !ok || blank(cell.String()) {
			if col.Optional() {
				continue
			}
			return in, fmt.Errorf("%s is required", canonical)
		}

		value, err := parseValue(cell, col.Type, date1904)
		if err != nil {
			return in, fmt.Errorf("failed to parse %s: %v", canonical, err)
		}
		assign(&in, col.Field, value)
	}
	return in, nil
}

func assign(in *models.ProjectInput, field string, value interface{}) {
	switch field {
	case "name":
		in.Name = value.(string)
	case "start_date":
		in.StartDate = value.(models.Date)
	case "end_date":
		in.EndDate = value.(models.Date)
	case "budget_amount":
		in.BudgetAmount = value.(decimal.Decimal)
	case "advance_amount":
		in.AdvanceAmount = value.(decimal.Decimal)
	case "expense_amount":
		in.ExpenseAmount = value.(decimal.Decimal)
	case "bill_submission_date":
		d := value.(models.Date)
		in.BillSubmissionDate = &d
	case "sop_roi_email_submission_date":
		d := value.(models.Date)
		in.SopRoiEmailSubmissionDate = &d
	case "is_settled":
		b := value.(bool)
		in.IsSettled = &b
	}
}

// blank treats the export placeholder like an empty cell.
func blank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "N/A") || s == "-"
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2 Jan 2006",
	"2 January 2006",
}

func parseValue(cell *xlsx.Cell, valueType string, date1904 bool) (interface{}, error) {
	value := strings.TrimSpace(cell.String())
	valueType = strings.ToUpper(strings.TrimSuffix(valueType, "?"))

	switch valueType {
	case "TEXT":
		return value, nil
	case "DECIMAL":
		// The raw value is free of display rounding.
		raw := strings.TrimSpace(cell.Value)
		if raw == "" {
			raw = value
		}
		raw = strings.ReplaceAll(raw, ",", "")
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid amount: %s", value)
		}
		return d, nil
	case "BOOL":
		value = strings.ToLower(value)
		return value == "yes" || value == "y" || value == "true" || value == "1", nil
	case "DATE":
		if cell.IsTime() {
			if t, err := cell.GetTime(date1904); err == nil {
				return models.DateOf(t), nil
			}
		}
		for _, format := range dateFormats {
			if t, err := time.Parse(format, value); err == nil {
				return models.DateOf(t), nil
			}
		}
		// unformatted serial day number
		if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
			return models.DateOf(xlsx.TimeFromExcelTime(serial, date1904)), nil
		}
		return nil, fmt.Errorf("invalid date format: %s", value)
	default:
		return value, nil
	}
}
