package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a header plus data rows read from a CSV file or a workbook sheet
type Table struct {
	Source string
	Header []string
	Rows   [][]string
	// RowNumbers holds the 1-based file row of each data row
	RowNumbers []int
}

// ReadFile reads path as CSV or XLSX depending on its extension. sheet selects the
// workbook sheet; empty means the first one.
func ReadFile(path, sheet string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data), path, sheet)
}

// Parse reads r as CSV or XLSX depending on the extension of name
func Parse(r io.Reader, name, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(r, name, sheet)
	case ".csv", ".txt", "":
		return ParseCSV(r, name)
	default:
		return nil, fmt.Errorf("unsupported file type for %s: expected .csv or .xlsx", name)
	}
}

// ParseCSV reads a comma separated table. Rows may be ragged.
func ParseCSV(r io.Reader, source string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	var lines []int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV %s: %w", source, err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
	return newTable(source, records, lines)
}

// ParseXLSX reads one sheet of a workbook using the displayed cell values
func ParseXLSX(r io.Reader, source, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", source, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("workbook %s has no sheet %q", source, sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, source, err)
	}
	return newTable(source, rows, nil)
}

// newTable splits records into header and data rows. lines gives the file line of
// each record; nil means records are consecutive from line 1.
func newTable(source string, records [][]string, lines []int) (*Table, error) {
	t := &Table{Source: source}

	headerAt := -1
	for i, record := range records {
		if !blank(record) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("%s must have a header row", source)
	}

	t.Header = make([]string, len(records[headerAt]))
	for i, h := range records[headerAt] {
		t.Header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	for i := headerAt + 1; i < len(records); i++ {
		if blank(records[i]) {
			continue
		}
		t.Rows = append(t.Rows, records[i])
		if lines != nil {
			t.RowNumbers = append(t.RowNumbers, lines[i])
		} else {
			t.RowNumbers = append(t.RowNumbers, i+1)
		}
	}
	return t, nil
}

// Cell returns the trimmed value at column idx, or "" for missing cells
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
