package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/report"
)

const (
	workbookName      = "production_plan.xlsx"
	maxSheetNameLen   = 31
	defaultSheetName  = "Sheet1"
	invalidSheetChars = `:\/?*[]`
)

// numericSuffixes marks the headers whose cells are written as numbers
var numericSuffixes = []string{"Qty", "Capacity", "Days", "Demand", "Lines", "Count", "Rank", "Value"}

// generateXLSXOutput saves the management workbook: one sheet per report table, one per machine plan
func generateXLSXOutput(result *dto.PlanningResult, rep *report.Report, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for XLSX format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tables := rep.Tables()
	for _, plan := range report.MachinePlans(result) {
		tables = append(tables, plan.Table)
	}

	f, err := BuildWorkbook(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	filename := filepath.Join(config.OutputDir, workbookName)
	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.stdout(), "💾 Workbook saved to: %s (%d sheets)\n", filename, len(tables))
	}
	return nil
}

// BuildWorkbook lays the tables out as sheets in order. The caller closes the file.
func BuildWorkbook(tables []report.Table) (*excelize.File, error) {
	f := excelize.NewFile()
	used := make(map[string]bool, len(tables))

	for i, table := range tables {
		name := uniqueSheetName(table.Name, used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheetName, name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, table); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %s: %w", name, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, table report.Table) error {
	numeric := make([]bool, len(table.Headers))
	for i, header := range table.Headers {
		numeric[i] = isNumericHeader(header)
	}

	if err := setRow(f, sheet, 1, stringCells(table.Headers)); err != nil {
		return err
	}
	for r, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for i, cell := range row {
			cells[i] = cell
			if i < len(numeric) && numeric[i] {
				if v, err := strconv.ParseFloat(cell, 64); err == nil {
					cells[i] = v
				}
			}
		}
		if err := setRow(f, sheet, r+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, axis, &cells)
}

func stringCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func isNumericHeader(header string) bool {
	for _, suffix := range numericSuffixes {
		if strings.HasSuffix(header, suffix) {
			return true
		}
	}
	return false
}

// uniqueSheetName strips characters Excel rejects and truncates to 31 runes
func uniqueSheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidSheetChars, r) {
			return '_'
		}
		return r
	}, name)
	clean = truncateRunes(clean, maxSheetNameLen)
	if clean == "" {
		clean = "Sheet"
	}

	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(clean, maxSheetNameLen-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
