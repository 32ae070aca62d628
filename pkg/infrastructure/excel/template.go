package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/domain/services"
)

// TemplateOptions locates the item and quantity columns of the production plan template
type TemplateOptions struct {
	Sheet      string
	HeaderRow  int
	StartRow   int
	ItemHeader string
	QtyHeader  string
}

// DefaultTemplateOptions matches the customer order template in use on the shop floor
func DefaultTemplateOptions() TemplateOptions {
	return TemplateOptions{
		Sheet:      "Clinet Orders",
		HeaderRow:  2,
		StartRow:   3,
		ItemHeader: "Item No.",
		QtyHeader:  "Qty",
	}
}

// FillResult reports how many template rows received a quantity
type FillResult struct {
	Filled         int      `json:"filled"`
	Unmatched      int      `json:"unmatched"`
	UnmatchedCodes []string `json:"unmatched_codes"`
}

// FillTemplate writes the final quantity of every plan product into the template's
// quantity column, zero included, and writes the workbook to out. Rows whose item is
// not in the plan are left as they are and reported.
func FillTemplate(
	template io.Reader,
	out io.Writer,
	final []entities.FinalPlanLine,
	normalizer *services.CodeNormalizer,
	opts TemplateOptions,
) (*FillResult, error) {
	f, err := excelize.OpenReader(template)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(opts.Sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet not found: %s", opts.Sheet)
	}
	rows, err := f.GetRows(opts.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", opts.Sheet, err)
	}
	if len(rows) < opts.HeaderRow {
		return nil, fmt.Errorf("header row %d not found in sheet %s", opts.HeaderRow, opts.Sheet)
	}

	header := rows[opts.HeaderRow-1]
	itemCol, err := headerColumn(header, opts.ItemHeader, opts.HeaderRow)
	if err != nil {
		return nil, err
	}
	qtyCol, err := headerColumn(header, opts.QtyHeader, opts.HeaderRow)
	if err != nil {
		return nil, err
	}

	quantities := make(map[string]decimal.Decimal, len(final))
	for _, line := range final {
		key := normalizer.JoinKey(string(line.ProductCode))
		quantities[key] = quantities[key].Add(line.FinalQty)
	}

	result := &FillResult{UnmatchedCodes: make([]string, 0)}
	for r := opts.StartRow; r <= len(rows); r++ {
		row := rows[r-1]
		if itemCol >= len(row) {
			continue
		}
		raw := strings.TrimSpace(row[itemCol])
		key := normalizer.JoinKey(raw)
		if key == "" {
			continue
		}

		qty, ok := quantities[key]
		if !ok {
			result.Unmatched++
			result.UnmatchedCodes = append(result.UnmatchedCodes, raw)
			continue
		}
		cell, err := excelize.CoordinatesToCellName(qtyCol+1, r)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(opts.Sheet, cell, qty.InexactFloat64()); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", cell, err)
		}
		result.Filled++
	}

	if err := f.Write(out); err != nil {
		return nil, fmt.Errorf("failed to write filled template: %w", err)
	}
	return result, nil
}

func headerColumn(header []string, name string, headerRow int) (int, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("header %q not found in row %d", name, headerRow)
}
