package tabular

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01-02-06",
	"1/2/2006",
	"1/2/06",
}

// Loader turns input tables into engine inputs
type Loader struct {
	log *logger.Logger
}

// NewLoader creates a new tabular loader
func NewLoader(log *logger.Logger) *Loader {
	return &Loader{log: logger.OrNop(log)}
}

// LoadStock reads the stock export
func (l *Loader) LoadStock(path, sheet string) ([]dto.StockRow, error) {
	t, err := ReadFile(path, sheet)
	if err != nil {
		return nil, err
	}
	return l.StockRows(t)
}

// StockRows maps a stock table. Only the code and on-hand columns are mandatory;
// cell values are passed through raw for the merger to validate.
func (l *Loader) StockRows(t *Table) ([]dto.StockRow, error) {
	idx, err := t.RequireColumns(FieldCode, FieldOnHand)
	if err != nil {
		return nil, err
	}
	description := t.OptionalColumn(FieldDescription)
	category := t.OptionalColumn(FieldCategory)
	openOrders := t.OptionalColumn(FieldOpenOrders)
	unit := t.OptionalColumn(FieldUnit)
	machine := t.OptionalColumn(FieldMachine)
	stages := machine >= 0 && strings.HasPrefix(normalizeHeader(t.Header[machine]), "production line")

	rows := make([]dto.StockRow, 0, len(t.Rows))
	for i, record := range t.Rows {
		row := dto.StockRow{
			Row:           t.RowNumbers[i],
			Code:          dto.Text(Cell(record, idx[FieldCode.Name])),
			Description:   dto.Text(Cell(record, description)),
			Category:      dto.Text(Cell(record, category)),
			OnHandQty:     dto.Text(Cell(record, idx[FieldOnHand.Name])),
			OpenOrdersQty: dto.Text(Cell(record, openOrders)),
			UnitOfMeasure: dto.Text(Cell(record, unit)),
		}
		assigned := Cell(record, machine)
		if stages {
			assigned, row.LaterStages = splitStages(assigned)
		}
		row.AssignedMachine = dto.Text(assigned)
		rows = append(rows, row)
	}

	l.log.Debug("stock rows loaded", "source", t.Source, "rows", len(rows))
	return rows, nil
}

// LoadItems reads the item master export
func (l *Loader) LoadItems(path, sheet string) ([]dto.ItemRow, error) {
	t, err := ReadFile(path, sheet)
	if err != nil {
		return nil, err
	}
	return l.ItemRows(t)
}

// ItemRows maps an item master table
func (l *Loader) ItemRows(t *Table) ([]dto.ItemRow, error) {
	idx, err := t.RequireColumns(FieldCode)
	if err != nil {
		return nil, err
	}
	description := t.OptionalColumn(FieldDescription)
	category := t.OptionalColumn(FieldCategory)
	unit := t.OptionalColumn(FieldUnit)
	machine := t.OptionalColumn(FieldMachine)

	rows := make([]dto.ItemRow, 0, len(t.Rows))
	for i, record := range t.Rows {
		rows = append(rows, dto.ItemRow{
			Row:             t.RowNumbers[i],
			Code:            dto.Text(Cell(record, idx[FieldCode.Name])),
			Description:     dto.Text(Cell(record, description)),
			Category:        dto.Text(Cell(record, category)),
			UnitOfMeasure:   dto.Text(Cell(record, unit)),
			AssignedMachine: dto.Text(Cell(record, machine)),
		})
	}
	return rows, nil
}

// LoadHistory reads the daily demand history
func (l *Loader) LoadHistory(path, sheet string) ([]entities.DemandRecord, error) {
	t, err := ReadFile(path, sheet)
	if err != nil {
		return nil, err
	}
	return l.HistoryRecords(t)
}

// HistoryRecords maps a code/date/qty table into demand records
func (l *Loader) HistoryRecords(t *Table) ([]entities.DemandRecord, error) {
	idx, err := t.RequireColumns(FieldCode, FieldDate, FieldQty)
	if err != nil {
		return nil, err
	}

	records := make([]entities.DemandRecord, 0, len(t.Rows))
	for i, record := range t.Rows {
		rowNum := t.RowNumbers[i]
		code := Cell(record, idx[FieldCode.Name])
		if code == "" {
			return nil, fmt.Errorf("%s: %w", t.Source, &entities.MissingRequiredFieldError{Row: rowNum, Field: FieldCode.Name})
		}
		date, err := ParseDate(Cell(record, idx[FieldDate.Name]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Source, rowNum, err)
		}
		qty, err := ParseDecimal(Cell(record, idx[FieldQty.Name]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Source, rowNum, err)
		}
		records = append(records, entities.DemandRecord{
			ProductCode: entities.ProductCode(code),
			Date:        date,
			Qty:         qty,
		})
	}
	return records, nil
}

// LoadPeriodDemand reads monthly demand per product. The stock export itself carries
// this column, so the same file can be passed for both.
func (l *Loader) LoadPeriodDemand(path, sheet string) (map[entities.ProductCode]decimal.Decimal, error) {
	t, err := ReadFile(path, sheet)
	if err != nil {
		return nil, err
	}
	return l.PeriodDemand(t)
}

// PeriodDemand maps a code/monthly demand table. Unreadable cells count as zero.
func (l *Loader) PeriodDemand(t *Table) (map[entities.ProductCode]decimal.Decimal, error) {
	idx, err := t.RequireColumns(FieldCode, FieldPeriodDemand)
	if err != nil {
		return nil, err
	}

	demand := make(map[entities.ProductCode]decimal.Decimal, len(t.Rows))
	for i, record := range t.Rows {
		code := Cell(record, idx[FieldCode.Name])
		if code == "" {
			continue
		}
		raw := Cell(record, idx[FieldPeriodDemand.Name])
		if raw == "" {
			l.log.Debug("blank period demand left to history", "source", t.Source, "row", t.RowNumbers[i], "product_code", code)
			continue
		}
		qty, err := ParseDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Source, &entities.MissingRequiredFieldError{Row: t.RowNumbers[i], Field: FieldPeriodDemand.Name})
		}
		key := entities.ProductCode(code)
		demand[key] = demand[key].Add(qty)
	}
	return demand, nil
}

// LoadOrders reads open customer orders
func (l *Loader) LoadOrders(path, sheet string) ([]entities.CustomerOrder, error) {
	t, err := ReadFile(path, sheet)
	if err != nil {
		return nil, err
	}
	return l.Orders(t)
}

// Orders maps a customer order table. Negative quantities are left for the risk
// classifier to reject.
func (l *Loader) Orders(t *Table) ([]entities.CustomerOrder, error) {
	idx, err := t.RequireColumns(FieldCode, FieldCustomer, FieldQty, FieldRequiredDate)
	if err != nil {
		return nil, err
	}

	orders := make([]entities.CustomerOrder, 0, len(t.Rows))
	for i, record := range t.Rows {
		rowNum := t.RowNumbers[i]
		code := Cell(record, idx[FieldCode.Name])
		if code == "" {
			return nil, fmt.Errorf("%s: %w", t.Source, &entities.MissingRequiredFieldError{Row: rowNum, Field: FieldCode.Name})
		}
		customer := Cell(record, idx[FieldCustomer.Name])
		if customer == "" {
			return nil, fmt.Errorf("%s: %w", t.Source, &entities.MissingRequiredFieldError{Row: rowNum, Field: FieldCustomer.Name})
		}
		qty, err := ParseDecimal(Cell(record, idx[FieldQty.Name]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Source, rowNum, err)
		}
		due, err := ParseDate(Cell(record, idx[FieldRequiredDate.Name]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Source, rowNum, err)
		}
		orders = append(orders, entities.CustomerOrder{
			ProductCode:  entities.ProductCode(code),
			CustomerID:   customer,
			Qty:          qty,
			RequiredDate: due,
		})
	}
	return orders, nil
}

// LoadMachines reads the machine reference table
func (l *Loader) LoadMachines(path, sheet string) ([]entities.Machine, error) {
	t, err := ReadFile(path, sheet)
	if err != nil {
		return nil, err
	}
	return l.Machines(t)
}

// Machines maps an id/capacity/eligible table. Eligible codes are separated by
// commas, semicolons, pipes or whitespace.
func (l *Loader) Machines(t *Table) ([]entities.Machine, error) {
	idx, err := t.RequireColumns(FieldMachineID, FieldCapacity)
	if err != nil {
		return nil, err
	}
	eligibleCol := t.OptionalColumn(FieldEligible)

	machines := make([]entities.Machine, 0, len(t.Rows))
	for i, record := range t.Rows {
		rowNum := t.RowNumbers[i]
		id := Cell(record, idx[FieldMachineID.Name])
		capacity, err := ParseDecimal(Cell(record, idx[FieldCapacity.Name]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Source, rowNum, err)
		}

		var eligible []entities.ProductCode
		for _, code := range strings.FieldsFunc(Cell(record, eligibleCol), isListSeparator) {
			eligible = append(eligible, entities.ProductCode(code))
		}

		m, err := entities.NewMachine(entities.MachineID(id), capacity, eligible)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Source, rowNum, err)
		}
		machines = append(machines, *m)
	}
	return machines, nil
}

// LoadOverrides reads planner overrides
func (l *Loader) LoadOverrides(path, sheet string) ([]entities.Override, error) {
	t, err := ReadFile(path, sheet)
	if err != nil {
		return nil, err
	}
	return l.Overrides(t)
}

// Overrides maps a code/machine/qty table. Quantities are checked by the reconciler.
func (l *Loader) Overrides(t *Table) ([]entities.Override, error) {
	idx, err := t.RequireColumns(FieldCode, FieldMachineID, FieldQty)
	if err != nil {
		return nil, err
	}

	overrides := make([]entities.Override, 0, len(t.Rows))
	for i, record := range t.Rows {
		rowNum := t.RowNumbers[i]
		qty, err := ParseDecimal(Cell(record, idx[FieldQty.Name]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.Source, rowNum, err)
		}
		overrides = append(overrides, entities.Override{
			ProductCode: entities.ProductCode(Cell(record, idx[FieldCode.Name])),
			MachineID:   entities.MachineID(Cell(record, idx[FieldMachineID.Name])),
			Qty:         qty,
		})
	}
	return overrides, nil
}

// ParseDecimal reads a quantity cell, ignoring thousands separators
func ParseDecimal(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty quantity")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q", s)
	}
	return d, nil
}

// ParseDate accepts ISO dates and the short forms spreadsheets display
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
}

// splitStages splits a "Stage1-Stage2-Stage3" production line into the first machine
// and the machines after it
func splitStages(line string) (string, []string) {
	var machines []string
	for _, stage := range strings.Split(line, "-") {
		if stage = strings.TrimSpace(stage); stage != "" {
			machines = append(machines, stage)
		}
	}
	if len(machines) == 0 {
		return "", nil
	}
	return machines[0], machines[1:]
}

func isListSeparator(r rune) bool {
	return r == ',' || r == ';' || r == '|' || r == ' ' || r == '\t'
}
