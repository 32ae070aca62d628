package tabular

import (
	"fmt"
	"strings"
)

// Field is a logical column an input file can carry under several header names
type Field struct {
	Name     string
	Aliases  []string
	Prefixes []string
}

var (
	FieldCode = Field{
		Name:    "code",
		Aliases: []string{"code", "product code", "product_code", "item no.", "item no", "item_no", "item number", "id"},
	}
	FieldDescription = Field{
		Name:    "description",
		Aliases: []string{"description", "item name", "name"},
	}
	FieldCategory = Field{
		Name:    "category",
		Aliases: []string{"category", "item category"},
	}
	FieldOnHand = Field{
		Name:    "on_hand_qty",
		Aliases: []string{"on_hand_qty", "on hand", "on hand qty", "mpi stock", "mpi stock qty"},
	}
	FieldOpenOrders = Field{
		Name:    "open_orders_qty",
		Aliases: []string{"open_orders_qty", "open orders", "open orders qty", "incoming qty"},
	}
	FieldUnit = Field{
		Name:    "unit_of_measure",
		Aliases: []string{"unit_of_measure", "unit of measure", "uom", "unit"},
	}
	FieldMachine = Field{
		Name:     "assigned_machine",
		Aliases:  []string{"assigned_machine", "assigned machine", "machine"},
		Prefixes: []string{"production line"},
	}
	FieldPeriodDemand = Field{
		Name:    "period_demand",
		Aliases: []string{"period_demand", "monthly demand", "min stock / m.d.", "m.d."},
	}
	FieldDate = Field{
		Name:    "date",
		Aliases: []string{"date", "demand date", "posting date"},
	}
	FieldQty = Field{
		Name:    "qty",
		Aliases: []string{"qty", "quantity", "final qty", "final_qty"},
	}
	FieldCustomer = Field{
		Name:    "customer_id",
		Aliases: []string{"customer_id", "customer", "customer id", "customer no."},
	}
	FieldRequiredDate = Field{
		Name:    "required_date",
		Aliases: []string{"required_date", "required date", "due date", "delivery date"},
	}
	FieldMachineID = Field{
		Name:    "machine_id",
		Aliases: []string{"machine_id", "machine id", "machine"},
	}
	FieldCapacity = Field{
		Name:    "daily_capacity",
		Aliases: []string{"daily_capacity", "daily capacity", "daily_capacity_units", "capacity"},
	}
	FieldEligible = Field{
		Name:    "eligible_products",
		Aliases: []string{"eligible_products", "eligible products", "eligible", "products"},
	}
)

func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

// Column returns the index of the first header matching field
func (t *Table) Column(field Field) (int, bool) {
	for i, h := range t.Header {
		name := normalizeHeader(h)
		for _, alias := range field.Aliases {
			if name == alias {
				return i, true
			}
		}
	}
	for i, h := range t.Header {
		name := normalizeHeader(h)
		for _, prefix := range field.Prefixes {
			if strings.HasPrefix(name, prefix) {
				return i, true
			}
		}
	}
	return -1, false
}

// RequireColumns resolves every field or reports all missing ones
func (t *Table) RequireColumns(fields ...Field) (map[string]int, error) {
	idx := make(map[string]int, len(fields))
	var missing []string
	for _, f := range fields {
		i, ok := t.Column(f)
		if !ok {
			missing = append(missing, f.Name)
			continue
		}
		idx[f.Name] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s header mismatch: missing columns %v, got %v", t.Source, missing, t.Header)
	}
	return idx, nil
}

// OptionalColumn resolves field, returning -1 when the column is absent
func (t *Table) OptionalColumn(field Field) int {
	i, _ := t.Column(field)
	return i
}
