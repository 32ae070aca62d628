package dto

// StockRow is one loosely typed row of the stock export. A nil field means the
// column was absent or the cell was blank; values are kept as raw cell text so the
// merger owns coercion and validation.
type StockRow struct {
	Row             int
	Code            *string
	Description     *string
	Category        *string
	OnHandQty       *string
	OpenOrdersQty   *string
	UnitOfMeasure   *string
	AssignedMachine *string
	// LaterStages are the machines after the first stage of a production line
	LaterStages     []string
}

// ItemRow is one row of the item master export
type ItemRow struct {
	Row             int
	Code            *string
	Description     *string
	Category        *string
	UnitOfMeasure   *string
	AssignedMachine *string
}

// Text returns a pointer to s, or nil for blank cells
func Text(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences an optional cell
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
