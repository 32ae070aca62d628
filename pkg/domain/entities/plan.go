package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductionPlanLine is a suggested allocation of production to a machine
type ProductionPlanLine struct {
	ProductCode  ProductCode     `json:"product_code"`
	MachineID    MachineID       `json:"machine_id"`
	SuggestedQty decimal.Decimal `json:"suggested_qty"`
	RequestedQty decimal.Decimal `json:"requested_qty"`
	Rank         int             `json:"rank"`
}

// NewProductionPlanLine creates a validated ProductionPlanLine
func NewProductionPlanLine(code ProductCode, machineID MachineID, suggested, requested decimal.Decimal, rank int) (*ProductionPlanLine, error) {
	if code == "" {
		return nil, fmt.Errorf("product code cannot be empty")
	}
	if machineID == "" {
		return nil, fmt.Errorf("machine id cannot be empty")
	}
	if suggested.IsNegative() {
		return nil, fmt.Errorf("suggested quantity cannot be negative, got %s", suggested)
	}
	if suggested.GreaterThan(requested) {
		return nil, fmt.Errorf("suggested quantity %s cannot exceed requested quantity %s", suggested, requested)
	}

	return &ProductionPlanLine{
		ProductCode:  code,
		MachineID:    machineID,
		SuggestedQty: suggested,
		RequestedQty: requested,
		Rank:         rank,
	}, nil
}

// Key identifies the line by product and machine
func (l ProductionPlanLine) Key() LineKey {
	return LineKey{ProductCode: l.ProductCode, MachineID: l.MachineID}
}

// UnmetQty is the part of the request the machine could not take
func (l ProductionPlanLine) UnmetQty() decimal.Decimal {
	return decimal.Max(decimal.Zero, l.RequestedQty.Sub(l.SuggestedQty))
}

// LineKey is the (product, machine) pair a plan line is addressed by
type LineKey struct {
	ProductCode ProductCode `json:"product_code"`
	MachineID   MachineID   `json:"machine_id"`
}

func (k LineKey) String() string {
	return fmt.Sprintf("%s|%s", k.ProductCode, k.MachineID)
}

// UnmetShortage is shortage left uncovered after a machine ran out of capacity
type UnmetShortage struct {
	ProductCode  ProductCode     `json:"product_code"`
	MachineID    MachineID       `json:"machine_id"`
	RequestedQty decimal.Decimal `json:"requested_qty"`
	AllocatedQty decimal.Decimal `json:"allocated_qty"`
	UnmetQty     decimal.Decimal `json:"unmet_qty"`
}

// Override is a planner-confirmed quantity for an existing plan line
type Override struct {
	ProductCode ProductCode     `json:"product_code"`
	MachineID   MachineID       `json:"machine_id"`
	Qty         decimal.Decimal `json:"qty"`
}

// Key identifies the line the override targets
func (o Override) Key() LineKey {
	return LineKey{ProductCode: o.ProductCode, MachineID: o.MachineID}
}

// PlanSource records who decided a final quantity
type PlanSource int

const (
	SourceAuto PlanSource = iota
	SourcePlannerOverride
	SourcePlannerAdded
)

// String method for PlanSource enum
func (s PlanSource) String() string {
	switch s {
	case SourceAuto:
		return "AUTO"
	case SourcePlannerOverride:
		return "PLANNER_OVERRIDE"
	case SourcePlannerAdded:
		return "PLANNER_ADDED"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the source by name
func (s PlanSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes the source by name
func (s *PlanSource) UnmarshalText(text []byte) error {
	switch string(text) {
	case "AUTO":
		*s = SourceAuto
	case "PLANNER_OVERRIDE":
		*s = SourcePlannerOverride
	case "PLANNER_ADDED":
		*s = SourcePlannerAdded
	default:
		return fmt.Errorf("invalid plan source: %s", text)
	}
	return nil
}

// FinalPlanLine is the reconciled, executable quantity for a line
type FinalPlanLine struct {
	ProductCode  ProductCode     `json:"product_code"`
	MachineID    MachineID       `json:"machine_id"`
	SuggestedQty decimal.Decimal `json:"suggested_qty"`
	FinalQty     decimal.Decimal `json:"final_qty"`
	Source       PlanSource      `json:"source"`
}

// Key identifies the line by product and machine
func (l FinalPlanLine) Key() LineKey {
	return LineKey{ProductCode: l.ProductCode, MachineID: l.MachineID}
}

// PlanLine recovers the suggested line the final line was reconciled from
func (l FinalPlanLine) PlanLine() ProductionPlanLine {
	return ProductionPlanLine{
		ProductCode:  l.ProductCode,
		MachineID:    l.MachineID,
		SuggestedQty: l.SuggestedQty,
		RequestedQty: l.SuggestedQty,
	}
}

// PlanLines converts a final table back to its suggested lines
func PlanLines(final []FinalPlanLine) []ProductionPlanLine {
	lines := make([]ProductionPlanLine, len(final))
	for i, line := range final {
		lines[i] = line.PlanLine()
	}
	return lines
}
