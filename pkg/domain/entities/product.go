package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductCode represents a unique product identifier
type ProductCode string

// MachineID identifies a production resource
type MachineID string

// Product is one row of the merged catalog. It is built once per merge run and
// treated as read-only by every later stage.
type Product struct {
	Code            ProductCode     `json:"code"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	OnHandQty       decimal.Decimal `json:"on_hand_qty"`
	OpenOrdersQty   decimal.Decimal `json:"open_orders_qty"`
	UnitOfMeasure   string          `json:"unit_of_measure"`
	AssignedMachine MachineID       `json:"assigned_machine,omitempty"`
	// StageMachines run the later stages of the product's production line
	StageMachines   []MachineID     `json:"stage_machines,omitempty"`
}

// NewProduct creates a validated Product
func NewProduct(
	code ProductCode,
	description, category string,
	onHand, openOrders decimal.Decimal,
	uom string,
	assignedMachine MachineID,
) (*Product, error) {
	if code == "" {
		return nil, fmt.Errorf("product code cannot be empty")
	}
	if onHand.IsNegative() {
		return nil, fmt.Errorf("on hand quantity cannot be negative, got %s", onHand)
	}
	if openOrders.IsNegative() {
		return nil, fmt.Errorf("open orders quantity cannot be negative, got %s", openOrders)
	}

	return &Product{
		Code:            code,
		Description:     description,
		Category:        category,
		OnHandQty:       onHand,
		OpenOrdersQty:   openOrders,
		UnitOfMeasure:   uom,
		AssignedMachine: assignedMachine,
	}, nil
}

// AvailableQty is on hand plus incoming supply
func (p Product) AvailableQty() decimal.Decimal {
	return p.OnHandQty.Add(p.OpenOrdersQty)
}
