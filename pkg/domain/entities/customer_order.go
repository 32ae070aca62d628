package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerOrder is an open commitment to a customer
type CustomerOrder struct {
	ProductCode  ProductCode     `json:"product_code"`
	CustomerID   string          `json:"customer_id"`
	Qty          decimal.Decimal `json:"qty"`
	RequiredDate time.Time       `json:"required_date"`
}

// NewCustomerOrder creates a validated CustomerOrder
func NewCustomerOrder(code ProductCode, customerID string, qty decimal.Decimal, requiredDate time.Time) (*CustomerOrder, error) {
	if code == "" {
		return nil, fmt.Errorf("product code cannot be empty")
	}
	if customerID == "" {
		return nil, fmt.Errorf("customer id cannot be empty")
	}
	if qty.IsNegative() {
		return nil, fmt.Errorf("order quantity cannot be negative, got %s", qty)
	}

	return &CustomerOrder{
		ProductCode:  code,
		CustomerID:   customerID,
		Qty:          qty,
		RequiredDate: requiredDate,
	}, nil
}
