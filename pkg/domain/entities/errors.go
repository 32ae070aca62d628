package entities

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DuplicateProductError is returned when the stock source lists the same code twice
// with different quantities
type DuplicateProductError struct {
	Code      ProductCode
	FirstRow  int
	SecondRow int
}

func (e *DuplicateProductError) Error() string {
	return fmt.Sprintf("duplicate product %s: rows %d and %d carry conflicting quantities", e.Code, e.FirstRow, e.SecondRow)
}

// MissingRequiredFieldError is returned when a stock row lacks a mandatory value
type MissingRequiredFieldError struct {
	Row   int
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("row %d: missing required field %s", e.Row, e.Field)
}

// UnassignableProductError is returned when a product needs production but no machine can make it
type UnassignableProductError struct {
	Code      ProductCode
	MachineID MachineID
}

func (e *UnassignableProductError) Error() string {
	if e.MachineID != "" {
		return fmt.Sprintf("product %s cannot be assigned: machine %s is unknown", e.Code, e.MachineID)
	}
	return fmt.Sprintf("product %s has a shortage but no eligible machine", e.Code)
}

// UnknownLineOverrideError is returned when an override targets a line that was never suggested
type UnknownLineOverrideError struct {
	ProductCode ProductCode
	MachineID   MachineID
}

func (e *UnknownLineOverrideError) Error() string {
	return fmt.Sprintf("override targets unknown plan line %s on machine %s", e.ProductCode, e.MachineID)
}

// InvalidQuantityError is returned for negative quantities
type InvalidQuantityError struct {
	ProductCode ProductCode
	MachineID   MachineID
	Field       string
	Qty         decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	field := e.Field
	if field == "" {
		field = "quantity"
	}
	if e.MachineID != "" {
		return fmt.Sprintf("invalid %s %s for %s on machine %s: must be >= 0", field, e.Qty, e.ProductCode, e.MachineID)
	}
	return fmt.Sprintf("invalid %s %s for %s: must be >= 0", field, e.Qty, e.ProductCode)
}

// DuplicateLineError is returned when a manual line would shadow an existing one
type DuplicateLineError struct {
	ProductCode ProductCode
	MachineID   MachineID
}

func (e *DuplicateLineError) Error() string {
	return fmt.Sprintf("plan line %s on machine %s already exists", e.ProductCode, e.MachineID)
}

// UnknownProductError is returned when a manual line names a code outside the catalog
type UnknownProductError struct {
	Code ProductCode
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("product %s is not in the catalog", e.Code)
}

// IneligibleMachineError is returned when a manual line puts a product on a machine
// that neither lists it as eligible nor is its assigned machine
type IneligibleMachineError struct {
	ProductCode ProductCode
	MachineID   MachineID
}

func (e *IneligibleMachineError) Error() string {
	return fmt.Sprintf("machine %s cannot produce %s", e.MachineID, e.ProductCode)
}

// IsDuplicateProductError reports whether err wraps a DuplicateProductError
func IsDuplicateProductError(err error) bool {
	var target *DuplicateProductError
	return errors.As(err, &target)
}

// IsMissingRequiredFieldError reports whether err wraps a MissingRequiredFieldError
func IsMissingRequiredFieldError(err error) bool {
	var target *MissingRequiredFieldError
	return errors.As(err, &target)
}

// IsUnassignableProductError reports whether err wraps an UnassignableProductError
func IsUnassignableProductError(err error) bool {
	var target *UnassignableProductError
	return errors.As(err, &target)
}

// IsUnknownLineOverrideError reports whether err wraps an UnknownLineOverrideError
func IsUnknownLineOverrideError(err error) bool {
	var target *UnknownLineOverrideError
	return errors.As(err, &target)
}

// IsInvalidQuantityError reports whether err wraps an InvalidQuantityError
func IsInvalidQuantityError(err error) bool {
	var target *InvalidQuantityError
	return errors.As(err, &target)
}

// IsDuplicateLineError reports whether err wraps a DuplicateLineError
func IsDuplicateLineError(err error) bool {
	var target *DuplicateLineError
	return errors.As(err, &target)
}

// IsUnknownProductError reports whether err wraps an UnknownProductError
func IsUnknownProductError(err error) bool {
	var target *UnknownProductError
	return errors.As(err, &target)
}

// IsIneligibleMachineError reports whether err wraps an IneligibleMachineError
func IsIneligibleMachineError(err error) bool {
	var target *IneligibleMachineError
	return errors.As(err, &target)
}

// ErrorKind names the domain error behind err, or "" for anything else
func ErrorKind(err error) string {
	switch {
	case IsDuplicateProductError(err):
		return "DuplicateProductError"
	case IsMissingRequiredFieldError(err):
		return "MissingRequiredFieldError"
	case IsUnassignableProductError(err):
		return "UnassignableProductError"
	case IsUnknownLineOverrideError(err):
		return "UnknownLineOverrideError"
	case IsInvalidQuantityError(err):
		return "InvalidQuantityError"
	case IsDuplicateLineError(err):
		return "DuplicateLineError"
	case IsUnknownProductError(err):
		return "UnknownProductError"
	case IsIneligibleMachineError(err):
		return "IneligibleMachineError"
	default:
		return ""
	}
}
