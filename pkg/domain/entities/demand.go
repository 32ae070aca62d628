package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DemandRecord is one point of the demand history series for a product
type DemandRecord struct {
	ProductCode ProductCode     `json:"product_code"`
	Date        time.Time       `json:"date"`
	Qty         decimal.Decimal `json:"qty"`
}

// DemandClass buckets products by how fast they move
type DemandClass int

const (
	DemandVeryLow DemandClass = iota
	DemandLow
	DemandMedium
	DemandHigh
	DemandVeryHigh
)

// String method for DemandClass enum
func (c DemandClass) String() string {
	switch c {
	case DemandVeryLow:
		return "VERY_LOW"
	case DemandLow:
		return "LOW"
	case DemandMedium:
		return "MEDIUM"
	case DemandHigh:
		return "HIGH"
	case DemandVeryHigh:
		return "VERY_HIGH"
	default:
		return "Unknown"
	}
}

// ParseDemandClass is the inverse of DemandClass.String
func ParseDemandClass(s string) (DemandClass, error) {
	switch s {
	case "VERY_LOW":
		return DemandVeryLow, nil
	case "LOW":
		return DemandLow, nil
	case "MEDIUM":
		return DemandMedium, nil
	case "HIGH":
		return DemandHigh, nil
	case "VERY_HIGH":
		return DemandVeryHigh, nil
	default:
		return DemandVeryLow, fmt.Errorf("invalid demand class: %s (expected VERY_HIGH, HIGH, MEDIUM, LOW or VERY_LOW)", s)
	}
}

// MarshalText encodes the class by name
func (c DemandClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes the class by name
func (c *DemandClass) UnmarshalText(text []byte) error {
	parsed, err := ParseDemandClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DemandSource records where the average daily demand came from
type DemandSource int

const (
	DemandFromNone DemandSource = iota
	DemandFromHistory
	DemandFromPeriod
)

// String method for DemandSource enum
func (s DemandSource) String() string {
	switch s {
	case DemandFromNone:
		return "none"
	case DemandFromHistory:
		return "history"
	case DemandFromPeriod:
		return "period"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the source by name
func (s DemandSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes the source by name
func (s *DemandSource) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*s = DemandFromNone
	case "history":
		*s = DemandFromHistory
	case "period":
		*s = DemandFromPeriod
	default:
		return fmt.Errorf("invalid demand source: %s", text)
	}
	return nil
}

const infiniteCoverageText = "infinite"

// CoverageDays is the number of days on-hand stock lasts at the average demand rate.
// Zero demand yields the infinite sentinel rather than a numeric value.
type CoverageDays struct {
	days     decimal.Decimal
	infinite bool
}

// FiniteCoverage wraps a numeric coverage value
func FiniteCoverage(days decimal.Decimal) CoverageDays {
	return CoverageDays{days: days}
}

// InfiniteCoverage returns the sentinel used for zero-demand products
func InfiniteCoverage() CoverageDays {
	return CoverageDays{infinite: true}
}

// IsInfinite reports whether c is the sentinel
func (c CoverageDays) IsInfinite() bool {
	return c.infinite
}

// Days returns the numeric coverage and false for the sentinel
func (c CoverageDays) Days() (decimal.Decimal, bool) {
	if c.infinite {
		return decimal.Zero, false
	}
	return c.days, true
}

// Less orders finite coverage ascending with the sentinel last
func (c CoverageDays) Less(other CoverageDays) bool {
	switch {
	case c.infinite:
		return false
	case other.infinite:
		return true
	default:
		return c.days.LessThan(other.days)
	}
}

// Equal compares two coverage values exactly
func (c CoverageDays) Equal(other CoverageDays) bool {
	if c.infinite || other.infinite {
		return c.infinite == other.infinite
	}
	return c.days.Equal(other.days)
}

func (c CoverageDays) String() string {
	if c.infinite {
		return infiniteCoverageText
	}
	return c.days.String()
}

// MarshalJSON encodes the sentinel as "infinite" and numbers as decimal strings
func (c CoverageDays) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts "infinite", a decimal string or a bare number
func (c *CoverageDays) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	if s == infiniteCoverageText {
		*c = InfiniteCoverage()
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid coverage days %q: %w", s, err)
	}
	*c = FiniteCoverage(d)
	return nil
}

// DemandProfile holds the demand-derived metrics for one product
type DemandProfile struct {
	ProductCode    ProductCode     `json:"product_code"`
	AvgDailyDemand decimal.Decimal `json:"avg_daily_demand"`
	CoverageDays   CoverageDays    `json:"coverage_days"`
	TargetDays     decimal.Decimal `json:"target_days"`
	RequiredQty    decimal.Decimal `json:"required_qty"`
	ShortageQty    decimal.Decimal `json:"shortage_qty"`
	DemandClass    DemandClass     `json:"demand_class"`
	Source         DemandSource    `json:"source"`
}

// NewDemandProfile derives coverage, required quantity and shortage from one product
// snapshot. Coverage and shortage are only ever produced together here.
func NewDemandProfile(
	product Product,
	avgDailyDemand decimal.Decimal,
	targetDays decimal.Decimal,
	class DemandClass,
	source DemandSource,
) (*DemandProfile, error) {
	if avgDailyDemand.IsNegative() {
		return nil, fmt.Errorf("average daily demand cannot be negative, got %s", avgDailyDemand)
	}
	if targetDays.IsNegative() {
		return nil, fmt.Errorf("target coverage days cannot be negative, got %s", targetDays)
	}

	profile := &DemandProfile{
		ProductCode:    product.Code,
		AvgDailyDemand: avgDailyDemand,
		TargetDays:     targetDays,
		DemandClass:    class,
		Source:         source,
	}

	if avgDailyDemand.IsZero() {
		profile.CoverageDays = InfiniteCoverage()
		profile.RequiredQty = decimal.Zero
		profile.ShortageQty = decimal.Zero
		return profile, nil
	}

	profile.CoverageDays = FiniteCoverage(product.OnHandQty.Div(avgDailyDemand))
	profile.RequiredQty = avgDailyDemand.Mul(targetDays)
	profile.ShortageQty = decimal.Max(decimal.Zero, profile.RequiredQty.Sub(product.AvailableQty()))
	return profile, nil
}

// HasShortage reports whether the product needs production
func (p DemandProfile) HasShortage() bool {
	return p.ShortageQty.IsPositive()
}
