package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel represents the severity tier of a risk flag
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskWarning
	RiskCritical
	RiskCustomerShortage
)

// String method for RiskLevel enum
func (l RiskLevel) String() string {
	switch l {
	case RiskNone:
		return "NONE"
	case RiskWarning:
		return "WARNING"
	case RiskCritical:
		return "CRITICAL"
	case RiskCustomerShortage:
		return "CUSTOMER_SHORTAGE"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the level by name
func (l RiskLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes the level by name
func (l *RiskLevel) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NONE":
		*l = RiskNone
	case "WARNING":
		*l = RiskWarning
	case "CRITICAL":
		*l = RiskCritical
	case "CUSTOMER_SHORTAGE":
		*l = RiskCustomerShortage
	default:
		return fmt.Errorf("invalid risk level: %s", text)
	}
	return nil
}

// IsCoverageLevel reports whether the level is one of the supply-level tiers
func (l RiskLevel) IsCoverageLevel() bool {
	return l == RiskCritical || l == RiskWarning
}

// RiskReason is the enumerated cause of a flag
type RiskReason string

const (
	ReasonCoverageBelowCritical  RiskReason = "coverage_below_critical"
	ReasonCoverageBelowWarning   RiskReason = "coverage_below_warning"
	ReasonCustomerOrderShortfall RiskReason = "customer_order_shortfall"
)

// RiskFlag marks a product, or a product/customer pair, as at risk
type RiskFlag struct {
	Level        RiskLevel       `json:"level"`
	Reason       RiskReason      `json:"reason"`
	ProductCode  ProductCode     `json:"product_code"`
	CustomerID   string          `json:"customer_id,omitempty"`
	CoverageDays CoverageDays    `json:"coverage_days"`
	Shortfall    decimal.Decimal `json:"shortfall"`
	RequiredDate *time.Time      `json:"required_date,omitempty"`
}

// Message renders the flag for alerts and reports
func (f RiskFlag) Message() string {
	switch f.Level {
	case RiskCustomerShortage:
		due := ""
		if f.RequiredDate != nil {
			due = " by " + f.RequiredDate.Format("2006-01-02")
		}
		return fmt.Sprintf("customer %s short %s of %s%s", f.CustomerID, f.Shortfall, f.ProductCode, due)
	default:
		return fmt.Sprintf("%s coverage %s days", f.ProductCode, f.CoverageDays)
	}
}

// RiskIndex gives the highest coverage-based level per product
type RiskIndex map[ProductCode]RiskLevel

// NewRiskIndex builds an index from classifier output; customer flags are ignored
func NewRiskIndex(flags []RiskFlag) RiskIndex {
	index := make(RiskIndex, len(flags))
	for _, flag := range flags {
		if !flag.Level.IsCoverageLevel() {
			continue
		}
		if flag.Level > index[flag.ProductCode] {
			index[flag.ProductCode] = flag.Level
		}
	}
	return index
}

// Level returns RiskNone for unflagged products
func (r RiskIndex) Level(code ProductCode) RiskLevel {
	return r[code]
}
