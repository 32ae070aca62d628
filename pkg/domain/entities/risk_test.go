package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewRiskIndex(t *testing.T) {
	flags := []RiskFlag{
		{Level: RiskWarning, ProductCode: "A"},
		{Level: RiskCritical, ProductCode: "A"},
		{Level: RiskCustomerShortage, ProductCode: "B", CustomerID: "C1"},
		{Level: RiskWarning, ProductCode: "C"},
	}

	index := NewRiskIndex(flags)
	assert.Equal(t, RiskCritical, index.Level("A"))
	assert.Equal(t, RiskNone, index.Level("B"))
	assert.Equal(t, RiskWarning, index.Level("C"))
	assert.Equal(t, RiskNone, index.Level("missing"))
}

func TestRiskFlag_Message(t *testing.T) {
	due := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	customer := RiskFlag{
		Level:        RiskCustomerShortage,
		Reason:       ReasonCustomerOrderShortfall,
		ProductCode:  "B002",
		CustomerID:   "C1",
		Shortfall:    decimal.NewFromInt(30),
		RequiredDate: &due,
	}
	assert.Equal(t, "customer C1 short 30 of B002 by 2026-03-02", customer.Message())

	coverage := RiskFlag{
		Level:        RiskCritical,
		Reason:       ReasonCoverageBelowCritical,
		ProductCode:  "A001",
		CoverageDays: FiniteCoverage(decimal.NewFromInt(2)),
	}
	assert.Equal(t, "A001 coverage 2 days", coverage.Message())
}

func TestRiskLevel_Text(t *testing.T) {
	for _, level := range []RiskLevel{RiskNone, RiskWarning, RiskCritical, RiskCustomerShortage} {
		var decoded RiskLevel
		assert.NoError(t, decoded.UnmarshalText([]byte(level.String())))
		assert.Equal(t, level, decoded)
	}
	assert.True(t, RiskCritical.IsCoverageLevel())
	assert.False(t, RiskCustomerShortage.IsCoverageLevel())
}
