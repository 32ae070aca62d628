package entities

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CodeMode selects how raw product codes are normalized before joining
type CodeMode string

const (
	CodeModeExact   CodeMode = "exact"
	CodeModeNumeric CodeMode = "numeric"
)

// CodePolicy configures product code normalization
type CodePolicy struct {
	Mode      CodeMode `yaml:"mode" json:"mode" validate:"oneof=exact numeric"`
	Width     int      `yaml:"width" json:"width" validate:"gte=0,lte=64"`
	KeyDigits int      `yaml:"key_digits" json:"key_digits" validate:"gte=0,lte=64"`
}

// Thresholds are the coverage tiers used by the risk classifier
type Thresholds struct {
	CriticalDays float64 `yaml:"critical_days" json:"critical_days" validate:"gte=0"`
	WarningDays  float64 `yaml:"warning_days" json:"warning_days" validate:"gtefield=CriticalDays"`
}

// PlanningPolicy is the explicit per-run configuration handed to every stage that
// needs it. Separate sessions may run with different policies side by side.
type PlanningPolicy struct {
	Thresholds              Thresholds         `yaml:"thresholds" json:"thresholds"`
	TargetCoverageDays      float64            `yaml:"target_coverage_days" json:"target_coverage_days" validate:"gte=0"`
	TargetDaysByClass       map[string]float64 `yaml:"target_days_by_class" json:"target_days_by_class,omitempty" validate:"omitempty,dive,keys,oneof=VERY_HIGH HIGH MEDIUM LOW VERY_LOW,endkeys,gte=0"`
	SafetyDaysByClass       map[string]float64 `yaml:"safety_days_by_class" json:"safety_days_by_class,omitempty" validate:"omitempty,dive,keys,oneof=VERY_HIGH HIGH MEDIUM LOW VERY_LOW,endkeys,gte=0"`
	MinBatchDaysByClass     map[string]float64 `yaml:"min_batch_days_by_class" json:"min_batch_days_by_class,omitempty" validate:"omitempty,dive,keys,oneof=VERY_HIGH HIGH MEDIUM LOW VERY_LOW,endkeys,gte=0"`
	DemandWindowDays        int                `yaml:"demand_window_days" json:"demand_window_days" validate:"gte=1"`
	AsOf                    time.Time          `yaml:"as_of" json:"as_of"`
	HorizonDays             int                `yaml:"horizon_days" json:"horizon_days" validate:"gte=1"`
	WorkingDaysPerMonth     int                `yaml:"working_days_per_month" json:"working_days_per_month" validate:"gte=1,lte=31"`
	BatchSize               float64            `yaml:"batch_size" json:"batch_size" validate:"gte=0"`
	CustomerAlertExclusions []ProductCode      `yaml:"customer_alert_exclusions" json:"customer_alert_exclusions,omitempty"`
	Codes                   CodePolicy         `yaml:"codes" json:"codes"`
	Workers                 int                `yaml:"workers" json:"workers" validate:"gte=0"`
}

// DefaultPolicy returns the stock planner defaults: RED below 7 days, ORANGE below 21,
// a 30 day target over a 30 day window and a single-day horizon.
func DefaultPolicy() PlanningPolicy {
	return PlanningPolicy{
		Thresholds: Thresholds{
			CriticalDays: 7,
			WarningDays:  21,
		},
		TargetCoverageDays:  30,
		DemandWindowDays:    30,
		HorizonDays:         1,
		WorkingDaysPerMonth: 26,
		Codes: CodePolicy{
			Mode: CodeModeExact,
		},
	}
}

// ErrInvalidPolicy is wrapped by every policy validation failure
var ErrInvalidPolicy = errors.New("invalid planning policy")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func policyValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the policy ranges
func (p PlanningPolicy) Validate() error {
	if err := policyValidator().Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidPolicy, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	return nil
}

// CriticalDays returns the critical threshold as a decimal
func (p PlanningPolicy) CriticalDays() decimal.Decimal {
	return decimal.NewFromFloat(p.Thresholds.CriticalDays)
}

// WarningDays returns the warning threshold as a decimal
func (p PlanningPolicy) WarningDays() decimal.Decimal {
	return decimal.NewFromFloat(p.Thresholds.WarningDays)
}

// TargetDaysFor returns the plan coverage for a demand class: the class target (or
// TargetCoverageDays) plus the class safety days, raised to the class minimum batch
// cover when one is set
func (p PlanningPolicy) TargetDaysFor(class DemandClass) decimal.Decimal {
	key := class.String()
	target := decimal.NewFromFloat(p.TargetCoverageDays)
	if days, ok := p.TargetDaysByClass[key]; ok {
		target = decimal.NewFromFloat(days)
	}
	if safety, ok := p.SafetyDaysByClass[key]; ok {
		target = target.Add(decimal.NewFromFloat(safety))
	}
	if floor, ok := p.MinBatchDaysByClass[key]; ok {
		target = decimal.Max(target, decimal.NewFromFloat(floor))
	}
	return target
}

// Batch returns the batch rounding size, zero when rounding is off
func (p PlanningPolicy) Batch() decimal.Decimal {
	return decimal.NewFromFloat(p.BatchSize)
}

// IsExcludedFromCustomerAlerts reports whether customer flags are suppressed for code
func (p PlanningPolicy) IsExcludedFromCustomerAlerts(code ProductCode) bool {
	for _, excluded := range p.CustomerAlertExclusions {
		if excluded == code {
			return true
		}
	}
	return false
}
