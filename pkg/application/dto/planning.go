package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

// PlanningInput contains everything one planning run consumes
type PlanningInput struct {
	Stock        []StockRow
	Items        []ItemRow
	History      []entities.DemandRecord
	PeriodDemand map[entities.ProductCode]decimal.Decimal
	Orders       []entities.CustomerOrder
	Machines     []entities.Machine
	Policy       entities.PlanningPolicy
}

// AllocationResult is the allocator output
type AllocationResult struct {
	Lines []entities.ProductionPlanLine `json:"lines"`
	Unmet []entities.UnmetShortage      `json:"unmet"`
}

// PlanningResult contains the complete output of a planning run
type PlanningResult struct {
	RunID       string                        `json:"run_id"`
	StartedAt   time.Time                     `json:"started_at"`
	CompletedAt time.Time                     `json:"completed_at"`
	ConfirmedAt *time.Time                    `json:"confirmed_at,omitempty"`
	Policy      entities.PlanningPolicy       `json:"policy"`
	Products    []entities.Product            `json:"products"`
	Profiles    []entities.DemandProfile      `json:"profiles"`
	Flags       []entities.RiskFlag           `json:"flags"`
	Machines    []entities.Machine            `json:"machines"`
	Lines       []entities.ProductionPlanLine `json:"lines"`
	Unmet       []entities.UnmetShortage      `json:"unmet"`
	Overrides   []entities.Override           `json:"overrides,omitempty"`
	Final       []entities.FinalPlanLine      `json:"final,omitempty"`
	Warnings    []string                      `json:"warnings,omitempty"`
}

// IsConfirmed reports whether the planner reconciled the suggested lines
func (r *PlanningResult) IsConfirmed() bool {
	return r.ConfirmedAt != nil
}

// Clone returns a copy that can be confirmed without touching r. Entity values are
// never mutated after a run, so slices are copied and elements shared.
func (r *PlanningResult) Clone() *PlanningResult {
	out := *r
	out.Products = append([]entities.Product(nil), r.Products...)
	out.Profiles = append([]entities.DemandProfile(nil), r.Profiles...)
	out.Flags = append([]entities.RiskFlag(nil), r.Flags...)
	out.Machines = append([]entities.Machine(nil), r.Machines...)
	out.Lines = append([]entities.ProductionPlanLine(nil), r.Lines...)
	out.Unmet = append([]entities.UnmetShortage(nil), r.Unmet...)
	out.Overrides = append([]entities.Override(nil), r.Overrides...)
	out.Final = append([]entities.FinalPlanLine(nil), r.Final...)
	out.Warnings = append([]string(nil), r.Warnings...)
	if r.ConfirmedAt != nil {
		confirmedAt := *r.ConfirmedAt
		out.ConfirmedAt = &confirmedAt
	}
	return &out
}

// ProfileFor returns the demand profile of code
func (r *PlanningResult) ProfileFor(code entities.ProductCode) (entities.DemandProfile, bool) {
	for _, p := range r.Profiles {
		if p.ProductCode == code {
			return p, true
		}
	}
	return entities.DemandProfile{}, false
}
