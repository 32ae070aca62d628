package allocation

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/shared"
	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
)

// Allocator turns shortages into per-machine production suggestions
type Allocator struct {
	log *logger.Logger
}

// NewAllocator creates a new allocator
func NewAllocator(log *logger.Logger) *Allocator {
	return &Allocator{log: logger.OrNop(log)}
}

// candidate is a product with a shortage bound to one machine
type candidate struct {
	code      entities.ProductCode
	risk      entities.RiskLevel
	coverage  entities.CoverageDays
	requested decimal.Decimal
}

type machinePlan struct {
	lines []entities.ProductionPlanLine
	unmet []entities.UnmetShortage
}

// Allocate fills each machine greedily in priority order. Every candidate gets a line,
// possibly zero, and any part of its request that did not fit is reported as unmet.
// Lines come back grouped by machine id, in rank order within a machine.
func (a *Allocator) Allocate(
	ctx context.Context,
	products []entities.Product,
	profiles []entities.DemandProfile,
	flags []entities.RiskFlag,
	machines []entities.Machine,
	policy entities.PlanningPolicy,
) (*dto.AllocationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profileByCode := make(map[entities.ProductCode]entities.DemandProfile, len(profiles))
	for _, p := range profiles {
		profileByCode[p.ProductCode] = p
	}
	risks := entities.NewRiskIndex(flags)
	selector := shared.NewMachineSelector(machines)
	batch := policy.Batch()

	byMachine := make(map[entities.MachineID][]candidate)
	for _, product := range products {
		profile, ok := profileByCode[product.Code]
		if !ok {
			return nil, fmt.Errorf("no demand profile for product %s", product.Code)
		}
		if !profile.HasShortage() {
			continue
		}

		machine, err := selector.Select(product)
		if err != nil {
			return nil, err
		}
		byMachine[machine.ID] = append(byMachine[machine.ID], candidate{
			code:      product.Code,
			risk:      risks.Level(product.Code),
			coverage:  profile.CoverageDays,
			requested: RoundUpToBatch(profile.ShortageQty, batch),
		})
	}

	active := make([]entities.Machine, 0, len(byMachine))
	for _, m := range selector.Machines() {
		if len(byMachine[m.ID]) > 0 {
			active = append(active, m)
		}
	}

	plans := make([]machinePlan, len(active))
	err := shared.ForEach(ctx, len(active), policy.Workers, func(_ context.Context, i int) error {
		plans[i] = allocateMachine(active[i], byMachine[active[i].ID], policy.HorizonDays)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &dto.AllocationResult{
		Lines: make([]entities.ProductionPlanLine, 0),
		Unmet: make([]entities.UnmetShortage, 0),
	}
	for _, plan := range plans {
		result.Lines = append(result.Lines, plan.lines...)
		result.Unmet = append(result.Unmet, plan.unmet...)
	}

	allocMap := shared.NewAllocationMapFromLines(result.Lines)
	for _, m := range active {
		a.log.Debug("machine allocated",
			"machine_id", m.ID,
			"lines", len(byMachine[m.ID]),
			"load", allocMap.MachineLoad(m.ID).String(),
			"capacity", m.CapacityFor(policy.HorizonDays).String())
	}
	if len(result.Unmet) > 0 {
		a.log.Info("shortage left unmet by capacity",
			"products", len(result.Unmet), "unmet_qty", allocMap.GetTotalUnmet().String())
	}

	return result, nil
}

// allocateMachine runs the greedy pass for one machine. It is sequential by nature:
// each assignment consumes capacity the next candidate would otherwise get.
func allocateMachine(machine entities.Machine, candidates []candidate, horizonDays int) machinePlan {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessUrgent(sorted[j], sorted[i])
	})

	remaining := machine.CapacityFor(horizonDays)
	plan := machinePlan{lines: make([]entities.ProductionPlanLine, 0, len(sorted))}

	for rank, c := range sorted {
		assigned := decimal.Min(c.requested, remaining)
		remaining = remaining.Sub(assigned)

		plan.lines = append(plan.lines, entities.ProductionPlanLine{
			ProductCode:  c.code,
			MachineID:    machine.ID,
			SuggestedQty: assigned,
			RequestedQty: c.requested,
			Rank:         rank + 1,
		})
		if assigned.LessThan(c.requested) {
			plan.unmet = append(plan.unmet, entities.UnmetShortage{
				ProductCode:  c.code,
				MachineID:    machine.ID,
				RequestedQty: c.requested,
				AllocatedQty: assigned,
				UnmetQty:     c.requested.Sub(assigned),
			})
		}
	}
	return plan
}

// lessUrgent reports whether a should be served after b: lower risk first, then
// longer coverage, then the larger product code
func lessUrgent(a, b candidate) bool {
	if a.risk != b.risk {
		return riskRank(a.risk) < riskRank(b.risk)
	}
	if !a.coverage.Equal(b.coverage) {
		return b.coverage.Less(a.coverage)
	}
	return a.code > b.code
}

func riskRank(level entities.RiskLevel) int {
	switch level {
	case entities.RiskCritical:
		return 2
	case entities.RiskWarning:
		return 1
	default:
		return 0
	}
}

// RoundUpToBatch rounds qty up to the next multiple of batch. A zero batch leaves
// qty untouched.
func RoundUpToBatch(qty, batch decimal.Decimal) decimal.Decimal {
	if !batch.IsPositive() || !qty.IsPositive() {
		return qty
	}
	return qty.Div(batch).Ceil().Mul(batch)
}
