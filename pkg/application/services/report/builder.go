package report

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/shared"
	"github.com/vsinha/prodplan/pkg/domain/entities"
)

const topCriticalLimit = 10

// KPI is one executive summary figure
type KPI struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductRow is one product line of the critical and priority tables
type ProductRow struct {
	ProductCode    entities.ProductCode  `json:"product_code"`
	Description    string                `json:"description"`
	MachineID      entities.MachineID    `json:"machine_id,omitempty"`
	Risk           entities.RiskLevel    `json:"risk"`
	AvgDailyDemand decimal.Decimal       `json:"avg_daily_demand"`
	CoverageDays   entities.CoverageDays `json:"coverage_days"`
	ShortageQty    decimal.Decimal       `json:"shortage_qty"`
	SuggestedQty   decimal.Decimal       `json:"suggested_qty"`
	UnmetQty       decimal.Decimal       `json:"unmet_qty"`
}

// MachineLoad summarizes one machine's share of the plan
type MachineLoad struct {
	MachineID     entities.MachineID `json:"machine_id"`
	Lines         int                `json:"lines"`
	SuggestedQty  decimal.Decimal    `json:"suggested_qty"`
	Capacity      decimal.Decimal    `json:"capacity"`
	Utilization   decimal.Decimal    `json:"utilization"`
	CriticalCount int                `json:"critical_count"`
	WarningCount  int                `json:"warning_count"`
	UnmetQty      decimal.Decimal    `json:"unmet_qty"`
}

// FinalDecision is a confirmed plan line with its product description
type FinalDecision struct {
	entities.FinalPlanLine
	Description string `json:"description"`
}

// Report is the management view of a planning run
type Report struct {
	RunID         string          `json:"run_id"`
	Summary       []KPI           `json:"summary"`
	TopCritical   []ProductRow    `json:"top_critical"`
	Priority      []ProductRow    `json:"priority"`
	MachineLoad   []MachineLoad   `json:"machine_load"`
	FinalDecision []FinalDecision `json:"final_decision"`
}

// Build derives every report table from a planning result
func Build(result *dto.PlanningResult) *Report {
	risks := entities.NewRiskIndex(result.Flags)
	allocMap := shared.NewAllocationMapFromLines(result.Lines)

	lineByCode := make(map[entities.ProductCode]entities.ProductionPlanLine, len(result.Lines))
	for _, line := range result.Lines {
		lineByCode[line.ProductCode] = line
	}

	rows := make([]ProductRow, 0, len(result.Products))
	descriptions := make(map[entities.ProductCode]string, len(result.Products))
	for _, product := range result.Products {
		descriptions[product.Code] = product.Description
		profile, _ := result.ProfileFor(product.Code)
		row := ProductRow{
			ProductCode:    product.Code,
			Description:    product.Description,
			Risk:           risks.Level(product.Code),
			AvgDailyDemand: profile.AvgDailyDemand,
			CoverageDays:   profile.CoverageDays,
			ShortageQty:    profile.ShortageQty,
			SuggestedQty:   decimal.Zero,
			UnmetQty:       decimal.Zero,
		}
		if line, ok := lineByCode[product.Code]; ok {
			row.MachineID = line.MachineID
			row.SuggestedQty = line.SuggestedQty
			row.UnmetQty = line.UnmetQty()
		}
		rows = append(rows, row)
	}

	priority := make([]ProductRow, len(rows))
	copy(priority, rows)
	sort.SliceStable(priority, func(i, j int) bool { return morePressing(priority[i], priority[j]) })

	critical := make([]ProductRow, 0, topCriticalLimit)
	for _, row := range priority {
		if row.Risk.IsCoverageLevel() && len(critical) < topCriticalLimit {
			critical = append(critical, row)
		}
	}

	report := &Report{
		RunID:         result.RunID,
		TopCritical:   critical,
		Priority:      priority,
		MachineLoad:   machineLoad(result, risks, allocMap),
		FinalDecision: make([]FinalDecision, 0, len(result.Final)),
	}
	for _, line := range result.Final {
		report.FinalDecision = append(report.FinalDecision, FinalDecision{
			FinalPlanLine: line,
			Description:   descriptions[line.ProductCode],
		})
	}
	report.Summary = summary(result, report.MachineLoad, allocMap)
	return report
}

// morePressing orders by risk, then larger shortage, then shorter coverage, then code
func morePressing(a, b ProductRow) bool {
	if wa, wb := riskWeight(a.Risk), riskWeight(b.Risk); wa != wb {
		return wa > wb
	}
	if !a.ShortageQty.Equal(b.ShortageQty) {
		return a.ShortageQty.GreaterThan(b.ShortageQty)
	}
	if !a.CoverageDays.Equal(b.CoverageDays) {
		return a.CoverageDays.Less(b.CoverageDays)
	}
	return a.ProductCode < b.ProductCode
}

func riskWeight(level entities.RiskLevel) int {
	switch level {
	case entities.RiskCritical:
		return 2
	case entities.RiskWarning:
		return 1
	default:
		return 0
	}
}

func machineLoad(result *dto.PlanningResult, risks entities.RiskIndex, allocMap shared.AllocationMap) []MachineLoad {
	loads := make([]MachineLoad, 0, len(result.Machines))
	for _, m := range result.Machines {
		load := MachineLoad{
			MachineID:    m.ID,
			SuggestedQty: allocMap.MachineLoad(m.ID),
			Capacity:     m.CapacityFor(result.Policy.HorizonDays),
			UnmetQty:     decimal.Zero,
		}
		for _, line := range result.Lines {
			if line.MachineID != m.ID {
				continue
			}
			load.Lines++
			load.UnmetQty = load.UnmetQty.Add(line.UnmetQty())
			switch risks.Level(line.ProductCode) {
			case entities.RiskCritical:
				load.CriticalCount++
			case entities.RiskWarning:
				load.WarningCount++
			}
		}
		load.Utilization = load.SuggestedQty.Div(load.Capacity)
		loads = append(loads, load)
	}

	sort.SliceStable(loads, func(i, j int) bool {
		if !loads[i].SuggestedQty.Equal(loads[j].SuggestedQty) {
			return loads[i].SuggestedQty.GreaterThan(loads[j].SuggestedQty)
		}
		return loads[i].MachineID < loads[j].MachineID
	})
	return loads
}

func summary(result *dto.PlanningResult, loads []MachineLoad, allocMap shared.AllocationMap) []KPI {
	var critical, warning, customer int
	for _, flag := range result.Flags {
		switch flag.Level {
		case entities.RiskCritical:
			critical++
		case entities.RiskWarning:
			warning++
		case entities.RiskCustomerShortage:
			customer++
		}
	}

	impacted := 0
	for _, load := range loads {
		if load.SuggestedQty.IsPositive() {
			impacted++
		}
	}

	kpis := []KPI{
		{Name: "Total Items", Value: strconv.Itoa(len(result.Products))},
		{Name: "CRITICAL Items", Value: strconv.Itoa(critical)},
		{Name: "WARNING Items", Value: strconv.Itoa(warning)},
		{Name: "Customer Shortage Flags", Value: strconv.Itoa(customer)},
		{Name: "Total Suggested Qty", Value: FormatQty(allocMap.GetTotalAllocated())},
		{Name: "Total Unmet Qty", Value: FormatQty(allocMap.GetTotalUnmet())},
		{Name: "Machines Impacted", Value: strconv.Itoa(impacted)},
		{Name: "Planned Lines", Value: strconv.Itoa(allocMap.Size())},
		{Name: "Shortage Fill Rate", Value: FormatPercent(allocMap.GetCoverageRatio())},
	}
	if result.IsConfirmed() {
		total := decimal.Zero
		added := 0
		for _, line := range result.Final {
			total = total.Add(line.FinalQty)
			if !allocMap.Has(line.ProductCode, line.MachineID) {
				added++
			}
		}
		kpis = append(kpis,
			KPI{Name: "Total Final Qty", Value: FormatQty(total)},
			KPI{Name: "Planner Added Lines", Value: strconv.Itoa(added)},
		)
	}
	return kpis
}
