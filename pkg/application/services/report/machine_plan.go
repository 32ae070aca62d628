package report

import (
	"sort"
	"strconv"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/domain/entities"
)

// MachinePlan is the ranked line list of one machine
type MachinePlan struct {
	MachineID entities.MachineID `json:"machine_id"`
	Table     Table              `json:"table"`
}

// MachinePlans returns one table per machine that received lines, in machine id order.
// Final quantities are included once the plan is confirmed; planner-added lines appear
// after the suggested ones.
func MachinePlans(result *dto.PlanningResult) []MachinePlan {
	risks := entities.NewRiskIndex(result.Flags)
	descriptions := make(map[entities.ProductCode]string, len(result.Products))
	for _, p := range result.Products {
		descriptions[p.Code] = p.Description
	}
	finalByKey := make(map[entities.LineKey]entities.FinalPlanLine, len(result.Final))
	for _, line := range result.Final {
		finalByKey[line.Key()] = line
	}
	confirmed := result.IsConfirmed()

	headers := []string{"Rank", "Product Code", "Description", "Risk", "Coverage Days", "Requested Qty", "Suggested Qty", "Unmet Qty"}
	if confirmed {
		headers = append(headers, "Final Qty", "Source")
	}

	byMachine := make(map[entities.MachineID]*MachinePlan)
	var order []entities.MachineID
	planFor := func(id entities.MachineID) *MachinePlan {
		plan, ok := byMachine[id]
		if !ok {
			plan = &MachinePlan{MachineID: id, Table: Table{Name: "Plan " + string(id), Headers: headers}}
			byMachine[id] = plan
			order = append(order, id)
		}
		return plan
	}

	for _, line := range result.Lines {
		profile, _ := result.ProfileFor(line.ProductCode)
		risk := ""
		if level := risks.Level(line.ProductCode); level != entities.RiskNone {
			risk = level.String()
		}
		row := []string{
			strconv.Itoa(line.Rank),
			string(line.ProductCode),
			descriptions[line.ProductCode],
			risk,
			FormatCoverage(profile.CoverageDays),
			FormatQty(line.RequestedQty),
			FormatQty(line.SuggestedQty),
			FormatQty(line.UnmetQty()),
		}
		if confirmed {
			final, ok := finalByKey[line.Key()]
			if ok {
				row = append(row, FormatQty(final.FinalQty), final.Source.String())
			} else {
				row = append(row, "", "")
			}
		}
		plan := planFor(line.MachineID)
		plan.Table.Rows = append(plan.Table.Rows, row)
	}

	for _, line := range result.Final {
		if line.Source != entities.SourcePlannerAdded {
			continue
		}
		plan := planFor(line.MachineID)
		plan.Table.Rows = append(plan.Table.Rows, []string{
			"",
			string(line.ProductCode),
			descriptions[line.ProductCode],
			"",
			"",
			"0",
			"0",
			"0",
			FormatQty(line.FinalQty),
			line.Source.String(),
		})
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	plans := make([]MachinePlan, 0, len(order))
	for _, id := range order {
		plans = append(plans, *byMachine[id])
	}
	return plans
}
