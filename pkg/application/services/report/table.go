package report

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

// Sheet names used by every tabular renderer
const (
	SheetSummary       = "Executive Summary"
	SheetTopCritical   = "Top 10 Critical"
	SheetPriority      = "Production Priority"
	SheetMachineLoad   = "Machine Load"
	SheetFinalDecision = "Final Decision"
)

// Table is a rendered report table: display strings only
type Table struct {
	Name    string     `json:"name"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// FormatQty rounds a quantity for display
func FormatQty(d decimal.Decimal) string {
	return d.Round(2).String()
}

// FormatCoverage renders coverage days with the infinite sentinel spelled out
func FormatCoverage(c entities.CoverageDays) string {
	days, ok := c.Days()
	if !ok {
		return "infinite"
	}
	return days.Round(1).String()
}

// FormatPercent renders a ratio as a percentage
func FormatPercent(ratio decimal.Decimal) string {
	return ratio.Mul(decimal.NewFromInt(100)).Round(1).String() + "%"
}

// Tables flattens the report into display tables in sheet order
func (r *Report) Tables() []Table {
	summary := Table{Name: SheetSummary, Headers: []string{"KPI", "Value"}}
	for _, kpi := range r.Summary {
		summary.Rows = append(summary.Rows, []string{kpi.Name, kpi.Value})
	}

	productHeaders := []string{
		"Product Code", "Description", "Machine", "Risk", "Avg Daily Demand",
		"Coverage Days", "Shortage Qty", "Suggested Qty", "Unmet Qty",
	}
	critical := Table{Name: SheetTopCritical, Headers: productHeaders, Rows: productRows(r.TopCritical)}
	priority := Table{Name: SheetPriority, Headers: productHeaders, Rows: productRows(r.Priority)}

	load := Table{
		Name: SheetMachineLoad,
		Headers: []string{
			"Machine", "Lines", "Suggested Qty", "Capacity", "Utilization",
			"CRITICAL Count", "WARNING Count", "Unmet Qty",
		},
	}
	for _, m := range r.MachineLoad {
		load.Rows = append(load.Rows, []string{
			string(m.MachineID),
			strconv.Itoa(m.Lines),
			FormatQty(m.SuggestedQty),
			FormatQty(m.Capacity),
			FormatPercent(m.Utilization),
			strconv.Itoa(m.CriticalCount),
			strconv.Itoa(m.WarningCount),
			FormatQty(m.UnmetQty),
		})
	}

	final := Table{
		Name:    SheetFinalDecision,
		Headers: []string{"Product Code", "Description", "Machine", "Suggested Qty", "Final Qty", "Source"},
	}
	for _, line := range r.FinalDecision {
		final.Rows = append(final.Rows, []string{
			string(line.ProductCode),
			line.Description,
			string(line.MachineID),
			FormatQty(line.SuggestedQty),
			FormatQty(line.FinalQty),
			line.Source.String(),
		})
	}

	return []Table{summary, critical, priority, load, final}
}

func productRows(rows []ProductRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		risk := ""
		if row.Risk != entities.RiskNone {
			risk = row.Risk.String()
		}
		out = append(out, []string{
			string(row.ProductCode),
			row.Description,
			string(row.MachineID),
			risk,
			FormatQty(row.AvgDailyDemand),
			FormatCoverage(row.CoverageDays),
			FormatQty(row.ShortageQty),
			FormatQty(row.SuggestedQty),
			FormatQty(row.UnmetQty),
		})
	}
	return out
}
