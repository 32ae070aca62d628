package output

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/application/services/report"
)

// Utilization thresholds for bar colors
var (
	busyUtilization = decimal.NewFromFloat(0.85)
	fullUtilization = decimal.NewFromInt(1)
)

// LoadChart renders machine load as horizontal bars against capacity
type LoadChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	// Scale is the quantity drawn at full plot width
	Scale decimal.Decimal
}

// LoadBar is one machine row of the chart
type LoadBar struct {
	Load           report.MachineLoad
	Y              int
	CapacityWidth  int
	SuggestedWidth int
	UnmetWidth     int
	Color          string
}

// NewLoadChart sizes the chart for the given machines
func NewLoadChart(loads []report.MachineLoad) *LoadChart {
	lc := &LoadChart{
		Width:        900,
		MarginLeft:   140,
		MarginTop:    60,
		MarginRight:  220,
		MarginBottom: 40,
		RowHeight:    28,
	}
	lc.Height = lc.MarginTop + lc.MarginBottom + lc.RowHeight*max(len(loads), 1)

	for _, load := range loads {
		lc.Scale = decimal.Max(lc.Scale, load.Capacity, load.SuggestedQty.Add(load.UnmetQty))
	}
	return lc
}

// GenerateSVG draws one bar per machine
func (lc *LoadChart) GenerateSVG(loads []report.MachineLoad) string {
	if len(loads) == 0 {
		return lc.generateEmptyChart()
	}

	var svg strings.Builder

	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, lc.Width, lc.Height))
	svg.WriteString(`<defs>`)
	svg.WriteString(`<style>`)
	svg.WriteString(`.machine-label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.value-label { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.capacity-bar { fill: none; stroke: #333; stroke-width: 1; stroke-dasharray: 4 2; }`)
	svg.WriteString(`</style>`)
	svg.WriteString(`</defs>`)

	svg.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, lc.Width, lc.Height))
	svg.WriteString(`<text x="20" y="30" class="title">Machine Load vs Capacity</text>`)

	for i, bar := range lc.createBars(loads) {
		lc.drawRow(&svg, bar, i)
	}
	lc.drawLegend(&svg)

	svg.WriteString(`</svg>`)
	return svg.String()
}

// createBars converts machine loads to bars in plot coordinates
func (lc *LoadChart) createBars(loads []report.MachineLoad) []LoadBar {
	bars := make([]LoadBar, 0, len(loads))
	for i, load := range loads {
		bars = append(bars, LoadBar{
			Load:           load,
			Y:              lc.MarginTop + i*lc.RowHeight,
			CapacityWidth:  lc.scaled(load.Capacity),
			SuggestedWidth: lc.scaled(load.SuggestedQty),
			UnmetWidth:     lc.scaled(load.UnmetQty),
			Color:          lc.getBarColor(load.Utilization),
		})
	}
	return bars
}

func (lc *LoadChart) plotWidth() int {
	return lc.Width - lc.MarginLeft - lc.MarginRight
}

func (lc *LoadChart) scaled(qty decimal.Decimal) int {
	if !lc.Scale.IsPositive() || !qty.IsPositive() {
		return 0
	}
	return int(qty.Div(lc.Scale).Mul(decimal.NewFromInt(int64(lc.plotWidth()))).Round(0).IntPart())
}

func (lc *LoadChart) drawRow(svg *strings.Builder, bar LoadBar, index int) {
	barHeight := lc.RowHeight - 8
	barY := bar.Y + 4
	machine := html.EscapeString(string(bar.Load.MachineID))

	if index%2 == 1 {
		svg.WriteString(fmt.Sprintf(`<rect x="0" y="%d" width="%d" height="%d" fill="#f7f7f7"/>`,
			bar.Y, lc.Width, lc.RowHeight))
	}
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="machine-label" text-anchor="end">%s</text>`,
		lc.MarginLeft-10, barY+barHeight/2+4, machine))

	if bar.SuggestedWidth > 0 {
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s">`,
			lc.MarginLeft, barY, bar.SuggestedWidth, barHeight, bar.Color))
		svg.WriteString(fmt.Sprintf(`<title>%s: %s suggested, %s capacity, %d lines</title></rect>`,
			machine, report.FormatQty(bar.Load.SuggestedQty), report.FormatQty(bar.Load.Capacity), bar.Load.Lines))
	}
	if bar.UnmetWidth > 0 {
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="#9E9E9E" opacity="0.6">`,
			lc.MarginLeft+bar.SuggestedWidth, barY, bar.UnmetWidth, barHeight))
		svg.WriteString(fmt.Sprintf(`<title>%s: %s unmet</title></rect>`,
			machine, report.FormatQty(bar.Load.UnmetQty)))
	}
	if bar.CapacityWidth > 0 {
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" class="capacity-bar"/>`,
			lc.MarginLeft, barY, bar.CapacityWidth, barHeight))
	}

	labelX := lc.MarginLeft + max(bar.CapacityWidth, bar.SuggestedWidth+bar.UnmetWidth) + 6
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="value-label">%s</text>`,
		labelX, barY+barHeight/2+4, report.FormatPercent(bar.Load.Utilization)))
}

// drawLegend draws a legend explaining the colors
func (lc *LoadChart) drawLegend(svg *strings.Builder) {
	legendX := lc.Width - lc.MarginRight + 40
	legendY := lc.MarginTop

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="170" height="84" fill="white" stroke="#ccc" stroke-width="1"/>`,
		legendX, legendY))
	svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="machine-label" font-weight="bold">Legend</text>`,
		legendX+10, legendY+15))

	items := []struct {
		color string
		label string
	}{
		{"#4CAF50", "Below 85% of capacity"},
		{"#FF9800", "85% to 100%"},
		{"#F44336", "Full"},
		{"#9E9E9E", "Unmet shortage"},
	}

	for i, item := range items {
		itemY := legendY + 25 + i*14
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`,
			legendX+10, itemY, item.color))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="value-label">%s</text>`,
			legendX+30, itemY+8, item.label))
	}
}

// getBarColor returns color based on utilization
func (lc *LoadChart) getBarColor(utilization decimal.Decimal) string {
	switch {
	case utilization.GreaterThanOrEqual(fullUtilization):
		return "#F44336"
	case utilization.GreaterThanOrEqual(busyUtilization):
		return "#FF9800"
	default:
		return "#4CAF50"
	}
}

// generateEmptyChart creates an empty chart when no machines exist
func (lc *LoadChart) generateEmptyChart() string {
	return fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
		<rect width="%d" height="%d" fill="white"/>
		<text x="%d" y="%d" class="title" text-anchor="middle">No Machines Configured</text>
		<style>
			.title { font-family: Arial, sans-serif; font-size: 16px; fill: #666; }
		</style>
	</svg>`, lc.Width, lc.Height, lc.Width, lc.Height, lc.Width/2, lc.Height/2)
}

// generateSVGOutput saves the machine load chart
func generateSVGOutput(rep *report.Report, config Config) error {
	chart := NewLoadChart(rep.MachineLoad).GenerateSVG(rep.MachineLoad)

	stdout := config.stdout()
	if config.OutputDir == "" {
		fmt.Fprintln(stdout, chart)
		return nil
	}

	filename, err := writeOutputFile(config.OutputDir, "machine_load.svg", []byte(chart))
	if err != nil {
		return err
	}
	if config.Verbose {
		fmt.Fprintf(stdout, "📈 Machine load chart saved to: %s\n", filename)
	}
	return nil
}
