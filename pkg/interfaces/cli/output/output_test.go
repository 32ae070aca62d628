package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/report"
	plantest "github.com/vsinha/prodplan/pkg/application/services/testing"
	"github.com/vsinha/prodplan/pkg/domain/entities"
)

func sampleResult() *dto.PlanningResult {
	x := plantest.MustProduct("X", 5, 10, "")
	x.Description = "Preform 28g"
	y := plantest.MustProduct("00123", 10, 5, "")

	return &dto.PlanningResult{
		RunID:    "run-1",
		Policy:   plantest.ScenarioPolicy(),
		Products: []entities.Product{x, y},
		Profiles: []entities.DemandProfile{
			plantest.MustProfile(x, 1, 30),
			plantest.MustProfile(y, 1, 30),
		},
		Flags: []entities.RiskFlag{
			{Level: entities.RiskCritical, ProductCode: "X"},
			{Level: entities.RiskWarning, ProductCode: "00123"},
		},
		Machines: []entities.Machine{
			plantest.MustMachine("M1", 20, "X", "00123"),
			plantest.MustMachine("M/2", 50),
		},
		Lines: []entities.ProductionPlanLine{
			{ProductCode: "X", MachineID: "M1", SuggestedQty: decimal.NewFromInt(15), RequestedQty: decimal.NewFromInt(15), Rank: 1},
			{ProductCode: "00123", MachineID: "M1", SuggestedQty: decimal.NewFromInt(5), RequestedQty: decimal.NewFromInt(15), Rank: 2},
		},
		Unmet: []entities.UnmetShortage{
			{ProductCode: "00123", MachineID: "M1", RequestedQty: decimal.NewFromInt(15), AllocatedQty: decimal.NewFromInt(5), UnmetQty: decimal.NewFromInt(10)},
		},
		Warnings: []string{"machine M/2 has no eligible products"},
	}
}

func TestGenerate_Text(t *testing.T) {
	var out bytes.Buffer
	err := Generate(sampleResult(), Config{Format: FormatText, Stdout: &out})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Run: run-1")
	assert.Contains(t, text, report.SheetSummary+":")
	assert.Contains(t, text, report.SheetMachineLoad+":")
	assert.Contains(t, text, "Plan M1:")
	assert.Contains(t, text, "machine M/2 has no eligible products")
	// nothing confirmed yet
	assert.NotContains(t, text, report.SheetFinalDecision+":")
}

func TestGenerate_TextSavesFile(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	require.NoError(t, Generate(sampleResult(), Config{Format: FormatText, OutputDir: dir, Stdout: &out}))

	saved, err := os.ReadFile(filepath.Join(dir, "production_plan.txt"))
	require.NoError(t, err)
	assert.Equal(t, out.String(), string(saved))
}

func TestGenerate_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Generate(sampleResult(), Config{Format: FormatJSON, Stdout: &out}))

	var doc struct {
		Result struct {
			RunID string `json:"run_id"`
		} `json:"result"`
		Report struct {
			Priority []json.RawMessage `json:"priority"`
		} `json:"report"`
		MachinePlans []json.RawMessage `json:"machine_plans"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.Result.RunID)
	assert.Len(t, doc.Report.Priority, 2)
	assert.Len(t, doc.MachinePlans, 1)
}

func TestGenerate_CSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Generate(sampleResult(), Config{Format: FormatCSV, OutputDir: dir, Stdout: &bytes.Buffer{}}))

	for _, name := range []string{
		"executive_summary.csv",
		"top_10_critical.csv",
		"production_priority.csv",
		"machine_load.csv",
		"final_decision.csv",
		"plan_m1.csv",
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	load, err := os.ReadFile(filepath.Join(dir, "machine_load.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(load)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "M1,2,20,20,100%,1,1,10", lines[1])
}

func TestGenerate_CSVRequiresOutputDir(t *testing.T) {
	err := Generate(sampleResult(), Config{Format: FormatCSV})
	assert.EqualError(t, err, "output directory required for CSV format")
}

func TestGenerate_XLSX(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Generate(sampleResult(), Config{Format: FormatXLSX, OutputDir: dir, Stdout: &bytes.Buffer{}}))

	f, err := excelize.OpenFile(filepath.Join(dir, workbookName))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		report.SheetSummary,
		report.SheetTopCritical,
		report.SheetPriority,
		report.SheetMachineLoad,
		report.SheetFinalDecision,
		"Plan M1",
	}, f.GetSheetList())

	rows, err := f.GetRows("Plan M1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// leading zeros survive since product codes stay text
	assert.Equal(t, "00123", rows[2][1])
	assert.Equal(t, "5", rows[2][6])
}

func TestGenerate_HTMLAndSVG(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult()
	confirmedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	result.ConfirmedAt = &confirmedAt
	result.Final = []entities.FinalPlanLine{
		{ProductCode: "X", MachineID: "M1", SuggestedQty: decimal.NewFromInt(15), FinalQty: decimal.NewFromInt(15)},
	}

	require.NoError(t, Generate(result, Config{Format: FormatHTML, OutputDir: dir, Stdout: &bytes.Buffer{}}))
	page, err := os.ReadFile(filepath.Join(dir, "production_report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h2>Final Decision</h2>")
	assert.Contains(t, string(page), "Preform 28g")
	assert.Contains(t, string(page), "<svg")

	require.NoError(t, Generate(result, Config{Format: FormatSVG, OutputDir: dir, Stdout: &bytes.Buffer{}}))
	assert.FileExists(t, filepath.Join(dir, "machine_load.svg"))
}

func TestGenerate_UnsupportedFormat(t *testing.T) {
	err := Generate(sampleResult(), Config{Format: "pdf"})
	assert.EqualError(t, err, "unsupported output format: pdf")
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "Plan M_2", uniqueSheetName("Plan M/2", used))
	assert.Equal(t, "Plan M_2 (2)", uniqueSheetName("Plan M:2", used))

	long := uniqueSheetName("Plan "+strings.Repeat("A", 40), used)
	assert.Len(t, long, maxSheetNameLen)
}

func TestFileSlug(t *testing.T) {
	assert.Equal(t, "top_10_critical", fileSlug("Top 10 Critical"))
	assert.Equal(t, "plan_m_2", fileSlug("Plan M/2"))
}

func TestLoadChart(t *testing.T) {
	loads := report.Build(sampleResult()).MachineLoad
	chart := NewLoadChart(loads)

	assert.True(t, chart.Scale.Equal(decimal.NewFromInt(50)))
	svg := chart.GenerateSVG(loads)
	assert.Contains(t, svg, "M/2")
	assert.Contains(t, svg, "#F44336")

	empty := NewLoadChart(nil).GenerateSVG(nil)
	assert.Contains(t, empty, "No Machines Configured")
}
