package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/interfaces/cli/output"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

// scenario is A001 at 2 days of cover against one 100 a day machine
func scenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		StockFileName:        "Item No.,Item Name,MPI Stock,Production Line (Stage1-Stage2-Stage3)\nA001,Cap 28mm,20,M1\nB002,Cap 38mm,500,M1\n",
		PeriodDemandFileName: "Item No.,Min Stock / M.D.\nA001,260\n",
		MachinesFileName:     "machine_id,daily_capacity,eligible_products\nM1,100,A001 B002\n",
	})
	return dir
}

func asOf() *time.Time {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return &date
}

func TestPlanCommand_Scenario(t *testing.T) {
	var out bytes.Buffer
	cmd := NewPlanCommand(Config{
		ScenarioDir: scenario(t),
		Policy:      PolicyOverrides{AsOf: asOf()},
		Format:      output.FormatText,
		Stdout:      &out,
	}, nil)

	result, err := cmd.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, entities.ProductCode("A001"), result.Lines[0].ProductCode)
	assert.Equal(t, "100", result.Lines[0].SuggestedQty.String())
	assert.False(t, result.IsConfirmed())
	assert.Contains(t, out.String(), "Plan M1:")
}

func TestPlanCommand_OverridesAndTemplate(t *testing.T) {
	dir := scenario(t)
	writeFiles(t, dir, map[string]string{
		OverridesFileName: "Item No.,Machine ID,Final Qty\nA001,M1,150\n",
	})

	template := excelize.NewFile()
	_, err := template.NewSheet("Clinet Orders")
	require.NoError(t, err)
	require.NoError(t, template.SetSheetRow("Clinet Orders", "A2", &[]interface{}{"Item No.", "Qty"}))
	require.NoError(t, template.SetSheetRow("Clinet Orders", "A3", &[]interface{}{"A001"}))
	templatePath := filepath.Join(dir, "orders.xlsx")
	require.NoError(t, template.SaveAs(templatePath))
	require.NoError(t, template.Close())

	outDir := t.TempDir()
	var out bytes.Buffer
	cmd := NewPlanCommand(Config{
		ScenarioDir:  dir,
		Policy:       PolicyOverrides{AsOf: asOf()},
		Overrides:    []entities.Override{},
		TemplateFile: templatePath,
		OutputDir:    outDir,
		Format:       output.FormatXLSX,
		Stdout:       &out,
	}, nil)

	result, err := cmd.Run(context.Background())
	require.NoError(t, err)

	require.True(t, result.IsConfirmed())
	require.Len(t, result.Final, 1)
	assert.Equal(t, "150", result.Final[0].FinalQty.String())
	assert.Equal(t, entities.SourcePlannerOverride, result.Final[0].Source)

	filled, err := excelize.OpenFile(filepath.Join(outDir, filledTemplateName))
	require.NoError(t, err)
	defer filled.Close()
	qty, err := filled.GetCellValue("Clinet Orders", "B3")
	require.NoError(t, err)
	assert.Equal(t, "150", qty)

	assert.FileExists(t, filepath.Join(outDir, "production_plan.xlsx"))
	assert.Contains(t, out.String(), "Template filled: 1 rows, 0 unmatched")
}

func TestPlanCommand_PolicyFileMachinesAndFlags(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		StockFileName:        "code,on_hand_qty,assigned_machine\n12345,20,M7\n",
		PeriodDemandFileName: "code,period_demand\n0012345,260\n",
		"policy.yaml": `
thresholds:
  critical_days: 1
  warning_days: 3
machines:
  - id: M7
    daily_capacity: 40
    eligible: ["12345"]
`,
	})

	mode := string(entities.CodeModeNumeric)
	cmd := NewPlanCommand(Config{
		ScenarioDir: dir,
		PolicyFile:  filepath.Join(dir, "policy.yaml"),
		Policy:      PolicyOverrides{AsOf: asOf(), CodeMode: &mode},
		Format:      output.FormatJSON,
		Stdout:      &bytes.Buffer{},
	}, nil)

	result, err := cmd.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.Policy.Thresholds.CriticalDays)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, entities.MachineID("M7"), result.Lines[0].MachineID)
	assert.Equal(t, "40", result.Lines[0].SuggestedQty.String())
	// stock and period demand join on the normalized code
	assert.Equal(t, result.Products[0].Code, result.Lines[0].ProductCode)
	require.Len(t, result.Flags, 1)
	assert.Equal(t, entities.RiskWarning, result.Flags[0].Level)
}

func TestPlanCommand_Errors(t *testing.T) {
	noMachines := t.TempDir()
	writeFiles(t, noMachines, map[string]string{
		StockFileName: "code,on_hand_qty\nA001,1\n",
	})

	testCases := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name:   "no inputs",
			config: Config{},
			want:   "must specify either a scenario directory or a stock file",
		},
		{
			name:   "missing file",
			config: Config{StockFile: filepath.Join(noMachines, "nope.csv")},
			want:   "stock file not found",
		},
		{
			name:   "no machines",
			config: Config{ScenarioDir: noMachines},
			want:   "no machines",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.config.Stdout = &bytes.Buffer{}
			err := NewPlanCommand(tc.config, nil).Execute(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestPlanCommand_UnknownOverrideIsDomainError(t *testing.T) {
	cmd := NewPlanCommand(Config{
		ScenarioDir: scenario(t),
		Policy:      PolicyOverrides{AsOf: asOf()},
		Overrides:   []entities.Override{{ProductCode: "Z9", MachineID: "M1"}},
		Stdout:      &bytes.Buffer{},
	}, nil)

	err := cmd.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, entities.IsUnknownLineOverrideError(err))
}

func TestParseOverride(t *testing.T) {
	override, err := ParseOverride("00012345:M1=1,200")
	require.NoError(t, err)
	assert.Equal(t, entities.ProductCode("00012345"), override.ProductCode)
	assert.Equal(t, entities.MachineID("M1"), override.MachineID)
	assert.Equal(t, "1200", override.Qty.String())

	for _, bad := range []string{"A001", "A001=5", ":M1=5", "A001:M1=lots"} {
		_, err := ParseOverride(bad)
		assert.Error(t, err, bad)
	}
}
