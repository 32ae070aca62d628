package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/orchestration"
	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/domain/services"
	"github.com/vsinha/prodplan/pkg/infrastructure/config"
	"github.com/vsinha/prodplan/pkg/infrastructure/events"
	"github.com/vsinha/prodplan/pkg/infrastructure/excel"
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
	"github.com/vsinha/prodplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/prodplan/pkg/infrastructure/repositories/tabular"
	"github.com/vsinha/prodplan/pkg/interfaces/cli/output"
)

// Scenario directory file names
const (
	StockFileName        = "stock.csv"
	ItemsFileName        = "items.csv"
	HistoryFileName      = "history.csv"
	PeriodDemandFileName = "period_demand.csv"
	OrdersFileName       = "orders.csv"
	MachinesFileName     = "machines.csv"
	OverridesFileName    = "overrides.csv"

	filledTemplateName = "filled_template.xlsx"
)

// PolicyOverrides are command line values that win over the policy file. Nil fields
// keep the file value.
type PolicyOverrides struct {
	AsOf               *time.Time
	CriticalDays       *float64
	WarningDays        *float64
	TargetCoverageDays *float64
	DemandWindowDays   *int
	HorizonDays        *int
	BatchSize          *float64
	CodeMode           *string
}

// Config holds configuration for the plan command
type Config struct {
	ScenarioDir      string
	StockFile        string
	ItemsFile        string
	HistoryFile      string
	PeriodDemandFile string
	OrdersFile       string
	MachinesFile     string
	OverridesFile    string
	// Sheet is read from XLSX inputs; the first sheet when empty
	Sheet string

	PolicyFile string
	Policy     PolicyOverrides
	Workers    int

	// Overrides are applied after the overrides file
	Overrides []entities.Override
	// Confirm reconciles the plan even without overrides
	Confirm        bool
	TemplateFile   string
	TemplateOutput string

	OutputDir string
	Format    string
	Verbose   bool
	Stdout    io.Writer
}

// InputFiles are the resolved input paths; empty entries are not loaded
type InputFiles struct {
	Stock        string
	Items        string
	History      string
	PeriodDemand string
	Orders       string
	Machines     string
	Overrides    string
}

// PlanCommand runs the planning pipeline over input files
type PlanCommand struct {
	config Config
	log    *logger.Logger
}

// NewPlanCommand creates a new plan command with the given configuration
func NewPlanCommand(config Config, log *logger.Logger) *PlanCommand {
	return &PlanCommand{
		config: config,
		log:    logger.OrNop(log),
	}
}

func (c *PlanCommand) stdout() io.Writer {
	if c.config.Stdout == nil {
		return os.Stdout
	}
	return c.config.Stdout
}

// Execute runs the plan command
func (c *PlanCommand) Execute(ctx context.Context) error {
	_, err := c.Run(ctx)
	return err
}

// Run executes the pipeline and returns the final result after rendering
func (c *PlanCommand) Run(ctx context.Context) (*dto.PlanningResult, error) {
	files, err := c.resolveInputFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input files: %w", err)
	}

	policyFile, err := config.LoadPolicy(c.config.PolicyFile)
	if err != nil {
		return nil, err
	}
	policy := c.applyOverrides(policyFile.Policy)

	if c.config.Verbose {
		c.printHeader(files)
	}

	input, overrides, err := c.loadInputs(files)
	if err != nil {
		return nil, err
	}
	overrides = append(overrides, c.config.Overrides...)
	input.Policy = policy

	machines := input.Machines
	if len(machines) == 0 {
		machines, err = policyFile.MachineTable()
		if err != nil {
			return nil, fmt.Errorf("failed to read machine table: %w", err)
		}
	}
	if len(machines) == 0 {
		return nil, fmt.Errorf("no machines: provide a machines file or a machines table in the policy file")
	}

	machineRepo := memory.NewMachineRepository(len(machines))
	if err := machineRepo.LoadMachines(machines); err != nil {
		return nil, fmt.Errorf("failed to load machines into repository: %w", err)
	}
	input.Machines = nil

	store := events.NewInMemoryStore(c.log)
	events.SubscribeAuditLog(store, c.log)
	planner := orchestration.NewPlanner(
		orchestration.WithLogger(c.log),
		orchestration.WithMachineRepository(machineRepo),
		orchestration.WithEventStore(store),
	)

	if c.config.Verbose {
		fmt.Fprintln(c.stdout(), "🔄 Running planning pipeline...")
	}
	startTime := time.Now()
	result, err := planner.Run(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("error running planner: %w", err)
	}

	if len(overrides) > 0 || c.config.Confirm || c.config.TemplateFile != "" {
		result, err = planner.Confirm(ctx, result, overrides)
		if err != nil {
			return nil, fmt.Errorf("error confirming plan: %w", err)
		}
	}
	runTime := time.Since(startTime)

	if c.config.Verbose {
		fmt.Fprintf(c.stdout(), "✅ Planning completed in %v: %d lines, %d flags, %d unmet\n\n",
			runTime, len(result.Lines), len(result.Flags), len(result.Unmet))
	}

	if c.config.TemplateFile != "" {
		if err := c.fillTemplate(result); err != nil {
			return nil, err
		}
	}

	err = output.Generate(result, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		RunTime:   runTime,
		Stdout:    c.stdout(),
	})
	if err != nil {
		return nil, fmt.Errorf("error generating output: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintln(c.stdout(), "🏁 Planning run complete!")
	}
	return result, nil
}

// resolveInputFiles determines the actual file paths to use. Scenario files other than
// stock are optional; explicit paths win over the scenario directory.
func (c *PlanCommand) resolveInputFiles() (InputFiles, error) {
	var files InputFiles
	if c.config.ScenarioDir != "" {
		files = InputFiles{
			Stock:        filepath.Join(c.config.ScenarioDir, StockFileName),
			Items:        c.optionalScenarioFile(ItemsFileName),
			History:      c.optionalScenarioFile(HistoryFileName),
			PeriodDemand: c.optionalScenarioFile(PeriodDemandFileName),
			Orders:       c.optionalScenarioFile(OrdersFileName),
			Machines:     c.optionalScenarioFile(MachinesFileName),
			Overrides:    c.optionalScenarioFile(OverridesFileName),
		}
	}

	explicit := []struct {
		path   string
		target *string
	}{
		{c.config.StockFile, &files.Stock},
		{c.config.ItemsFile, &files.Items},
		{c.config.HistoryFile, &files.History},
		{c.config.PeriodDemandFile, &files.PeriodDemand},
		{c.config.OrdersFile, &files.Orders},
		{c.config.MachinesFile, &files.Machines},
		{c.config.OverridesFile, &files.Overrides},
	}
	for _, e := range explicit {
		if e.path != "" {
			*e.target = e.path
		}
	}

	if files.Stock == "" {
		return files, fmt.Errorf("must specify either a scenario directory or a stock file")
	}

	for name, path := range map[string]string{
		"stock":         files.Stock,
		"items":         files.Items,
		"history":       files.History,
		"period demand": files.PeriodDemand,
		"orders":        files.Orders,
		"machines":      files.Machines,
		"overrides":     files.Overrides,
		"template":      c.config.TemplateFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return files, fmt.Errorf("%s file not found: %s", name, path)
		}
	}

	return files, nil
}

func (c *PlanCommand) optionalScenarioFile(name string) string {
	path := filepath.Join(c.config.ScenarioDir, name)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// applyOverrides layers command line values over the policy file
func (c *PlanCommand) applyOverrides(policy entities.PlanningPolicy) entities.PlanningPolicy {
	o := c.config.Policy
	if o.AsOf != nil {
		policy.AsOf = *o.AsOf
	}
	if o.CriticalDays != nil {
		policy.Thresholds.CriticalDays = *o.CriticalDays
	}
	if o.WarningDays != nil {
		policy.Thresholds.WarningDays = *o.WarningDays
	}
	if o.TargetCoverageDays != nil {
		policy.TargetCoverageDays = *o.TargetCoverageDays
	}
	if o.DemandWindowDays != nil {
		policy.DemandWindowDays = *o.DemandWindowDays
	}
	if o.HorizonDays != nil {
		policy.HorizonDays = *o.HorizonDays
	}
	if o.BatchSize != nil {
		policy.BatchSize = *o.BatchSize
	}
	if o.CodeMode != nil {
		policy.Codes.Mode = entities.CodeMode(*o.CodeMode)
	}
	if c.config.Workers > 0 {
		policy.Workers = c.config.Workers
	}
	if policy.AsOf.IsZero() {
		now := time.Now().UTC()
		policy.AsOf = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return policy
}

// loadInputs reads every resolved file
func (c *PlanCommand) loadInputs(files InputFiles) (dto.PlanningInput, []entities.Override, error) {
	if c.config.Verbose {
		fmt.Fprintln(c.stdout(), "📂 Loading input files...")
	}

	loader := tabular.NewLoader(c.log)
	sheet := c.config.Sheet
	var input dto.PlanningInput
	var overrides []entities.Override
	var err error

	if input.Stock, err = loader.LoadStock(files.Stock, sheet); err != nil {
		return input, nil, fmt.Errorf("error loading stock: %w", err)
	}
	if files.Items != "" {
		if input.Items, err = loader.LoadItems(files.Items, sheet); err != nil {
			return input, nil, fmt.Errorf("error loading items: %w", err)
		}
	}
	if files.History != "" {
		if input.History, err = loader.LoadHistory(files.History, sheet); err != nil {
			return input, nil, fmt.Errorf("error loading demand history: %w", err)
		}
	}
	if files.PeriodDemand != "" {
		if input.PeriodDemand, err = loader.LoadPeriodDemand(files.PeriodDemand, sheet); err != nil {
			return input, nil, fmt.Errorf("error loading period demand: %w", err)
		}
	}
	if files.Orders != "" {
		if input.Orders, err = loader.LoadOrders(files.Orders, sheet); err != nil {
			return input, nil, fmt.Errorf("error loading customer orders: %w", err)
		}
	}
	if files.Machines != "" {
		if input.Machines, err = loader.LoadMachines(files.Machines, sheet); err != nil {
			return input, nil, fmt.Errorf("error loading machines: %w", err)
		}
	}
	if files.Overrides != "" {
		if overrides, err = loader.LoadOverrides(files.Overrides, sheet); err != nil {
			return input, nil, fmt.Errorf("error loading overrides: %w", err)
		}
	}

	if c.config.Verbose {
		fmt.Fprintf(c.stdout(), "✅ Data loaded successfully:\n")
		fmt.Fprintf(c.stdout(), "  Stock Rows: %d\n", len(input.Stock))
		fmt.Fprintf(c.stdout(), "  Item Rows: %d\n", len(input.Items))
		fmt.Fprintf(c.stdout(), "  History Records: %d\n", len(input.History))
		fmt.Fprintf(c.stdout(), "  Period Demand: %d\n", len(input.PeriodDemand))
		fmt.Fprintf(c.stdout(), "  Customer Orders: %d\n", len(input.Orders))
		fmt.Fprintf(c.stdout(), "  Machines: %d\n", len(input.Machines))
		fmt.Fprintf(c.stdout(), "  Overrides: %d\n", len(overrides))
		fmt.Fprintln(c.stdout())
	}

	return input, overrides, nil
}

// fillTemplate writes the final quantities into a copy of the order template
func (c *PlanCommand) fillTemplate(result *dto.PlanningResult) error {
	target := c.config.TemplateOutput
	if target == "" {
		dir := c.config.OutputDir
		if dir == "" {
			dir = "."
		}
		target = filepath.Join(dir, filledTemplateName)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	in, err := os.Open(c.config.TemplateFile)
	if err != nil {
		return fmt.Errorf("failed to open template: %w", err)
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create filled template: %w", err)
	}
	defer out.Close()

	normalizer := services.NewCodeNormalizer(result.Policy.Codes)
	fill, err := excel.FillTemplate(in, out, result.Final, normalizer, excel.DefaultTemplateOptions())
	if err != nil {
		return fmt.Errorf("failed to fill template: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write filled template: %w", err)
	}

	c.log.Info("order template filled",
		"path", target, "filled", fill.Filled, "unmatched", fill.Unmatched)
	fmt.Fprintf(c.stdout(), "📝 Template filled: %d rows, %d unmatched (%s)\n", fill.Filled, fill.Unmatched, target)
	return nil
}

// printHeader prints the command header information
func (c *PlanCommand) printHeader(files InputFiles) {
	w := c.stdout()
	fmt.Fprintf(w, "🚀 Production Planning CLI\n")
	fmt.Fprintf(w, "Input files:\n")
	for _, f := range []struct{ name, path string }{
		{"Stock", files.Stock},
		{"Items", files.Items},
		{"History", files.History},
		{"Period Demand", files.PeriodDemand},
		{"Orders", files.Orders},
		{"Machines", files.Machines},
		{"Overrides", files.Overrides},
	} {
		if f.path != "" {
			fmt.Fprintf(w, "  %s: %s\n", f.name, f.path)
		}
	}
	if c.config.PolicyFile != "" {
		fmt.Fprintf(w, "Policy file: %s\n", c.config.PolicyFile)
	}
	fmt.Fprintf(w, "Output format: %s\n", c.config.Format)
	if c.config.OutputDir != "" {
		fmt.Fprintf(w, "Output directory: %s\n", c.config.OutputDir)
	}
	fmt.Fprintln(w)
}

// ParseOverride reads a CODE:MACHINE=QTY argument
func ParseOverride(arg string) (entities.Override, error) {
	sep := strings.LastIndex(arg, "=")
	if sep < 0 {
		return entities.Override{}, fmt.Errorf("invalid override %q (expected CODE:MACHINE=QTY)", arg)
	}
	code, machine, ok := strings.Cut(arg[:sep], ":")
	if !ok || code == "" || machine == "" {
		return entities.Override{}, fmt.Errorf("invalid override %q (expected CODE:MACHINE=QTY)", arg)
	}
	qty, err := tabular.ParseDecimal(arg[sep+1:])
	if err != nil {
		return entities.Override{}, fmt.Errorf("invalid override %q: %w", arg, err)
	}
	return entities.Override{
		ProductCode: entities.ProductCode(code),
		MachineID:   entities.MachineID(machine),
		Qty:         qty,
	}, nil
}
