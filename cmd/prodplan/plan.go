package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vsinha/prodplan/pkg/infrastructure/repositories/tabular"
	"github.com/vsinha/prodplan/pkg/interfaces/cli/commands"
	"github.com/vsinha/prodplan/pkg/interfaces/cli/output"
)

func newPlanCommand(a *app) *cobra.Command {
	var (
		cfg       commands.Config
		asOf      string
		overrides []string
		critical  float64
		warning   float64
		target    float64
		window    int
		horizon   int
		batch     float64
		codeMode  string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run the planning pipeline over stock, demand and machine files",
		Example: `  prodplan plan --scenario examples/plant_a --verbose
  prodplan plan --stock stock.xlsx --period-demand demand.xlsx --machines machines.csv --format xlsx --output out/
  prodplan plan --scenario examples/plant_a --override 00012345:M1=600 --template orders.xlsx --output out/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if cfg.PolicyFile == "" {
				cfg.PolicyFile = a.cfg.Planning.PolicyFile
			}
			if !flags.Changed("workers") {
				cfg.Workers = a.cfg.Planning.Workers
			}
			if flags.Changed("as-of") {
				date, err := tabular.ParseDate(asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				cfg.Policy.AsOf = &date
			}
			if flags.Changed("critical-days") {
				cfg.Policy.CriticalDays = &critical
			}
			if flags.Changed("warning-days") {
				cfg.Policy.WarningDays = &warning
			}
			if flags.Changed("target-days") {
				cfg.Policy.TargetCoverageDays = &target
			}
			if flags.Changed("window-days") {
				cfg.Policy.DemandWindowDays = &window
			}
			if flags.Changed("horizon-days") {
				cfg.Policy.HorizonDays = &horizon
			}
			if flags.Changed("batch-size") {
				cfg.Policy.BatchSize = &batch
			}
			if flags.Changed("code-mode") {
				cfg.Policy.CodeMode = &codeMode
			}
			for _, arg := range overrides {
				override, err := commands.ParseOverride(arg)
				if err != nil {
					return err
				}
				cfg.Overrides = append(cfg.Overrides, override)
			}
			cfg.Stdout = cmd.OutOrStdout()

			return commands.NewPlanCommand(cfg, a.log).Execute(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.ScenarioDir, "scenario", "", "directory holding stock.csv and the optional input files")
	flags.StringVar(&cfg.StockFile, "stock", "", "stock export (.csv or .xlsx)")
	flags.StringVar(&cfg.ItemsFile, "items", "", "item master export")
	flags.StringVar(&cfg.HistoryFile, "history", "", "dated demand history")
	flags.StringVar(&cfg.PeriodDemandFile, "period-demand", "", "monthly demand per product")
	flags.StringVar(&cfg.OrdersFile, "orders", "", "open customer orders")
	flags.StringVar(&cfg.MachinesFile, "machines", "", "machine table (id, daily capacity, eligible products)")
	flags.StringVar(&cfg.OverridesFile, "overrides-file", "", "planner overrides (code, machine, qty)")
	flags.StringVar(&cfg.Sheet, "sheet", "", "sheet to read from .xlsx inputs (default first sheet)")
	flags.StringVar(&cfg.PolicyFile, "policy", "", "planning policy YAML (default $PLANNING_POLICY_FILE)")
	flags.IntVar(&cfg.Workers, "workers", 0, "parallel workers per stage (0 = GOMAXPROCS)")

	flags.StringVar(&asOf, "as-of", "", "planning date, YYYY-MM-DD (default today)")
	flags.Float64Var(&critical, "critical-days", 0, "coverage below which a product is CRITICAL")
	flags.Float64Var(&warning, "warning-days", 0, "coverage below which a product is WARNING")
	flags.Float64Var(&target, "target-days", 0, "target coverage in days")
	flags.IntVar(&window, "window-days", 0, "demand history window in days")
	flags.IntVar(&horizon, "horizon-days", 0, "days of machine capacity to allocate")
	flags.Float64Var(&batch, "batch-size", 0, "round suggested quantities up to this batch (0 = off)")
	flags.StringVar(&codeMode, "code-mode", "", "product code normalization: exact or numeric")

	flags.StringArrayVar(&overrides, "override", nil, "final quantity for a plan line, CODE:MACHINE=QTY (repeatable)")
	flags.BoolVar(&cfg.Confirm, "confirm", false, "reconcile the plan even without overrides")
	flags.StringVar(&cfg.TemplateFile, "template", "", "customer order template to fill with final quantities")
	flags.StringVar(&cfg.TemplateOutput, "template-out", "", "filled template path (default <output>/filled_template.xlsx)")

	flags.StringVar(&cfg.OutputDir, "output", "", "output directory")
	flags.StringVar(&cfg.Format, "format", output.FormatText, "output format: "+strings.Join(output.Formats, ", "))
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "print progress")

	return cmd
}
