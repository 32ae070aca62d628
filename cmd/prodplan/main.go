package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vsinha/prodplan/pkg/infrastructure/config"
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
	"github.com/vsinha/prodplan/pkg/infrastructure/tracing"
)

// app carries the process-wide setup shared by every subcommand
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	shutdown tracing.Shutdown
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "prodplan",
		Short:         "Production planning: stock coverage, risk flags and machine allocation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.teardown(cmd.Context())
		},
	}
	root.AddCommand(newPlanCommand(a), newServeCommand(a))

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(ctx context.Context) error {
	a.cfg = config.Load()

	log, err := logger.New(logger.Options{
		Env:      a.cfg.Server.AppEnv,
		Level:    a.cfg.Logger.Level,
		Encoding: a.cfg.Logger.Encoding,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.log = log

	shutdown, err := tracing.Init(ctx, a.cfg.Tracing, a.cfg.Server.AppEnv, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.shutdown = shutdown
	return nil
}

func (a *app) teardown(ctx context.Context) {
	if a.shutdown != nil {
		if err := a.shutdown(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn("tracer shutdown failed", "error", err)
		}
	}
	if a.log != nil {
		a.log.Sync()
	}
}
