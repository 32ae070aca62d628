package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vsinha/prodplan/pkg/application/services/orchestration"
	"github.com/vsinha/prodplan/pkg/infrastructure/config"
	"github.com/vsinha/prodplan/pkg/infrastructure/events"
	"github.com/vsinha/prodplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/prodplan/pkg/interfaces/httpapi"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		addr       string
		policyFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve planning runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.HTTPAddr
			}
			if policyFile == "" {
				policyFile = a.cfg.Planning.PolicyFile
			}

			file, err := config.LoadPolicy(policyFile)
			if err != nil {
				return err
			}
			policy := file.Policy
			if a.cfg.Planning.Workers > 0 {
				policy.Workers = a.cfg.Planning.Workers
			}

			machines, err := file.MachineTable()
			if err != nil {
				return fmt.Errorf("failed to read machine table: %w", err)
			}
			machineRepo := memory.NewMachineRepository(len(machines))
			if err := machineRepo.LoadMachines(machines); err != nil {
				return fmt.Errorf("failed to load machines into repository: %w", err)
			}

			store := events.NewInMemoryStore(a.log)
			events.SubscribeAuditLog(store, a.log)
			planner := orchestration.NewPlanner(
				orchestration.WithLogger(a.log),
				orchestration.WithMachineRepository(machineRepo),
				orchestration.WithRunStore(memory.NewRunRepository(a.cfg.Server.RunCacheSize)),
				orchestration.WithEventStore(store),
			)
			server := httpapi.NewServer(planner, httpapi.Options{
				ServiceName: a.cfg.Tracing.ServiceName,
				Policy:      policy,
				Logger:      a.log,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.log.Info("starting planning service",
				"addr", addr, "machines", len(machines), "policy_file", policyFile)
			return server.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $HTTP_ADDR)")
	cmd.Flags().StringVar(&policyFile, "policy", "", "planning policy YAML with the machine table (default $PLANNING_POLICY_FILE)")
	return cmd
}
