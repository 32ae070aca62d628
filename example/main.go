package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/orchestration"
	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/interfaces/cli/output"
)

func main() {
	ctx := context.Background()
	asOf := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	policy := entities.DefaultPolicy()
	policy.AsOf = asOf
	policy.TargetCoverageDays = 14

	// Two preform lines share the 28g and 38g molds; the cap press only runs caps
	input := dto.PlanningInput{
		Policy: policy,
		Stock: []dto.StockRow{
			stockRow(2, "PF-28", "Preform 28g", "1200", "0", "INJ-1"),
			stockRow(3, "PF-38", "Preform 38g", "9000", "2000", "INJ-2"),
			stockRow(4, "CAP-28", "Cap 28mm", "300", "0", "PRESS-1"),
		},
		History: append(append(
			dailyDemand("PF-28", asOf, 30, 600),
			dailyDemand("PF-38", asOf, 30, 400)...),
			dailyDemand("CAP-28", asOf, 30, 250)...),
		Orders: []entities.CustomerOrder{
			{ProductCode: "PF-38", CustomerID: "BOTTLER-7", Qty: decimal.NewFromInt(12000), RequiredDate: asOf.AddDate(0, 0, 5)},
		},
		Machines: []entities.Machine{
			machine("INJ-1", 4000, "PF-28", "PF-38"),
			machine("INJ-2", 3000, "PF-28", "PF-38"),
			machine("PRESS-1", 2500, "CAP-28"),
		},
	}

	planner := orchestration.NewPlanner()

	fmt.Println("🏭 Planning production for", asOf.Format("2006-01-02"))
	start := time.Now()
	result, err := planner.Run(ctx, input)
	if err != nil {
		fmt.Printf("❌ Planning failed: %v\n", err)
		os.Exit(1)
	}

	// The planner trims the cap run and adds a small 38g top-up before sign-off
	overrides := []entities.Override{
		{ProductCode: "CAP-28", MachineID: "PRESS-1", Qty: decimal.NewFromInt(2000)},
	}
	if result, err = planner.Confirm(ctx, result, overrides); err != nil {
		fmt.Printf("❌ Confirmation failed: %v\n", err)
		os.Exit(1)
	}
	if result, err = planner.AddLine(ctx, result, "PF-38", "INJ-2", decimal.NewFromInt(500)); err != nil {
		fmt.Printf("❌ Adding line failed: %v\n", err)
		os.Exit(1)
	}

	if err := output.Generate(result, output.Config{
		Format:  output.FormatText,
		RunTime: time.Since(start),
		Stdout:  os.Stdout,
	}); err != nil {
		fmt.Printf("❌ Rendering failed: %v\n", err)
		os.Exit(1)
	}
}

func stockRow(row int, code, description, onHand, openOrders, machine string) dto.StockRow {
	return dto.StockRow{
		Row:             row,
		Code:            dto.Text(code),
		Description:     dto.Text(description),
		OnHandQty:       dto.Text(onHand),
		OpenOrdersQty:   dto.Text(openOrders),
		UnitOfMeasure:   dto.Text("PCS"),
		AssignedMachine: dto.Text(machine),
	}
}

func dailyDemand(code string, asOf time.Time, days int, qty int64) []entities.DemandRecord {
	records := make([]entities.DemandRecord, 0, days)
	for i := days - 1; i >= 0; i-- {
		records = append(records, entities.DemandRecord{
			ProductCode: entities.ProductCode(code),
			Date:        asOf.AddDate(0, 0, -i),
			Qty:         decimal.NewFromInt(qty),
		})
	}
	return records
}

func machine(id string, capacity int64, eligible ...entities.ProductCode) entities.Machine {
	m, err := entities.NewMachine(entities.MachineID(id), decimal.NewFromInt(capacity), eligible)
	if err != nil {
		panic(err)
	}
	return *m
}
