package testing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/domain/entities"
)

// ScenarioDate is the as-of date every scenario builder plans against
var ScenarioDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// MustProduct is a helper for tests - panics on validation error
func MustProduct(code string, onHand, openOrders int64, assigned string) entities.Product {
	p, err := entities.NewProduct(
		entities.ProductCode(code),
		"",
		"",
		decimal.NewFromInt(onHand),
		decimal.NewFromInt(openOrders),
		"PCS",
		entities.MachineID(assigned),
	)
	if err != nil {
		panic(err)
	}
	return *p
}

// MustMachine is a helper for tests - panics on validation error
func MustMachine(id string, dailyCapacity int64, eligible ...string) entities.Machine {
	codes := make([]entities.ProductCode, len(eligible))
	for i, code := range eligible {
		codes[i] = entities.ProductCode(code)
	}
	m, err := entities.NewMachine(entities.MachineID(id), decimal.NewFromInt(dailyCapacity), codes)
	if err != nil {
		panic(err)
	}
	return *m
}

// MustProfile is a helper for tests - panics on validation error
func MustProfile(product entities.Product, avgDaily, targetDays int64) entities.DemandProfile {
	profile, err := entities.NewDemandProfile(
		product,
		decimal.NewFromInt(avgDaily),
		decimal.NewFromInt(targetDays),
		entities.DemandMedium,
		entities.DemandFromHistory,
	)
	if err != nil {
		panic(err)
	}
	return *profile
}

// DailyHistory returns one record per day for the days ending at asOf
func DailyHistory(code string, asOf time.Time, days int, qtyPerDay int64) []entities.DemandRecord {
	records := make([]entities.DemandRecord, 0, days)
	for i := days - 1; i >= 0; i-- {
		records = append(records, entities.DemandRecord{
			ProductCode: entities.ProductCode(code),
			Date:        asOf.AddDate(0, 0, -i),
			Qty:         decimal.NewFromInt(qtyPerDay),
		})
	}
	return records
}

// StockRow builds a fully populated stock row
func StockRow(row int, code, onHand, openOrders, machine string) dto.StockRow {
	return dto.StockRow{
		Row:             row,
		Code:            dto.Text(code),
		OnHandQty:       dto.Text(onHand),
		OpenOrdersQty:   dto.Text(openOrders),
		AssignedMachine: dto.Text(machine),
	}
}

// ScenarioPolicy returns the default policy pinned to ScenarioDate
func ScenarioPolicy() entities.PlanningPolicy {
	policy := entities.DefaultPolicy()
	policy.AsOf = ScenarioDate
	return policy
}

// BuildLowCoverageScenario is the A001/B002 dataset: A001 covers 2 days against a 7 day
// target with a 3 day critical threshold, B002 is well stocked but has a customer order
// of 50 against 40 available.
func BuildLowCoverageScenario() dto.PlanningInput {
	policy := ScenarioPolicy()
	policy.Thresholds.CriticalDays = 3
	policy.Thresholds.WarningDays = 5
	policy.TargetCoverageDays = 7
	policy.DemandWindowDays = 30

	history := DailyHistory("A001", ScenarioDate, 30, 5)
	history = append(history, DailyHistory("B002", ScenarioDate, 30, 1)...)

	return dto.PlanningInput{
		Stock: []dto.StockRow{
			StockRow(2, "A001", "10", "0", "M1"),
			StockRow(3, "B002", "30", "10", ""),
		},
		Items: []dto.ItemRow{
			{Row: 2, Code: dto.Text("A001"), Description: dto.Text("Bottle 1L"), Category: dto.Text("PET")},
		},
		History: history,
		Orders: []entities.CustomerOrder{
			{
				ProductCode:  "B002",
				CustomerID:   "C1",
				Qty:          decimal.NewFromInt(50),
				RequiredDate: ScenarioDate.AddDate(0, 0, 7),
			},
		},
		Machines: []entities.Machine{MustMachine("M1", 100, "A001", "B002")},
		Policy:   policy,
	}
}

// BuildCapacityScenario is the constrained-machine dataset: M1 makes 20 a day, X is
// CRITICAL and Y is WARNING, both short by 15.
func BuildCapacityScenario() dto.PlanningInput {
	policy := ScenarioPolicy()
	policy.Thresholds.CriticalDays = 7
	policy.Thresholds.WarningDays = 21
	policy.TargetCoverageDays = 30
	policy.DemandWindowDays = 10

	// X: 1/day, on hand 5 -> coverage 5 (CRITICAL), required 30, shortage 15 after 10 open
	// Y: 1/day, on hand 10 -> coverage 10 (WARNING), required 30, shortage 15 after 5 open
	history := DailyHistory("X", ScenarioDate, 10, 1)
	history = append(history, DailyHistory("Y", ScenarioDate, 10, 1)...)

	return dto.PlanningInput{
		Stock: []dto.StockRow{
			StockRow(2, "Y", "10", "5", ""),
			StockRow(3, "X", "5", "10", ""),
		},
		History:  history,
		Machines: []entities.Machine{MustMachine("M1", 20, "X", "Y")},
		Policy:   policy,
	}
}

// BuildLargeScenario spreads products codes evenly over machines, each with 30 days of
// history and a stock level that leaves every third product below its target.
func BuildLargeScenario(products, machines int) dto.PlanningInput {
	policy := ScenarioPolicy()
	policy.DemandWindowDays = 30

	eligible := make([][]string, machines)
	input := dto.PlanningInput{Policy: policy}
	for i := 0; i < products; i++ {
		code := fmt.Sprintf("P%05d", i)
		machine := fmt.Sprintf("M%02d", i%machines)
		eligible[i%machines] = append(eligible[i%machines], code)

		onHand := int64(500)
		if i%3 == 0 {
			onHand = int64(i % 40)
		}
		input.Stock = append(input.Stock, StockRow(i+2, code, fmt.Sprint(onHand), "0", machine))
		input.History = append(input.History, DailyHistory(code, ScenarioDate, 30, int64(1+i%7))...)
	}
	for m := 0; m < machines; m++ {
		input.Machines = append(input.Machines, MustMachine(fmt.Sprintf("M%02d", m), 250, eligible[m]...))
	}
	return input
}
