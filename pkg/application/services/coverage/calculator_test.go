package coverage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plantest "github.com/vsinha/prodplan/pkg/application/services/testing"
	"github.com/vsinha/prodplan/pkg/domain/entities"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestCalculator_LowCoverageProduct(t *testing.T) {
	policy := plantest.ScenarioPolicy()
	policy.TargetCoverageDays = 7
	products := []entities.Product{plantest.MustProduct("A001", 10, 0, "M1")}
	history := plantest.DailyHistory("A001", plantest.ScenarioDate, 30, 5)

	profiles, err := NewCalculator(nil).Compute(context.Background(), products, history, nil, policy)
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	p := profiles[0]
	assert.True(t, p.AvgDailyDemand.Equal(dec(5)))
	assert.True(t, p.CoverageDays.Equal(entities.FiniteCoverage(dec(2))))
	assert.True(t, p.RequiredQty.Equal(dec(35)))
	assert.True(t, p.ShortageQty.Equal(dec(25)))
	assert.Equal(t, entities.DemandFromHistory, p.Source)
}

func TestCalculator_Window(t *testing.T) {
	policy := plantest.ScenarioPolicy()
	policy.DemandWindowDays = 30

	// 15 days of 4 inside the window, 10 days of 100 before it
	history := plantest.DailyHistory("A", plantest.ScenarioDate, 15, 4)
	history = append(history, plantest.DailyHistory("A", plantest.ScenarioDate.AddDate(0, 0, -30), 10, 100)...)
	products := []entities.Product{plantest.MustProduct("A", 20, 0, "")}

	profiles, err := NewCalculator(nil).Compute(context.Background(), products, history, nil, policy)
	require.NoError(t, err)
	assert.True(t, profiles[0].AvgDailyDemand.Equal(dec(2)), "avg %s", profiles[0].AvgDailyDemand)
	assert.True(t, profiles[0].CoverageDays.Equal(entities.FiniteCoverage(dec(10))))
}

func TestCalculator_AsOfDefaultsToLatestHistoryDate(t *testing.T) {
	policy := entities.DefaultPolicy()
	policy.DemandWindowDays = 10
	latest := plantest.ScenarioDate.AddDate(0, 0, -100)

	history := plantest.DailyHistory("A", latest, 10, 3)
	products := []entities.Product{plantest.MustProduct("A", 30, 0, "")}

	profiles, err := NewCalculator(nil).Compute(context.Background(), products, history, nil, policy)
	require.NoError(t, err)
	assert.True(t, profiles[0].AvgDailyDemand.Equal(dec(3)))
	assert.Equal(t, latest, LatestDate(history))
}

func TestCalculator_PeriodDemandFallback(t *testing.T) {
	policy := plantest.ScenarioPolicy()
	products := []entities.Product{
		plantest.MustProduct("A", 10, 0, ""),
		plantest.MustProduct("B", 10, 0, ""),
		plantest.MustProduct("C", 10, 0, ""),
	}
	history := plantest.DailyHistory("A", plantest.ScenarioDate, 30, 1)
	period := map[entities.ProductCode]decimal.Decimal{
		"A": dec(999),
		"B": dec(52),
	}

	profiles, err := NewCalculator(nil).Compute(context.Background(), products, history, period, policy)
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	assert.Equal(t, entities.DemandFromHistory, profiles[0].Source)
	assert.True(t, profiles[0].AvgDailyDemand.Equal(dec(1)))

	assert.Equal(t, entities.DemandFromPeriod, profiles[1].Source)
	assert.True(t, profiles[1].AvgDailyDemand.Equal(dec(2)))

	assert.Equal(t, entities.DemandFromNone, profiles[2].Source)
	assert.True(t, profiles[2].CoverageDays.IsInfinite())
	assert.True(t, profiles[2].ShortageQty.IsZero())
}

func TestCalculator_TargetDaysByClass(t *testing.T) {
	policy := plantest.ScenarioPolicy()
	policy.TargetCoverageDays = 10
	policy.TargetDaysByClass = map[string]float64{"VERY_HIGH": 20}

	products := []entities.Product{
		plantest.MustProduct("FAST", 0, 0, ""),
		plantest.MustProduct("SLOW", 0, 0, ""),
	}
	history := plantest.DailyHistory("FAST", plantest.ScenarioDate, 30, 10)
	history = append(history, plantest.DailyHistory("SLOW", plantest.ScenarioDate, 30, 1)...)

	profiles, err := NewCalculator(nil).Compute(context.Background(), products, history, nil, policy)
	require.NoError(t, err)

	assert.Equal(t, entities.DemandVeryHigh, profiles[0].DemandClass)
	assert.True(t, profiles[0].TargetDays.Equal(dec(20)))
	assert.True(t, profiles[0].RequiredQty.Equal(dec(200)))

	assert.Equal(t, entities.DemandVeryLow, profiles[1].DemandClass)
	assert.True(t, profiles[1].RequiredQty.Equal(dec(10)))
}

func TestCalculator_SafetyAndMinBatchDays(t *testing.T) {
	policy := plantest.ScenarioPolicy()
	policy.TargetCoverageDays = 10
	policy.SafetyDaysByClass = map[string]float64{"VERY_HIGH": 4}
	policy.MinBatchDaysByClass = map[string]float64{"VERY_LOW": 60}

	products := []entities.Product{
		plantest.MustProduct("FAST", 0, 0, ""),
		plantest.MustProduct("SLOW", 0, 0, ""),
	}
	history := plantest.DailyHistory("FAST", plantest.ScenarioDate, 30, 10)
	history = append(history, plantest.DailyHistory("SLOW", plantest.ScenarioDate, 30, 1)...)

	profiles, err := NewCalculator(nil).Compute(context.Background(), products, history, nil, policy)
	require.NoError(t, err)

	assert.True(t, profiles[0].TargetDays.Equal(dec(14)))
	assert.True(t, profiles[0].RequiredQty.Equal(dec(140)))

	// the slow mover is planned for its minimum batch cover
	assert.True(t, profiles[1].TargetDays.Equal(dec(60)))
	assert.True(t, profiles[1].ShortageQty.Equal(dec(60)))
}

func TestCalculator_CoverageIsExactRatio(t *testing.T) {
	policy := plantest.ScenarioPolicy()
	policy.Workers = 3

	var products []entities.Product
	var history []entities.DemandRecord
	for i := int64(1); i <= 20; i++ {
		code := string(rune('A'+i-1)) + "X"
		products = append(products, plantest.MustProduct(code, i*7, 0, ""))
		if i%4 != 0 {
			history = append(history, plantest.DailyHistory(code, plantest.ScenarioDate, 30, i)...)
		}
	}

	profiles, err := NewCalculator(nil).Compute(context.Background(), products, history, nil, policy)
	require.NoError(t, err)
	require.Len(t, profiles, len(products))

	for i, p := range profiles {
		assert.Equal(t, products[i].Code, p.ProductCode)
		if p.AvgDailyDemand.IsZero() {
			assert.True(t, p.CoverageDays.IsInfinite())
			continue
		}
		days, ok := p.CoverageDays.Days()
		require.True(t, ok)
		assert.True(t, days.Equal(products[i].OnHandQty.Div(p.AvgDailyDemand)))
	}
}

func TestCalculator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	products := []entities.Product{plantest.MustProduct("A", 1, 0, "")}
	_, err := NewCalculator(nil).Compute(ctx, products, nil, nil, plantest.ScenarioPolicy())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyDemand(t *testing.T) {
	avgs := make([]decimal.Decimal, 0, 11)
	for i := int64(1); i <= 10; i++ {
		avgs = append(avgs, dec(i))
	}
	avgs = append(avgs, decimal.Zero)

	classes := ClassifyDemand(avgs)

	expected := []entities.DemandClass{
		entities.DemandVeryLow, entities.DemandVeryLow,
		entities.DemandLow, entities.DemandLow,
		entities.DemandMedium, entities.DemandMedium, entities.DemandMedium,
		entities.DemandHigh, entities.DemandHigh,
		entities.DemandVeryHigh,
		entities.DemandVeryLow,
	}
	assert.Equal(t, expected, classes)
	assert.Equal(t, []entities.DemandClass{entities.DemandVeryLow}, ClassifyDemand([]decimal.Decimal{decimal.Zero}))
}
