package risk

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plantest "github.com/vsinha/prodplan/pkg/application/services/testing"
	"github.com/vsinha/prodplan/pkg/domain/entities"
)

func order(code, customer string, qty int64, due time.Time) entities.CustomerOrder {
	return entities.CustomerOrder{
		ProductCode:  entities.ProductCode(code),
		CustomerID:   customer,
		Qty:          decimal.NewFromInt(qty),
		RequiredDate: due,
	}
}

func thresholds(critical, warning float64) entities.PlanningPolicy {
	policy := plantest.ScenarioPolicy()
	policy.Thresholds.CriticalDays = critical
	policy.Thresholds.WarningDays = warning
	return policy
}

func TestClassifier_CoverageTiers(t *testing.T) {
	products := []entities.Product{
		plantest.MustProduct("A001", 10, 0, ""), // coverage 2
		plantest.MustProduct("B", 50, 0, ""),    // coverage 10
		plantest.MustProduct("C", 300, 0, ""),   // coverage 60
		plantest.MustProduct("D", 0, 0, ""),     // zero demand
		plantest.MustProduct("E", 35, 0, ""),    // coverage 7, on the critical boundary
	}
	profiles := []entities.DemandProfile{
		plantest.MustProfile(products[0], 5, 7),
		plantest.MustProfile(products[1], 5, 30),
		plantest.MustProfile(products[2], 5, 30),
		plantest.MustProfile(products[3], 0, 30),
		plantest.MustProfile(products[4], 5, 30),
	}

	flags, err := NewClassifier(nil).Classify(context.Background(), products, profiles, nil, thresholds(7, 21))
	require.NoError(t, err)
	require.Len(t, flags, 3)

	assert.Equal(t, entities.ProductCode("A001"), flags[0].ProductCode)
	assert.Equal(t, entities.RiskCritical, flags[0].Level)
	assert.Equal(t, entities.ReasonCoverageBelowCritical, flags[0].Reason)
	assert.True(t, flags[0].Shortfall.Equal(decimal.NewFromInt(25)))

	assert.Equal(t, entities.ProductCode("B"), flags[1].ProductCode)
	assert.Equal(t, entities.RiskWarning, flags[1].Level)

	assert.Equal(t, entities.ProductCode("E"), flags[2].ProductCode)
	assert.Equal(t, entities.RiskWarning, flags[2].Level)
}

func TestClassifier_LowCoverageScenarioIsCritical(t *testing.T) {
	product := plantest.MustProduct("A001", 10, 0, "M1")
	profile := plantest.MustProfile(product, 5, 7)

	flags, err := NewClassifier(nil).Classify(context.Background(),
		[]entities.Product{product}, []entities.DemandProfile{profile}, nil, thresholds(3, 5))
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, entities.RiskCritical, flags[0].Level)
}

func TestClassifier_CustomerShortage(t *testing.T) {
	product := plantest.MustProduct("B002", 30, 10, "")
	profile := plantest.MustProfile(product, 1, 7)
	due := plantest.ScenarioDate.AddDate(0, 0, 7)

	flags, err := NewClassifier(nil).Classify(context.Background(),
		[]entities.Product{product},
		[]entities.DemandProfile{profile},
		[]entities.CustomerOrder{order("B002", "C1", 50, due)},
		thresholds(7, 21))
	require.NoError(t, err)
	require.Len(t, flags, 1)

	flag := flags[0]
	assert.Equal(t, entities.RiskCustomerShortage, flag.Level)
	assert.Equal(t, entities.ReasonCustomerOrderShortfall, flag.Reason)
	assert.Equal(t, "C1", flag.CustomerID)
	assert.True(t, flag.Shortfall.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, flag.RequiredDate)
	assert.Equal(t, due, *flag.RequiredDate)
}

func TestClassifier_ReservesInRequiredDateOrder(t *testing.T) {
	// available 40: C2's earlier order takes 30, C1 gets the remaining 10 of 25 and
	// C3 then gets nothing of its 5
	product := plantest.MustProduct("P", 30, 10, "")
	profile := plantest.MustProfile(product, 0, 30)
	day := plantest.ScenarioDate
	orders := []entities.CustomerOrder{
		order("P", "C1", 25, day.AddDate(0, 0, 5)),
		order("P", "C3", 5, day.AddDate(0, 0, 9)),
		order("P", "C2", 30, day.AddDate(0, 0, 1)),
		order("P", "C1", 4, day.AddDate(0, 0, 12)),
	}

	flags, err := NewClassifier(nil).Classify(context.Background(),
		[]entities.Product{product}, []entities.DemandProfile{profile}, orders, thresholds(7, 21))
	require.NoError(t, err)
	require.Len(t, flags, 2)

	assert.Equal(t, "C1", flags[0].CustomerID)
	assert.True(t, flags[0].Shortfall.Equal(decimal.NewFromInt(19)), "got %s", flags[0].Shortfall)
	assert.Equal(t, day.AddDate(0, 0, 5), *flags[0].RequiredDate)

	assert.Equal(t, "C3", flags[1].CustomerID)
	assert.True(t, flags[1].Shortfall.Equal(decimal.NewFromInt(5)))
}

func TestClassifier_CoverageAndCustomerFlagsCoexist(t *testing.T) {
	product := plantest.MustProduct("A", 10, 0, "")
	profile := plantest.MustProfile(product, 5, 7)
	orders := []entities.CustomerOrder{
		order("A", "C9", 12, plantest.ScenarioDate),
		order("A", "C1", 3, plantest.ScenarioDate),
	}

	flags, err := NewClassifier(nil).Classify(context.Background(),
		[]entities.Product{product}, []entities.DemandProfile{profile}, orders, thresholds(7, 21))
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, entities.RiskCritical, flags[0].Level)
	assert.Equal(t, entities.RiskCustomerShortage, flags[1].Level)
	assert.Equal(t, "C9", flags[1].CustomerID)
	assert.True(t, flags[1].Shortfall.Equal(decimal.NewFromInt(5)))
}

func TestClassifier_SkipsUnknownAndExcluded(t *testing.T) {
	product := plantest.MustProduct("B002", 0, 0, "")
	profile := plantest.MustProfile(product, 0, 30)
	orders := []entities.CustomerOrder{
		order("B002", "C1", 5, plantest.ScenarioDate),
		order("GHOST", "C1", 5, plantest.ScenarioDate),
	}

	policy := thresholds(7, 21)
	flags, err := NewClassifier(nil).Classify(context.Background(),
		[]entities.Product{product}, []entities.DemandProfile{profile}, orders, policy)
	require.NoError(t, err)
	require.Len(t, flags, 1)

	policy.CustomerAlertExclusions = []entities.ProductCode{"B002"}
	flags, err = NewClassifier(nil).Classify(context.Background(),
		[]entities.Product{product}, []entities.DemandProfile{profile}, orders, policy)
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestClassifier_Errors(t *testing.T) {
	product := plantest.MustProduct("A", 0, 0, "")
	profile := plantest.MustProfile(product, 0, 30)

	_, err := NewClassifier(nil).Classify(context.Background(),
		[]entities.Product{product}, nil, nil, thresholds(7, 21))
	assert.EqualError(t, err, "no demand profile for product A")

	_, err = NewClassifier(nil).Classify(context.Background(),
		[]entities.Product{product}, []entities.DemandProfile{profile},
		[]entities.CustomerOrder{order("A", "C1", -1, plantest.ScenarioDate)}, thresholds(7, 21))
	assert.True(t, entities.IsInvalidQuantityError(err))
}
