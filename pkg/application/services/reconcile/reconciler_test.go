package reconcile

import (
	"errors"
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

func suggestedLines() []entities.ProductionPlanLine {
	return []entities.ProductionPlanLine{
		{ProductCode: "X", MachineID: "M1", SuggestedQty: dec(15), RequestedQty: dec(15), Rank: 1},
		{ProductCode: "Y", MachineID: "M1", SuggestedQty: dec(5), RequestedQty: dec(15), Rank: 2},
		{ProductCode: "Z", MachineID: "M2", SuggestedQty: dec(40), RequestedQty: dec(40), Rank: 1},
	}
}

func TestReconciler_DefaultsToSuggested(t *testing.T) {
	final, err := NewReconciler().Reconcile(suggestedLines(), nil)
	require.NoError(t, err)
	require.Len(t, final, 3)

	for i, line := range final {
		assert.Equal(t, suggestedLines()[i].Key(), line.Key())
		assert.True(t, line.FinalQty.Equal(line.SuggestedQty))
		assert.Equal(t, entities.SourceAuto, line.Source)
	}
}

func TestReconciler_AppliesOverrides(t *testing.T) {
	overrides := []entities.Override{
		{ProductCode: "Y", MachineID: "M1", Qty: dec(8)},
		{ProductCode: "Z", MachineID: "M2", Qty: dec(0)},
		{ProductCode: "Y", MachineID: "M1", Qty: dec(12)},
	}

	final, err := NewReconciler().Reconcile(suggestedLines(), overrides)
	require.NoError(t, err)

	assert.Equal(t, entities.SourceAuto, final[0].Source)
	assert.Equal(t, entities.SourcePlannerOverride, final[1].Source)
	assert.True(t, final[1].FinalQty.Equal(dec(12)))
	assert.True(t, final[1].SuggestedQty.Equal(dec(5)))
	assert.Equal(t, entities.SourcePlannerOverride, final[2].Source)
	assert.True(t, final[2].FinalQty.IsZero())
}

func TestReconciler_Idempotent(t *testing.T) {
	overrides := []entities.Override{{ProductCode: "X", MachineID: "M1", Qty: dec(20)}}
	r := NewReconciler()

	once, err := r.Reconcile(suggestedLines(), overrides)
	require.NoError(t, err)
	twice, err := r.Reconcile(entities.PlanLines(once), overrides)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	again, err := r.Reconcile(suggestedLines(), overrides)
	require.NoError(t, err)
	assert.Equal(t, once, again)
}

func TestReconciler_UnknownLine(t *testing.T) {
	overrides := []entities.Override{
		{ProductCode: "X", MachineID: "M1", Qty: dec(1)},
		{ProductCode: "X", MachineID: "M2", Qty: dec(1)},
	}

	final, err := NewReconciler().Reconcile(suggestedLines(), overrides)
	assert.Nil(t, final)
	var unknown *entities.UnknownLineOverrideError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, entities.MachineID("M2"), unknown.MachineID)
}

func TestReconciler_NegativeQuantity(t *testing.T) {
	overrides := []entities.Override{{ProductCode: "X", MachineID: "M1", Qty: dec(-3)}}

	final, err := NewReconciler().Reconcile(suggestedLines(), overrides)
	assert.Nil(t, final)
	assert.True(t, entities.IsInvalidQuantityError(err))
}

func TestReconciler_AddLine(t *testing.T) {
	r := NewReconciler()
	products := []entities.Product{
		plantest.MustProduct("V", 0, 0, ""),
		plantest.MustProduct("W", 0, 0, ""),
		plantest.MustProduct("X", 0, 0, ""),
		plantest.MustProduct("U", 0, 0, "M2"),
	}
	machines := []entities.Machine{plantest.MustMachine("M1", 20, "V", "X"), plantest.MustMachine("M2", 50, "W")}
	final, err := r.Reconcile(suggestedLines(), nil)
	require.NoError(t, err)

	added, err := r.AddLine(final, "W", "M2", dec(7), products, machines)
	require.NoError(t, err)
	require.Len(t, added, 4)
	assert.Len(t, final, 3)
	assert.Equal(t, entities.SourcePlannerAdded, added[3].Source)
	assert.True(t, added[3].FinalQty.Equal(dec(7)))
	assert.True(t, added[3].SuggestedQty.IsZero())

	// the assigned machine is allowed even when it does not list the product
	added, err = r.AddLine(added, "U", "M2", dec(3), products, machines)
	require.NoError(t, err)
	require.Len(t, added, 5)

	testCases := []struct {
		name    string
		code    entities.ProductCode
		machine entities.MachineID
		qty     decimal.Decimal
		check   func(error) bool
	}{
		{"duplicate line", "X", "M1", dec(1), entities.IsDuplicateLineError},
		{"unknown machine", "V", "M9", dec(1), entities.IsUnassignableProductError},
		{"negative quantity", "V", "M1", dec(-1), entities.IsInvalidQuantityError},
		{"product outside the catalog", "GHOST", "M1", dec(500), entities.IsUnknownProductError},
		{"machine not eligible", "V", "M2", dec(1), entities.IsIneligibleMachineError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := r.AddLine(added, tc.code, tc.machine, tc.qty, products, machines)
			require.Error(t, err)
			assert.True(t, tc.check(err), "got %v", err)
			assert.Nil(t, out)
		})
	}
}
