package events

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
}

func TestInMemoryStore_AppendAndRead(t *testing.T) {
	store := NewInMemoryStore(nil).WithClock(fixedClock)

	first, err := store.Append("run-1", RunCompletedEvent, RunCompleted{Products: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, fixedClock(), first.Timestamp)

	_, err = store.Append("run-2", RunCompletedEvent, RunCompleted{Products: 5})
	require.NoError(t, err)
	second, err := store.Append("run-1", PlanConfirmedEvent, PlanConfirmed{})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	records, err := store.Read("run-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, PlanConfirmedEvent, records[1].Type)

	records, err = store.Read("run-1", 2)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = store.Read("missing", 1)
	require.NoError(t, err)
	assert.Empty(t, records)

	all, err := store.ReadAll(1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "run-2", all[0].RunID)

	_, err = store.Append("", RunCompletedEvent, nil)
	assert.Error(t, err)
}

func TestInMemoryStore_Subscribe(t *testing.T) {
	store := NewInMemoryStore(nil)

	var seen []string
	store.Subscribe([]string{PlanConfirmedEvent}, HandlerFunc(func(r Record) error {
		seen = append(seen, r.RunID)
		return errors.New("handler failures are logged, not returned")
	}))

	_, err := store.Append("run-1", RunCompletedEvent, nil)
	require.NoError(t, err)
	_, err = store.Append("run-1", PlanConfirmedEvent, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"run-1"}, seen)
}

func TestRecordRun(t *testing.T) {
	store := NewInMemoryStore(nil)
	flags := []entities.RiskFlag{{Level: entities.RiskCritical, ProductCode: "X"}}
	lines := []entities.ProductionPlanLine{
		{ProductCode: "X", MachineID: "M1", SuggestedQty: decimal.NewFromInt(15), RequestedQty: decimal.NewFromInt(15)},
		{ProductCode: "Y", MachineID: "M1", SuggestedQty: decimal.NewFromInt(5), RequestedQty: decimal.NewFromInt(10)},
	}
	unmet := []entities.UnmetShortage{{ProductCode: "Y", MachineID: "M1", UnmetQty: decimal.NewFromInt(5)}}

	require.NoError(t, RecordRun(store, "run-1", 2, flags, lines, unmet))

	records, err := store.Read("run-1", 1)
	require.NoError(t, err)
	require.Len(t, records, 3)
	summary, ok := records[0].Data.(RunCompleted)
	require.True(t, ok)
	assert.True(t, summary.SuggestedTotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, summary.UnmetTotal.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, RiskFlagRaisedEvent, records[1].Type)
	assert.Equal(t, ShortageUnmetEvent, records[2].Type)
}

func TestRecordConfirmation(t *testing.T) {
	store := NewInMemoryStore(nil)
	final := []entities.FinalPlanLine{
		{ProductCode: "X", MachineID: "M1", FinalQty: decimal.NewFromInt(15), Source: entities.SourceAuto},
		{ProductCode: "Y", MachineID: "M1", FinalQty: decimal.NewFromInt(8), Source: entities.SourcePlannerOverride},
	}

	require.NoError(t, RecordConfirmation(store, "run-1", nil, final))

	records, err := store.Read("run-1", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	confirmed := records[0].Data.(PlanConfirmed)
	assert.Equal(t, 1, confirmed.Overridden)
	assert.True(t, confirmed.FinalTotal.Equal(decimal.NewFromInt(23)))
}
