package memory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

func newMachine(t *testing.T, id entities.MachineID, capacity int64) entities.Machine {
	t.Helper()
	m, err := entities.NewMachine(id, decimal.NewFromInt(capacity), []entities.ProductCode{"X"})
	require.NoError(t, err)
	return *m
}

func TestMachineRepository_LoadAndGet(t *testing.T) {
	repo := NewMachineRepository(2)

	require.NoError(t, repo.LoadMachines([]entities.Machine{newMachine(t, "M2", 50), newMachine(t, "M1", 20)}))

	m, err := repo.GetMachine("M2")
	require.NoError(t, err)
	assert.True(t, m.DailyCapacityUnits.Equal(decimal.NewFromInt(50)))

	all, err := repo.GetAllMachines()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, entities.MachineID("M1"), all[0].ID)

	_, err = repo.GetMachine("M9")
	assert.EqualError(t, err, "machine not found: M9")
}

func TestMachineRepository_RejectsDuplicates(t *testing.T) {
	repo := NewMachineRepository(0)
	require.NoError(t, repo.LoadMachines([]entities.Machine{newMachine(t, "M1", 20)}))

	err := repo.LoadMachines([]entities.Machine{newMachine(t, "M3", 1), newMachine(t, "M3", 2)})
	assert.EqualError(t, err, "duplicate machine id: M3")

	all, err := repo.GetAllMachines()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, entities.MachineID("M1"), all[0].ID)
}
