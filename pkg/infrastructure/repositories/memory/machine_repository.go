package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/domain/repositories"
)

// MachineRepository provides in-memory machine storage
type MachineRepository struct {
	machines    []entities.Machine
	machinesMap map[entities.MachineID]int
	mutex       sync.RWMutex
}

// NewMachineRepository creates a new in-memory machine repository
func NewMachineRepository(expectedMachines int) *MachineRepository {
	return &MachineRepository{
		machines:    make([]entities.Machine, 0, expectedMachines),
		machinesMap: make(map[entities.MachineID]int, expectedMachines),
	}
}

// Verify interface compliance
var _ repositories.MachineRepository = (*MachineRepository)(nil)

// LoadMachines replaces the stored machines. Duplicate ids are rejected and
// nothing is stored in that case.
func (r *MachineRepository) LoadMachines(machines []entities.Machine) error {
	index := make(map[entities.MachineID]int, len(machines))
	for i, m := range machines {
		if _, exists := index[m.ID]; exists {
			return fmt.Errorf("duplicate machine id: %s", m.ID)
		}
		index[m.ID] = i
	}

	sorted := make([]entities.Machine, len(machines))
	copy(sorted, machines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i, m := range sorted {
		index[m.ID] = i
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.machines = sorted
	r.machinesMap = index
	return nil
}

// GetMachine returns a machine by id
func (r *MachineRepository) GetMachine(id entities.MachineID) (*entities.Machine, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	i, exists := r.machinesMap[id]
	if !exists {
		return nil, fmt.Errorf("machine not found: %s", id)
	}
	m := r.machines[i]
	return &m, nil
}

// GetAllMachines returns all machines ordered by id
func (r *MachineRepository) GetAllMachines() ([]entities.Machine, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]entities.Machine, len(r.machines))
	copy(out, r.machines)
	return out, nil
}
