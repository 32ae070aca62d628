package repositories

import "github.com/vsinha/prodplan/pkg/domain/entities"

// MachineRepository provides access to machine reference data
type MachineRepository interface {
	GetMachine(id entities.MachineID) (*entities.Machine, error)
	// GetAllMachines returns machines ordered by id
	GetAllMachines() ([]entities.Machine, error)
	LoadMachines(machines []entities.Machine) error
}
