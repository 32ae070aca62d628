package shared

import (
	"sort"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

// MachineSelector binds products to exactly one machine
type MachineSelector struct {
	byID    map[entities.MachineID]entities.Machine
	ordered []entities.Machine
}

// NewMachineSelector indexes machines by id. With duplicate ids the first one wins.
func NewMachineSelector(machines []entities.Machine) *MachineSelector {
	s := &MachineSelector{
		byID:    make(map[entities.MachineID]entities.Machine, len(machines)),
		ordered: make([]entities.Machine, 0, len(machines)),
	}
	for _, m := range machines {
		if _, exists := s.byID[m.ID]; exists {
			continue
		}
		s.byID[m.ID] = m
		s.ordered = append(s.ordered, m)
	}
	sort.Slice(s.ordered, func(i, j int) bool { return s.ordered[i].ID < s.ordered[j].ID })
	return s
}

// Machine looks a machine up by id
func (s *MachineSelector) Machine(id entities.MachineID) (entities.Machine, bool) {
	m, ok := s.byID[id]
	return m, ok
}

// Machines returns every machine ordered by id
func (s *MachineSelector) Machines() []entities.Machine {
	return s.ordered
}

// Select returns the machine a product is produced on: its assigned machine when that
// machine exists, otherwise the lowest machine id listing the product as eligible.
func (s *MachineSelector) Select(product entities.Product) (entities.Machine, error) {
	if product.AssignedMachine != "" {
		if m, ok := s.byID[product.AssignedMachine]; ok {
			return m, nil
		}
	}

	for _, m := range s.ordered {
		if m.CanProduce(product.Code) {
			return m, nil
		}
	}

	return entities.Machine{}, &entities.UnassignableProductError{
		Code:      product.Code,
		MachineID: product.AssignedMachine,
	}
}
