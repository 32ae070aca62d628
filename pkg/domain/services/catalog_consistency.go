package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

// ConsistencyResult contains the results of a machine/catalog cross-check
type ConsistencyResult struct {
	OrphanEligibleCodes     map[entities.MachineID][]entities.ProductCode
	UnknownAssignedMachines map[entities.ProductCode]entities.MachineID
	UnproducibleProducts    []entities.ProductCode
	DuplicateMachines       []entities.MachineID
	Warnings                []string
}

// HasIssues reports whether any inconsistency was found
func (r *ConsistencyResult) HasIssues() bool {
	return len(r.Warnings) > 0
}

// ValidateMachineCatalogConsistency cross-checks machine reference data against the
// merged catalog. None of the findings are fatal: the allocator only fails for products
// that actually need production and cannot be placed.
func ValidateMachineCatalogConsistency(machines []entities.Machine, products []entities.Product) *ConsistencyResult {
	result := &ConsistencyResult{
		OrphanEligibleCodes:     make(map[entities.MachineID][]entities.ProductCode),
		UnknownAssignedMachines: make(map[entities.ProductCode]entities.MachineID),
		UnproducibleProducts:    make([]entities.ProductCode, 0),
		DuplicateMachines:       make([]entities.MachineID, 0),
		Warnings:                make([]string, 0),
	}

	catalog := make(map[entities.ProductCode]struct{}, len(products))
	for _, p := range products {
		catalog[p.Code] = struct{}{}
	}

	machineIDs := make(map[entities.MachineID]struct{}, len(machines))
	sorted := make([]entities.Machine, len(machines))
	copy(sorted, machines)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, m := range sorted {
		if _, seen := machineIDs[m.ID]; seen {
			result.DuplicateMachines = append(result.DuplicateMachines, m.ID)
			result.Warnings = append(result.Warnings, fmt.Sprintf("machine %s is defined more than once", m.ID))
			continue
		}
		machineIDs[m.ID] = struct{}{}

		for _, code := range m.EligibleList() {
			if _, ok := catalog[code]; !ok {
				result.OrphanEligibleCodes[m.ID] = append(result.OrphanEligibleCodes[m.ID], code)
			}
		}
		if orphans := result.OrphanEligibleCodes[m.ID]; len(orphans) > 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("machine %s lists %d eligible codes missing from the catalog", m.ID, len(orphans)))
		}
	}

	for _, p := range products {
		if p.AssignedMachine != "" {
			if _, ok := machineIDs[p.AssignedMachine]; !ok {
				result.UnknownAssignedMachines[p.Code] = p.AssignedMachine
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("product %s is assigned to unknown machine %s", p.Code, p.AssignedMachine))
			} else {
				continue
			}
		}

		if !anyMachineProduces(sorted, p.Code) {
			result.UnproducibleProducts = append(result.UnproducibleProducts, p.Code)
			result.Warnings = append(result.Warnings, fmt.Sprintf("product %s has no eligible machine", p.Code))
		}
	}

	return result
}

func anyMachineProduces(machines []entities.Machine, code entities.ProductCode) bool {
	for _, m := range machines {
		if m.CanProduce(code) {
			return true
		}
	}
	return false
}
