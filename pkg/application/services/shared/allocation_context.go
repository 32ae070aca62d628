package shared

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

// AllocationContext holds allocation information for a product on a machine
type AllocationContext struct {
	RequestedQty decimal.Decimal
	AllocatedQty decimal.Decimal
	UnmetQty     decimal.Decimal
	Rank         int
}

// AllocationMap manages allocation context by product code and machine
type AllocationMap map[string]*AllocationContext

// NewAllocationMap creates a new empty allocation map
func NewAllocationMap() AllocationMap {
	return make(AllocationMap)
}

// NewAllocationMapFromLines indexes allocator output
func NewAllocationMapFromLines(lines []entities.ProductionPlanLine) AllocationMap {
	allocMap := make(AllocationMap, len(lines))
	for _, line := range lines {
		allocMap.Set(line.ProductCode, line.MachineID, &AllocationContext{
			RequestedQty: line.RequestedQty,
			AllocatedQty: line.SuggestedQty,
			UnmetQty:     line.UnmetQty(),
			Rank:         line.Rank,
		})
	}
	return allocMap
}

// Get retrieves allocation context for a product and machine
func (am AllocationMap) Get(code entities.ProductCode, machineID entities.MachineID) *AllocationContext {
	return am[am.makeKey(code, machineID)]
}

// Set stores allocation context for a product and machine
func (am AllocationMap) Set(code entities.ProductCode, machineID entities.MachineID, context *AllocationContext) {
	am[am.makeKey(code, machineID)] = context
}

// Has checks if allocation context exists for a product and machine
func (am AllocationMap) Has(code entities.ProductCode, machineID entities.MachineID) bool {
	_, exists := am[am.makeKey(code, machineID)]
	return exists
}

// Size returns the number of allocation contexts stored
func (am AllocationMap) Size() int {
	return len(am)
}

// MachineLoad returns the allocated quantity on a machine
func (am AllocationMap) MachineLoad(machineID entities.MachineID) decimal.Decimal {
	total := decimal.Zero
	for key, context := range am {
		if _, machine, found := am.parseKey(key); found && machine == machineID {
			total = total.Add(context.AllocatedQty)
		}
	}
	return total
}

// Machines returns the machines that carry at least one line, sorted
func (am AllocationMap) Machines() []entities.MachineID {
	seen := make(map[entities.MachineID]bool)
	for key := range am {
		if _, machine, found := am.parseKey(key); found {
			seen[machine] = true
		}
	}

	machines := make([]entities.MachineID, 0, len(seen))
	for machine := range seen {
		machines = append(machines, machine)
	}
	sort.Slice(machines, func(i, j int) bool { return machines[i] < machines[j] })
	return machines
}

// GetTotalAllocated returns the allocated quantity across all lines
func (am AllocationMap) GetTotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, context := range am {
		total = total.Add(context.AllocatedQty)
	}
	return total
}

// GetTotalUnmet returns the unmet quantity across all lines
func (am AllocationMap) GetTotalUnmet() decimal.Decimal {
	total := decimal.Zero
	for _, context := range am {
		total = total.Add(context.UnmetQty)
	}
	return total
}

// GetCoverageRatio returns the overall share of requested quantity that was allocated
func (am AllocationMap) GetCoverageRatio() decimal.Decimal {
	requested := decimal.Zero
	for _, context := range am {
		requested = requested.Add(context.RequestedQty)
	}
	if requested.IsZero() {
		return decimal.Zero
	}
	return am.GetTotalAllocated().Div(requested)
}

// makeKey creates a consistent key for product code and machine
func (am AllocationMap) makeKey(code entities.ProductCode, machineID entities.MachineID) string {
	return entities.LineKey{ProductCode: code, MachineID: machineID}.String()
}

// parseKey extracts product code and machine from a key
func (am AllocationMap) parseKey(key string) (entities.ProductCode, entities.MachineID, bool) {
	i := strings.LastIndexByte(key, '|')
	if i < 0 {
		return "", "", false
	}
	return entities.ProductCode(key[:i]), entities.MachineID(key[i+1:]), true
}

// String returns a string representation of the allocation map for debugging
func (am AllocationMap) String() string {
	if len(am) == 0 {
		return "AllocationMap{empty}"
	}

	keys := make([]string, 0, len(am))
	for key := range am {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "AllocationMap{%d entries:\n", len(am))
	for _, key := range keys {
		context := am[key]
		code, machine, _ := am.parseKey(key)
		fmt.Fprintf(&b, "  %s@%s: requested=%s, allocated=%s, unmet=%s, rank=%d\n",
			code, machine, context.RequestedQty, context.AllocatedQty, context.UnmetQty, context.Rank)
	}
	b.WriteString("}")
	return b.String()
}
