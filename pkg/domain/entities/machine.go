package entities

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Machine is static reference data for a production resource
type Machine struct {
	ID                 MachineID                `json:"id"`
	DailyCapacityUnits decimal.Decimal          `json:"daily_capacity_units"`
	EligibleProducts   map[ProductCode]struct{} `json:"-"`
}

// NewMachine creates a validated Machine
func NewMachine(id MachineID, dailyCapacity decimal.Decimal, eligible []ProductCode) (*Machine, error) {
	if id == "" {
		return nil, fmt.Errorf("machine id cannot be empty")
	}
	if !dailyCapacity.IsPositive() {
		return nil, fmt.Errorf("daily capacity must be positive, got %s", dailyCapacity)
	}

	set := make(map[ProductCode]struct{}, len(eligible))
	for _, code := range eligible {
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}

	return &Machine{
		ID:                 id,
		DailyCapacityUnits: dailyCapacity,
		EligibleProducts:   set,
	}, nil
}

// CanProduce reports whether code is in the machine's eligible set
func (m Machine) CanProduce(code ProductCode) bool {
	_, ok := m.EligibleProducts[code]
	return ok
}

// CapacityFor returns the capacity over a horizon of the given number of days
func (m Machine) CapacityFor(horizonDays int) decimal.Decimal {
	if horizonDays < 1 {
		horizonDays = 1
	}
	return m.DailyCapacityUnits.Mul(decimal.NewFromInt(int64(horizonDays)))
}

// EligibleList returns the eligible codes sorted ascending
func (m Machine) EligibleList() []ProductCode {
	codes := make([]ProductCode, 0, len(m.EligibleProducts))
	for code := range m.EligibleProducts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

type machineJSON struct {
	ID                 MachineID       `json:"id"`
	DailyCapacityUnits decimal.Decimal `json:"daily_capacity_units"`
	EligibleProducts   []ProductCode   `json:"eligible_products"`
}

// MarshalJSON encodes the eligible set as a sorted list
func (m Machine) MarshalJSON() ([]byte, error) {
	return json.Marshal(machineJSON{
		ID:                 m.ID,
		DailyCapacityUnits: m.DailyCapacityUnits,
		EligibleProducts:   m.EligibleList(),
	})
}

// UnmarshalJSON decodes and validates a machine
func (m *Machine) UnmarshalJSON(data []byte) error {
	var raw machineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	machine, err := NewMachine(raw.ID, raw.DailyCapacityUnits, raw.EligibleProducts)
	if err != nil {
		return err
	}
	*m = *machine
	return nil
}
