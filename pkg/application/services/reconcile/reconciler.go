package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

// Reconciler applies planner overrides to suggested plan lines
type Reconciler struct{}

// NewReconciler creates a new reconciler
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Reconcile returns the final plan table. Every override is validated before any
// output is built, so a failing call never yields a partial table. Repeated
// overrides of the same line apply in order and the last one wins.
func (r *Reconciler) Reconcile(lines []entities.ProductionPlanLine, overrides []entities.Override) ([]entities.FinalPlanLine, error) {
	index := make(map[entities.LineKey]int, len(lines))
	for i, line := range lines {
		index[line.Key()] = i
	}

	final := make(map[entities.LineKey]decimal.Decimal, len(overrides))
	for _, o := range overrides {
		if _, ok := index[o.Key()]; !ok {
			return nil, &entities.UnknownLineOverrideError{ProductCode: o.ProductCode, MachineID: o.MachineID}
		}
		if o.Qty.IsNegative() {
			return nil, &entities.InvalidQuantityError{ProductCode: o.ProductCode, MachineID: o.MachineID, Field: "final_qty", Qty: o.Qty}
		}
		final[o.Key()] = o.Qty
	}

	out := make([]entities.FinalPlanLine, len(lines))
	for i, line := range lines {
		out[i] = entities.FinalPlanLine{
			ProductCode:  line.ProductCode,
			MachineID:    line.MachineID,
			SuggestedQty: line.SuggestedQty,
			FinalQty:     line.SuggestedQty,
			Source:       entities.SourceAuto,
		}
		if qty, ok := final[line.Key()]; ok {
			out[i].FinalQty = qty
			out[i].Source = entities.SourcePlannerOverride
		}
	}
	return out, nil
}

// AddLine appends a planner-created line for a pair the allocator did not suggest.
// The product must be in the catalog and the machine must list it as eligible or be
// its assigned machine. The input table is not modified.
func (r *Reconciler) AddLine(
	final []entities.FinalPlanLine,
	code entities.ProductCode,
	machineID entities.MachineID,
	qty decimal.Decimal,
	products []entities.Product,
	machines []entities.Machine,
) ([]entities.FinalPlanLine, error) {
	var product *entities.Product
	for i := range products {
		if products[i].Code == code {
			product = &products[i]
			break
		}
	}
	if product == nil {
		return nil, &entities.UnknownProductError{Code: code}
	}

	var machine *entities.Machine
	for i := range machines {
		if machines[i].ID == machineID {
			machine = &machines[i]
			break
		}
	}
	if machine == nil {
		return nil, &entities.UnassignableProductError{Code: code, MachineID: machineID}
	}
	if !machine.CanProduce(code) && product.AssignedMachine != machineID {
		return nil, &entities.IneligibleMachineError{ProductCode: code, MachineID: machineID}
	}
	if qty.IsNegative() {
		return nil, &entities.InvalidQuantityError{ProductCode: code, MachineID: machineID, Field: "final_qty", Qty: qty}
	}

	key := entities.LineKey{ProductCode: code, MachineID: machineID}
	for _, line := range final {
		if line.Key() == key {
			return nil, &entities.DuplicateLineError{ProductCode: code, MachineID: machineID}
		}
	}

	out := make([]entities.FinalPlanLine, len(final), len(final)+1)
	copy(out, final)
	out = append(out, entities.FinalPlanLine{
		ProductCode:  code,
		MachineID:    machineID,
		SuggestedQty: decimal.Zero,
		FinalQty:     qty,
		Source:       entities.SourcePlannerAdded,
	})
	return out, nil
}
