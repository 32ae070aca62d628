package events

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

const (
	RunCompletedEvent   = "run.completed"
	RiskFlagRaisedEvent = "risk.flag_raised"
	ShortageUnmetEvent  = "shortage.unmet"
	PlanConfirmedEvent  = "plan.confirmed"
	LineAddedEvent      = "plan.line_added"
)

type RunCompleted struct {
	Products       int             `json:"products"`
	Flags          int             `json:"flags"`
	Lines          int             `json:"lines"`
	SuggestedTotal decimal.Decimal `json:"suggested_total"`
	UnmetTotal     decimal.Decimal `json:"unmet_total"`
}

type RiskFlagRaised struct {
	Flag entities.RiskFlag `json:"flag"`
}

type ShortageUnmet struct {
	Shortage entities.UnmetShortage `json:"shortage"`
}

type PlanConfirmed struct {
	Overrides  []entities.Override `json:"overrides"`
	Overridden int                 `json:"overridden"`
	FinalTotal decimal.Decimal     `json:"final_total"`
}

type LineAdded struct {
	Line entities.FinalPlanLine `json:"line"`
}

// RecordRun appends the audit trail for a completed run: one summary record, one per
// raised flag and one per unmet shortage
func RecordRun(
	store Store,
	runID string,
	products int,
	flags []entities.RiskFlag,
	lines []entities.ProductionPlanLine,
	unmet []entities.UnmetShortage,
) error {
	suggested := decimal.Zero
	for _, line := range lines {
		suggested = suggested.Add(line.SuggestedQty)
	}
	unmetTotal := decimal.Zero
	for _, u := range unmet {
		unmetTotal = unmetTotal.Add(u.UnmetQty)
	}

	if _, err := store.Append(runID, RunCompletedEvent, RunCompleted{
		Products:       products,
		Flags:          len(flags),
		Lines:          len(lines),
		SuggestedTotal: suggested,
		UnmetTotal:     unmetTotal,
	}); err != nil {
		return err
	}
	for _, flag := range flags {
		if _, err := store.Append(runID, RiskFlagRaisedEvent, RiskFlagRaised{Flag: flag}); err != nil {
			return err
		}
	}
	for _, u := range unmet {
		if _, err := store.Append(runID, ShortageUnmetEvent, ShortageUnmet{Shortage: u}); err != nil {
			return err
		}
	}
	return nil
}

// RecordConfirmation appends the confirmation record for a reconciled plan
func RecordConfirmation(store Store, runID string, overrides []entities.Override, final []entities.FinalPlanLine) error {
	total := decimal.Zero
	overridden := 0
	for _, line := range final {
		total = total.Add(line.FinalQty)
		if line.Source == entities.SourcePlannerOverride {
			overridden++
		}
	}

	_, err := store.Append(runID, PlanConfirmedEvent, PlanConfirmed{
		Overrides:  overrides,
		Overridden: overridden,
		FinalTotal: total,
	})
	return err
}
