package coverage

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/prodplan/pkg/application/services/shared"
	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
)

// Calculator derives demand profiles from the catalog and demand history
type Calculator struct {
	log *logger.Logger
}

// NewCalculator creates a new coverage calculator
func NewCalculator(log *logger.Logger) *Calculator {
	return &Calculator{log: logger.OrNop(log)}
}

// Compute returns one profile per product, in product order. periodDemand holds monthly
// demand used for products without history in the window; it may be nil.
func (c *Calculator) Compute(
	ctx context.Context,
	products []entities.Product,
	history []entities.DemandRecord,
	periodDemand map[entities.ProductCode]decimal.Decimal,
	policy entities.PlanningPolicy,
) ([]entities.DemandProfile, error) {
	window := policy.DemandWindowDays
	if window < 1 {
		window = 1
	}
	asOf := policy.AsOf
	if asOf.IsZero() {
		asOf = LatestDate(history)
	}
	totals := windowTotals(history, asOf, window)

	avgs := make([]decimal.Decimal, len(products))
	sources := make([]entities.DemandSource, len(products))
	err := shared.ForEach(ctx, len(products), policy.Workers, func(_ context.Context, i int) error {
		avgs[i], sources[i] = averageDailyDemand(products[i].Code, totals, periodDemand, window, policy.WorkingDaysPerMonth)
		return nil
	})
	if err != nil {
		return nil, err
	}

	classes := ClassifyDemand(avgs)

	profiles := make([]entities.DemandProfile, len(products))
	err = shared.ForEach(ctx, len(products), policy.Workers, func(_ context.Context, i int) error {
		profile, err := entities.NewDemandProfile(
			products[i],
			avgs[i],
			policy.TargetDaysFor(classes[i]),
			classes[i],
			sources[i],
		)
		if err != nil {
			return err
		}
		profiles[i] = *profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Debug("demand profiles computed",
		"products", len(products), "history_records", len(history),
		"window_days", window, "as_of", asOf.Format("2006-01-02"))
	return profiles, nil
}

// LatestDate returns the most recent record date, or the zero time for empty history
func LatestDate(history []entities.DemandRecord) time.Time {
	var latest time.Time
	for _, record := range history {
		if record.Date.After(latest) {
			latest = record.Date
		}
	}
	return latest
}

// windowTotals sums history per product over the window days ending at asOf inclusive
func windowTotals(history []entities.DemandRecord, asOf time.Time, window int) map[entities.ProductCode]decimal.Decimal {
	totals := make(map[entities.ProductCode]decimal.Decimal)
	if asOf.IsZero() {
		return totals
	}

	end := day(asOf)
	start := end.AddDate(0, 0, -(window - 1))
	for _, record := range history {
		d := day(record.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		totals[record.ProductCode] = totals[record.ProductCode].Add(record.Qty)
	}
	return totals
}

func averageDailyDemand(
	code entities.ProductCode,
	totals map[entities.ProductCode]decimal.Decimal,
	periodDemand map[entities.ProductCode]decimal.Decimal,
	window int,
	workingDays int,
) (decimal.Decimal, entities.DemandSource) {
	if total, ok := totals[code]; ok {
		avg := total.Div(decimal.NewFromInt(int64(window)))
		return decimal.Max(decimal.Zero, avg), entities.DemandFromHistory
	}

	if monthly, ok := periodDemand[code]; ok && monthly.IsPositive() {
		if workingDays < 1 {
			workingDays = 1
		}
		return monthly.Div(decimal.NewFromInt(int64(workingDays))), entities.DemandFromPeriod
	}

	return decimal.Zero, entities.DemandFromNone
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ClassifyDemand buckets each average by the p90/p70/p40/p15 percentiles of the
// non-zero averages. Zero demand is always VERY_LOW.
func ClassifyDemand(avgs []decimal.Decimal) []entities.DemandClass {
	classes := make([]entities.DemandClass, len(avgs))

	nonZero := make([]decimal.Decimal, 0, len(avgs))
	for _, avg := range avgs {
		if avg.IsPositive() {
			nonZero = append(nonZero, avg)
		}
	}
	if len(nonZero) == 0 {
		return classes
	}
	sort.Slice(nonZero, func(i, j int) bool { return nonZero[i].LessThan(nonZero[j]) })

	p90 := quantile(nonZero, decimal.RequireFromString("0.90"))
	p70 := quantile(nonZero, decimal.RequireFromString("0.70"))
	p40 := quantile(nonZero, decimal.RequireFromString("0.40"))
	p15 := quantile(nonZero, decimal.RequireFromString("0.15"))

	for i, avg := range avgs {
		switch {
		case !avg.IsPositive():
			classes[i] = entities.DemandVeryLow
		case avg.GreaterThanOrEqual(p90):
			classes[i] = entities.DemandVeryHigh
		case avg.GreaterThanOrEqual(p70):
			classes[i] = entities.DemandHigh
		case avg.GreaterThanOrEqual(p40):
			classes[i] = entities.DemandMedium
		case avg.GreaterThanOrEqual(p15):
			classes[i] = entities.DemandLow
		default:
			classes[i] = entities.DemandVeryLow
		}
	}
	return classes
}

// quantile uses linear interpolation between closest ranks over sorted values
func quantile(sorted []decimal.Decimal, q decimal.Decimal) decimal.Decimal {
	pos := q.Mul(decimal.NewFromInt(int64(len(sorted) - 1)))
	lower := pos.Floor()
	lo := int(lower.IntPart())
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos.Sub(lower)
	return sorted[lo].Add(sorted[lo+1].Sub(sorted[lo]).Mul(frac))
}
