package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/prodplan/pkg/application/dto"
	"github.com/vsinha/prodplan/pkg/application/services/allocation"
	"github.com/vsinha/prodplan/pkg/application/services/catalog"
	"github.com/vsinha/prodplan/pkg/application/services/coverage"
	"github.com/vsinha/prodplan/pkg/application/services/reconcile"
	"github.com/vsinha/prodplan/pkg/application/services/risk"
	"github.com/vsinha/prodplan/pkg/domain/entities"
	"github.com/vsinha/prodplan/pkg/domain/repositories"
	"github.com/vsinha/prodplan/pkg/domain/services"
	"github.com/vsinha/prodplan/pkg/infrastructure/events"
	"github.com/vsinha/prodplan/pkg/infrastructure/logger"
)

const tracerName = "github.com/vsinha/prodplan/orchestration"

// Planner coordinates the planning stages for one run at a time. It holds no per-run
// state, so a single Planner serves concurrent runs with different policies.
type Planner struct {
	calculator *coverage.Calculator
	classifier *risk.Classifier
	allocator  *allocation.Allocator
	reconciler *reconcile.Reconciler

	machines repositories.MachineRepository
	events   events.Store
	runs     RunStore

	log    *logger.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

// Option configures a Planner
type Option func(*Planner)

// WithLogger sets the planner logger
func WithLogger(log *logger.Logger) Option {
	return func(p *Planner) { p.log = logger.OrNop(log) }
}

// WithMachineRepository supplies machine reference data for inputs that carry none
func WithMachineRepository(repo repositories.MachineRepository) Option {
	return func(p *Planner) { p.machines = repo }
}

// WithEventStore enables the audit trail
func WithEventStore(store events.Store) Option {
	return func(p *Planner) { p.events = store }
}

// WithRunStore keeps every run and confirmation in store
func WithRunStore(store RunStore) Option {
	return func(p *Planner) { p.runs = store }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// WithIDGenerator overrides run id generation
func WithIDGenerator(newID func() string) Option {
	return func(p *Planner) { p.newID = newID }
}

// NewPlanner creates a planner; without options it logs nothing and keeps nothing
func NewPlanner(opts ...Option) *Planner {
	p := &Planner{
		log:    logger.NewNop(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.calculator = coverage.NewCalculator(p.log)
	p.classifier = risk.NewClassifier(p.log)
	p.allocator = allocation.NewAllocator(p.log)
	p.reconciler = reconcile.NewReconciler()
	return p
}

// Run merges the catalog, computes coverage, classifies risk and allocates machine
// capacity. A cancelled context abandons the run and returns no result.
func (p *Planner) Run(ctx context.Context, input dto.PlanningInput) (result *dto.PlanningResult, err error) {
	runID := p.newID()
	ctx, span := p.tracer.Start(ctx, "planner.run", trace.WithAttributes(attribute.String("run.id", runID)))
	defer func() { endSpan(span, err) }()

	policy := input.Policy
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	log := p.log.With("run_id", runID)
	startedAt := p.now()

	machines, err := p.machineTable(input.Machines)
	if err != nil {
		return nil, fmt.Errorf("failed to load machines: %w", err)
	}

	normalizer := services.NewCodeNormalizer(policy.Codes)
	machines, err = normalizeMachines(normalizer, machines)
	if err != nil {
		return nil, err
	}
	history := normalizeHistory(normalizer, input.History)
	orders := normalizeOrders(normalizer, input.Orders)
	periodDemand := normalizePeriodDemand(normalizer, input.PeriodDemand)
	exclusions := make([]entities.ProductCode, len(policy.CustomerAlertExclusions))
	for i, code := range policy.CustomerAlertExclusions {
		exclusions[i] = normalizer.Normalize(string(code))
	}
	policy.CustomerAlertExclusions = exclusions

	var products []entities.Product
	err = p.stage(ctx, "catalog.merge", func(ctx context.Context) error {
		var err error
		products, err = catalog.NewMerger(policy.Codes, log).Merge(ctx, input.Stock, input.Items)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge catalog: %w", err)
	}

	consistency := services.ValidateMachineCatalogConsistency(machines, products)
	for _, warning := range consistency.Warnings {
		log.Warn("machine catalog inconsistency", "detail", warning)
	}

	var profiles []entities.DemandProfile
	err = p.stage(ctx, "coverage.compute", func(ctx context.Context) error {
		var err error
		profiles, err = p.calculator.Compute(ctx, products, history, periodDemand, policy)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute coverage: %w", err)
	}

	var flags []entities.RiskFlag
	err = p.stage(ctx, "risk.classify", func(ctx context.Context) error {
		var err error
		flags, err = p.classifier.Classify(ctx, products, profiles, orders, policy)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to classify risk: %w", err)
	}

	var allocated *dto.AllocationResult
	err = p.stage(ctx, "allocation.allocate", func(ctx context.Context) error {
		var err error
		allocated, err = p.allocator.Allocate(ctx, products, profiles, flags, machines, policy)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to allocate production: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stageWarnings := addStageEligibility(machines, products)
	for _, warning := range stageWarnings {
		log.Warn("production line stage skipped", "detail", warning)
	}
	warnings := append(consistency.Warnings, stageWarnings...)

	result = &dto.PlanningResult{
		RunID:       runID,
		StartedAt:   startedAt,
		CompletedAt: p.now(),
		Policy:      policy,
		Products:    products,
		Profiles:    profiles,
		Flags:       flags,
		Machines:    machines,
		Lines:       allocated.Lines,
		Unmet:       allocated.Unmet,
		Warnings:    warnings,
	}

	if p.events != nil {
		if err := events.RecordRun(p.events, runID, len(products), flags, result.Lines, result.Unmet); err != nil {
			return nil, fmt.Errorf("failed to record run events: %w", err)
		}
	}
	if err := p.save(ctx, result); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("run.products", len(products)),
		attribute.Int("run.flags", len(flags)),
		attribute.Int("run.lines", len(result.Lines)),
	)
	log.Info("planning run completed",
		"products", len(products),
		"flags", len(flags),
		"lines", len(result.Lines),
		"unmet", len(result.Unmet),
		"duration", result.CompletedAt.Sub(startedAt).String())
	return result, nil
}

// Confirm reconciles the suggested lines with the planner overrides and returns a new
// result holding the final table; result itself is left untouched. Lines added by the
// planner on an earlier confirmation are carried over, and an override on such a line
// replaces its quantity.
func (p *Planner) Confirm(ctx context.Context, result *dto.PlanningResult, overrides []entities.Override) (out *dto.PlanningResult, err error) {
	ctx, span := p.tracer.Start(ctx, "planner.confirm", trace.WithAttributes(
		attribute.String("run.id", result.RunID),
		attribute.Int("overrides", len(overrides)),
	))
	defer func() { endSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalizer := services.NewCodeNormalizer(result.Policy.Codes)
	normalized := make([]entities.Override, len(overrides))
	for i, o := range overrides {
		o.ProductCode = normalizer.Normalize(string(o.ProductCode))
		normalized[i] = o
	}

	added := make(map[entities.LineKey]int)
	var addedLines []entities.FinalPlanLine
	for _, line := range result.Final {
		if line.Source == entities.SourcePlannerAdded {
			added[line.Key()] = len(addedLines)
			addedLines = append(addedLines, line)
		}
	}

	var suggestedOverrides []entities.Override
	for _, o := range normalized {
		i, ok := added[o.Key()]
		if !ok {
			suggestedOverrides = append(suggestedOverrides, o)
			continue
		}
		if o.Qty.IsNegative() {
			return nil, &entities.InvalidQuantityError{ProductCode: o.ProductCode, MachineID: o.MachineID, Field: "final_qty", Qty: o.Qty}
		}
		addedLines[i].FinalQty = o.Qty
	}

	final, err := p.reconciler.Reconcile(result.Lines, suggestedOverrides)
	if err != nil {
		return nil, err
	}
	final = append(final, addedLines...)

	confirmedAt := p.now()
	out = result.Clone()
	out.Overrides = normalized
	out.Final = final
	out.ConfirmedAt = &confirmedAt

	if p.events != nil {
		if err := events.RecordConfirmation(p.events, out.RunID, normalized, final); err != nil {
			return nil, fmt.Errorf("failed to record confirmation: %w", err)
		}
	}
	if err := p.save(ctx, out); err != nil {
		return nil, err
	}

	p.log.Info("plan confirmed",
		"run_id", out.RunID,
		"overrides", len(normalized),
		"lines", len(final))
	return out, nil
}

// AddLine adds a planner-created line to the final table. An unconfirmed result is
// confirmed without overrides first.
func (p *Planner) AddLine(
	ctx context.Context,
	result *dto.PlanningResult,
	code entities.ProductCode,
	machineID entities.MachineID,
	qty decimal.Decimal,
) (*dto.PlanningResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	final := result.Final
	if !result.IsConfirmed() {
		var err error
		final, err = p.reconciler.Reconcile(result.Lines, nil)
		if err != nil {
			return nil, err
		}
	}

	code = services.NewCodeNormalizer(result.Policy.Codes).Normalize(string(code))
	final, err := p.reconciler.AddLine(final, code, machineID, qty, result.Products, result.Machines)
	if err != nil {
		return nil, err
	}

	out := result.Clone()
	out.Final = final
	if out.ConfirmedAt == nil {
		confirmedAt := p.now()
		out.ConfirmedAt = &confirmedAt
	}

	if p.events != nil {
		line := final[len(final)-1]
		if _, err := p.events.Append(out.RunID, events.LineAddedEvent, events.LineAdded{Line: line}); err != nil {
			return nil, fmt.Errorf("failed to record added line: %w", err)
		}
	}
	if err := p.save(ctx, out); err != nil {
		return nil, err
	}

	p.log.Info("plan line added", "run_id", out.RunID, "product_code", code, "machine_id", machineID, "qty", qty.String())
	return out, nil
}

// Get returns a stored run
func (p *Planner) Get(ctx context.Context, runID string) (*dto.PlanningResult, error) {
	if p.runs == nil {
		return nil, ErrRunNotFound
	}
	return p.runs.Get(ctx, runID)
}

// List returns the stored runs, newest first
func (p *Planner) List(ctx context.Context) ([]*dto.PlanningResult, error) {
	if p.runs == nil {
		return nil, nil
	}
	return p.runs.List(ctx)
}

// Events returns the audit trail of a run
func (p *Planner) Events(runID string) ([]events.Record, error) {
	if p.events == nil {
		return nil, nil
	}
	return p.events.Read(runID, 0)
}

// AuditLog returns every recorded event across runs, starting at position from
func (p *Planner) AuditLog(from int) ([]events.Record, error) {
	if p.events == nil {
		return nil, nil
	}
	return p.events.ReadAll(from)
}

func (p *Planner) stage(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	ctx, span := p.tracer.Start(ctx, name)
	defer func() { endSpan(span, err) }()
	return fn(ctx)
}

func (p *Planner) save(ctx context.Context, result *dto.PlanningResult) error {
	if p.runs == nil {
		return nil
	}
	if err := p.runs.Save(ctx, result); err != nil {
		return fmt.Errorf("failed to save run %s: %w", result.RunID, err)
	}
	return nil
}

func (p *Planner) machineTable(machines []entities.Machine) ([]entities.Machine, error) {
	if len(machines) > 0 || p.machines == nil {
		return machines, nil
	}
	return p.machines.GetAllMachines()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func normalizeMachines(n *services.CodeNormalizer, machines []entities.Machine) ([]entities.Machine, error) {
	out := make([]entities.Machine, 0, len(machines))
	for _, m := range machines {
		eligible := m.EligibleList()
		for i, code := range eligible {
			eligible[i] = n.Normalize(string(code))
		}
		normalized, err := entities.NewMachine(m.ID, m.DailyCapacityUnits, eligible)
		if err != nil {
			return nil, fmt.Errorf("invalid machine %s: %w", m.ID, err)
		}
		out = append(out, *normalized)
	}
	return out, nil
}

// addStageEligibility makes each later production line stage eligible for its product
// once allocation is done, so planners can add lines there without changing which
// machine the product was bound to.
func addStageEligibility(machines []entities.Machine, products []entities.Product) []string {
	index := make(map[entities.MachineID]int, len(machines))
	for i, m := range machines {
		index[m.ID] = i
	}

	var warnings []string
	for _, product := range products {
		for _, stage := range product.StageMachines {
			i, ok := index[stage]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("product %s: production line stage %s is not a known machine", product.Code, stage))
				continue
			}
			machines[i].EligibleProducts[product.Code] = struct{}{}
		}
	}
	return warnings
}

func normalizeHistory(n *services.CodeNormalizer, history []entities.DemandRecord) []entities.DemandRecord {
	out := make([]entities.DemandRecord, len(history))
	for i, record := range history {
		record.ProductCode = n.Normalize(string(record.ProductCode))
		out[i] = record
	}
	return out
}

func normalizeOrders(n *services.CodeNormalizer, orders []entities.CustomerOrder) []entities.CustomerOrder {
	out := make([]entities.CustomerOrder, len(orders))
	for i, order := range orders {
		order.ProductCode = n.Normalize(string(order.ProductCode))
		out[i] = order
	}
	return out
}

func normalizePeriodDemand(n *services.CodeNormalizer, demand map[entities.ProductCode]decimal.Decimal) map[entities.ProductCode]decimal.Decimal {
	if demand == nil {
		return nil
	}
	out := make(map[entities.ProductCode]decimal.Decimal, len(demand))
	for code, qty := range demand {
		key := n.Normalize(string(code))
		out[key] = out[key].Add(qty)
	}
	return out
}
