package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"dmis/internal/metrics"
	"dmis/internal/models"
	"dmis/internal/replenishment"
	"dmis/internal/repositories"
	"dmis/internal/workflow"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Planning run triggers
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// PlanningRequest starts one planning run for an event.
type PlanningRequest struct {
	EventID uuid.UUID
	// WarehouseIDs limits which warehouses receive a needs list. Empty means
	// every active warehouse. All active warehouses still act as sources.
	WarehouseIDs []uuid.UUID
	ActorID      uuid.UUID
	Trigger      string
}

// PlanningResult summarizes a finished or cancelled run.
type PlanningResult struct {
	RunID        uuid.UUID           `json:"run_id"`
	EventID      uuid.UUID           `json:"event_id"`
	Phase        models.EventPhase   `json:"phase"`
	CalculatedAt time.Time           `json:"calculated_at"`
	NeedsLists   []*models.NeedsList `json:"needs_lists"`
	LinesPlanned int                 `json:"lines_planned"`
	LinesSkipped int                 `json:"lines_skipped"`
	Fallbacks    int                 `json:"fallbacks"`
	Cancelled    bool                `json:"cancelled"`
}

type PlanningService interface {
	// Run plans every target warehouse against one consistent snapshot and
	// persists one DRAFT needs list per warehouse that has lines. The context
	// is checked between warehouses; lists already persisted are kept.
	Run(ctx context.Context, req PlanningRequest) (*PlanningResult, error)
}

type planningService struct {
	eventRepo    repositories.EventRepository
	snapshotRepo repositories.SnapshotRepository
	needsLists   NeedsListService
	checker      workflow.PermissionChecker
	policy       replenishment.Policy
	workers      int
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func NewPlanningService(
	eventRepo repositories.EventRepository,
	snapshotRepo repositories.SnapshotRepository,
	needsLists NeedsListService,
	checker workflow.PermissionChecker,
	policy replenishment.Policy,
	workers int,
	m *metrics.Metrics,
	logger *zap.Logger,
) PlanningService {
	if workers <= 0 {
		workers = 1
	}
	return &planningService{
		eventRepo:    eventRepo,
		snapshotRepo: snapshotRepo,
		needsLists:   needsLists,
		checker:      checker,
		policy:       policy,
		workers:      workers,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

type pairKey struct {
	warehouse, item uuid.UUID
}

// evaluation is the phase one output for a single position.
type evaluation struct {
	position models.StockPosition
	pipeline models.InboundPipeline
	tier     models.FreshnessTier
	burn     replenishment.BurnRate
	proj     replenishment.Projection
	invalid  error
}

func (s *planningService) Run(ctx context.Context, req PlanningRequest) (*PlanningResult, error) {
	started := time.Now()
	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}

	result, err := s.run(ctx, req)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case result.Cancelled:
		outcome = "cancelled"
	}
	s.metrics.PlanningRuns.WithLabelValues(trigger, outcome).Inc()
	s.metrics.PlanningDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		s.logger.Error("planning run failed",
			zap.Stringer("event_id", req.EventID),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		return result, err
	}

	s.metrics.LinesPlanned.Add(float64(result.LinesPlanned))
	s.logger.Info("planning run finished",
		zap.Stringer("run_id", result.RunID),
		zap.Stringer("event_id", result.EventID),
		zap.String("phase", string(result.Phase)),
		zap.String("trigger", trigger),
		zap.Int("needs_lists", len(result.NeedsLists)),
		zap.Int("lines_planned", result.LinesPlanned),
		zap.Int("lines_skipped", result.LinesSkipped),
		zap.Int("fallbacks", result.Fallbacks),
		zap.Bool("cancelled", result.Cancelled),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (s *planningService) run(ctx context.Context, req PlanningRequest) (*PlanningResult, error) {
	result := &PlanningResult{RunID: uuid.New(), EventID: req.EventID, NeedsLists: []*models.NeedsList{}}

	if err := workflow.AuthorizeAction(ctx, s.checker, req.ActorID, workflow.ActionCreateDraft); err != nil {
		return result, err
	}

	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return result, err
	}
	if !event.IsActive {
		return result, errclass.ErrValidation.WithMessagef("event %s is not active", event.ID)
	}
	result.Phase = event.Phase

	windows, err := s.policy.Windows(event.Phase)
	if err != nil {
		return result, err
	}

	asOf := s.now().UTC()
	result.CalculatedAt = asOf
	lookback := s.policy.BaselineLookbackHours
	if windows.DemandWindowHours > lookback {
		lookback = windows.DemandWindowHours
	}
	snap, err := s.snapshotRepo.Load(ctx, asOf, lookback)
	if err != nil {
		return result, fmt.Errorf("failed to load planning snapshot: %w", err)
	}

	targets, err := selectTargets(snap.Warehouses, req.WarehouseIDs)
	if err != nil {
		return result, err
	}

	tiers := make(map[uuid.UUID]models.FreshnessTier, len(snap.Warehouses))
	for _, w := range snap.Warehouses {
		var last *time.Time
		if t, ok := snap.LastSuccessfulSync[w.ID]; ok {
			last = &t
		}
		tiers[w.ID] = replenishment.ClassifyFreshness(last, asOf, s.policy.Freshness)
	}

	evals, err := s.evaluate(ctx, snap, tiers, event.Phase, windows)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Cancelled = true
			return result, nil
		}
		return result, err
	}

	planner := replenishment.NewHorizonPlanner(
		buildPool(snap, evals, tiers),
		replenishment.NewLeadTimeTable(snap.LeadTimes, s.policy),
	)
	maxTransfer := s.policy.MaxTransferLeadTime(windows)

	byWarehouse := make(map[uuid.UUID][]*evaluation)
	for i := range evals {
		e := &evals[i]
		byWarehouse[e.position.WarehouseID] = append(byWarehouse[e.position.WarehouseID], e)
	}

	for _, w := range targets {
		if ctx.Err() != nil {
			result.Cancelled = true
			s.logger.Warn("planning run cancelled between warehouses",
				zap.Stringer("run_id", result.RunID),
				zap.Int("warehouses_planned", len(result.NeedsLists)),
			)
			return result, nil
		}

		list := &models.NeedsList{
			WarehouseID:            w.ID,
			EventID:                event.ID,
			EventPhase:             event.Phase,
			CalculatedAt:           asOf,
			DemandWindowHours:      windows.DemandWindowHours,
			PlanningWindowHours:    windows.PlanningWindowHours,
			SafetyBufferMultiplier: s.policy.SafetyBuffer,
			FreshnessTier:          tiers[w.ID],
		}

		lines := byWarehouse[w.ID]
		sortByUrgency(lines)
		for _, e := range lines {
			if e.invalid != nil {
				result.LinesSkipped++
				s.metrics.LinesSkipped.WithLabelValues(errclass.CodeOf(e.invalid)).Inc()
				s.logger.Error("skipping invalid stock position",
					zap.Stringer("warehouse_id", w.ID),
					zap.Stringer("item_id", e.position.ItemID),
					zap.Error(e.invalid),
				)
				continue
			}
			if e.burn.Source == models.BurnRateBaseline && e.burn.FallbackReason != replenishment.BaselinePhase {
				result.Fallbacks++
				s.metrics.BurnRateFallbacks.WithLabelValues(e.burn.FallbackReason).Inc()
				s.logger.Info("burn rate fell back to baseline",
					zap.Stringer("warehouse_id", w.ID),
					zap.Stringer("item_id", e.position.ItemID),
					zap.String("freshness_tier", string(e.tier)),
					zap.String("reason", e.burn.FallbackReason),
				)
			}
			if !replenishment.NeedsAttention(e.proj) {
				continue
			}

			alloc, err := planner.PlanLine(w.ID, e.position.ItemID, e.proj.Gap, maxTransfer)
			if err != nil {
				result.LinesSkipped++
				s.metrics.LinesSkipped.WithLabelValues(errclass.CodeOf(err)).Inc()
				s.logger.Error("skipping needs list line",
					zap.Stringer("warehouse_id", w.ID),
					zap.Stringer("item_id", e.position.ItemID),
					zap.String("gap_qty", e.proj.Gap.String()),
					zap.Error(err),
				)
				continue
			}

			item := replenishment.BuildLine(e.position, e.pipeline, e.burn, e.proj)
			alloc.ApplyTo(item)
			list.Items = append(list.Items, item)
		}

		if len(list.Items) == 0 {
			continue
		}
		if err := s.needsLists.CreateDraft(ctx, list, req.ActorID); err != nil {
			return result, fmt.Errorf("failed to persist needs list for warehouse %s: %w", w.Code, err)
		}
		result.NeedsLists = append(result.NeedsLists, list)
		result.LinesPlanned += len(list.Items)
	}

	return result, nil
}

// evaluate runs the per-position calculations in parallel. Each goroutine
// reads the shared indexes and writes only its own slot.
func (s *planningService) evaluate(ctx context.Context, snap *models.PlanningSnapshot, tiers map[uuid.UUID]models.FreshnessTier, phase models.EventPhase, windows replenishment.PhaseWindows) ([]evaluation, error) {
	pipelines := make(map[pairKey]models.InboundPipeline, len(snap.Pipelines))
	for _, p := range snap.Pipelines {
		pipelines[pairKey{p.WarehouseID, p.ItemID}] = p
	}
	dispatches := make(map[pairKey][]models.DispatchEvent)
	for _, d := range snap.Dispatches {
		k := pairKey{d.WarehouseID, d.ItemID}
		dispatches[k] = append(dispatches[k], d)
	}

	calc := replenishment.NewBurnRateCalculator(s.policy)
	evals := make([]evaluation, len(snap.Positions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, pos := range snap.Positions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := pos.Validate(); err != nil {
				evals[i] = evaluation{position: pos, invalid: errclass.ErrValidation.WithMessage(err.Error())}
				return nil
			}
			k := pairKey{pos.WarehouseID, pos.ItemID}
			pipeline, ok := pipelines[k]
			if !ok {
				pipeline = models.InboundPipeline{
					WarehouseID:    pos.WarehouseID,
					ItemID:         pos.ItemID,
					TransferQty:    decimal.Zero,
					DonationQty:    decimal.Zero,
					ProcurementQty: decimal.Zero,
				}
			}
			tier := tiers[pos.WarehouseID]
			burn := calc.Calculate(dispatches[k], phase, windows, tier, snap.AsOf)
			evals[i] = evaluation{
				position: pos,
				pipeline: pipeline,
				tier:     tier,
				burn:     burn,
				proj:     replenishment.Project(pos, pipeline, burn.Rate, windows, s.policy),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evals, nil
}

// buildPool seeds the working pool. Stale warehouses are not offered as
// transfer sources.
func buildPool(snap *models.PlanningSnapshot, evals []evaluation, tiers map[uuid.UUID]models.FreshnessTier) *replenishment.WorkingPool {
	pool := replenishment.NewWorkingPool()
	for _, e := range evals {
		if e.invalid != nil || tiers[e.position.WarehouseID] == models.FreshnessStale {
			continue
		}
		pool.SetSurplus(e.position.WarehouseID, e.position.ItemID, e.proj.Surplus())
	}
	donations := make(map[uuid.UUID]decimal.Decimal)
	for _, d := range snap.Donations {
		donations[d.ItemID] = donations[d.ItemID].Add(d.AvailableQty)
	}
	for itemID, qty := range donations {
		pool.SetDonation(itemID, qty)
	}
	return pool
}

// sortByUrgency orders lines so the most urgent claim shared stock first.
func sortByUrgency(lines []*evaluation) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i].proj, lines[j].proj
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.TimeToStockoutHours != b.TimeToStockoutHours {
			return a.TimeToStockoutHours < b.TimeToStockoutHours
		}
		return lines[i].position.ItemID.String() < lines[j].position.ItemID.String()
	})
}

func selectTargets(warehouses []models.Warehouse, ids []uuid.UUID) ([]models.Warehouse, error) {
	if len(ids) == 0 {
		return warehouses, nil
	}
	byID := make(map[uuid.UUID]models.Warehouse, len(warehouses))
	for _, w := range warehouses {
		byID[w.ID] = w
	}
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, errclass.ErrNotFound.WithMessagef("active warehouse %s", id)
		}
		wanted[id] = true
	}
	var out []models.Warehouse
	for _, w := range warehouses {
		if wanted[w.ID] {
			out = append(out, w)
		}
	}
	return out, nil
}
