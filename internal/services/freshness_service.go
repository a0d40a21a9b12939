package services

import (
	"context"
	"sync/atomic"
	"time"

	"dmis/internal/caching"
	"dmis/internal/metrics"
	"dmis/internal/models"
	"dmis/internal/replenishment"
	"dmis/internal/repositories"

	"go.uber.org/zap"
)

// Refresher schedules an out-of-band freshness recomputation.
type Refresher interface {
	RefreshNow() error
}

// FreshnessOptions configures cache lifetimes for the freshness summary.
type FreshnessOptions struct {
	SummaryTTL     time.Duration
	RefreshFlagTTL time.Duration
	RefreshTimeout time.Duration
}

type FreshnessService interface {
	// Summary returns the cached summary, computing it on a miss.
	Summary(ctx context.Context) (*models.FreshnessSummary, error)

	// Recompute reads sync state, caches the new summary and clears the
	// refreshing flag.
	Recompute(ctx context.Context) (*models.FreshnessSummary, error)

	// TriggerRefresh marks the summary as refreshing and schedules a
	// recomputation without waiting for it. It returns false when a refresh
	// was already pending.
	TriggerRefresh(ctx context.Context) (bool, error)

	// Invalidate drops the cached summary.
	Invalidate(ctx context.Context) error

	SetRefresher(r Refresher)
}

type freshnessService struct {
	warehouseRepo repositories.WarehouseRepository
	cache         caching.CacheService
	thresholds    replenishment.FreshnessThresholds
	opts          FreshnessOptions
	refresher     Refresher
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time

	// recomputing guards the in-process fallback so at most one runs.
	recomputing atomic.Bool
}

// NewFreshnessService builds the service. cache may be nil; the summary is
// then computed on every call and the refreshing flag is never set.
func NewFreshnessService(warehouseRepo repositories.WarehouseRepository, cache caching.CacheService, thresholds replenishment.FreshnessThresholds, opts FreshnessOptions, m *metrics.Metrics, logger *zap.Logger) FreshnessService {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}
	return &freshnessService{
		warehouseRepo: warehouseRepo,
		cache:         cache,
		thresholds:    thresholds,
		opts:          opts,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *freshnessService) SetRefresher(r Refresher) {
	s.refresher = r
}

func (s *freshnessService) Summary(ctx context.Context) (*models.FreshnessSummary, error) {
	if s.cache == nil {
		return s.compute(ctx)
	}

	summary, err := s.cache.GetFreshnessSummary(ctx)
	if err != nil {
		s.logger.Warn("freshness cache read failed", zap.Error(err))
	}
	if summary == nil {
		return s.Recompute(ctx)
	}

	refreshing, err := s.cache.IsRefreshing(ctx)
	if err != nil {
		s.logger.Warn("refresh flag read failed", zap.Error(err))
	}
	summary.IsRefreshing = refreshing
	return summary, nil
}

func (s *freshnessService) Recompute(ctx context.Context) (*models.FreshnessSummary, error) {
	summary, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		return summary, nil
	}

	if err := s.cache.SetFreshnessSummary(ctx, summary, s.opts.SummaryTTL); err != nil {
		s.logger.Warn("freshness cache write failed", zap.Error(err))
	}
	if err := s.cache.ClearRefreshing(ctx); err != nil {
		s.logger.Warn("refresh flag clear failed", zap.Error(err))
	}
	return summary, nil
}

func (s *freshnessService) compute(ctx context.Context) (*models.FreshnessSummary, error) {
	syncs, err := s.warehouseRepo.ListSyncStatus(ctx)
	if err != nil {
		return nil, err
	}
	summary := replenishment.Summarize(syncs, s.now().UTC(), s.thresholds)

	counts := map[models.FreshnessTier]int{
		models.FreshnessHigh:   0,
		models.FreshnessMedium: 0,
		models.FreshnessLow:    0,
		models.FreshnessStale:  0,
	}
	for _, w := range summary.Warehouses {
		counts[w.Tier]++
	}
	for tier, n := range counts {
		s.metrics.FreshnessState.WithLabelValues(string(tier)).Set(float64(n))
	}

	if summary.OverallState == models.FreshnessCriticalStale {
		s.logger.Warn("warehouse data is stale",
			zap.Strings("warehouses", summary.NonFreshWarehouses),
			zap.Bool("has_never_synced", summary.HasNeverSynced),
		)
	}
	return summary, nil
}

func (s *freshnessService) TriggerRefresh(ctx context.Context) (bool, error) {
	if s.cache != nil {
		marked, err := s.cache.MarkRefreshing(ctx, s.opts.RefreshFlagTTL)
		if err != nil {
			return false, err
		}
		if !marked {
			return false, nil
		}
	}

	if s.refresher != nil {
		err := s.refresher.RefreshNow()
		if err == nil {
			return true, nil
		}
		s.logger.Warn("scheduler refresh failed, recomputing inline", zap.Error(err))
	}

	if !s.recomputing.CompareAndSwap(false, true) {
		return false, nil
	}
	go func() {
		defer s.recomputing.Store(false)
		bg, cancel := context.WithTimeout(context.Background(), s.opts.RefreshTimeout)
		defer cancel()
		if _, err := s.Recompute(bg); err != nil {
			s.logger.Error("freshness refresh failed", zap.Error(err))
		}
	}()
	return true, nil
}

func (s *freshnessService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateFreshnessSummary(ctx)
}
