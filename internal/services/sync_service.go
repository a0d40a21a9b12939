package services

import (
	"context"
	"time"

	"dmis/internal/models"
	"dmis/internal/repositories"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SyncService interface {
	// RecordSync stores one sync attempt. A successful sync invalidates the
	// cached freshness summary.
	RecordSync(ctx context.Context, record *models.SyncRecord) error
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, limit, offset int) ([]*models.SyncRecord, error)
}

type syncService struct {
	syncRepo      repositories.SyncRepository
	warehouseRepo repositories.WarehouseRepository
	freshness     FreshnessService
	logger        *zap.Logger
	now           func() time.Time
}

func NewSyncService(syncRepo repositories.SyncRepository, warehouseRepo repositories.WarehouseRepository, freshness FreshnessService, logger *zap.Logger) SyncService {
	return &syncService{
		syncRepo:      syncRepo,
		warehouseRepo: warehouseRepo,
		freshness:     freshness,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *syncService) RecordSync(ctx context.Context, record *models.SyncRecord) error {
	if _, err := models.ParseSyncOutcome(string(record.Outcome)); err != nil {
		return errclass.ErrValidation.WithMessage(err.Error())
	}
	now := s.now().UTC()
	if record.SyncedAt.IsZero() {
		record.SyncedAt = now
	}
	if record.SyncedAt.After(now.Add(5 * time.Minute)) {
		return errclass.ErrValidation.WithMessagef("synced_at %s is in the future", record.SyncedAt.Format(time.RFC3339))
	}
	if _, err := s.warehouseRepo.GetByID(ctx, record.WarehouseID); err != nil {
		return err
	}

	if err := s.syncRepo.Create(ctx, record); err != nil {
		return err
	}

	if record.Outcome == models.SyncOutcomeSuccess {
		if err := s.freshness.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to invalidate freshness summary", zap.Error(err))
		}
	}
	s.logger.Info("warehouse sync recorded",
		zap.Stringer("warehouse_id", record.WarehouseID),
		zap.String("outcome", string(record.Outcome)),
		zap.Time("synced_at", record.SyncedAt),
	)
	return nil
}

func (s *syncService) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, limit, offset int) ([]*models.SyncRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.syncRepo.ListByWarehouse(ctx, warehouseID, limit, offset)
}
