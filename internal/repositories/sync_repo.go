package repositories

import (
	"context"
	"fmt"
	"time"

	"dmis/internal/models"
	"dmis/pkg/database"

	"github.com/google/uuid"
)

type SyncRepository interface {
	Create(ctx context.Context, record *models.SyncRecord) error
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, limit, offset int) ([]*models.SyncRecord, error)
}

type syncRepo struct {
	db database.DB
}

func NewSyncRepository(db database.DB) SyncRepository {
	return &syncRepo{db: db}
}

func (r *syncRepo) Create(ctx context.Context, record *models.SyncRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO warehouse_syncs (id, warehouse_id, outcome, synced_at, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, record.ID, record.WarehouseID, record.Outcome, record.SyncedAt, record.Detail, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record sync: %w", err)
	}
	return nil
}

func (r *syncRepo) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, limit, offset int) ([]*models.SyncRecord, error) {
	query := `
		SELECT id, warehouse_id, outcome, synced_at, detail, created_at
		FROM warehouse_syncs
		WHERE warehouse_id = $1
		ORDER BY synced_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, warehouseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list syncs: %w", err)
	}
	defer rows.Close()

	var records []*models.SyncRecord
	for rows.Next() {
		rec := &models.SyncRecord{}
		if err := rows.Scan(&rec.ID, &rec.WarehouseID, &rec.Outcome, &rec.SyncedAt, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
