package repositories

import (
	"context"
	"fmt"
	"time"

	"dmis/internal/models"
	"dmis/internal/replenishment"
	"dmis/pkg/database"

	"github.com/google/uuid"
)

type WarehouseRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	ListActive(ctx context.Context) ([]*models.Warehouse, error)
	// ListSyncStatus pairs every active warehouse with its latest successful sync.
	ListSyncStatus(ctx context.Context) ([]replenishment.WarehouseSync, error)
}

type warehouseRepo struct {
	db database.DB
}

func NewWarehouseRepository(db database.DB) WarehouseRepository {
	return &warehouseRepo{db: db}
}

func (r *warehouseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	warehouse := &models.Warehouse{}
	query := `
		SELECT id, code, name, parish, is_active, created_at, updated_at
		FROM warehouses
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&warehouse.ID, &warehouse.Code, &warehouse.Name, &warehouse.Parish, &warehouse.IsActive, &warehouse.CreatedAt, &warehouse.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "warehouse %s", id)
	}
	return warehouse, nil
}

func (r *warehouseRepo) ListActive(ctx context.Context) ([]*models.Warehouse, error) {
	query := `
		SELECT id, code, name, parish, is_active, created_at, updated_at
		FROM warehouses
		WHERE is_active = true
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []*models.Warehouse
	for rows.Next() {
		w := &models.Warehouse{}
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Parish, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func (r *warehouseRepo) ListSyncStatus(ctx context.Context) ([]replenishment.WarehouseSync, error) {
	query := `
		SELECT w.id, w.code, w.name, w.parish, w.is_active, w.created_at, w.updated_at, s.last_success
		FROM warehouses w
		LEFT JOIN (
			SELECT warehouse_id, MAX(synced_at) AS last_success
			FROM warehouse_syncs
			WHERE outcome = 'success'
			GROUP BY warehouse_id
		) s ON s.warehouse_id = w.id
		WHERE w.is_active = true
		ORDER BY w.name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouse sync status: %w", err)
	}
	defer rows.Close()

	var out []replenishment.WarehouseSync
	for rows.Next() {
		var ws replenishment.WarehouseSync
		var last *time.Time
		w := &ws.Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Parish, &w.IsActive, &w.CreatedAt, &w.UpdatedAt, &last); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse sync status: %w", err)
		}
		ws.LastSuccessfulSync = last
		out = append(out, ws)
	}
	return out, rows.Err()
}
