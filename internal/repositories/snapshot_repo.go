package repositories

import (
	"context"
	"fmt"
	"time"

	"dmis/internal/models"
	"dmis/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SnapshotRepository captures the inputs of a planning run.
type SnapshotRepository interface {
	// Load reads every input inside one repeatable-read, read-only
	// transaction so all of them reflect the same instant.
	Load(ctx context.Context, asOf time.Time, lookbackHours int) (*models.PlanningSnapshot, error)
}

type snapshotRepo struct {
	db database.DB
}

func NewSnapshotRepository(db database.DB) SnapshotRepository {
	return &snapshotRepo{db: db}
}

var snapshotTxOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

func (r *snapshotRepo) Load(ctx context.Context, asOf time.Time, lookbackHours int) (*models.PlanningSnapshot, error) {
	snap := &models.PlanningSnapshot{
		AsOf:               asOf,
		LastSuccessfulSync: make(map[uuid.UUID]time.Time),
	}
	since := asOf.Add(-time.Duration(lookbackHours) * time.Hour)

	err := database.WithTransaction(ctx, r.db, snapshotTxOptions, func(tx pgx.Tx) error {
		steps := []struct {
			name string
			load func(context.Context, pgx.Tx) error
		}{
			{"warehouses", func(ctx context.Context, tx pgx.Tx) error { return loadWarehouses(ctx, tx, snap) }},
			{"syncs", func(ctx context.Context, tx pgx.Tx) error { return loadLastSyncs(ctx, tx, asOf, snap) }},
			{"stock positions", func(ctx context.Context, tx pgx.Tx) error { return loadPositions(ctx, tx, snap) }},
			{"inbound pipeline", func(ctx context.Context, tx pgx.Tx) error { return loadPipelines(ctx, tx, snap) }},
			{"dispatches", func(ctx context.Context, tx pgx.Tx) error { return loadDispatches(ctx, tx, since, asOf, snap) }},
			{"lead times", func(ctx context.Context, tx pgx.Tx) error { return loadLeadTimes(ctx, tx, snap) }},
			{"donations", func(ctx context.Context, tx pgx.Tx) error { return loadDonations(ctx, tx, snap) }},
		}
		for _, step := range steps {
			if err := step.load(ctx, tx); err != nil {
				return fmt.Errorf("failed to load %s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func loadWarehouses(ctx context.Context, tx pgx.Tx, snap *models.PlanningSnapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT id, code, name, parish, is_active, created_at, updated_at
		FROM warehouses
		WHERE is_active = true
		ORDER BY name
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var w models.Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Parish, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return err
		}
		snap.Warehouses = append(snap.Warehouses, w)
	}
	return rows.Err()
}

func loadLastSyncs(ctx context.Context, tx pgx.Tx, asOf time.Time, snap *models.PlanningSnapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT warehouse_id, MAX(synced_at)
		FROM warehouse_syncs
		WHERE outcome = 'success' AND synced_at <= $1
		GROUP BY warehouse_id
	`, asOf)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return err
		}
		snap.LastSuccessfulSync[id] = at
	}
	return rows.Err()
}

func loadPositions(ctx context.Context, tx pgx.Tx, snap *models.PlanningSnapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT sp.warehouse_id, sp.item_id, sp.usable_qty, sp.reserved_qty, sp.defective_qty, sp.expired_qty, sp.updated_at
		FROM stock_positions sp
		JOIN warehouses w ON w.id = sp.warehouse_id
		WHERE w.is_active = true
		ORDER BY sp.warehouse_id, sp.item_id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.StockPosition
		if err := rows.Scan(&p.WarehouseID, &p.ItemID, &p.UsableQty, &p.ReservedQty, &p.DefectiveQty, &p.ExpiredQty, &p.UpdatedAt); err != nil {
			return err
		}
		snap.Positions = append(snap.Positions, p)
	}
	return rows.Err()
}

func loadPipelines(ctx context.Context, tx pgx.Tx, snap *models.PlanningSnapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT warehouse_id, item_id,
			COALESCE(SUM(quantity) FILTER (WHERE source = 'transfer'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE source = 'donation'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE source = 'procurement'), 0)
		FROM inbound_shipments
		WHERE status IN ('confirmed', 'in_transit')
		GROUP BY warehouse_id, item_id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.InboundPipeline
		if err := rows.Scan(&p.WarehouseID, &p.ItemID, &p.TransferQty, &p.DonationQty, &p.ProcurementQty); err != nil {
			return err
		}
		snap.Pipelines = append(snap.Pipelines, p)
	}
	return rows.Err()
}

func loadDispatches(ctx context.Context, tx pgx.Tx, since, asOf time.Time, snap *models.PlanningSnapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT id, warehouse_id, item_id, event_id, quantity, dispatched_at
		FROM dispatch_events
		WHERE dispatched_at > $1 AND dispatched_at <= $2
	`, since, asOf)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var d models.DispatchEvent
		if err := rows.Scan(&d.ID, &d.WarehouseID, &d.ItemID, &d.EventID, &d.Quantity, &d.DispatchedAt); err != nil {
			return err
		}
		snap.Dispatches = append(snap.Dispatches, d)
	}
	return rows.Err()
}

func loadLeadTimes(ctx context.Context, tx pgx.Tx, snap *models.PlanningSnapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT id, horizon, from_warehouse_id, to_warehouse_id, lead_time_hours
		FROM lead_time_configs
		WHERE is_active = true
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var c models.LeadTimeConfig
		if err := rows.Scan(&c.ID, &c.Horizon, &c.FromWarehouseID, &c.ToWarehouseID, &c.LeadTimeHours); err != nil {
			return err
		}
		snap.LeadTimes = append(snap.LeadTimes, c)
	}
	return rows.Err()
}

func loadDonations(ctx context.Context, tx pgx.Tx, snap *models.PlanningSnapshot) error {
	rows, err := tx.Query(ctx, `
		SELECT item_id, SUM(quantity - allocated_quantity)
		FROM donation_items
		WHERE status IN ('pending', 'verified')
		GROUP BY item_id
		HAVING SUM(quantity - allocated_quantity) > 0
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var d models.DonationAvailability
		if err := rows.Scan(&d.ItemID, &d.AvailableQty); err != nil {
			return err
		}
		snap.Donations = append(snap.Donations, d)
	}
	return rows.Err()
}
