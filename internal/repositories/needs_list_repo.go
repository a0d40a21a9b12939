package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dmis/internal/models"
	"dmis/pkg/database"
	"dmis/pkg/errclass"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type NeedsListRepository interface {
	// Create inserts the header, every line and the creation audit entry atomically
	Create(ctx context.Context, list *models.NeedsList, entry *models.AuditEntry) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.NeedsList, error)
	GetItems(ctx context.Context, needsListID uuid.UUID) ([]*models.NeedsListItem, error)
	GetItem(ctx context.Context, needsListID, lineID uuid.UUID) (*models.NeedsListItem, error)
	List(ctx context.Context, filters *models.NeedsListFilters) ([]*models.NeedsList, error)

	// UpdateStatus persists list's workflow fields if the stored version still
	// equals expectedVersion, bumps the version and appends entry, all in one
	// transaction. A lost race returns ErrVersionConflict.
	UpdateStatus(ctx context.Context, list *models.NeedsList, expectedVersion int, entry *models.AuditEntry) error

	// AdjustItemQuantity records a reviewer override on one line under the
	// same version check, bumping the list version.
	AdjustItemQuantity(ctx context.Context, list *models.NeedsList, expectedVersion int, item *models.NeedsListItem, entry *models.AuditEntry) error
}

type needsListRepo struct {
	db database.DB
}

func NewNeedsListRepository(db database.DB) NeedsListRepository {
	return &needsListRepo{db: db}
}

const needsListColumns = `id, warehouse_id, event_id, event_phase, calculated_at, demand_window_hours, planning_window_hours,
		safety_buffer_multiplier, freshness_tier, status, version, escalation_level, review_notes, created_by, created_at, updated_at,
		line_count, critical_count, warning_count, watch_count, baseline_line_count,
		total_required, total_gap, total_horizon_a, total_horizon_b, total_horizon_c`

var needsListGoquColumns = []interface{}{
	"id", "warehouse_id", "event_id", "event_phase", "calculated_at", "demand_window_hours", "planning_window_hours",
	"safety_buffer_multiplier", "freshness_tier", "status", "version", "escalation_level", "review_notes", "created_by", "created_at", "updated_at",
	"line_count", "critical_count", "warning_count", "watch_count", "baseline_line_count",
	"total_required", "total_gap", "total_horizon_a", "total_horizon_b", "total_horizon_c",
}

const needsListItemColumns = `id, needs_list_id, item_id, burn_rate, burn_rate_source, available_qty, reserved_qty,
		inbound_transfer_qty, inbound_donation_qty, inbound_procurement_qty, coverage_qty, required_qty, gap_qty,
		time_to_stockout_hours, severity, horizon_a_qty, horizon_b_qty, horizon_c_qty, horizon_a_sources,
		horizon_b_lead_time_hours, horizon_c_lead_time_hours, adjusted_qty, adjustment_reason`

func (r *needsListRepo) Create(ctx context.Context, list *models.NeedsList, entry *models.AuditEntry) error {
	now := time.Now().UTC()
	if list.ID == uuid.Nil {
		list.ID = uuid.New()
	}
	list.CreatedAt = now
	list.UpdatedAt = now

	return database.WithTransaction(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		query := `
			INSERT INTO needs_lists (` + needsListColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		`
		t := list.Totals
		_, err := tx.Exec(ctx, query,
			list.ID, list.WarehouseID, list.EventID, list.EventPhase, list.CalculatedAt, list.DemandWindowHours, list.PlanningWindowHours,
			list.SafetyBufferMultiplier, list.FreshnessTier, list.Status, list.Version, list.EscalationLevel, list.ReviewNotes, list.CreatedBy, list.CreatedAt, list.UpdatedAt,
			t.LineCount, t.CriticalCount, t.WarningCount, t.WatchCount, t.BaselineLineCount,
			t.TotalRequired, t.TotalGap, t.TotalHorizonA, t.TotalHorizonB, t.TotalHorizonC,
		)
		if err != nil {
			return fmt.Errorf("failed to insert needs list: %w", err)
		}

		for _, item := range list.Items {
			item.NeedsListID = list.ID
			if err := insertNeedsListItem(ctx, tx, item); err != nil {
				return err
			}
		}

		return insertAuditEntry(ctx, tx, entry)
	})
}

func insertNeedsListItem(ctx context.Context, tx pgx.Tx, item *models.NeedsListItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	sources, err := json.Marshal(item.HorizonASources)
	if err != nil {
		return fmt.Errorf("failed to marshal horizon_a_sources: %w", err)
	}

	query := `
		INSERT INTO needs_list_items (` + needsListItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`
	_, err = tx.Exec(ctx, query,
		item.ID, item.NeedsListID, item.ItemID, item.BurnRate, item.BurnRateSource, item.AvailableQty, item.ReservedQty,
		item.InboundTransferQty, item.InboundDonationQty, item.InboundProcurementQty, item.CoverageQty, item.RequiredQty, item.GapQty,
		item.TimeToStockoutHours, item.Severity, item.HorizonAQty, item.HorizonBQty, item.HorizonCQty, sources,
		item.HorizonBLeadTimeHours, item.HorizonCLeadTimeHours, item.AdjustedQty, item.AdjustmentReason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert needs list item %s: %w", item.ItemID, err)
	}
	return nil
}

func scanNeedsList(row pgx.Row) (*models.NeedsList, error) {
	list := &models.NeedsList{}
	t := &list.Totals
	err := row.Scan(
		&list.ID, &list.WarehouseID, &list.EventID, &list.EventPhase, &list.CalculatedAt, &list.DemandWindowHours, &list.PlanningWindowHours,
		&list.SafetyBufferMultiplier, &list.FreshnessTier, &list.Status, &list.Version, &list.EscalationLevel, &list.ReviewNotes, &list.CreatedBy, &list.CreatedAt, &list.UpdatedAt,
		&t.LineCount, &t.CriticalCount, &t.WarningCount, &t.WatchCount, &t.BaselineLineCount,
		&t.TotalRequired, &t.TotalGap, &t.TotalHorizonA, &t.TotalHorizonB, &t.TotalHorizonC,
	)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseNeedsListStatus(string(list.Status)); err != nil {
		return nil, fmt.Errorf("needs list %s: %w", list.ID, err)
	}
	return list, nil
}

func scanNeedsListItem(row pgx.Row) (*models.NeedsListItem, error) {
	item := &models.NeedsListItem{}
	var sources []byte
	err := row.Scan(
		&item.ID, &item.NeedsListID, &item.ItemID, &item.BurnRate, &item.BurnRateSource, &item.AvailableQty, &item.ReservedQty,
		&item.InboundTransferQty, &item.InboundDonationQty, &item.InboundProcurementQty, &item.CoverageQty, &item.RequiredQty, &item.GapQty,
		&item.TimeToStockoutHours, &item.Severity, &item.HorizonAQty, &item.HorizonBQty, &item.HorizonCQty, &sources,
		&item.HorizonBLeadTimeHours, &item.HorizonCLeadTimeHours, &item.AdjustedQty, &item.AdjustmentReason,
	)
	if err != nil {
		return nil, err
	}
	item.HorizonASources = []models.TransferSource{}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &item.HorizonASources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal horizon_a_sources: %w", err)
		}
	}
	return item, nil
}

func (r *needsListRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.NeedsList, error) {
	query := `SELECT ` + needsListColumns + ` FROM needs_lists WHERE id = $1`
	list, err := scanNeedsList(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "needs list %s", id)
	}
	return list, nil
}

func (r *needsListRepo) GetItems(ctx context.Context, needsListID uuid.UUID) ([]*models.NeedsListItem, error) {
	query := `SELECT ` + needsListItemColumns + ` FROM needs_list_items WHERE needs_list_id = $1 ORDER BY item_id`
	rows, err := r.db.Query(ctx, query, needsListID)
	if err != nil {
		return nil, fmt.Errorf("failed to list needs list items: %w", err)
	}
	defer rows.Close()

	var items []*models.NeedsListItem
	for rows.Next() {
		item, err := scanNeedsListItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan needs list item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *needsListRepo) GetItem(ctx context.Context, needsListID, lineID uuid.UUID) (*models.NeedsListItem, error) {
	query := `SELECT ` + needsListItemColumns + ` FROM needs_list_items WHERE needs_list_id = $1 AND id = $2`
	item, err := scanNeedsListItem(r.db.QueryRow(ctx, query, needsListID, lineID))
	if err != nil {
		return nil, notFound(err, "line %s on needs list %s", lineID, needsListID)
	}
	return item, nil
}

func (r *needsListRepo) List(ctx context.Context, filters *models.NeedsListFilters) ([]*models.NeedsList, error) {
	if filters == nil {
		filters = &models.NeedsListFilters{}
	}

	ds := database.Dialect.From("needs_lists").Select(needsListGoquColumns...)
	if filters.WarehouseID != nil {
		ds = ds.Where(goqu.C("warehouse_id").Eq(filters.WarehouseID.String()))
	}
	if filters.EventID != nil {
		ds = ds.Where(goqu.C("event_id").Eq(filters.EventID.String()))
	}
	if filters.Status != nil {
		ds = ds.Where(goqu.C("status").Eq(string(*filters.Status)))
	}
	ds = ds.Order(goqu.C("calculated_at").Desc(), goqu.C("id").Asc())
	if filters.Limit > 0 {
		ds = ds.Limit(uint(filters.Limit))
	}
	if filters.Offset > 0 {
		ds = ds.Offset(uint(filters.Offset))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build needs list query: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list needs lists: %w", err)
	}
	defer rows.Close()

	var lists []*models.NeedsList
	for rows.Next() {
		list, err := scanNeedsList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan needs list: %w", err)
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// bumpVersion advances the list version if it still equals expectedVersion.
func bumpVersion(ctx context.Context, tx pgx.Tx, list *models.NeedsList, expectedVersion int, now time.Time) error {
	query := `
		UPDATE needs_lists
		SET status = $1, escalation_level = $2, review_notes = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6
		RETURNING version
	`
	var version int
	err := tx.QueryRow(ctx, query, list.Status, list.EscalationLevel, list.ReviewNotes, now, list.ID, expectedVersion).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return errclass.ErrVersionConflict.WithMessagef("needs list %s changed since version %d", list.ID, expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("failed to update needs list: %w", err)
	}
	list.Version = version
	list.UpdatedAt = now
	return nil
}

func (r *needsListRepo) UpdateStatus(ctx context.Context, list *models.NeedsList, expectedVersion int, entry *models.AuditEntry) error {
	return database.WithTransaction(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := bumpVersion(ctx, tx, list, expectedVersion, time.Now().UTC()); err != nil {
			return err
		}
		return insertAuditEntry(ctx, tx, entry)
	})
}

func (r *needsListRepo) AdjustItemQuantity(ctx context.Context, list *models.NeedsList, expectedVersion int, item *models.NeedsListItem, entry *models.AuditEntry) error {
	return database.WithTransaction(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := bumpVersion(ctx, tx, list, expectedVersion, time.Now().UTC()); err != nil {
			return err
		}

		query := `
			UPDATE needs_list_items
			SET adjusted_qty = $1, adjustment_reason = $2
			WHERE id = $3 AND needs_list_id = $4
		`
		tag, err := tx.Exec(ctx, query, item.AdjustedQty, item.AdjustmentReason, item.ID, list.ID)
		if err != nil {
			return fmt.Errorf("failed to adjust needs list item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return errclass.ErrNotFound.WithMessagef("line %s on needs list %s", item.ID, list.ID)
		}
		return insertAuditEntry(ctx, tx, entry)
	})
}
