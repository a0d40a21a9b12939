package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dmis/internal/models"
	"dmis/pkg/database"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AuditRepository exposes the append-only audit trail. Entries are only ever
// inserted; there is no update or delete.
type AuditRepository interface {
	// Append writes a standalone entry outside any other transaction
	Append(ctx context.Context, entry *models.AuditEntry) error

	// ListByNeedsList returns a list's history, oldest first
	ListByNeedsList(ctx context.Context, needsListID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error)

	// List audit entries with filtering options, newest first
	List(ctx context.Context, filters *models.AuditEntryFilters) ([]*models.AuditEntry, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type auditRepo struct {
	db database.DB
}

func NewAuditRepository(db database.DB) AuditRepository {
	return &auditRepo{db: db}
}

var auditColumns = []interface{}{
	"id", "entity_type", "entity_id", "needs_list_id", "action", "actor_id",
	"reason_code", "reason", "old_values", "new_values", "created_at",
}

const insertAuditQuery = `
		INSERT INTO audit_entries (id, entity_type, entity_id, needs_list_id, action, actor_id, reason_code, reason, old_values, new_values, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

// insertAuditEntry writes entry through q, which is either the pool or the
// transaction that performs the audited mutation.
func insertAuditEntry(ctx context.Context, q execer, entry *models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	oldValuesBytes, err := marshalJSONB(entry.OldValues)
	if err != nil {
		return fmt.Errorf("failed to marshal old_values: %w", err)
	}
	newValuesBytes, err := marshalJSONB(entry.NewValues)
	if err != nil {
		return fmt.Errorf("failed to marshal new_values: %w", err)
	}

	_, err = q.Exec(ctx, insertAuditQuery,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.NeedsListID,
		entry.Action,
		entry.ActorID,
		entry.ReasonCode,
		entry.Reason,
		oldValuesBytes,
		newValuesBytes,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func marshalJSONB(v models.JSONB) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (r *auditRepo) Append(ctx context.Context, entry *models.AuditEntry) error {
	return insertAuditEntry(ctx, r.db, entry)
}

func (r *auditRepo) ListByNeedsList(ctx context.Context, needsListID uuid.UUID, limit, offset int) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, entity_type, entity_id, needs_list_id, action, actor_id, reason_code, reason, old_values, new_values, created_at
		FROM audit_entries
		WHERE needs_list_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, needsListID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return scanAuditEntries(rows)
}

func (r *auditRepo) List(ctx context.Context, filters *models.AuditEntryFilters) ([]*models.AuditEntry, error) {
	if filters == nil {
		filters = &models.AuditEntryFilters{}
	}

	ds := database.Dialect.From("audit_entries").Select(auditColumns...)
	if filters.NeedsListID != nil {
		ds = ds.Where(goqu.C("needs_list_id").Eq(filters.NeedsListID.String()))
	}
	if filters.EntityType != nil {
		ds = ds.Where(goqu.C("entity_type").Eq(*filters.EntityType))
	}
	if filters.Action != nil {
		ds = ds.Where(goqu.C("action").Eq(*filters.Action))
	}
	if filters.ActorID != nil {
		ds = ds.Where(goqu.C("actor_id").Eq(filters.ActorID.String()))
	}
	if filters.StartDate != nil {
		ds = ds.Where(goqu.C("created_at").Gte(*filters.StartDate))
	}
	if filters.EndDate != nil {
		ds = ds.Where(goqu.C("created_at").Lte(*filters.EndDate))
	}
	ds = ds.Order(goqu.C("created_at").Desc())
	if filters.Limit > 0 {
		ds = ds.Limit(uint(filters.Limit))
	}
	if filters.Offset > 0 {
		ds = ds.Offset(uint(filters.Offset))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit query: %w", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return scanAuditEntries(rows)
}

func scanAuditEntries(rows pgx.Rows) ([]*models.AuditEntry, error) {
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry := &models.AuditEntry{}
		var oldValuesBytes, newValuesBytes []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.NeedsListID,
			&entry.Action,
			&entry.ActorID,
			&entry.ReasonCode,
			&entry.Reason,
			&oldValuesBytes,
			&newValuesBytes,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(oldValuesBytes) > 0 {
			if err := json.Unmarshal(oldValuesBytes, &entry.OldValues); err != nil {
				return nil, fmt.Errorf("failed to unmarshal old_values: %w", err)
			}
		}
		if len(newValuesBytes) > 0 {
			if err := json.Unmarshal(newValuesBytes, &entry.NewValues); err != nil {
				return nil, fmt.Errorf("failed to unmarshal new_values: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
