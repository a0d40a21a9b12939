package repositories

import (
	"context"
	"fmt"
	"time"

	"dmis/internal/models"
	"dmis/pkg/database"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type EventRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListActive(ctx context.Context) ([]*models.Event, error)
	// UpdatePhase moves the event from one phase to another and records entry
	// in the same transaction. It fails if the phase changed underneath.
	UpdatePhase(ctx context.Context, eventID uuid.UUID, from, to models.EventPhase, entry *models.AuditEntry) error
}

type eventRepo struct {
	db database.DB
}

func NewEventRepository(db database.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, name, phase, phase_changed_at, is_active, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&event.ID, &event.Name, &event.Phase, &event.PhaseChangedAt, &event.IsActive, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "event %s", id)
	}
	if _, err := models.ParseEventPhase(string(event.Phase)); err != nil {
		return nil, fmt.Errorf("event %s: %w", id, err)
	}
	return event, nil
}

func (r *eventRepo) ListActive(ctx context.Context) ([]*models.Event, error) {
	query := `
		SELECT id, name, phase, phase_changed_at, is_active, created_at, updated_at
		FROM events
		WHERE is_active = true
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e := &models.Event{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Phase, &e.PhaseChangedAt, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepo) UpdatePhase(ctx context.Context, eventID uuid.UUID, from, to models.EventPhase, entry *models.AuditEntry) error {
	return database.WithTransaction(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		query := `
			UPDATE events
			SET phase = $1, phase_changed_at = $2, updated_at = $2
			WHERE id = $3 AND phase = $4
		`
		tag, err := tx.Exec(ctx, query, to, time.Now().UTC(), eventID, from)
		if err != nil {
			return fmt.Errorf("failed to update event phase: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return errclass.ErrVersionConflict.WithMessagef("event %s is no longer in phase %s", eventID, from)
		}
		return insertAuditEntry(ctx, tx, entry)
	})
}
