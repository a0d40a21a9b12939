package repositories

import (
	"context"
	"errors"
	"testing"

	"dmis/internal/models"
	"dmis/pkg/errclass"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepo_UpdatePhase(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepository(mock)
	eventID := uuid.New()
	entry := &models.AuditEntry{
		EntityType: models.EntityEvent,
		EntityID:   eventID,
		Action:     models.AuditPhaseChanged,
		ActorID:    uuid.New(),
		OldValues:  models.JSONB{"phase": "SURGE"},
		NewValues:  models.JSONB{"phase": "STABILIZED"},
	}

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectExec(`UPDATE events`).
		WithArgs(models.PhaseStabilized, pgxmock.AnyArg(), eventID, models.PhaseSurge).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO audit_entries`).
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdatePhase(context.Background(), eventID, models.PhaseSurge, models.PhaseStabilized, entry))

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectExec(`UPDATE events`).
		WithArgs(models.PhaseBaseline, pgxmock.AnyArg(), eventID, models.PhaseSurge).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err = repo.UpdatePhase(context.Background(), eventID, models.PhaseSurge, models.PhaseBaseline, entry)
	assert.True(t, errors.Is(err, errclass.ErrVersionConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`FROM events\s+WHERE id = \$1`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err = NewEventRepository(mock).GetByID(context.Background(), id)
	assert.True(t, errors.Is(err, errclass.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
