package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRepo_Load_UsesReadOnlyRepeatableRead(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	whID := uuid.New()
	lastSync := asOf.Add(-2 * time.Hour)
	created := asOf.Add(-24 * time.Hour)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	mock.ExpectQuery(`FROM warehouses\s+WHERE is_active = true`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "code", "name", "parish", "is_active", "created_at", "updated_at"}).
			AddRow(whID, "KGN", "Kingston", (*string)(nil), true, created, created))
	mock.ExpectQuery(`FROM warehouse_syncs`).
		WithArgs(asOf).
		WillReturnRows(pgxmock.NewRows([]string{"warehouse_id", "max"}).AddRow(whID, lastSync))
	mock.ExpectQuery(`FROM stock_positions`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	repo := NewSnapshotRepository(mock)
	snap, err := repo.Load(context.Background(), asOf, 720)

	assert.Nil(t, snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load stock positions")
	assert.NoError(t, mock.ExpectationsWereMet())
}
