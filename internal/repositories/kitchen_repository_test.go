package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"restaurant_pos_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceItemGuardedUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewKitchenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE order_items SET status = $1, prepared_at = $2`)).
		WithArgs(models.ItemStatusPreparing, sqlmock.AnyArg(), int64(3), int64(1), models.ItemStatusSent).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE order_items SET status = $1, prepared_at = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err := repo.AdvanceItem(context.Background(), nil, 1, 3, models.ItemStatusSent, models.ItemStatusPreparing)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.AdvanceItem(context.Background(), nil, 1, 3, models.ItemStatusSent, models.ItemStatusPreparing)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetQueueComputesElapsed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewKitchenRepository(db)

	sent := time.Now().Add(-90 * time.Second)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items oi`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "name", "product_name", "quantity", "notes", "status", "sent_at"}).
			AddRow(int64(1), int64(2), "T1", "Soup", "2", nil, models.ItemStatusSent, sent).
			AddRow(int64(3), int64(4), nil, "Cake", "1", "no sugar", models.ItemStatusReady, sent))

	tickets, err := repo.GetQueue(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "T1", *tickets[0].TableName)
	assert.Nil(t, tickets[1].TableName)
	assert.GreaterOrEqual(t, tickets[0].ElapsedSeconds, int64(90))
	assert.Equal(t, "2", tickets[0].Quantity.String())
}
