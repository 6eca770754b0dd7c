package services

import (
	"context"
	"testing"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/plans"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteTable(t *testing.T) {
	ctx := context.Background()
	tables := &fakeTableRepo{tables: map[int64]*models.DiningTable{
		3: {ID: 3, TenantID: 1, Name: "Terrace 3", Seats: 4, Status: models.TableStatusOccupied},
		4: {ID: 4, TenantID: 1, Name: "Bar 1", Seats: 2, Status: models.TableStatusFree},
	}}
	svc := NewTableService(tables, newFakeTenantRepo("basic"), plans.Default(), nil)

	assert.ErrorIs(t, svc.DeleteTable(ctx, 1, 3), ErrTableOccupied)
	assert.Contains(t, tables.tables, int64(3))

	assert.ErrorIs(t, svc.DeleteTable(ctx, 2, 4), ErrTableNotFound)

	require.NoError(t, svc.DeleteTable(ctx, 1, 4))
	assert.NotContains(t, tables.tables, int64(4))
	assert.ErrorIs(t, svc.DeleteTable(ctx, 1, 4), ErrTableNotFound)
}

func TestDeleteTable_AfterItsOrdersAreClosed(t *testing.T) {
	f := newPOSFixture(t)
	svc := NewTableService(f.tables, f.tenants, plans.Default(), nil)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	order, err := f.orderSvc.OpenOrder(context.Background(), 1, 5, OpenOrderRequest{TableID: int64Ptr(3)})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteTable(context.Background(), 1, 3), ErrTableOccupied)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.orderSvc.CancelOrder(context.Background(), 1, order.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTable(context.Background(), 1, 3))
	assert.NotContains(t, f.tables.tables, int64(3))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
