package services

import (
	"context"
	"testing"

	"restaurant_pos_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanMoveTo(t *testing.T) {
	tests := []struct {
		role string
		to   string
		want bool
	}{
		{models.RoleKitchen, models.ItemStatusPreparing, true},
		{models.RoleKitchen, models.ItemStatusReady, true},
		{models.RoleKitchen, models.ItemStatusServed, false},
		{models.RoleWaiter, models.ItemStatusServed, true},
		{models.RoleWaiter, models.ItemStatusPreparing, false},
		{models.RoleCashier, models.ItemStatusServed, true},
		{models.RoleCashier, models.ItemStatusReady, false},
		{models.RoleAdmin, models.ItemStatusReady, true},
		{models.RoleAdmin, models.ItemStatusServed, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canMoveTo(tt.role, tt.to), "%s -> %s", tt.role, tt.to)
	}
}

func newKitchenFixture(status string) (*fakeOrderRepo, *recordingNotifier, KitchenService) {
	orders := newFakeOrderRepo()
	order := &models.Order{TenantID: 1, Status: models.OrderStatusOpen}
	_, _ = orders.CreateOrder(context.Background(), nil, order)
	item := &models.OrderItem{OrderID: order.ID, TenantID: 1, ProductID: 10, ProductName: "Burger", Quantity: dec("1")}
	_, _ = orders.CreateOrderItem(context.Background(), nil, item)
	orders.items[item.ID].Status = status

	events := &recordingNotifier{}
	return orders, events, NewKitchenService(&fakeKitchenRepo{orders: orders}, events, nil)
}

func TestKitchenAdvance_FullLifecycle(t *testing.T) {
	orders, events, svc := newKitchenFixture(models.ItemStatusSent)
	const itemID = 2

	steps := []struct {
		role string
		to   string
	}{
		{models.RoleKitchen, models.ItemStatusPreparing},
		{models.RoleKitchen, models.ItemStatusReady},
		{models.RoleWaiter, models.ItemStatusServed},
	}
	for _, step := range steps {
		item, err := svc.Advance(context.Background(), 1, step.role, itemID, step.to)
		require.NoError(t, err, step.to)
		assert.Equal(t, step.to, item.Status)
	}

	assert.Equal(t, models.ItemStatusServed, orders.items[itemID].Status)
	require.Len(t, events.events, 3)
	assert.Equal(t, models.ItemStatusReady, events.events[2].From)
	assert.Equal(t, models.ItemStatusServed, events.events[2].To)
}

func TestKitchenAdvance_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		role    string
		to      string
		itemID  int64
		wantErr error
	}{
		{"dispatch is not a kitchen step", models.ItemStatusPending, models.RoleAdmin, models.ItemStatusSent, 2, ErrInvalidTransition},
		{"unknown target", models.ItemStatusSent, models.RoleAdmin, "burnt", 2, ErrInvalidTransition},
		{"waiter cannot cook", models.ItemStatusSent, models.RoleWaiter, models.ItemStatusPreparing, 2, ErrForbidden},
		{"kitchen cannot serve", models.ItemStatusReady, models.RoleKitchen, models.ItemStatusServed, 2, ErrForbidden},
		{"skipping preparing", models.ItemStatusSent, models.RoleKitchen, models.ItemStatusReady, 2, ErrTransitionConflict},
		{"already served", models.ItemStatusServed, models.RoleWaiter, models.ItemStatusServed, 2, ErrTransitionConflict},
		{"missing item", models.ItemStatusSent, models.RoleKitchen, models.ItemStatusPreparing, 77, ErrOrderItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, events, svc := newKitchenFixture(tt.status)
			_, err := svc.Advance(context.Background(), 1, tt.role, tt.itemID, tt.to)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, events.events)
			if it, ok := orders.items[2]; ok {
				assert.Equal(t, tt.status, it.Status)
			}
		})
	}
}

func TestKitchenAdvance_OtherTenant(t *testing.T) {
	_, _, svc := newKitchenFixture(models.ItemStatusSent)
	_, err := svc.Advance(context.Background(), 2, models.RoleKitchen, 2, models.ItemStatusPreparing)
	assert.ErrorIs(t, err, ErrOrderItemNotFound)
}
