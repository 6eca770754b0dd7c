package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/notifier"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"
)

var (
	ErrOrderItemNotFound  = errors.New("order item not found")
	ErrInvalidTransition  = errors.New("invalid kitchen status transition")
	ErrTransitionConflict = errors.New("item is no longer in the expected kitchen status")
)

type AdvanceItemRequest struct {
	Status string `json:"status" binding:"required"`
}

// KitchenService serves the kitchen board and moves items through their states.
type KitchenService interface {
	Queue(ctx context.Context, tenantID int64) ([]models.KitchenTicket, error)
	Advance(ctx context.Context, tenantID int64, role string, itemID int64, to string) (*models.OrderItem, error)
}

type kitchenService struct {
	kitchenRepo repositories.KitchenRepository
	events      notifier.Notifier
	db          *sql.DB
}

// NewKitchenService creates a new instance of KitchenService.
func NewKitchenService(kitchenRepo repositories.KitchenRepository, events notifier.Notifier, db *sql.DB) KitchenService {
	if events == nil {
		events = notifier.Noop{}
	}
	return &kitchenService{kitchenRepo: kitchenRepo, events: events, db: db}
}

// canMoveTo tells which roles drive which step: the kitchen cooks, waiters serve.
// Admins may do both.
func canMoveTo(role, to string) bool {
	if role == models.RoleAdmin {
		return true
	}
	switch to {
	case models.ItemStatusPreparing, models.ItemStatusReady:
		return role == models.RoleKitchen
	case models.ItemStatusServed:
		return role == models.RoleWaiter || role == models.RoleCashier
	}
	return false
}

func (s *kitchenService) Queue(ctx context.Context, tenantID int64) ([]models.KitchenTicket, error) {
	tickets, err := s.kitchenRepo.GetQueue(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get kitchen queue: %w", err)
	}
	return tickets, nil
}

// Advance performs one step of the kitchen state machine. The transition graph and
// the role are checked before the database is touched; the UPDATE itself is guarded
// on the expected previous state, so two people pressing the same button get one
// success and one ErrTransitionConflict.
func (s *kitchenService) Advance(ctx context.Context, tenantID int64, role string, itemID int64, to string) (*models.OrderItem, error) {
	from, ok := models.PreviousItemStatus(to)
	if !ok {
		return nil, fmt.Errorf("%w: cannot move an item to %q", ErrInvalidTransition, to)
	}
	if !canMoveTo(role, to) {
		return nil, fmt.Errorf("%w: role %s cannot mark items %s", ErrForbidden, role, to)
	}

	moved, err := s.kitchenRepo.AdvanceItem(ctx, s.db, tenantID, itemID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to advance item %d: %w", itemID, err)
	}

	item, err := s.kitchenRepo.GetItem(ctx, s.db, tenantID, itemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderItemNotFound
		}
		return nil, fmt.Errorf("failed to reload item %d: %w", itemID, err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: item %d is %s, expected %s", ErrTransitionConflict, itemID, item.Status, from)
	}

	publishKitchenEvents(s.events, notifier.KitchenEvent{
		TenantID:   tenantID,
		OrderID:    item.OrderID,
		ItemID:     item.ID,
		From:       from,
		To:         to,
		OccurredAt: time.Now(),
	})
	return item, nil
}

// publishKitchenEvents runs after the state change is committed. A broker failure
// is logged and never undoes the change.
func publishKitchenEvents(events notifier.Notifier, batch ...notifier.KitchenEvent) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := events.Publish(ctx, batch...); err != nil {
		utils.LogWarn("Kitchen events not delivered", map[string]interface{}{"error": err.Error(), "events": len(batch)})
	}
}

func dispatchEvents(tenantID, orderID int64, itemIDs []int64) []notifier.KitchenEvent {
	now := time.Now()
	batch := make([]notifier.KitchenEvent, 0, len(itemIDs))
	for _, id := range itemIDs {
		batch = append(batch, notifier.KitchenEvent{
			TenantID:   tenantID,
			OrderID:    orderID,
			ItemID:     id,
			From:       models.ItemStatusPending,
			To:         models.ItemStatusSent,
			OccurredAt: now,
		})
	}
	return batch
}
