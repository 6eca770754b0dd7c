package notifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutingKey(t *testing.T) {
	e := KitchenEvent{TenantID: 7, ItemID: 3, From: "sent", To: "preparing"}
	assert.Equal(t, "kitchen.7.preparing", e.RoutingKey())
}

func TestNewWithoutURLIsNoop(t *testing.T) {
	n, err := New("", "")
	require.NoError(t, err)
	assert.IsType(t, Noop{}, n)
	assert.NoError(t, n.Publish(context.Background(), KitchenEvent{ItemID: 1}))
	assert.NoError(t, n.Close())
}
