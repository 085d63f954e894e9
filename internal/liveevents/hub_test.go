package liveevents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscriber(t *testing.T) {
	hub := NewHub()
	key := StreamKey(100, "customer", 7)

	sub, backlog, err := hub.Subscribe(key)
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, backlog)

	hub.Publish(BalanceEvent{ShopID: 100, AccountKind: "customer", AccountID: 7, Kind: "point_added", Delta: 1, BalanceAfter: 4})

	select {
	case event := <-sub.Events():
		assert.Equal(t, int64(4), event.BalanceAfter)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
}

func TestSubscribeReplaysBacklog(t *testing.T) {
	hub := NewHub()
	key := StreamKey(100, "customer", 7)

	first, _, err := hub.Subscribe(key)
	require.NoError(t, err)

	hub.Publish(BalanceEvent{ShopID: 100, AccountKind: "customer", AccountID: 7, BalanceAfter: 1})
	hub.Publish(BalanceEvent{ShopID: 100, AccountKind: "customer", AccountID: 7, BalanceAfter: 2})

	second, backlog, err := hub.Subscribe(key)
	require.NoError(t, err)
	defer second.Close()
	require.Len(t, backlog, 2)
	assert.Equal(t, int64(2), backlog[1].BalanceAfter)

	first.Close()
}

func TestPublishToOtherAccountNotDelivered(t *testing.T) {
	hub := NewHub()
	sub, _, err := hub.Subscribe(StreamKey(100, "customer", 7))
	require.NoError(t, err)
	defer sub.Close()

	hub.Publish(BalanceEvent{ShopID: 100, AccountKind: "customer", AccountID: 8, BalanceAfter: 1})

	select {
	case <-sub.Events():
		t.Fatal("event leaked across accounts")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	sub, _, err := hub.Subscribe(StreamKey(100, "customer", 7))
	require.NoError(t, err)
	sub.Close()
	sub.Close()
}
