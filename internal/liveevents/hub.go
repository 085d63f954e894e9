// Package liveevents fans balance changes out to connected clients so a
// customer's displayed points refresh without polling. Delivery is best
// effort; the ledger stays the source of truth.
package liveevents

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

// BalanceEvent is one committed balance change for an account.
type BalanceEvent struct {
	ShopID       snowflake.ID `json:"shop_id"`
	AccountKind  string       `json:"account_kind"`
	AccountID    snowflake.ID `json:"account_id"`
	Kind         string       `json:"kind"`
	Delta        int64        `json:"delta"`
	BalanceAfter int64        `json:"balance_after"`
	OccurredAt   time.Time    `json:"occurred_at"`
}

// StreamKey scopes a subscription to one shop+account pair.
func StreamKey(shopID snowflake.ID, accountKind string, accountID snowflake.ID) string {
	return fmt.Sprintf("%d:%s:%d", shopID, accountKind, accountID)
}

type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []BalanceEvent
	subs   map[uint64]chan BalanceEvent
	nextID uint64
}

type Subscription struct {
	hub  *Hub
	key  string
	id   uint64
	ch   chan BalanceEvent
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Publish delivers an event to current subscribers of the account's
// stream. Slow subscribers drop events rather than block the publisher.
func (h *Hub) Publish(event BalanceEvent) {
	if h == nil {
		return
	}
	key := StreamKey(event.ShopID, event.AccountKind, event.AccountID)

	h.mu.RLock()
	stream := h.streams[key]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	stream.buffer = append(stream.buffer, event)
	if len(stream.buffer) > h.bufferSize {
		stream.buffer = stream.buffer[len(stream.buffer)-h.bufferSize:]
	}
	subs := make([]chan BalanceEvent, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe attaches to an account's stream and returns the buffered
// backlog so a reconnecting client catches up on recent changes.
func (h *Hub) Subscribe(key string) (*Subscription, []BalanceEvent, error) {
	if h == nil {
		return nil, nil, errors.New("hub_unavailable")
	}
	if key == "" {
		return nil, nil, errors.New("invalid_stream_key")
	}

	stream := h.ensureStream(key)
	stream.mu.Lock()
	if stream.subs == nil {
		stream.subs = make(map[uint64]chan BalanceEvent)
	}
	id := stream.nextID
	stream.nextID++
	ch := make(chan BalanceEvent, h.subscriberBuffer)
	stream.subs[id] = ch
	backlog := append([]BalanceEvent(nil), stream.buffer...)
	stream.mu.Unlock()

	return &Subscription{hub: h, key: key, id: id, ch: ch}, backlog, nil
}

func (h *Hub) ensureStream(key string) *stream {
	h.mu.RLock()
	current := h.streams[key]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[key]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan BalanceEvent)}
		h.streams[key] = current
	}
	return current
}

func (h *Hub) unsubscribe(key string, id uint64) {
	if h == nil {
		return
	}

	h.mu.RLock()
	stream := h.streams[key]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	current := h.streams[key]
	if current != stream {
		h.mu.Unlock()
		return
	}
	stream.mu.Lock()
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(h.streams, key)
	}
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan BalanceEvent {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.key, s.id)
	})
}
