// Package realtime fans walk log changes out to live subscribers, keyed by table.
package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// Change types mirrored to subscribers.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// TableWalks is the only table currently mirrored.
const TableWalks = "walks"

const defaultBuffer = 16

// ErrClosed is returned when subscribing to a hub that has been shut down.
var ErrClosed = errors.New("realtime: hub closed")

// Change is one row-level change delivered to subscribers.
type Change struct {
	Table     string          `json:"table"`
	Type      string          `json:"type"`
	Record    json.RawMessage `json:"record"`
	Timestamp time.Time       `json:"timestamp"`
}

// Subscription receives changes for one table until closed.
type Subscription struct {
	table string
	ch    chan Change
	hub   *Hub
	once  sync.Once
}

// C returns the delivery channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Change { return s.ch }

// Table returns the subscribed table.
func (s *Subscription) Table() string { return s.table }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Hub is an in-process publish/subscribe channel keyed by table.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
}

// NewHub creates a hub whose subscribers buffer up to buffer changes.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber for table.
func (h *Hub) Subscribe(table string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{table: table, ch: make(chan Change, h.buffer), hub: h}
	if h.subs[table] == nil {
		h.subs[table] = make(map[*Subscription]struct{})
	}
	h.subs[table][sub] = struct{}{}
	subscribersGauge.WithLabelValues(table).Inc()
	return sub, nil
}

// Unsubscribe removes sub and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

// Publish delivers change to every subscriber of change.Table and returns the
// number of subscribers reached. A subscriber whose buffer is full is dropped.
func (h *Hub) Publish(change Change) int {
	h.mu.RLock()
	var (
		delivered int
		slow      []*Subscription
	)
	for sub := range h.subs[change.Table] {
		select {
		case sub.ch <- change:
			delivered++
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, sub := range slow {
			h.removeLocked(sub)
			droppedCounter.WithLabelValues(change.Table).Inc()
		}
		h.mu.Unlock()
	}
	publishedCounter.WithLabelValues(change.Table, change.Type).Inc()
	return delivered
}

// Subscribers reports the number of live subscribers for table.
func (h *Hub) Subscribers(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, set := range h.subs {
		for sub := range set {
			h.removeLocked(sub)
		}
	}
}

func (h *Hub) removeLocked(sub *Subscription) {
	set, ok := h.subs[sub.table]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.table)
	}
	subscribersGauge.WithLabelValues(sub.table).Dec()
	sub.once.Do(func() { close(sub.ch) })
}
