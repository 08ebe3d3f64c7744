package domain

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrConnectionNotRegistered = errors.New("connection not registered")
	ErrConnectionRegistered    = errors.New("connection already registered")
)

type hubImpl struct {
	mu sync.RWMutex
	// connection id -> outbox
	outboxes map[string]chan<- Event
	// room id -> connection id -> player id
	rooms map[string]map[string]string
	// connection id -> room id -> player id
	memberships map[string]map[string]string
	stats       HubStats
	delivered   atomic.Int64
	dropped     atomic.Int64
	startTime   time.Time
}

func NewHub() Hub {
	return &hubImpl{
		outboxes:    make(map[string]chan<- Event),
		rooms:       make(map[string]map[string]string),
		memberships: make(map[string]map[string]string),
		startTime:   time.Now(),
	}
}

func (h *hubImpl) Register(connID string, outbox chan<- Event) error {
	if connID == "" || outbox == nil {
		return fmt.Errorf("invalid connection registration")
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.outboxes[connID]; ok {
		return fmt.Errorf("%w: %s", ErrConnectionRegistered, connID)
	}
	h.outboxes[connID] = outbox
	h.memberships[connID] = make(map[string]string)
	h.stats.ActiveConnections = len(h.outboxes)
	return nil
}

// Unregister forgets the connection and returns the rooms it was subscribed to.
// No event is delivered to the outbox once Unregister has returned.
func (h *hubImpl) Unregister(connID string) map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined := h.memberships[connID]
	for roomID := range joined {
		h.removeSubscriber(roomID, connID)
	}
	delete(h.memberships, connID)
	delete(h.outboxes, connID)
	h.stats.ActiveConnections = len(h.outboxes)
	h.stats.ActiveRooms = len(h.rooms)
	return joined
}

func (h *hubImpl) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.outboxes)
}

func (h *hubImpl) Subscribe(connID, roomID, playerID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.memberships[connID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotRegistered, connID)
	}
	if _, exists := joined[roomID]; exists {
		return ErrAlreadyJoined
	}
	joined[roomID] = playerID

	subscribers, exists := h.rooms[roomID]
	if !exists {
		subscribers = make(map[string]string)
		h.rooms[roomID] = subscribers
	}
	subscribers[connID] = playerID
	h.stats.ActiveRooms = len(h.rooms)
	return nil
}

func (h *hubImpl) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if joined, ok := h.memberships[connID]; ok {
		delete(joined, roomID)
	}
	h.removeSubscriber(roomID, connID)
	h.stats.ActiveRooms = len(h.rooms)
}

func (h *hubImpl) removeSubscriber(roomID, connID string) {
	subscribers, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(subscribers, connID)
	if len(subscribers) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *hubImpl) PlayerOf(connID, roomID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	playerID, ok := h.memberships[connID][roomID]
	return playerID, ok
}

func (h *hubImpl) Send(connID string, events ...Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	outbox, ok := h.outboxes[connID]
	if !ok {
		return
	}
	for _, e := range events {
		h.deliver(outbox, e)
	}
}

// Broadcast delivers the events, in order, to every connection subscribed to the room.
func (h *hubImpl) Broadcast(roomID string, events ...Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID := range h.rooms[roomID] {
		outbox, ok := h.outboxes[connID]
		if !ok {
			continue
		}
		for _, e := range events {
			h.deliver(outbox, e)
		}
	}
}

// deliver never blocks; a full outbox loses the event and the next snapshot resyncs the client.
func (h *hubImpl) deliver(outbox chan<- Event, e Event) {
	select {
	case outbox <- e:
		h.delivered.Add(1)
	default:
		h.dropped.Add(1)
	}
}

func (h *hubImpl) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := h.stats
	stats.DeliveredEvents = h.delivered.Load()
	stats.DroppedEvents = h.dropped.Load()
	stats.Uptime = time.Since(h.startTime).String()
	return stats
}
