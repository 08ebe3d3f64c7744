package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch chan Event) []Event {
	var events []Event
	for {
		select {
		case e := <-ch:
			events = append(events, e)
		default:
			return events
		}
	}
}

func registered(t *testing.T, h Hub, connID string, size int) chan Event {
	t.Helper()
	ch := make(chan Event, size)
	require.NoError(t, h.Register(connID, ch))
	return ch
}

func TestHub_BroadcastReachesOnlyRoomSubscribers(t *testing.T) {
	h := NewHub()
	a := registered(t, h, "conn-a", 8)
	b := registered(t, h, "conn-b", 8)
	c := registered(t, h, "conn-c", 8)

	require.NoError(t, h.Subscribe("conn-a", "ROOM01", "p-a"))
	require.NoError(t, h.Subscribe("conn-b", "ROOM01", "p-b"))
	require.NoError(t, h.Subscribe("conn-c", "ROOM02", "p-c"))

	h.Broadcast("ROOM01", NewNumberCalledEvent("ROOM01", 7), NewGameStartedEvent("ROOM01"))

	for _, ch := range []chan Event{a, b} {
		events := drain(ch)
		require.Len(t, events, 2)
		assert.Equal(t, EventNumberCalled, events[0].Type)
		assert.Equal(t, 7, events[0].Number)
		assert.Equal(t, EventGameStarted, events[1].Type)
	}
	assert.Empty(t, drain(c))
}

func TestHub_Send(t *testing.T) {
	h := NewHub()
	a := registered(t, h, "conn-a", 8)
	b := registered(t, h, "conn-b", 8)

	h.Send("conn-a", NewNoticeEvent("", "hello"))
	h.Send("conn-unknown", NewNoticeEvent("", "lost"))

	events := drain(a)
	require.Len(t, events, 1)
	assert.Equal(t, "hello", events[0].Message)
	assert.Empty(t, drain(b))
}

func TestHub_Subscribe(t *testing.T) {
	h := NewHub()
	registered(t, h, "conn-a", 1)

	assert.ErrorIs(t, h.Subscribe("conn-x", "ROOM01", "p"), ErrConnectionNotRegistered)

	require.NoError(t, h.Subscribe("conn-a", "ROOM01", "p-a"))
	assert.ErrorIs(t, h.Subscribe("conn-a", "ROOM01", "p-a2"), ErrAlreadyJoined)

	// one connection may sit in several rooms
	require.NoError(t, h.Subscribe("conn-a", "ROOM02", "p-a3"))

	pid, ok := h.PlayerOf("conn-a", "ROOM01")
	assert.True(t, ok)
	assert.Equal(t, "p-a", pid)
	pid, ok = h.PlayerOf("conn-a", "ROOM02")
	assert.True(t, ok)
	assert.Equal(t, "p-a3", pid)
	_, ok = h.PlayerOf("conn-a", "ROOM03")
	assert.False(t, ok)

	assert.Equal(t, 2, h.Stats().ActiveRooms)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	a := registered(t, h, "conn-a", 4)
	b := registered(t, h, "conn-b", 4)
	require.NoError(t, h.Subscribe("conn-a", "ROOM01", "p-a"))
	require.NoError(t, h.Subscribe("conn-b", "ROOM01", "p-b"))

	h.Unsubscribe("conn-a", "ROOM01")
	h.Broadcast("ROOM01", NewGameResetEvent("ROOM01"))
	assert.Empty(t, drain(a))
	assert.Len(t, drain(b), 1)
	_, ok := h.PlayerOf("conn-a", "ROOM01")
	assert.False(t, ok)
	assert.Equal(t, 1, h.Stats().ActiveRooms)

	h.Unsubscribe("conn-b", "ROOM01")
	assert.Zero(t, h.Stats().ActiveRooms)
}

func TestHub_UnregisterReturnsMembershipsAndStopsDelivery(t *testing.T) {
	h := NewHub()
	a := registered(t, h, "conn-a", 4)
	registered(t, h, "conn-b", 4)
	require.NoError(t, h.Subscribe("conn-a", "ROOM01", "p-a"))
	require.NoError(t, h.Subscribe("conn-a", "ROOM02", "p-a2"))
	require.NoError(t, h.Subscribe("conn-b", "ROOM01", "p-b"))

	joined := h.Unregister("conn-a")
	assert.Equal(t, map[string]string{"ROOM01": "p-a", "ROOM02": "p-a2"}, joined)
	assert.Equal(t, 1, h.ConnectionCount())
	assert.Equal(t, 1, h.Stats().ActiveRooms)
	_, ok := h.PlayerOf("conn-a", "ROOM01")
	assert.False(t, ok)

	h.Broadcast("ROOM01", NewGameResetEvent("ROOM01"))
	h.Send("conn-a", NewNoticeEvent("", "late"))
	assert.Empty(t, drain(a))

	assert.Empty(t, h.Unregister("conn-a"))
}

func TestHub_FullOutboxDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	slow := registered(t, h, "conn-slow", 1)
	fast := registered(t, h, "conn-fast", 8)
	require.NoError(t, h.Subscribe("conn-slow", "ROOM01", "p-slow"))
	require.NoError(t, h.Subscribe("conn-fast", "ROOM01", "p-fast"))

	for n := 1; n <= 3; n++ {
		h.Broadcast("ROOM01", NewNumberCalledEvent("ROOM01", n))
	}

	assert.Len(t, drain(slow), 1)
	assert.Len(t, drain(fast), 3)
	stats := h.Stats()
	assert.Equal(t, int64(4), stats.DeliveredEvents)
	assert.Equal(t, int64(2), stats.DroppedEvents)
	assert.Equal(t, 2, stats.ActiveConnections)
	assert.Equal(t, 1, stats.ActiveRooms)
}

func TestHub_ConcurrentRegistration(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", i)
			ch := make(chan Event, 4)
			if err := h.Register(connID, ch); err != nil {
				t.Error(err)
				return
			}
			if err := h.Subscribe(connID, "ROOM01", connID); err != nil {
				t.Error(err)
			}
			h.Broadcast("ROOM01", NewGameStartedEvent("ROOM01"))
			h.Unregister(connID)
		}()
	}
	wg.Wait()
	assert.Zero(t, h.ConnectionCount())
	assert.Zero(t, h.Stats().ActiveRooms)
}

func TestHub_RegisterRejectsInvalidConnection(t *testing.T) {
	h := NewHub()
	assert.Error(t, h.Register("", make(chan Event)))
	assert.Error(t, h.Register("conn", nil))

	require.NoError(t, h.Register("conn", make(chan Event)))
	assert.ErrorIs(t, h.Register("conn", make(chan Event)), ErrConnectionRegistered)
	assert.Equal(t, 1, h.ConnectionCount())
}
