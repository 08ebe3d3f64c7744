package domain

// Subscriptions maps rooms to the connections that receive their events.
type Subscriptions interface {
	Subscribe(connID, roomID, playerID string) error
	Unsubscribe(connID, roomID string)
	PlayerOf(connID, roomID string) (string, bool)
}

type Broadcaster interface {
	Register(connID string, outbox chan<- Event) error
	Unregister(connID string) map[string]string
	ConnectionCount() int

	Send(connID string, events ...Event)
	Broadcast(roomID string, events ...Event)
}

type Hub interface {
	Subscriptions
	Broadcaster

	Stats() HubStats
}

type HubStats struct {
	ActiveRooms       int
	ActiveConnections int
	DeliveredEvents   int64
	DroppedEvents     int64
	Uptime            string
}
