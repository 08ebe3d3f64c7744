package domain

import (
	"strconv"
	"time"
)

type EventType int

const (
	EventRoomUpdate EventType = iota
	EventJoinSuccess
	EventPlayerJoined
	EventPlayerLeft
	EventNumberCalled
	EventNumberMarked
	EventGameStarted
	EventGameWon
	EventGameReset
	EventRoomFull
	EventNameTaken
	EventServerStatus
	EventNotice
	EventError
)

var eventNames = map[EventType]string{
	EventRoomUpdate:   "room_update",
	EventJoinSuccess:  "join_success",
	EventPlayerJoined: "player_joined",
	EventPlayerLeft:   "player_left",
	EventNumberCalled: "number_called",
	EventNumberMarked: "number_marked",
	EventGameStarted:  "game_started",
	EventGameWon:      "game_won",
	EventGameReset:    "game_reset",
	EventRoomFull:     "room_full",
	EventNameTaken:    "name_taken",
	EventServerStatus: "server_status",
	EventNotice:       "notice",
	EventError:        "error",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

type ServerStatus struct {
	Status        string
	Rooms         int
	Connections   int
	DroppedEvents int64
}

// Event is one outbound message. Snapshot-carrying events are the source of truth;
// the others are convenience notifications.
type Event struct {
	Type      EventType
	RoomID    string
	Snapshot  *Snapshot
	Player    *Player
	Number    int
	Index     int
	Message   string
	Status    *ServerStatus
	Timestamp time.Time
}

func newEvent(t EventType, roomID string) Event {
	return Event{Type: t, RoomID: roomID, Timestamp: time.Now()}
}

func NewRoomUpdateEvent(snapshot Snapshot) Event {
	e := newEvent(EventRoomUpdate, snapshot.RoomID)
	e.Snapshot = &snapshot
	return e
}

func NewJoinSuccessEvent(roomID string, player Player) Event {
	e := newEvent(EventJoinSuccess, roomID)
	e.Player = &player
	return e
}

func NewPlayerJoinedEvent(roomID string, player Player) Event {
	e := newEvent(EventPlayerJoined, roomID)
	e.Player = &player
	return e
}

func NewPlayerLeftEvent(roomID string, player Player) Event {
	e := newEvent(EventPlayerLeft, roomID)
	e.Player = &player
	return e
}

func NewNumberCalledEvent(roomID string, number int) Event {
	e := newEvent(EventNumberCalled, roomID)
	e.Number = number
	return e
}

func NewNumberMarkedEvent(roomID string, player Player, index, number int) Event {
	e := newEvent(EventNumberMarked, roomID)
	e.Player = &player
	e.Index = index
	e.Number = number
	return e
}

func NewGameStartedEvent(roomID string) Event {
	return newEvent(EventGameStarted, roomID)
}

func NewGameWonEvent(roomID string, winner Player) Event {
	e := newEvent(EventGameWon, roomID)
	e.Player = &winner
	return e
}

func NewGameResetEvent(roomID string) Event {
	return newEvent(EventGameReset, roomID)
}

func NewRoomFullEvent(roomID string) Event {
	e := newEvent(EventRoomFull, roomID)
	e.Message = "room " + roomID + " already has " + strconv.Itoa(MaxMembers) + " players"
	return e
}

func NewNameTakenEvent(roomID, name string) Event {
	e := newEvent(EventNameTaken, roomID)
	e.Message = name + " is already used in room " + roomID
	return e
}

func NewServerStatusEvent(status ServerStatus) Event {
	e := newEvent(EventServerStatus, "")
	e.Status = &status
	return e
}

func NewNoticeEvent(roomID, message string) Event {
	e := newEvent(EventNotice, roomID)
	e.Message = message
	return e
}

func NewErrorEvent(roomID string, err error) Event {
	e := newEvent(EventError, roomID)
	e.Message = err.Error()
	return e
}

// IsBroadcast reports whether the event describes room state every member should see.
func (e Event) IsBroadcast() bool {
	switch e.Type {
	case EventRoomUpdate, EventPlayerJoined, EventPlayerLeft, EventNumberCalled,
		EventNumberMarked, EventGameStarted, EventGameWon, EventGameReset:
		return true
	default:
		return false
	}
}

func (e Event) String() string {
	s := e.Type.String()
	if e.RoomID != "" {
		s += " #" + e.RoomID
	}
	if e.Player != nil {
		s += " " + e.Player.String()
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}
