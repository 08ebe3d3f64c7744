package adaptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ponyo877/bingo/server/domain"
)

var ErrMalformedMessage = errors.New("malformed message")

// envelope is the frame layout in both directions: {"type": "...", "data": {...}}.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type requestPayload struct {
	RoomID         string `json:"roomId"`
	PlayerID       string `json:"playerId"`
	Name           string `json:"name"`
	Board          []int  `json:"board"`
	Number         int    `json:"number"`
	Index          *int   `json:"index"`
	CompletedLines int    `json:"completedLines"`
}

type playerPayload struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Board          []int  `json:"board"`
	MarkedCells    []bool `json:"markedCells"`
	CompletedLines int    `json:"completedLines"`
	IsHost         bool   `json:"isHost"`
}

type snapshotPayload struct {
	RoomID           string          `json:"roomId"`
	Members          []playerPayload `json:"members"`
	Status           string          `json:"status"`
	Winner           *playerPayload  `json:"winner"`
	LastCalledNumber *int            `json:"lastCalledNumber"`
	CalledNumbers    []int           `json:"calledNumbers"`
}

type playerEventPayload struct {
	RoomID string        `json:"roomId"`
	Player playerPayload `json:"player"`
}

type numberCalledPayload struct {
	RoomID string `json:"roomId"`
	Number int    `json:"number"`
}

type numberMarkedPayload struct {
	RoomID         string `json:"roomId"`
	PlayerID       string `json:"playerId"`
	Index          int    `json:"index"`
	Number         int    `json:"number"`
	CompletedLines int    `json:"completedLines"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type messagePayload struct {
	RoomID  string `json:"roomId,omitempty"`
	Message string `json:"message"`
}

type serverStatusPayload struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// DecodeRequest parses one inbound frame. Unknown types and unknown fields are rejected.
func DecodeRequest(data []byte) (domain.Request, error) {
	var env envelope
	if err := strictUnmarshal(data, &env); err != nil {
		return domain.Request{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	typ := domain.ParseRequestType(env.Type)
	if typ == domain.RequestUnknown {
		return domain.Request{}, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, env.Type)
	}

	var payload requestPayload
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := strictUnmarshal(env.Data, &payload); err != nil {
			return domain.Request{}, fmt.Errorf("%w: %s: %w", ErrMalformedMessage, env.Type, err)
		}
	}

	req := domain.Request{
		Type:           typ,
		RoomID:         payload.RoomID,
		PlayerID:       payload.PlayerID,
		Name:           payload.Name,
		Number:         payload.Number,
		Index:          -1,
		CompletedLines: payload.CompletedLines,
	}
	if payload.Board != nil {
		req.Board = domain.Board(payload.Board)
	}
	if payload.Index != nil {
		req.Index = *payload.Index
	}
	return req, nil
}

// EncodeRequest builds the frame a client sends for req.
func EncodeRequest(req domain.Request) ([]byte, error) {
	payload := requestPayload{
		RoomID:         req.RoomID,
		PlayerID:       req.PlayerID,
		Name:           req.Name,
		Board:          req.Board,
		Number:         req.Number,
		CompletedLines: req.CompletedLines,
	}
	if req.Type == domain.RequestMarkNumber {
		index := req.Index
		payload.Index = &index
	}
	return encode(req.Type.String(), payload)
}

// EncodeEvent renders an outbound event as one frame.
func EncodeEvent(e domain.Event) ([]byte, error) {
	var data any
	switch e.Type {
	case domain.EventRoomUpdate:
		if e.Snapshot == nil {
			return nil, fmt.Errorf("%s without snapshot", e.Type)
		}
		data = toSnapshotPayload(*e.Snapshot)
	case domain.EventJoinSuccess, domain.EventPlayerJoined, domain.EventPlayerLeft, domain.EventGameWon:
		if e.Player == nil {
			return nil, fmt.Errorf("%s without player", e.Type)
		}
		data = playerEventPayload{RoomID: e.RoomID, Player: toPlayerPayload(*e.Player)}
	case domain.EventNumberCalled:
		data = numberCalledPayload{RoomID: e.RoomID, Number: e.Number}
	case domain.EventNumberMarked:
		if e.Player == nil {
			return nil, fmt.Errorf("%s without player", e.Type)
		}
		data = numberMarkedPayload{
			RoomID:         e.RoomID,
			PlayerID:       e.Player.ID,
			Index:          e.Index,
			Number:         e.Number,
			CompletedLines: e.Player.CompletedLines,
		}
	case domain.EventGameStarted, domain.EventGameReset:
		data = roomPayload{RoomID: e.RoomID}
	case domain.EventRoomFull, domain.EventNameTaken, domain.EventNotice, domain.EventError:
		data = messagePayload{RoomID: e.RoomID, Message: e.Message}
	case domain.EventServerStatus:
		if e.Status == nil {
			return nil, fmt.Errorf("%s without status", e.Type)
		}
		data = serverStatusPayload{Status: e.Status.Status, Rooms: e.Status.Rooms, Connections: e.Status.Connections}
	default:
		return nil, fmt.Errorf("cannot encode event type %d", e.Type)
	}
	return encode(e.Type.String(), data)
}

// DecodeEvent parses a server frame. Used by the console client.
func DecodeEvent(data []byte) (domain.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	typ, ok := parseEventType(env.Type)
	if !ok {
		return domain.Event{}, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, env.Type)
	}
	e := domain.Event{Type: typ}

	var err error
	switch typ {
	case domain.EventRoomUpdate:
		var p snapshotPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			s := fromSnapshotPayload(p)
			e.RoomID, e.Snapshot = s.RoomID, &s
		}
	case domain.EventJoinSuccess, domain.EventPlayerJoined, domain.EventPlayerLeft, domain.EventGameWon:
		var p playerEventPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			player := fromPlayerPayload(p.Player)
			e.RoomID, e.Player = p.RoomID, &player
		}
	case domain.EventNumberCalled:
		var p numberCalledPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			e.RoomID, e.Number = p.RoomID, p.Number
		}
	case domain.EventNumberMarked:
		var p numberMarkedPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			e.RoomID, e.Index, e.Number = p.RoomID, p.Index, p.Number
			e.Player = &domain.Player{ID: p.PlayerID, CompletedLines: p.CompletedLines}
		}
	case domain.EventGameStarted, domain.EventGameReset:
		var p roomPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			e.RoomID = p.RoomID
		}
	case domain.EventServerStatus:
		var p serverStatusPayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			e.Status = &domain.ServerStatus{Status: p.Status, Rooms: p.Rooms, Connections: p.Connections}
		}
	default:
		var p messagePayload
		if err = json.Unmarshal(env.Data, &p); err == nil {
			e.RoomID, e.Message = p.RoomID, p.Message
		}
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: %s: %w", ErrMalformedMessage, env.Type, err)
	}
	return e, nil
}

func encode(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", typ, err)
	}
	return json.Marshal(envelope{Type: typ, Data: raw})
}

func parseEventType(name string) (domain.EventType, bool) {
	for t := domain.EventRoomUpdate; t <= domain.EventError; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

func toPlayerPayload(p domain.Player) playerPayload {
	return playerPayload{
		ID:             p.ID,
		Name:           p.Name,
		Board:          nonNil(p.Board),
		MarkedCells:    nonNil(p.MarkedCells),
		CompletedLines: p.CompletedLines,
		IsHost:         p.IsHost,
	}
}

func fromPlayerPayload(p playerPayload) domain.Player {
	return domain.Player{
		ID:             p.ID,
		Name:           p.Name,
		Board:          p.Board,
		MarkedCells:    p.MarkedCells,
		CompletedLines: p.CompletedLines,
		IsHost:         p.IsHost,
	}
}

func toSnapshotPayload(s domain.Snapshot) snapshotPayload {
	out := snapshotPayload{
		RoomID:        s.RoomID,
		Members:       make([]playerPayload, len(s.Members)),
		Status:        s.Status.String(),
		CalledNumbers: nonNil(s.CalledNumbers),
	}
	for i, p := range s.Members {
		out.Members[i] = toPlayerPayload(p)
	}
	if s.Winner != nil {
		w := toPlayerPayload(*s.Winner)
		out.Winner = &w
	}
	if s.LastCalledNumber != 0 {
		n := s.LastCalledNumber
		out.LastCalledNumber = &n
	}
	return out
}

func fromSnapshotPayload(p snapshotPayload) domain.Snapshot {
	status, _ := domain.ParseRoomStatus(p.Status)
	s := domain.Snapshot{
		RoomID:        p.RoomID,
		Members:       make([]domain.Player, len(p.Members)),
		Status:        status,
		CalledNumbers: p.CalledNumbers,
	}
	for i, m := range p.Members {
		s.Members[i] = fromPlayerPayload(m)
	}
	if p.Winner != nil {
		w := fromPlayerPayload(*p.Winner)
		s.Winner = &w
	}
	if p.LastCalledNumber != nil {
		s.LastCalledNumber = *p.LastCalledNumber
	}
	return s
}

func nonNil[S ~[]E, E any](s S) []E {
	if s == nil {
		return []E{}
	}
	return s
}
