package adaptor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyo877/bingo/server/domain"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  domain.Request
	}{
		{
			name:  "join",
			frame: `{"type":"join_room","data":{"roomId":"AB12CD","name":"Alice"}}`,
			want:  domain.Request{Type: domain.RequestJoinRoom, RoomID: "AB12CD", Name: "Alice", Index: -1},
		},
		{
			name:  "mark at index zero",
			frame: `{"type":"mark_number","data":{"roomId":"AB12CD","playerId":"p1","index":0,"number":7,"completedLines":1}}`,
			want: domain.Request{
				Type: domain.RequestMarkNumber, RoomID: "AB12CD", PlayerID: "p1",
				Index: 0, Number: 7, CompletedLines: 1,
			},
		},
		{
			name:  "check server without data",
			frame: `{"type":"check_server"}`,
			want:  domain.Request{Type: domain.RequestCheckServer, Index: -1},
		},
		{
			name:  "check server with null data",
			frame: `{"type":"check_server","data":null}`,
			want:  domain.Request{Type: domain.RequestCheckServer, Index: -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRequest_MarkWithoutIndexIsInvalid(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"type":"mark_number","data":{"roomId":"AB12CD","number":7}}`))
	require.NoError(t, err)
	assert.False(t, req.IsValid())
}

func TestDecodeRequest_Rejects(t *testing.T) {
	frames := map[string]string{
		"not json":      `hello`,
		"unknown type":  `{"type":"drop_table","data":{}}`,
		"unknown field": `{"type":"join_room","data":{"roomId":"AB12CD","name":"Alice","admin":true}}`,
		"extra key":     `{"type":"check_server","id":3}`,
		"wrong type":    `{"type":"call_number","data":{"roomId":"AB12CD","number":"seven"}}`,
		"missing type":  `{"data":{"roomId":"AB12CD"}}`,
	}
	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(frame))
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestEncodeEvent_RoomUpdate(t *testing.T) {
	room := domain.NewRoom("AB12CD")
	p, err := domain.NewPlayer("Alice", nil)
	require.NoError(t, err)
	_, err = room.Join(p)
	require.NoError(t, err)

	data, err := EncodeEvent(domain.NewRoomUpdateEvent(room.Snapshot()))
	require.NoError(t, err)

	var frame struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "room_update", frame.Type)
	assert.Equal(t, "AB12CD", frame.Data["roomId"])
	assert.Equal(t, "waiting", frame.Data["status"])
	assert.Nil(t, frame.Data["winner"])
	assert.Nil(t, frame.Data["lastCalledNumber"])
	assert.Equal(t, []any{}, frame.Data["calledNumbers"])

	members := frame.Data["members"].([]any)
	require.Len(t, members, 1)
	member := members[0].(map[string]any)
	assert.Equal(t, "Alice", member["name"])
	assert.Equal(t, true, member["isHost"])
	assert.Len(t, member["board"], domain.BoardSize)
	assert.Len(t, member["markedCells"], domain.BoardSize)
}

func TestEncodeEvent_RequiresPayload(t *testing.T) {
	_, err := EncodeEvent(domain.Event{Type: domain.EventRoomUpdate})
	assert.Error(t, err)
	_, err = EncodeEvent(domain.Event{Type: domain.EventGameWon})
	assert.Error(t, err)
	_, err = EncodeEvent(domain.Event{Type: domain.EventServerStatus})
	assert.Error(t, err)
}

func TestEventFramesDecodeForClients(t *testing.T) {
	alice := domain.Player{ID: "p1", Name: "Alice", Board: domain.NewBoard(), MarkedCells: domain.NewMarks(), IsHost: true}
	events := []domain.Event{
		domain.NewJoinSuccessEvent("AB12CD", alice),
		domain.NewNumberCalledEvent("AB12CD", 9),
		domain.NewNumberMarkedEvent("AB12CD", alice, 4, alice.Board[4]),
		domain.NewGameResetEvent("AB12CD"),
		domain.NewNameTakenEvent("AB12CD", "Alice"),
		domain.NewServerStatusEvent(domain.ServerStatus{Status: "ok", Rooms: 2, Connections: 3}),
	}
	for _, e := range events {
		t.Run(e.Type.String(), func(t *testing.T) {
			data, err := EncodeEvent(e)
			require.NoError(t, err)
			got, err := DecodeEvent(data)
			require.NoError(t, err)
			assert.Equal(t, e.Type, got.Type)
			assert.Equal(t, e.RoomID, got.RoomID)
			assert.Equal(t, e.Number, got.Number)
			assert.Equal(t, e.Message, got.Message)
		})
	}
}

func TestEncodeRequest(t *testing.T) {
	data, err := EncodeRequest(domain.NewMarkNumberRequest("AB12CD", "p1", 0, 7, 0))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"mark_number","data":{"roomId":"AB12CD","playerId":"p1","name":"","board":null,"number":7,"index":0,"completedLines":0}}`,
		string(data))

	req, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, 0, req.Index)
	assert.True(t, req.IsValid())
}
