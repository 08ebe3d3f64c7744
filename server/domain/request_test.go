package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRequestType(t *testing.T) {
	for typ, name := range requestNames {
		assert.Equal(t, typ, ParseRequestType(name))
		assert.Equal(t, name, typ.String())
	}
	assert.Equal(t, RequestUnknown, ParseRequestType("drop_table"))
	assert.Equal(t, "unknown", RequestUnknown.String())
}

func TestRequest_IsValid(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{"create", NewCreateRoomRequest("alice", nil), true},
		{"create without name", NewCreateRoomRequest("", nil), false},
		{"join", NewJoinRoomRequest("AB12CD", "alice", nil), true},
		{"join without room", NewJoinRoomRequest("", "alice", nil), false},
		{"join without name", NewJoinRoomRequest("AB12CD", "", nil), false},
		{"set board", NewSetBoardRequest("AB12CD", "", NewBoard()), true},
		{"set short board", NewSetBoardRequest("AB12CD", "", Board{1, 2}), false},
		{"start", NewStartGameRequest("AB12CD", ""), true},
		{"call", NewCallNumberRequest("AB12CD", 7), true},
		{"call without room", NewCallNumberRequest("", 7), false},
		{"mark", NewMarkNumberRequest("AB12CD", "p1", 12, 7, 0), true},
		{"mark index too large", NewMarkNumberRequest("AB12CD", "p1", 25, 7, 0), false},
		{"mark negative index", NewMarkNumberRequest("AB12CD", "p1", -1, 7, 0), false},
		{"reset", NewResetGameRequest("AB12CD"), true},
		{"leave", NewLeaveRoomRequest("AB12CD", "p1"), true},
		{"check server", NewCheckServerRequest(), true},
		{"unknown", Request{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.IsValid())
		})
	}
}

func TestEvent_IsBroadcast(t *testing.T) {
	assert.True(t, NewNumberCalledEvent("AB12CD", 3).IsBroadcast())
	assert.True(t, NewRoomUpdateEvent(Snapshot{RoomID: "AB12CD"}).IsBroadcast())
	assert.False(t, NewRoomFullEvent("AB12CD").IsBroadcast())
	assert.False(t, NewNameTakenEvent("AB12CD", "alice").IsBroadcast())
	assert.False(t, NewServerStatusEvent(ServerStatus{Status: "ok"}).IsBroadcast())
}

func TestEvent_String(t *testing.T) {
	p := Player{ID: "01H", Name: "alice"}
	assert.Equal(t, "game_won #AB12CD alice(01H)", NewGameWonEvent("AB12CD", p).String())
	assert.Equal(t, "notice: backend down", NewNoticeEvent("", "backend down").String())
}
