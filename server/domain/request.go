package domain

import "strconv"

type RequestType int

const (
	RequestUnknown RequestType = iota
	RequestCreateRoom
	RequestJoinRoom
	RequestSetBoard
	RequestStartGame
	RequestCallNumber
	RequestMarkNumber
	RequestResetGame
	RequestLeaveRoom
	RequestCheckServer
)

var requestNames = map[RequestType]string{
	RequestCreateRoom:  "create_room",
	RequestJoinRoom:    "join_room",
	RequestSetBoard:    "set_board",
	RequestStartGame:   "start_game",
	RequestCallNumber:  "call_number",
	RequestMarkNumber:  "mark_number",
	RequestResetGame:   "reset_game",
	RequestLeaveRoom:   "leave_room",
	RequestCheckServer: "check_server",
}

func (t RequestType) String() string {
	if name, ok := requestNames[t]; ok {
		return name
	}
	return "unknown"
}

func ParseRequestType(name string) RequestType {
	for t, n := range requestNames {
		if n == name {
			return t
		}
	}
	return RequestUnknown
}

// Request is one inbound client action. Only the fields of its variant are meaningful.
type Request struct {
	Type     RequestType
	RoomID   string
	PlayerID string
	Name     string
	Board    Board
	Number   int
	Index    int
	// CompletedLines is what the client believes; the server always recomputes it.
	CompletedLines int
}

func NewCreateRoomRequest(name string, board Board) Request {
	return Request{Type: RequestCreateRoom, Name: name, Board: board}
}

func NewJoinRoomRequest(roomID, name string, board Board) Request {
	return Request{Type: RequestJoinRoom, RoomID: roomID, Name: name, Board: board}
}

func NewSetBoardRequest(roomID, playerID string, board Board) Request {
	return Request{Type: RequestSetBoard, RoomID: roomID, PlayerID: playerID, Board: board}
}

func NewStartGameRequest(roomID, playerID string) Request {
	return Request{Type: RequestStartGame, RoomID: roomID, PlayerID: playerID}
}

func NewCallNumberRequest(roomID string, number int) Request {
	return Request{Type: RequestCallNumber, RoomID: roomID, Number: number}
}

func NewMarkNumberRequest(roomID, playerID string, index, number, completedLines int) Request {
	return Request{
		Type:           RequestMarkNumber,
		RoomID:         roomID,
		PlayerID:       playerID,
		Index:          index,
		Number:         number,
		CompletedLines: completedLines,
	}
}

func NewResetGameRequest(roomID string) Request {
	return Request{Type: RequestResetGame, RoomID: roomID}
}

func NewLeaveRoomRequest(roomID, playerID string) Request {
	return Request{Type: RequestLeaveRoom, RoomID: roomID, PlayerID: playerID}
}

func NewCheckServerRequest() Request {
	return Request{Type: RequestCheckServer}
}

func (r Request) IsValid() bool {
	switch r.Type {
	case RequestCreateRoom:
		return r.Name != ""
	case RequestJoinRoom:
		return r.RoomID != "" && r.Name != ""
	case RequestSetBoard:
		return r.RoomID != "" && len(r.Board) == BoardSize
	case RequestStartGame, RequestCallNumber, RequestResetGame, RequestLeaveRoom:
		return r.RoomID != ""
	case RequestMarkNumber:
		return r.RoomID != "" && r.Index >= 0 && r.Index < BoardSize
	case RequestCheckServer:
		return true
	default:
		return false
	}
}

func (r Request) String() string {
	switch r.Type {
	case RequestCreateRoom:
		return r.Type.String() + ": " + r.Name
	case RequestJoinRoom:
		return r.Type.String() + ": " + r.Name + " -> " + r.RoomID
	case RequestCallNumber:
		return r.Type.String() + ": " + r.RoomID + " #" + strconv.Itoa(r.Number)
	case RequestMarkNumber:
		return r.Type.String() + ": " + r.RoomID + " " + r.PlayerID + " [" + strconv.Itoa(r.Index) + "]"
	case RequestCheckServer:
		return r.Type.String()
	default:
		return r.Type.String() + ": " + r.RoomID
	}
}
