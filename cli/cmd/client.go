package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ponyo877/bingo/server/adaptor"
	"github.com/ponyo877/bingo/server/domain"
)

var (
	errNotConnected = errors.New("not connected; run the play command first")
	errNotInRoom    = errors.New("not in a room; create or join one first")
)

type frameConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// gameClient tracks what this terminal knows about its room. Room snapshots from the
// server replace the local view wholesale.
type gameClient struct {
	conn    frameConn
	out     io.Writer
	writeMu sync.Mutex

	mu       sync.Mutex
	name     string
	board    domain.Board
	roomID   string
	playerID string
	snapshot *domain.Snapshot
}

var (
	activeMu sync.Mutex
	active   *gameClient
)

func activeClient() (*gameClient, error) {
	activeMu.Lock()
	defer activeMu.Unlock()

	if active == nil {
		return nil, errNotConnected
	}
	return active, nil
}

func setActiveClient(c *gameClient) {
	activeMu.Lock()
	active = c
	activeMu.Unlock()
}

func newGameClient(conn frameConn, out io.Writer, name string) *gameClient {
	return &gameClient{conn: conn, out: out, name: name, board: domain.NewBoard()}
}

func (c *gameClient) send(req domain.Request) error {
	frame, err := adaptor.EncodeRequest(req)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to send %s: %w", req.Type, err)
	}
	return nil
}

// listen prints server events until the connection closes.
func (c *gameClient) listen() error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		e, err := adaptor.DecodeEvent(data)
		if err != nil {
			fmt.Fprintln(c.out, "!", err)
			continue
		}
		if line := c.apply(e); line != "" {
			fmt.Fprintln(c.out, line)
		}
	}
}

func (c *gameClient) identity() (roomID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID, c.playerID
}

func (c *gameClient) requireRoom() (roomID, playerID string, err error) {
	roomID, playerID = c.identity()
	if roomID == "" {
		return "", "", errNotInRoom
	}
	return roomID, playerID, nil
}

// apply folds the event into the local state and returns the line to print.
func (c *gameClient) apply(e domain.Event) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Type {
	case domain.EventJoinSuccess:
		c.roomID, c.playerID = e.RoomID, e.Player.ID
		c.name = e.Player.Name
		if len(e.Player.Board) == domain.BoardSize {
			c.board = e.Player.Board.Clone()
		}
		return fmt.Sprintf("joined room %s as %s", e.RoomID, e.Player.Name)
	case domain.EventRoomUpdate:
		if e.RoomID != c.roomID {
			return ""
		}
		c.snapshot = e.Snapshot
		if me, ok := c.memberLocked(c.playerID); ok && len(me.Board) == domain.BoardSize {
			c.board = me.Board.Clone()
		}
		return describeSnapshot(*e.Snapshot, c.playerID)
	case domain.EventPlayerJoined:
		return fmt.Sprintf("%s joined", e.Player.Name)
	case domain.EventPlayerLeft:
		return fmt.Sprintf("%s left", e.Player.Name)
	case domain.EventNumberCalled:
		return fmt.Sprintf("number %d called", e.Number)
	case domain.EventNumberMarked:
		name := e.Player.ID
		if p, ok := c.memberLocked(e.Player.ID); ok {
			name = p.Name
		}
		return fmt.Sprintf("%s marked %d (%d lines)", name, e.Number, e.Player.CompletedLines)
	case domain.EventGameStarted:
		return "game started"
	case domain.EventGameWon:
		if e.Player.ID == c.playerID {
			return "BINGO! you win"
		}
		return fmt.Sprintf("BINGO! %s wins", e.Player.Name)
	case domain.EventGameReset:
		return "game reset"
	case domain.EventServerStatus:
		return fmt.Sprintf("server %s: %d rooms, %d connections", e.Status.Status, e.Status.Rooms, e.Status.Connections)
	default:
		return e.String()
	}
}

func (c *gameClient) memberLocked(playerID string) (domain.Player, bool) {
	if c.snapshot == nil {
		return domain.Player{}, false
	}
	i := slices.IndexFunc(c.snapshot.Members, func(p domain.Player) bool { return p.ID == playerID })
	if i < 0 {
		return domain.Player{}, false
	}
	return c.snapshot.Members[i], true
}

// markRequest finds the number on the local board and predicts the resulting line count.
func (c *gameClient) markRequest(number int) (domain.Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.roomID == "" {
		return domain.Request{}, errNotInRoom
	}
	index := slices.Index(c.board, number)
	if index < 0 {
		return domain.Request{}, fmt.Errorf("%d is not on your board", number)
	}
	marks := domain.NewMarks()
	if me, ok := c.memberLocked(c.playerID); ok && len(me.MarkedCells) == domain.BoardSize {
		copy(marks, me.MarkedCells)
	}
	marks[index] = true
	return domain.NewMarkNumberRequest(c.roomID, c.playerID, index, number, domain.CountCompletedLines(marks)), nil
}

func (c *gameClient) leave() (domain.Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.roomID == "" {
		return domain.Request{}, errNotInRoom
	}
	req := domain.NewLeaveRoomRequest(c.roomID, c.playerID)
	c.roomID, c.playerID, c.snapshot = "", "", nil
	return req, nil
}

func (c *gameClient) shuffle() domain.Board {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.board = domain.NewBoard()
	return c.board.Clone()
}

func (c *gameClient) currentBoard() (domain.Board, domain.Marks) {
	c.mu.Lock()
	defer c.mu.Unlock()

	marks := domain.NewMarks()
	if me, ok := c.memberLocked(c.playerID); ok && len(me.MarkedCells) == domain.BoardSize {
		copy(marks, me.MarkedCells)
	}
	return c.board.Clone(), marks
}

func (c *gameClient) close() {
	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	c.conn.Close()
}

func describeSnapshot(s domain.Snapshot, selfID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "room %s [%s]", s.RoomID, s.Status)
	for _, p := range s.Members {
		b.WriteString(" ")
		b.WriteString(p.Name)
		var tags []string
		if p.ID == selfID {
			tags = append(tags, "you")
		}
		if p.IsHost {
			tags = append(tags, "host")
		}
		tags = append(tags, fmt.Sprintf("%d lines", p.CompletedLines))
		b.WriteString("(" + strings.Join(tags, ", ") + ")")
	}
	if s.LastCalledNumber > 0 {
		fmt.Fprintf(&b, " last called %d", s.LastCalledNumber)
	}
	if s.Winner != nil {
		fmt.Fprintf(&b, " winner %s", s.Winner.Name)
	}
	return b.String()
}

// formatBoard lays the board out as a 5x5 grid, marked cells in brackets.
func formatBoard(board domain.Board, marks domain.Marks) string {
	var b strings.Builder
	for i, n := range board {
		cell := fmt.Sprintf(" %2d ", n)
		if i < len(marks) && marks[i] {
			cell = fmt.Sprintf("[%2d]", n)
		}
		b.WriteString(cell)
		if (i+1)%domain.BoardSide == 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
