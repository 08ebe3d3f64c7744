package domain

import (
	"fmt"
	"slices"
	"time"
)

const (
	MaxMembers = 5
	MinPlayers = 2
)

// Room is the aggregate for one game instance. Its methods keep the membership,
// host and winner invariants; callers are expected to serialize access per room.
type Room struct {
	ID               string
	Members          []Player
	Status           RoomStatus
	WinnerID         string
	LastCalledNumber int // 0 when nothing has been called
	CalledNumbers    []int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewRoom(id string) *Room {
	now := time.Now()
	return &Room{
		ID:        id,
		Members:   []Player{},
		Status:    RoomStatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Room) Clone() *Room {
	c := *r
	c.Members = make([]Player, len(r.Members))
	for i, p := range r.Members {
		c.Members[i] = p.Clone()
	}
	c.CalledNumbers = slices.Clone(r.CalledNumbers)
	return &c
}

func (r *Room) IsEmpty() bool {
	return len(r.Members) == 0
}

func (r *Room) IsFull() bool {
	return len(r.Members) >= MaxMembers
}

func (r *Room) indexOf(playerID string) int {
	return slices.IndexFunc(r.Members, func(p Player) bool { return p.ID == playerID })
}

func (r *Room) Member(playerID string) (Player, bool) {
	i := r.indexOf(playerID)
	if i < 0 {
		return Player{}, false
	}
	return r.Members[i].Clone(), true
}

func (r *Room) Host() (Player, bool) {
	for _, p := range r.Members {
		if p.IsHost {
			return p.Clone(), true
		}
	}
	return Player{}, false
}

func (r *Room) Winner() (Player, bool) {
	if r.WinnerID == "" {
		return Player{}, false
	}
	return r.Member(r.WinnerID)
}

func (r *Room) HasName(name string) bool {
	return slices.ContainsFunc(r.Members, func(p Player) bool { return SameName(p.Name, name) })
}

// Join appends the player in join order. The first member becomes host.
func (r *Room) Join(p Player) (Player, error) {
	if r.IsFull() {
		return Player{}, ErrRoomFull
	}
	if r.HasName(p.Name) {
		return Player{}, fmt.Errorf("%w: %s", ErrNameTaken, p.Name)
	}
	p.IsHost = r.IsEmpty()
	r.Members = append(r.Members, p.Clone())
	r.touch()
	return p, nil
}

// AutoStart moves a waiting room with enough players into play.
func (r *Room) AutoStart() bool {
	if r.Status != RoomStatusWaiting || len(r.Members) < MinPlayers {
		return false
	}
	r.Status = RoomStatusPlaying
	r.touch()
	return true
}

func (r *Room) Start(playerID string) error {
	p, ok := r.Member(playerID)
	if !ok {
		return ErrPlayerNotFound
	}
	if !p.IsHost {
		return ErrNotHost
	}
	if r.Status != RoomStatusWaiting {
		return fmt.Errorf("%w: %s", ErrWrongStatus, r.Status)
	}
	if len(r.Members) < MinPlayers {
		return ErrNotEnoughPlayers
	}
	r.Status = RoomStatusPlaying
	r.touch()
	return nil
}

// Call records an announced number. A number already in the history is not appended again.
func (r *Room) Call(number int) error {
	if number < 1 || number > MaxNumber {
		return fmt.Errorf("%w: %d", ErrInvalidNumber, number)
	}
	r.LastCalledNumber = number
	if !slices.Contains(r.CalledNumbers, number) {
		r.CalledNumbers = append(r.CalledNumbers, number)
	}
	r.touch()
	return nil
}

// Mark flags a cell of the player's board. When the recomputed line count reaches
// WinThreshold while the room is playing, the room finishes with this player as winner.
// Waiting rooms take no marks; finished rooms take them without a win.
// A zero number skips the board cross-check.
func (r *Room) Mark(playerID string, index, number int) (Player, bool, error) {
	i := r.indexOf(playerID)
	if i < 0 {
		return Player{}, false, ErrPlayerNotFound
	}
	if r.Status == RoomStatusWaiting {
		return Player{}, false, fmt.Errorf("%w: %s", ErrWrongStatus, r.Status)
	}
	p := &r.Members[i]
	if index < 0 || index >= BoardSize {
		return Player{}, false, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	if number != 0 && !p.Board.IsPlaceholder() && p.Board[index] != number {
		return Player{}, false, fmt.Errorf("%w: cell %d holds %d, not %d", ErrInvalidNumber, index, p.Board[index], number)
	}
	if err := p.Mark(index); err != nil {
		return Player{}, false, err
	}
	won := false
	if r.Status == RoomStatusPlaying && p.CompletedLines >= WinThreshold {
		r.Status = RoomStatusFinished
		r.WinnerID = p.ID
		won = true
	}
	r.touch()
	return p.Clone(), won, nil
}

// SetBoard completes manual setup. Boards are frozen while a game is in play.
func (r *Room) SetBoard(playerID string, board Board) error {
	i := r.indexOf(playerID)
	if i < 0 {
		return ErrPlayerNotFound
	}
	if r.Status == RoomStatusPlaying {
		return fmt.Errorf("%w: %s", ErrWrongStatus, r.Status)
	}
	if err := board.Validate(); err != nil {
		return err
	}
	r.Members[i].Board = board.Clone()
	r.Members[i].ClearMarks()
	r.touch()
	return nil
}

// Reset clears the game but keeps membership and boards.
func (r *Room) Reset(autoStart bool) {
	r.WinnerID = ""
	r.LastCalledNumber = 0
	r.CalledNumbers = nil
	for i := range r.Members {
		r.Members[i].ClearMarks()
	}
	r.Status = RoomStatusWaiting
	if autoStart && len(r.Members) >= MinPlayers {
		r.Status = RoomStatusPlaying
	}
	r.touch()
}

// Leave removes the player. The earliest-joined remaining member inherits host.
func (r *Room) Leave(playerID string) (Player, error) {
	i := r.indexOf(playerID)
	if i < 0 {
		return Player{}, ErrPlayerNotFound
	}
	left := r.Members[i]
	r.Members = slices.Delete(r.Members, i, i+1)
	if left.IsHost && len(r.Members) > 0 {
		r.Members[0].IsHost = true
	}
	if r.WinnerID == left.ID {
		r.WinnerID = ""
	}
	r.touch()
	return left, nil
}

func (r *Room) touch() {
	r.UpdatedAt = time.Now()
}
