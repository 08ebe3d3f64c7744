package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

const maxNameLength = 32

type Player struct {
	ID             string
	Name           string
	Board          Board
	MarkedCells    Marks
	CompletedLines int
	IsHost         bool
	JoinedAt       time.Time
}

// NewPlayer assigns a fresh server-side id. A nil board is replaced by a generated one.
func NewPlayer(name string, board Board) (Player, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return Player{}, err
	}
	if board == nil {
		board = NewBoard()
	}
	if err := board.Validate(); err != nil {
		return Player{}, err
	}
	return Player{
		ID:          ulid.Make().String(),
		Name:        name,
		Board:       board.Clone(),
		MarkedCells: NewMarks(),
		JoinedAt:    time.Now(),
	}, nil
}

func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

// SameName reports whether two display names collide inside a room.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Mark flags a cell and recomputes the completed line count from the marks.
func (p *Player) Mark(index int) error {
	if index < 0 || index >= BoardSize {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	p.MarkedCells[index] = true
	p.CompletedLines = CountCompletedLines(p.MarkedCells)
	return nil
}

func (p *Player) ClearMarks() {
	p.MarkedCells = NewMarks()
	p.CompletedLines = 0
}

func (p Player) Clone() Player {
	p.Board = p.Board.Clone()
	p.MarkedCells = p.MarkedCells.Clone()
	return p
}

func (p Player) String() string {
	return p.Name + "(" + p.ID + ")"
}
