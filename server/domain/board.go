package domain

import (
	"fmt"
	"math/rand/v2"
)

const (
	BoardSide    = 5
	BoardSize    = BoardSide * BoardSide
	MaxNumber    = BoardSize
	WinThreshold = 5
)

// Board is the arrangement of numbers a player sees, row-major.
type Board []int

// Marks is index-aligned with Board.
type Marks []bool

// NewBoard returns a random permutation of 1..25.
func NewBoard() Board {
	board := make(Board, BoardSize)
	for i, n := range rand.Perm(BoardSize) {
		board[i] = n + 1
	}
	return board
}

// PlaceholderBoard is the board of a player who has not finished manual setup.
func PlaceholderBoard() Board {
	return make(Board, BoardSize)
}

func NewMarks() Marks {
	return make(Marks, BoardSize)
}

func (b Board) IsPlaceholder() bool {
	for _, n := range b {
		if n != 0 {
			return false
		}
	}
	return true
}

// Validate accepts either a placeholder or a permutation of 1..25.
func (b Board) Validate() error {
	if len(b) != BoardSize {
		return fmt.Errorf("%w: expected %d cells, got %d", ErrInvalidBoard, BoardSize, len(b))
	}
	if b.IsPlaceholder() {
		return nil
	}
	seen := make(map[int]bool, BoardSize)
	for i, n := range b {
		if n < 1 || n > MaxNumber {
			return fmt.Errorf("%w: cell %d holds %d", ErrInvalidBoard, i, n)
		}
		if seen[n] {
			return fmt.Errorf("%w: %d appears twice", ErrInvalidBoard, n)
		}
		seen[n] = true
	}
	return nil
}

func (b Board) Clone() Board {
	return append(Board(nil), b...)
}

func (m Marks) Clone() Marks {
	return append(Marks(nil), m...)
}

// CountCompletedLines counts fully marked rows, columns and both diagonals.
func CountCompletedLines(marks Marks) int {
	if len(marks) != BoardSize {
		return 0
	}
	marked := func(row, col int) bool { return marks[row*BoardSide+col] }

	lines := 0
	for i := 0; i < BoardSide; i++ {
		row, col := true, true
		for j := 0; j < BoardSide; j++ {
			row = row && marked(i, j)
			col = col && marked(j, i)
		}
		if row {
			lines++
		}
		if col {
			lines++
		}
	}

	diag, anti := true, true
	for i := 0; i < BoardSide; i++ {
		diag = diag && marked(i, i)
		anti = anti && marked(i, BoardSide-1-i)
	}
	if diag {
		lines++
	}
	if anti {
		lines++
	}
	return lines
}
