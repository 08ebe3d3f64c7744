package usecase

import (
	"context"
	"errors"

	"github.com/ponyo877/bingo/server/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Repository is the durable mirror of live rooms. Implementations must store a room and
// its members atomically; deleting a room deletes its players.
type Repository interface {
	SaveRoom(ctx context.Context, room *domain.Room) error
	DeleteRoom(ctx context.Context, roomID string) error
	// Purge removes every persisted room. Rooms cannot outlive the process that
	// holds their connections, so startup and shutdown clear the table.
	Purge(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
