package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ponyo877/bingo/server/domain"
)

const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 6
)

// RoomRegistry owns every live room. The in-memory table is authoritative; the
// repository is written through on every commit.
//
// Callers mutate a room by taking Lock(roomID), fetching a copy with Get or
// GetOrCreate, changing it, and committing with Save or Remove before unlocking.
type RoomRegistry struct {
	repo    Repository
	timeout time.Duration

	mu    sync.Mutex
	rooms map[string]*domain.Room
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func NewRoomRegistry(repo Repository, timeout time.Duration) *RoomRegistry {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RoomRegistry{
		repo:    repo,
		timeout: timeout,
		rooms:   make(map[string]*domain.Room),
		locks:   make(map[string]*roomLock),
	}
}

// Open clears rooms left behind by a previous process.
func (r *RoomRegistry) Open(ctx context.Context) error {
	ctx, cancel := r.storeContext(ctx)
	defer cancel()
	if err := r.repo.Purge(ctx); err != nil {
		return fmt.Errorf("%w: purge stale rooms: %w", ErrBackendUnavailable, err)
	}
	return nil
}

// Close drops every live room and its persisted copy.
func (r *RoomRegistry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.rooms = make(map[string]*domain.Room)
	r.mu.Unlock()

	ctx, cancel := r.storeContext(ctx)
	defer cancel()
	if err := r.repo.Purge(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to purge rooms on shutdown")
	}
	return r.repo.Close()
}

// Lock serializes every mutation of one room. The returned func releases it.
func (r *RoomRegistry) Lock(roomID string) func() {
	r.mu.Lock()
	l, ok := r.locks[roomID]
	if !ok {
		l = &roomLock{}
		r.locks[roomID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, roomID)
		}
		r.mu.Unlock()
	}
}

// Get returns a copy of a live room without creating one.
func (r *RoomRegistry) Get(roomID string) (*domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	return room.Clone(), true
}

// GetOrCreate returns a copy of the live room, or a fresh waiting room. A fresh
// room is not registered until it is saved.
func (r *RoomRegistry) GetOrCreate(roomID string) *domain.Room {
	if room, ok := r.Get(roomID); ok {
		return room
	}
	return domain.NewRoom(roomID)
}

// Save commits the room. The in-memory commit always succeeds; a repository failure
// is reported wrapped in ErrBackendUnavailable.
func (r *RoomRegistry) Save(ctx context.Context, room *domain.Room) error {
	if room.IsEmpty() {
		return r.Remove(ctx, room.ID)
	}
	r.mu.Lock()
	r.rooms[room.ID] = room.Clone()
	r.mu.Unlock()

	ctx, cancel := r.storeContext(ctx)
	defer cancel()
	if err := r.repo.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("%w: save room %s: %w", ErrBackendUnavailable, room.ID, err)
	}
	return nil
}

// Remove destroys the room. Removing an unknown room is a no-op.
func (r *RoomRegistry) Remove(ctx context.Context, roomID string) error {
	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()

	ctx, cancel := r.storeContext(ctx)
	defer cancel()
	if err := r.repo.DeleteRoom(ctx, roomID); err != nil {
		return fmt.Errorf("%w: delete room %s: %w", ErrBackendUnavailable, roomID, err)
	}
	return nil
}

func (r *RoomRegistry) Exists(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rooms[roomID]
	return ok
}

func (r *RoomRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms)
}

func (r *RoomRegistry) Ping(ctx context.Context) error {
	ctx, cancel := r.storeContext(ctx)
	defer cancel()
	return r.repo.Ping(ctx)
}

// NewRoomCode returns a short code not used by any live room.
func (r *RoomRegistry) NewRoomCode() (string, error) {
	for range 16 {
		code, err := randomRoomCode()
		if err != nil {
			return "", err
		}
		if !r.Exists(code) {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a room code")
}

// storeContext detaches repository calls from the caller: a connection that goes away
// mid-handler must not abort a commit.
func (r *RoomRegistry) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
}

func randomRoomCode() (string, error) {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
