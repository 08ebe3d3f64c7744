package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/ponyo877/bingo/server/domain"
	"github.com/ponyo877/bingo/server/usecase"
)

// MemoryRepository keeps rooms in process memory only.
type MemoryRepository struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rooms: make(map[string]*domain.Room)}
}

func (m *MemoryRepository) SaveRoom(_ context.Context, room *domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rooms[room.ID] = room.Clone()
	return nil
}

func (m *MemoryRepository) LoadRoom(_ context.Context, roomID string) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, usecase.ErrNotFound)
	}
	return room.Clone(), nil
}

func (m *MemoryRepository) DeleteRoom(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rooms, roomID)
	return nil
}

func (m *MemoryRepository) Purge(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clear(m.rooms)
	return nil
}

func (m *MemoryRepository) Ping(context.Context) error { return nil }

func (m *MemoryRepository) Close() error { return nil }
