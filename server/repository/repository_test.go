package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyo877/bingo/server/domain"
	"github.com/ponyo877/bingo/server/repository"
	"github.com/ponyo877/bingo/server/usecase"
)

func newPlayingRoom(t *testing.T, code string) *domain.Room {
	t.Helper()
	room := domain.NewRoom(code)
	alice, err := domain.NewPlayer("alice", nil)
	require.NoError(t, err)
	bob, err := domain.NewPlayer("bob", domain.PlaceholderBoard())
	require.NoError(t, err)
	_, err = room.Join(alice)
	require.NoError(t, err)
	_, err = room.Join(bob)
	require.NoError(t, err)
	require.True(t, room.AutoStart())
	require.NoError(t, room.Call(7))
	require.NoError(t, room.Call(12))
	_, _, err = room.Mark(alice.ID, 0, 0)
	require.NoError(t, err)
	return room
}

func assertSameRoom(t *testing.T, want, got *domain.Room) {
	t.Helper()
	opts := cmp.Options{
		cmpopts.EquateApproxTime(time.Millisecond),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("room mismatch (-want +got):\n%s", diff)
	}
}

// roomStore is a backend plus the read path the registry never needs.
type roomStore interface {
	usecase.Repository
	LoadRoom(ctx context.Context, roomID string) (*domain.Room, error)
}

// testRepository runs the behaviour every backend has to share.
func testRepository(t *testing.T, repo roomStore) {
	ctx := context.Background()

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := repo.LoadRoom(ctx, "NOPE00")
		assert.ErrorIs(t, err, usecase.ErrNotFound)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		room := newPlayingRoom(t, "AB12CD")
		require.NoError(t, repo.SaveRoom(ctx, room))

		got, err := repo.LoadRoom(ctx, room.ID)
		require.NoError(t, err)
		assertSameRoom(t, room, got)
	})

	t.Run("SaveReplacesMembers", func(t *testing.T) {
		room := newPlayingRoom(t, "REPL01")
		require.NoError(t, repo.SaveRoom(ctx, room))

		_, err := room.Leave(room.Members[0].ID)
		require.NoError(t, err)
		require.NoError(t, repo.SaveRoom(ctx, room))

		got, err := repo.LoadRoom(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, got.Members, 1)
		assert.Equal(t, "bob", got.Members[0].Name)
		assert.True(t, got.Members[0].IsHost)
	})

	t.Run("WinnerSurvivesRoundTrip", func(t *testing.T) {
		room := newPlayingRoom(t, "WIN001")
		winner := room.Members[0]
		for i := range domain.BoardSize {
			_, _, err := room.Mark(winner.ID, i, 0)
			require.NoError(t, err)
		}
		require.Equal(t, domain.RoomStatusFinished, room.Status)
		require.NoError(t, repo.SaveRoom(ctx, room))

		got, err := repo.LoadRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, winner.ID, got.WinnerID)
		assert.Equal(t, domain.RoomStatusFinished, got.Status)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		room := newPlayingRoom(t, "DEL001")
		require.NoError(t, repo.SaveRoom(ctx, room))

		require.NoError(t, repo.DeleteRoom(ctx, room.ID))
		require.NoError(t, repo.DeleteRoom(ctx, room.ID))
		_, err := repo.LoadRoom(ctx, room.ID)
		assert.ErrorIs(t, err, usecase.ErrNotFound)
	})

	t.Run("Purge", func(t *testing.T) {
		require.NoError(t, repo.SaveRoom(ctx, newPlayingRoom(t, "PRG001")))
		require.NoError(t, repo.SaveRoom(ctx, newPlayingRoom(t, "PRG002")))

		require.NoError(t, repo.Purge(ctx))
		for _, code := range []string{"PRG001", "PRG002", "AB12CD"} {
			_, err := repo.LoadRoom(ctx, code)
			assert.ErrorIs(t, err, usecase.ErrNotFound, code)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}

func TestMemoryRepository(t *testing.T) {
	repo := repository.NewMemoryRepository()
	t.Cleanup(func() { repo.Close() })
	testRepository(t, repo)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	room := newPlayingRoom(t, "COPY01")
	require.NoError(t, repo.SaveRoom(ctx, room))

	room.Members[0].Name = "mallory"
	got, err := repo.LoadRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Members[0].Name)
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := repository.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	testRepository(t, repo)
}

func TestSQLiteRepository_File(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/bingo.db"

	repo, err := repository.OpenSQLite(path)
	require.NoError(t, err)
	room := newPlayingRoom(t, "FILE01")
	require.NoError(t, repo.SaveRoom(ctx, room))
	require.NoError(t, repo.Close())

	// migrations are idempotent and data is on disk
	repo, err = repository.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	got, err := repo.LoadRoom(ctx, room.ID)
	require.NoError(t, err)
	assertSameRoom(t, room, got)
}
