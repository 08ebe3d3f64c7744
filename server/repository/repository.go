package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"github.com/ponyo877/bingo/server/domain"
	"github.com/ponyo877/bingo/server/usecase"
)

const sqliteDriverName = "sqlite3_bingo"

var registerDriver sync.Once

// Repository stores rooms in SQLite. Boards, marks and call history are JSON columns.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// OpenSQLite opens the database at path (":memory:" is allowed) and migrates it.
func OpenSQLite(path string) (*Repository, error) {
	registerDriver.Do(func() {
		sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				_, err := conn.Exec("PRAGMA foreign_keys = ON", nil)
				return err
			},
		})
	})
	db, err := sql.Open(sqliteDriverName, path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// one writer at a time, and every connection to ":memory:" would be a new database
	db.SetMaxOpenConns(1)
	if err := migrate(db, goose.DialectSQLite3, "migrations/sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("sqlite repository ready")
	return NewRepository(db), nil
}

func (r *Repository) SaveRoom(ctx context.Context, room *domain.Room) error {
	calledNumbers, err := json.Marshal(nonNilInts(room.CalledNumbers))
	if err != nil {
		return fmt.Errorf("failed to encode called numbers of room %s: %w", room.ID, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO rooms (code, status, winner_id, last_called, called_numbers, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			status = excluded.status,
			winner_id = excluded.winner_id,
			last_called = excluded.last_called,
			called_numbers = excluded.called_numbers,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query,
		room.ID,
		room.Status.String(),
		nullString(room.WinnerID),
		nullInt(room.LastCalledNumber),
		string(calledNumbers),
		room.CreatedAt,
		room.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert room %s: %w", room.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM players WHERE room_code = ?", room.ID); err != nil {
		return fmt.Errorf("failed to clear players of room %s: %w", room.ID, err)
	}
	query = `
		INSERT INTO players (id, room_code, seat, name, board, marked_cells, completed_lines, is_host, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for seat, p := range room.Members {
		board, err := json.Marshal(nonNilInts(p.Board))
		if err != nil {
			return fmt.Errorf("failed to encode board of %s: %w", p.ID, err)
		}
		marks, err := json.Marshal(p.MarkedCells)
		if err != nil {
			return fmt.Errorf("failed to encode marks of %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query,
			p.ID, room.ID, seat, p.Name, string(board), string(marks), p.CompletedLines, p.IsHost, p.JoinedAt,
		); err != nil {
			return fmt.Errorf("failed to insert player %s into room %s: %w", p.ID, room.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) LoadRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	query := `
		SELECT status, winner_id, last_called, called_numbers, created_at, updated_at
		FROM rooms WHERE code = ?
	`
	var status, calledNumbers string
	var winnerID sql.NullString
	var lastCalled sql.NullInt64
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRowContext(ctx, query, roomID).Scan(
		&status, &winnerID, &lastCalled, &calledNumbers, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %s: %w", roomID, usecase.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying room %s: %w", roomID, err)
	}

	roomStatus, err := domain.ParseRoomStatus(status)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", roomID, err)
	}
	room := &domain.Room{
		ID:               roomID,
		Status:           roomStatus,
		WinnerID:         winnerID.String,
		LastCalledNumber: int(lastCalled.Int64),
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
	if err := json.Unmarshal([]byte(calledNumbers), &room.CalledNumbers); err != nil {
		return nil, fmt.Errorf("failed to decode called numbers of room %s: %w", roomID, err)
	}

	query = `
		SELECT id, name, board, marked_cells, completed_lines, is_host, joined_at
		FROM players WHERE room_code = ? ORDER BY seat
	`
	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players of room %s: %w", roomID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Player
		var board, marks string
		if err := rows.Scan(&p.ID, &p.Name, &board, &marks, &p.CompletedLines, &p.IsHost, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player of room %s: %w", roomID, err)
		}
		if err := json.Unmarshal([]byte(board), &p.Board); err != nil {
			return nil, fmt.Errorf("failed to decode board of %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(marks), &p.MarkedCells); err != nil {
			return nil, fmt.Errorf("failed to decode marks of %s: %w", p.ID, err)
		}
		room.Members = append(room.Members, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over players of room %s: %w", roomID, err)
	}
	return room, nil
}

// DeleteRoom removes the room; its players go with it through the foreign key.
func (r *Repository) DeleteRoom(ctx context.Context, roomID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE code = ?", roomID); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", roomID, err)
	}
	return nil
}

func (r *Repository) Purge(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM rooms")
	if err != nil {
		return fmt.Errorf("failed to purge rooms: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Info().Int64("rooms", n).Msg("purged stale rooms")
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: strings.TrimSpace(s) != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

func nonNilInts[S ~[]int](s S) []int {
	if s == nil {
		return []int{}
	}
	return s
}
