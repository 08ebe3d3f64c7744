package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"github.com/ponyo877/bingo/server/domain"
	"github.com/ponyo877/bingo/server/usecase"
)

// ErrConflict is returned when a write collides with a row another writer owns.
var ErrConflict = errors.New("conflicting write")

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// OpenPostgres migrates the database behind connString and connects a pool to it.
func OpenPostgres(ctx context.Context, connString string) (*PostgresRepository, error) {
	migrationDB, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres for migrations: %w", err)
	}
	err = migrate(migrationDB, goose.DialectPostgres, "migrations/postgres")
	if closeErr := migrationDB.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("failed to close migration connection")
	}
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Info().Msg("postgres repository ready")
	return &PostgresRepository{pool: pool}, nil
}

func (p *PostgresRepository) SaveRoom(ctx context.Context, room *domain.Room) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO rooms (code, status, winner_id, last_called, called_numbers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			status = EXCLUDED.status,
			winner_id = EXCLUDED.winner_id,
			last_called = EXCLUDED.last_called,
			called_numbers = EXCLUDED.called_numbers,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(ctx, query,
		room.ID,
		room.Status.String(),
		optionalString(room.WinnerID),
		optionalInt(room.LastCalledNumber),
		toInt32s(room.CalledNumbers),
		room.CreatedAt,
		room.UpdatedAt,
	); err != nil {
		return pgError(fmt.Sprintf("upsert room %s", room.ID), err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM players WHERE room_code = $1", room.ID); err != nil {
		return pgError(fmt.Sprintf("clear players of room %s", room.ID), err)
	}

	batch := &pgx.Batch{}
	for seat, pl := range room.Members {
		batch.Queue(`
			INSERT INTO players (id, room_code, seat, name, board, marked_cells, completed_lines, is_host, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			pl.ID, room.ID, seat, pl.Name, toInt32s(pl.Board), []bool(pl.MarkedCells), pl.CompletedLines, pl.IsHost, pl.JoinedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return pgError(fmt.Sprintf("insert players of room %s", room.ID), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return pgError("commit transaction", err)
	}
	return nil
}

func (p *PostgresRepository) LoadRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var status string
	var winnerID *string
	var lastCalled *int32
	var calledNumbers []int32
	var createdAt, updatedAt time.Time
	err := p.pool.QueryRow(ctx, `
		SELECT status, winner_id, last_called, called_numbers, created_at, updated_at
		FROM rooms WHERE code = $1`, roomID,
	).Scan(&status, &winnerID, &lastCalled, &calledNumbers, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("room %s: %w", roomID, usecase.ErrNotFound)
		}
		return nil, pgError(fmt.Sprintf("query room %s", roomID), err)
	}

	roomStatus, err := domain.ParseRoomStatus(status)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", roomID, err)
	}
	room := &domain.Room{
		ID:            roomID,
		Status:        roomStatus,
		CalledNumbers: fromInt32s(calledNumbers),
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
	if winnerID != nil {
		room.WinnerID = *winnerID
	}
	if lastCalled != nil {
		room.LastCalledNumber = int(*lastCalled)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, name, board, marked_cells, completed_lines, is_host, joined_at
		FROM players WHERE room_code = $1 ORDER BY seat`, roomID)
	if err != nil {
		return nil, pgError(fmt.Sprintf("query players of room %s", roomID), err)
	}
	defer rows.Close()

	for rows.Next() {
		var pl domain.Player
		var board []int32
		var marks []bool
		if err := rows.Scan(&pl.ID, &pl.Name, &board, &marks, &pl.CompletedLines, &pl.IsHost, &pl.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player of room %s: %w", roomID, err)
		}
		pl.Board = fromInt32s(board)
		pl.MarkedCells = marks
		room.Members = append(room.Members, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError(fmt.Sprintf("iterate players of room %s", roomID), err)
	}
	return room, nil
}

func (p *PostgresRepository) DeleteRoom(ctx context.Context, roomID string) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM rooms WHERE code = $1", roomID); err != nil {
		return pgError(fmt.Sprintf("delete room %s", roomID), err)
	}
	return nil
}

func (p *PostgresRepository) Purge(ctx context.Context) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM rooms")
	if err != nil {
		return pgError("purge rooms", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		log.Info().Int64("rooms", n).Msg("purged stale rooms")
	}
	return nil
}

func (p *PostgresRepository) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresRepository) Close() error {
	p.pool.Close()
	return nil
}

func pgError(action string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503": // unique_violation, foreign_key_violation
			return fmt.Errorf("failed to %s: %w: %s", action, ErrConflict, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt(n int) *int32 {
	if n == 0 {
		return nil
	}
	v := int32(n)
	return &v
}

func toInt32s[S ~[]int](s S) []int32 {
	out := make([]int32, len(s))
	for i, n := range s {
		out[i] = int32(n)
	}
	return out
}

func fromInt32s(s []int32) []int {
	out := make([]int, len(s))
	for i, n := range s {
		out[i] = int(n)
	}
	return out
}
