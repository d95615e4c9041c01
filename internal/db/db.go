package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/susu3304/warikan/internal/export"
)

// DB is the Postgres backup archive.
type DB struct {
	pool *pgxpool.Pool
}

var _ Archive = (*DB)(nil)

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS room_backups (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			expense_count INTEGER NOT NULL,
			debt_count INTEGER NOT NULL,
			document JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_room_backups_room_id ON room_backups(room_id, created_at DESC);
	`)
	return err
}

func (db *DB) Save(ctx context.Context, roomID string, b export.Backup) (Record, error) {
	rec, err := newRecord(roomID, b, time.Now())
	if err != nil {
		return Record{}, err
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO room_backups (id, room_id, expense_count, debt_count, document, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.RoomID, rec.Expenses, rec.Debts, string(rec.Document), rec.CreatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Document = nil
	return rec, nil
}

// List returns a room's backups, newest first, without their documents.
func (db *DB) List(ctx context.Context, roomID string) ([]Record, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, room_id, expense_count, debt_count, created_at
         FROM room_backups WHERE room_id = $1 ORDER BY created_at DESC, id`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.RoomID, &r.Expenses, &r.Debts, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) Get(ctx context.Context, id string) (Record, error) {
	var r Record
	err := db.pool.QueryRow(ctx,
		`SELECT id, room_id, expense_count, debt_count, created_at, document::text
         FROM room_backups WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.RoomID, &r.Expenses, &r.Debts, &r.CreatedAt, &r.Document)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrBackupNotFound
		}
		return Record{}, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}
