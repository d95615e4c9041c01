package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/susu3304/warikan/internal/export"
)

// SQLiteDB is the single-file backup archive for deployments without
// Postgres.
type SQLiteDB struct {
	sqlDB *sql.DB
}

var _ Archive = (*SQLiteDB)(nil)

func OpenSQLite(ctx context.Context, path string) (*SQLiteDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	_, err = sqlDB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS room_backups (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			expense_count INTEGER NOT NULL,
			debt_count INTEGER NOT NULL,
			document TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_room_backups_room_id ON room_backups(room_id, created_at DESC);
	`)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteDB{sqlDB: sqlDB}, nil
}

func (s *SQLiteDB) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteDB) Save(ctx context.Context, roomID string, b export.Backup) (Record, error) {
	rec, err := newRecord(roomID, b, time.Now())
	if err != nil {
		return Record{}, err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO room_backups (id, room_id, expense_count, debt_count, document, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RoomID, rec.Expenses, rec.Debts, string(rec.Document), rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert backup: %w", err)
	}
	rec.Document = nil
	return rec, nil
}

func (s *SQLiteDB) List(ctx context.Context, roomID string) ([]Record, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, room_id, expense_count, debt_count, created_at
		 FROM room_backups WHERE room_id = ? ORDER BY created_at DESC, id`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		var (
			r       Record
			created int64
		)
		if err := rows.Scan(&r.ID, &r.RoomID, &r.Expenses, &r.Debts, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) Get(ctx context.Context, id string) (Record, error) {
	var (
		r       Record
		created int64
		doc     string
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, room_id, expense_count, debt_count, created_at, document
		 FROM room_backups WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.RoomID, &r.Expenses, &r.Debts, &created, &doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrBackupNotFound
		}
		return Record{}, err
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.Document = []byte(doc)
	return r, nil
}
