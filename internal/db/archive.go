package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/susu3304/warikan/internal/export"
)

var ErrBackupNotFound = errors.New("backup not found")

// Record is one archived backup. Document holds the backup JSON and is only
// populated by Get.
type Record struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Expenses  int       `json:"expenses"`
	Debts     int       `json:"personalDebts"`
	CreatedAt time.Time `json:"createdAt"`
	Document  []byte    `json:"-"`
}

// Archive keeps server-side copies of room backups.
type Archive interface {
	Save(ctx context.Context, roomID string, b export.Backup) (Record, error)
	List(ctx context.Context, roomID string) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Close() error
}

// Open picks a backend from the URL scheme: postgres:// and postgresql://
// use pgx, sqlite:<path> uses an embedded SQLite file.
func Open(ctx context.Context, databaseURL string) (Archive, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		d, err := New(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		if err := d.RunMigrations(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return d, nil
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite:"))
	default:
		return nil, fmt.Errorf("unsupported database url %q", databaseURL)
	}
}

func newRecord(roomID string, b export.Backup, at time.Time) (Record, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return Record{}, fmt.Errorf("room id is required")
	}
	var buf bytes.Buffer
	if err := b.Encode(&buf); err != nil {
		return Record{}, fmt.Errorf("encode backup: %w", err)
	}
	return Record{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Expenses:  len(b.Expenses),
		Debts:     len(b.PersonalDebts),
		CreatedAt: at.UTC().Truncate(time.Millisecond),
		Document:  buf.Bytes(),
	}, nil
}
