package room

import (
	"errors"
	"fmt"

	"github.com/susu3304/warikan/internal/ledger"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotFound     = errors.New("item not found")
)

// NotFoundError names the entry a delete or settle could not find.
type NotFoundError struct {
	Kind ledger.ItemKind
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
