package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/susu3304/warikan/internal/ledger"
)

const (
	AppName       = "Warsan 305 Bill Splitter"
	BackupVersion = "1.0"
)

var ErrInvalidBackup = errors.New("invalid backup file format")

// Backup is the portable snapshot of one ledger.
type Backup struct {
	Expenses      []ledger.SharedExpense `json:"expenses"`
	PersonalDebts []ledger.PersonalDebt  `json:"personalDebts"`
	ExportDate    time.Time              `json:"exportDate"`
	AppName       string                 `json:"appName"`
	Version       string                 `json:"version"`
}

func NewBackup(expenses []ledger.SharedExpense, debts []ledger.PersonalDebt, at time.Time) Backup {
	if expenses == nil {
		expenses = []ledger.SharedExpense{}
	}
	if debts == nil {
		debts = []ledger.PersonalDebt{}
	}
	return Backup{
		Expenses:      expenses,
		PersonalDebts: debts,
		ExportDate:    at.UTC(),
		AppName:       AppName,
		Version:       BackupVersion,
	}
}

func BackupFilename(at time.Time) string {
	return fmt.Sprintf("warsan305-backup-%s.json", at.Format(ledger.DateLayout))
}

func (b Backup) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// DecodeBackup reads a backup document and checks every entry against the
// ledger invariants. Both collections must be present, even if empty.
func DecodeBackup(r io.Reader, roster *ledger.Roster) (Backup, error) {
	var raw struct {
		Expenses      *[]ledger.SharedExpense `json:"expenses"`
		PersonalDebts *[]ledger.PersonalDebt  `json:"personalDebts"`
		ExportDate    time.Time               `json:"exportDate"`
		AppName       string                  `json:"appName"`
		Version       string                  `json:"version"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if raw.Expenses == nil || raw.PersonalDebts == nil {
		return Backup{}, fmt.Errorf("%w: expenses and personalDebts are required", ErrInvalidBackup)
	}

	b := Backup{
		Expenses:      *raw.Expenses,
		PersonalDebts: *raw.PersonalDebts,
		ExportDate:    raw.ExportDate,
		AppName:       raw.AppName,
		Version:       raw.Version,
	}

	seen := make(map[int64]bool)
	for i, e := range b.Expenses {
		if err := ledger.ValidateExpense(e, roster); err != nil {
			return Backup{}, fmt.Errorf("%w: expense %d: %w", ErrInvalidBackup, i, err)
		}
		if seen[e.ID] {
			return Backup{}, fmt.Errorf("%w: duplicate id %d", ErrInvalidBackup, e.ID)
		}
		seen[e.ID] = true
	}
	for i, d := range b.PersonalDebts {
		if err := ledger.ValidateDebt(d, roster); err != nil {
			return Backup{}, fmt.Errorf("%w: personal debt %d: %w", ErrInvalidBackup, i, err)
		}
		if seen[d.ID] {
			return Backup{}, fmt.Errorf("%w: duplicate id %d", ErrInvalidBackup, d.ID)
		}
		seen[d.ID] = true
	}
	return b, nil
}
