package ledger

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of invoice and debt dates.
const DateLayout = "2006-01-02"

const DefaultCategory = "general"

type DebtStatus string

const (
	StatusPending DebtStatus = "pending"
	StatusSettled DebtStatus = "settled"
)

type Participant struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// SharedExpense is a cost split equally across the whole roster.
type SharedExpense struct {
	ID          int64     `json:"id"`
	Category    string    `json:"type"`
	Description string    `json:"name"`
	Amount      float64   `json:"amount"`
	InvoiceDate string    `json:"invoiceDate"`
	Payer       string    `json:"paidBy"`
	AddedBy     string    `json:"addedBy,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
}

// PersonalDebt is a bilateral obligation from Debtor to Creditor.
type PersonalDebt struct {
	ID          int64      `json:"id"`
	Debtor      string     `json:"from"`
	Creditor    string     `json:"to"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	Notes       string     `json:"notes,omitempty"`
	Status      DebtStatus `json:"status"`
	AddedBy     string     `json:"addedBy,omitempty"`
	CreatedAt   time.Time  `json:"timestamp"`
}

func (d PersonalDebt) Pending() bool {
	return d.Status != StatusSettled
}

// Roster is the fixed participant set. It is validated once when built and
// never changes afterwards.
type Roster struct {
	participants []Participant
	index        map[string]int
}

func NewRoster(participants []Participant) (*Roster, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("roster needs at least one participant")
	}
	r := &Roster{
		participants: make([]Participant, 0, len(participants)),
		index:        make(map[string]int, len(participants)),
	}
	names := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("participant %d: id and name are required", len(r.participants)+1)
		}
		if _, dup := r.index[p.ID]; dup {
			return nil, fmt.Errorf("duplicate participant id %q", p.ID)
		}
		if _, dup := names[p.Name]; dup {
			return nil, fmt.Errorf("duplicate participant name %q", p.Name)
		}
		names[p.Name] = struct{}{}
		r.index[p.ID] = len(r.participants)
		r.participants = append(r.participants, p)
	}
	return r, nil
}

// DefaultRoster is the seven-person household the relay ships with.
func DefaultRoster() *Roster {
	r, err := NewRoster([]Participant{
		{ID: "person1", Name: "Brian"},
		{ID: "person2", Name: "Tessa"},
		{ID: "person3", Name: "Robert"},
		{ID: "person4", Name: "Hershey"},
		{ID: "person5", Name: "Wilson"},
		{ID: "person6", Name: "Joselle"},
		{ID: "person7", Name: "Chona"},
	})
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Roster) Len() int {
	return len(r.participants)
}

// Participants returns a copy in roster order.
func (r *Roster) Participants() []Participant {
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

func (r *Roster) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

func (r *Roster) Index(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Name returns the display name for id, or id itself when unknown.
func (r *Roster) Name(id string) string {
	if i, ok := r.index[id]; ok {
		return r.participants[i].Name
	}
	return id
}
