package client

import (
	"slices"
	"sync"

	"github.com/susu3304/warikan/internal/ledger"
	"github.com/susu3304/warikan/internal/protocol"
	"github.com/susu3304/warikan/internal/room"
	"github.com/susu3304/warikan/internal/settle"
)

// Replica is a client-side copy of one room. It changes only by applying
// server events in arrival order.
type Replica struct {
	id            string
	mu            sync.Mutex
	book          *ledger.Book
	users         []protocol.Presence
	activity      []protocol.Activity
	activityLimit int
}

var _ room.Subscriber = (*Replica)(nil)

func NewReplica(id string) *Replica {
	return &Replica{
		id:            id,
		book:          ledger.NewBook(),
		activityLimit: room.DefaultActivityLimit,
	}
}

// ID lets a Replica subscribe directly to an in-process room.
func (r *Replica) ID() string {
	return r.id
}

func (r *Replica) Send(e protocol.Event) {
	r.Apply(e)
}

// Apply folds one event into the replica. Adds of ids already present are
// skipped and deletes or settles of unknown ids do nothing, so replaying an
// event is harmless.
func (r *Replica) Apply(e protocol.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch p := e.Payload.(type) {
	case protocol.RoomData:
		r.book.Replace(p.Expenses, p.PersonalDebts)
		r.users = slices.Clone(p.Users)
		r.activity = slices.Clone(p.ActivityLog)
	case protocol.ExpenseAdded:
		if !r.book.HasExpense(p.Expense.ID) {
			r.book.AddExpense(p.Expense)
		}
	case protocol.DebtAdded:
		if !r.book.HasDebt(p.Debt.ID) {
			r.book.AddDebt(p.Debt)
		}
	case protocol.ItemDeleted:
		switch p.ItemType {
		case ledger.ItemExpense:
			r.book.DeleteExpense(p.ItemID)
		case ledger.ItemDebt:
			r.book.DeleteDebt(p.ItemID)
		}
	case protocol.DebtSettled:
		r.book.SettleDebt(p.DebtID)
	case protocol.DataReset:
		r.book.Reset()
	case []protocol.Presence:
		r.users = slices.Clone(p)
	case protocol.Presence:
		if !slices.ContainsFunc(r.users, func(u protocol.Presence) bool { return u.ID == p.ID }) {
			r.users = append(r.users, p)
		}
	case protocol.UserLeft:
		r.users = slices.DeleteFunc(r.users, func(u protocol.Presence) bool { return u.ID == p.UserID })
	case protocol.UserTyping:
		for i := range r.users {
			if r.users[i].ID == p.UserID {
				r.users[i].IsTyping = p.IsTyping
			}
		}
	case protocol.Activity:
		r.activity = append(r.activity, p)
		if over := len(r.activity) - r.activityLimit; over > 0 {
			r.activity = slices.Delete(r.activity, 0, over)
		}
	}
}

func (r *Replica) Expenses() []ledger.SharedExpense {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.book.Expenses()
}

func (r *Replica) Debts() []ledger.PersonalDebt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.book.Debts()
}

func (r *Replica) Users() []protocol.Presence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.users)
}

func (r *Replica) Activity() []protocol.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.activity)
}

// Plan runs the settlement engine over the replica's current ledger.
func (r *Replica) Plan(roster *ledger.Roster) settle.Plan {
	r.mu.Lock()
	expenses, debts := r.book.Expenses(), r.book.Debts()
	r.mu.Unlock()
	return settle.NewPlan(roster, expenses, debts)
}
