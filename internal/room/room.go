package room

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/susu3304/warikan/internal/ledger"
	"github.com/susu3304/warikan/internal/protocol"
)

// Subscriber receives the events of a room in apply order. Send is called
// with the room locked and must not block.
type Subscriber interface {
	ID() string
	Send(protocol.Event)
}

type member struct {
	sub      Subscriber
	presence protocol.Presence
}

// State is the canonical content of a room as served over HTTP.
type State struct {
	ID            string                 `json:"id"`
	Expenses      []ledger.SharedExpense `json:"expenses"`
	PersonalDebts []ledger.PersonalDebt  `json:"personalDebts"`
	Users         []protocol.Presence    `json:"users"`
	ActivityLog   []protocol.Activity    `json:"activityLog"`
	LastUpdated   time.Time              `json:"lastUpdated"`
}

// Room is one shared ledger. Its mutex is held across apply, activity log
// and broadcast enqueue, so every member sees events in the order the room
// applied them.
type Room struct {
	mu          sync.Mutex
	id          string
	roster      *ledger.Roster
	opts        *options
	book        *ledger.Book
	members     []*member
	activity    []protocol.Activity
	lastUpdated time.Time
	nextID      int64
}

func newRoom(id string, roster *ledger.Roster, opts *options) *Room {
	return &Room{
		id:          id,
		roster:      roster,
		opts:        opts,
		book:        ledger.NewBook(),
		lastUpdated: opts.now(),
	}
}

func (r *Room) ID() string {
	return r.id
}

// Join adds sub to the room. The joiner receives the snapshot, the others a
// user-joined event, and everybody the refreshed user list. Joining again
// with the same subscriber only renames it and resends the snapshot.
func (r *Room) Join(sub Subscriber, userName string) (protocol.Presence, error) {
	name := strings.TrimSpace(userName)
	if name == "" {
		return protocol.Presence{}, &ledger.ValidationError{Field: "userName", Reason: "name is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m := r.member(sub.ID()); m != nil {
		m.presence.Name = name
		m.presence.Color = protocol.ColorFor(name)
		sub.Send(r.roomData(sub.ID()))
		r.broadcastUsers()
		return m.presence, nil
	}

	now := r.opts.now()
	m := &member{
		sub: sub,
		presence: protocol.Presence{
			ID:       sub.ID(),
			Name:     name,
			Color:    protocol.ColorFor(name),
			JoinedAt: now,
		},
	}
	r.broadcast(protocol.Event{Type: protocol.TypeUserJoined, Payload: m.presence}, "")
	r.members = append(r.members, m)
	sub.Send(r.roomData(sub.ID()))
	r.broadcastUsers()
	r.log(protocol.ActivityJoin, fmt.Sprintf("%s joined the room", name), now)
	return m.presence, nil
}

// Leave removes the session and tells the remaining members. It reports
// whether the session was a member.
func (r *Room) Leave(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(sessionID)
	if i < 0 {
		return false
	}
	m := r.members[i]
	r.members = slices.Delete(r.members, i, i+1)

	r.broadcast(protocol.Event{Type: protocol.TypeUserLeft, Payload: protocol.UserLeft{
		UserID:   sessionID,
		UserName: m.presence.Name,
	}}, "")
	r.broadcastUsers()
	r.log(protocol.ActivityLeave, fmt.Sprintf("%s left the room", m.presence.Name), r.opts.now())
	return true
}

// Typing records the typing flag and relays it to everybody but the typist.
func (r *Room) Typing(sessionID, userName string, isTyping bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.member(sessionID)
	if m == nil {
		return false
	}
	m.presence.IsTyping = isTyping
	if strings.TrimSpace(userName) == "" {
		userName = m.presence.Name
	}
	r.broadcast(protocol.Event{Type: protocol.TypeUserTyping, Payload: protocol.UserTyping{
		UserID:   sessionID,
		UserName: userName,
		IsTyping: isTyping,
	}}, sessionID)
	return true
}

func (r *Room) AddExpense(userName string, draft ledger.ExpenseDraft) (ledger.SharedExpense, error) {
	if err := draft.Validate(r.roster); err != nil {
		return ledger.SharedExpense{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.now()
	r.nextID++
	e := draft.Expense(r.nextID, userName, now)
	r.book.AddExpense(e)
	r.lastUpdated = now

	r.broadcast(protocol.Event{Type: protocol.TypeExpenseAdded, Payload: protocol.ExpenseAdded{Expense: e, AddedBy: userName}}, "")
	r.log(protocol.ActivityExpense, fmt.Sprintf("%s added expense: %s (%s)", userName, e.Description, ledger.FormatCurrency(e.Amount)), now)
	return e, nil
}

func (r *Room) AddDebt(userName string, draft ledger.DebtDraft) (ledger.PersonalDebt, error) {
	if err := draft.Validate(r.roster); err != nil {
		return ledger.PersonalDebt{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.now()
	r.nextID++
	d := draft.Debt(r.nextID, userName, now)
	r.book.AddDebt(d)
	r.lastUpdated = now

	r.broadcast(protocol.Event{Type: protocol.TypeDebtAdded, Payload: protocol.DebtAdded{Debt: d, AddedBy: userName}}, "")
	r.log(protocol.ActivityDebt, fmt.Sprintf("%s added personal debt: %s (%s)", userName, d.Description, ledger.FormatCurrency(d.Amount)), now)
	return d, nil
}

// DeleteItem removes an expense or a debt by id. An unknown id is a
// *NotFoundError and nothing is broadcast.
func (r *Room) DeleteItem(userName string, kind ledger.ItemKind, id int64) error {
	if !kind.Valid() {
		return &ledger.ValidationError{Field: "itemType", Reason: fmt.Sprintf("unknown item type %q", kind)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var message string
	switch kind {
	case ledger.ItemExpense:
		removed, ok := r.book.DeleteExpense(id)
		if !ok {
			return &NotFoundError{Kind: kind, ID: id}
		}
		message = fmt.Sprintf("%s deleted expense: %s", userName, removed.Description)
	case ledger.ItemDebt:
		removed, ok := r.book.DeleteDebt(id)
		if !ok {
			return &NotFoundError{Kind: kind, ID: id}
		}
		message = fmt.Sprintf("%s deleted debt: %s", userName, removed.Description)
	}

	now := r.opts.now()
	r.lastUpdated = now
	r.broadcast(protocol.Event{Type: protocol.TypeItemDeleted, Payload: protocol.ItemDeleted{
		ItemID:    id,
		ItemType:  kind,
		DeletedBy: userName,
	}}, "")
	r.log(protocol.ActivityDelete, message, now)
	return nil
}

// SettleDebt marks a debt settled. Settling an already settled debt returns
// it unchanged and broadcasts nothing.
func (r *Room) SettleDebt(userName string, id int64) (ledger.PersonalDebt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, changed, found := r.book.SettleDebt(id)
	if !found {
		return ledger.PersonalDebt{}, &NotFoundError{Kind: ledger.ItemDebt, ID: id}
	}
	if !changed {
		return d, nil
	}

	now := r.opts.now()
	r.lastUpdated = now
	r.broadcast(protocol.Event{Type: protocol.TypeDebtSettled, Payload: protocol.DebtSettled{DebtID: id, SettledBy: userName}}, "")
	r.log(protocol.ActivitySettle, fmt.Sprintf("%s settled debt: %s", userName, d.Description), now)
	return d, nil
}

// Reset empties both collections. Members and the activity log stay.
func (r *Room) Reset(userName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.opts.now()
	r.book.Reset()
	r.lastUpdated = now
	r.broadcast(protocol.Event{Type: protocol.TypeDataReset, Payload: protocol.DataReset{ResetBy: userName}}, "")
	r.log(protocol.ActivityReset, fmt.Sprintf("%s reset all data", userName), now)
}

func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return State{
		ID:            r.id,
		Expenses:      r.book.Expenses(),
		PersonalDebts: r.book.Debts(),
		Users:         r.users(""),
		ActivityLog:   append([]protocol.Activity{}, r.activity...),
		LastUpdated:   r.lastUpdated,
	}
}

// Ledger returns copies of both collections.
func (r *Room) Ledger() ([]ledger.SharedExpense, []ledger.PersonalDebt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.book.Expenses(), r.book.Debts()
}

func (r *Room) Members() []protocol.Presence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users("")
}

func (r *Room) member(sessionID string) *member {
	if i := r.indexOf(sessionID); i >= 0 {
		return r.members[i]
	}
	return nil
}

func (r *Room) indexOf(sessionID string) int {
	return slices.IndexFunc(r.members, func(m *member) bool { return m.sub.ID() == sessionID })
}

func (r *Room) users(except string) []protocol.Presence {
	out := make([]protocol.Presence, 0, len(r.members))
	for _, m := range r.members {
		if m.sub.ID() != except {
			out = append(out, m.presence)
		}
	}
	return out
}

func (r *Room) roomData(sessionID string) protocol.Event {
	tail := r.activity
	if n := r.opts.snapshotActivity; len(tail) > n {
		tail = tail[len(tail)-n:]
	}
	activity := append([]protocol.Activity{}, tail...)

	return protocol.Event{Type: protocol.TypeRoomData, Payload: protocol.RoomData{
		Expenses:      r.book.Expenses(),
		PersonalDebts: r.book.Debts(),
		Users:         r.users(sessionID),
		ActivityLog:   activity,
	}}
}

func (r *Room) broadcastUsers() {
	r.broadcast(protocol.Event{Type: protocol.TypeUpdateUsers, Payload: r.users("")}, "")
}

func (r *Room) broadcast(e protocol.Event, except string) {
	for _, m := range r.members {
		if m.sub.ID() != except {
			m.sub.Send(e)
		}
	}
}

func (r *Room) log(kind protocol.ActivityKind, message string, at time.Time) {
	entry := protocol.NewActivity(kind, message, at)
	r.activity = append(r.activity, entry)
	if over := len(r.activity) - r.opts.activityLimit; over > 0 {
		r.activity = slices.Delete(r.activity, 0, over)
	}
	r.broadcast(protocol.Event{Type: protocol.TypeNewActivity, Payload: entry}, "")
	for _, hook := range r.opts.hooks {
		hook(r.id, entry)
	}
}
