package protocol

import (
	"time"

	"github.com/susu3304/warikan/internal/ledger"
)

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

type AddExpense struct {
	RoomID   string              `json:"roomId"`
	Expense  ledger.ExpenseDraft `json:"expense"`
	UserName string              `json:"userName"`
}

type AddPersonalDebt struct {
	RoomID   string           `json:"roomId"`
	Debt     ledger.DebtDraft `json:"debt"`
	UserName string           `json:"userName"`
}

type DeleteItem struct {
	RoomID   string          `json:"roomId"`
	ItemID   int64           `json:"itemId"`
	ItemType ledger.ItemKind `json:"itemType"`
	UserName string          `json:"userName"`
}

type SettleDebt struct {
	RoomID   string `json:"roomId"`
	DebtID   int64  `json:"debtId"`
	UserName string `json:"userName"`
}

type ResetData struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

type Typing struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

// RoomData is the snapshot sent to a joining session. Users excludes the
// joiner itself.
type RoomData struct {
	Expenses      []ledger.SharedExpense `json:"expenses"`
	PersonalDebts []ledger.PersonalDebt  `json:"personalDebts"`
	Users         []Presence             `json:"users"`
	ActivityLog   []Activity             `json:"activityLog"`
}

type UserLeft struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type UserTyping struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

type ExpenseAdded struct {
	Expense ledger.SharedExpense `json:"expense"`
	AddedBy string               `json:"addedBy"`
}

type DebtAdded struct {
	Debt    ledger.PersonalDebt `json:"debt"`
	AddedBy string              `json:"addedBy"`
}

type ItemDeleted struct {
	ItemID    int64           `json:"itemId"`
	ItemType  ledger.ItemKind `json:"itemType"`
	DeletedBy string          `json:"deletedBy"`
}

type DebtSettled struct {
	DebtID    int64  `json:"debtId"`
	SettledBy string `json:"settledBy"`
}

type DataReset struct {
	ResetBy string `json:"resetBy"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Presence is one connected session as other members see it.
type Presence struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	IsTyping bool      `json:"isTyping"`
	JoinedAt time.Time `json:"joinedAt"`
}

type ActivityKind string

const (
	ActivityJoin    ActivityKind = "join"
	ActivityLeave   ActivityKind = "leave"
	ActivityExpense ActivityKind = "expense"
	ActivityDebt    ActivityKind = "debt"
	ActivityDelete  ActivityKind = "delete"
	ActivitySettle  ActivityKind = "settle"
	ActivityReset   ActivityKind = "reset"
)

// Activity is one entry of a room's bounded activity feed.
type Activity struct {
	Message   string       `json:"message"`
	Type      ActivityKind `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Time      string       `json:"time"`
}

// NewActivity stamps an entry with at, rendering the clock time as HH:MM.
func NewActivity(kind ActivityKind, message string, at time.Time) Activity {
	return Activity{Message: message, Type: kind, Timestamp: at, Time: at.Format("15:04")}
}
