package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame is the JSON envelope of every WebSocket message in both directions.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Client to server frame types.
const (
	TypeJoinRoom        = "join-room"
	TypeAddExpense      = "add-expense"
	TypeAddPersonalDebt = "add-personal-debt"
	TypeDeleteItem      = "delete-item"
	TypeSettleDebt      = "settle-debt"
	TypeResetData       = "reset-data"
	TypeTyping          = "typing"
)

// Server to client frame types.
const (
	TypeRoomData     = "room-data"
	TypeUserJoined   = "user-joined"
	TypeUserLeft     = "user-left"
	TypeUpdateUsers  = "update-users"
	TypeUserTyping   = "user-typing"
	TypeExpenseAdded = "expense-added"
	TypeDebtAdded    = "debt-added"
	TypeItemDeleted  = "item-deleted"
	TypeDebtSettled  = "debt-settled"
	TypeDataReset    = "data-reset"
	TypeNewActivity  = "new-activity"
	TypeError        = "error"
)

// Error codes carried by error frames.
const (
	CodeInvalidArgument = "invalid-argument"
	CodeNotFound        = "not-found"
	CodeRoomNotFound    = "room-not-found"
	CodeInvalidFrame    = "invalid-frame"
	CodeUnsupported     = "unsupported"
	CodeRateLimited     = "rate-limited"
)

var ErrUnknownType = errors.New("unknown frame type")

// NewFrame marshals payload into a frame of the given type.
func NewFrame(typ string, payload any) (Frame, error) {
	f := Frame{Type: typ}
	if payload == nil {
		return f, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	f.Payload = b
	return f, nil
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v any) error {
	if len(f.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", f.Type)
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", f.Type, err)
	}
	return nil
}

// Event is a server to client message before it is framed. Payload holds
// one of the typed payload structs of this package. RequestID is only set on
// replies to a specific client frame.
type Event struct {
	Type      string
	RequestID string
	Payload   any
}

func (e Event) Frame() (Frame, error) {
	f, err := NewFrame(e.Type, e.Payload)
	f.RequestID = e.RequestID
	return f, err
}

// ErrorEvent builds the error frame sent only to the originator of a
// rejected request.
func ErrorEvent(code, message string) Event {
	return Event{Type: TypeError, Payload: Error{Code: code, Message: message}}
}

// DecodeEvent turns a server frame back into a typed Event.
func DecodeEvent(f Frame) (Event, error) {
	var payload any
	switch f.Type {
	case TypeRoomData:
		payload = &RoomData{}
	case TypeUserJoined:
		payload = &Presence{}
	case TypeUserLeft:
		payload = &UserLeft{}
	case TypeUpdateUsers:
		payload = &[]Presence{}
	case TypeUserTyping:
		payload = &UserTyping{}
	case TypeExpenseAdded:
		payload = &ExpenseAdded{}
	case TypeDebtAdded:
		payload = &DebtAdded{}
	case TypeItemDeleted:
		payload = &ItemDeleted{}
	case TypeDebtSettled:
		payload = &DebtSettled{}
	case TypeDataReset:
		payload = &DataReset{}
	case TypeNewActivity:
		payload = &Activity{}
	case TypeError:
		payload = &Error{}
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}
	if err := f.Decode(payload); err != nil {
		return Event{}, err
	}
	return Event{Type: f.Type, RequestID: f.RequestID, Payload: deref(payload)}, nil
}

func deref(p any) any {
	switch v := p.(type) {
	case *RoomData:
		return *v
	case *Presence:
		return *v
	case *UserLeft:
		return *v
	case *[]Presence:
		return *v
	case *UserTyping:
		return *v
	case *ExpenseAdded:
		return *v
	case *DebtAdded:
		return *v
	case *ItemDeleted:
		return *v
	case *DebtSettled:
		return *v
	case *DataReset:
		return *v
	case *Activity:
		return *v
	case *Error:
		return *v
	}
	return p
}
