package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/susu3304/warikan/internal/ledger"
	"github.com/susu3304/warikan/internal/protocol"
	"github.com/susu3304/warikan/internal/room"
)

// Dispatcher submits ledger mutations. Implementations never touch the
// replica directly; the replica changes when the resulting events arrive.
type Dispatcher interface {
	AddExpense(ctx context.Context, draft ledger.ExpenseDraft) error
	AddDebt(ctx context.Context, draft ledger.DebtDraft) error
	DeleteItem(ctx context.Context, kind ledger.ItemKind, id int64) error
	SettleDebt(ctx context.Context, id int64) error
	Reset(ctx context.Context) error
}

var (
	_ Dispatcher = (*LocalDispatcher)(nil)
	_ Dispatcher = (*RelayDispatcher)(nil)
)

const localRoomID = "local"

// LocalDispatcher runs mutations against a private in-process room whose
// only member is the replica. Validation, ids and activity entries behave
// exactly as on the relay.
type LocalDispatcher struct {
	room     *room.Room
	userName string
}

func NewLocalDispatcher(roster *ledger.Roster, replica *Replica, userName string, opts ...room.Option) (*LocalDispatcher, error) {
	r := room.NewStore(roster, opts...).Ensure(localRoomID)
	if _, err := r.Join(replica, userName); err != nil {
		return nil, err
	}
	return &LocalDispatcher{room: r, userName: userName}, nil
}

func (d *LocalDispatcher) AddExpense(_ context.Context, draft ledger.ExpenseDraft) error {
	_, err := d.room.AddExpense(d.userName, draft)
	return err
}

func (d *LocalDispatcher) AddDebt(_ context.Context, draft ledger.DebtDraft) error {
	_, err := d.room.AddDebt(d.userName, draft)
	return err
}

func (d *LocalDispatcher) DeleteItem(_ context.Context, kind ledger.ItemKind, id int64) error {
	return d.room.DeleteItem(d.userName, kind, id)
}

func (d *LocalDispatcher) SettleDebt(_ context.Context, id int64) error {
	_, err := d.room.SettleDebt(d.userName, id)
	return err
}

func (d *LocalDispatcher) Reset(_ context.Context) error {
	d.room.Reset(d.userName)
	return nil
}

var ErrClosed = errors.New("relay connection closed")

// RelayDispatcher sends mutations to a relay and feeds everything the relay
// broadcasts back into the replica. Rejections arrive asynchronously on
// Errors.
type RelayDispatcher struct {
	conn     *websocket.Conn
	replica  *Replica
	roomID   string
	userName string

	wmu  sync.Mutex
	errs chan protocol.Error
	done chan struct{}
	err  error
}

// DialRelay connects to a relay WebSocket endpoint and joins roomID.
func DialRelay(ctx context.Context, url, origin, roomID, userName string, replica *Replica) (*RelayDispatcher, error) {
	cfg, err := websocket.NewConfig(url, origin)
	if err != nil {
		return nil, fmt.Errorf("relay config: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		cfg.Dialer = &net.Dialer{Deadline: deadline}
	}
	conn, err := websocket.DialConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	d := &RelayDispatcher{
		conn:     conn,
		replica:  replica,
		roomID:   roomID,
		userName: userName,
		errs:     make(chan protocol.Error, 16),
		done:     make(chan struct{}),
	}
	go d.readLoop()

	if err := d.send(ctx, protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: roomID, UserName: userName}); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *RelayDispatcher) readLoop() {
	defer close(d.done)
	for {
		var frame protocol.Frame
		if err := websocket.JSON.Receive(d.conn, &frame); err != nil {
			d.err = err
			return
		}
		e, err := protocol.DecodeEvent(frame)
		if err != nil {
			log.Printf("client: skipping frame type=%s err=%v", frame.Type, err)
			continue
		}
		if rejected, ok := e.Payload.(protocol.Error); ok {
			select {
			case d.errs <- rejected:
			default:
				log.Printf("client: dropping relay error code=%s message=%q", rejected.Code, rejected.Message)
			}
			continue
		}
		d.replica.Apply(e)
	}
}

// Errors delivers the relay's rejections of this client's frames.
func (d *RelayDispatcher) Errors() <-chan protocol.Error {
	return d.errs
}

// Done is closed when the connection ends.
func (d *RelayDispatcher) Done() <-chan struct{} {
	return d.done
}

// Err reports why the connection ended. Only valid after Done is closed.
func (d *RelayDispatcher) Err() error {
	return d.err
}

func (d *RelayDispatcher) Close() error {
	return d.conn.Close()
}

func (d *RelayDispatcher) AddExpense(ctx context.Context, draft ledger.ExpenseDraft) error {
	return d.send(ctx, protocol.TypeAddExpense, protocol.AddExpense{RoomID: d.roomID, Expense: draft, UserName: d.userName})
}

func (d *RelayDispatcher) AddDebt(ctx context.Context, draft ledger.DebtDraft) error {
	return d.send(ctx, protocol.TypeAddPersonalDebt, protocol.AddPersonalDebt{RoomID: d.roomID, Debt: draft, UserName: d.userName})
}

func (d *RelayDispatcher) DeleteItem(ctx context.Context, kind ledger.ItemKind, id int64) error {
	return d.send(ctx, protocol.TypeDeleteItem, protocol.DeleteItem{RoomID: d.roomID, ItemID: id, ItemType: kind, UserName: d.userName})
}

func (d *RelayDispatcher) SettleDebt(ctx context.Context, id int64) error {
	return d.send(ctx, protocol.TypeSettleDebt, protocol.SettleDebt{RoomID: d.roomID, DebtID: id, UserName: d.userName})
}

func (d *RelayDispatcher) Reset(ctx context.Context) error {
	return d.send(ctx, protocol.TypeResetData, protocol.ResetData{RoomID: d.roomID, UserName: d.userName})
}

// SetTyping is not part of Dispatcher; typing is presence, not ledger state.
func (d *RelayDispatcher) SetTyping(ctx context.Context, isTyping bool) error {
	return d.send(ctx, protocol.TypeTyping, protocol.Typing{RoomID: d.roomID, UserName: d.userName, IsTyping: isTyping})
}

func (d *RelayDispatcher) send(ctx context.Context, typ string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-d.done:
		return ErrClosed
	default:
	}

	frame, err := protocol.NewFrame(typ, payload)
	if err != nil {
		return err
	}

	d.wmu.Lock()
	defer d.wmu.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	_ = d.conn.SetWriteDeadline(deadline)
	if err := websocket.JSON.Send(d.conn, frame); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}
