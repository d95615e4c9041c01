package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/susu3304/warikan/internal/ledger"
	"github.com/susu3304/warikan/internal/protocol"
	"github.com/susu3304/warikan/internal/room"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
	outboxSize             = 64
	writeTimeout           = 10 * time.Second
)

var (
	errInvalidFrame = errors.New("invalid frame")
	errUnsupported  = errors.New("unsupported frame type")
)

// Handler upgrades GET requests to WebSocket sessions bound to a room.Store.
type Handler struct {
	store   *room.Store
	origins []string
}

// NewHandler accepts every origin when allowedOrigins is empty or contains "*".
func NewHandler(store *room.Store, allowedOrigins ...string) *Handler {
	return &Handler{store: store, origins: allowedOrigins}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	websocket.Server{Handler: h.serveConn, Handshake: h.handshake}.ServeHTTP(w, r)
}

func (h *Handler) handshake(_ *websocket.Config, r *http.Request) error {
	if len(h.origins) == 0 || slices.Contains(h.origins, "*") {
		return nil
	}
	origin := r.Header.Get("Origin")
	if slices.Contains(h.origins, origin) {
		return nil
	}
	return fmt.Errorf("origin %q not allowed", origin)
}

type session struct {
	peer *peer
	room *room.Room
	name string
}

func (h *Handler) serveConn(conn *websocket.Conn) {
	conn.MaxPayloadBytes = maxFramePayloadBytes
	p := newPeer(uuid.NewString(), conn)
	s := &session{peer: p}
	go p.writeLoop()

	remote := ""
	if req := conn.Request(); req != nil {
		remote = req.RemoteAddr
	}
	log.Printf("relay: connection opened id=%s remote=%s", p.id, remote)

	defer func() {
		if s.room != nil {
			s.room.Leave(p.id)
		}
		p.stop()
		<-p.wrote
		_ = conn.Close()
		log.Printf("relay: connection closed id=%s", p.id)
	}()

	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame protocol.Frame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			switch {
			case errors.Is(err, websocket.ErrFrameTooLarge):
				p.Send(protocol.ErrorEvent(protocol.CodeInvalidFrame, "payload too large"))
				continue
			case isDecodeError(err):
				decodeErrors++
				p.Send(protocol.ErrorEvent(protocol.CodeInvalidFrame, "invalid frame payload"))
				if decodeErrors >= maxDecodeErrorsPerConn {
					return
				}
				continue
			default:
				// EOF or a broken connection.
				return
			}
		}
		decodeErrors = 0

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			reply := protocol.ErrorEvent(protocol.CodeRateLimited, "rate limit exceeded")
			reply.RequestID = frame.RequestID
			p.Send(reply)
			return
		}

		if err := h.dispatch(s, frame); err != nil {
			code, message := errorCode(err)
			reply := protocol.ErrorEvent(code, message)
			reply.RequestID = frame.RequestID
			p.Send(reply)
		}
	}
}

func isDecodeError(err error) bool {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.As(err, &syntax) || errors.As(err, &typ)
}

func (h *Handler) dispatch(s *session, frame protocol.Frame) error {
	switch frame.Type {
	case protocol.TypeJoinRoom:
		var in protocol.JoinRoom
		if err := decode(frame, &in); err != nil {
			return err
		}
		return h.join(s, in)
	case protocol.TypeAddExpense:
		var in protocol.AddExpense
		if err := decode(frame, &in); err != nil {
			return err
		}
		r, err := h.store.Get(in.RoomID)
		if err != nil {
			return err
		}
		_, err = r.AddExpense(s.actor(in.UserName), in.Expense)
		return err
	case protocol.TypeAddPersonalDebt:
		var in protocol.AddPersonalDebt
		if err := decode(frame, &in); err != nil {
			return err
		}
		r, err := h.store.Get(in.RoomID)
		if err != nil {
			return err
		}
		_, err = r.AddDebt(s.actor(in.UserName), in.Debt)
		return err
	case protocol.TypeDeleteItem:
		var in protocol.DeleteItem
		if err := decode(frame, &in); err != nil {
			return err
		}
		r, err := h.store.Get(in.RoomID)
		if err != nil {
			return err
		}
		return r.DeleteItem(s.actor(in.UserName), in.ItemType, in.ItemID)
	case protocol.TypeSettleDebt:
		var in protocol.SettleDebt
		if err := decode(frame, &in); err != nil {
			return err
		}
		r, err := h.store.Get(in.RoomID)
		if err != nil {
			return err
		}
		_, err = r.SettleDebt(s.actor(in.UserName), in.DebtID)
		return err
	case protocol.TypeResetData:
		var in protocol.ResetData
		if err := decode(frame, &in); err != nil {
			return err
		}
		r, err := h.store.Get(in.RoomID)
		if err != nil {
			return err
		}
		r.Reset(s.actor(in.UserName))
		return nil
	case protocol.TypeTyping:
		var in protocol.Typing
		if err := decode(frame, &in); err != nil {
			return err
		}
		r, err := h.store.Get(in.RoomID)
		if err != nil {
			return err
		}
		r.Typing(s.peer.id, in.UserName, in.IsTyping)
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnsupported, frame.Type)
	}
}

func (h *Handler) join(s *session, in protocol.JoinRoom) error {
	roomID := strings.TrimSpace(in.RoomID)
	if roomID == "" {
		return &ledger.ValidationError{Field: "roomId", Reason: "room id is required"}
	}
	name := strings.TrimSpace(in.UserName)
	if name == "" {
		return &ledger.ValidationError{Field: "userName", Reason: "name is required"}
	}

	next := h.store.Ensure(roomID)
	if s.room != nil && s.room != next {
		s.room.Leave(s.peer.id)
		s.room = nil
	}
	if _, err := next.Join(s.peer, name); err != nil {
		return err
	}
	s.room = next
	s.name = name
	log.Printf("relay: join id=%s room=%q user=%q", s.peer.id, roomID, name)
	return nil
}

// actor is the name recorded for a mutation: the one in the frame, or the
// name the session joined with.
func (s *session) actor(userName string) string {
	if name := strings.TrimSpace(userName); name != "" {
		return name
	}
	return s.name
}

func decode(frame protocol.Frame, v any) error {
	if err := frame.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidFrame, err)
	}
	return nil
}

func errorCode(err error) (string, string) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		return protocol.CodeInvalidArgument, verr.Error()
	case errors.Is(err, room.ErrRoomNotFound):
		return protocol.CodeRoomNotFound, "room not found"
	case errors.Is(err, room.ErrNotFound):
		return protocol.CodeNotFound, err.Error()
	case errors.Is(err, errUnsupported):
		return protocol.CodeUnsupported, err.Error()
	case errors.Is(err, errInvalidFrame):
		return protocol.CodeInvalidFrame, err.Error()
	default:
		log.Printf("relay: unexpected error: %v", err)
		return protocol.CodeInvalidFrame, "request failed"
	}
}
