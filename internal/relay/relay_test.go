package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/susu3304/warikan/internal/ledger"
	"github.com/susu3304/warikan/internal/protocol"
	"github.com/susu3304/warikan/internal/room"
)

func newTestServer(t *testing.T) (*httptest.Server, *room.Store) {
	t.Helper()
	store := room.NewStore(ledger.DefaultRoster())
	store.Ensure("warsan305")
	srv := httptest.NewServer(NewHandler(store))
	t.Cleanup(srv.Close)
	return srv, store
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	frame, err := protocol.NewFrame(typ, payload)
	require.NoError(t, err)
	require.NoError(t, websocket.JSON.Send(conn, frame))
}

func readEvent(t *testing.T, conn *websocket.Conn) protocol.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame protocol.Frame
	require.NoError(t, websocket.JSON.Receive(conn, &frame))
	e, err := protocol.DecodeEvent(frame)
	require.NoError(t, err)
	return e
}

// readUntil skips frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) protocol.Event {
	t.Helper()
	for i := 0; i < 32; i++ {
		if e := readEvent(t, conn); e.Type == typ {
			return e
		}
	}
	t.Fatalf("no %s frame received", typ)
	return protocol.Event{}
}

func join(t *testing.T, conn *websocket.Conn, roomID, name string) protocol.RoomData {
	t.Helper()
	send(t, conn, protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: roomID, UserName: name})
	data := readUntil(t, conn, protocol.TypeRoomData).Payload.(protocol.RoomData)
	readUntil(t, conn, protocol.TypeNewActivity)
	return data
}

func rent() ledger.ExpenseDraft {
	return ledger.ExpenseDraft{Category: "rent", Description: "Rent", Amount: 140, InvoiceDate: "2024-05-01", Payer: "person1"}
}

func TestJoinAndBroadcast(t *testing.T) {
	srv, store := newTestServer(t)
	alice, bob := dial(t, srv), dial(t, srv)

	data := join(t, alice, "warsan305", "Brian")
	assert.Empty(t, data.Users)
	assert.Empty(t, data.Expenses)

	data = join(t, bob, "warsan305", "Tessa")
	require.Len(t, data.Users, 1)
	assert.Equal(t, "Brian", data.Users[0].Name)

	joined := readUntil(t, alice, protocol.TypeUserJoined).Payload.(protocol.Presence)
	assert.Equal(t, "Tessa", joined.Name)
	readUntil(t, alice, protocol.TypeNewActivity)

	send(t, alice, protocol.TypeAddExpense, protocol.AddExpense{RoomID: "warsan305", Expense: rent(), UserName: "Brian"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		added := readEvent(t, conn)
		require.Equal(t, protocol.TypeExpenseAdded, added.Type)
		payload := added.Payload.(protocol.ExpenseAdded)
		assert.Equal(t, int64(1), payload.Expense.ID)
		assert.Equal(t, "Brian", payload.AddedBy)

		activity := readEvent(t, conn)
		require.Equal(t, protocol.TypeNewActivity, activity.Type)
		assert.Equal(t, "Brian added expense: Rent ($140.00)", activity.Payload.(protocol.Activity).Message)
	}

	r, err := store.Get("warsan305")
	require.NoError(t, err)
	expenses, _ := r.Ledger()
	assert.Len(t, expenses, 1)
}

func TestErrorsReachOnlyTheOriginator(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, bob := dial(t, srv), dial(t, srv)
	join(t, alice, "warsan305", "Brian")
	join(t, bob, "warsan305", "Tessa")
	readUntil(t, alice, protocol.TypeNewActivity)

	bad := rent()
	bad.Amount = 0
	frame, err := protocol.NewFrame(protocol.TypeAddExpense, protocol.AddExpense{RoomID: "warsan305", Expense: bad})
	require.NoError(t, err)
	frame.RequestID = "r1"
	require.NoError(t, websocket.JSON.Send(alice, frame))

	reply := readEvent(t, alice)
	require.Equal(t, protocol.TypeError, reply.Type)
	assert.Equal(t, "r1", reply.RequestID)
	assert.Equal(t, protocol.CodeInvalidArgument, reply.Payload.(protocol.Error).Code)

	send(t, alice, protocol.TypeDeleteItem, protocol.DeleteItem{RoomID: "warsan305", ItemID: 99, ItemType: ledger.ItemExpense})
	assert.Equal(t, protocol.CodeNotFound, readEvent(t, alice).Payload.(protocol.Error).Code)

	send(t, alice, protocol.TypeAddExpense, protocol.AddExpense{RoomID: "elsewhere", Expense: rent()})
	assert.Equal(t, protocol.CodeRoomNotFound, readEvent(t, alice).Payload.(protocol.Error).Code)

	send(t, alice, "chat.send", map[string]string{"body": "hi"})
	assert.Equal(t, protocol.CodeUnsupported, readEvent(t, alice).Payload.(protocol.Error).Code)

	// The first frame bob sees after all those rejections is the valid one.
	send(t, alice, protocol.TypeAddExpense, protocol.AddExpense{RoomID: "warsan305", Expense: rent()})
	added := readEvent(t, bob)
	require.Equal(t, protocol.TypeExpenseAdded, added.Type)
	assert.Equal(t, "Brian", added.Payload.(protocol.ExpenseAdded).AddedBy, "falls back to the joined name")
}

func TestTypingSkipsSender(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, bob := dial(t, srv), dial(t, srv)
	join(t, alice, "warsan305", "Brian")
	join(t, bob, "warsan305", "Tessa")
	readUntil(t, alice, protocol.TypeNewActivity)

	send(t, alice, protocol.TypeTyping, protocol.Typing{RoomID: "warsan305", UserName: "Brian", IsTyping: true})
	typing := readEvent(t, bob)
	require.Equal(t, protocol.TypeUserTyping, typing.Type)
	assert.True(t, typing.Payload.(protocol.UserTyping).IsTyping)

	send(t, alice, protocol.TypeResetData, protocol.ResetData{RoomID: "warsan305", UserName: "Brian"})
	assert.Equal(t, protocol.TypeDataReset, readEvent(t, alice).Type, "alice saw no typing echo")
}

func TestLeaveOnDisconnectAndRoomSwitch(t *testing.T) {
	srv, store := newTestServer(t)
	alice, bob, carol := dial(t, srv), dial(t, srv), dial(t, srv)
	join(t, alice, "warsan305", "Brian")
	join(t, bob, "warsan305", "Tessa")
	readUntil(t, alice, protocol.TypeNewActivity)

	join(t, bob, "upstairs", "Tessa")
	left := readUntil(t, alice, protocol.TypeUserLeft).Payload.(protocol.UserLeft)
	assert.Equal(t, "Tessa", left.UserName)
	readUntil(t, alice, protocol.TypeNewActivity)

	join(t, carol, "warsan305", "Robert")
	readUntil(t, alice, protocol.TypeNewActivity)
	require.NoError(t, carol.Close())
	left = readUntil(t, alice, protocol.TypeUserLeft).Payload.(protocol.UserLeft)
	assert.Equal(t, "Robert", left.UserName)

	upstairs, err := store.Get("upstairs")
	require.NoError(t, err)
	assert.Len(t, upstairs.Members(), 1)
}

func TestMalformedFramesCloseTheConnection(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	for i := 0; i < maxDecodeErrorsPerConn; i++ {
		require.NoError(t, websocket.Message.Send(conn, "{not json"))
		reply := readEvent(t, conn)
		require.Equal(t, protocol.TypeError, reply.Type)
		assert.Equal(t, protocol.CodeInvalidFrame, reply.Payload.(protocol.Error).Code)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame protocol.Frame
	assert.Error(t, websocket.JSON.Receive(conn, &frame))
}

func TestOversizedFrameIsRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	send(t, conn, protocol.TypeJoinRoom, protocol.JoinRoom{RoomID: "warsan305", UserName: strings.Repeat("x", maxFramePayloadBytes)})
	reply := readEvent(t, conn)
	require.Equal(t, protocol.TypeError, reply.Type)
	assert.Equal(t, "payload too large", reply.Payload.(protocol.Error).Message)

	data := join(t, conn, "warsan305", "Brian")
	assert.Empty(t, data.Users)
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)
	join(t, conn, "warsan305", "Brian")

	for i := 0; i < maxFramesPerSecond+5; i++ {
		if err := websocket.JSON.Send(conn, protocol.Frame{Type: protocol.TypeTyping, Payload: []byte(`{"roomId":"warsan305","isTyping":true}`)}); err != nil {
			break
		}
	}
	reply := readUntil(t, conn, protocol.TypeError)
	assert.Equal(t, protocol.CodeRateLimited, reply.Payload.(protocol.Error).Code)
}

func TestRejectsNonGet(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL, "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestOriginAllowList(t *testing.T) {
	store := room.NewStore(ledger.DefaultRoster())
	srv := httptest.NewServer(NewHandler(store, "https://warikan.example"))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, err := websocket.Dial(wsURL, "", "https://evil.example")
	assert.Error(t, err)

	conn, err := websocket.Dial(wsURL, "", "https://warikan.example")
	require.NoError(t, err)
	_ = conn.Close()
}
