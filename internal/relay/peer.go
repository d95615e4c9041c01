package relay

import (
	"log"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/susu3304/warikan/internal/protocol"
)

// peer is the room.Subscriber side of one connection. Rooms enqueue into
// out while locked; a single writer goroutine drains it in order.
type peer struct {
	id     string
	conn   *websocket.Conn
	out    chan protocol.Event
	quit   chan struct{}
	wrote  chan struct{}
	once   sync.Once
	wdelay time.Duration
}

func newPeer(id string, conn *websocket.Conn) *peer {
	return &peer{
		id:     id,
		conn:   conn,
		out:    make(chan protocol.Event, outboxSize),
		quit:   make(chan struct{}),
		wrote:  make(chan struct{}),
		wdelay: writeTimeout,
	}
}

func (p *peer) ID() string {
	return p.id
}

// Send never blocks. A peer whose outbox is full is too slow to keep the
// room's order and gets disconnected.
func (p *peer) Send(e protocol.Event) {
	select {
	case <-p.quit:
		return
	default:
	}

	select {
	case p.out <- e:
	default:
		log.Printf("relay: dropping slow connection id=%s backlog=%d", p.id, len(p.out))
		p.stop()
		go func() {
			_ = p.conn.Close()
		}()
	}
}

func (p *peer) stop() {
	p.once.Do(func() {
		close(p.quit)
	})
}

// writeLoop runs until the peer stops, flushing what is already queued.
func (p *peer) writeLoop() {
	defer close(p.wrote)
	for {
		select {
		case e := <-p.out:
			if err := p.write(e); err != nil {
				p.stop()
				return
			}
		case <-p.quit:
			for {
				select {
				case e := <-p.out:
					if err := p.write(e); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (p *peer) write(e protocol.Event) error {
	frame, err := e.Frame()
	if err != nil {
		log.Printf("relay: failed to encode %s frame id=%s err=%v", e.Type, p.id, err)
		return nil
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(p.wdelay))
	return websocket.JSON.Send(p.conn, frame)
}
