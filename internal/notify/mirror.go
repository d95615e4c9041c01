package notify

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/susu3304/warikan/internal/protocol"
	"github.com/susu3304/warikan/internal/room"
)

const (
	// Discord rejects messages longer than this.
	maxMessageLen = 2000
	queueSize     = 256
)

// Minimal session interface for sending channel messages.
type mirrorSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type entry struct {
	roomID   string
	activity protocol.Activity
}

// Mirror posts room activity to a Discord channel. Entries are queued by the
// room hook and flushed in batches so a burst of edits becomes one message.
type Mirror struct {
	session   mirrorSession
	channelID string
	queue     chan entry
	stopChan  chan struct{}
	done      chan struct{}
	once      sync.Once
	interval  time.Duration
	retryWait time.Duration
}

// New opens a REST-only Discord session for the bot token.
func New(token, channelID string) (*Mirror, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return newMirror(session, channelID, 5*time.Second), nil
}

func newMirror(session mirrorSession, channelID string, interval time.Duration) *Mirror {
	return &Mirror{
		session:   session,
		channelID: channelID,
		queue:     make(chan entry, queueSize),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
		interval:  interval,
		retryWait: 300 * time.Millisecond,
	}
}

// Hook returns the room hook feeding this mirror. It never blocks; entries
// are dropped when the queue is full.
func (m *Mirror) Hook() room.ActivityHook {
	return func(roomID string, a protocol.Activity) {
		select {
		case m.queue <- entry{roomID: roomID, activity: a}:
		default:
			log.Printf("notify: queue full, dropping activity room=%s type=%s", roomID, a.Type)
		}
	}
}

func (m *Mirror) Start() {
	if m == nil {
		return
	}
	go m.loop()
}

// Stop flushes what is queued and waits for the worker to exit.
func (m *Mirror) Stop() {
	if m == nil {
		return
	}
	m.once.Do(func() { close(m.stopChan) })
	<-m.done
}

func (m *Mirror) loop() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-ticker.C:
			m.flush(ctx)
		case <-m.stopChan:
			m.flush(ctx)
			return
		}
	}
}

func (m *Mirror) flush(ctx context.Context) {
	var lines []string
drain:
	for {
		select {
		case e := <-m.queue:
			lines = append(lines, formatLine(e))
		default:
			break drain
		}
	}
	for _, msg := range chunk(lines, maxMessageLen) {
		if err := m.sendWithRetry(ctx, msg); err != nil {
			log.Printf("notify: failed to send message to channel %s: %v", m.channelID, err)
		}
	}
}

func formatLine(e entry) string {
	return fmt.Sprintf("[%s] %s %s", e.roomID, e.activity.Time, e.activity.Message)
}

// chunk packs lines into messages of at most limit bytes. A single line over
// the limit is truncated.
func chunk(lines []string, limit int) []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range lines {
		if len(line) > limit {
			line = line[:limit]
		}
		if cur.Len() > 0 && cur.Len()+1+len(line) > limit {
			out = append(out, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func (m *Mirror) sendWithRetry(ctx context.Context, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := m.session.ChannelMessageSend(m.channelID, content, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTimeout(err) {
			return err
		}
		time.Sleep(m.retryWait + time.Duration(rand.Int63n(int64(m.retryWait)+1)))
	}
	return lastErr
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout()
	}
	return false
}
