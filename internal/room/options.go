package room

import (
	"time"

	"github.com/susu3304/warikan/internal/protocol"
)

const (
	DefaultActivityLimit    = 50
	DefaultSnapshotActivity = 10
)

// ActivityHook observes every logged activity entry. Hooks run while the
// room is locked and must not block or call back into the room.
type ActivityHook func(roomID string, entry protocol.Activity)

type options struct {
	now              func() time.Time
	activityLimit    int
	snapshotActivity int
	hooks            []ActivityHook
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithActivityLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.activityLimit = n
		}
	}
}

// WithSnapshotActivity sets how many of the newest activity entries a join
// snapshot carries.
func WithSnapshotActivity(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.snapshotActivity = n
		}
	}
}

func WithActivityHook(hook ActivityHook) Option {
	return func(o *options) {
		if hook != nil {
			o.hooks = append(o.hooks, hook)
		}
	}
}

func defaultOptions() options {
	return options{
		now:              time.Now,
		activityLimit:    DefaultActivityLimit,
		snapshotActivity: DefaultSnapshotActivity,
	}
}
