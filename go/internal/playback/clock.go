package playback

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// TickInterval is the logical period of the session clock.
	TickInterval = time.Second

	// DefaultWakeInterval approximates a display refresh cadence.
	DefaultWakeInterval = time.Second / 60
)

var ErrInvalidWakeInterval = errors.New("wake interval must be positive")

// WakeSource delivers wake-ups. The wake-ups only prompt the clock to look at
// elapsed time; their spacing does not have to be regular.
type WakeSource interface {
	Chan() <-chan time.Time
	Stop()
}

// FrameSource opens a WakeSource bound to the host's frame cadence. Returning
// nil falls back to a ticker.
type FrameSource func() WakeSource

type ClockOptions struct {
	WakeInterval time.Duration
	Frames       FrameSource
}

// Validate fills defaults and rejects a negative wake interval.
func (o *ClockOptions) Validate() error {
	if o.WakeInterval < 0 {
		return ErrInvalidWakeInterval
	}
	if o.WakeInterval == 0 {
		o.WakeInterval = DefaultWakeInterval
	}
	return nil
}

// SessionClock turns irregular wake-ups into logical one-second ticks.
//
// It keeps an anchor timestamp. On every wake-up it measures the time since
// the anchor and, once at least a second has passed, fires the tick callback
// exactly once and rebases the anchor to now minus the sub-second remainder.
// A late wake-up therefore never fires a burst of ticks, and the remainder is
// carried into the next second so late wake-ups do not accumulate drift.
//
// SessionClock is not safe for concurrent use. The goroutine that owns the run
// calls Start, Stop and Wake.
type SessionClock struct {
	clock   clockwork.Clock
	onTick  func()
	opts    ClockOptions
	anchor  time.Time
	wakes   WakeSource
	running bool
}

// NewSessionClock builds a stopped clock. A nil clock uses the real clock and
// invalid options fall back to defaults.
func NewSessionClock(clock clockwork.Clock, onTick func(), opts ClockOptions) *SessionClock {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := opts.Validate(); err != nil {
		opts.WakeInterval = DefaultWakeInterval
	}
	return &SessionClock{
		clock:  clock,
		onTick: onTick,
		opts:   opts,
	}
}

// Start anchors the clock at the current instant and begins scheduling
// wake-ups. Starting a running clock re-anchors it.
func (c *SessionClock) Start() {
	if c.running {
		c.wakes.Stop()
	}
	c.anchor = c.clock.Now()
	c.wakes = c.openWakes()
	c.running = true
}

// Stop cancels the pending wake-up. It is idempotent.
func (c *SessionClock) Stop() {
	if !c.running {
		return
	}
	c.running = false
	c.wakes.Stop()
	c.wakes = nil
}

func (c *SessionClock) Running() bool {
	return c.running
}

// C returns the channel of the current wake source, or nil while stopped so
// that a select on it blocks.
func (c *SessionClock) C() <-chan time.Time {
	if c.wakes == nil {
		return nil
	}
	return c.wakes.Chan()
}

// Wake performs one wake-up check and reports whether a tick fired.
// Wake-ups on a stopped clock are discarded.
func (c *SessionClock) Wake() bool {
	if !c.running {
		return false
	}
	now := c.clock.Now()
	delta := now.Sub(c.anchor)
	if delta < TickInterval {
		return false
	}
	c.anchor = now.Add(-(delta % TickInterval))
	if c.onTick != nil {
		c.onTick()
	}
	return true
}

func (c *SessionClock) openWakes() WakeSource {
	if c.opts.Frames != nil {
		if src := c.opts.Frames(); src != nil {
			return src
		}
	}
	return c.clock.NewTicker(c.opts.WakeInterval)
}
