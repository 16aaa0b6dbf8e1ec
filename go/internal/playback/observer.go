package playback

import (
	"time"

	"github.com/rs/zerolog/log"
)

// NotificationKind identifies what happened to a run.
type NotificationKind string

const (
	NotifyStarted        NotificationKind = "RunStarted"
	NotifyTick           NotificationKind = "Tick"
	NotifySegmentChanged NotificationKind = "SegmentChanged"
	NotifyPaused         NotificationKind = "RunPaused"
	NotifyResumed        NotificationKind = "RunResumed"
	NotifySkipped        NotificationKind = "SegmentSkipped"
	NotifyFinished       NotificationKind = "RunFinished"
	NotifyCancelled      NotificationKind = "RunCancelled"
)

// Lifecycle reports whether the kind is a lifecycle change rather than a
// per-second tick.
func (k NotificationKind) Lifecycle() bool {
	return k != NotifyTick
}

// Notification is delivered to observers after every state change.
// Summary is set only for NotifyFinished and NotifyCancelled.
type Notification struct {
	Kind     NotificationKind
	RunID    string
	At       time.Time
	Snapshot Snapshot
	Summary  *Summary
}

// Observer receives notifications on the goroutine that drives the run, so
// implementations must return quickly.
type Observer interface {
	Observe(n Notification)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(n Notification)

func (f ObserverFunc) Observe(n Notification) {
	f(n)
}

// MultiObserver fans a notification out to every member in order. A member
// that panics is logged and does not stop delivery to the members after it.
type MultiObserver []Observer

func (m MultiObserver) Observe(n Notification) {
	for i, o := range m {
		if o != nil {
			observeOne(i, o, n)
		}
	}
}

func observeOne(i int, o Observer, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("run_id", n.RunID).
				Str("kind", string(n.Kind)).
				Int("member", i).
				Interface("panic", r).
				Msg("Observer panicked")
		}
	}()
	o.Observe(n)
}
