package playback

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/treadpro/go/internal/audio"
	"github.com/mcdev12/treadpro/go/internal/models"
)

type Options struct {
	RunID        string
	Clock        clockwork.Clock
	ClockOptions ClockOptions
	Audio        audio.Backend
	Observer     Observer
}

// Controller is the single owner of a run's State. It feeds events through
// Transition and performs the resulting effects: audio cues, starting and
// stopping the SessionClock, and observer notifications.
//
// A Controller is not safe for concurrent use; Runner serializes access to it.
type Controller struct {
	runID    string
	clock    clockwork.Clock
	ticks    *SessionClock
	audio    audio.Backend
	observer Observer

	session *models.Session
	state   State
	summary *Summary
}

func NewController(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Audio == nil {
		opts.Audio = audio.NoopBackend{}
	}
	c := &Controller{
		runID:    opts.RunID,
		clock:    opts.Clock,
		audio:    opts.Audio,
		observer: opts.Observer,
	}
	c.ticks = NewSessionClock(opts.Clock, c.OnTick, opts.ClockOptions)
	return c
}

// Start validates session and begins playback at the first segment.
// A configuration error leaves the controller idle.
func (c *Controller) Start(session *models.Session) error {
	next, effects, err := Transition(session, c.state, EventStart)
	if err != nil {
		return err
	}
	c.session = session
	c.state = next
	log.Info().
		Str("run_id", c.runID).
		Str("session", session.Name).
		Int("segments", len(session.Segments)).
		Int("total_seconds", session.TotalDuration()).
		Msg("Run started")
	c.perform(EventStart, effects)
	return nil
}

// OnTick advances the run by one logical second. Ticks that arrive while the
// run is not running are ignored.
func (c *Controller) OnTick() {
	_ = c.apply(EventTick)
}

func (c *Controller) Pause() error  { return c.apply(EventPause) }
func (c *Controller) Resume() error { return c.apply(EventResume) }
func (c *Controller) Skip() error   { return c.apply(EventSkip) }
func (c *Controller) Cancel() error { return c.apply(EventCancel) }

// TogglePause pauses a running run and resumes a paused one.
func (c *Controller) TogglePause() error {
	if c.state.Status == StatusPaused {
		return c.Resume()
	}
	return c.Pause()
}

func (c *Controller) Status() Status {
	return c.state.Status
}

// Snapshot returns the display view of the current state. Once a run has
// ended only the status survives.
func (c *Controller) Snapshot() Snapshot {
	return NewSnapshot(c.session, c.state)
}

// Summary returns the outcome of the run once it has ended.
func (c *Controller) Summary() (Summary, bool) {
	if c.summary == nil {
		return Summary{}, false
	}
	return *c.summary, true
}

func (c *Controller) apply(ev Event) error {
	next, effects, err := Transition(c.session, c.state, ev)
	if err != nil {
		log.Debug().Err(err).Str("run_id", c.runID).Str("event", ev.String()).Msg("Rejected playback event")
		return err
	}
	if ev == EventTick && len(effects) == 0 && next == c.state {
		return nil
	}
	prev := c.state
	c.state = next
	if ev != EventTick {
		log.Debug().
			Str("run_id", c.runID).
			Str("event", ev.String()).
			Str("from", prev.Status.String()).
			Str("to", next.Status.String()).
			Int("segment", next.SegmentIndex).
			Msg("Playback transition")
	}
	c.perform(ev, effects)
	return nil
}

// perform runs the side effects of a transition. Audio and clock effects run
// first, then observers hear about the event itself, then about segment
// changes and the end of the run.
func (c *Controller) perform(ev Event, effects []Effect) {
	var segmentChanged, ended bool
	for _, eff := range effects {
		switch eff.Kind {
		case EffectCountdownCue:
			c.cue("countdown", c.audio.PlayCountdownBeep)
		case EffectSegmentEndCue:
			c.cue("segment_end", c.audio.PlaySegmentEndBeep)
		case EffectStartClock:
			c.ticks.Start()
		case EffectStopClock:
			c.ticks.Stop()
		case EffectSegmentChanged:
			segmentChanged = true
		case EffectFinished, EffectCancelled:
			ended = true
		}
	}

	snap := c.Snapshot()
	if kind, ok := eventNotification[ev]; ok {
		c.notify(kind, snap, nil)
	}
	if segmentChanged {
		c.notify(NotifySegmentChanged, snap, nil)
	}
	if ended {
		c.end(snap)
	}
}

var eventNotification = map[Event]NotificationKind{
	EventStart:  NotifyStarted,
	EventTick:   NotifyTick,
	EventPause:  NotifyPaused,
	EventResume: NotifyResumed,
	EventSkip:   NotifySkipped,
}

// end records the summary, tells observers and drops the session so that no
// run state outlives the run.
func (c *Controller) end(snap Snapshot) {
	summary := newSummary(c.runID, c.session, c.state)
	c.summary = &summary

	kind := NotifyFinished
	if c.state.Status == StatusCancelled {
		kind = NotifyCancelled
	}
	log.Info().
		Str("run_id", c.runID).
		Str("status", c.state.Status.String()).
		Int("segments_completed", summary.SegmentsCompleted).
		Int("elapsed_seconds", summary.TotalSecondsElapsed).
		Msg("Run ended")
	c.notify(kind, snap, &summary)

	c.session = nil
	c.state = State{Status: c.state.Status}
}

func (c *Controller) cue(name string, play func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("run_id", c.runID).Str("cue", name).Interface("panic", r).Msg("Audio cue panicked")
		}
	}()
	play()
}

func (c *Controller) notify(kind NotificationKind, snap Snapshot, summary *Summary) {
	if c.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("run_id", c.runID).Str("kind", string(kind)).Interface("panic", r).Msg("Observer panicked")
		}
	}()
	c.observer.Observe(Notification{
		Kind:     kind,
		RunID:    c.runID,
		At:       c.clock.Now(),
		Snapshot: snap,
		Summary:  summary,
	})
}
