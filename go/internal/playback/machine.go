package playback

import (
	"errors"
	"fmt"

	"github.com/mcdev12/treadpro/go/internal/models"
)

// ErrInvalidTransition is returned when a control operation is requested from
// a status that does not allow it. The state is left untouched.
var ErrInvalidTransition = errors.New("invalid transition")

// Status is the lifecycle position of a run.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusFinished
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusRunning:
		return "RUNNING"
	case StatusPaused:
		return "PAUSED"
	case StatusFinished:
		return "FINISHED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status by name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for candidate := StatusIdle; candidate <= StatusCancelled; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Terminal reports whether no transition can leave this status.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// Event is an input to the state machine.
type Event int

const (
	EventStart Event = iota
	EventTick
	EventPause
	EventResume
	EventSkip
	EventCancel
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventTick:
		return "tick"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventSkip:
		return "skip"
	case EventCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// EffectKind enumerates the side effects a transition asks the controller to perform.
type EffectKind int

const (
	EffectCountdownCue EffectKind = iota
	EffectSegmentEndCue
	EffectStartClock
	EffectStopClock
	EffectSegmentChanged
	EffectFinished
	EffectCancelled
)

func (k EffectKind) String() string {
	switch k {
	case EffectCountdownCue:
		return "countdown_cue"
	case EffectSegmentEndCue:
		return "segment_end_cue"
	case EffectStartClock:
		return "start_clock"
	case EffectStopClock:
		return "stop_clock"
	case EffectSegmentChanged:
		return "segment_changed"
	case EffectFinished:
		return "finished"
	case EffectCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Effect is one side effect emitted by Transition. SegmentIndex is only
// meaningful for EffectSegmentChanged.
type Effect struct {
	Kind         EffectKind
	SegmentIndex int
}

// State is the mutable playback state of a single run.
type State struct {
	Status               Status
	SegmentIndex         int
	SecondsLeftInSegment int
	TotalSecondsElapsed  int
}

// NewState validates session and returns the state a run begins in: running,
// positioned at the start of the first segment.
func NewState(session *models.Session) (State, error) {
	if err := session.Validate(); err != nil {
		return State{}, err
	}
	return State{
		Status:               StatusRunning,
		SecondsLeftInSegment: session.Segments[0].Duration,
	}, nil
}

// Transition computes the state that follows st when ev is applied, together
// with the effects the caller must perform. It never mutates its inputs.
//
// Ticks outside StatusRunning are ignored (no state change, no effects, no
// error). Control events from a status that does not accept them return
// ErrInvalidTransition and the unchanged state.
func Transition(session *models.Session, st State, ev Event) (State, []Effect, error) {
	switch ev {
	case EventStart:
		if st.Status != StatusIdle {
			return st, nil, invalidTransition(ev, st.Status)
		}
		next, err := NewState(session)
		if err != nil {
			return st, nil, err
		}
		return next, []Effect{{Kind: EffectStartClock}}, nil

	case EventTick:
		if st.Status != StatusRunning {
			return st, nil, nil
		}
		next, effects := tick(session, st)
		return next, effects, nil

	case EventPause:
		if st.Status != StatusRunning {
			return st, nil, invalidTransition(ev, st.Status)
		}
		next := st
		next.Status = StatusPaused
		return next, []Effect{{Kind: EffectStopClock}}, nil

	case EventResume:
		if st.Status != StatusPaused {
			return st, nil, invalidTransition(ev, st.Status)
		}
		next := st
		next.Status = StatusRunning
		return next, []Effect{{Kind: EffectStartClock}}, nil

	case EventSkip:
		if st.Status != StatusRunning && st.Status != StatusPaused {
			return st, nil, invalidTransition(ev, st.Status)
		}
		next, effects := skip(session, st)
		return next, effects, nil

	case EventCancel:
		if st.Status != StatusRunning && st.Status != StatusPaused {
			return st, nil, invalidTransition(ev, st.Status)
		}
		next := st
		next.Status = StatusCancelled
		return next, []Effect{{Kind: EffectStopClock}, {Kind: EffectCancelled}}, nil
	}

	return st, nil, fmt.Errorf("%w: unknown event %d", ErrInvalidTransition, int(ev))
}

func tick(session *models.Session, st State) (State, []Effect) {
	next := st
	next.SecondsLeftInSegment = max(0, st.SecondsLeftInSegment-1)
	next.TotalSecondsElapsed = st.TotalSecondsElapsed + 1

	var effects []Effect
	if IsAlarming(next.SecondsLeftInSegment) {
		effects = append(effects, Effect{Kind: EffectCountdownCue})
	}

	if next.SecondsLeftInSegment > 0 {
		return next, effects
	}

	following, ok := session.SegmentAt(st.SegmentIndex + 1)
	if !ok {
		next.Status = StatusFinished
		return next, append(effects, Effect{Kind: EffectStopClock}, Effect{Kind: EffectFinished})
	}

	next.SegmentIndex = st.SegmentIndex + 1
	next.SecondsLeftInSegment = following.Duration
	return next, append(effects,
		Effect{Kind: EffectSegmentEndCue},
		Effect{Kind: EffectSegmentChanged, SegmentIndex: next.SegmentIndex},
	)
}

// skip credits the unlived remainder of the current segment to the elapsed
// total so that elapsed + left still equals the session duration.
func skip(session *models.Session, st State) (State, []Effect) {
	next := st
	next.TotalSecondsElapsed = st.TotalSecondsElapsed + st.SecondsLeftInSegment

	following, ok := session.SegmentAt(st.SegmentIndex + 1)
	if !ok {
		next.SecondsLeftInSegment = 0
		next.Status = StatusFinished
		return next, []Effect{{Kind: EffectStopClock}, {Kind: EffectFinished}}
	}

	next.SegmentIndex = st.SegmentIndex + 1
	next.SecondsLeftInSegment = following.Duration
	return next, []Effect{{Kind: EffectSegmentChanged, SegmentIndex: next.SegmentIndex}}
}

func invalidTransition(ev Event, from Status) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, ev, from)
}
