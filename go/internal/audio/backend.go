package audio

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

var ErrUnavailable = errors.New("audio output unavailable")

// Backend plays the two cues of a run. Play calls are fire-and-forget and
// must not block the caller; failures are swallowed by the backend.
type Backend interface {
	// Resume unlocks audio output. Hosts call it from the user action that
	// starts a run.
	Resume(ctx context.Context) error
	PlayCountdownBeep()
	PlaySegmentEndBeep()
}

// NoopBackend is a silent backend for headless hosts and tests.
type NoopBackend struct{}

func (NoopBackend) Resume(context.Context) error { return nil }
func (NoopBackend) PlayCountdownBeep()           {}
func (NoopBackend) PlaySegmentEndBeep()          {}

// Safe wraps b so that a misbehaving backend can never disturb playback:
// panics are recovered and logged, and Resume errors are logged and dropped.
func Safe(b Backend) Backend {
	if b == nil {
		return NoopBackend{}
	}
	if s, ok := b.(safeBackend); ok {
		return s
	}
	return safeBackend{inner: b}
}

type safeBackend struct {
	inner Backend
}

func (s safeBackend) Resume(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("audio resume panicked")
		}
	}()
	if rerr := s.inner.Resume(ctx); rerr != nil {
		log.Warn().Err(rerr).Msg("audio resume failed, continuing without sound")
	}
	return nil
}

func (s safeBackend) PlayCountdownBeep() {
	s.guard("countdown", s.inner.PlayCountdownBeep)
}

func (s safeBackend) PlaySegmentEndBeep() {
	s.guard("segment_end", s.inner.PlaySegmentEndBeep)
}

func (s safeBackend) guard(cue string, play func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("cue", cue).Interface("panic", r).Msg("audio cue panicked")
		}
	}()
	play()
}
