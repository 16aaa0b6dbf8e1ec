package audio_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mcdev12/treadpro/go/internal/audio"
)

type panickyBackend struct {
	resumeErr error
	calls     int
}

func (p *panickyBackend) Resume(context.Context) error {
	p.calls++
	if p.resumeErr != nil {
		return p.resumeErr
	}
	panic("resume exploded")
}

func (p *panickyBackend) PlayCountdownBeep() {
	p.calls++
	panic("countdown exploded")
}

func (p *panickyBackend) PlaySegmentEndBeep() {
	p.calls++
	panic("segment end exploded")
}

func TestSafe(t *testing.T) {
	t.Run("recovers panics", func(t *testing.T) {
		inner := &panickyBackend{}
		b := audio.Safe(inner)

		if err := b.Resume(context.Background()); err != nil {
			t.Errorf("Resume = %v, want nil", err)
		}
		b.PlayCountdownBeep()
		b.PlaySegmentEndBeep()

		if inner.calls != 3 {
			t.Errorf("inner called %d times, want 3", inner.calls)
		}
	})

	t.Run("swallows resume errors", func(t *testing.T) {
		b := audio.Safe(&panickyBackend{resumeErr: audio.ErrUnavailable})
		if err := b.Resume(context.Background()); err != nil {
			t.Errorf("Resume = %v, want nil", err)
		}
	})

	t.Run("nil is silent", func(t *testing.T) {
		b := audio.Safe(nil)
		if _, ok := b.(audio.NoopBackend); !ok {
			t.Errorf("Safe(nil) = %T, want NoopBackend", b)
		}
		b.PlayCountdownBeep()
	})

	t.Run("idempotent", func(t *testing.T) {
		once := audio.Safe(&panickyBackend{resumeErr: errors.New("x")})
		if twice := audio.Safe(once); twice != once {
			t.Errorf("Safe wrapped an already safe backend")
		}
	})
}
