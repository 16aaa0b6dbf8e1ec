package playback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/treadpro/go/internal/models"
	"github.com/mcdev12/treadpro/go/internal/playback"
)

func newTestManager(t *testing.T) (*playback.Manager, *clockwork.FakeClock, *recordingAudio, chanObserver) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	a := &recordingAudio{}
	notes := make(chanObserver, 256)
	m := playback.NewManager(playback.ManagerConfig{
		Clock:    fc,
		Audio:    a,
		Observer: notes,
	})
	t.Cleanup(m.Close)
	return m, fc, a, notes
}

func TestManager_SingleActiveRun(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	id, snap, err := m.StartRun(ctx, sessionOf(30, 30))
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if id == "" || snap.Status != playback.StatusRunning {
		t.Fatalf("StartRun = %q, %+v", id, snap)
	}

	if _, _, err := m.StartRun(ctx, sessionOf(10)); !errors.Is(err, playback.ErrRunActive) {
		t.Errorf("second StartRun err = %v, want ErrRunActive", err)
	}

	active, ok := m.Active()
	if !ok || active.ID() != id {
		t.Fatalf("Active() = %v, %v", active, ok)
	}

	if _, err := m.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, ok := m.Active(); ok {
		t.Error("cancelled run still active")
	}

	if _, _, err := m.StartRun(ctx, sessionOf(10)); err != nil {
		t.Errorf("StartRun after cancel: %v", err)
	}
}

func TestManager_ControlByID(t *testing.T) {
	m, fc, _, notes := newTestManager(t)
	id, _, err := m.StartRun(context.Background(), sessionOf(20, 20))
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	fc.Advance(time.Second)
	waitFor(t, notes, playback.NotifyTick)

	tests := []struct {
		name    string
		op      func(string) (playback.Snapshot, error)
		status  playback.Status
		segment int
	}{
		{name: "pause", op: m.Pause, status: playback.StatusPaused},
		{name: "skip while paused", op: m.Skip, status: playback.StatusPaused, segment: 1},
		{name: "toggle resumes", op: m.TogglePause, status: playback.StatusRunning, segment: 1},
		{name: "toggle pauses", op: m.TogglePause, status: playback.StatusPaused, segment: 1},
		{name: "resume", op: m.Resume, status: playback.StatusRunning, segment: 1},
	}
	for _, tt := range tests {
		snap, err := tt.op(id)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if snap.Status != tt.status || snap.SegmentIndex != tt.segment {
			t.Errorf("%s: got %v at segment %d, want %v at %d", tt.name, snap.Status, snap.SegmentIndex, tt.status, tt.segment)
		}
	}

	if _, err := m.Resume(id); !errors.Is(err, playback.ErrInvalidTransition) {
		t.Errorf("Resume while running err = %v, want ErrInvalidTransition", err)
	}
	if _, err := m.Pause("nope"); !errors.Is(err, playback.ErrRunNotFound) {
		t.Errorf("Pause unknown run err = %v, want ErrRunNotFound", err)
	}

	// Skipping the last segment finishes the run.
	snap, err := m.Skip(id)
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if snap.Status != playback.StatusFinished || snap.TotalSecondsLeft != 0 {
		t.Errorf("snapshot after final skip = %+v", snap)
	}
	if _, err := m.Pause(id); !errors.Is(err, playback.ErrRunNotFound) {
		t.Errorf("Pause finished run err = %v, want ErrRunNotFound", err)
	}
}

func TestManager_RejectsInvalidSession(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	_, _, err := m.StartRun(context.Background(), &models.Session{Name: "empty"})
	if !errors.Is(err, models.ErrInvalidSession) {
		t.Fatalf("err = %v, want ErrInvalidSession", err)
	}
	if _, ok := m.Active(); ok {
		t.Error("invalid session left an active run")
	}
}

func TestManager_CloseCancelsLiveRun(t *testing.T) {
	fc := clockwork.NewFakeClock()
	notes := make(chanObserver, 256)
	m := playback.NewManager(playback.ManagerConfig{Clock: fc, Observer: notes})

	if _, _, err := m.StartRun(context.Background(), sessionOf(60)); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	m.Close()

	n := waitFor(t, notes, playback.NotifyCancelled)
	if n.Summary == nil || n.Summary.Status != playback.StatusCancelled {
		t.Errorf("summary = %+v", n.Summary)
	}
	if _, _, err := m.StartRun(context.Background(), sessionOf(10)); err == nil {
		t.Error("StartRun succeeded on a closed manager")
	}
}

func TestManager_ResumesAudioOnStart(t *testing.T) {
	m, _, a, _ := newTestManager(t)
	if _, _, err := m.StartRun(context.Background(), sessionOf(10)); err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		a.mu.Lock()
		resumed := a.resumed
		a.mu.Unlock()
		if resumed == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("audio resumed %d times, want 1", resumed)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
