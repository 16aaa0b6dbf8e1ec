package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/treadpro/go/internal/audio"
	"github.com/mcdev12/treadpro/go/internal/models"
)

var (
	ErrRunActive   = errors.New("a run is already active")
	ErrRunNotFound = errors.New("run not found")
)

type ManagerConfig struct {
	Clock        clockwork.Clock
	ClockOptions ClockOptions
	Audio        audio.Backend
	Observer     Observer
}

// Manager owns the lifecycle of runs. Only one run may be live at a time.
type Manager struct {
	cfg ManagerConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	active *Runner
	wg     sync.WaitGroup
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	cfg.Audio = audio.Safe(cfg.Audio)
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// StartRun starts playing session and returns the new run's ID. ctx only
// covers the start request; the run itself lives until it ends or the
// manager is closed.
func (m *Manager) StartRun(ctx context.Context, session *models.Session) (string, Snapshot, error) {
	if err := session.Validate(); err != nil {
		return "", Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ctx.Err(); err != nil {
		return "", Snapshot{}, fmt.Errorf("manager closed: %w", err)
	}
	if m.active != nil && !m.active.Closed() {
		return "", Snapshot{}, fmt.Errorf("%w: %s", ErrRunActive, m.active.ID())
	}

	runID := uuid.New().String()
	runner := NewRunner(Options{
		RunID:        runID,
		Clock:        m.cfg.Clock,
		ClockOptions: m.cfg.ClockOptions,
		Audio:        m.cfg.Audio,
		Observer:     m.cfg.Observer,
	})

	// Audio is unlocked by the same action that starts the run. It is best
	// effort and must not hold up the first tick.
	go m.resumeAudio(ctx, runID)

	snap, err := runner.Start(m.ctx, session)
	if err != nil {
		return "", Snapshot{}, fmt.Errorf("failed to start run: %w", err)
	}
	m.active = runner

	m.wg.Add(1)
	go m.release(runner)

	return runID, snap, nil
}

func (m *Manager) resumeAudio(ctx context.Context, runID string) {
	if err := m.cfg.Audio.Resume(context.WithoutCancel(ctx)); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("Audio resume failed")
	}
}

// release drops the runner once it reports its outcome.
func (m *Manager) release(r *Runner) {
	defer m.wg.Done()
	summary, ok := <-r.Done()

	m.mu.Lock()
	if m.active == r {
		m.active = nil
	}
	m.mu.Unlock()

	if ok {
		log.Info().
			Str("run_id", summary.RunID).
			Str("status", summary.Status.String()).
			Int("segments_completed", summary.SegmentsCompleted).
			Int("segment_count", summary.SegmentCount).
			Msg("Run released")
	}
}

// Run returns the live run with the given ID.
func (m *Manager) Run(runID string) (*Runner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil || m.active.ID() != runID || m.active.Closed() {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return m.active, nil
}

// Active returns the live run, if any.
func (m *Manager) Active() (*Runner, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil || m.active.Closed() {
		return nil, false
	}
	return m.active, true
}

func (m *Manager) Pause(runID string) (Snapshot, error) {
	return m.control(runID, (*Runner).Pause)
}

func (m *Manager) Resume(runID string) (Snapshot, error) {
	return m.control(runID, (*Runner).Resume)
}

func (m *Manager) TogglePause(runID string) (Snapshot, error) {
	return m.control(runID, (*Runner).TogglePause)
}

func (m *Manager) Skip(runID string) (Snapshot, error) {
	return m.control(runID, (*Runner).Skip)
}

func (m *Manager) Cancel(runID string) (Snapshot, error) {
	return m.control(runID, (*Runner).Cancel)
}

func (m *Manager) control(runID string, op func(*Runner) (Snapshot, error)) (Snapshot, error) {
	r, err := m.Run(runID)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := op(r)
	if errors.Is(err, ErrRunClosed) {
		return snap, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return snap, err
}

// Close cancels any live run and waits for it to be released.
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}
