package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/treadpro/go/internal/models"
)

var (
	ErrRunClosed     = errors.New("run closed")
	ErrRunNotStarted = errors.New("run not started")
)

type commandKind int

const (
	cmdStart commandKind = iota
	cmdPause
	cmdResume
	cmdToggle
	cmdSkip
	cmdCancel
	cmdSnapshot
)

type command struct {
	kind    commandKind
	session *models.Session
	reply   chan reply
}

type reply struct {
	snapshot Snapshot
	err      error
}

// Runner hosts a Controller on its own goroutine. Control commands and clock
// wake-ups are serialized through a single select loop, so the controller
// never sees concurrent access. All methods are safe for concurrent use.
type Runner struct {
	id   string
	ctrl *Controller

	commands chan command
	done     chan Summary
	closed   chan struct{}

	launch    sync.Once
	closeOnce sync.Once
	started   atomic.Bool

	// written by the loop before closed is closed
	final   Snapshot
	summary *Summary
}

func NewRunner(opts Options) *Runner {
	return &Runner{
		id:       opts.RunID,
		ctrl:     NewController(opts),
		commands: make(chan command),
		done:     make(chan Summary, 1),
		closed:   make(chan struct{}),
	}
}

func (r *Runner) ID() string {
	return r.id
}

// Start launches the event loop and begins playing session. Cancelling ctx
// cancels the run.
func (r *Runner) Start(ctx context.Context, session *models.Session) (Snapshot, error) {
	if err := session.Validate(); err != nil {
		return Snapshot{}, err
	}
	r.launch.Do(func() {
		r.started.Store(true)
		go r.loop(ctx)
	})
	return r.send(command{kind: cmdStart, session: session})
}

func (r *Runner) Pause() (Snapshot, error)       { return r.send(command{kind: cmdPause}) }
func (r *Runner) Resume() (Snapshot, error)      { return r.send(command{kind: cmdResume}) }
func (r *Runner) TogglePause() (Snapshot, error) { return r.send(command{kind: cmdToggle}) }
func (r *Runner) Skip() (Snapshot, error)        { return r.send(command{kind: cmdSkip}) }
func (r *Runner) Cancel() (Snapshot, error)      { return r.send(command{kind: cmdCancel}) }

// Snapshot returns the current display view, or the last one taken before the
// run ended.
func (r *Runner) Snapshot() Snapshot {
	snap, err := r.send(command{kind: cmdSnapshot})
	if errors.Is(err, ErrRunClosed) {
		return r.final
	}
	return snap
}

// Done delivers the run's summary once, when it finishes or is cancelled, and
// is then closed.
func (r *Runner) Done() <-chan Summary {
	return r.done
}

// Closed reports whether the event loop has exited.
func (r *Runner) Closed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

// Summary returns the outcome of the run after it has ended.
func (r *Runner) Summary() (Summary, bool) {
	if !r.Closed() || r.summary == nil {
		return Summary{}, false
	}
	return *r.summary, true
}

func (r *Runner) send(cmd command) (Snapshot, error) {
	if !r.started.Load() {
		return Snapshot{}, ErrRunNotStarted
	}
	cmd.reply = make(chan reply, 1)
	select {
	case r.commands <- cmd:
	case <-r.closed:
		return Snapshot{}, ErrRunClosed
	}
	res := <-cmd.reply
	return res.snapshot, res.err
}

func (r *Runner) loop(ctx context.Context) {
	defer r.shutdown()
	for {
		select {
		case <-ctx.Done():
			if err := r.ctrl.Cancel(); err == nil {
				log.Info().Str("run_id", r.id).Msg("Run cancelled by host shutdown")
			}
			return

		case cmd := <-r.commands:
			snap, err := r.handle(cmd)
			status := r.ctrl.Status()
			ended := status.Terminal() || (cmd.kind == cmdStart && status == StatusIdle)
			if ended {
				// Close before replying so the caller observes a closed run.
				r.shutdown()
				snap = r.final
			}
			cmd.reply <- reply{snapshot: snap, err: err}
			if ended {
				return
			}

		case <-r.ctrl.ticks.C():
			r.ctrl.ticks.Wake()
		}

		if r.ctrl.Status().Terminal() {
			return
		}
	}
}

func (r *Runner) handle(cmd command) (Snapshot, error) {
	var err error
	switch cmd.kind {
	case cmdStart:
		err = r.ctrl.Start(cmd.session)
	case cmdPause:
		err = r.ctrl.Pause()
	case cmdResume:
		err = r.ctrl.Resume()
	case cmdToggle:
		err = r.ctrl.TogglePause()
	case cmdSkip:
		err = r.ctrl.Skip()
	case cmdCancel:
		err = r.ctrl.Cancel()
	case cmdSnapshot:
	}
	return r.ctrl.Snapshot(), err
}

// lastSnapshot fills in the totals of an ended run from its summary; the
// controller has already discarded the rest of the state.
func (r *Runner) lastSnapshot(snap Snapshot) Snapshot {
	summary, ok := r.ctrl.Summary()
	if !ok {
		return snap
	}
	snap.SessionName = summary.SessionName
	snap.SegmentCount = summary.SegmentCount
	snap.TotalSecondsElapsed = summary.TotalSecondsElapsed
	snap.TotalSecondsLeft = max(0, summary.TotalDuration-summary.TotalSecondsElapsed)
	return snap
}

func (r *Runner) shutdown() {
	r.closeOnce.Do(r.close)
}

func (r *Runner) close() {
	r.ctrl.ticks.Stop()
	r.final = r.lastSnapshot(r.ctrl.Snapshot())
	if summary, ok := r.ctrl.Summary(); ok {
		r.summary = &summary
		r.done <- summary
	}
	close(r.done)
	close(r.closed)
}
