package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/treadpro/go/internal/playback"
)

type RelayConfig struct {
	QueueSize      int
	MaxRetries     int
	RetryDelay     time.Duration
	PublishTimeout time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		QueueSize:      64,
		MaxRetries:     3,
		RetryDelay:     200 * time.Millisecond,
		PublishTimeout: 5 * time.Second,
	}
}

// Relay is a playback.Observer that publishes lifecycle notifications.
// Observe only enqueues; a worker goroutine does the publishing so a slow
// broker never delays a tick. When the queue is full the event is dropped.
type Relay struct {
	publisher Publisher
	config    RelayConfig
	queue     chan Envelope

	mu      sync.Mutex
	running bool
	stopped bool
	wg      sync.WaitGroup
}

func NewRelay(publisher Publisher, cfg RelayConfig) *Relay {
	def := DefaultRelayConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	return &Relay{
		publisher: publisher,
		config:    cfg,
		queue:     make(chan Envelope, cfg.QueueSize),
	}
}

func (r *Relay) Observe(n playback.Notification) {
	if !n.Kind.Lifecycle() {
		return
	}
	env, ok, err := EnvelopeFor(n)
	if err != nil {
		log.Error().Err(err).Str("run_id", n.RunID).Msg("failed to build event envelope")
		return
	}
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	select {
	case r.queue <- env:
	default:
		log.Warn().
			Str("event_type", string(env.EventType)).
			Str("run_id", env.RunID).
			Msg("event queue full, dropping event")
	}
}

func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("event relay already running")
	}
	if r.stopped {
		return fmt.Errorf("event relay stopped")
	}
	r.running = true

	r.wg.Add(1)
	go r.run(ctx)

	log.Info().Int("queue_size", r.config.QueueSize).Msg("event relay started")
	return nil
}

// Stop stops accepting events, publishes what is already queued and waits
// for the worker to exit.
func (r *Relay) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
	log.Info().Msg("event relay stopped")
}

func (r *Relay) run(ctx context.Context) {
	defer r.wg.Done()
	for env := range r.queue {
		r.publish(ctx, env)
	}
}

func (r *Relay) publish(ctx context.Context, env Envelope) {
	var err error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.config.RetryDelay):
			case <-ctx.Done():
				return
			}
		}

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.PublishTimeout)
		err = r.publisher.Publish(pubCtx, env)
		cancel()
		if err == nil {
			return
		}
		log.Warn().
			Err(err).
			Str("event_id", env.EventID).
			Int("attempt", attempt+1).
			Msg("failed to publish event")
	}
	log.Error().
		Err(err).
		Str("event_id", env.EventID).
		Str("event_type", string(env.EventType)).
		Msg("giving up on event")
}
