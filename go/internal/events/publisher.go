package events

import (
	"context"

	"github.com/rs/zerolog/log"
)

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// LogPublisher writes envelopes to the log. It is used when NATS is disabled.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, env Envelope) error {
	log.Info().
		Str("event_id", env.EventID).
		Str("event_type", string(env.EventType)).
		Str("run_id", env.RunID).
		RawJSON("payload", env.Payload).
		Msg("publishing event")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
