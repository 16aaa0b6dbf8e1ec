package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/treadpro/go/internal/audio"
	"github.com/mcdev12/treadpro/go/internal/config"
	"github.com/mcdev12/treadpro/go/internal/events"
	"github.com/mcdev12/treadpro/go/internal/gateway"
	"github.com/mcdev12/treadpro/go/internal/playback"
	"github.com/mcdev12/treadpro/go/internal/sessions"
)

type Services struct {
	Sessions    sessions.Repository
	Runs        *playback.Manager
	Connections *gateway.ConnectionManager

	publisher events.Publisher
	relay     *events.Relay
}

func setupServices(ctx context.Context, cfg *config.Config, repo sessions.Repository) (*Services, error) {
	// Wire up the run observers first: display gateway, then the event relay.
	// Observers → Manager → HTTP handlers

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	go cm.Start(ctx)

	publisher := setupPublisher(ctx, cfg)
	relay := events.NewRelay(publisher, events.DefaultRelayConfig())
	if err := relay.Start(ctx); err != nil {
		publisher.Close()
		return nil, err
	}

	manager := playback.NewManager(playback.ManagerConfig{
		ClockOptions: cfg.ClockOptions(),
		Audio:        setupAudio(cfg),
		Observer:     playback.MultiObserver{cm, relay},
	})

	return &Services{
		Sessions:    repo,
		Runs:        manager,
		Connections: cm,
		publisher:   publisher,
		relay:       relay,
	}, nil
}

// setupPublisher connects to JetStream when enabled. A broker that cannot be
// reached is not fatal: lifecycle events are logged instead.
func setupPublisher(ctx context.Context, cfg *config.Config) events.Publisher {
	if !cfg.NATS.Enabled {
		return events.NewLogPublisher()
	}
	publisher, err := events.NewJetStreamPublisher(ctx, cfg.JetStream())
	if err != nil {
		log.Error().Err(err).Str("url", cfg.NATS.URL).Msg("JetStream unavailable, logging run events instead")
		return events.NewLogPublisher()
	}
	return publisher
}

func setupAudio(cfg *config.Config) audio.Backend {
	if !cfg.Audio.Enabled {
		return audio.NoopBackend{}
	}
	return audio.Safe(audio.NewToneBackend(cfg.Audio.SampleRate))
}

// Close ends any live run and flushes its events.
func (s *Services) Close() {
	s.Runs.Close()
	s.relay.Stop()
	if err := s.publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close event publisher")
	}
}
