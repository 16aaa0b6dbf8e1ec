package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/treadpro/go/internal/config"
	"github.com/mcdev12/treadpro/go/internal/sessions"
)

// setupSessions opens the configured session source.
func setupSessions(ctx context.Context, cfg *config.Config) (sessions.Repository, error) {
	switch cfg.Sessions.Source {
	case config.SourcePostgres:
		repo, err := sessions.NewPostgresRepository(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("Connected to session database")
		return repo, nil

	case config.SourceSQLite:
		repo, err := sessions.NewSQLiteRepository(ctx, cfg.Sessions.SQLitePath)
		if err != nil {
			return nil, err
		}
		if cfg.Sessions.SeedFromFile {
			if err := seedFromFile(ctx, cfg.Sessions.File, repo); err != nil {
				repo.Close()
				return nil, err
			}
		}
		log.Info().Str("path", cfg.Sessions.SQLitePath).Msg("Opened session database")
		return repo, nil

	default:
		lib, err := sessions.LoadLibrary(cfg.Sessions.File)
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", cfg.Sessions.File).Msg("Loaded session library")
		return lib, nil
	}
}

func seedFromFile(ctx context.Context, path string, w sessions.Writer) error {
	lib, err := sessions.LoadLibrary(path)
	if err != nil {
		return err
	}
	n, err := sessions.Import(ctx, lib, w)
	if err != nil {
		return fmt.Errorf("failed to seed sessions from %s: %w", path, err)
	}
	log.Info().Int("sessions", n).Str("file", path).Msg("Seeded session database")
	return nil
}
