package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/treadpro/go/internal/dbconfig"
	"github.com/mcdev12/treadpro/go/internal/sessions"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS treadmill_sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		segments JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

func main() {
	path := "go/internal/assets/sessions.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	ctx := context.Background()

	// 1) Load and validate the session library
	lib, err := sessions.LoadLibrary(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load library: %v\n", err)
		os.Exit(1)
	}
	list, err := lib.ListSessions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list sessions: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "database config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, createTable); err != nil {
		fmt.Fprintf(os.Stderr, "create table: %v\n", err)
		os.Exit(1)
	}

	// 3) Upsert and count
	var (
		total    = len(list)
		inserted int
		skipped  int
		errs     int
	)

	for _, s := range list {
		segments, err := json.Marshal(s.Segments)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error encoding session %s: %v\n", s.ID, err)
			errs++
			continue
		}
		cmdTag, err := pool.Exec(ctx, `
            INSERT INTO treadmill_sessions (id, name, segments)
            VALUES ($1, $2, $3)
            ON CONFLICT (id) DO NOTHING
        `, s.ID, s.Name, segments)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting session %s: %v\n", s.ID, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Sessions seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
	if errs > 0 {
		os.Exit(1)
	}
}
