package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/treadpro/go/internal/models"
	"github.com/mcdev12/treadpro/go/internal/sqlutil"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	repo := &PostgresRepository{db: db}
	if err := repo.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *PostgresRepository) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS treadmill_sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		segments JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, segments
		FROM treadmill_sessions
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		s, err := scanPostgresSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, segments
		FROM treadmill_sessions
		WHERE id = $1
	`, id)
	s, err := scanPostgresSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, err
}

func (r *PostgresRepository) SaveSession(ctx context.Context, s *models.Session) error {
	return savePostgresSession(ctx, r.db, s)
}

func (r *PostgresRepository) SaveSessions(ctx context.Context, list []models.Session) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		for i := range list {
			if err := savePostgresSession(ctx, tx, &list[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func savePostgresSession(ctx context.Context, ex sqlutil.Execer, s *models.Session) error {
	segments, err := encodeSegments(s)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO treadmill_sessions (id, name, segments)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, segments = EXCLUDED.segments, updated_at = NOW()
	`, s.ID, s.Name, pqtype.NullRawMessage{RawMessage: segments, Valid: len(segments) > 0})
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresSession(row rowScanner) (*models.Session, error) {
	var (
		id, name string
		segments pqtype.NullRawMessage
	)
	if err := row.Scan(&id, &name, &segments); err != nil {
		return nil, err
	}
	if !segments.Valid {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrEmptySession)
	}
	return decodeSession(id, name, segments.RawMessage)
}
