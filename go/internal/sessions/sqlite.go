package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mcdev12/treadpro/go/internal/models"
	"github.com/mcdev12/treadpro/go/internal/sqlutil"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS treadmill_sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		segments_json TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, segments_json
		FROM treadmill_sessions
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		s, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, segments_json
		FROM treadmill_sessions
		WHERE id = ?
	`, id)
	s, err := scanSQLiteSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, err
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, s *models.Session) error {
	return saveSQLiteSession(ctx, r.db, s)
}

func (r *SQLiteRepository) SaveSessions(ctx context.Context, list []models.Session) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		for i := range list {
			if err := saveSQLiteSession(ctx, tx, &list[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveSQLiteSession(ctx context.Context, ex sqlutil.Execer, s *models.Session) error {
	segments, err := encodeSegments(s)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO treadmill_sessions (id, name, segments_json)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, segments_json = excluded.segments_json, updated_at = CURRENT_TIMESTAMP
	`, s.ID, s.Name, string(segments))
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func scanSQLiteSession(row rowScanner) (*models.Session, error) {
	var id, name, segments string
	if err := row.Scan(&id, &name, &segments); err != nil {
		return nil, err
	}
	return decodeSession(id, name, []byte(segments))
}
