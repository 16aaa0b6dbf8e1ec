package sessions_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mcdev12/treadpro/go/internal/models"
	"github.com/mcdev12/treadpro/go/internal/sessions"
)

func newSQLite(t *testing.T) (*sessions.SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	repo, err := sessions.NewSQLiteRepository(context.Background(), path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestSQLiteRepository_ImportAndRead(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLite(t)

	lib, err := sessions.ParseLibrary(strings.NewReader(sampleLibrary))
	if err != nil {
		t.Fatalf("ParseLibrary: %v", err)
	}
	n, err := sessions.Import(ctx, lib, repo)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	// Importing twice updates in place.
	if _, err := sessions.Import(ctx, lib, repo); err != nil {
		t.Fatalf("second Import: %v", err)
	}

	want, _ := lib.ListSessions(ctx)
	got, err := repo.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	// Rows come back ordered by name.
	if diff := cmp.Diff([]models.Session{want[1], want[0]}, got); diff != "" {
		t.Errorf("sessions (-want +got):\n%s", diff)
	}

	s, err := repo.GetSession(ctx, "warmup")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if diff := cmp.Diff(&want[0], s); diff != "" {
		t.Errorf("session (-want +got):\n%s", diff)
	}

	if _, err := repo.GetSession(ctx, "missing"); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSQLiteRepository_RejectsInvalidSessions(t *testing.T) {
	ctx := context.Background()
	repo, path := newSQLite(t)

	err := repo.SaveSession(ctx, &models.Session{ID: "bad", Name: "Bad"})
	if !errors.Is(err, models.ErrEmptySession) {
		t.Errorf("SaveSession err = %v, want ErrEmptySession", err)
	}

	// A row written behind the repository's back is reported, not played.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`INSERT INTO treadmill_sessions (id, name, segments_json) VALUES ('zero', 'Zero', '[{"speed":5,"incline":0,"duration":0}]')`); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.GetSession(ctx, "zero"); !errors.Is(err, models.ErrInvalidDuration) {
		t.Errorf("GetSession err = %v, want ErrInvalidDuration", err)
	}
	if _, err := repo.ListSessions(ctx); !errors.Is(err, models.ErrInvalidSession) {
		t.Errorf("ListSessions err = %v, want ErrInvalidSession", err)
	}
}

func TestSQLiteRepository_SaveSessionsIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLite(t)

	err := repo.SaveSessions(ctx, []models.Session{
		{ID: "ok", Name: "Ok", Segments: []models.Segment{{Speed: 6, Duration: 60}}},
		{ID: "bad", Name: "Bad", Segments: []models.Segment{{Speed: 6, Duration: -1}}},
	})
	if !errors.Is(err, models.ErrInvalidDuration) {
		t.Fatalf("SaveSessions err = %v, want ErrInvalidDuration", err)
	}

	list, err := repo.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("stored %d sessions from a failed batch", len(list))
	}
}
