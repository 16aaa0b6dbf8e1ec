package sessions_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mcdev12/treadpro/go/internal/models"
	"github.com/mcdev12/treadpro/go/internal/sessions"
)

const sampleLibrary = `
sessions:
  - id: warmup
    name: Warm up
    segments:
      - {speed: 5.0, incline: 0, duration: 120}
      - {speed: 6.5, incline: 1, duration: 60}
  - id: hills
    name: Hills
    segments:
      - speed: 7
        incline: 4.5
        duration: 90
`

func TestParseLibrary(t *testing.T) {
	lib, err := sessions.ParseLibrary(strings.NewReader(sampleLibrary))
	if err != nil {
		t.Fatalf("ParseLibrary: %v", err)
	}

	list, err := lib.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	want := []models.Session{
		{ID: "warmup", Name: "Warm up", Segments: []models.Segment{
			{Speed: 5, Incline: 0, Duration: 120},
			{Speed: 6.5, Incline: 1, Duration: 60},
		}},
		{ID: "hills", Name: "Hills", Segments: []models.Segment{
			{Speed: 7, Incline: 4.5, Duration: 90},
		}},
	}
	if diff := cmp.Diff(want, list); diff != "" {
		t.Errorf("sessions (-want +got):\n%s", diff)
	}

	got, err := lib.GetSession(context.Background(), "hills")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if diff := cmp.Diff(&want[1], got); diff != "" {
		t.Errorf("session (-want +got):\n%s", diff)
	}

	// Mutating a returned session does not leak into the library.
	got.Segments[0].Duration = 1
	again, _ := lib.GetSession(context.Background(), "hills")
	if again.Segments[0].Duration != 90 {
		t.Error("library shares segment storage with callers")
	}

	if _, err := lib.GetSession(context.Background(), "missing"); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestParseLibrary_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "zero duration",
			doc:  "sessions:\n  - id: a\n    name: A\n    segments:\n      - {speed: 5, incline: 0, duration: 0}\n",
			want: models.ErrInvalidDuration,
		},
		{
			name: "no segments",
			doc:  "sessions:\n  - id: a\n    name: A\n",
			want: models.ErrEmptySession,
		},
		{
			name: "duplicate id",
			doc:  "sessions:\n  - id: a\n    segments: [{duration: 1}]\n  - id: a\n    segments: [{duration: 2}]\n",
		},
		{
			name: "missing id",
			doc:  "sessions:\n  - name: A\n    segments: [{duration: 1}]\n",
		},
		{
			name: "unknown field",
			doc:  "sessions:\n  - id: a\n    segments: [{duration: 1, cadence: 3}]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sessions.ParseLibrary(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadLibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.yaml")
	if err := os.WriteFile(path, []byte(sampleLibrary), 0o600); err != nil {
		t.Fatal(err)
	}
	lib, err := sessions.LoadLibrary(path)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	list, _ := lib.ListSessions(context.Background())
	if len(list) != 2 {
		t.Errorf("loaded %d sessions, want 2", len(list))
	}

	if _, err := sessions.LoadLibrary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestParseLibrary_Empty(t *testing.T) {
	lib, err := sessions.ParseLibrary(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseLibrary: %v", err)
	}
	list, _ := lib.ListSessions(context.Background())
	if len(list) != 0 {
		t.Errorf("got %d sessions from an empty document", len(list))
	}
}

func TestLoadLibrary_BundledAssets(t *testing.T) {
	lib, err := sessions.LoadLibrary(filepath.Join("..", "assets", "sessions.yaml"))
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	tabata, err := lib.GetSession(context.Background(), "tabata-sprints")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(tabata.Segments) != 10 || tabata.TotalDuration() != 660 {
		t.Errorf("tabata = %d segments, %ds", len(tabata.Segments), tabata.TotalDuration())
	}
}
