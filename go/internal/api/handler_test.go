package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/treadpro/go/internal/api"
	"github.com/mcdev12/treadpro/go/internal/models"
	"github.com/mcdev12/treadpro/go/internal/playback"
	"github.com/mcdev12/treadpro/go/internal/sessions"
)

// brokenSource serves one session that fails validation, as a corrupted row
// in a database could.
type brokenSource struct {
	*sessions.Library
}

func (b brokenSource) GetSession(ctx context.Context, id string) (*models.Session, error) {
	if id == "broken" {
		return &models.Session{ID: "broken", Name: "Broken", Segments: []models.Segment{{Duration: 0}}}, nil
	}
	return b.Library.GetSession(ctx, id)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	lib, err := sessions.NewLibrary([]models.Session{
		{ID: "intervals", Name: "Intervals", Segments: []models.Segment{
			{Speed: 8, Incline: 1, Duration: 60},
			{Speed: 12, Incline: 1, Duration: 30},
		}},
		{ID: "walk", Name: "Walk", Segments: []models.Segment{{Speed: 5, Duration: 600}}},
	})
	if err != nil {
		t.Fatal(err)
	}

	m := playback.NewManager(playback.ManagerConfig{Clock: clockwork.NewFakeClock()})
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(brokenSource{lib}, m)))
	t.Cleanup(func() {
		srv.Close()
		m.Close()
	})
	return srv
}

func do(t *testing.T, method, url string, body any) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out.Bytes()
}

func decodeRun(t *testing.T, data []byte) api.RunResponse {
	t.Helper()
	var run api.RunResponse
	if err := json.Unmarshal(data, &run); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return run
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	if status, body := do(t, http.MethodGet, srv.URL+"/health", nil); status != http.StatusOK || string(body) != "OK" {
		t.Errorf("GET /health = %d %q", status, body)
	}
}

func TestSessions(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/sessions", nil)
	var list []models.Session
	if err := json.Unmarshal(body, &list); err != nil || status != http.StatusOK {
		t.Fatalf("GET /sessions = %d %s", status, body)
	}
	if len(list) != 2 || list[0].ID != "intervals" || list[1].ID != "walk" {
		t.Errorf("sessions = %+v", list)
	}

	status, body = do(t, http.MethodGet, srv.URL+"/sessions/walk", nil)
	var walk models.Session
	if err := json.Unmarshal(body, &walk); err != nil || status != http.StatusOK || walk.TotalDuration() != 600 {
		t.Errorf("GET /sessions/walk = %d %s", status, body)
	}

	if status, _ := do(t, http.MethodGet, srv.URL+"/sessions/missing", nil); status != http.StatusNotFound {
		t.Errorf("GET /sessions/missing = %d, want 404", status)
	}
}

func TestStartRun_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed body", "not an object", http.StatusBadRequest},
		{"missing session id", map[string]string{}, http.StatusBadRequest},
		{"unknown session", map[string]string{"session_id": "missing"}, http.StatusNotFound},
		{"invalid session", map[string]string{"session_id": "broken"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, body := do(t, http.MethodPost, srv.URL+"/runs", tt.body); status != tt.want {
				t.Errorf("POST /runs = %d %s, want %d", status, body, tt.want)
			}
		})
	}

	if status, _ := do(t, http.MethodGet, srv.URL+"/runs/active", nil); status != http.StatusNotFound {
		t.Errorf("GET /runs/active = %d, want 404", status)
	}
}

func TestRunLifecycle(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/runs", map[string]string{"session_id": "intervals"})
	if status != http.StatusCreated {
		t.Fatalf("POST /runs = %d %s", status, body)
	}
	run := decodeRun(t, body)
	if run.RunID == "" || run.Snapshot.Status != playback.StatusRunning || run.Snapshot.SecondsLeftInSegment != 60 {
		t.Fatalf("started run = %+v", run)
	}
	runURL := fmt.Sprintf("%s/runs/%s", srv.URL, run.RunID)

	if status, _ := do(t, http.MethodPost, srv.URL+"/runs", map[string]string{"session_id": "walk"}); status != http.StatusConflict {
		t.Errorf("second POST /runs = %d, want 409", status)
	}

	status, body = do(t, http.MethodGet, srv.URL+"/runs/active", nil)
	if status != http.StatusOK || decodeRun(t, body).RunID != run.RunID {
		t.Errorf("GET /runs/active = %d %s", status, body)
	}

	steps := []struct {
		action  string
		want    int
		status  playback.Status
		segment int
	}{
		{"pause", http.StatusOK, playback.StatusPaused, 0},
		{"pause", http.StatusConflict, 0, 0},
		{"toggle", http.StatusOK, playback.StatusRunning, 0},
		{"resume", http.StatusConflict, 0, 0},
		{"skip", http.StatusOK, playback.StatusRunning, 1},
		{"cancel", http.StatusOK, playback.StatusCancelled, 0},
	}
	for _, step := range steps {
		status, body := do(t, http.MethodPost, runURL+"/"+step.action, nil)
		if status != step.want {
			t.Fatalf("POST %s = %d %s, want %d", step.action, status, body, step.want)
		}
		if status != http.StatusOK {
			continue
		}
		snap := decodeRun(t, body).Snapshot
		if snap.Status.Terminal() {
			// An ended run only reports its totals.
			if snap.Status != step.status || snap.TotalSecondsElapsed != 60 || snap.SessionName != "Intervals" {
				t.Errorf("after %s: %+v", step.action, snap)
			}
			continue
		}
		if snap.Status != step.status || snap.SegmentIndex != step.segment {
			t.Errorf("after %s: status %s segment %d, want %s %d", step.action, snap.Status, snap.SegmentIndex, step.status, step.segment)
		}
	}

	if status, _ := do(t, http.MethodGet, runURL, nil); status != http.StatusNotFound {
		t.Errorf("GET ended run = %d, want 404", status)
	}
	if status, _ := do(t, http.MethodPost, runURL+"/skip", nil); status != http.StatusNotFound {
		t.Errorf("POST skip on ended run = %d, want 404", status)
	}
}
