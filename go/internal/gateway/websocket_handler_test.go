package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mcdev12/treadpro/go/internal/gateway"
	"github.com/mcdev12/treadpro/go/internal/playback"
)

const (
	runA = "5f0c1f3e-8a55-4c1b-9a53-0f4f7e0b6a11"
	runB = "9b3e2c4d-1f0a-4e6b-8c2d-3a5b7c9d1e22"
)

func newTestGateway(t *testing.T) (*gateway.ConnectionManager, *httptest.Server) {
	t.Helper()
	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	go cm.Start(ctx)

	r := chi.NewRouter()
	gateway.NewWebSocketHandler(cm, nil).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return cm, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/run" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// The sync event is queued before the connection joins its pool.
	if ev := read(t, conn); ev.Type != gateway.EventTypeSync {
		t.Fatalf("first event = %s, want Sync", ev.Type)
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) gateway.DisplayEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev gateway.DisplayEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

func tick(runID string, left int) playback.Notification {
	return playback.Notification{
		Kind:  playback.NotifyTick,
		RunID: runID,
		At:    time.Now(),
		Snapshot: playback.Snapshot{
			Status:               playback.StatusRunning,
			SecondsLeftInSegment: left,
			IsAlarming:           playback.IsAlarming(left),
		},
	}
}

func TestConnectionManager_RoutesByRun(t *testing.T) {
	cm, srv := newTestGateway(t)

	followA := dial(t, srv, "?run_id="+runA)
	followAll := dial(t, srv, "")

	cm.Observe(tick(runB, 9))
	cm.Observe(tick(runA, 4))

	// The run A display skips run B's event.
	ev := read(t, followA)
	if ev.RunID != runA || ev.Snapshot == nil || ev.Snapshot.SecondsLeftInSegment != 4 || !ev.Snapshot.IsAlarming {
		t.Errorf("run A display got %+v", ev)
	}

	first, second := read(t, followAll), read(t, followAll)
	if first.RunID != runB || second.RunID != runA {
		t.Errorf("follow-all display got %s then %s", first.RunID, second.RunID)
	}
	if first.Type != playback.NotifyTick {
		t.Errorf("type = %s, want Tick", first.Type)
	}

	stats := cm.GetConnectionStats()
	if stats.TotalConnections != 2 || stats.FollowingAll != 1 || stats.RunConnections[runA] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestWebSocketHandler_RejectsBadRunID(t *testing.T) {
	_, srv := newTestGateway(t)

	resp, err := http.Get(srv.URL + "/ws/run?run_id=not-a-uuid")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebSocketHandler_Stats(t *testing.T) {
	_, srv := newTestGateway(t)
	dial(t, srv, "?run_id="+runB)

	resp, err := http.Get(srv.URL + "/ws/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats gateway.ConnectionStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalConnections != 1 || stats.RunConnections[runB] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
