package gateway

import (
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/treadpro/go/internal/playback"
)

// EventTypeSync is sent once to a display right after it connects.
const EventTypeSync playback.NotificationKind = "Sync"

// DisplayEvent is the message pushed to display clients. Every event carries
// a full snapshot so a display can render from any single message.
type DisplayEvent struct {
	ID        string                    `json:"id"`
	RunID     string                    `json:"run_id,omitempty"`
	Type      playback.NotificationKind `json:"type"`
	Timestamp time.Time                 `json:"timestamp"`
	Snapshot  *playback.Snapshot        `json:"snapshot,omitempty"`
	Summary   *playback.Summary         `json:"summary,omitempty"`
}

func newDisplayEvent(n playback.Notification) *DisplayEvent {
	snap := n.Snapshot
	return &DisplayEvent{
		ID:        uuid.New().String(),
		RunID:     n.RunID,
		Type:      n.Kind,
		Timestamp: n.At.UTC(),
		Snapshot:  &snap,
		Summary:   n.Summary,
	}
}
