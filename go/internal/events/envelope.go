package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/treadpro/go/internal/playback"
)

type EventType string

const (
	EventTypeRunStarted     EventType = "RunStarted"
	EventTypeRunPaused      EventType = "RunPaused"
	EventTypeRunResumed     EventType = "RunResumed"
	EventTypeSegmentChanged EventType = "SegmentChanged"
	EventTypeSegmentSkipped EventType = "SegmentSkipped"
	EventTypeRunFinished    EventType = "RunFinished"
	EventTypeRunCancelled   EventType = "RunCancelled"
)

// Envelope is the wire format shared by every publisher.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType EventType       `json:"eventType"`
	RunID     string          `json:"runId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// EnvelopeFor converts a lifecycle notification into an envelope. Ticks are
// not published and report false.
func EnvelopeFor(n playback.Notification) (Envelope, bool, error) {
	var (
		eventType EventType
		payload   any
	)
	snap := n.Snapshot
	at := n.At.UTC()

	switch n.Kind {
	case playback.NotifyStarted:
		eventType = EventTypeRunStarted
		payload = RunStartedPayload{
			RunID:         n.RunID,
			SessionName:   snap.SessionName,
			SegmentCount:  snap.SegmentCount,
			TotalDuration: snap.TotalSecondsElapsed + snap.TotalSecondsLeft,
			StartedAt:     at,
		}
	case playback.NotifyPaused:
		eventType = EventTypeRunPaused
		payload = RunPausedPayload{
			RunID:                n.RunID,
			SegmentIndex:         snap.SegmentIndex,
			SecondsLeftInSegment: snap.SecondsLeftInSegment,
			PausedAt:             at,
		}
	case playback.NotifyResumed:
		eventType = EventTypeRunResumed
		payload = RunResumedPayload{
			RunID:                n.RunID,
			SegmentIndex:         snap.SegmentIndex,
			SecondsLeftInSegment: snap.SecondsLeftInSegment,
			ResumedAt:            at,
		}
	case playback.NotifySegmentChanged, playback.NotifySkipped:
		eventType = EventTypeSegmentChanged
		if n.Kind == playback.NotifySkipped {
			eventType = EventTypeSegmentSkipped
		}
		payload = SegmentChangedPayload{
			RunID:        n.RunID,
			SegmentIndex: snap.SegmentIndex,
			SegmentCount: snap.SegmentCount,
			Speed:        snap.CurrentSegment.Speed,
			Incline:      snap.CurrentSegment.Incline,
			Duration:     snap.CurrentSegment.Duration,
			Skipped:      n.Kind == playback.NotifySkipped,
			ChangedAt:    at,
		}
	case playback.NotifyFinished:
		eventType = EventTypeRunFinished
		p := RunFinishedPayload{RunID: n.RunID, FinishedAt: at}
		if s := n.Summary; s != nil {
			p.SessionName = s.SessionName
			p.SegmentsCompleted = s.SegmentsCompleted
			p.ElapsedSec = s.TotalSecondsElapsed
		}
		payload = p
	case playback.NotifyCancelled:
		eventType = EventTypeRunCancelled
		p := RunCancelledPayload{RunID: n.RunID, CancelledAt: at}
		if s := n.Summary; s != nil {
			p.SessionName = s.SessionName
			p.SegmentsCompleted = s.SegmentsCompleted
			p.ElapsedSec = s.TotalSecondsElapsed
			p.RemainingSec = max(0, s.TotalDuration-s.TotalSecondsElapsed)
		}
		payload = p
	default:
		return Envelope{}, false, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, false, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		RunID:     n.RunID,
		Timestamp: at,
		Payload:   data,
	}, true, nil
}
