package playback

import (
	"github.com/mcdev12/treadpro/go/internal/models"
)

// AlarmWindowSeconds is the size of the countdown window at the end of each
// segment. A countdown cue is requested for every tick that lands inside it.
const AlarmWindowSeconds = 5

// IsAlarming reports whether secondsLeft lies in the countdown window.
func IsAlarming(secondsLeft int) bool {
	return secondsLeft > 0 && secondsLeft <= AlarmWindowSeconds
}

// Snapshot is the read-only view of a run handed to the display layer.
type Snapshot struct {
	Status               Status          `json:"status"`
	SessionName          string          `json:"session_name"`
	SegmentIndex         int             `json:"segment_index"`
	SegmentCount         int             `json:"segment_count"`
	SecondsLeftInSegment int             `json:"seconds_left_in_segment"`
	TotalSecondsElapsed  int             `json:"total_seconds_elapsed"`
	TotalSecondsLeft     int             `json:"total_seconds_left"`
	CurrentSegment       models.Segment  `json:"current_segment"`
	NextSegment          *models.Segment `json:"next_segment,omitempty"`
	IsAlarming           bool            `json:"is_alarming"`
}

// NewSnapshot derives the display view of st for session.
func NewSnapshot(session *models.Session, st State) Snapshot {
	snap := Snapshot{
		Status:               st.Status,
		SegmentIndex:         st.SegmentIndex,
		SecondsLeftInSegment: st.SecondsLeftInSegment,
		TotalSecondsElapsed:  st.TotalSecondsElapsed,
	}
	if session == nil {
		return snap
	}

	snap.SessionName = session.Name
	snap.SegmentCount = len(session.Segments)
	snap.TotalSecondsLeft = max(0, session.TotalDuration()-st.TotalSecondsElapsed)
	if current, ok := session.SegmentAt(st.SegmentIndex); ok {
		snap.CurrentSegment = current
	}
	if next, ok := session.SegmentAt(st.SegmentIndex + 1); ok {
		snap.NextSegment = &next
	}
	snap.IsAlarming = IsAlarming(st.SecondsLeftInSegment)
	return snap
}

// Summary is the outcome of a run once it has finished or been cancelled.
type Summary struct {
	RunID               string `json:"run_id"`
	SessionName         string `json:"session_name"`
	Status              Status `json:"status"`
	SegmentsCompleted   int    `json:"segments_completed"`
	SegmentCount        int    `json:"segment_count"`
	TotalSecondsElapsed int    `json:"total_seconds_elapsed"`
	TotalDuration       int    `json:"total_duration"`
}

func newSummary(runID string, session *models.Session, st State) Summary {
	completed := st.SegmentIndex
	if st.Status == StatusFinished {
		completed = len(session.Segments)
	}
	return Summary{
		RunID:               runID,
		SessionName:         session.Name,
		Status:              st.Status,
		SegmentsCompleted:   completed,
		SegmentCount:        len(session.Segments),
		TotalSecondsElapsed: st.TotalSecondsElapsed,
		TotalDuration:       session.TotalDuration(),
	}
}
