package events

import (
	"time"
)

// Event payload types published for run lifecycle changes

// RunStartedPayload is the payload for a RunStarted event
type RunStartedPayload struct {
	RunID         string    `json:"run_id"`
	SessionName   string    `json:"session_name"`
	SegmentCount  int       `json:"segment_count"`
	TotalDuration int       `json:"total_duration_sec"`
	StartedAt     time.Time `json:"started_at"`
}

// RunPausedPayload is the payload for a RunPaused event
type RunPausedPayload struct {
	RunID                string    `json:"run_id"`
	SegmentIndex         int       `json:"segment_index"`
	SecondsLeftInSegment int       `json:"seconds_left_in_segment"`
	PausedAt             time.Time `json:"paused_at"`
}

// RunResumedPayload is the payload for a RunResumed event
type RunResumedPayload struct {
	RunID                string    `json:"run_id"`
	SegmentIndex         int       `json:"segment_index"`
	SecondsLeftInSegment int       `json:"seconds_left_in_segment"`
	ResumedAt            time.Time `json:"resumed_at"`
}

// SegmentChangedPayload is the payload for SegmentChanged and SegmentSkipped
// events
type SegmentChangedPayload struct {
	RunID        string    `json:"run_id"`
	SegmentIndex int       `json:"segment_index"`
	SegmentCount int       `json:"segment_count"`
	Speed        float64   `json:"speed"`
	Incline      float64   `json:"incline"`
	Duration     int       `json:"duration_sec"`
	Skipped      bool      `json:"skipped"`
	ChangedAt    time.Time `json:"changed_at"`
}

// RunFinishedPayload is the payload for a RunFinished event
type RunFinishedPayload struct {
	RunID             string    `json:"run_id"`
	SessionName       string    `json:"session_name"`
	SegmentsCompleted int       `json:"segments_completed"`
	ElapsedSec        int       `json:"elapsed_sec"`
	FinishedAt        time.Time `json:"finished_at"`
}

// RunCancelledPayload is the payload for a RunCancelled event
type RunCancelledPayload struct {
	RunID             string    `json:"run_id"`
	SessionName       string    `json:"session_name"`
	SegmentsCompleted int       `json:"segments_completed"`
	ElapsedSec        int       `json:"elapsed_sec"`
	RemainingSec      int       `json:"remaining_sec"`
	CancelledAt       time.Time `json:"cancelled_at"`
}
