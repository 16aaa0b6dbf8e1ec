package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSession  = errors.New("invalid session")
	ErrEmptySession    = errors.New("session has no segments")
	ErrInvalidDuration = errors.New("segment duration must be at least 1 second")
)

// Segment is one phase of a session with a fixed speed, incline and duration.
type Segment struct {
	Speed    float64 `json:"speed" yaml:"speed"`       // km/h
	Incline  float64 `json:"incline" yaml:"incline"`   // %
	Duration int     `json:"duration" yaml:"duration"` // seconds
}

// Session is an ordered, named sequence of segments.
type Session struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Segments []Segment `json:"segments" yaml:"segments"`
}

// Validate reports whether the session can be played back: it needs at least
// one segment and every duration must be positive.
func (s *Session) Validate() error {
	if s == nil || len(s.Segments) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSession, ErrEmptySession)
	}
	for i, seg := range s.Segments {
		if seg.Duration < 1 {
			return fmt.Errorf("%w: segment %d: %w (got %d)", ErrInvalidSession, i, ErrInvalidDuration, seg.Duration)
		}
	}
	return nil
}

// TotalDuration returns the sum of all segment durations in seconds.
func (s *Session) TotalDuration() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, seg := range s.Segments {
		total += seg.Duration
	}
	return total
}

// SegmentAt returns the segment at index i, if any.
func (s *Session) SegmentAt(i int) (Segment, bool) {
	if s == nil || i < 0 || i >= len(s.Segments) {
		return Segment{}, false
	}
	return s.Segments[i], true
}
