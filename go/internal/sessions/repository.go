package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/treadpro/go/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// Repository is a read-only source of sessions for the playback engine.
// Every session it returns has passed Session.Validate.
type Repository interface {
	ListSessions(ctx context.Context) ([]models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	Close() error
}

// Writer stores sessions. The SQL repositories implement it so a database can
// be bootstrapped from a YAML library.
type Writer interface {
	SaveSession(ctx context.Context, session *models.Session) error
}

// BatchWriter stores a set of sessions atomically: either all of them are
// saved or none are.
type BatchWriter interface {
	SaveSessions(ctx context.Context, sessions []models.Session) error
}

// Import validates every session in src and saves it through w. When w is a
// BatchWriter the import is all or nothing.
func Import(ctx context.Context, src Repository, w Writer) (int, error) {
	list, err := src.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	if bw, ok := w.(BatchWriter); ok {
		if err := bw.SaveSessions(ctx, list); err != nil {
			return 0, err
		}
		return len(list), nil
	}
	for i := range list {
		if err := w.SaveSession(ctx, &list[i]); err != nil {
			return i, fmt.Errorf("failed to save session %s: %w", list[i].ID, err)
		}
	}
	return len(list), nil
}

// decodeSession rebuilds a stored session from its columns and validates it.
// A stored session that cannot be played back is reported as an error.
func decodeSession(id, name string, segmentsJSON []byte) (*models.Session, error) {
	s := &models.Session{ID: id, Name: name}
	if err := json.Unmarshal(segmentsJSON, &s.Segments); err != nil {
		return nil, fmt.Errorf("session %s: failed to decode segments: %w", id, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return s, nil
}

func encodeSegments(s *models.Session) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(s.Segments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode segments: %w", err)
	}
	return data, nil
}
