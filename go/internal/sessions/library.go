package sessions

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/treadpro/go/internal/models"
)

// libraryFile is the on-disk layout of a session library.
type libraryFile struct {
	Sessions []models.Session `yaml:"sessions"`
}

// Library is an in-memory session source, usually loaded from a YAML file.
type Library struct {
	order []string
	byID  map[string]models.Session
}

// NewLibrary validates sessions and indexes them by ID. IDs must be unique.
func NewLibrary(list []models.Session) (*Library, error) {
	lib := &Library{byID: make(map[string]models.Session, len(list))}
	for i, s := range list {
		if s.ID == "" {
			return nil, fmt.Errorf("session %d (%q): missing id", i, s.Name)
		}
		if _, dup := lib.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate session id %q", s.ID)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("session %s: %w", s.ID, err)
		}
		lib.order = append(lib.order, s.ID)
		lib.byID[s.ID] = s
	}
	return lib, nil
}

// ParseLibrary reads a YAML document with a top-level "sessions" list.
func ParseLibrary(r io.Reader) (*Library, error) {
	var file libraryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse session library: %w", err)
	}
	return NewLibrary(file.Sessions)
}

func LoadLibrary(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session library: %w", err)
	}
	defer f.Close()
	return ParseLibrary(f)
}

func (l *Library) ListSessions(ctx context.Context) ([]models.Session, error) {
	out := make([]models.Session, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, cloneSession(l.byID[id]))
	}
	return out, nil
}

func (l *Library) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	c := cloneSession(s)
	return &c, nil
}

func (l *Library) Close() error {
	return nil
}

// cloneSession copies the segment slice so callers cannot mutate the library.
func cloneSession(s models.Session) models.Session {
	s.Segments = append([]models.Segment(nil), s.Segments...)
	return s
}
