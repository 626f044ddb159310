package directory

import (
	"context"
	"sync"
)

// Static is an in-memory Directory, safe for concurrent use. It backs the
// memory store deployment and the engine's tests.
type Static struct {
	mu    sync.RWMutex
	names map[int64]string
}

var (
	_ Directory = (*Static)(nil)
	_ Registrar = (*Static)(nil)
)

// NewStatic creates an empty in-memory directory.
func NewStatic() *Static {
	return &Static{names: make(map[int64]string)}
}

func (s *Static) Exists(_ context.Context, participantID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[participantID]
	return ok, nil
}

func (s *Static) DisplayName(_ context.Context, participantID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[participantID]
	if !ok {
		return "", ErrUnknownParticipant
	}
	return name, nil
}

func (s *Static) Upsert(_ context.Context, participantID int64, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[participantID] = displayName
	return nil
}
