package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/msomdec/taskmate/internal/domain"
)

// RecordingSink remembers every notification it receives.
type RecordingSink struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (s *RecordingSink) Notify(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
	return nil
}

// Notifications returns a copy of what was received so far.
func (s *RecordingSink) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notes)
}
