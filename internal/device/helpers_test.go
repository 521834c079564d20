package device

import (
	"errors"
	"sync"
	"time"
)

// fakeSession records emitted events.
type fakeSession struct {
	id string

	mu      sync.Mutex
	emitted []string
	failErr error
}

func newFakeSession(id string) *fakeSession { return &fakeSession{id: id} }

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Emit(event string, _ any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.emitted = append(s.emitted, event)
	return nil
}

var errEmit = errors.New("emit failed")

// fixedClock returns a controllable time source.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
