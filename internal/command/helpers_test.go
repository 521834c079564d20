package command

import (
	"errors"
	"sync"

	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
)

type emitted struct {
	event   string
	payload any
}

// fakeSession records emitted frames.
type fakeSession struct {
	id string

	mu      sync.Mutex
	frames  []emitted
	failErr error

	// onEmit runs after a frame is recorded, outside the lock.
	onEmit func(event string, payload any)
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Emit(event string, payload any) error {
	s.mu.Lock()
	if s.failErr != nil {
		s.mu.Unlock()
		return s.failErr
	}
	s.frames = append(s.frames, emitted{event: event, payload: payload})
	onEmit := s.onEmit
	s.mu.Unlock()

	if onEmit != nil {
		onEmit(event, payload)
	}
	return nil
}

func (s *fakeSession) Frames() []emitted {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]emitted(nil), s.frames...)
}

// fakeResolver maps device IDs to sessions.
type fakeResolver map[string]*fakeSession

func (r fakeResolver) Session(deviceID string) (device.Session, bool) {
	s, ok := r[deviceID]
	if !ok {
		return nil, false
	}
	return s, true
}

var errSocketClosed = errors.New("socket closed")

func intPtr(v int) *int { return &v }
