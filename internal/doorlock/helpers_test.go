package doorlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/auth"
	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// fastParams keeps Argon2id cheap in tests.
var fastParams = auth.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

var errOffline = errors.New("device offline")

// fakeCommander records GPIO commands.
type fakeCommander struct {
	mu      sync.Mutex
	sent    []sentCommand
	failErr error
}

type sentCommand struct {
	deviceID string
	control  protocol.GPIOControl
}

func (f *fakeCommander) GPIO(deviceID string, c protocol.GPIOControl) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.sent = append(f.sent, sentCommand{deviceID: deviceID, control: c})
	return nil
}

func (f *fakeCommander) Sent() []sentCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCommand(nil), f.sent...)
}

func (f *fakeCommander) SetFail(err error) {
	f.mu.Lock()
	f.failErr = err
	f.mu.Unlock()
}

// fakeScheduler captures auto-lock timers so tests fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (s *fakeScheduler) schedule(d time.Duration, f func()) func() bool {
	t := &fakeTimer{delay: d, fn: f}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		wasActive := !t.stopped
		t.stopped = true
		return wasActive
	}
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

// fire runs timer i regardless of whether it was stopped, as a timer that
// already fired before Stop would.
func (s *fakeScheduler) fire(i int) {
	s.timer(i).fn()
}

// fakeClock is a controllable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memRecorder keeps access records.
type memRecorder struct {
	mu      sync.Mutex
	records []AccessRecord
}

func (r *memRecorder) RecordAccess(_ context.Context, rec AccessRecord) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

func (r *memRecorder) Records() []AccessRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AccessRecord(nil), r.records...)
}

type testLock struct {
	*Controller
	cmd      *fakeCommander
	events   *fanout.Recorder
	clock    *fakeClock
	sched    *fakeScheduler
	recorder *memRecorder
}

func newTestLock(t *testing.T, opts Options) *testLock {
	t.Helper()
	if opts.DeviceID == "" {
		opts.DeviceID = "D1"
	}
	if opts.RelayPin == 0 {
		opts.RelayPin = 17
	}

	tl := &testLock{
		cmd:      &fakeCommander{},
		events:   &fanout.Recorder{},
		clock:    &fakeClock{t: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)},
		sched:    &fakeScheduler{},
		recorder: &memRecorder{},
	}

	c, err := NewController(opts, tl.cmd, fanout.New(tl.events))
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	c.now = tl.clock.Now
	c.schedule = tl.sched.schedule
	c.hashParams = fastParams
	c.SetRecorder(tl.recorder)
	tl.Controller = c

	if err := c.AddCredential("admin", "123456"); err != nil {
		t.Fatalf("AddCredential() error = %v", err)
	}
	if err := c.AddCredential("user1", "111111"); err != nil {
		t.Fatalf("AddCredential() error = %v", err)
	}
	return tl
}
