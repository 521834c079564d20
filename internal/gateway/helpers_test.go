package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/command"
	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
	"github.com/DaLongZhuaZi/rpi-panel/internal/doorlock"
	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/config"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

type fakeSession struct {
	id string
}

func (s *fakeSession) ID() string             { return s.id }
func (s *fakeSession) Emit(string, any) error { return nil }

func newSession(id string) *fakeSession { return &fakeSession{id: id} }

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }

type nopCommander struct{}

func (nopCommander) GPIO(string, protocol.GPIOControl) error { return nil }

type harness struct {
	gw         *Gateway
	registry   *device.Registry
	store      *device.Store
	correlator *command.Correlator
	locks      *doorlock.Manager
	events     *EventLog
	rec        *fanout.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	rec := &fanout.Recorder{}
	events := NewEventLog(0)
	fo := fanout.New(rec, events)

	registry := device.NewRegistry(fo)
	store := device.NewStore(0, 0, registry)
	correlator := command.NewCorrelator(0, 0, fo)
	locks, err := doorlock.NewManager(config.LocksConfig{}, nopCommander{}, fo)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(locks.Close)

	return &harness{
		gw: New(Deps{
			Registry:   registry,
			Store:      store,
			Correlator: correlator,
			Locks:      locks,
			Publisher:  fo,
			EventLog:   events,
		}),
		registry:   registry,
		store:      store,
		correlator: correlator,
		locks:      locks,
		events:     events,
		rec:        rec,
	}
}

// register binds a new session to deviceID and returns it.
func (h *harness) register(t *testing.T, deviceID, deviceType string) *fakeSession {
	t.Helper()
	s := newSession("ses-" + deviceID)
	if err := h.gw.Handle(s, protocol.Register{DeviceID: deviceID, Type: deviceType, Name: "Bench " + deviceID}); err != nil {
		t.Fatalf("register %s: %v", deviceID, err)
	}
	return s
}

type point struct {
	measurement string
	tags        map[string]string
	fields      map[string]any
	ts          time.Time
}

type fakeWriter struct {
	mu     sync.Mutex
	points []point
}

func (w *fakeWriter) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	w.mu.Lock()
	w.points = append(w.points, point{measurement, tags, fields, ts})
	w.mu.Unlock()
}

type publishedJSON struct {
	topic string
	value any
}

type fakeJSONPublisher struct {
	mu   sync.Mutex
	sent []publishedJSON
	got  chan struct{}
}

func newFakeJSONPublisher() *fakeJSONPublisher {
	return &fakeJSONPublisher{got: make(chan struct{}, 64)}
}

func (p *fakeJSONPublisher) PublishJSON(topic string, v any) error {
	p.mu.Lock()
	p.sent = append(p.sent, publishedJSON{topic, v})
	p.mu.Unlock()
	p.got <- struct{}{}
	return nil
}

func (p *fakeJSONPublisher) wait(t *testing.T, n int) []publishedJSON {
	t.Helper()
	for range n {
		select {
		case <-p.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d publishes", n)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedJSON(nil), p.sent...)
}
