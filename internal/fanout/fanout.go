package fanout

import (
	"sync"
)

// Topics published to observers.
const (
	TopicDeviceConnected       = "device-connected"
	TopicDeviceDisconnected    = "device-disconnected"
	TopicDeviceStatus          = "device-status"
	TopicSensorUpdate          = "sensor-update"
	TopicGPIOOperationResult   = "gpio-operation-result"
	TopicI2COperationResult    = "i2c-operation-result"
	TopicSystemOperationResult = "system-operation-result"
	TopicDoorStatus            = "door-status"
	TopicDoorUnlocked          = "door-unlocked"
	TopicDoorLocked            = "door-locked"
	TopicDoorError             = "door-error"
)

// Publisher is what core components depend on to announce changes.
type Publisher interface {
	Publish(topic string, payload any)
}

// Sink receives every published event. Implementations must not block for
// long: Publish calls sinks synchronously on the publisher's goroutine.
type Sink interface {
	Deliver(topic string, payload any)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(topic string, payload any)

// Deliver calls f(topic, payload).
func (f SinkFunc) Deliver(topic string, payload any) { f(topic, payload) }

// Logger defines the logging interface used by the fan-out.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Fanout delivers each published event to all registered sinks, in
// registration order. There is no persistence and no replay: a sink added
// later sees only later events.
//
// Events from one publishing goroutine reach each sink in publish order.
// Nothing is guaranteed across publishers.
//
// All methods are safe for concurrent use.
type Fanout struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger Logger
}

// New creates a Fanout with the given initial sinks.
func New(sinks ...Sink) *Fanout {
	return &Fanout{
		sinks:  append([]Sink(nil), sinks...),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the fan-out.
func (f *Fanout) SetLogger(logger Logger) {
	f.logger = logger
}

// AddSink registers another sink.
func (f *Fanout) AddSink(s Sink) {
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
}

// Publish delivers payload under topic to every sink. A panicking sink is
// logged and skipped so one bad observer cannot break the others.
func (f *Fanout) Publish(topic string, payload any) {
	f.mu.RLock()
	sinks := make([]Sink, len(f.sinks))
	copy(sinks, f.sinks)
	f.mu.RUnlock()

	f.logger.Debug("publishing event", "topic", topic, "sinks", len(sinks))
	for _, s := range sinks {
		f.deliver(s, topic, payload)
	}
}

func (f *Fanout) deliver(s Sink, topic string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("fan-out sink panicked", "topic", topic, "panic", r)
		}
	}()
	s.Deliver(topic, payload)
}

// Event is one delivery captured by a Recorder.
type Event struct {
	Topic   string
	Payload any
}

// Recorder is an in-memory Sink that keeps every event it receives.
// It backs tests and the debug event listing.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Deliver implements Sink.
func (r *Recorder) Deliver(topic string, payload any) {
	r.mu.Lock()
	r.events = append(r.events, Event{Topic: topic, Payload: payload})
	r.mu.Unlock()
}

// Events returns a copy of the received events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Topics returns the topics received, oldest first.
func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Topic
	}
	return out
}

// Count returns how many events with the given topic were received.
func (r *Recorder) Count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Topic == topic {
			n++
		}
	}
	return n
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
