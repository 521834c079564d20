package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/mqtt"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// DefaultMirrorQueue is the number of events buffered for the broker.
const DefaultMirrorQueue = 256

// ErrIngestNotAllowed is returned for broker-delivered events other than
// status-update and sensor-data.
var ErrIngestNotAllowed = errors.New("gateway: event not accepted over MQTT")

// JSONPublisher publishes a value as JSON. *mqtt.Client implements it.
type JSONPublisher interface {
	PublishJSON(topic string, v any) error
}

type mirrored struct {
	topic   string
	payload any
}

// EventMirror republishes fan-out events to the broker under
// {prefix}/event/{topic}. Deliver never blocks: events are queued and
// published by Run, and dropped when the queue is full.
type EventMirror struct {
	pub    JSONPublisher
	topics mqtt.Topics
	queue  chan mirrored
	logger Logger

	startOnce sync.Once
	done      chan struct{}
}

// NewEventMirror creates a mirror. size below 1 falls back to
// DefaultMirrorQueue.
func NewEventMirror(pub JSONPublisher, topics mqtt.Topics, size int) *EventMirror {
	if size < 1 {
		size = DefaultMirrorQueue
	}
	return &EventMirror{
		pub:    pub,
		topics: topics,
		queue:  make(chan mirrored, size),
		logger: noopLogger{},
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger for the mirror.
func (m *EventMirror) SetLogger(logger Logger) {
	m.logger = logger
}

// Deliver implements fanout.Sink.
func (m *EventMirror) Deliver(topic string, payload any) {
	select {
	case m.queue <- mirrored{topic: topic, payload: payload}:
	default:
		m.logger.Warn("mqtt mirror queue full, dropping event", "topic", topic)
	}
}

// Run publishes queued events until ctx is cancelled. Events still queued
// at cancellation are discarded. Only the first call does anything.
func (m *EventMirror) Run(ctx context.Context) {
	m.startOnce.Do(func() {
		defer close(m.done)
		for {
			select {
			case ev := <-m.queue:
				if err := m.pub.PublishJSON(m.topics.Event(ev.topic), ev.payload); err != nil {
					m.logger.Debug("mqtt mirror publish failed", "topic", ev.topic, "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	})
}

// Done is closed when Run returns.
func (m *EventMirror) Done() <-chan struct{} {
	return m.done
}

// IngestHandler returns an MQTT handler for {prefix}/ingest/{deviceId}/{event}.
// The device ID in the topic is authoritative. Only status-update and
// sensor-data are accepted; commands and results always travel over the
// device's session.
func (g *Gateway) IngestHandler(topics mqtt.Topics) mqtt.MessageHandler {
	return func(topic string, payload []byte) error {
		deviceID, event, ok := topics.ParseIngest(topic)
		if !ok {
			return fmt.Errorf("gateway: not an ingest topic: %q", topic)
		}
		return g.Ingest(deviceID, event, payload)
	}
}

// Ingest decodes and applies one broker-delivered event for deviceID.
func (g *Gateway) Ingest(deviceID, event string, payload []byte) error {
	msg, err := protocol.Decode(event, payload)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case protocol.StatusUpdate:
		g.applyStatus(deviceID, m)
		return nil
	case protocol.SensorData:
		return g.recordReading(deviceID, m.SensorType, m.Data)
	default:
		return fmt.Errorf("%w: %s", ErrIngestNotAllowed, event)
	}
}
