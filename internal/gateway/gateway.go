package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/command"
	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
	"github.com/DaLongZhuaZi/rpi-panel/internal/devicelink"
	"github.com/DaLongZhuaZi/rpi-panel/internal/doorlock"
	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// ErrUnattributed is returned when a message carries no device ID and its
// session is not bound to a device.
var ErrUnattributed = errors.New("gateway: message not attributable to a device")

// Logger defines the logging interface used by the Gateway.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StatusEvent is published on device-status.
type StatusEvent struct {
	DeviceID   string         `json:"deviceId"`
	Status     any            `json:"status,omitempty"`
	Hardware   map[string]any `json:"hardware,omitempty"`
	GPIOPins   any            `json:"gpioPins,omitempty"`
	I2CDevices any            `json:"i2cDevices,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// SensorEvent is published on sensor-update.
type SensorEvent struct {
	DeviceID   string         `json:"deviceId"`
	SensorType string         `json:"sensorType"`
	Data       map[string]any `json:"data"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Deps holds the components the gateway routes messages to. Locks and
// EventLog may be nil.
type Deps struct {
	Registry   *device.Registry
	Store      *device.Store
	Correlator *command.Correlator
	Locks      *doorlock.Manager
	Publisher  fanout.Publisher
	EventLog   *EventLog
	Logger     Logger
}

// Gateway routes inbound device traffic. It holds no state of its own;
// every method is safe for concurrent use.
type Gateway struct {
	registry   *device.Registry
	store      *device.Store
	correlator *command.Correlator
	locks      *doorlock.Manager
	publisher  fanout.Publisher
	events     *EventLog
	logger     Logger
	now        func() time.Time
}

// New creates a gateway.
func New(deps Deps) *Gateway {
	g := &Gateway{
		registry:   deps.Registry,
		store:      deps.Store,
		correlator: deps.Correlator,
		locks:      deps.Locks,
		publisher:  deps.Publisher,
		events:     deps.EventLog,
		logger:     deps.Logger,
		now:        time.Now,
	}
	if g.logger == nil {
		g.logger = noopLogger{}
	}
	return g
}

// HandleInbound implements devicelink.Handler.
func (g *Gateway) HandleInbound(s *devicelink.Session, msg protocol.Inbound) {
	if err := g.Handle(s, msg); err != nil {
		g.logger.Warn("inbound message rejected",
			"session", s.ID(),
			"event", msg.EventName(),
			"error", err,
		)
	}
}

// HandleClose implements devicelink.Handler.
func (g *Gateway) HandleClose(s *devicelink.Session) {
	g.SessionClosed(s.ID())
}

// SessionClosed takes the device bound to sessionID offline. Closes of
// unbound or superseded sessions only reach the system log.
func (g *Gateway) SessionClosed(sessionID string) {
	if deviceID, ok := g.registry.Unbind(sessionID); ok {
		g.logger.Debug("session closed", "session", sessionID, "device_id", deviceID)
		return
	}
	g.systemLog(LevelInfo, "session closed without device: "+sessionID)
}

// Handle routes one message received on session.
func (g *Gateway) Handle(session device.Session, msg protocol.Inbound) error {
	switch m := msg.(type) {
	case protocol.Register:
		return g.register(session, m)

	case protocol.StatusUpdate:
		deviceID, err := g.attribute(session, m.DeviceID)
		if err != nil {
			return err
		}
		g.applyStatus(deviceID, m)
		return nil

	case protocol.SensorData:
		deviceID, err := g.attribute(session, m.DeviceID)
		if err != nil {
			return err
		}
		return g.recordReading(deviceID, m.SensorType, m.Data)

	case protocol.GPIOResult:
		deviceID, err := g.attribute(session, m.DeviceID)
		if err != nil {
			return err
		}
		g.correlator.OnResult(command.FromGPIO(deviceID, m))
		return nil

	case protocol.I2CResult:
		deviceID, err := g.attribute(session, m.DeviceID)
		if err != nil {
			return err
		}
		g.correlator.OnResult(command.FromI2C(deviceID, m))
		return nil

	case protocol.SystemResult:
		deviceID, err := g.attribute(session, m.DeviceID)
		if err != nil {
			return err
		}
		g.correlator.OnResult(command.FromSystem(deviceID, m))
		return nil

	default:
		return fmt.Errorf("%w: %s", protocol.ErrUnknownEvent, msg.EventName())
	}
}

// attribute returns the device a message speaks for: the device bound to
// the session, or the message's own deviceId when the session is unbound.
func (g *Gateway) attribute(session device.Session, claimed string) (string, error) {
	if session != nil {
		if bound, ok := g.registry.LookupBySession(session.ID()); ok {
			if claimed != "" && claimed != bound {
				g.logger.Debug("ignoring deviceId of bound session",
					"session", session.ID(),
					"bound", bound,
					"claimed", claimed,
				)
			}
			return bound, nil
		}
	}
	if claimed == "" {
		return "", ErrUnattributed
	}
	return claimed, nil
}

func (g *Gateway) register(session device.Session, m protocol.Register) error {
	dev, err := g.registry.Register(m.DeviceID, session, device.Attributes{
		Type:         m.Type,
		Name:         m.Name,
		IPAddress:    m.IPAddress,
		HardwareInfo: m.HardwareAttributes(),
	})
	if err != nil {
		return fmt.Errorf("registering device: %w", err)
	}

	if dev.Type == device.TypeDoorLock && g.locks != nil {
		g.locks.Ensure(dev.ID)
	}
	return nil
}

func (g *Gateway) applyStatus(deviceID string, m protocol.StatusUpdate) {
	now := g.now()

	g.store.RecordStatus(deviceID, m.Snapshot)
	if !g.registry.ApplyStatus(deviceID, m.Snapshot, m.Hardware) {
		g.logger.Debug("status from unregistered device", "device_id", deviceID)
	}
	if g.locks != nil {
		g.locks.ObserveStatus(deviceID, m.Battery, m.DoorOpen)
	}

	g.publish(fanout.TopicDeviceStatus, StatusEvent{
		DeviceID:   deviceID,
		Status:     m.Status,
		Hardware:   m.Hardware,
		GPIOPins:   m.GPIOPins,
		I2CDevices: m.I2CDevices,
		Timestamp:  now,
	})
}

func (g *Gateway) recordReading(deviceID, sensorType string, data map[string]any) error {
	rec, err := g.store.RecordSensorReading(deviceID, sensorType, data)
	if err != nil {
		return err
	}
	g.publish(fanout.TopicSensorUpdate, SensorEvent{
		DeviceID:   deviceID,
		SensorType: sensorType,
		Data:       data,
		Timestamp:  rec.Timestamp,
	})
	return nil
}

// AcceptReading implements device.ReadingSink for locally sampled sensors.
func (g *Gateway) AcceptReading(deviceID, sensorType string, data map[string]any) {
	if err := g.recordReading(deviceID, sensorType, data); err != nil {
		g.logger.Warn("local reading rejected", "device_id", deviceID, "sensor_type", sensorType, "error", err)
	}
}

func (g *Gateway) publish(topic string, payload any) {
	if g.publisher != nil {
		g.publisher.Publish(topic, payload)
	}
}

func (g *Gateway) systemLog(level Level, message string) {
	if g.events != nil {
		g.events.System(level, message)
	}
}
