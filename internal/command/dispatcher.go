package command

import (
	"fmt"

	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// SessionResolver returns the live session of a device.
// *device.Registry implements it.
type SessionResolver interface {
	Session(deviceID string) (device.Session, bool)
}

// Dispatcher emits commands on a device's current session. It holds no
// state of its own and never caches sessions.
type Dispatcher struct {
	resolver SessionResolver
	logger   Logger
}

// NewDispatcher creates a dispatcher that resolves sessions through resolver.
func NewDispatcher(resolver SessionResolver) *Dispatcher {
	return &Dispatcher{resolver: resolver, logger: noopLogger{}}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Send emits event with payload to deviceID's live session.
//
// It returns false, without emitting anything, when the device is offline,
// and false when the session rejects the frame. True only means the frame
// was handed to the session; it says nothing about the result.
func (d *Dispatcher) Send(deviceID, event string, payload any) bool {
	return d.dispatch(deviceID, event, payload) == nil
}

func (d *Dispatcher) dispatch(deviceID, event string, payload any) error {
	session, ok := d.resolver.Session(deviceID)
	if !ok {
		d.logger.Debug("dropping command for offline device", "device_id", deviceID, "event", event)
		return fmt.Errorf("%w: %w: %s", ErrDispatchFailed, ErrDeviceOffline, deviceID)
	}

	if err := session.Emit(event, payload); err != nil {
		d.logger.Warn("command emit failed",
			"device_id", deviceID,
			"session", session.ID(),
			"event", event,
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	d.logger.Debug("command sent", "device_id", deviceID, "session", session.ID(), "event", event)
	return nil
}
