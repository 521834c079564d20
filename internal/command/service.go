package command

import (
	"fmt"

	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// Service validates typed commands, sends them and tells the correlator
// to expect a result.
type Service struct {
	dispatcher *Dispatcher
	correlator *Correlator
}

// NewService creates a command service.
func NewService(dispatcher *Dispatcher, correlator *Correlator) *Service {
	return &Service{dispatcher: dispatcher, correlator: correlator}
}

// Correlator returns the correlator results are matched against.
func (s *Service) Correlator() *Correlator {
	return s.correlator
}

// GPIO sends a gpio-control command.
//
// Returns:
//   - ErrInvalidCommand: the command failed validation, nothing was sent
//   - ErrDispatchFailed: the device is offline or its session refused the frame
func (s *Service) GPIO(deviceID string, c protocol.GPIOControl) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return s.send(deviceID, protocol.EventGPIOControl, c, Key{
		DeviceID:  deviceID,
		Subsystem: protocol.SubsystemGPIO,
		Target:    c.Target(),
		Command:   c.Command,
	})
}

// I2C sends an i2c-control command. Errors are as for GPIO.
func (s *Service) I2C(deviceID string, c protocol.I2CControl) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return s.send(deviceID, protocol.EventI2CControl, c, Key{
		DeviceID:  deviceID,
		Subsystem: protocol.SubsystemI2C,
		Target:    c.Target(),
		Command:   c.Command,
	})
}

// System sends a system-control command. Errors are as for GPIO.
func (s *Service) System(deviceID string, c protocol.SystemControl) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return s.send(deviceID, protocol.EventSystemControl, c, Key{
		DeviceID:  deviceID,
		Subsystem: protocol.SubsystemSystem,
		Command:   c.Command,
	})
}

// send registers key before dispatching, so a device that answers before
// dispatch returns is still correlated.
func (s *Service) send(deviceID, event string, payload any, key Key) error {
	s.correlator.Expect(key)
	if err := s.dispatcher.dispatch(deviceID, event, payload); err != nil {
		s.correlator.Forget(key)
		return err
	}
	return nil
}
