package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrInvalidRegistration) {
//	    // drop the registration
//	}
var (
	// ErrInvalidRegistration is returned when a registration carries no device ID.
	ErrInvalidRegistration = errors.New("device: invalid registration")

	// ErrNilSession is returned when a registration has no session to bind.
	ErrNilSession = errors.New("device: nil session")

	// ErrInvalidSensorType is returned when a reading names no sensor type.
	ErrInvalidSensorType = errors.New("device: invalid sensor type")

	// ErrDeviceNotFound is returned when a device ID is not in the registry.
	ErrDeviceNotFound = errors.New("device: not found")
)
