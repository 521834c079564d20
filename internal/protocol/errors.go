package protocol

import "errors"

var (
	// ErrUnknownEvent is returned for an event name with no inbound variant.
	ErrUnknownEvent = errors.New("protocol: unknown event")

	// ErrMalformedPayload is returned when a payload is not a valid JSON
	// object of the expected shape.
	ErrMalformedPayload = errors.New("protocol: malformed payload")

	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("protocol: missing field")

	// ErrInvalidAddress is returned for an I2C address that is neither a
	// number nor a hex string in range.
	ErrInvalidAddress = errors.New("protocol: invalid i2c address")
)
