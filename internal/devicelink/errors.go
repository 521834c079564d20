package devicelink

import "errors"

var (
	// ErrSessionClosed is returned by Emit after the session has closed.
	ErrSessionClosed = errors.New("devicelink: session closed")

	// ErrSendBufferFull is returned by Emit when the device is not reading
	// fast enough. The frame is dropped.
	ErrSendBufferFull = errors.New("devicelink: send buffer full")

	// ErrUnauthorised is returned for upgrade requests with a missing or
	// wrong device token.
	ErrUnauthorised = errors.New("devicelink: unauthorised")

	// ErrShuttingDown is reported for connections arriving after Shutdown.
	ErrShuttingDown = errors.New("devicelink: shutting down")
)
