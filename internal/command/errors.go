package command

import "errors"

var (
	// ErrDispatchFailed is returned when a command could not be handed to
	// the device's session.
	ErrDispatchFailed = errors.New("command: dispatch failed")

	// ErrDeviceOffline is returned (wrapped in ErrDispatchFailed) when the
	// device has no live session.
	ErrDeviceOffline = errors.New("command: device offline")

	// ErrInvalidCommand is returned when a command fails validation.
	ErrInvalidCommand = errors.New("command: invalid command")
)
