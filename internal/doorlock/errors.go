package doorlock

import "errors"

// Authentication rejections. They are returned values; the AuthResult that
// accompanies them carries the user-facing message.
var (
	// ErrAccountLocked is returned while password entry is suspended.
	ErrAccountLocked = errors.New("doorlock: account locked")

	// ErrInvalidCredential is returned for a wrong password or unknown principal.
	ErrInvalidCredential = errors.New("doorlock: invalid credential")

	// ErrUnknownFingerprint is returned for a template not enrolled on the lock.
	ErrUnknownFingerprint = errors.New("doorlock: unknown fingerprint")

	// ErrUnpairedBluetooth is returned for a device not paired with the lock.
	ErrUnpairedBluetooth = errors.New("doorlock: bluetooth device not paired")

	// ErrRemoteNotAuthorised is returned when an operator may not open the
	// lock remotely.
	ErrRemoteNotAuthorised = errors.New("doorlock: remote unlock not authorised")
)

var (
	// ErrDispatchFailed is returned when the relay command could not be sent.
	// The lock is left in the ERROR state.
	ErrDispatchFailed = errors.New("doorlock: dispatch failed")

	// ErrAutoLockDelayTooShort is returned for delays below MinAutoLockDelay.
	ErrAutoLockDelayTooShort = errors.New("doorlock: auto-lock delay below minimum")

	// ErrWeakCredential is returned for secrets shorter than MinSecretLength.
	ErrWeakCredential = errors.New("doorlock: credential too short")

	// ErrInvalidPrincipal is returned for an empty principal or identifier.
	ErrInvalidPrincipal = errors.New("doorlock: principal is required")

	// ErrLockNotFound is returned when a device has no lock controller.
	ErrLockNotFound = errors.New("doorlock: lock not found")
)
