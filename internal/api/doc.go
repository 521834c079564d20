// Package api implements the HTTP REST API and WebSocket endpoints of the
// lab panel.
//
// This package provides:
//   - REST endpoints for devices, histories, commands and their results
//   - door lock operation and credential management
//   - audit trail and operation log queries
//   - an observer WebSocket hub fed by the event fan-out
//   - the mount point of the device channel
//
// # Security
//
// Operators log in against the configured directory and receive a JWT.
// Each route checks one permission of the caller's role. Observer
// WebSockets use single-use tickets so the token never appears in a URL.
// Devices authenticate on the device channel with its own shared token.
//
// # Status codes
//
// Commands answer 202 once handed to the device; the outcome arrives later
// as an operation-result event. An offline device answers 409. Rejected
// unlock attempts answer 403, or 423 during a password lockout, and carry
// the attempt result as the body.
package api
