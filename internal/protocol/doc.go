// Package protocol defines the messages exchanged with field devices.
//
// Every frame on the device channel is an Envelope naming an event and
// carrying a JSON object. Inbound frames decode into one of the tagged
// variants below, validated before they reach the core:
//
//	register        → Register
//	status-update   → StatusUpdate
//	sensor-data     → SensorData
//	gpio-result     → GPIOResult
//	i2c-result      → I2CResult
//	system-result   → SystemResult
//
// Outbound commands are GPIOControl, I2CControl and SystemControl.
//
// Result variants may omit deviceId; the receiver attributes them to the
// device bound to the session they arrived on.
package protocol
