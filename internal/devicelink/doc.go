// Package devicelink is the transport channel between field devices and
// the panel core.
//
// Each device process holds one WebSocket connection to the device channel
// endpoint. A connection is a Session: it carries JSON envelopes of the form
//
//	{"event": "status-update", "data": {...}}
//
// in both directions. Inbound frames are decoded into protocol variants at
// the boundary and handed to a Handler; frames that fail to decode are
// logged and dropped without closing the session. Outbound frames are
// queued on a bounded per-session buffer and written by a dedicated
// goroutine, so Emit never blocks the caller.
//
// Sessions are unreliable by nature: a dropped connection is reported once
// through Handler.HandleClose and is a routine event, not an error.
package devicelink
