// Package fanout broadcasts core events to observers.
//
// Registry transitions, status and sensor updates, command results and
// door lock changes are published here under a topic name. Each registered
// Sink (the observer WebSocket hub, the MQTT mirror) receives every event.
package fanout
