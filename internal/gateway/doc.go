// Package gateway connects device sessions to the panel's core.
//
// Gateway implements devicelink.Handler. Each decoded inbound message is
// routed to the component that owns it:
//
//	register       -> device.Registry (and doorlock.Manager for door locks)
//	status-update  -> device.Store, device.Registry, doorlock.Manager, fan-out
//	sensor-data    -> device.Store, fan-out
//	*-result       -> command.Correlator
//	session close  -> device.Registry
//
// The package also holds the fan-out sinks that are not part of the HTTP
// surface: EventLog (the bounded in-memory operation log), TelemetrySink
// (InfluxDB export) and EventMirror (MQTT republishing), plus the MQTT
// ingest handler for devices that report over the broker.
package gateway
