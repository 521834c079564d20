// Package mqtt connects the panel to an MQTT broker.
//
// The broker is optional. When enabled it carries two flows:
//   - a mirror of every fan-out event, published under
//     {prefix}/event/{topic} for dashboards and other consumers
//   - telemetry ingest, for devices that report status and sensor data over
//     MQTT on {prefix}/ingest/{deviceId}/{event} instead of the device channel
//
// Commands are never sent over MQTT; they go to the device's live session.
//
// The client reconnects automatically, restores its subscriptions on
// reconnect, and announces the panel's presence on {prefix}/system/status
// with a retained message and a matching Last Will.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.AllIngest(), 1, func(topic string, payload []byte) error {
//	    deviceID, event, ok := topics.ParseIngest(topic)
//	    ...
//	})
package mqtt
