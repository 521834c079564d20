package mqtt

import (
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "labpanel"

// Topics builds the panel's MQTT topics under a common prefix.
//
//	topics := mqtt.Topics{Prefix: "labpanel"}
//	topics.Event("door-unlocked")   // labpanel/event/door-unlocked
//	topics.Ingest("D1", "sensor-data") // labpanel/ingest/D1/sensor-data
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// SystemStatus is the retained presence topic of the panel.
//
// Example: labpanel/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// Event is the mirror topic of one fan-out event.
//
// Example: labpanel/event/device-status
func (t Topics) Event(event string) string {
	return t.prefix() + "/event/" + event
}

// AllEvents matches every mirrored event.
func (t Topics) AllEvents() string {
	return t.prefix() + "/event/#"
}

// Ingest is the topic a device publishes one protocol event on.
//
// Example: labpanel/ingest/D1/status-update
func (t Topics) Ingest(deviceID, event string) string {
	return t.prefix() + "/ingest/" + deviceID + "/" + event
}

// AllIngest matches every ingest topic.
func (t Topics) AllIngest() string {
	return t.prefix() + "/ingest/+/+"
}

// ParseIngest splits an ingest topic into its device ID and event name.
func (t Topics) ParseIngest(topic string) (deviceID, event string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.prefix()+"/ingest/")
	if !found {
		return "", "", false
	}
	deviceID, event, found = strings.Cut(rest, "/")
	if !found || deviceID == "" || event == "" || strings.Contains(event, "/") {
		return "", "", false
	}
	return deviceID, event, true
}
