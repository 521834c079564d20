package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the panel.
const (
	MeasurementSensor = "sensor_readings"
	MeasurementLock   = "door_lock"
)

// WritePoint queues one point. Fields that are not numbers, booleans or
// strings are dropped; a point left without fields is not written.
// Writing on a closed client is a no-op.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	clean := FieldValues(fields)
	if len(clean) == 0 {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, clean, ts))
}

// FieldValues keeps the entries of fields that InfluxDB can store as
// field values. Integers are widened to float64 so a field keeps one type
// whether a device sends 21 or 21.5.
func FieldValues(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch x := v.(type) {
		case float64:
			out[k] = x
		case float32:
			out[k] = float64(x)
		case int:
			out[k] = float64(x)
		case int64:
			out[k] = float64(x)
		case int32:
			out[k] = float64(x)
		case bool, string:
			out[k] = x
		}
	}
	return out
}
