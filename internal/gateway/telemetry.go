package gateway

import (
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/doorlock"
	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/influxdb"
)

// MetricWriter queues a time-series point. *influxdb.Client implements it.
type MetricWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// TelemetrySink exports sensor readings and door lock state as
// time-series points. It is a fanout.Sink; other topics are ignored.
type TelemetrySink struct {
	writer MetricWriter
	siteID string
}

// NewTelemetrySink creates a sink writing through w. siteID, when set, is
// added as a site tag to every point.
func NewTelemetrySink(w MetricWriter, siteID string) *TelemetrySink {
	return &TelemetrySink{writer: w, siteID: siteID}
}

// Deliver implements fanout.Sink.
func (t *TelemetrySink) Deliver(_ string, payload any) {
	switch p := payload.(type) {
	case SensorEvent:
		t.writer.WritePoint(influxdb.MeasurementSensor,
			t.tags(map[string]string{"device_id": p.DeviceID, "sensor_type": p.SensorType}),
			p.Data,
			p.Timestamp,
		)

	case doorlock.Info:
		ts := p.LastActivity
		if ts.IsZero() {
			ts = time.Now()
		}
		t.writer.WritePoint(influxdb.MeasurementLock,
			t.tags(map[string]string{"device_id": p.DeviceID}),
			map[string]any{
				"status":     string(p.Status),
				"battery":    p.Battery,
				"open_count": p.OpenCount,
				"locked_out": p.LockedOut,
			},
			ts,
		)
	}
}

func (t *TelemetrySink) tags(tags map[string]string) map[string]string {
	if t.siteID != "" {
		tags["site"] = t.siteID
	}
	return tags
}
