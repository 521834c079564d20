package device

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SensorReader samples one sensor type. Real drivers and test doubles sit
// behind the same interface.
type SensorReader interface {
	Read(ctx context.Context, sensorType string) (map[string]any, error)
}

// SensorReaderFunc adapts a function to SensorReader.
type SensorReaderFunc func(ctx context.Context, sensorType string) (map[string]any, error)

// Read calls f(ctx, sensorType).
func (f SensorReaderFunc) Read(ctx context.Context, sensorType string) (map[string]any, error) {
	return f(ctx, sensorType)
}

// ReadingSink accepts readings produced locally, the same way readings
// from remote devices are accepted.
type ReadingSink interface {
	AcceptReading(deviceID, sensorType string, data map[string]any)
}

// Poller samples a SensorReader on a fixed interval and forwards each
// reading to a ReadingSink under one device ID.
type Poller struct {
	DeviceID string
	Types    []string
	Interval time.Duration
	Reader   SensorReader
	Sink     ReadingSink
	Logger   Logger
}

// Run polls until ctx is cancelled. A failed read is logged and the other
// sensor types are still sampled.
func (p *Poller) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		return fmt.Errorf("device: poll interval must be positive, got %v", p.Interval)
	}
	logger := p.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.pollOnce(ctx, logger)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx, logger)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, logger Logger) {
	for _, sensorType := range p.Types {
		data, err := p.Reader.Read(ctx, sensorType)
		if err != nil {
			logger.Warn("sensor read failed", "device_id", p.DeviceID, "sensor_type", sensorType, "error", err)
			continue
		}
		p.Sink.AcceptReading(p.DeviceID, sensorType, data)
	}
}

// SensorCPUTemperature is the sensor type served by ThermalReader.
const SensorCPUTemperature = "cpu-temperature"

// DefaultThermalPath is the Linux thermal zone exposing the SoC temperature
// on a Raspberry Pi.
const DefaultThermalPath = "/sys/class/thermal/thermal_zone0/temp"

// ThermalReader reads the host SoC temperature from a sysfs thermal zone,
// which reports millidegrees Celsius.
type ThermalReader struct {
	Path string
}

// Read implements SensorReader for SensorCPUTemperature.
func (t ThermalReader) Read(_ context.Context, sensorType string) (map[string]any, error) {
	if sensorType != SensorCPUTemperature {
		return nil, fmt.Errorf("%w: %q not served by thermal reader", ErrInvalidSensorType, sensorType)
	}
	path := t.Path
	if path == "" {
		path = DefaultThermalPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading thermal zone: %w", err)
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing thermal zone value: %w", err)
	}
	return map[string]any{
		"temperature": milli / 1000,
		"unit":        "C",
	}, nil
}
