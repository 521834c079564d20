package device

import "time"

// Status is the connection state of a device.
type Status string

// Device connection states.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// TypeUnknown is assigned when a registration does not name a type.
const TypeUnknown = "unknown"

// TypeDoorLock marks devices that drive a door lock relay.
const TypeDoorLock = "door-lock"

// Device is a physical or simulated peripheral known to the registry.
//
// Records are created on first registration and never removed by the core;
// a disconnect only marks the device offline.
type Device struct {
	ID           string                 `json:"deviceId"`
	Type         string                 `json:"type"`
	DisplayName  string                 `json:"name"`
	Status       Status                 `json:"status"`
	LastSeen     time.Time              `json:"lastSeen"`
	SessionID    string                 `json:"sessionId,omitempty"`
	IPAddress    string                 `json:"ipAddress,omitempty"`
	HardwareInfo map[string]any         `json:"hardwareInfo,omitempty"`
	LastStatus   map[string]any         `json:"lastStatus,omitempty"`
	Sensors      map[string]SensorState `json:"sensors,omitempty"`
	RegisteredAt time.Time              `json:"registeredAt"`

	// Generation identifies the current session binding. It increases on
	// every registration so a late disconnect of an older session can be
	// told apart from the live one.
	Generation uint64 `json:"generation"`
}

// SensorState is the latest reading of one sensor type.
type SensorState struct {
	LastReading  map[string]any `json:"lastReading"`
	LastReadTime time.Time      `json:"lastReadTime"`
}

// Attributes are the mutable fields supplied with a registration.
// Empty fields leave the existing value untouched, or take a default
// when the device is new.
type Attributes struct {
	Type         string
	Name         string
	IPAddress    string
	HardwareInfo map[string]any
}

// IsOnline reports whether the device currently has a live session.
func (d *Device) IsOnline() bool {
	return d.Status == StatusOnline
}

// DeepCopy creates a deep copy of the device, including nested maps.
// The registry hands out copies so callers can never mutate its state.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.HardwareInfo = deepCopyMap(d.HardwareInfo)
	cpy.LastStatus = deepCopyMap(d.LastStatus)

	if d.Sensors != nil {
		cpy.Sensors = make(map[string]SensorState, len(d.Sensors))
		for k, s := range d.Sensors {
			cpy.Sensors[k] = SensorState{
				LastReading:  deepCopyMap(s.LastReading),
				LastReadTime: s.LastReadTime,
			}
		}
	}

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}
