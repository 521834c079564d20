package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Inbound event names.
const (
	EventRegister     = "register"
	EventStatusUpdate = "status-update"
	EventSensorData   = "sensor-data"
	EventGPIOResult   = "gpio-result"
	EventI2CResult    = "i2c-result"
	EventSystemResult = "system-result"
)

// Outbound event names.
const (
	EventGPIOControl   = "gpio-control"
	EventI2CControl    = "i2c-control"
	EventSystemControl = "system-control"
)

// Subsystem names the command family a result belongs to.
type Subsystem string

// Command subsystems.
const (
	SubsystemGPIO   Subsystem = "gpio"
	SubsystemI2C    Subsystem = "i2c"
	SubsystemSystem Subsystem = "system"
)

// Envelope is the frame carried on the device channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound is one of the inbound variants. The unexported method closes
// the set.
type Inbound interface {
	EventName() string
	inbound()
}

// Register announces a device on a new session.
type Register struct {
	DeviceID     string         `json:"deviceId"`
	Type         string         `json:"type,omitempty"`
	Name         string         `json:"name,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	HardwareInfo map[string]any `json:"hardwareInfo,omitempty"`
	Hardware     map[string]any `json:"hardware,omitempty"`
}

// HardwareAttributes returns hardwareInfo, falling back to the older "hardware" key.
func (r Register) HardwareAttributes() map[string]any {
	if r.HardwareInfo != nil {
		return r.HardwareInfo
	}
	return r.Hardware
}

// StatusUpdate is a periodic status report. Snapshot holds every field of
// the report except deviceId and is what the status history retains.
type StatusUpdate struct {
	DeviceID   string         `json:"deviceId,omitempty"`
	Status     any            `json:"status,omitempty"`
	Hardware   map[string]any `json:"hardware,omitempty"`
	Sensors    map[string]any `json:"sensors,omitempty"`
	GPIOPins   any            `json:"gpioPins,omitempty"`
	I2CDevices any            `json:"i2cDevices,omitempty"`
	Battery    *float64       `json:"battery,omitempty"`
	DoorOpen   *bool          `json:"doorOpen,omitempty"`

	Snapshot map[string]any `json:"-"`
}

// SensorData is one reading of one sensor type.
type SensorData struct {
	DeviceID   string         `json:"deviceId,omitempty"`
	SensorType string         `json:"sensorType"`
	Data       map[string]any `json:"-"`
}

// Outcome is the common tail of every result variant.
type Outcome struct {
	Command string `json:"command"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GPIOResult reports the outcome of a gpio-control command.
type GPIOResult struct {
	DeviceID string `json:"deviceId,omitempty"`
	Pin      *int   `json:"pin,omitempty"`
	Outcome
}

// I2CResult reports the outcome of an i2c-control command.
type I2CResult struct {
	DeviceID  string      `json:"deviceId,omitempty"`
	BusNumber int         `json:"busNumber"`
	Address   *I2CAddress `json:"address,omitempty"`
	Outcome
}

// SystemResult reports the outcome of a system-control command.
type SystemResult struct {
	DeviceID string `json:"deviceId,omitempty"`
	Outcome
}

func (Register) EventName() string     { return EventRegister }
func (StatusUpdate) EventName() string { return EventStatusUpdate }
func (SensorData) EventName() string   { return EventSensorData }
func (GPIOResult) EventName() string   { return EventGPIOResult }
func (I2CResult) EventName() string    { return EventI2CResult }
func (SystemResult) EventName() string { return EventSystemResult }

func (Register) inbound()     {}
func (StatusUpdate) inbound() {}
func (SensorData) inbound()   {}
func (GPIOResult) inbound()   {}
func (I2CResult) inbound()    {}
func (SystemResult) inbound() {}

// GPIOTarget returns the correlation target of a GPIO command: "pin:17", or
// "pin:*" for commands that address every pin.
func GPIOTarget(pin *int) string {
	if pin == nil {
		return "pin:*"
	}
	return "pin:" + strconv.Itoa(*pin)
}

// I2CTarget returns the correlation target of an I2C command:
// "bus:1/0x76", or "bus:1" for bus-wide commands such as scan.
func I2CTarget(bus int, addr *I2CAddress) string {
	if addr == nil {
		return "bus:" + strconv.Itoa(bus)
	}
	return fmt.Sprintf("bus:%d/%s", bus, addr)
}

// Target implements the correlation target for GPIO results.
func (r GPIOResult) Target() string { return GPIOTarget(r.Pin) }

// Target implements the correlation target for I2C results.
func (r I2CResult) Target() string { return I2CTarget(r.BusNumber, r.Address) }

// GPIOControl commands a GPIO operation: setup, write, read, release or
// release-all.
type GPIOControl struct {
	Command string         `json:"command"`
	Pin     *int           `json:"pin,omitempty"`
	Mode    string         `json:"mode,omitempty"`
	Value   *int           `json:"value,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// I2CControl commands an I2C operation: scan, read or write.
type I2CControl struct {
	Command    string      `json:"command"`
	BusNumber  int         `json:"busNumber"`
	Address    *I2CAddress `json:"address,omitempty"`
	SensorType string      `json:"sensorType,omitempty"`
	Values     []int       `json:"values,omitempty"`
}

// SystemControl commands the device process: update-status, restart or
// shutdown.
type SystemControl struct {
	Command string `json:"command"`
}

// GPIO, I2C and system command names accepted by devices.
var (
	GPIOCommands   = []string{"setup", "write", "read", "release", "release-all"}
	I2CCommands    = []string{"scan", "read", "write"}
	SystemCommands = []string{"update-status", "restart", "shutdown"}
)

// Validate checks the command name and the fields it needs.
func (c GPIOControl) Validate() error {
	if !slices.Contains(GPIOCommands, c.Command) {
		return fmt.Errorf("%w: gpio command %q", ErrMalformedPayload, c.Command)
	}
	if c.Command != "release-all" && c.Pin == nil {
		return fmt.Errorf("%w: pin", ErrMissingField)
	}
	if c.Command == "write" && c.Value == nil {
		return fmt.Errorf("%w: value", ErrMissingField)
	}
	return nil
}

// Validate checks the command name and the fields it needs.
func (c I2CControl) Validate() error {
	if !slices.Contains(I2CCommands, c.Command) {
		return fmt.Errorf("%w: i2c command %q", ErrMalformedPayload, c.Command)
	}
	if c.Command != "scan" && c.Address == nil {
		return fmt.Errorf("%w: address", ErrMissingField)
	}
	if c.Command == "write" && len(c.Values) == 0 {
		return fmt.Errorf("%w: values", ErrMissingField)
	}
	for _, v := range c.Values {
		if v < 0 || v > 0xff {
			return fmt.Errorf("%w: byte value %d out of range", ErrMalformedPayload, v)
		}
	}
	return nil
}

// Validate checks the command name.
func (c SystemControl) Validate() error {
	if !slices.Contains(SystemCommands, c.Command) {
		return fmt.Errorf("%w: system command %q", ErrMalformedPayload, c.Command)
	}
	return nil
}

// Target returns the correlation target of the command.
func (c GPIOControl) Target() string { return GPIOTarget(c.Pin) }

// Target returns the correlation target of the command.
func (c I2CControl) Target() string { return I2CTarget(c.BusNumber, c.Address) }

// DecodeEnvelope parses a frame and decodes its payload.
func DecodeEnvelope(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: event", ErrMissingField)
	}
	return Decode(env.Event, env.Data)
}

// Decode validates data against the variant named by event.
func Decode(event string, data []byte) (Inbound, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		data = []byte("{}")
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s payload is not an object: %w", ErrMalformedPayload, event, err)
	}

	switch event {
	case EventRegister:
		var m Register
		if err := unmarshal(event, data, &m); err != nil {
			return nil, err
		}
		return m, nil

	case EventStatusUpdate:
		var m StatusUpdate
		if err := unmarshal(event, data, &m); err != nil {
			return nil, err
		}
		delete(fields, "deviceId")
		m.Snapshot = fields
		return m, nil

	case EventSensorData:
		var m SensorData
		if err := unmarshal(event, data, &m); err != nil {
			return nil, err
		}
		if m.SensorType == "" {
			return nil, fmt.Errorf("%w: sensorType", ErrMissingField)
		}
		m.Data = readingData(fields["data"])
		return m, nil

	case EventGPIOResult:
		var m GPIOResult
		if err := unmarshal(event, data, &m); err != nil {
			return nil, err
		}
		if m.Command == "" {
			return nil, fmt.Errorf("%w: command", ErrMissingField)
		}
		return m, nil

	case EventI2CResult:
		var m I2CResult
		if err := unmarshal(event, data, &m); err != nil {
			return nil, err
		}
		if m.Command == "" {
			return nil, fmt.Errorf("%w: command", ErrMissingField)
		}
		return m, nil

	case EventSystemResult:
		var m SystemResult
		if err := unmarshal(event, data, &m); err != nil {
			return nil, err
		}
		if m.Command == "" {
			return nil, fmt.Errorf("%w: command", ErrMissingField)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
}

func unmarshal(event string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedPayload, event, err)
	}
	return nil
}

// readingData normalises a reading: objects pass through, scalars are
// wrapped as {"value": x}.
func readingData(v any) map[string]any {
	switch d := v.(type) {
	case map[string]any:
		return d
	case nil:
		return map[string]any{}
	default:
		return map[string]any{"value": d}
	}
}
