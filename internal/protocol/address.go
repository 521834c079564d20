package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// maxI2CAddress is the highest 7-bit I2C address.
const maxI2CAddress = 0x7f

// I2CAddress is a 7-bit bus address. Devices send it either as a number
// (118) or as a hex string ("0x76"); both decode to the same value.
type I2CAddress uint8

// ParseI2CAddress parses "0x76", "76" (hex when prefixed, decimal otherwise).
func ParseI2CAddress(s string) (I2CAddress, error) {
	s = strings.TrimSpace(s)
	base := 10
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		s, base = rest, 16
	}
	v, err := strconv.ParseUint(s, base, 8)
	if err != nil || v > maxI2CAddress {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return I2CAddress(v), nil
}

// String formats the address as 0x%02x.
func (a I2CAddress) String() string {
	return fmt.Sprintf("0x%02x", uint8(a))
}

// UnmarshalJSON accepts a JSON number or string.
func (a *I2CAddress) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		v, err := strconv.ParseUint(n.String(), 10, 8)
		if err != nil || v > maxI2CAddress {
			return fmt.Errorf("%w: %s", ErrInvalidAddress, n)
		}
		*a = I2CAddress(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, string(b))
	}
	v, err := ParseI2CAddress(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// knownI2CDevices maps common lab sensor addresses to part names.
var knownI2CDevices = map[I2CAddress]string{
	0x23: "BH1750 light sensor",
	0x3c: "SSD1306 OLED display",
	0x40: "INA219 current sensor",
	0x48: "ADS1115 ADC",
	0x68: "DS3231 RTC",
	0x76: "BME280 environment sensor",
	0x77: "BME280 environment sensor",
}

// DeviceName returns the usual part at this address, or "" if unknown.
func (a I2CAddress) DeviceName() string {
	return knownI2CDevices[a]
}
