package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/command"
	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
	"github.com/DaLongZhuaZi/rpi-panel/internal/doorlock"
	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// steppingClock returns a clock that advances one second per call.
func steppingClock() func() time.Time {
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestEventLog_EvictsOldest(t *testing.T) {
	l := NewEventLog(3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		l.System(LevelInfo, msg)
	}

	got, err := l.Entries(ScopeSystem, "", 0)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(got) != 3 || got[0].Message != "b" || got[2].Message != "d" {
		t.Errorf("Entries() = %+v, want b..d", got)
	}

	last, _ := l.Entries(ScopeSystem, "", 1)
	if len(last) != 1 || last[0].Message != "d" {
		t.Errorf("Entries(limit 1) = %+v", last)
	}
}

func TestEventLog_UnknownScope(t *testing.T) {
	l := NewEventLog(0)
	if _, err := l.Entries("kernel", "", 0); !errors.Is(err, ErrUnknownScope) {
		t.Errorf("Entries() error = %v, want ErrUnknownScope", err)
	}
}

func TestEventLog_DeviceScope(t *testing.T) {
	l := NewEventLog(0)
	l.now = steppingClock()

	l.Device("D1", LevelInfo, "one")
	l.Device("D2", LevelWarn, "two")
	l.Device("D1", LevelInfo, "three")

	d1, _ := l.Entries(ScopeDevice, "D1", 0)
	if len(d1) != 2 {
		t.Errorf("D1 entries = %d, want 2", len(d1))
	}

	unknown, err := l.Entries(ScopeDevice, "D404", 0)
	if err != nil || unknown == nil || len(unknown) != 0 {
		t.Errorf("unknown device = %v, %v; want empty slice", unknown, err)
	}

	merged, _ := l.Entries(ScopeDevice, "", 2)
	if len(merged) != 2 || merged[0].Message != "two" || merged[1].Message != "three" {
		t.Errorf("merged = %+v, want two, three", merged)
	}
}

func TestEventLog_Clear(t *testing.T) {
	l := NewEventLog(0)
	l.System(LevelInfo, "x")
	l.Device("D1", LevelInfo, "y")

	l.Clear()

	sys, _ := l.Entries(ScopeSystem, "", 0)
	dev, _ := l.Entries(ScopeDevice, "", 0)
	if len(sys) != 0 || len(dev) != 0 {
		t.Errorf("after Clear: system=%d device=%d", len(sys), len(dev))
	}
}

func TestEventLog_Deliver(t *testing.T) {
	tests := []struct {
		name      string
		topic     string
		payload   any
		scope     Scope
		wantLevel Level
		wantMsg   string
	}{
		{
			name:      "connected",
			topic:     fanout.TopicDeviceConnected,
			payload:   device.ConnectedEvent{DeviceID: "D1", Device: device.Device{DisplayName: "Bench"}},
			scope:     ScopeDevice,
			wantLevel: LevelInfo,
			wantMsg:   "device registered: Bench",
		},
		{
			name:      "disconnected",
			topic:     fanout.TopicDeviceDisconnected,
			payload:   device.DisconnectedEvent{DeviceID: "D1"},
			scope:     ScopeDevice,
			wantLevel: LevelWarn,
			wantMsg:   "device disconnected",
		},
		{
			name:  "gpio failure",
			topic: fanout.TopicGPIOOperationResult,
			payload: command.Result{
				Key:   command.Key{DeviceID: "D1", Subsystem: protocol.SubsystemGPIO, Target: "pin:17", Command: "write"},
				Error: "pin busy",
			},
			scope:     ScopeGPIO,
			wantLevel: LevelError,
			wantMsg:   "gpio write pin:17 failed: pin busy",
		},
		{
			name:  "i2c success",
			topic: fanout.TopicI2COperationResult,
			payload: command.Result{
				Key:     command.Key{DeviceID: "D1", Subsystem: protocol.SubsystemI2C, Target: "bus:1", Command: "scan"},
				Success: true,
			},
			scope:     ScopeI2C,
			wantLevel: LevelInfo,
			wantMsg:   "i2c scan bus:1 succeeded",
		},
		{
			name:      "door unlocked",
			topic:     fanout.TopicDoorUnlocked,
			payload:   doorlock.UnlockedEvent{DeviceID: "D1", Method: doorlock.MethodPassword, Principal: "admin"},
			scope:     ScopeDoor,
			wantLevel: LevelInfo,
			wantMsg:   "door unlocked via password by admin",
		},
		{
			name:      "door locked",
			topic:     fanout.TopicDoorLocked,
			payload:   doorlock.LockedEvent{DeviceID: "D1", Reason: doorlock.MethodAuto},
			scope:     ScopeDoor,
			wantLevel: LevelInfo,
			wantMsg:   "door locked (auto)",
		},
		{
			name:      "door error",
			topic:     fanout.TopicDoorError,
			payload:   doorlock.ErrorEvent{DeviceID: "D1", Error: "socket closed"},
			scope:     ScopeDoor,
			wantLevel: LevelError,
			wantMsg:   "door error: socket closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewEventLog(0)
			l.Deliver(tt.topic, tt.payload)

			deviceID := ""
			if tt.scope == ScopeDevice {
				deviceID = "D1"
			}
			got, err := l.Entries(tt.scope, deviceID, 0)
			if err != nil {
				t.Fatalf("Entries() error = %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("entries = %+v, want 1", got)
			}
			if got[0].Level != tt.wantLevel || got[0].Message != tt.wantMsg {
				t.Errorf("entry = %+v, want %s %q", got[0], tt.wantLevel, tt.wantMsg)
			}
		})
	}
}

func TestEventLog_DoorStatusIgnored(t *testing.T) {
	l := NewEventLog(0)
	l.Deliver(fanout.TopicDoorStatus, doorlock.Info{DeviceID: "D1"})

	for _, s := range Scopes {
		got, _ := l.Entries(s, "", 0)
		if len(got) != 0 {
			t.Errorf("scope %s has %d entries, want 0", s, len(got))
		}
	}
}
