package device

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
)

func newTestRegistry() (*Registry, *fanout.Recorder, *fixedClock) {
	rec := &fanout.Recorder{}
	clock := newFixedClock()
	r := NewRegistry(fanout.New(rec))
	r.now = clock.Now
	return r, rec, clock
}

func TestRegister_Validation(t *testing.T) {
	r, _, _ := newTestRegistry()

	if _, err := r.Register("", newFakeSession("s1"), Attributes{}); !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("Register(\"\") error = %v, want ErrInvalidRegistration", err)
	}
	if _, err := r.Register("d1", nil, Attributes{}); !errors.Is(err, ErrNilSession) {
		t.Errorf("Register(nil session) error = %v, want ErrNilSession", err)
	}
	if total, _ := r.Count(); total != 0 {
		t.Errorf("failed registrations created %d devices", total)
	}
}

func TestRegister_DefaultsAndAttributes(t *testing.T) {
	r, _, _ := newTestRegistry()

	d, err := r.Register("d1", newFakeSession("s1"), Attributes{})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if d.Type != TypeUnknown || d.DisplayName != "Device d1" {
		t.Errorf("defaults = (%q, %q), want (%q, %q)", d.Type, d.DisplayName, TypeUnknown, "Device d1")
	}
	if d.Status != StatusOnline || d.SessionID != "s1" {
		t.Errorf("status/session = %s/%s, want online/s1", d.Status, d.SessionID)
	}

	d, _ = r.Register("d1", newFakeSession("s1"), Attributes{
		Type:         TypeDoorLock,
		Name:         "Lab door",
		HardwareInfo: map[string]any{"model": "Pi 4"},
	})
	if d.Type != TypeDoorLock || d.DisplayName != "Lab door" || d.HardwareInfo["model"] != "Pi 4" {
		t.Errorf("attributes not applied: %+v", d)
	}

	// Empty attributes keep earlier values.
	d, _ = r.Register("d1", newFakeSession("s2"), Attributes{})
	if d.Type != TypeDoorLock || d.DisplayName != "Lab door" {
		t.Errorf("empty attributes overwrote fields: %+v", d)
	}
}

func TestRegister_SingleRecordSingleSession(t *testing.T) {
	r, rec, _ := newTestRegistry()

	for i := 0; i < 5; i++ {
		if _, err := r.Register("d1", newFakeSession(fmt.Sprintf("s%d", i)), Attributes{}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	if total, online := r.Count(); total != 1 || online != 1 {
		t.Fatalf("Count() = %d/%d, want 1/1", total, online)
	}

	bound := 0
	for i := 0; i < 5; i++ {
		if id, ok := r.LookupBySession(fmt.Sprintf("s%d", i)); ok {
			bound++
			if id != "d1" {
				t.Errorf("session s%d bound to %q", i, id)
			}
		}
	}
	if bound != 1 {
		t.Errorf("live bindings = %d, want 1", bound)
	}
	if id, ok := r.LookupBySession("s4"); !ok || id != "d1" {
		t.Error("latest session is not the live binding")
	}
	if rec.Count(fanout.TopicDeviceConnected) != 5 {
		t.Errorf("device-connected events = %d, want one per rebind", rec.Count(fanout.TopicDeviceConnected))
	}
}

func TestRegister_SameSessionTwiceIsNotATransition(t *testing.T) {
	r, rec, _ := newTestRegistry()
	s := newFakeSession("s1")

	r.Register("d1", s, Attributes{}) //nolint:errcheck // valid input
	r.Register("d1", s, Attributes{}) //nolint:errcheck // valid input

	if rec.Count(fanout.TopicDeviceConnected) != 1 {
		t.Errorf("device-connected events = %d, want 1", rec.Count(fanout.TopicDeviceConnected))
	}
}

func TestRegister_SessionReusedForAnotherDevice(t *testing.T) {
	r, rec, _ := newTestRegistry()
	s := newFakeSession("s1")

	r.Register("d1", s, Attributes{}) //nolint:errcheck // valid input
	r.Register("d2", s, Attributes{}) //nolint:errcheck // valid input

	d1, _ := r.LookupDevice("d1")
	if d1.IsOnline() {
		t.Error("d1 still online after its session registered as d2")
	}
	if id, _ := r.LookupBySession("s1"); id != "d2" {
		t.Errorf("session s1 bound to %q, want d2", id)
	}
	if rec.Count(fanout.TopicDeviceDisconnected) != 1 {
		t.Errorf("device-disconnected events = %d, want 1", rec.Count(fanout.TopicDeviceDisconnected))
	}
}

func TestUnbind(t *testing.T) {
	r, rec, clock := newTestRegistry()
	r.Register("d1", newFakeSession("s1"), Attributes{}) //nolint:errcheck // valid input
	clock.Advance(time.Minute)

	id, ok := r.Unbind("s1")
	if !ok || id != "d1" {
		t.Fatalf("Unbind() = %q, %v, want d1, true", id, ok)
	}

	d, ok := r.LookupDevice("d1")
	if !ok {
		t.Fatal("device record removed on disconnect")
	}
	if d.Status != StatusOffline || d.SessionID != "" {
		t.Errorf("after unbind status=%s session=%q", d.Status, d.SessionID)
	}
	if !d.LastSeen.Equal(clock.Now()) {
		t.Errorf("LastSeen = %v, want %v", d.LastSeen, clock.Now())
	}
	if _, ok := r.Session("d1"); ok {
		t.Error("Session() still returns a session after unbind")
	}

	// Second close of the same session is a no-op.
	if _, ok := r.Unbind("s1"); ok {
		t.Error("second Unbind() reported a device")
	}
	if _, ok := r.Unbind("never-seen"); ok {
		t.Error("Unbind() of unknown session reported a device")
	}
	if rec.Count(fanout.TopicDeviceDisconnected) != 1 {
		t.Errorf("device-disconnected events = %d, want 1", rec.Count(fanout.TopicDeviceDisconnected))
	}
}

func TestUnbind_StaleSessionAfterReconnect(t *testing.T) {
	r, rec, _ := newTestRegistry()
	r.Register("d1", newFakeSession("old"), Attributes{}) //nolint:errcheck // valid input
	r.Register("d1", newFakeSession("new"), Attributes{}) //nolint:errcheck // valid input

	// The old session's close arrives after the new connect.
	if _, ok := r.Unbind("old"); ok {
		t.Error("stale Unbind() took effect")
	}

	d, _ := r.LookupDevice("d1")
	if !d.IsOnline() || d.SessionID != "new" {
		t.Errorf("stale close clobbered binding: status=%s session=%s", d.Status, d.SessionID)
	}
	if rec.Count(fanout.TopicDeviceDisconnected) != 0 {
		t.Error("stale close published device-disconnected")
	}
}

func TestListOnline(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.Register("d1", newFakeSession("s1"), Attributes{}) //nolint:errcheck // valid input
	r.Register("d2", newFakeSession("s2"), Attributes{}) //nolint:errcheck // valid input
	r.Register("d3", newFakeSession("s3"), Attributes{}) //nolint:errcheck // valid input
	r.Unbind("s2")

	online := r.ListOnline()
	if len(online) != 2 || online[0].ID != "d1" || online[1].ID != "d3" {
		t.Errorf("ListOnline() = %+v, want d1, d3", online)
	}
	if all := r.List(); len(all) != 3 {
		t.Errorf("List() len = %d, want 3", len(all))
	}
}

func TestLookupDevice_ReturnsCopy(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.Register("d1", newFakeSession("s1"), Attributes{HardwareInfo: map[string]any{"model": "Pi"}}) //nolint:errcheck // valid input

	d, _ := r.LookupDevice("d1")
	d.HardwareInfo["model"] = "mutated"
	d.Status = StatusOffline

	again, _ := r.LookupDevice("d1")
	if again.HardwareInfo["model"] != "Pi" || !again.IsOnline() {
		t.Error("mutating a returned device changed registry state")
	}
}

func TestApplyStatusAndSetSensor(t *testing.T) {
	r, _, clock := newTestRegistry()

	if r.ApplyStatus("ghost", map[string]any{"cpu": 1}, nil) {
		t.Error("ApplyStatus() on unknown device reported true")
	}
	if r.SetSensor("ghost", "temperature", nil, clock.Now()) {
		t.Error("SetSensor() on unknown device reported true")
	}

	r.Register("d1", newFakeSession("s1"), Attributes{}) //nolint:errcheck // valid input
	clock.Advance(time.Second)

	if !r.ApplyStatus("d1", map[string]any{"cpu": 12.5}, map[string]any{"gpio": true}) {
		t.Fatal("ApplyStatus() on known device reported false")
	}
	r.SetSensor("d1", "temperature", map[string]any{"value": 21.0}, clock.Now())

	d, _ := r.LookupDevice("d1")
	if d.LastStatus["cpu"] != 12.5 || d.HardwareInfo["gpio"] != true {
		t.Errorf("status not applied: %+v", d)
	}
	if s := d.Sensors["temperature"]; s.LastReading["value"] != 21.0 || !s.LastReadTime.Equal(clock.Now()) {
		t.Errorf("sensor state = %+v", s)
	}
}

func TestRegistry_ConcurrentRegisterUnbind(t *testing.T) {
	r, _, _ := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := fmt.Sprintf("s%d", i)
			r.Register("d1", newFakeSession(sid), Attributes{}) //nolint:errcheck // valid input
			if i%2 == 0 {
				r.Unbind(sid)
			}
		}(i)
	}
	wg.Wait()

	total, online := r.Count()
	if total != 1 {
		t.Fatalf("total devices = %d, want 1", total)
	}

	d, _ := r.LookupDevice("d1")
	if online == 1 {
		if id, ok := r.LookupBySession(d.SessionID); !ok || id != "d1" {
			t.Error("online device has no session index entry")
		}
	} else if d.SessionID != "" {
		t.Error("offline device still carries a session")
	}
}
