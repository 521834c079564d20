package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/DaLongZhuaZi/rpi-panel/internal/audit"
	"github.com/DaLongZhuaZi/rpi-panel/internal/auth"
	"github.com/DaLongZhuaZi/rpi-panel/internal/command"
	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
	"github.com/DaLongZhuaZi/rpi-panel/internal/doorlock"
	"github.com/DaLongZhuaZi/rpi-panel/internal/gateway"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"valid", loginRequest{Username: "op", Password: "op-pass"}, http.StatusOK},
		{"wrong password", loginRequest{Username: "op", Password: "nope"}, http.StatusUnauthorized},
		{"unknown user", loginRequest{Username: "ghost", Password: "op-pass"}, http.StatusUnauthorized},
		{"missing fields", loginRequest{Username: "op"}, http.StatusBadRequest},
		{"unknown field", map[string]any{"user": "op"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestLogin_TokenWorksAndIsAudited(t *testing.T) {
	e := newTestEnv(t)

	var resp loginResponse
	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Username: "admin", Password: "admin-pass"}, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	if resp.TokenType != "Bearer" || resp.ExpiresIn != 15*60 || resp.User.Role != auth.RoleAdmin {
		t.Errorf("response = %+v", resp)
	}

	var me map[string]any
	if rec := e.do(t, http.MethodGet, "/api/v1/auth/me", resp.AccessToken, nil, &me); rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	if me["username"] != "admin" || me["role"] != "admin" {
		t.Errorf("me = %v", me)
	}

	e.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Username: "admin", Password: "bad"}, nil)
	e.flushAudit(t)

	res, err := e.auditRepo.List(context.Background(), audit.Filter{Action: audit.ActionLogin})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Fatalf("login audit entries = %d, want 2", res.Total)
	}
	failed, err := e.auditRepo.List(context.Background(), audit.Filter{Action: audit.ActionLogin, FailedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if failed.Total != 1 || failed.Logs[0].UserID != "admin" {
		t.Errorf("failed logins = %+v", failed.Logs)
	}
}

func TestDevices(t *testing.T) {
	e := newTestEnv(t)
	tok := token(t, "viewer", auth.RoleViewer)

	e.connect(t, "bench-01", "sensor-hub")
	e.connect(t, "bench-02", "sensor-hub")
	if _, ok := e.registry.Unbind("ses-bench-02"); !ok {
		t.Fatal("Unbind(bench-02) failed")
	}

	var all struct {
		Devices []device.Device `json:"devices"`
		Total   int             `json:"total"`
		Online  int             `json:"online"`
	}
	e.do(t, http.MethodGet, "/api/v1/devices", tok, nil, &all)
	if len(all.Devices) != 2 || all.Total != 2 || all.Online != 1 {
		t.Errorf("list = %+v", all)
	}
	if all.Devices[0].ID != "bench-01" {
		t.Errorf("first device = %s, want registration order", all.Devices[0].ID)
	}

	var online struct {
		Devices []device.Device `json:"devices"`
	}
	e.do(t, http.MethodGet, "/api/v1/devices?online=true", tok, nil, &online)
	if len(online.Devices) != 1 || online.Devices[0].ID != "bench-01" {
		t.Errorf("online = %+v", online.Devices)
	}

	var d device.Device
	if rec := e.do(t, http.MethodGet, "/api/v1/devices/bench-02", tok, nil, &d); rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if d.Status != device.StatusOffline {
		t.Errorf("bench-02 status = %s, want offline", d.Status)
	}

	if rec := e.do(t, http.MethodGet, "/api/v1/devices/ghost", tok, nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", rec.Code)
	}
}

func TestDeviceHistory(t *testing.T) {
	e := newTestEnv(t)
	tok := token(t, "viewer", auth.RoleViewer)

	for i := range 3 {
		e.store.RecordStatus("bench-01", map[string]any{"seq": i})
	}
	if _, err := e.store.RecordSensorReading("bench-01", "bme280", map[string]any{"temperature": 21.5}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantCount int
	}{
		{"status default", "/api/v1/devices/bench-01/history", http.StatusOK, 3},
		{"status limited", "/api/v1/devices/bench-01/history?limit=2", http.StatusOK, 2},
		{"sensor kind", "/api/v1/devices/bench-01/history?kind=bme280", http.StatusOK, 1},
		{"unknown device", "/api/v1/devices/ghost/history", http.StatusOK, 0},
		{"bad limit", "/api/v1/devices/bench-01/history?limit=-1", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				Records []device.Record `json:"records"`
				Count   int             `json:"count"`
			}
			rec := e.do(t, http.MethodGet, tt.path, tok, nil, &body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && (body.Count != tt.wantCount || len(body.Records) != tt.wantCount) {
				t.Errorf("count = %d records = %d, want %d", body.Count, len(body.Records), tt.wantCount)
			}
		})
	}

	var limited struct {
		Records []device.Record `json:"records"`
		Latest  *device.Record  `json:"latest"`
	}
	e.do(t, http.MethodGet, "/api/v1/devices/bench-01/history?limit=2", tok, nil, &limited)
	if got := limited.Records[1].Payload["seq"]; got != float64(2) {
		t.Errorf("newest record seq = %v, want 2 (most recent last)", got)
	}
	if limited.Latest == nil || limited.Latest.Payload["seq"] != float64(2) {
		t.Errorf("latest = %+v, want seq 2", limited.Latest)
	}

	var empty struct {
		Latest *device.Record `json:"latest"`
	}
	e.do(t, http.MethodGet, "/api/v1/devices/ghost/history", tok, nil, &empty)
	if empty.Latest != nil {
		t.Errorf("latest for unknown device = %+v, want absent", empty.Latest)
	}

	var sensors struct {
		SensorTypes []string `json:"sensorTypes"`
	}
	e.do(t, http.MethodGet, "/api/v1/devices/bench-01/sensors", tok, nil, &sensors)
	if len(sensors.SensorTypes) != 1 || sensors.SensorTypes[0] != "bme280" {
		t.Errorf("sensorTypes = %v", sensors.SensorTypes)
	}
}

func TestCommands(t *testing.T) {
	e := newTestEnv(t)
	tok := token(t, "op", auth.RoleOperator)
	session := e.connect(t, "bench-01", "sensor-hub")

	tests := []struct {
		name      string
		path      string
		body      any
		wantCode  int
		wantEvent string
	}{
		{"gpio write", "/api/v1/devices/bench-01/gpio", map[string]any{"command": "write", "pin": 17, "value": 1}, http.StatusAccepted, protocol.EventGPIOControl},
		{"i2c read", "/api/v1/devices/bench-01/i2c", map[string]any{"command": "read", "busNumber": 1, "address": "0x76", "sensorType": "bme280"}, http.StatusAccepted, protocol.EventI2CControl},
		{"system restart", "/api/v1/devices/bench-01/system", map[string]any{"command": "restart"}, http.StatusAccepted, protocol.EventSystemControl},
		{"gpio missing pin", "/api/v1/devices/bench-01/gpio", map[string]any{"command": "write", "value": 1}, http.StatusBadRequest, ""},
		{"unknown system command", "/api/v1/devices/bench-01/system", map[string]any{"command": "format"}, http.StatusBadRequest, ""},
		{"offline device", "/api/v1/devices/ghost/system", map[string]any{"command": "restart"}, http.StatusConflict, ""},
		{"malformed body", "/api/v1/devices/bench-01/gpio", "not an object", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(session.sent())
			rec := e.do(t, http.MethodPost, tt.path, tok, tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			sent := session.sent()
			if tt.wantEvent == "" {
				if len(sent) != before {
					t.Errorf("frames sent = %d, want none", len(sent)-before)
				}
				return
			}
			if len(sent) != before+1 || sent[len(sent)-1].event != tt.wantEvent {
				t.Errorf("last frame = %+v, want %s", sent, tt.wantEvent)
			}
		})
	}

	if got := e.correlator.Pending(); got != 3 {
		t.Errorf("Pending() = %d, want 3", got)
	}
}

func TestCommands_DispatchFailure(t *testing.T) {
	e := newTestEnv(t)
	session := e.connect(t, "bench-01", "sensor-hub")
	session.err = errors.New("socket closed")

	rec := e.do(t, http.MethodPost, "/api/v1/devices/bench-01/system", token(t, "op", auth.RoleOperator),
		map[string]any{"command": "update-status"}, nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestCommands_AuditedWithOperator(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t, "bench-01", "sensor-hub")
	tok := token(t, "op", auth.RoleOperator)

	e.do(t, http.MethodPost, "/api/v1/devices/bench-01/gpio", tok, map[string]any{"command": "read", "pin": 4}, nil)
	e.do(t, http.MethodPost, "/api/v1/devices/ghost/gpio", tok, map[string]any{"command": "read", "pin": 4}, nil)
	e.flushAudit(t)

	res, err := e.auditRepo.List(context.Background(), audit.Filter{Action: audit.ActionCommand})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Fatalf("command audit entries = %d, want 2", res.Total)
	}
	for _, l := range res.Logs {
		if l.UserID != "op" || l.Details["target"] != "pin:4" {
			t.Errorf("entry = %+v", l)
		}
		if l.EntityID == "ghost" && l.Success {
			t.Error("offline command audited as success")
		}
	}
}

func TestDeviceResults(t *testing.T) {
	e := newTestEnv(t)
	tok := token(t, "viewer", auth.RoleViewer)
	pin := 17

	e.correlator.OnResult(command.FromGPIO("bench-01", protocol.GPIOResult{Pin: &pin, Outcome: protocol.Outcome{Command: "write", Success: true}}))
	e.correlator.OnResult(command.FromSystem("bench-02", protocol.SystemResult{Outcome: protocol.Outcome{Command: "restart", Success: true}}))

	var one struct {
		Results []command.Result `json:"results"`
	}
	e.do(t, http.MethodGet, "/api/v1/devices/bench-01/results", tok, nil, &one)
	if len(one.Results) != 1 || one.Results[0].Target != "pin:17" {
		t.Errorf("bench-01 results = %+v", one.Results)
	}

	var all struct {
		Results []command.Result `json:"results"`
	}
	e.do(t, http.MethodGet, "/api/v1/devices/all/results", tok, nil, &all)
	if len(all.Results) != 2 {
		t.Errorf("all results = %d, want 2", len(all.Results))
	}
}

func TestLocks_ListAndGet(t *testing.T) {
	e := newTestEnv(t)
	tok := token(t, "viewer", auth.RoleViewer)

	var list struct {
		Locks []doorlock.Info `json:"locks"`
	}
	e.do(t, http.MethodGet, "/api/v1/locks", tok, nil, &list)
	if len(list.Locks) != 1 || list.Locks[0].DeviceID != "door-01" || list.Locks[0].Status != doorlock.StateLocked {
		t.Errorf("locks = %+v", list.Locks)
	}

	var info doorlock.Info
	e.do(t, http.MethodGet, "/api/v1/locks/door-01", tok, nil, &info)
	if info.Name != "Lab door" || info.AutoLockDelayMS != 60000 {
		t.Errorf("info = %+v", info)
	}

	if rec := e.do(t, http.MethodGet, "/api/v1/locks/ghost", tok, nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown lock status = %d, want 404", rec.Code)
	}
}

func TestUnlock(t *testing.T) {
	tests := []struct {
		name     string
		caller   string
		body     unlockRequest
		wantCode int
		wantOK   bool
	}{
		{"password", "op", unlockRequest{Method: doorlock.MethodPassword, UserID: "alice", Password: "123456"}, http.StatusOK, true},
		{"wrong password", "op", unlockRequest{Method: doorlock.MethodPassword, UserID: "alice", Password: "000000"}, http.StatusForbidden, false},
		{"fingerprint", "op", unlockRequest{Method: doorlock.MethodFingerprint, TemplateID: "fp-1"}, http.StatusOK, true},
		{"unknown fingerprint", "op", unlockRequest{Method: doorlock.MethodFingerprint, TemplateID: "fp-9"}, http.StatusForbidden, false},
		{"bluetooth", "op", unlockRequest{Method: doorlock.MethodBluetooth, PairedID: "bt-1"}, http.StatusOK, true},
		{"remote by authorised admin", "admin", unlockRequest{Method: doorlock.MethodRemote}, http.StatusOK, true},
		{"remote by other operator", "op", unlockRequest{Method: doorlock.MethodRemote}, http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			door := e.connect(t, "door-01", device.TypeDoorLock)
			role := auth.RoleOperator
			if tt.caller == "admin" {
				role = auth.RoleAdmin
			}

			var res doorlock.AuthResult
			rec := e.do(t, http.MethodPost, "/api/v1/locks/door-01/unlock", token(t, tt.caller, role), tt.body, &res)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if res.Success != tt.wantOK || res.Message == "" {
				t.Errorf("result = %+v", res)
			}

			c, err := e.locks.Get("door-01")
			if err != nil {
				t.Fatal(err)
			}
			wantState := doorlock.StateLocked
			if tt.wantOK {
				wantState = doorlock.StateUnlocked
				if sent := door.sent(); len(sent) != 1 || sent[0].event != protocol.EventGPIOControl {
					t.Errorf("relay frames = %+v, want one gpio-control", sent)
				}
				if e.events.Count("door-unlocked") != 1 {
					t.Errorf("door-unlocked events = %d, want 1", e.events.Count("door-unlocked"))
				}
			}
			if got := c.DoorInfo().Status; got != wantState {
				t.Errorf("state = %s, want %s", got, wantState)
			}
		})
	}
}

func TestUnlock_LockoutAndBadMethod(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t, "door-01", device.TypeDoorLock)
	tok := token(t, "op", auth.RoleOperator)
	bad := unlockRequest{Method: doorlock.MethodPassword, UserID: "alice", Password: "000000"}

	for i := range doorlock.DefaultMaxAttempts {
		var res doorlock.AuthResult
		rec := e.do(t, http.MethodPost, "/api/v1/locks/door-01/unlock", tok, bad, &res)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("attempt %d status = %d, want 403", i+1, rec.Code)
		}
		if i < doorlock.DefaultMaxAttempts-1 && res.RemainingAttempts != doorlock.DefaultMaxAttempts-1-i {
			t.Errorf("attempt %d remaining = %d", i+1, res.RemainingAttempts)
		}
	}

	good := unlockRequest{Method: doorlock.MethodPassword, UserID: "alice", Password: "123456"}
	var locked map[string]any
	if rec := e.do(t, http.MethodPost, "/api/v1/locks/door-01/unlock", tok, good, &locked); rec.Code != http.StatusLocked {
		t.Errorf("status during lockout = %d, want 423", rec.Code)
	}
	remaining, _ := locked["lockoutRemainingMs"].(float64)
	if remaining <= 0 || remaining > float64(doorlock.DefaultLockoutWindow.Milliseconds()) {
		t.Errorf("lockoutRemainingMs = %v, want within the lockout window", locked["lockoutRemainingMs"])
	}

	if rec := e.do(t, http.MethodPost, "/api/v1/locks/door-01/unlock", tok, map[string]any{"method": "magic"}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown method status = %d, want 400", rec.Code)
	}
}

func TestUnlock_DeviceOffline(t *testing.T) {
	e := newTestEnv(t)
	tok := token(t, "op", auth.RoleOperator)

	rec := e.do(t, http.MethodPost, "/api/v1/locks/door-01/unlock", tok,
		unlockRequest{Method: doorlock.MethodFingerprint, TemplateID: "fp-1"}, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	c, _ := e.locks.Get("door-01") //nolint:errcheck // lock is configured
	if got := c.DoorInfo().Status; got != doorlock.StateError {
		t.Errorf("state = %s, want ERROR", got)
	}
}

func TestLock(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t, "door-01", device.TypeDoorLock)
	tok := token(t, "op", auth.RoleOperator)

	e.do(t, http.MethodPost, "/api/v1/locks/door-01/unlock", tok, unlockRequest{Method: doorlock.MethodBluetooth, PairedID: "bt-1"}, nil)

	var info doorlock.Info
	if rec := e.do(t, http.MethodPost, "/api/v1/locks/door-01/lock", tok, nil, &info); rec.Code != http.StatusOK {
		t.Fatalf("lock status = %d", rec.Code)
	}
	if info.Status != doorlock.StateLocked {
		t.Errorf("status = %s, want LOCKED", info.Status)
	}
	if e.events.Count("door-locked") != 1 {
		t.Errorf("door-locked events = %d, want 1", e.events.Count("door-locked"))
	}
}

func TestSetAutoLockDelay(t *testing.T) {
	e := newTestEnv(t)
	tok := token(t, "admin", auth.RoleAdmin)

	var info doorlock.Info
	if rec := e.do(t, http.MethodPut, "/api/v1/locks/door-01/auto-lock-delay", tok, autoLockRequest{DelayMS: 8000}, &info); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if info.AutoLockDelayMS != 8000 {
		t.Errorf("AutoLockDelayMS = %d, want 8000", info.AutoLockDelayMS)
	}

	if rec := e.do(t, http.MethodPut, "/api/v1/locks/door-01/auto-lock-delay", tok, autoLockRequest{DelayMS: 200}, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("below floor status = %d, want 400", rec.Code)
	}
}

func TestCredentials(t *testing.T) {
	e := newTestEnv(t)
	tok := token(t, "admin", auth.RoleAdmin)
	base := "/api/v1/locks/door-01/credentials"

	adds := []struct {
		name string
		body credentialRequest
		want int
	}{
		{"password", credentialRequest{Kind: "password", Principal: "bob", Secret: "654321"}, http.StatusCreated},
		{"weak password", credentialRequest{Kind: "password", Principal: "eve", Secret: "12"}, http.StatusBadRequest},
		{"fingerprint", credentialRequest{Kind: "fingerprint", Principal: "fp-2"}, http.StatusCreated},
		{"bluetooth", credentialRequest{Kind: "bluetooth", Principal: "bt-2"}, http.StatusCreated},
		{"remote", credentialRequest{Kind: "remote", Principal: "op"}, http.StatusCreated},
		{"empty principal", credentialRequest{Kind: "fingerprint"}, http.StatusBadRequest},
		{"unknown kind", credentialRequest{Kind: "retina", Principal: "x"}, http.StatusBadRequest},
	}
	for _, tt := range adds {
		t.Run("add "+tt.name, func(t *testing.T) {
			if rec := e.do(t, http.MethodPost, base, tok, tt.body, nil); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	var creds doorlock.Credentials
	e.do(t, http.MethodGet, base, tok, nil, &creds)
	if len(creds.Principals) != 2 || len(creds.Fingerprints) != 2 || len(creds.Bluetooth) != 2 || len(creds.RemoteAdmins) != 2 {
		t.Errorf("credentials = %+v", creds)
	}

	removes := []struct {
		path string
		want int
	}{
		{base + "/password/bob", http.StatusNoContent},
		{base + "/password/bob", http.StatusNotFound},
		{base + "/fingerprint/fp-1", http.StatusNoContent},
		{base + "/bluetooth/bt-2", http.StatusNoContent},
		{base + "/remote/op", http.StatusNoContent},
		{base + "/retina/x", http.StatusBadRequest},
	}
	for _, tt := range removes {
		if rec := e.do(t, http.MethodDelete, tt.path, tok, nil, nil); rec.Code != tt.want {
			t.Errorf("DELETE %s status = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}

	e.do(t, http.MethodGet, base, tok, nil, &creds)
	if len(creds.Principals) != 1 || creds.Fingerprints[0] != "fp-2" {
		t.Errorf("credentials after removal = %+v", creds)
	}
}

func TestAuditEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t, "door-01", device.TypeDoorLock)
	op := token(t, "op", auth.RoleOperator)

	e.do(t, http.MethodPost, "/api/v1/locks/door-01/unlock", op, unlockRequest{Method: doorlock.MethodPassword, UserID: "alice", Password: "123456"}, nil)
	e.do(t, http.MethodPost, "/api/v1/locks/door-01/unlock", op, unlockRequest{Method: doorlock.MethodPassword, UserID: "mallory", Password: "123456"}, nil)
	e.flushAudit(t)

	admin := token(t, "admin", auth.RoleAdmin)
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all unlocks", "?action=unlock", 2},
		{"failed only", "?action=unlock&failed=true", 1},
		{"by principal", "?user_id=alice", 1},
		{"by lock", "?entity_type=door_lock&entity_id=door-01", 2},
		{"since future", "?since=2999-01-01T00:00:00Z", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res audit.ListResult
			if rec := e.do(t, http.MethodGet, "/api/v1/audit"+tt.query, admin, nil, &res); rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if res.Total != tt.want {
				t.Errorf("Total = %d, want %d", res.Total, tt.want)
			}
		})
	}

	if rec := e.do(t, http.MethodGet, "/api/v1/audit?since=yesterday", admin, nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad since status = %d, want 400", rec.Code)
	}
}

func TestLogsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t, "bench-01", "sensor-hub")
	e.eventLog.System(gateway.LevelWarn, "disk almost full")
	viewer := token(t, "viewer", auth.RoleViewer)

	var perDevice struct {
		Entries []gateway.LogEntry `json:"entries"`
	}
	e.do(t, http.MethodGet, "/api/v1/logs?scope=device&deviceId=bench-01", viewer, nil, &perDevice)
	if len(perDevice.Entries) != 1 {
		t.Errorf("device entries = %+v, want the connect entry", perDevice.Entries)
	}

	var system struct {
		Scope   gateway.Scope      `json:"scope"`
		Entries []gateway.LogEntry `json:"entries"`
	}
	e.do(t, http.MethodGet, "/api/v1/logs", viewer, nil, &system)
	if system.Scope != gateway.ScopeSystem || len(system.Entries) == 0 {
		t.Errorf("system log = %+v", system)
	}

	if rec := e.do(t, http.MethodGet, "/api/v1/logs?scope=kernel", viewer, nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown scope status = %d, want 400", rec.Code)
	}

	if rec := e.do(t, http.MethodDelete, "/api/v1/logs", token(t, "admin", auth.RoleAdmin), nil, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d, want 204", rec.Code)
	}
	entries, err := e.eventLog.Entries(gateway.ScopeSystem, "", 0)
	if err != nil || len(entries) != 0 {
		t.Errorf("entries after clear = %v, %v", entries, err)
	}
}
