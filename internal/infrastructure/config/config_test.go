package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validJWTSecret is a secret that meets the 32-character minimum requirement.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "test-lab"
database:
  path: "/tmp/test.db"
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  port: 3000
locks:
  devices:
    - device_id: "door-01"
      credentials:
        - principal: "admin"
          password: "123456"
      fingerprints: ["fp-1"]
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-lab" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-lab")
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	if len(cfg.Locks.Devices) != 1 {
		t.Fatalf("len(Locks.Devices) = %d, want 1", len(cfg.Locks.Devices))
	}

	lock := cfg.Locks.Devices[0]
	if lock.RelayPin != DefaultRelayPin {
		t.Errorf("RelayPin = %d, want default %d", lock.RelayPin, DefaultRelayPin)
	}
	if lock.AutoLockDelay() != 5*time.Second {
		t.Errorf("AutoLockDelay() = %v, want 5s", lock.AutoLockDelay())
	}
	if lock.Name != "door-01" {
		t.Errorf("Name = %q, want device id fallback", lock.Name)
	}
	if cfg.Locks.LockoutDuration() != 5*time.Minute {
		t.Errorf("LockoutDuration() = %v, want 5m", cfg.Locks.LockoutDuration())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: ""
database:
  path: "/tmp/test.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWT.Secret = validJWTSecret
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "missing JWT secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "" },
			wantErr: "security.jwt.secret",
		},
		{
			name:    "JWT secret too short",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: "at least 32",
		},
		{
			name:    "zero status capacity",
			mutate:  func(c *Config) { c.History.StatusCapacity = 0 },
			wantErr: "history.status_capacity",
		},
		{
			name: "auto-lock delay below floor",
			mutate: func(c *Config) {
				c.Locks.Devices = []LockConfig{{DeviceID: "door-01", AutoLockDelayMS: 500}}
			},
			wantErr: "auto_lock_delay_ms",
		},
		{
			name: "duplicate lock device",
			mutate: func(c *Config) {
				c.Locks.Devices = []LockConfig{{DeviceID: "door-01"}, {DeviceID: "door-01"}}
			},
			wantErr: "duplicated",
		},
		{
			name: "short plaintext credential",
			mutate: func(c *Config) {
				c.Locks.Devices = []LockConfig{{
					DeviceID:    "door-01",
					Credentials: []CredentialConfig{{Principal: "user1", Password: "123"}},
				}}
			},
			wantErr: "credentials[0]",
		},
		{
			name: "admin with unknown role",
			mutate: func(c *Config) {
				c.Security.Admins = []AdminConfig{{Username: "ops", Password: "secret-pass", Role: "owner"}}
			},
			wantErr: "security.admins[0].role",
		},
		{
			name: "admin without password",
			mutate: func(c *Config) {
				c.Security.Admins = []AdminConfig{{Username: "ops"}}
			},
			wantErr: "security.admins[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("LABPANEL_DATABASE_PATH", "/custom/path.db")
	t.Setenv("LABPANEL_MQTT_HOST", "mqtt.example.com")
	t.Setenv("LABPANEL_MQTT_USERNAME", "testuser")
	t.Setenv("LABPANEL_MQTT_PASSWORD", "testpass")
	t.Setenv("LABPANEL_API_HOST", "192.168.1.1")
	t.Setenv("LABPANEL_API_PORT", "8088")
	t.Setenv("LABPANEL_DEVICE_TOKEN", "device-token")
	t.Setenv("LABPANEL_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("LABPANEL_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"DeviceChannel.Token", cfg.DeviceChannel.Token, "device-token"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Security.JWT.Secret", cfg.Security.JWT.Secret, "jwt-secret"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if cfg.API.Port != 8088 {
		t.Errorf("API.Port = %d, want 8088", cfg.API.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("defaultConfig should have non-empty Site.ID")
	}
	if cfg.MQTT.Enabled {
		t.Error("defaultConfig should leave MQTT disabled")
	}
	if cfg.History.StatusCapacity != 500 {
		t.Errorf("History.StatusCapacity = %d, want 500", cfg.History.StatusCapacity)
	}
	if cfg.History.SensorCapacity != 1000 {
		t.Errorf("History.SensorCapacity = %d, want 1000", cfg.History.SensorCapacity)
	}
	if cfg.Locks.MaxAttempts != 5 {
		t.Errorf("Locks.MaxAttempts = %d, want 5", cfg.Locks.MaxAttempts)
	}
	if cfg.API.Port != 3000 {
		t.Errorf("defaultConfig API.Port = %d, want 3000", cfg.API.Port)
	}
}
