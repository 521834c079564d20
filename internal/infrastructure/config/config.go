package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the lab panel core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site          SiteConfig          `yaml:"site"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	DeviceChannel DeviceChannelConfig `yaml:"device_channel"`
	History       HistoryConfig       `yaml:"history"`
	Locks         LocksConfig         `yaml:"locks"`
	LocalSensors  LocalSensorsConfig  `yaml:"local_sensors"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
	Security      SecurityConfig      `yaml:"security"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
// The database only holds the access and command audit trail; device,
// session and lock state are never persisted.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the observer WebSocket (dashboards).
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// DeviceChannelConfig contains settings for the WebSocket endpoint that
// field devices connect to.
type DeviceChannelConfig struct {
	Path           string `yaml:"path"`
	Token          string `yaml:"token"`
	SendBuffer     int    `yaml:"send_buffer"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// HistoryConfig bounds every in-memory history kept by the core.
type HistoryConfig struct {
	StatusCapacity    int `yaml:"status_capacity"`
	SensorCapacity    int `yaml:"sensor_capacity"`
	ResultCapacity    int `yaml:"result_capacity"`
	PendingCapacity   int `yaml:"pending_capacity"`
	LogCapacity       int `yaml:"log_capacity"`
	DefaultQueryLimit int `yaml:"default_query_limit"`
}

// LocksConfig contains the door lock policy and the locks known at start.
type LocksConfig struct {
	MaxAttempts    int          `yaml:"max_attempts"`
	LockoutSeconds int          `yaml:"lockout_seconds"`
	Devices        []LockConfig `yaml:"devices"`
}

// LockConfig describes one door lock bound to a field device.
type LockConfig struct {
	DeviceID        string             `yaml:"device_id"`
	Name            string             `yaml:"name"`
	RelayPin        int                `yaml:"relay_pin"`
	AutoLockDelayMS int                `yaml:"auto_lock_delay_ms"`
	SendLockCommand bool               `yaml:"send_lock_command"`
	Credentials     []CredentialConfig `yaml:"credentials"`
	Fingerprints    []string           `yaml:"fingerprints"`
	Bluetooth       []string           `yaml:"bluetooth"`
	RemoteAdmins    []string           `yaml:"remote_admins"`
}

// CredentialConfig is one password principal. PasswordHash (Argon2id PHC)
// is preferred; Password is hashed at startup and never kept in memory.
type CredentialConfig struct {
	Principal    string `yaml:"principal"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// LocalSensorsConfig controls sampling of sensors on the panel host itself.
type LocalSensorsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DeviceID    string `yaml:"device_id"`
	Interval    int    `yaml:"interval"` // seconds
	ThermalPath string `yaml:"thermal_path"`
}

// GetInterval returns the sampling interval as a Duration.
func (l LocalSensorsConfig) GetInterval() time.Duration {
	return time.Duration(l.Interval) * time.Second
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT    JWTConfig     `yaml:"jwt"`
	Admins []AdminConfig `yaml:"admins"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// AdminConfig is an operator account allowed to use the admin API.
// Role is one of viewer, operator or admin; empty means admin.
type AdminConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
}

const (
	// DefaultRelayPin is the BCM pin driving the lock relay when none is configured.
	DefaultRelayPin = 17

	// DefaultAutoLockDelayMS is the auto-lock delay when none is configured.
	DefaultAutoLockDelayMS = 5000

	// MinAutoLockDelayMS is the smallest accepted auto-lock delay.
	MinAutoLockDelayMS = 1000

	// MinCredentialLength is the shortest accepted plaintext credential.
	MinCredentialLength = 6

	maxBCMPin = 27
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LABPANEL_SECTION_KEY
// For example: LABPANEL_DATABASE_PATH, LABPANEL_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyLockDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "lab-001",
			Name: "Lab Panel",
		},
		Database: DatabaseConfig{
			Path:        "./data/labpanel.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			TopicPrefix: "labpanel",
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "labpanel-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		DeviceChannel: DeviceChannelConfig{
			Path:           "/api/v1/device-channel",
			SendBuffer:     64,
			MaxMessageSize: 65536,
			PingInterval:   25,
			PongTimeout:    20,
		},
		History: HistoryConfig{
			StatusCapacity:    500,
			SensorCapacity:    1000,
			ResultCapacity:    1000,
			PendingCapacity:   1000,
			LogCapacity:       1000,
			DefaultQueryLimit: 100,
		},
		Locks: LocksConfig{
			MaxAttempts:    5,
			LockoutSeconds: 300,
		},
		LocalSensors: LocalSensorsConfig{
			DeviceID: "panel-host",
			Interval: 30,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LABPANEL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("LABPANEL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("LABPANEL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LABPANEL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LABPANEL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("LABPANEL_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("LABPANEL_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Device channel shared token
	if v := os.Getenv("LABPANEL_DEVICE_TOKEN"); v != "" {
		cfg.DeviceChannel.Token = v
	}

	// InfluxDB
	if v := os.Getenv("LABPANEL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (always override in production)
	if v := os.Getenv("LABPANEL_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// applyLockDefaults fills per-lock fields left empty in YAML.
func applyLockDefaults(cfg *Config) {
	for i := range cfg.Locks.Devices {
		lock := &cfg.Locks.Devices[i]
		if lock.RelayPin == 0 {
			lock.RelayPin = DefaultRelayPin
		}
		if lock.AutoLockDelayMS == 0 {
			lock.AutoLockDelayMS = DefaultAutoLockDelayMS
		}
		if lock.Name == "" {
			lock.Name = lock.DeviceID
		}
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.DeviceChannel.SendBuffer < 1 {
		errs = append(errs, "device_channel.send_buffer must be positive")
	}

	errs = append(errs, c.History.validate()...)
	errs = append(errs, c.Locks.validate()...)

	if c.LocalSensors.Enabled {
		if c.LocalSensors.DeviceID == "" {
			errs = append(errs, "local_sensors.device_id is required when enabled")
		}
		if c.LocalSensors.Interval < 1 {
			errs = append(errs, "local_sensors.interval must be positive")
		}
	}

	// A forged token grants control of physical door locks.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set LABPANEL_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	for i, admin := range c.Security.Admins {
		if admin.Username == "" {
			errs = append(errs, fmt.Sprintf("security.admins[%d].username is required", i))
		}
		if admin.Password == "" && admin.PasswordHash == "" {
			errs = append(errs, fmt.Sprintf("security.admins[%d] needs password or password_hash", i))
		}
		switch admin.Role {
		case "", "viewer", "operator", "admin":
		default:
			errs = append(errs, fmt.Sprintf("security.admins[%d].role %q is not one of viewer, operator, admin", i, admin.Role))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (h HistoryConfig) validate() []string {
	var errs []string
	checks := []struct {
		name  string
		value int
	}{
		{"history.status_capacity", h.StatusCapacity},
		{"history.sensor_capacity", h.SensorCapacity},
		{"history.result_capacity", h.ResultCapacity},
		{"history.pending_capacity", h.PendingCapacity},
		{"history.log_capacity", h.LogCapacity},
		{"history.default_query_limit", h.DefaultQueryLimit},
	}
	for _, c := range checks {
		if c.value < 1 {
			errs = append(errs, c.name+" must be positive")
		}
	}
	return errs
}

func (l LocksConfig) validate() []string {
	var errs []string

	if l.MaxAttempts < 1 {
		errs = append(errs, "locks.max_attempts must be positive")
	}
	if l.LockoutSeconds < 1 {
		errs = append(errs, "locks.lockout_seconds must be positive")
	}

	seen := make(map[string]bool, len(l.Devices))
	for i, lock := range l.Devices {
		prefix := fmt.Sprintf("locks.devices[%d]", i)
		if lock.DeviceID == "" {
			errs = append(errs, prefix+".device_id is required")
		} else if seen[lock.DeviceID] {
			errs = append(errs, prefix+".device_id is duplicated: "+lock.DeviceID)
		}
		seen[lock.DeviceID] = true

		if lock.RelayPin < 0 || lock.RelayPin > maxBCMPin {
			errs = append(errs, fmt.Sprintf("%s.relay_pin must be between 0 and %d", prefix, maxBCMPin))
		}
		if lock.AutoLockDelayMS != 0 && lock.AutoLockDelayMS < MinAutoLockDelayMS {
			errs = append(errs, fmt.Sprintf("%s.auto_lock_delay_ms must be at least %d", prefix, MinAutoLockDelayMS))
		}
		for j, cred := range lock.Credentials {
			if cred.Principal == "" {
				errs = append(errs, fmt.Sprintf("%s.credentials[%d].principal is required", prefix, j))
			}
			switch {
			case cred.PasswordHash != "":
			case len(cred.Password) >= MinCredentialLength:
			default:
				errs = append(errs, fmt.Sprintf("%s.credentials[%d] needs password_hash or a password of at least %d characters",
					prefix, j, MinCredentialLength))
			}
		}
	}

	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// LockoutDuration returns how long a principal stays locked out after
// exhausting its password attempts.
func (l LocksConfig) LockoutDuration() time.Duration {
	return time.Duration(l.LockoutSeconds) * time.Second
}

// AutoLockDelay returns the lock's auto-lock delay as a Duration.
func (l LockConfig) AutoLockDelay() time.Duration {
	return time.Duration(l.AutoLockDelayMS) * time.Millisecond
}

// AccessTokenTTLDuration returns the admin access token lifetime.
func (j JWTConfig) AccessTokenTTLDuration() time.Duration {
	return time.Duration(j.AccessTokenTTL) * time.Minute
}
