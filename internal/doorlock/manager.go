package doorlock

import (
	"fmt"
	"sync"

	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
	"github.com/DaLongZhuaZi/rpi-panel/internal/infrastructure/config"
)

// Manager owns the controllers of every lock. Controllers are created from
// configuration at start and on first reference; none is ever removed.
//
// All public methods are thread-safe.
type Manager struct {
	mu    sync.RWMutex
	locks map[string]*Controller
	order []string

	defaults  Options
	commander Commander
	publisher fanout.Publisher
	recorder  AccessRecorder
	logger    Logger
}

// NewManager creates controllers for the configured locks and installs
// their credentials. Plaintext passwords are hashed here.
func NewManager(cfg config.LocksConfig, commander Commander, publisher fanout.Publisher) (*Manager, error) {
	m := &Manager{
		locks: make(map[string]*Controller),
		defaults: Options{
			RelayPin:      config.DefaultRelayPin,
			AutoLockDelay: DefaultAutoLockDelay,
			MaxAttempts:   cfg.MaxAttempts,
			LockoutWindow: cfg.LockoutDuration(),
		},
		commander: commander,
		publisher: publisher,
		logger:    noopLogger{},
	}

	for _, lc := range cfg.Devices {
		if err := m.add(cfg, lc); err != nil {
			return nil, fmt.Errorf("lock %s: %w", lc.DeviceID, err)
		}
	}
	return m, nil
}

func (m *Manager) add(cfg config.LocksConfig, lc config.LockConfig) error {
	opts := Options{
		DeviceID:        lc.DeviceID,
		Name:            lc.Name,
		RelayPin:        lc.RelayPin,
		AutoLockDelay:   lc.AutoLockDelay(),
		SendLockCommand: lc.SendLockCommand,
		MaxAttempts:     cfg.MaxAttempts,
		LockoutWindow:   cfg.LockoutDuration(),
	}
	if opts.RelayPin == 0 {
		opts.RelayPin = config.DefaultRelayPin
	}

	c, err := NewController(opts, m.commander, m.publisher)
	if err != nil {
		return err
	}

	for _, cred := range lc.Credentials {
		if cred.PasswordHash != "" {
			err = c.SetCredentialHash(cred.Principal, cred.PasswordHash)
		} else {
			err = c.AddCredential(cred.Principal, cred.Password)
		}
		if err != nil {
			return fmt.Errorf("credential %s: %w", cred.Principal, err)
		}
	}
	for _, id := range lc.Fingerprints {
		if err := c.AddFingerprint(id); err != nil {
			return err
		}
	}
	for _, id := range lc.Bluetooth {
		if err := c.PairBluetooth(id); err != nil {
			return err
		}
	}
	for _, id := range lc.RemoteAdmins {
		if err := c.AuthoriseRemote(id); err != nil {
			return err
		}
	}

	m.insert(c)
	return nil
}

func (m *Manager) insert(c *Controller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[c.DeviceID()] = c
	m.order = append(m.order, c.DeviceID())
}

// SetLogger sets the logger for the manager and every controller.
func (m *Manager) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
	for _, c := range m.locks {
		c.SetLogger(logger)
	}
}

// SetRecorder sets the access recorder for every current and future controller.
func (m *Manager) SetRecorder(recorder AccessRecorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = recorder
	for _, c := range m.locks {
		c.SetRecorder(recorder)
	}
}

// Ensure returns the controller for deviceID, creating a LOCKED one with
// default policy and no credentials if none exists.
func (m *Manager) Ensure(deviceID string) *Controller {
	m.mu.RLock()
	c, ok := m.locks[deviceID]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.locks[deviceID]; ok {
		return c
	}

	opts := m.defaults
	opts.DeviceID = deviceID
	c, err := NewController(opts, m.commander, m.publisher)
	if err != nil {
		// Defaults are always valid.
		panic(err)
	}
	c.SetLogger(m.logger)
	c.SetRecorder(m.recorder)
	m.locks[deviceID] = c
	m.order = append(m.order, deviceID)

	m.logger.Info("door lock initialised", "device_id", deviceID)
	return c
}

// Get returns the controller for deviceID.
func (m *Manager) Get(deviceID string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.locks[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockNotFound, deviceID)
	}
	return c, nil
}

// List returns the state of every lock in creation order.
func (m *Manager) List() []Info {
	m.mu.RLock()
	controllers := make([]*Controller, len(m.order))
	for i, id := range m.order {
		controllers[i] = m.locks[id]
	}
	m.mu.RUnlock()

	out := make([]Info, len(controllers))
	for i, c := range controllers {
		out[i] = c.DoorInfo()
	}
	return out
}

// ObserveStatus forwards a device status report to its lock, if any.
// It reports whether deviceID has a lock.
func (m *Manager) ObserveStatus(deviceID string, battery *float64, doorOpen *bool) bool {
	m.mu.RLock()
	c, ok := m.locks[deviceID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	c.ObserveStatus(battery, doorOpen)
	return true
}

// Close cancels every pending auto-lock.
func (m *Manager) Close() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.locks {
		c.Close()
	}
}
