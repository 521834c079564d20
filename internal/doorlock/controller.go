package doorlock

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/auth"
	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// State is the lock state.
type State string

// Lock states.
const (
	StateLocked   State = "LOCKED"
	StateUnlocked State = "UNLOCKED"
	StateOpen     State = "OPEN"
	StateError    State = "ERROR"
)

// Method identifies how an unlock or lock was requested.
type Method string

// Access methods.
const (
	MethodPassword    Method = "password"
	MethodFingerprint Method = "fingerprint"
	MethodBluetooth   Method = "bluetooth"
	MethodRemote      Method = "remote"
	MethodManual      Method = "manual"
	MethodAuto        Method = "auto"
)

// Access record actions.
const (
	ActionUnlock = "unlock"
	ActionLock   = "lock"
)

// Policy defaults.
const (
	DefaultAutoLockDelay = 5 * time.Second
	MinAutoLockDelay     = time.Second
	DefaultMaxAttempts   = 5
	DefaultLockoutWindow = 5 * time.Minute
	MinSecretLength      = 6
	DefaultBattery       = 100.0
)

// Commander sends GPIO commands to a device. *command.Service implements it.
type Commander interface {
	GPIO(deviceID string, c protocol.GPIOControl) error
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AccessRecord describes one lock or unlock attempt.
type AccessRecord struct {
	DeviceID  string
	Action    string
	Method    Method
	Principal string
	Success   bool
	Message   string
	Timestamp time.Time
}

// AccessRecorder receives every attempt. It is called outside the
// controller's lock and must not call back into the controller.
type AccessRecorder interface {
	RecordAccess(ctx context.Context, rec AccessRecord)
}

// AuthResult is the outcome of an unlock attempt, for the caller to show.
type AuthResult struct {
	Success           bool      `json:"success"`
	Method            Method    `json:"method"`
	Principal         string    `json:"userId,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Message           string    `json:"message"`
	RemainingAttempts int       `json:"remainingAttempts,omitempty"`

	// LockoutRemaining is mirrored in LockoutRemainingMS for clients.
	LockoutRemaining   time.Duration `json:"-"`
	LockoutRemainingMS int64         `json:"lockoutRemainingMs,omitempty"`
}

func (r *AuthResult) setLockout(d time.Duration) {
	r.LockoutRemaining = d
	r.LockoutRemainingMS = d.Milliseconds()
}

// Info is the externally visible lock state.
type Info struct {
	DeviceID        string    `json:"deviceId"`
	Name            string    `json:"name"`
	Status          State     `json:"status"`
	Battery         float64   `json:"battery"`
	LastActivity    time.Time `json:"lastActivity"`
	OpenCount       int       `json:"openCount"`
	AutoLockDelayMS int64     `json:"autoLockDelay"`
	LockedOut       bool      `json:"lockedOut"`
}

// Credentials lists the identities a lock accepts. Secrets are never exposed.
type Credentials struct {
	Principals   []string `json:"principals"`
	Fingerprints []string `json:"fingerprints"`
	Bluetooth    []string `json:"bluetooth"`
	RemoteAdmins []string `json:"remoteAdmins"`
}

// UnlockedEvent is published on door-unlocked.
type UnlockedEvent struct {
	DeviceID  string    `json:"deviceId"`
	Method    Method    `json:"method"`
	Principal string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LockedEvent is published on door-locked.
type LockedEvent struct {
	DeviceID  string    `json:"deviceId"`
	Reason    Method    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent is published on door-error.
type ErrorEvent struct {
	DeviceID  string    `json:"deviceId"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Options configures a Controller. Zero values take the defaults.
type Options struct {
	DeviceID        string
	Name            string
	RelayPin        int
	AutoLockDelay   time.Duration
	SendLockCommand bool
	MaxAttempts     int
	LockoutWindow   time.Duration
}

type emission struct {
	topic   string
	payload any
}

// scheduleFunc runs f after d and returns a function that cancels it.
type scheduleFunc func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Controller is the state machine of one lock.
//
// State changes happen under mu. Their events are published under pubMu,
// which is taken before mu is released, so observers see them in the
// order the transitions happened.
type Controller struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	opts          Options
	autoLockDelay time.Duration

	state          State
	battery        float64
	openCount      int
	lastActivity   time.Time
	failedAttempts int
	lockoutUntil   time.Time

	credentials  map[string]string // principal -> argon2id hash
	fingerprints map[string]struct{}
	bluetooth    map[string]struct{}
	remote       map[string]struct{}

	stopTimer func() bool
	timerGen  uint64

	commander  Commander
	publisher  fanout.Publisher
	recorder   AccessRecorder
	logger     Logger
	now        func() time.Time
	schedule   scheduleFunc
	hashParams auth.Params
	verify     func(secret, hash string) (bool, error)

	dummyOnce sync.Once
	dummyHash string
}

// NewController creates a lock in the LOCKED state.
//
// Returns ErrAutoLockDelayTooShort when opts.AutoLockDelay is set below
// MinAutoLockDelay.
func NewController(opts Options, commander Commander, publisher fanout.Publisher) (*Controller, error) {
	if opts.AutoLockDelay == 0 {
		opts.AutoLockDelay = DefaultAutoLockDelay
	}
	if opts.AutoLockDelay < MinAutoLockDelay {
		return nil, fmt.Errorf("%w: %s", ErrAutoLockDelayTooShort, opts.AutoLockDelay)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.LockoutWindow <= 0 {
		opts.LockoutWindow = DefaultLockoutWindow
	}
	if opts.Name == "" {
		opts.Name = opts.DeviceID
	}

	return &Controller{
		opts:          opts,
		autoLockDelay: opts.AutoLockDelay,
		state:         StateLocked,
		battery:       DefaultBattery,
		credentials:   make(map[string]string),
		fingerprints:  make(map[string]struct{}),
		bluetooth:     make(map[string]struct{}),
		remote:        make(map[string]struct{}),
		commander:     commander,
		publisher:     publisher,
		logger:        noopLogger{},
		now:           time.Now,
		schedule:      afterFunc,
		hashParams:    auth.DefaultParams,
		verify:        auth.VerifyPassword,
	}, nil
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetRecorder sets the recorder that receives every access attempt.
func (c *Controller) SetRecorder(recorder AccessRecorder) {
	c.recorder = recorder
}

// DeviceID returns the device that drives this lock.
func (c *Controller) DeviceID() string {
	return c.opts.DeviceID
}

// UnlockWithPassword checks secret against the credential of principal and
// unlocks on a match.
//
// While password entry is locked out every attempt is rejected with
// ErrAccountLocked and the failure counter is left alone. A mismatch
// returns ErrInvalidCredential; the MaxAttempts-th consecutive mismatch
// starts the lockout window and resets the counter.
//
// The hash is verified without holding the controller's lock. The lockout
// is checked again afterwards, so an attempt that was verifying when the
// lockout started is rejected too.
func (c *Controller) UnlockWithPassword(ctx context.Context, principal, secret string) (AuthResult, error) {
	c.mu.Lock()
	if res, err := c.lockedOutLocked(principal); err != nil {
		c.mu.Unlock()
		c.record(ctx, ActionUnlock, res)
		return res, err
	}
	hash, known := c.credentials[principal]
	c.mu.Unlock()

	match := c.checkSecret(principal, secret, hash, known)

	c.mu.Lock()
	if res, err := c.lockedOutLocked(principal); err != nil {
		c.mu.Unlock()
		c.record(ctx, ActionUnlock, res)
		return res, err
	}
	now := c.now()
	res := AuthResult{Method: MethodPassword, Principal: principal, Timestamp: now}

	if !match {
		c.failedAttempts++
		if c.failedAttempts >= c.opts.MaxAttempts {
			c.lockoutUntil = now.Add(c.opts.LockoutWindow)
			c.failedAttempts = 0
			res.setLockout(c.opts.LockoutWindow)
			res.Message = fmt.Sprintf("Invalid password, password entry locked for %d minute(s)", ceilMinutes(c.opts.LockoutWindow))
			c.logger.Warn("password entry locked out",
				"device_id", c.opts.DeviceID,
				"until", c.lockoutUntil,
			)
		} else {
			res.RemainingAttempts = c.opts.MaxAttempts - c.failedAttempts
			res.Message = fmt.Sprintf("Invalid password, %d attempt(s) remaining", res.RemainingAttempts)
		}
		c.mu.Unlock()

		c.record(ctx, ActionUnlock, res)
		return res, ErrInvalidCredential
	}

	c.failedAttempts = 0
	return c.finishUnlock(ctx, res, "Password accepted, door unlocked")
}

// lockedOutLocked returns ErrAccountLocked and the rejection to report when
// password entry is locked out. Caller holds c.mu.
func (c *Controller) lockedOutLocked(principal string) (AuthResult, error) {
	now := c.now()
	if !now.Before(c.lockoutUntil) {
		return AuthResult{}, nil
	}
	remaining := c.lockoutUntil.Sub(now)
	res := AuthResult{Method: MethodPassword, Principal: principal, Timestamp: now}
	res.setLockout(remaining)
	res.Message = fmt.Sprintf("Too many failed attempts, try again in %d minute(s)", ceilMinutes(remaining))
	return res, fmt.Errorf("%w: %s remaining", ErrAccountLocked, remaining.Round(time.Second))
}

// checkSecret verifies secret against hash. Unknown principals are verified
// against a throwaway hash so both cases take the same time.
func (c *Controller) checkSecret(principal, secret, hash string, known bool) bool {
	if !known {
		c.dummyOnce.Do(func() {
			h, err := auth.HashPasswordWithParams("labpanel-timing-equaliser", c.hashParams)
			if err != nil {
				c.logger.Error("preparing dummy credential", "device_id", c.opts.DeviceID, "error", err)
				return
			}
			c.dummyHash = h
		})
		if c.dummyHash != "" {
			c.verify(secret, c.dummyHash) //nolint:errcheck // timing only
		}
		return false
	}

	match, err := c.verify(secret, hash)
	if err != nil {
		c.logger.Error("credential verification failed", "device_id", c.opts.DeviceID, "principal", principal, "error", err)
		return false
	}
	return match
}

// UnlockWithFingerprint unlocks when templateID is enrolled.
func (c *Controller) UnlockWithFingerprint(ctx context.Context, templateID string) (AuthResult, error) {
	return c.unlockWithID(ctx, MethodFingerprint, templateID, c.fingerprints,
		ErrUnknownFingerprint, "Fingerprint not recognised, please retry", "Fingerprint accepted, door unlocked")
}

// UnlockWithBluetooth unlocks when pairedID is paired with the lock.
func (c *Controller) UnlockWithBluetooth(ctx context.Context, pairedID string) (AuthResult, error) {
	return c.unlockWithID(ctx, MethodBluetooth, pairedID, c.bluetooth,
		ErrUnpairedBluetooth, "Bluetooth device not paired, please retry", "Bluetooth accepted, door unlocked")
}

// UnlockRemotely unlocks on behalf of an operator listed for this lock.
func (c *Controller) UnlockRemotely(ctx context.Context, adminPrincipal string) (AuthResult, error) {
	return c.unlockWithID(ctx, MethodRemote, adminPrincipal, c.remote,
		ErrRemoteNotAuthorised, "Remote unlock not permitted for this operator", "Remote unlock successful")
}

func (c *Controller) unlockWithID(ctx context.Context, method Method, id string, set map[string]struct{}, reject error, rejectMsg, okMsg string) (AuthResult, error) {
	c.mu.Lock()
	res := AuthResult{Method: method, Principal: id, Timestamp: c.now()}

	if _, ok := set[id]; !ok || id == "" {
		res.Message = rejectMsg
		c.mu.Unlock()

		c.record(ctx, ActionUnlock, res)
		return res, reject
	}
	return c.finishUnlock(ctx, res, okMsg)
}

// finishUnlock unlocks for an authenticated attempt. Caller holds c.mu;
// it is released here.
func (c *Controller) finishUnlock(ctx context.Context, res AuthResult, okMsg string) (AuthResult, error) {
	emits, err := c.unlockLocked(res.Method, res.Principal)
	c.unlockAndPublish(emits)

	if err != nil {
		res.Message = "Unlock failed: " + err.Error()
		c.record(ctx, ActionUnlock, res)
		return res, err
	}

	res.Success = true
	res.Message = okMsg
	c.record(ctx, ActionUnlock, res)
	return res, nil
}

// unlockLocked energises the relay. Already unlocked or open doors are left
// alone. Caller holds c.mu.
func (c *Controller) unlockLocked(method Method, principal string) ([]emission, error) {
	if c.state == StateUnlocked || c.state == StateOpen {
		return nil, nil
	}

	now := c.now()
	if err := c.driveRelay(1); err != nil {
		c.state = StateError
		c.logger.Error("unlock dispatch failed", "device_id", c.opts.DeviceID, "error", err)
		return []emission{
			{fanout.TopicDoorError, ErrorEvent{DeviceID: c.opts.DeviceID, Error: err.Error(), Timestamp: now}},
			{fanout.TopicDoorStatus, c.infoLocked()},
		}, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	c.state = StateUnlocked
	c.lastActivity = now
	c.openCount++
	c.startTimerLocked()
	c.logger.Info("door unlocked", "device_id", c.opts.DeviceID, "method", method)

	return []emission{
		{fanout.TopicDoorUnlocked, UnlockedEvent{DeviceID: c.opts.DeviceID, Method: method, Principal: principal, Timestamp: now}},
		{fanout.TopicDoorStatus, c.infoLocked()},
	}, nil
}

// Lock locks the door and cancels any pending auto-lock. Locking a locked
// door does nothing.
func (c *Controller) Lock(ctx context.Context) error {
	c.mu.Lock()
	emits, changed, err := c.lockLocked(MethodManual)
	c.unlockAndPublish(emits)

	if changed || err != nil {
		c.recordLock(ctx, MethodManual, err)
	}
	return err
}

// lockLocked performs the lock transition. Caller holds c.mu.
func (c *Controller) lockLocked(reason Method) ([]emission, bool, error) {
	c.cancelTimerLocked()
	if c.state == StateLocked {
		return nil, false, nil
	}

	now := c.now()
	if c.opts.SendLockCommand {
		if err := c.driveRelay(0); err != nil {
			c.state = StateError
			c.logger.Error("lock dispatch failed", "device_id", c.opts.DeviceID, "error", err)
			return []emission{
				{fanout.TopicDoorError, ErrorEvent{DeviceID: c.opts.DeviceID, Error: err.Error(), Timestamp: now}},
				{fanout.TopicDoorStatus, c.infoLocked()},
			}, false, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
		}
	}

	c.state = StateLocked
	c.lastActivity = now
	c.logger.Info("door locked", "device_id", c.opts.DeviceID, "reason", reason)

	return []emission{
		{fanout.TopicDoorLocked, LockedEvent{DeviceID: c.opts.DeviceID, Reason: reason, Timestamp: now}},
		{fanout.TopicDoorStatus, c.infoLocked()},
	}, true, nil
}

func (c *Controller) driveRelay(value int) error {
	if c.commander == nil {
		return fmt.Errorf("no commander for %s", c.opts.DeviceID)
	}
	pin := c.opts.RelayPin
	return c.commander.GPIO(c.opts.DeviceID, protocol.GPIOControl{
		Command: "write",
		Pin:     &pin,
		Value:   &value,
	})
}

// startTimerLocked replaces any pending auto-lock. Caller holds c.mu.
func (c *Controller) startTimerLocked() {
	c.cancelTimerLocked()
	gen := c.timerGen
	c.stopTimer = c.schedule(c.autoLockDelay, func() { c.fireAutoLock(gen) })
}

// cancelTimerLocked is idempotent. Bumping the generation also disarms a
// callback that already fired and is waiting for c.mu. Caller holds c.mu.
func (c *Controller) cancelTimerLocked() {
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
	c.timerGen++
}

func (c *Controller) fireAutoLock(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.stopTimer = nil
	emits, changed, err := c.lockLocked(MethodAuto)
	c.unlockAndPublish(emits)

	if err != nil {
		c.logger.Error("auto-lock failed", "device_id", c.opts.DeviceID, "error", err)
	}
	if changed || err != nil {
		c.recordLock(context.Background(), MethodAuto, err)
	}
}

// SetAutoLockDelay changes the delay used by the next auto-lock timer.
func (c *Controller) SetAutoLockDelay(d time.Duration) error {
	if d < MinAutoLockDelay {
		return fmt.Errorf("%w: %s < %s", ErrAutoLockDelayTooShort, d, MinAutoLockDelay)
	}
	c.mu.Lock()
	c.autoLockDelay = d
	c.mu.Unlock()
	c.logger.Info("auto-lock delay changed", "device_id", c.opts.DeviceID, "delay", d)
	return nil
}

// AutoLockDelay returns the current auto-lock delay.
func (c *Controller) AutoLockDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoLockDelay
}

// AddCredential sets the password of principal, replacing any existing one.
// The secret is stored as an Argon2id hash.
func (c *Controller) AddCredential(principal, secret string) error {
	if principal == "" {
		return ErrInvalidPrincipal
	}
	if len(secret) < MinSecretLength {
		return fmt.Errorf("%w: minimum %d characters", ErrWeakCredential, MinSecretLength)
	}
	hash, err := auth.HashPasswordWithParams(secret, c.hashParams)
	if err != nil {
		return fmt.Errorf("hashing credential: %w", err)
	}
	return c.SetCredentialHash(principal, hash)
}

// SetCredentialHash installs an already hashed password for principal.
func (c *Controller) SetCredentialHash(principal, hash string) error {
	if principal == "" {
		return ErrInvalidPrincipal
	}
	if !auth.IsPasswordHash(hash) {
		return fmt.Errorf("credential for %s is not an argon2id hash", principal)
	}
	c.mu.Lock()
	c.credentials[principal] = hash
	c.mu.Unlock()
	return nil
}

// RemoveCredential deletes principal's password. It reports whether one existed.
func (c *Controller) RemoveCredential(principal string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.credentials[principal]
	delete(c.credentials, principal)
	return ok
}

// AddFingerprint enrols a fingerprint template.
func (c *Controller) AddFingerprint(templateID string) error {
	return c.addID(c.fingerprints, templateID)
}

// RemoveFingerprint removes a template. It reports whether it was enrolled.
func (c *Controller) RemoveFingerprint(templateID string) bool {
	return c.removeID(c.fingerprints, templateID)
}

// PairBluetooth pairs a Bluetooth device.
func (c *Controller) PairBluetooth(pairedID string) error {
	return c.addID(c.bluetooth, pairedID)
}

// UnpairBluetooth unpairs a Bluetooth device. It reports whether it was paired.
func (c *Controller) UnpairBluetooth(pairedID string) bool {
	return c.removeID(c.bluetooth, pairedID)
}

// AuthoriseRemote allows an operator to unlock remotely.
func (c *Controller) AuthoriseRemote(adminPrincipal string) error {
	return c.addID(c.remote, adminPrincipal)
}

// RevokeRemote withdraws remote unlock from an operator.
func (c *Controller) RevokeRemote(adminPrincipal string) bool {
	return c.removeID(c.remote, adminPrincipal)
}

func (c *Controller) addID(set map[string]struct{}, id string) error {
	if id == "" {
		return ErrInvalidPrincipal
	}
	c.mu.Lock()
	set[id] = struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *Controller) removeID(set map[string]struct{}, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := set[id]
	delete(set, id)
	return ok
}

// Credentials lists the accepted identities, each sorted.
func (c *Controller) Credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()

	principals := make([]string, 0, len(c.credentials))
	for p := range c.credentials {
		principals = append(principals, p)
	}
	sort.Strings(principals)

	return Credentials{
		Principals:   principals,
		Fingerprints: sortedKeys(c.fingerprints),
		Bluetooth:    sortedKeys(c.bluetooth),
		RemoteAdmins: sortedKeys(c.remote),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ObserveStatus applies a status report from the lock's device. battery is
// clamped to 0..100. doorOpen moves an unlocked lock to OPEN and back; it
// never unlocks or locks.
func (c *Controller) ObserveStatus(battery *float64, doorOpen *bool) {
	c.mu.Lock()
	changed := false
	if battery != nil {
		c.battery = math.Max(0, math.Min(100, *battery))
		changed = true
	}
	if doorOpen != nil {
		switch {
		case *doorOpen && c.state == StateUnlocked:
			c.state = StateOpen
			c.lastActivity = c.now()
			changed = true
		case !*doorOpen && c.state == StateOpen:
			c.state = StateUnlocked
			c.lastActivity = c.now()
			changed = true
		}
	}
	var emits []emission
	if changed {
		emits = []emission{{fanout.TopicDoorStatus, c.infoLocked()}}
	}
	c.unlockAndPublish(emits)
}

// DoorInfo returns the current lock state.
func (c *Controller) DoorInfo() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.infoLocked()
}

func (c *Controller) infoLocked() Info {
	return Info{
		DeviceID:        c.opts.DeviceID,
		Name:            c.opts.Name,
		Status:          c.state,
		Battery:         c.battery,
		LastActivity:    c.lastActivity,
		OpenCount:       c.openCount,
		AutoLockDelayMS: c.autoLockDelay.Milliseconds(),
		LockedOut:       c.now().Before(c.lockoutUntil),
	}
}

// Close cancels any pending auto-lock. The state is left as is.
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelTimerLocked()
	c.mu.Unlock()
}

// unlockAndPublish releases c.mu and publishes emits. pubMu is taken
// before c.mu is released, so emissions keep the order of the transitions
// that produced them. Caller holds c.mu.
func (c *Controller) unlockAndPublish(emits []emission) {
	if len(emits) == 0 || c.publisher == nil {
		c.mu.Unlock()
		return
	}
	c.pubMu.Lock()
	c.mu.Unlock()
	defer c.pubMu.Unlock()

	for _, e := range emits {
		c.publisher.Publish(e.topic, e.payload)
	}
}

func (c *Controller) record(ctx context.Context, action string, res AuthResult) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordAccess(ctx, AccessRecord{
		DeviceID:  c.opts.DeviceID,
		Action:    action,
		Method:    res.Method,
		Principal: res.Principal,
		Success:   res.Success,
		Message:   res.Message,
		Timestamp: res.Timestamp,
	})
}

func (c *Controller) recordLock(ctx context.Context, reason Method, err error) {
	res := AuthResult{Method: reason, Timestamp: c.now(), Success: err == nil, Message: "Door locked"}
	if err != nil {
		res.Message = "Lock failed: " + err.Error()
	}
	c.record(ctx, ActionLock, res)
}

func ceilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
