package command

import (
	"container/list"
	"slices"
	"sync"
	"time"

	"github.com/DaLongZhuaZi/rpi-panel/internal/device"
	"github.com/DaLongZhuaZi/rpi-panel/internal/fanout"
	"github.com/DaLongZhuaZi/rpi-panel/internal/protocol"
)

// Default correlator bounds.
const (
	DefaultPendingCapacity = 1000
	DefaultResultCapacity  = 1000
)

// Key is the correlation key of a command and its result.
type Key struct {
	DeviceID  string             `json:"deviceId"`
	Subsystem protocol.Subsystem `json:"subsystem"`
	Target    string             `json:"target,omitempty"`
	Command   string             `json:"command"`
}

// Result is a command outcome reported by a device, tagged with its
// correlation key.
type Result struct {
	Key

	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`

	Pin        *int   `json:"pin,omitempty"`
	BusNumber  *int   `json:"busNumber,omitempty"`
	Address    string `json:"address,omitempty"`
	DeviceName string `json:"deviceName,omitempty"`

	ReceivedAt time.Time  `json:"timestamp"`
	IssuedAt   *time.Time `json:"issuedAt,omitempty"`
	Correlated bool       `json:"correlated"`
}

type pendingEntry struct {
	key      Key
	issuedAt time.Time
}

// Correlator matches results to recently issued commands.
//
// Issued commands are remembered in a FIFO table bounded by capacity; the
// oldest entry is forgotten when the table is full. Entries never expire
// by time. A result whose key is not in the table is a correlation miss:
// it is still recorded and published, only logged as unmatched.
//
// All public methods are thread-safe.
type Correlator struct {
	mu        sync.Mutex
	pending   map[Key]*list.Element
	order     *list.List
	capacity  int
	results   *device.Ring[Result]
	listeners []func(Result)

	publisher fanout.Publisher
	logger    Logger
	now       func() time.Time
}

// NewCorrelator creates a correlator. Capacities below 1 fall back to the
// defaults. publisher may be nil.
func NewCorrelator(pendingCap, resultCap int, publisher fanout.Publisher) *Correlator {
	if pendingCap < 1 {
		pendingCap = DefaultPendingCapacity
	}
	if resultCap < 1 {
		resultCap = DefaultResultCapacity
	}
	return &Correlator{
		pending:   make(map[Key]*list.Element),
		order:     list.New(),
		capacity:  pendingCap,
		results:   device.NewRing[Result](resultCap),
		publisher: publisher,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the correlator.
func (c *Correlator) SetLogger(logger Logger) {
	c.logger = logger
}

// OnResultListener registers fn to receive every result after it has been
// recorded. Listeners run on the reporting goroutine.
func (c *Correlator) OnResultListener(fn func(Result)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Expect notes that a command with key was issued now. Issuing the same
// key again refreshes its issue time.
func (c *Correlator) Expect(key Key) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.pending[key]; ok {
		el.Value.(*pendingEntry).issuedAt = now
		c.order.MoveToBack(el)
		return
	}

	c.pending[key] = c.order.PushBack(&pendingEntry{key: key, issuedAt: now})
	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.pending, oldest.Value.(*pendingEntry).key)
	}
}

// Forget drops the pending entry for key, if any. It undoes Expect for a
// command that could not be delivered.
func (c *Correlator) Forget(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.pending[key]; ok {
		c.order.Remove(el)
		delete(c.pending, key)
	}
}

// OnResult correlates r, records it and republishes it.
// ReceivedAt is stamped when zero. The recorded result is returned.
func (c *Correlator) OnResult(r Result) Result {
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = c.now()
	}

	c.mu.Lock()
	if el, ok := c.pending[r.Key]; ok {
		issued := el.Value.(*pendingEntry).issuedAt
		r.IssuedAt = &issued
		r.Correlated = true
		c.order.Remove(el)
		delete(c.pending, r.Key)
	}
	c.results.Push(r)
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	if !r.Correlated {
		c.logger.Debug("correlation miss",
			"device_id", r.DeviceID,
			"subsystem", r.Subsystem,
			"target", r.Target,
			"command", r.Command,
		)
	}

	for _, fn := range listeners {
		fn(r)
	}
	if c.publisher != nil {
		c.publisher.Publish(TopicFor(r.Subsystem), r)
	}
	return r
}

// Results returns up to limit recorded results, most recent last.
// An empty deviceID selects every device; limit <= 0 returns all.
func (c *Correlator) Results(deviceID string, limit int) []Result {
	c.mu.Lock()
	all := c.results.Last(0)
	c.mu.Unlock()

	if deviceID != "" {
		filtered := all[:0]
		for _, r := range all {
			if r.DeviceID == deviceID {
				filtered = append(filtered, r)
			}
		}
		all = filtered
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}

// Pending returns the number of remembered commands awaiting a result.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// TopicFor returns the observer topic results of a subsystem are
// published under.
func TopicFor(s protocol.Subsystem) string {
	switch s {
	case protocol.SubsystemGPIO:
		return fanout.TopicGPIOOperationResult
	case protocol.SubsystemI2C:
		return fanout.TopicI2COperationResult
	default:
		return fanout.TopicSystemOperationResult
	}
}

// FromGPIO converts a decoded gpio-result reported by deviceID.
func FromGPIO(deviceID string, m protocol.GPIOResult) Result {
	return Result{
		Key: Key{
			DeviceID:  deviceID,
			Subsystem: protocol.SubsystemGPIO,
			Target:    m.Target(),
			Command:   m.Command,
		},
		Success: m.Success,
		Result:  m.Result,
		Error:   m.Error,
		Pin:     m.Pin,
	}
}

// FromI2C converts a decoded i2c-result reported by deviceID.
func FromI2C(deviceID string, m protocol.I2CResult) Result {
	bus := m.BusNumber
	r := Result{
		Key: Key{
			DeviceID:  deviceID,
			Subsystem: protocol.SubsystemI2C,
			Target:    m.Target(),
			Command:   m.Command,
		},
		Success:   m.Success,
		Result:    m.Result,
		Error:     m.Error,
		BusNumber: &bus,
	}
	if m.Address != nil {
		r.Address = m.Address.String()
		r.DeviceName = m.Address.DeviceName()
	}
	return r
}

// FromSystem converts a decoded system-result reported by deviceID.
func FromSystem(deviceID string, m protocol.SystemResult) Result {
	return Result{
		Key: Key{
			DeviceID:  deviceID,
			Subsystem: protocol.SubsystemSystem,
			Command:   m.Command,
		},
		Success: m.Success,
		Result:  m.Result,
		Error:   m.Error,
	}
}
