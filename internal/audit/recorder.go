package audit

import (
	"context"
	"sync"

	"github.com/DaLongZhuaZi/rpi-panel/internal/command"
	"github.com/DaLongZhuaZi/rpi-panel/internal/doorlock"
)

// Entity types written by the panel.
const (
	EntityDoorLock = "door_lock"
	EntityDevice   = "device"
	EntityUser     = "user"
)

// Actions written by the panel besides the lock actions.
const (
	ActionCommand       = "command"
	ActionCommandResult = "command_result"
	ActionLogin         = "login"
)

// DefaultQueueSize is the number of entries buffered before new ones are dropped.
const DefaultQueueSize = 256

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder queues audit entries and writes them from a single goroutine.
// Writing is best-effort: when the queue is full the entry is dropped and
// a warning is logged.
type Recorder struct {
	repo   Repository
	queue  chan *AuditLog
	logger Logger

	startOnce sync.Once
	done      chan struct{}
}

// NewRecorder creates a recorder writing to repo. size below 1 falls back
// to DefaultQueueSize. Call Run to start writing.
func NewRecorder(repo Repository, size int) *Recorder {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Recorder{
		repo:   repo,
		queue:  make(chan *AuditLog, size),
		logger: noopLogger{},
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Log enqueues an entry.
func (r *Recorder) Log(entry *AuditLog) {
	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			"action", entry.Action,
			"entity_type", entry.EntityType,
		)
	}
}

// RecordAccess implements doorlock.AccessRecorder.
func (r *Recorder) RecordAccess(_ context.Context, rec doorlock.AccessRecord) {
	details := map[string]any{"method": string(rec.Method)}
	if rec.Message != "" {
		details["message"] = rec.Message
	}
	r.Log(&AuditLog{
		Action:     rec.Action,
		EntityType: EntityDoorLock,
		EntityID:   rec.DeviceID,
		UserID:     rec.Principal,
		Source:     string(rec.Method),
		Success:    rec.Success,
		Details:    details,
		CreatedAt:  rec.Timestamp,
	})
}

// RecordResult records a device command result. It has the shape of a
// command.Correlator result listener.
func (r *Recorder) RecordResult(res command.Result) {
	details := map[string]any{
		"subsystem":  string(res.Subsystem),
		"command":    res.Command,
		"correlated": res.Correlated,
	}
	if res.Target != "" {
		details["target"] = res.Target
	}
	if res.Error != "" {
		details["error"] = res.Error
	}
	r.Log(&AuditLog{
		Action:     ActionCommandResult,
		EntityType: EntityDevice,
		EntityID:   res.DeviceID,
		Source:     "device",
		Success:    res.Success,
		Details:    details,
		CreatedAt:  res.ReceivedAt,
	})
}

// Run writes queued entries until ctx is cancelled, then drains what is
// left and returns. Only the first call does anything.
func (r *Recorder) Run(ctx context.Context) {
	r.startOnce.Do(func() {
		defer close(r.done)
		for {
			select {
			case entry := <-r.queue:
				r.write(entry)
			case <-ctx.Done():
				for {
					select {
					case entry := <-r.queue:
						r.write(entry)
					default:
						return
					}
				}
			}
		}
	})
}

// Done is closed once Run has drained the queue.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

func (r *Recorder) write(entry *AuditLog) {
	// The request context is gone by now; the write must not be cut short.
	if err := r.repo.Create(context.Background(), entry); err != nil {
		r.logger.Error("audit log write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err,
		)
	}
}
