// Package doorlock implements the per-lock state machine: authentication
// policy, password lockout and auto re-lock.
//
// A Controller owns one lock. Its state moves between:
//
//	LOCKED ──unlock──▶ UNLOCKED ──door opened──▶ OPEN
//	   ▲                  │  ▲                     │
//	   └──lock/auto-lock──┘  └─────door closed─────┘
//
// A failed relay dispatch moves the lock to ERROR; the next successful
// lock or unlock recovers it.
//
// Password entry counts consecutive failures. After MaxAttempts failures
// the password path is suspended for the lockout window and the counter
// resets. Fingerprint, Bluetooth and remote unlocks each check their own
// authorised set and never touch the password counter.
//
// Unlocking drives the lock's relay through a Commander (normally
// command.Service) with a gpio-control write. Every successful unlock
// (re)starts a single auto-lock timer; starting a new one replaces the old,
// and cancelling is idempotent.
//
// Thread Safety:
//
// Each Controller serialises its operations with its own mutex, so
// check-lockout-then-increment and check-state-then-dispatch are atomic.
// Events and access records are emitted after the mutex is released.
package doorlock
