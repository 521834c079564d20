// Package device tracks the field devices attached to the lab panel.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                        device package                         │
//	│                                                               │
//	│  ┌──────────────────┐   ┌──────────────────┐   ┌───────────┐  │
//	│  │     Registry     │   │      Store       │   │  Poller   │  │
//	│  │  (registry.go)   │◀──│    (store.go)    │◀──│(sensor.go)│  │
//	│  │                  │   │                  │   │           │  │
//	│  │ • device records │   │ • status ring    │   │ • local   │  │
//	│  │ • session index  │   │ • sensor rings   │   │   readers │  │
//	│  │ • generations    │   │ • lazy alloc     │   │           │  │
//	│  └──────────────────┘   └──────────────────┘   └───────────┘  │
//	└──────────────────────────────────────────────────────────────┘
//
// The Registry is the single source of truth for which session currently
// represents a device. Senders must resolve the session through it at send
// time. Each registration bumps a generation counter so a close of a
// superseded session never clobbers a newer binding.
//
// All state is volatile and lives for the process lifetime.
//
// # Thread Safety
//
// Registry and Store each guard their maps with their own lock and publish
// events only after releasing it.
package device
