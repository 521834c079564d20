package device

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// KindStatus selects the status history in History queries. Any other kind
// names a sensor type.
const KindStatus = "status"

// Default history capacities.
const (
	DefaultStatusCapacity = 500
	DefaultSensorCapacity = 1000
)

// Record is one immutable history entry: a status snapshot or a sensor reading.
type Record struct {
	DeviceID  string         `json:"deviceId"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// SensorUpdater receives the latest reading of each sensor type.
// *Registry implements it.
type SensorUpdater interface {
	SetSensor(deviceID, sensorType string, reading map[string]any, at time.Time) bool
}

// Store keeps bounded per-device histories: one status ring and one ring
// per sensor type. Storage is allocated on first write, so devices that
// never registered are accepted and unknown lookups return empty results.
//
// All public methods are thread-safe.
type Store struct {
	mu        sync.RWMutex
	statusCap int
	sensorCap int
	status    map[string]*Ring[Record]
	sensors   map[string]map[string]*Ring[Record]

	updater SensorUpdater
	now     func() time.Time
}

// NewStore creates a history store. Capacities below 1 fall back to the
// defaults. updater may be nil.
func NewStore(statusCap, sensorCap int, updater SensorUpdater) *Store {
	if statusCap < 1 {
		statusCap = DefaultStatusCapacity
	}
	if sensorCap < 1 {
		sensorCap = DefaultSensorCapacity
	}
	return &Store{
		statusCap: statusCap,
		sensorCap: sensorCap,
		status:    make(map[string]*Ring[Record]),
		sensors:   make(map[string]map[string]*Ring[Record]),
		updater:   updater,
		now:       time.Now,
	}
}

// RecordStatus appends a status snapshot, evicting the oldest on overflow.
func (s *Store) RecordStatus(deviceID string, snapshot map[string]any) Record {
	rec := Record{
		DeviceID:  deviceID,
		Kind:      KindStatus,
		Payload:   deepCopyMap(snapshot),
		Timestamp: s.now(),
	}

	s.mu.Lock()
	ring, ok := s.status[deviceID]
	if !ok {
		ring = NewRing[Record](s.statusCap)
		s.status[deviceID] = ring
	}
	ring.Push(rec)
	s.mu.Unlock()

	return rec
}

// RecordSensorReading appends a reading for sensorType, evicting the oldest
// on overflow, and updates the device's latest reading for that type.
func (s *Store) RecordSensorReading(deviceID, sensorType string, reading map[string]any) (Record, error) {
	if sensorType == "" || sensorType == KindStatus {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidSensorType, sensorType)
	}

	rec := Record{
		DeviceID:  deviceID,
		Kind:      sensorType,
		Payload:   deepCopyMap(reading),
		Timestamp: s.now(),
	}

	s.mu.Lock()
	byType, ok := s.sensors[deviceID]
	if !ok {
		byType = make(map[string]*Ring[Record])
		s.sensors[deviceID] = byType
	}
	ring, ok := byType[sensorType]
	if !ok {
		ring = NewRing[Record](s.sensorCap)
		byType[sensorType] = ring
	}
	ring.Push(rec)
	s.mu.Unlock()

	if s.updater != nil {
		s.updater.SetSensor(deviceID, sensorType, reading, rec.Timestamp)
	}
	return rec, nil
}

// History returns up to limit records of the given kind, most recent last.
// limit <= 0 returns everything retained. Unknown devices or kinds yield
// an empty, non-nil slice.
func (s *Store) History(deviceID, kind string, limit int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ring := s.ring(deviceID, kind)
	if ring == nil {
		return []Record{}
	}
	return ring.Last(limit)
}

// Latest returns the most recent record of the given kind.
func (s *Store) Latest(deviceID, kind string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ring := s.ring(deviceID, kind)
	if ring == nil {
		return Record{}, false
	}
	return ring.Newest()
}

// ring looks up a history ring. The caller holds s.mu.
func (s *Store) ring(deviceID, kind string) *Ring[Record] {
	if kind == KindStatus {
		return s.status[deviceID]
	}
	if byType := s.sensors[deviceID]; byType != nil {
		return byType[kind]
	}
	return nil
}

// SensorTypes lists the sensor types recorded for a device, sorted.
func (s *Store) SensorTypes(deviceID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.sensors[deviceID]))
	for t := range s.sensors[deviceID] {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Capacity returns the capacity applied to a kind of history.
func (s *Store) Capacity(kind string) int {
	if kind == KindStatus {
		return s.statusCap
	}
	return s.sensorCap
}
