package store

import (
	"context"
	"sync"
	"time"

	"github.com/use-agent/vesselscout/models"
	"github.com/use-agent/vesselscout/record"
)

// entry holds a stored record with its write timestamps.
type entry struct {
	record    models.VesselRecord
	createdAt time.Time
	updatedAt time.Time
}

// MemoryStore is a process-local Store. It is safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore creates a MemoryStore holding at most maxEntries vessels.
// When full, the least recently updated vessel is evicted. maxEntries <= 0
// means unbounded.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Upsert merges rec into the stored record; present fields of rec win.
func (m *MemoryStore) Upsert(_ context.Context, rec models.VesselRecord) error {
	mmsi, err := mmsiOf(rec)
	if err != nil {
		return err
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[mmsi]; ok {
		merged, err := record.Fill(rec, e.record)
		if err != nil {
			return err
		}
		e.record = merged
		e.updatedAt = now
		return nil
	}

	if m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.evictOldest()
	}
	m.entries[mmsi] = &entry{record: rec, createdAt: now, updatedAt: now}
	return nil
}

// Get returns a copy of the stored record.
func (m *MemoryStore) Get(_ context.Context, mmsi string) (*models.VesselRecord, error) {
	m.mu.RLock()
	e, ok := m.entries[models.TrimIdentifier(mmsi)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	rec := e.record
	return &rec, nil
}

// Len returns the number of stored vessels.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) Close(context.Context) error { return nil }

// evictOldest drops the least recently updated entry. Callers hold mu.
func (m *MemoryStore) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range m.entries {
		if oldestKey == "" || e.updatedAt.Before(oldest) {
			oldestKey, oldest = k, e.updatedAt
		}
	}
	delete(m.entries, oldestKey)
}
