// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/technophere/applinks/internal/app/domain/appmeta"
	"github.com/technophere/applinks/internal/app/storage"
)

type cacheEntry struct {
	record    appmeta.Record
	expiresAt time.Time
}

// Store keeps the registry and cache in maps guarded by one RWMutex.
type Store struct {
	mu       sync.RWMutex
	registry map[string]appmeta.RegistryEntry
	cache    map[string]cacheEntry
}

var _ storage.RegistryStore = (*Store)(nil)
var _ storage.CacheStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		registry: make(map[string]appmeta.RegistryEntry),
		cache:    make(map[string]cacheEntry),
	}
}

// RegistryStore implementation ------------------------------------------------

func (s *Store) RegisterApp(_ context.Context, entry appmeta.RegistryEntry) (appmeta.RegistryEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := appmeta.Key(entry.Store, entry.ID)
	if existing, ok := s.registry[key]; ok {
		return existing, false, nil
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	s.registry[key] = entry
	return entry, true, nil
}

func (s *Store) ListRegistrations(_ context.Context) ([]appmeta.RegistryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]appmeta.RegistryEntry, 0, len(s.registry))
	for _, entry := range s.registry {
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return appmeta.Key(result[i].Store, result[i].ID) < appmeta.Key(result[j].Store, result[j].ID)
	})
	return result, nil
}

func (s *Store) DeleteRegistration(_ context.Context, store appmeta.Store, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.registry, appmeta.Key(store, id))
	return nil
}

// CacheStore implementation ---------------------------------------------------

func (s *Store) GetCached(_ context.Context, store appmeta.Store, id string) (appmeta.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[appmeta.Key(store, id)]
	if !ok || !entry.expiresAt.After(time.Now()) {
		return appmeta.Record{}, false, nil
	}
	return entry.record, true, nil
}

func (s *Store) PutCached(_ context.Context, rec appmeta.Record, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[appmeta.Key(rec.Store, rec.ID)] = cacheEntry{record: rec, expiresAt: expiresAt}
	return nil
}

func (s *Store) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	purged := 0
	for key, entry := range s.cache {
		if !entry.expiresAt.After(now) {
			delete(s.cache, key)
			purged++
		}
	}
	return purged, nil
}
