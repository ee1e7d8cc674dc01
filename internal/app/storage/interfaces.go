// Package storage defines the persistence interfaces for the metadata
// registry and cache. Implementations live in the memory and postgres
// subpackages.
package storage

import (
	"context"
	"time"

	"github.com/technophere/applinks/internal/app/domain/appmeta"
)

// RegistryStore persists the set of (store, id) pairs the service tracks for
// scheduled refresh.
type RegistryStore interface {
	// RegisterApp inserts the entry if absent and reports whether it was
	// newly created. Re-registering an existing key is a no-op.
	RegisterApp(ctx context.Context, entry appmeta.RegistryEntry) (appmeta.RegistryEntry, bool, error)
	ListRegistrations(ctx context.Context) ([]appmeta.RegistryEntry, error)
	DeleteRegistration(ctx context.Context, store appmeta.Store, id string) error
}

// CacheStore persists fetched records with an expiry. A missing or expired
// entry is a cache miss, not an error.
type CacheStore interface {
	GetCached(ctx context.Context, store appmeta.Store, id string) (appmeta.Record, bool, error)
	PutCached(ctx context.Context, rec appmeta.Record, expiresAt time.Time) error
	PurgeExpired(ctx context.Context) (int, error)
}
