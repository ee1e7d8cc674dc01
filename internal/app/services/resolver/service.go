// Package resolver orchestrates the metadata read path: registry tracking,
// TTL cache, fetch-on-miss dispatch to the store adapters, and the scheduled
// refresh walk.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/technophere/applinks/internal/app/domain/appmeta"
	"github.com/technophere/applinks/internal/app/metrics"
	"github.com/technophere/applinks/internal/app/storage"
	"github.com/technophere/applinks/pkg/logger"
)

const (
	defaultTTL          = 24 * time.Hour
	defaultFetchTimeout = 10 * time.Second
	defaultWorkers      = 4
)

// Adapter fetches the metadata record for one app ID from a store. All
// upstream failure modes (network failure, empty or unparsable body, missing
// name, unknown ID) collapse to an error; callers only branch on presence.
type Adapter interface {
	FetchDetails(ctx context.Context, id string) (appmeta.Record, error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, id string) (appmeta.Record, error)

func (f AdapterFunc) FetchDetails(ctx context.Context, id string) (appmeta.Record, error) {
	return f(ctx, id)
}

// Service implements the resolution pipeline over a registry store, a cache
// store, and per-store adapters.
type Service struct {
	registry storage.RegistryStore
	cache    storage.CacheStore
	log      *logger.Logger

	mu       sync.RWMutex
	adapters map[appmeta.Store]Adapter

	ttl          time.Duration
	fetchTimeout time.Duration
	workers      int
	limiter      *rate.Limiter
	now          func() time.Time
}

// New constructs a resolution service. Adapters are attached afterwards with
// AttachAdapter.
func New(registry storage.RegistryStore, cache storage.CacheStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("resolver")
	}
	return &Service{
		registry:     registry,
		cache:        cache,
		log:          log,
		adapters:     make(map[appmeta.Store]Adapter),
		ttl:          defaultTTL,
		fetchTimeout: defaultFetchTimeout,
		workers:      defaultWorkers,
		limiter:      rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		now:          time.Now,
	}
}

// AttachAdapter assigns the adapter used for a store.
func (s *Service) AttachAdapter(store appmeta.Store, adapter Adapter) {
	s.mu.Lock()
	s.adapters[store] = adapter
	s.mu.Unlock()
}

// WithTTL overrides the cache time-to-live.
func (s *Service) WithTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// WithFetchTimeout overrides the per-fetch deadline.
func (s *Service) WithFetchTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.fetchTimeout = timeout
	}
}

// WithRefreshLimits overrides the refresh walk's worker count and the
// minimum interval between upstream requests.
func (s *Service) WithRefreshLimits(workers int, perRequest time.Duration) {
	if workers > 0 {
		s.workers = workers
	}
	if perRequest > 0 {
		s.limiter = rate.NewLimiter(rate.Every(perRequest), 1)
	}
}

func (s *Service) adapter(store appmeta.Store) (Adapter, error) {
	s.mu.RLock()
	adapter, ok := s.adapters[store]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no adapter for store %s", store)
	}
	return adapter, nil
}

// Register adds the app to the refresh registry. Re-registering is a no-op.
// On first registration with no live cache entry, one synchronous fetch fills
// the cache so the very first render is not empty.
func (s *Service) Register(ctx context.Context, store appmeta.Store, id string) error {
	if !store.Valid() || id == "" {
		return fmt.Errorf("invalid registration %s:%s", store, id)
	}

	_, created, err := s.registry.RegisterApp(ctx, appmeta.RegistryEntry{
		Store:   store,
		ID:      id,
		AddedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", appmeta.Key(store, id), err)
	}
	if !created {
		return nil
	}

	s.log.WithField("store", store).WithField("id", id).Info("app registered")

	if _, ok, err := s.cache.GetCached(ctx, store, id); err == nil && !ok {
		if err := s.FetchAndCache(ctx, store, id); err != nil {
			s.log.WithError(err).
				WithField("store", store).
				WithField("id", id).
				Warn("initial fetch failed; entry will fill on next refresh")
		}
	}
	return nil
}

// Get returns the cached record when present and unexpired. It never fetches.
func (s *Service) Get(ctx context.Context, store appmeta.Store, id string) (appmeta.Record, bool) {
	rec, ok, err := s.cache.GetCached(ctx, store, id)
	if err != nil {
		s.log.WithError(err).WithField("key", appmeta.Key(store, id)).Warn("cache read failed")
		ok = false
	}
	metrics.ObserveCacheLookup(ok)
	if !ok {
		return appmeta.Record{}, false
	}
	return rec, true
}

// FetchAndCache fetches fresh metadata through the store's adapter and
// overwrites the cache entry with a refreshed expiry. On failure any prior
// cache entry is left untouched: stale-but-present beats empty.
func (s *Service) FetchAndCache(ctx context.Context, store appmeta.Store, id string) error {
	adapter, err := s.adapter(store)
	if err != nil {
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := s.now()
	rec, err := adapter.FetchDetails(fetchCtx, id)
	metrics.ObserveFetch(string(store), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", appmeta.Key(store, id), err)
	}
	if rec.Name == "" {
		return fmt.Errorf("fetch %s: record has no name", appmeta.Key(store, id))
	}

	rec.Store = store
	rec.ID = id
	rec.LastUpdated = s.now().Format(appmeta.DateLayout)

	if err := s.cache.PutCached(ctx, rec, s.now().Add(s.ttl)); err != nil {
		return fmt.Errorf("cache %s: %w", appmeta.Key(store, id), err)
	}
	return nil
}

// Lookup returns the record for one app, serving from cache when live and
// falling back to a direct adapter fetch otherwise. It does not register the
// app; interactive lookups are side-effect-free for the registry.
func (s *Service) Lookup(ctx context.Context, store appmeta.Store, id string) (appmeta.Record, error) {
	if rec, ok := s.Get(ctx, store, id); ok {
		return rec, nil
	}

	adapter, err := s.adapter(store)
	if err != nil {
		return appmeta.Record{}, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := s.now()
	rec, err := adapter.FetchDetails(fetchCtx, id)
	metrics.ObserveFetch(string(store), time.Since(start), err)
	if err != nil {
		return appmeta.Record{}, fmt.Errorf("lookup %s: %w", appmeta.Key(store, id), err)
	}
	rec.Store = store
	rec.ID = id
	rec.LastUpdated = s.now().Format(appmeta.DateLayout)
	return rec, nil
}

// Resolve is the render-path read. It registers the key (idempotent), then
// overlays the cached dynamic fields onto the caller-supplied defaults. On a
// cache miss the defaults come back unchanged; this path never performs
// network I/O beyond the one-time initial-registration fetch.
func (s *Service) Resolve(ctx context.Context, defaults appmeta.Record) appmeta.Record {
	if defaults.ID == "" || !defaults.Store.Valid() {
		return defaults
	}

	if err := s.Register(ctx, defaults.Store, defaults.ID); err != nil {
		s.log.WithError(err).Warn("resolve registration failed")
	}

	cached, ok := s.Get(ctx, defaults.Store, defaults.ID)
	if !ok {
		return defaults
	}

	merged := defaults
	merged.Name = cached.Name
	merged.IconURL = cached.IconURL
	merged.Developer = cached.Developer
	merged.Price = cached.Price
	merged.Rating = cached.Rating
	merged.ReviewCount = cached.ReviewCount
	if cached.StoreURL != "" {
		merged.StoreURL = cached.StoreURL
	}
	if cached.LastUpdated != "" {
		merged.LastUpdated = cached.LastUpdated
	}
	return merged
}

// RefreshAll walks the registry and re-fetches every entry with bounded
// parallelism and upstream pacing. Per-entry failures are logged and
// isolated; one broken ID never blocks the rest of the walk.
func (s *Service) RefreshAll(ctx context.Context) error {
	entries, err := s.registry.ListRegistrations(ctx)
	if err != nil {
		return fmt.Errorf("list registrations: %w", err)
	}
	metrics.SetRegistrySize(len(entries))
	if len(entries) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return nil // walk cancelled; remaining entries refresh next cycle
			}
			if err := s.FetchAndCache(gctx, entry.Store, entry.ID); err != nil {
				s.log.WithError(err).
					WithField("store", entry.Store).
					WithField("id", entry.ID).
					Warn("refresh failed")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if purged, err := s.cache.PurgeExpired(ctx); err == nil && purged > 0 {
		s.log.WithField("purged", purged).Info("expired cache entries removed")
	}
	return nil
}

// Registrations lists the tracked registry entries.
func (s *Service) Registrations(ctx context.Context) ([]appmeta.RegistryEntry, error) {
	return s.registry.ListRegistrations(ctx)
}

// Unregister removes an entry from the refresh registry. Cached metadata is
// left to expire on its own.
func (s *Service) Unregister(ctx context.Context, store appmeta.Store, id string) error {
	return s.registry.DeleteRegistration(ctx, store, id)
}
