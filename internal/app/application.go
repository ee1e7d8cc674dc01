// Package app wires the storage, adapter, and resolver components into one
// lifecycle-managed application.
package app

import (
	"context"
	"fmt"

	"github.com/technophere/applinks/internal/app/domain/appmeta"
	appstoresvc "github.com/technophere/applinks/internal/app/services/appstore"
	googleplaysvc "github.com/technophere/applinks/internal/app/services/googleplay"
	resolversvc "github.com/technophere/applinks/internal/app/services/resolver"
	"github.com/technophere/applinks/internal/app/storage"
	"github.com/technophere/applinks/internal/app/storage/memory"
	"github.com/technophere/applinks/internal/app/system"
	"github.com/technophere/applinks/internal/config"
	"github.com/technophere/applinks/internal/httputil"
	"github.com/technophere/applinks/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Registry storage.RegistryStore
	Cache    storage.CacheStore
}

// Application ties the services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Resolver   *resolversvc.Service
	GooglePlay *googleplaysvc.Scraper
	AppStore   *appstoresvc.Lookup
}

// New builds a fully initialised application with the provided stores and
// configuration. Nil cfg uses the built-in defaults.
func New(stores Stores, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.New(logger.LoggingConfig{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
	}

	mem := memory.New()
	if stores.Registry == nil {
		stores.Registry = mem
	}
	if stores.Cache == nil {
		stores.Cache = mem
	}

	client := httputil.NewClient(httputil.ClientConfig{
		UserAgent: cfg.Upstream.UserAgent,
		Timeout:   cfg.Upstream.Timeout,
	})

	playScraper, err := googleplaysvc.NewScraper(client, cfg.Upstream.PlayBaseURL,
		cfg.Upstream.Language, cfg.Upstream.Region, log)
	if err != nil {
		return nil, fmt.Errorf("configure google play scraper: %w", err)
	}
	storeLookup, err := appstoresvc.NewLookup(client, cfg.Upstream.LookupEndpoint,
		cfg.Upstream.Country, log)
	if err != nil {
		return nil, fmt.Errorf("configure app store lookup: %w", err)
	}

	resolver := resolversvc.New(stores.Registry, stores.Cache, log)
	resolver.AttachAdapter(appmeta.StoreGooglePlay, playScraper)
	resolver.AttachAdapter(appmeta.StoreIOS, storeLookup)
	resolver.WithFetchTimeout(cfg.Upstream.Timeout)
	resolver.WithRefreshLimits(cfg.Refresh.Workers, cfg.Refresh.MinFetchInterval)

	refresher := resolversvc.NewRefresher(resolver, log)
	refresher.WithSchedule(cfg.Refresh.Schedule)

	manager := system.NewManager()
	if err := manager.Register(refresher); err != nil {
		return nil, fmt.Errorf("register %s: %w", refresher.Name(), err)
	}

	return &Application{
		manager:    manager,
		log:        log,
		Resolver:   resolver,
		GooglePlay: playScraper,
		AppStore:   storeLookup,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
