package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/technophere/applinks/internal/app/system"
	"github.com/technophere/applinks/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// defaultSchedule refreshes every tracked entry once a day; staleness up to
// the cache TTL is an accepted property of the system.
const defaultSchedule = "@every 24h"

// Refresher runs the registry refresh walk on a cron schedule.
type Refresher struct {
	service  *Service
	log      *logger.Logger
	schedule string

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewRefresher creates a lifecycle-managed refresh scheduler.
func NewRefresher(service *Service, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("metadata-refresher")
	}
	return &Refresher{
		service:  service,
		log:      log,
		schedule: defaultSchedule,
	}
}

// WithSchedule overrides the cron expression used for the refresh walk.
func (r *Refresher) WithSchedule(spec string) {
	r.mu.Lock()
	if spec != "" {
		r.schedule = spec
	}
	r.mu.Unlock()
}

func (r *Refresher) Name() string { return "metadata-refresher" }

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() {
		if err := r.service.RefreshAll(runCtx); err != nil {
			r.log.WithError(err).Warn("scheduled refresh failed")
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule refresh job %q: %w", r.schedule, err)
	}
	c.Start()

	r.cron = c
	r.cancel = cancel
	r.running = true
	r.log.WithField("schedule", r.schedule).Info("metadata refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c := r.cron
	cancel := r.cancel
	r.cron = nil
	r.cancel = nil
	r.running = false
	r.mu.Unlock()

	cancel()
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("metadata refresher stopped")
	return nil
}
