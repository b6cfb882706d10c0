package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionSweeper closes sessions that went idle
type SessionSweeper interface {
	SweepIdle(ttl time.Duration) int
}

// CatalogReloader re-reads the catalog sources
type CatalogReloader interface {
	Reload(ctx context.Context) error
}

// MaintenanceOptions configures the background jobs
type MaintenanceOptions struct {
	SweepSchedule   string
	SessionIdleTTL  time.Duration
	RefreshSchedule string
	RefreshTimeout  time.Duration
}

// Maintenance runs the session sweep and the optional catalog refresh on cron schedules
type Maintenance struct {
	cron     *cron.Cron
	sessions SessionSweeper
	catalog  CatalogReloader
	opts     MaintenanceOptions
}

// NewMaintenance validates the schedules and registers the jobs. catalog may be nil.
func NewMaintenance(sessions SessionSweeper, catalog CatalogReloader, opts MaintenanceOptions) (*Maintenance, error) {
	if opts.SweepSchedule == "" {
		opts.SweepSchedule = "@every 1m"
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = time.Minute
	}

	m := &Maintenance{
		cron:     cron.New(),
		sessions: sessions,
		catalog:  catalog,
		opts:     opts,
	}

	if _, err := m.cron.AddFunc(opts.SweepSchedule, m.SweepSessions); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", opts.SweepSchedule, err)
	}
	if opts.RefreshSchedule != "" && catalog != nil {
		if _, err := m.cron.AddFunc(opts.RefreshSchedule, m.RefreshCatalog); err != nil {
			return nil, fmt.Errorf("invalid catalog refresh schedule %q: %w", opts.RefreshSchedule, err)
		}
	}
	return m, nil
}

// Start starts the cron scheduler
func (m *Maintenance) Start() {
	m.cron.Start()
	log.Printf("⏰ Session sweep scheduled (%s, idle ttl %v)", m.opts.SweepSchedule, m.opts.SessionIdleTTL)
	if m.opts.RefreshSchedule != "" && m.catalog != nil {
		log.Printf("⏰ Catalog refresh scheduled (%s)", m.opts.RefreshSchedule)
	}
}

// Stop stops the scheduler and waits for running jobs
func (m *Maintenance) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}

// Entries returns the number of registered jobs
func (m *Maintenance) Entries() int {
	return len(m.cron.Entries())
}

// SweepSessions closes sessions idle longer than the configured ttl
func (m *Maintenance) SweepSessions() {
	if m.opts.SessionIdleTTL <= 0 {
		return
	}
	m.sessions.SweepIdle(m.opts.SessionIdleTTL)
}

// RefreshCatalog reloads the catalog; a failed reload keeps the current snapshot
func (m *Maintenance) RefreshCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.RefreshTimeout)
	defer cancel()

	log.Println("🔄 Refreshing catalog")
	if err := m.catalog.Reload(ctx); err != nil {
		log.Printf("❌ Catalog refresh failed, keeping current catalog: %v", err)
	}
}
