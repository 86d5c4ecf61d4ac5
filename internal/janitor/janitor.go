package janitor

import (
	"context"
	"log"
	"time"

	"github.com/tsanders-rh/costctl/internal/store"
)

// Config holds janitor configuration
type Config struct {
	CheckInterval   time.Duration
	ReportRetention time.Duration
}

// DefaultConfig returns default janitor configuration
func DefaultConfig() *Config {
	return &Config{
		CheckInterval:   6 * time.Hour,
		ReportRetention: 90 * 24 * time.Hour,
	}
}

// Janitor purges persisted reports past their retention window. Archived
// copies in object storage are left untouched.
type Janitor struct {
	config *Config
	store  *store.Store
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJanitor creates a new janitor instance
func NewJanitor(config *Config, st *store.Store) *Janitor {
	if config == nil {
		config = DefaultConfig()
	}

	return &Janitor{
		config: config,
		store:  st,
	}
}

// Start starts the janitor loop
func (j *Janitor) Start(ctx context.Context) error {
	j.ctx, j.cancel = context.WithCancel(ctx)

	log.Printf("Janitor starting (check_interval=%s, retention=%s)",
		j.config.CheckInterval, j.config.ReportRetention)

	// Run immediately on start
	j.run()

	ticker := time.NewTicker(j.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			log.Printf("Janitor shutting down")
			return j.ctx.Err()

		case <-ticker.C:
			j.run()
		}
	}
}

// Stop stops the janitor gracefully
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
}

// run purges reports past retention
func (j *Janitor) run() {
	ctx := context.Background()

	cutoff := time.Now().UTC().Add(-j.config.ReportRetention)
	count, err := j.store.Reports.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("Error purging expired reports: %v", err)
		return
	}

	if count > 0 {
		log.Printf("Purged %d report(s) older than %s", count, cutoff.Format(time.RFC3339))
	}
}
