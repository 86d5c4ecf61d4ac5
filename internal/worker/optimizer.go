package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tsanders-rh/costctl/internal/cache"
	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/report"
	"github.com/tsanders-rh/costctl/internal/store"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// AssemblerFactory builds a report assembler for a fleet. The worker and
// the API both run cycles through this so the per-fleet AWS wiring lives
// in one place.
type AssemblerFactory func(f *fleet.Fleet) *report.Assembler

// ReportArchiver writes a report to long-term object storage
type ReportArchiver interface {
	Store(ctx context.Context, report *types.CostReport) (string, error)
}

// Optimizer runs a full optimization cycle for a fleet: assemble the
// report, persist it, refresh the cache, and archive the document. Store,
// cache, and archiver are all optional; a cycle with none of them still
// produces a complete report.
type Optimizer struct {
	registry *fleet.Registry
	assemble AssemblerFactory

	store    *store.Store
	cache    cache.Cache
	archiver ReportArchiver
	cacheTTL time.Duration
}

// NewOptimizer creates an optimizer over the fleet registry
func NewOptimizer(registry *fleet.Registry, assemble AssemblerFactory) *Optimizer {
	return &Optimizer{
		registry: registry,
		assemble: assemble,
		cacheTTL: time.Hour,
	}
}

// WithStore enables report persistence
func (o *Optimizer) WithStore(s *store.Store) *Optimizer {
	o.store = s
	return o
}

// WithCache enables latest-report caching
func (o *Optimizer) WithCache(c cache.Cache, ttl time.Duration) *Optimizer {
	o.cache = c
	if ttl > 0 {
		o.cacheTTL = ttl
	}
	return o
}

// WithArchiver enables report archival
func (o *Optimizer) WithArchiver(a ReportArchiver) *Optimizer {
	o.archiver = a
	return o
}

// RunFleet runs one optimization cycle for the named fleet. Assembly
// itself never fails for provider errors; only the surrounding
// persistence steps can return an error here, and a persistence failure
// still returns the assembled report.
func (o *Optimizer) RunFleet(ctx context.Context, name string) (*types.CostReport, error) {
	f, err := o.registry.Get(name)
	if err != nil {
		return nil, err
	}

	r := o.assemble(f).Assemble(ctx)

	var archiveKey string
	if o.archiver != nil {
		archiveKey, err = o.archiver.Store(ctx, r)
		if err != nil {
			log.Printf("Failed to archive report %s: %v", r.ID, err)
			archiveKey = ""
		}
	}

	if o.store != nil {
		if err := o.store.Reports.Create(ctx, r, archiveKey); err != nil {
			return r, fmt.Errorf("persist report %s: %w", r.ID, err)
		}
	}

	if o.cache != nil {
		if err := o.cache.SetLatestReport(ctx, r, o.cacheTTL); err != nil {
			// Cache refresh failures degrade reads, never the cycle
			log.Printf("Failed to cache report %s: %v", r.ID, err)
		}
	}

	return r, nil
}

// RunAll runs one cycle for every enabled fleet. A failing fleet does not
// stop the others; the last error is returned.
func (o *Optimizer) RunAll(ctx context.Context) error {
	var lastErr error

	for _, f := range o.registry.List() {
		r, err := o.RunFleet(ctx, f.Name)
		if err != nil {
			log.Printf("Optimization cycle failed for fleet %s: %v", f.Name, err)
			lastErr = err
			continue
		}
		log.Printf("Optimization cycle completed for fleet %s: report %s, %d recommendation(s)",
			f.Name, r.ID, len(r.Recommendations))
	}

	return lastErr
}
