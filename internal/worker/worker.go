package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
)

// Config holds worker configuration
type Config struct {
	WorkerID      string
	CycleInterval time.Duration
	CycleTimeout  time.Duration
	RunOnStart    bool
}

// DefaultConfig returns default worker configuration
func DefaultConfig() *Config {
	hostname, _ := os.Hostname()
	return &Config{
		WorkerID:      fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8]),
		CycleInterval: time.Hour,
		CycleTimeout:  10 * time.Minute,
		RunOnStart:    true,
	}
}

// Worker runs optimization cycles on a fixed schedule
type Worker struct {
	config    *Config
	optimizer *Optimizer
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewWorker creates a new worker instance
func NewWorker(config *Config, optimizer *Optimizer) *Worker {
	if config == nil {
		config = DefaultConfig()
	}

	return &Worker{
		config:    config,
		optimizer: optimizer,
	}
}

// Start starts the worker loop
func (w *Worker) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	log.Printf("Worker %s starting (interval=%s)", w.config.WorkerID, w.config.CycleInterval)

	if w.config.RunOnStart {
		w.cycle()
	}

	ticker := time.NewTicker(w.config.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			log.Printf("Worker %s shutting down", w.config.WorkerID)
			return w.ctx.Err()

		case <-ticker.C:
			w.cycle()
		}
	}
}

// Stop stops the worker gracefully
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// cycle runs one optimization pass across all enabled fleets
func (w *Worker) cycle() {
	ctx, cancel := context.WithTimeout(w.ctx, w.config.CycleTimeout)
	defer cancel()

	if err := w.optimizer.RunAll(ctx); err != nil {
		log.Printf("Worker %s cycle finished with errors: %v", w.config.WorkerID, err)
	}
}
