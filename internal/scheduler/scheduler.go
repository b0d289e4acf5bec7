// Package scheduler drives the periodic probe pipeline. On each tick it
// selects records whose own check interval has elapsed and dispatches them
// to a bounded worker pool.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"linkhealth/internal/models"
	"linkhealth/internal/storage"
)

// Processor handles one due record: probe the destination and ingest the
// result. Implemented by the monitor service.
type Processor interface {
	ProcessRecord(ctx context.Context, record models.HealthRecord) error
}

// Scheduler polls for due records on a fixed cadence. The tick interval is a
// polling granularity; each record's check cadence comes from its own
// settings. The scheduler holds no record state between ticks.
type Scheduler struct {
	store       storage.Storer
	processor   Processor
	tick        time.Duration
	concurrency int
	logger      *zap.Logger
	stopChan    chan struct{}
	wg          sync.WaitGroup
	now         func() time.Time
}

// New creates a Scheduler.
func New(store storage.Storer, processor Processor, tick time.Duration, concurrency int, logger *zap.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		store:       store,
		processor:   processor,
		tick:        tick,
		concurrency: concurrency,
		logger:      logger,
		stopChan:    make(chan struct{}),
		now:         time.Now,
	}
}

// Start begins the periodic checking process.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.Duration("tick_interval", s.tick))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		// Run an initial cycle on startup
		s.RunCycle(context.Background())

		for {
			select {
			case <-ticker.C:
				s.RunCycle(context.Background())
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop gracefully shuts down the scheduler. In-flight cycle work finishes.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// RunCycle performs one scheduling pass: select due records, process each on
// the worker pool, and log a cycle summary. A failure processing one record
// never aborts the others.
func (s *Scheduler) RunCycle(ctx context.Context) {
	start := s.now()
	records, err := s.store.ListDue(ctx, start.UTC())
	if err != nil {
		s.logger.Error("failed to select due records", zap.Error(err))
		return
	}
	if len(records) == 0 {
		s.logger.Debug("no records due for checking")
		return
	}

	jobs := make(chan models.HealthRecord)
	var succeeded, errored atomic.Int64

	workers := s.concurrency
	if workers > len(records) {
		workers = len(records)
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for record := range jobs {
				if err := s.processor.ProcessRecord(ctx, record); err != nil {
					errored.Add(1)
					s.logger.Warn("failed to process record",
						zap.String("link_id", record.LinkID),
						zap.Error(err),
					)
					continue
				}
				succeeded.Add(1)
			}
		}()
	}
	for _, record := range records {
		jobs <- record
	}
	close(jobs)
	wg.Wait()

	s.logger.Info("check cycle complete",
		zap.Int("found", len(records)),
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("errored", errored.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)
}
