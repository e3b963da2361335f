package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
)

const sweeperLockName = "sweeper"

// Sweeper periodically re-enqueues documents whose latest version was never
// indexed, e.g. because the enqueue after a save failed.
// It runs on worker nodes.
//
// For multi-worker deployments, configure a DistributedLock so only one
// instance sweeps per cycle.
type Sweeper struct {
	documentStore driven.DocumentStore
	taskQueue     driven.TaskQueue
	lock          driven.DistributedLock
	logger        *slog.Logger

	// Internal state
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	grace     time.Duration
	batchSize int
	lockTTL   time.Duration
}

// SweeperConfig holds configuration for the sweeper.
type SweeperConfig struct {
	DocumentStore driven.DocumentStore
	TaskQueue     driven.TaskQueue
	Lock          driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger        *slog.Logger
	Interval      time.Duration // How often to sweep (default: 1m)
	Grace         time.Duration // Minimum age of an unindexed document before it is re-enqueued (default: 2m)
	BatchSize     int           // Documents per sweep (default: 100)
	LockTTL       time.Duration // TTL for the distributed lock (default: 2x interval)
}

// NewSweeper creates a new sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = time.Minute
	}
	grace := cfg.Grace
	if grace == 0 {
		grace = 2 * time.Minute
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * interval
	}

	return &Sweeper{
		documentStore: cfg.DocumentStore,
		taskQueue:     cfg.TaskQueue,
		lock:          cfg.Lock,
		logger:        logger,
		interval:      interval,
		grace:         grace,
		batchSize:     batchSize,
		lockTTL:       lockTTL,
	}
}

// Start begins the sweep loop.
// It runs until Stop is called or context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("sweeper starting", "interval", s.interval, "grace", s.grace)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("sweeper stopped")
}

// IsRunning reports whether the sweep loop is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cycle and returns how many index tasks were enqueued.
// If a distributed lock is configured and held elsewhere, the cycle is skipped.
func (s *Sweeper) Sweep(ctx context.Context) int {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, sweeperLockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire sweeper lock", "error", err)
			return 0
		}
		if !acquired {
			s.logger.Debug("sweeper lock held by another instance, skipping cycle")
			return 0
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), sweeperLockName); err != nil {
				s.logger.Warn("failed to release sweeper lock", "error", err)
			}
		}()
	}

	docs, err := s.documentStore.ListUnindexed(ctx, time.Now().Add(-s.grace), s.batchSize)
	if err != nil {
		s.logger.Error("failed to list unindexed documents", "error", err)
		return 0
	}

	enqueued := 0
	for _, doc := range docs {
		queued, err := s.taskQueue.Enqueue(ctx, domain.NewIndexDocumentTask(doc.OwnerID, doc.ID))
		if err != nil {
			s.logger.Error("failed to enqueue index task",
				"document_id", doc.ID,
				"error", err,
			)
			continue
		}
		if queued {
			enqueued++
		}
	}

	if enqueued > 0 {
		s.logger.Info("re-enqueued unindexed documents", "count", enqueued, "found", len(docs))
	}
	return enqueued
}
