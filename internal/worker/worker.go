package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-notes/internal/core/services"
	"github.com/custodia-labs/sercha-notes/internal/metrics"
)

var errNotConfigured = errors.New("not configured")

// AutoTagSettingsProvider exposes the live auto-tag settings.
// Satisfied by *runtime.Services.
type AutoTagSettingsProvider interface {
	AutoTagSettings() domain.AutoTagSettings
}

// Worker processes tasks from the task queue.
// It indexes documents and, when enabled, follows up with auto-tagging.
type Worker struct {
	taskQueue  driven.TaskQueue
	indexer    driving.IndexingService
	autoTagger driving.AutoTagService
	settings   AutoTagSettingsProvider
	sweeper    *services.Sweeper
	logger     *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Indexer        driving.IndexingService
	AutoTagger     driving.AutoTagService
	Settings       AutoTagSettingsProvider
	Sweeper        *services.Sweeper
	Logger         *slog.Logger
	Concurrency    int // Number of concurrent task processors
	DequeueTimeout int // Seconds to wait for a task before checking again
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		indexer:        cfg.Indexer,
		autoTagger:     cfg.AutoTagger,
		settings:       cfg.Settings,
		sweeper:        cfg.Sweeper,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	if w.sweeper != nil {
		if err := w.sweeper.Start(ctx); err != nil {
			w.logger.Error("failed to start sweeper", "error", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	if w.sweeper != nil {
		w.sweeper.Stop()
	}

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			case <-w.stopCh:
			}
			continue
		}

		if task == nil {
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "owner_id", task.OwnerID)
	logger.Info("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeIndexDocument:
		err = w.handleIndexDocument(ctx, task, logger)
	case domain.TaskTypeAutoTag:
		err = w.handleAutoTag(ctx, task, logger)
	default:
		err = fmt.Errorf("unknown task type %s: %w", task.Type, domain.ErrInvalidInput)
	}

	duration := time.Since(startTime)

	if err != nil && isPermanent(err) {
		// Retrying cannot help; drop the task.
		logger.Warn("task dropped", "duration", duration, "error", err)
		metrics.TasksProcessed.WithLabelValues(string(task.Type), "dropped").Inc()
		if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
			logger.Error("failed to ack task", "ack_error", ackErr)
		}
		return
	}

	metrics.TasksProcessed.WithLabelValues(string(task.Type), metrics.Result(err)).Inc()

	if err != nil {
		logger.Error("task failed",
			"duration", duration,
			"error", err,
		)

		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)

	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

func (w *Worker) handleIndexDocument(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	docID := task.DocumentID()
	if docID == "" {
		return fmt.Errorf("document_id not found in task payload: %w", domain.ErrInvalidInput)
	}
	if w.indexer == nil {
		return fmt.Errorf("indexer: %w", errNotConfigured)
	}

	result, err := w.indexer.IndexDocument(ctx, docID, "")
	if err != nil {
		return err
	}

	logger.Info("document indexed",
		"document_id", docID,
		"version", result.Version,
		"chunks", result.Chunks,
		"embedded", result.Embedded,
	)

	if !w.autoTagEnabled() {
		return nil
	}

	queued, err := w.taskQueue.Enqueue(ctx, domain.NewAutoTagTask(task.OwnerID, docID))
	if err != nil {
		// The index itself succeeded; the next save re-triggers tagging.
		logger.Warn("failed to enqueue auto-tag task", "document_id", docID, "error", err)
		return nil
	}
	if !queued {
		logger.Debug("auto-tag task already queued", "document_id", docID)
	}
	return nil
}

func (w *Worker) handleAutoTag(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	docID := task.DocumentID()
	if docID == "" {
		return fmt.Errorf("document_id not found in task payload: %w", domain.ErrInvalidInput)
	}
	if w.autoTagger == nil {
		return fmt.Errorf("auto-tagger: %w", errNotConfigured)
	}
	if w.settings != nil && !w.settings.AutoTagSettings().Enabled {
		logger.Info("auto-tagging disabled, skipping", "document_id", docID)
		return nil
	}

	assignment, err := w.autoTagger.AutoTag(ctx, task.OwnerID, docID)
	if err != nil {
		return err
	}

	logger.Info("document auto-tagged",
		"document_id", docID,
		"tag_id", assignment.TagID,
		"score", assignment.Score,
		"fallback", assignment.Fallback,
	)
	return nil
}

func (w *Worker) autoTagEnabled() bool {
	return w.autoTagger != nil && w.settings != nil && w.settings.AutoTagSettings().Enabled
}

// isPermanent reports errors that will fail the same way on every attempt.
func isPermanent(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrUnsupportedMimeType,
		domain.ErrMalformedTree,
		domain.ErrCyclicTree,
		domain.ErrEmbeddingUnavailable,
		errNotConfigured,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
