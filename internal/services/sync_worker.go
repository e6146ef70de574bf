package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/codyseavey/market-history/backend/internal/metrics"
)

const (
	// defaultPollInterval is how often a new collection pass is started.
	defaultPollInterval = 1 * time.Hour

	// defaultPageDelay throttles consecutive page requests within a pass.
	defaultPageDelay = 5 * time.Second
)

// SyncStatus is a snapshot of the worker for the status API.
type SyncStatus struct {
	Running          bool      `json:"running"`
	LastRunStart     time.Time `json:"last_run_start"`
	LastRunEnd       time.Time `json:"last_run_end"`
	NextRun          time.Time `json:"next_run"`
	LastError        string    `json:"last_error,omitempty"`
	PagesLastRun     int64     `json:"pages_last_run"`
	ListingsLastRun  int       `json:"listings_last_run"`
	PurchasesLastRun int       `json:"purchases_last_run"`
	Progress         Progress  `json:"progress"`
}

// SyncWorker periodically drives the listing manager through full
// collection passes and refreshes the purchase history afterwards. It is
// the poller side of the state machine's contract: it keeps calling Load
// until the completion signal or a fatal error, it never retries fatal
// errors itself, and it spaces page requests with the configured delay.
type SyncWorker struct {
	manager   *ListingManager
	purchases *PurchaseLoop
	interval  time.Duration
	pageDelay time.Duration
	limiter   *rate.Limiter
	trigger   chan struct{}

	mu     sync.RWMutex
	status SyncStatus
}

func NewSyncWorker(manager *ListingManager, purchases *PurchaseLoop, pollInterval, pageDelay time.Duration) *SyncWorker {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}
	return &SyncWorker{
		manager:   manager,
		purchases: purchases,
		interval:  pollInterval,
		pageDelay: pageDelay,
		limiter:   rate.NewLimiter(rate.Every(pageDelay), 1),
		trigger:   make(chan struct{}, 1),
	}
}

// Start runs the worker until the context is cancelled. The first pass
// begins immediately.
func (w *SyncWorker) Start(ctx context.Context) {
	log.Printf("Sync worker started: collecting every %v with %v between pages", w.interval, w.pageDelay)

	w.runPass(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sync worker stopping...")
			return
		case <-ticker.C:
			w.runPass(ctx)
		case <-w.trigger:
			w.runPass(ctx)
		}
	}
}

// TriggerNow requests an immediate pass. Returns false when one is
// already queued or running.
func (w *SyncWorker) TriggerNow() bool {
	w.mu.RLock()
	running := w.status.Running
	w.mu.RUnlock()
	if running {
		return false
	}
	select {
	case w.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// GetStatus returns the current worker snapshot.
func (w *SyncWorker) GetStatus() SyncStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *SyncWorker) runPass(ctx context.Context) {
	w.mu.Lock()
	if w.status.Running {
		w.mu.Unlock()
		return
	}
	w.status.Running = true
	w.status.LastRunStart = time.Now()
	w.status.LastError = ""
	w.status.PagesLastRun = 0
	w.status.ListingsLastRun = 0
	w.status.PurchasesLastRun = 0
	w.mu.Unlock()

	start := time.Now()
	err := w.collect(ctx)

	w.mu.Lock()
	w.status.Running = false
	w.status.LastRunEnd = time.Now()
	w.status.NextRun = time.Now().Add(w.interval)
	if err != nil {
		w.status.LastError = err.Error()
	}
	w.mu.Unlock()

	metrics.SyncPassDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SyncErrorsTotal.WithLabelValues(errorKind(err)).Inc()
		log.Printf("Sync worker: pass failed: %v", err)
	}
}

func (w *SyncWorker) collect(ctx context.Context) error {
	if err := w.manager.Setup(ctx); err != nil {
		return err
	}

	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}

		result, err := w.manager.Load(ctx)
		if result != nil {
			w.mu.Lock()
			w.status.PagesLastRun++
			w.status.ListingsLastRun += len(result.Records)
			w.status.Progress = result.Progress
			w.mu.Unlock()
			metrics.SyncProgressStep.Set(float64(result.Progress.Step))
			metrics.SyncProgressTotal.Set(float64(result.Progress.Total))
		}
		if err == nil {
			continue
		}
		if errors.Is(err, ErrCollectionComplete) {
			log.Println("Sync worker: listings fully loaded")
			break
		}
		return err
	}

	if w.purchases != nil {
		count, err := w.purchases.Run(ctx)
		if err != nil {
			return err
		}
		w.mu.Lock()
		w.status.PurchasesLastRun = count
		w.mu.Unlock()
	}
	return nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrSessionConflict):
		return "session_conflict"
	case errors.Is(err, ErrRepetitionGuard):
		return "repetition_guard"
	case errors.Is(err, ErrLanguageNotConfigured), errors.Is(err, ErrCurrencyNotConfigured):
		return "configuration"
	case IsFatal(err):
		return "fatal_parse"
	default:
		return "transient"
	}
}
