package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tejasvimys/rama-sync/internal/donation"
	"github.com/tejasvimys/rama-sync/internal/store"
)

// DefaultSyncInterval is the periodic trigger interval.
const DefaultSyncInterval = 5 * time.Minute

// Connectivity is the monitor surface the orchestrator needs.
// Implemented by *netmon.Monitor (production) and test doubles.
type Connectivity interface {
	Online() bool
	Subscribe() <-chan bool
}

// Status is an observable snapshot of the sync lifecycle, safe to hand to
// UI layers. Counts are refreshed after every pass and every retry action.
type Status struct {
	Online       bool       `json:"online"`
	IsSyncing    bool       `json:"isSyncing"`
	PendingCount int        `json:"pendingCount"` // pending ∪ failed (the badge)
	FailedCount  int        `json:"failedCount"`  // failed ∪ failed_permanent
	Progress     float64    `json:"progress"`     // index/total while a pass runs
	CurrentItem  string     `json:"currentItem,omitempty"`
	LastSync     *time.Time `json:"lastSync,omitempty"`
}

// Orchestrator owns the global sync lifecycle: startup reclaim, the three
// trigger sources, the single-flight guard, and the published status.
//
// Thread-safety model:
//   - TriggerSync(), Status(), RetryDonation(), RetryAllFailed(): safe
//     from any goroutine
//   - Start(): call once; Stop(): idempotent
type Orchestrator struct {
	store    *store.Store
	proc     *Processor
	conn     Connectivity
	clock    Clock
	interval time.Duration

	// syncing is the single-flight guard. Check-and-set is atomic because
	// triggers race from three sources: timer, connectivity edge, manual.
	syncing atomic.Bool
	trigger chan struct{}

	mu     sync.RWMutex
	status Status

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithSyncInterval overrides the periodic trigger interval.
func WithSyncInterval(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.interval = d
	}
}

// WithClock overrides the wall clock (tests).
func WithClock(c Clock) OrchestratorOption {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// NewOrchestrator creates an Orchestrator. Start must be called before it
// does anything.
func NewOrchestrator(s *store.Store, proc *Processor, conn Connectivity, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:    s,
		proc:     proc,
		conn:     conn,
		clock:    SystemClock{},
		interval: DefaultSyncInterval,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start reclaims records stranded in syncing by a previous crash, loads
// the initial counts, and launches the run loop. Records reclaimed here
// become failed (error="interrupted") and re-enter the queue - a stale
// syncing record is never submitted directly.
func (o *Orchestrator) Start(ctx context.Context) error {
	reclaimed, err := o.store.ReclaimInterrupted(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator start: %w", err)
	}
	if reclaimed > 0 {
		slog.Warn("reclaimed interrupted donations", "count", reclaimed)
	}
	if err := o.refreshCounts(ctx); err != nil {
		return fmt.Errorf("orchestrator start: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	go o.run(runCtx)
	return nil
}

// Stop shuts the run loop down and waits for it. Idempotent.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		if o.cancel == nil {
			return // never started
		}
		o.cancel()
		<-o.done
	})
}

// TriggerSync requests a sync pass. Idempotent: while a pass is already
// active the call is a no-op and returns false. Refused (false, no error)
// while offline. Returns true when a new pass was scheduled.
func (o *Orchestrator) TriggerSync() bool {
	if !o.conn.Online() {
		slog.Debug("sync trigger refused: offline")
		return false
	}
	if !o.syncing.CompareAndSwap(false, true) {
		slog.Debug("sync trigger ignored: pass already active")
		return false
	}
	// Buffered size 1; the guard guarantees the slot is free.
	o.trigger <- struct{}{}
	return true
}

// Status returns the current observable snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	st := o.status
	st.Online = o.conn.Online()
	return st
}

// RetryDonation resets one non-synced record to pending (attempts zeroed,
// error cleared) and nudges a pass if online.
func (o *Orchestrator) RetryDonation(ctx context.Context, id string) error {
	if err := o.store.ResetForRetry(ctx, id); err != nil {
		return err
	}
	if err := o.refreshCounts(ctx); err != nil {
		return err
	}
	o.TriggerSync()
	return nil
}

// RetryAllFailed resets every failed and failed_permanent record to
// pending with zero attempts, then nudges a pass if online. Returns the
// number of records reset.
func (o *Orchestrator) RetryAllFailed(ctx context.Context) (int64, error) {
	n, err := o.store.ResetAllFailed(ctx)
	if err != nil {
		return 0, err
	}
	if err := o.refreshCounts(ctx); err != nil {
		return n, err
	}
	if n > 0 {
		o.TriggerSync()
	}
	return n, nil
}

// run is the orchestrator's event loop: one goroutine drains all three
// trigger sources, so passes are serialized by construction on top of the
// atomic guard.
func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.done)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	connCh := o.conn.Subscribe()

	slog.Info("sync orchestrator started", "interval", o.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("sync orchestrator stopping")
			return

		case <-ticker.C:
			// Ask the store, not the cached snapshot: records can be
			// created by other processes against the same database (the
			// add command), and the snapshot only refreshes after a pass.
			pending, err := o.store.CountByStatus(ctx,
				donation.StatusPending, donation.StatusFailed)
			if err != nil {
				slog.Error("periodic count failed", "error", err)
				continue
			}
			if pending > 0 {
				o.TriggerSync()
			}

		case online := <-connCh:
			o.mu.Lock()
			o.status.Online = online
			o.mu.Unlock()
			if online {
				slog.Info("connectivity restored, triggering sync")
				o.TriggerSync()
			}

		case <-o.trigger:
			o.runPass(ctx)
		}
	}
}

func (o *Orchestrator) runPass(ctx context.Context) {
	defer o.syncing.Store(false)

	o.setSyncing(true)
	defer o.setSyncing(false)

	_, err := o.proc.RunPass(ctx, o.publishProgress)
	if err != nil {
		slog.Error("sync pass aborted", "error", err)
	}

	now := o.clock.Now()
	o.mu.Lock()
	o.status.LastSync = &now
	o.mu.Unlock()

	if err := o.refreshCounts(ctx); err != nil {
		slog.Error("refresh counts failed", "error", err)
	}
}

func (o *Orchestrator) setSyncing(active bool) {
	o.mu.Lock()
	o.status.IsSyncing = active
	if !active {
		o.status.Progress = 0
		o.status.CurrentItem = ""
	}
	o.mu.Unlock()
}

// publishProgress is the ProgressFunc handed to the processor.
func (o *Orchestrator) publishProgress(index, total int, receiptNumber string) {
	o.mu.Lock()
	o.status.Progress = float64(index) / float64(total)
	o.status.CurrentItem = fmt.Sprintf("syncing donation %d of %d", index, total)
	o.mu.Unlock()

	slog.Debug("sync progress", "index", index, "total", total, "receipt", receiptNumber)
}

func (o *Orchestrator) refreshCounts(ctx context.Context) error {
	pending, err := o.store.CountByStatus(ctx, donation.StatusPending, donation.StatusFailed)
	if err != nil {
		return fmt.Errorf("refresh counts: %w", err)
	}
	failed, err := o.store.CountByStatus(ctx, donation.StatusFailed, donation.StatusFailedPermanent)
	if err != nil {
		return fmt.Errorf("refresh counts: %w", err)
	}

	o.mu.Lock()
	o.status.PendingCount = pending
	o.status.FailedCount = failed
	o.mu.Unlock()
	return nil
}
