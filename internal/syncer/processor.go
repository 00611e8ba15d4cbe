package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tejasvimys/rama-sync/internal/donation"
	"github.com/tejasvimys/rama-sync/internal/gateway"
	"github.com/tejasvimys/rama-sync/internal/store"
)

// DefaultRecordDelay is the courtesy pause between consecutive record
// submissions within a pass.
const DefaultRecordDelay = 250 * time.Millisecond

// Submitter sends one record to the remote endpoint.
// Implemented by gateway.Client (production) and test doubles.
type Submitter interface {
	Submit(ctx context.Context, rec *donation.Record) (gateway.Result, error)
}

// ProgressFunc receives per-record progress while a pass runs: the
// 1-based ordinal of the record in flight, the pass total, and the
// record's receipt number. UI-facing telemetry, not a correctness
// mechanism.
type ProgressFunc func(index, total int, receiptNumber string)

// PassReport summarizes one sync pass.
type PassReport struct {
	Attempted   int // records for which an attempt was started
	Synced      int // clean successes with a server id
	SoftSynced  int // 2xx with unparseable response, synced without id
	Failed      int // transport failures, still retryable
	Terminal    int // transport failures that became failed_permanent
	StoreErrors int // local persistence errors (record skipped, not lost)
}

// Processor runs sync passes against a store and a submitter.
type Processor struct {
	store     *store.Store
	submitter Submitter
	delay     time.Duration
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithRecordDelay overrides the inter-record courtesy delay.
// Zero disables the delay (tests).
func WithRecordDelay(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.delay = d
	}
}

// NewProcessor creates a Processor.
func NewProcessor(s *store.Store, submitter Submitter, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:     s,
		submitter: submitter,
		delay:     DefaultRecordDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunPass processes every eligible record once, strictly sequentially, in
// creation order. The eligible set is snapshotted at the start; records
// created mid-pass wait for the next trigger.
//
// Per-record errors - transport or local - are recorded on the record and
// counted in the report; they never abort the remaining records. The
// returned error is reserved for the pass being unable to run at all
// (eligibility query failed, context cancelled).
func (p *Processor) RunPass(ctx context.Context, progress ProgressFunc) (PassReport, error) {
	var report PassReport

	eligible, err := p.store.ListEligible(ctx)
	if err != nil {
		return report, fmt.Errorf("run pass: %w", err)
	}
	if len(eligible) == 0 {
		return report, nil
	}

	slog.Info("sync pass started", "eligible", len(eligible))

	total := len(eligible)
	for i, rec := range eligible {
		if err := ctx.Err(); err != nil {
			// App shutdown mid-pass: records not yet attempted stay
			// pending; the one in flight was already persisted as
			// syncing and will be reclaimed at next startup.
			return report, fmt.Errorf("run pass: %w", err)
		}

		if progress != nil {
			progress(i+1, total, rec.ReceiptNumber)
		}

		p.processRecord(ctx, rec, &report)

		if p.delay > 0 && i < total-1 {
			select {
			case <-ctx.Done():
				return report, fmt.Errorf("run pass: %w", ctx.Err())
			case <-time.After(p.delay):
			}
		}
	}

	slog.Info("sync pass finished",
		"attempted", report.Attempted,
		"synced", report.Synced,
		"soft_synced", report.SoftSynced,
		"failed", report.Failed,
		"terminal", report.Terminal,
	)
	return report, nil
}

// processRecord drives one record through one attempt of the state
// machine. All state reaches disk through the store's named mutations.
func (p *Processor) processRecord(ctx context.Context, rec *donation.Record, report *PassReport) {
	// Persist the attempt before touching the network (crash safety).
	if err := p.store.MarkSyncing(ctx, rec.ID); err != nil {
		slog.Error("mark syncing failed, skipping record",
			"id", rec.ID, "receipt", rec.ReceiptNumber, "error", err)
		report.StoreErrors++
		return
	}
	report.Attempted++

	res, err := p.submitter.Submit(ctx, rec)
	if err != nil {
		p.recordFailure(ctx, rec, err, report)
		return
	}

	note := ""
	if res.SoftSuccess {
		note = res.Note
		report.SoftSynced++
		slog.Warn("soft success: synced without server id",
			"receipt", rec.ReceiptNumber, "note", res.Note)
	} else {
		report.Synced++
		slog.Info("donation synced",
			"receipt", rec.ReceiptNumber, "server_id", res.ServerID)
	}

	if err := p.store.MarkSynced(ctx, rec.ID, res.ServerID, note); err != nil {
		slog.Error("mark synced failed",
			"id", rec.ID, "receipt", rec.ReceiptNumber, "error", err)
		report.StoreErrors++
	}
}

func (p *Processor) recordFailure(ctx context.Context, rec *donation.Record, submitErr error, report *PassReport) {
	// rec still holds the pre-attempt counter; MarkSyncing added one.
	if rec.SyncAttempts+1 >= donation.MaxSyncAttempts {
		report.Terminal++
		slog.Error("donation permanently failed",
			"receipt", rec.ReceiptNumber, "attempts", rec.SyncAttempts+1, "error", submitErr)
	} else {
		report.Failed++
		slog.Warn("donation sync failed, will retry",
			"receipt", rec.ReceiptNumber, "attempts", rec.SyncAttempts+1, "error", submitErr)
	}

	if err := p.store.MarkFailed(ctx, rec.ID, submitErr.Error()); err != nil {
		slog.Error("mark failed failed",
			"id", rec.ID, "receipt", rec.ReceiptNumber, "error", err)
		report.StoreErrors++
	}
}
