package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tejasvimys/rama-sync/internal/donation"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *Store, name string) *donation.Record {
	t.Helper()
	rec, err := s.Create(context.Background(), testInput(t, name, "100.00"))
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return rec
}

// Attempts increment exactly once per MarkSyncing and never decrease
// except through an explicit retry.
func TestMarkSyncing_IncrementsAttemptsOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := mustCreate(t, s, "Donor A")

	if err := s.MarkSyncing(ctx, rec.ID); err != nil {
		t.Fatalf("MarkSyncing() failed: %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.SyncStatus != donation.StatusSyncing {
		t.Errorf("status = %s, want syncing", got.SyncStatus)
	}
	if got.SyncAttempts != 1 {
		t.Errorf("attempts = %d, want 1", got.SyncAttempts)
	}
	if got.LastSyncAttempt == nil {
		t.Error("last sync attempt not stamped")
	}

	// A record already syncing is not eligible for another MarkSyncing.
	if err := s.MarkSyncing(ctx, rec.ID); !IsNotFound(err) {
		t.Errorf("second MarkSyncing should refuse non-eligible record, got %v", err)
	}
	got, _ = s.Get(ctx, rec.ID)
	if got.SyncAttempts != 1 {
		t.Errorf("attempts after refused transition = %d, want 1", got.SyncAttempts)
	}
}

func TestMarkSynced_SetsServerIDOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := mustCreate(t, s, "Donor A")

	if err := s.MarkSyncing(ctx, rec.ID); err != nil {
		t.Fatalf("MarkSyncing() failed: %v", err)
	}
	if err := s.MarkSynced(ctx, rec.ID, 4242, ""); err != nil {
		t.Fatalf("MarkSynced() failed: %v", err)
	}

	got, _ := s.Get(ctx, rec.ID)
	if got.SyncStatus != donation.StatusSynced {
		t.Errorf("status = %s, want synced", got.SyncStatus)
	}
	if got.ServerDonationID != 4242 {
		t.Errorf("server id = %d, want 4242", got.ServerDonationID)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty", got.ErrorMessage)
	}
}

func TestMarkSynced_SoftSuccessKeepsZeroServerID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := mustCreate(t, s, "Donor A")

	if err := s.MarkSyncing(ctx, rec.ID); err != nil {
		t.Fatalf("MarkSyncing() failed: %v", err)
	}
	if err := s.MarkSynced(ctx, rec.ID, 0, "response body not parseable"); err != nil {
		t.Fatalf("MarkSynced() failed: %v", err)
	}

	got, _ := s.Get(ctx, rec.ID)
	if got.SyncStatus != donation.StatusSynced {
		t.Errorf("status = %s, want synced", got.SyncStatus)
	}
	if got.ServerDonationID != 0 {
		t.Errorf("server id = %d, want 0 sentinel", got.ServerDonationID)
	}
	if got.ErrorMessage != "response body not parseable" {
		t.Errorf("diagnostic note = %q", got.ErrorMessage)
	}
}

// Terminal correctness: failed_permanent exactly when attempts >= 3 and
// every attempt failed.
func TestMarkFailed_TerminalAtMaxAttempts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := mustCreate(t, s, "Donor A")

	for attempt := 1; attempt <= donation.MaxSyncAttempts; attempt++ {
		if err := s.MarkSyncing(ctx, rec.ID); err != nil {
			t.Fatalf("MarkSyncing() attempt %d failed: %v", attempt, err)
		}
		if err := s.MarkFailed(ctx, rec.ID, "connection refused"); err != nil {
			t.Fatalf("MarkFailed() attempt %d failed: %v", attempt, err)
		}

		got, _ := s.Get(ctx, rec.ID)
		if got.SyncAttempts != attempt {
			t.Fatalf("attempts = %d, want %d", got.SyncAttempts, attempt)
		}
		if attempt < donation.MaxSyncAttempts {
			if got.SyncStatus != donation.StatusFailed {
				t.Errorf("attempt %d: status = %s, want failed", attempt, got.SyncStatus)
			}
		} else {
			if got.SyncStatus != donation.StatusFailedPermanent {
				t.Errorf("attempt %d: status = %s, want failed_permanent", attempt, got.SyncStatus)
			}
		}
		if got.ErrorMessage != "connection refused" {
			t.Errorf("error message = %q", got.ErrorMessage)
		}
	}

	// Terminal records are excluded from the eligible set.
	eligible, err := s.ListEligible(ctx)
	if err != nil {
		t.Fatalf("ListEligible() failed: %v", err)
	}
	if len(eligible) != 0 {
		t.Errorf("eligible = %d records, want 0", len(eligible))
	}
}

// Retry returns a terminal record to pending with attempts zeroed.
func TestResetForRetry(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := mustCreate(t, s, "Donor A")

	for i := 0; i < donation.MaxSyncAttempts; i++ {
		if err := s.MarkSyncing(ctx, rec.ID); err != nil {
			t.Fatalf("MarkSyncing() failed: %v", err)
		}
		if err := s.MarkFailed(ctx, rec.ID, "timeout"); err != nil {
			t.Fatalf("MarkFailed() failed: %v", err)
		}
	}

	if err := s.ResetForRetry(ctx, rec.ID); err != nil {
		t.Fatalf("ResetForRetry() failed: %v", err)
	}

	got, _ := s.Get(ctx, rec.ID)
	if got.SyncStatus != donation.StatusPending {
		t.Errorf("status = %s, want pending", got.SyncStatus)
	}
	if got.SyncAttempts != 0 {
		t.Errorf("attempts = %d, want 0", got.SyncAttempts)
	}
	if got.ErrorMessage != "" {
		t.Errorf("error message = %q, want empty", got.ErrorMessage)
	}
}

func TestResetForRetry_RefusesSynced(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := mustCreate(t, s, "Donor A")

	if err := s.MarkSyncing(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSynced(ctx, rec.ID, 99, ""); err != nil {
		t.Fatal(err)
	}

	if err := s.ResetForRetry(ctx, rec.ID); !IsNotFound(err) {
		t.Errorf("retry of a synced record should be refused, got %v", err)
	}
}

func TestResetAllFailed(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	failed := mustCreate(t, s, "Donor A")
	terminal := mustCreate(t, s, "Donor B")
	pending := mustCreate(t, s, "Donor C")

	s.MarkSyncing(ctx, failed.ID)
	s.MarkFailed(ctx, failed.ID, "timeout")
	for i := 0; i < donation.MaxSyncAttempts; i++ {
		s.MarkSyncing(ctx, terminal.ID)
		s.MarkFailed(ctx, terminal.ID, "timeout")
	}

	n, err := s.ResetAllFailed(ctx)
	if err != nil {
		t.Fatalf("ResetAllFailed() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("reset count = %d, want 2", n)
	}

	for _, id := range []string{failed.ID, terminal.ID, pending.ID} {
		got, _ := s.Get(ctx, id)
		if got.SyncStatus != donation.StatusPending {
			t.Errorf("record %s status = %s, want pending", id, got.SyncStatus)
		}
		if got.SyncAttempts != 0 {
			t.Errorf("record %s attempts = %d, want 0", id, got.SyncAttempts)
		}
	}
}

// A record stranded in syncing by a crash is reclaimed to failed before it
// can become eligible again - it is never resubmitted while stale.
func TestReclaimInterrupted(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := mustCreate(t, s, "Donor A")

	if err := s.MarkSyncing(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}

	// Simulated crash: record is still syncing at next startup.
	eligible, _ := s.ListEligible(ctx)
	if len(eligible) != 0 {
		t.Fatalf("stale syncing record must not be eligible, got %d", len(eligible))
	}

	n, err := s.ReclaimInterrupted(ctx)
	if err != nil {
		t.Fatalf("ReclaimInterrupted() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("reclaimed = %d, want 1", n)
	}

	got, _ := s.Get(ctx, rec.ID)
	if got.SyncStatus != donation.StatusFailed {
		t.Errorf("status = %s, want failed", got.SyncStatus)
	}
	if got.ErrorMessage != "interrupted" {
		t.Errorf("error message = %q, want interrupted", got.ErrorMessage)
	}

	eligible, _ = s.ListEligible(ctx)
	if len(eligible) != 1 {
		t.Errorf("reclaimed record should be eligible, got %d", len(eligible))
	}
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := mustCreate(t, s, "Donor A")

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Errorf("deleting absent id should not error: %v", err)
	}
	if _, err := s.Get(ctx, rec.ID); !IsNotFound(err) {
		t.Errorf("expected NotFoundError after delete, got %v", err)
	}
}

func TestDeleteSyncedOlderThan(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	synced := mustCreate(t, s, "Donor A")
	unsynced := mustCreate(t, s, "Donor B")
	s.MarkSyncing(ctx, synced.ID)
	s.MarkSynced(ctx, synced.ID, 7, "")

	// Cutoff in the future: the synced record qualifies, the pending one
	// must survive regardless of age.
	n, err := s.DeleteSyncedOlderThan(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteSyncedOlderThan() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if _, err := s.Get(ctx, unsynced.ID); err != nil {
		t.Errorf("pending record must survive purge: %v", err)
	}
}
