package store

import (
	"context"
	"testing"

	"github.com/tejasvimys/rama-sync/internal/donation"
)

// Eligible records come back in creation order, oldest first.
func TestListEligible_CreationOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := mustCreate(t, s, "Donor One")
	second := mustCreate(t, s, "Donor Two")
	third := mustCreate(t, s, "Donor Three")

	// A failed record stays in the queue at its original position.
	s.MarkSyncing(ctx, second.ID)
	s.MarkFailed(ctx, second.ID, "timeout")

	eligible, err := s.ListEligible(ctx)
	if err != nil {
		t.Fatalf("ListEligible() failed: %v", err)
	}
	if len(eligible) != 3 {
		t.Fatalf("eligible = %d, want 3", len(eligible))
	}
	for i, want := range []string{first.ID, second.ID, third.ID} {
		if eligible[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, eligible[i].ID, want)
		}
	}
}

func TestListEligible_ExcludesTerminalAndSyncing(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	synced := mustCreate(t, s, "Donor A")
	syncing := mustCreate(t, s, "Donor B")
	pending := mustCreate(t, s, "Donor C")

	s.MarkSyncing(ctx, synced.ID)
	s.MarkSynced(ctx, synced.ID, 1, "")
	s.MarkSyncing(ctx, syncing.ID)

	eligible, err := s.ListEligible(ctx)
	if err != nil {
		t.Fatalf("ListEligible() failed: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != pending.ID {
		t.Errorf("eligible = %+v, want only the pending record", eligible)
	}
}

func TestListAll_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := mustCreate(t, s, "Donor One")
	second := mustCreate(t, s, "Donor Two")

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Error("ListAll should return newest first")
	}
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	mustCreate(t, s, "Donor A")
	mustCreate(t, s, "Donor B")
	failed := mustCreate(t, s, "Donor C")
	s.MarkSyncing(ctx, failed.ID)
	s.MarkFailed(ctx, failed.ID, "timeout")

	n, err := s.CountByStatus(ctx, donation.StatusPending, donation.StatusFailed)
	if err != nil {
		t.Fatalf("CountByStatus() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	n, err = s.CountByStatus(ctx, donation.StatusSynced)
	if err != nil {
		t.Fatalf("CountByStatus() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("synced count = %d, want 0", n)
	}
}

func TestGetByReceipt(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := mustCreate(t, s, "Donor A")

	got, err := s.GetByReceipt(ctx, rec.ReceiptNumber)
	if err != nil {
		t.Fatalf("GetByReceipt() failed: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("id = %s, want %s", got.ID, rec.ID)
	}

	if _, err := s.GetByReceipt(ctx, "OFF-0-0000"); !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestTotalAmount_Exact(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, amount := range []string{"0.10", "0.20", "100.05"} {
		if _, err := s.Create(ctx, testInput(t, "Donor", amount)); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	total, err := s.TotalAmount(ctx, donation.StatusPending)
	if err != nil {
		t.Fatalf("TotalAmount() failed: %v", err)
	}
	if total.Text('f') != "100.35" {
		t.Errorf("total = %s, want 100.35", total.Text('f'))
	}
}
