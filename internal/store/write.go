package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tejasvimys/rama-sync/internal/donation"
)

// Create validates the input, assigns identity and a receipt number, and
// persists a new record with sync_status=pending and zero attempts.
//
// Validation errors (donation.ValidationError) surface synchronously and
// nothing is written. The returned record is the persisted canonical copy.
func (s *Store) Create(ctx context.Context, in donation.Input) (*donation.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.Normalize()

	now := time.Now().UTC()
	rec := &donation.Record{
		ID:               donation.NewID(),
		DonorName:        in.DonorName,
		OrganizationName: in.OrganizationName,
		IsOrganization:   in.IsOrganization,
		DonorEmail:       in.DonorEmail,
		DonorPhone:       in.DonorPhone,
		Address1:         in.Address1,
		Address2:         in.Address2,
		City:             in.City,
		State:            in.State,
		Country:          in.Country,
		PostalCode:       in.PostalCode,
		Amount:           in.Amount,
		DonationType:     in.DonationType,
		PaymentMethod:    in.PaymentMethod,
		PaymentReference: in.PaymentReference,
		Notes:            in.Notes,
		CollectorEmail:   in.CollectorEmail,
		SyncStatus:       donation.StatusPending,
		CreatedAt:        now,
	}

	// The random receipt suffix can collide under the UNIQUE constraint;
	// regenerate and retry a couple of times before giving up.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		rec.ReceiptNumber = donation.GenerateReceiptNumber(now)
		err = s.insert(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !strings.Contains(err.Error(), "donations.receipt_number") {
			break
		}
	}
	return nil, fmt.Errorf("create donation: %w", err)
}

func (s *Store) insert(ctx context.Context, rec *donation.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO donations
		(id, receipt_number, server_donation_id,
		 donor_name, organization_name, is_organization, donor_email, donor_phone,
		 address1, address2, city, state, country, postal_code,
		 amount, donation_type, payment_method, payment_reference, notes, collector_email,
		 sync_status, sync_attempts, last_sync_attempt, error_message, created_at)
		VALUES (?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, '', ?)
	`,
		rec.ID,
		rec.ReceiptNumber,
		rec.DonorName,
		rec.OrganizationName,
		rec.IsOrganization,
		rec.DonorEmail,
		rec.DonorPhone,
		rec.Address1,
		rec.Address2,
		rec.City,
		rec.State,
		rec.Country,
		rec.PostalCode,
		rec.Amount.Text('f'),
		rec.DonationType,
		rec.PaymentMethod,
		rec.PaymentReference,
		rec.Notes,
		rec.CollectorEmail,
		string(rec.SyncStatus),
		rec.CreatedAt.UnixNano(),
	)
	return err
}

// MarkSyncing transitions an eligible record (pending or failed) into
// syncing, increments its attempt counter exactly once, and stamps the
// attempt time - all in one statement, persisted BEFORE any network call
// so a crash mid-flight leaves the record reclaimable.
func (s *Store) MarkSyncing(ctx context.Context, id string) error {
	return s.execExpectingRow(ctx, "mark syncing", id, `
		UPDATE donations
		SET sync_status = ?, sync_attempts = sync_attempts + 1, last_sync_attempt = ?
		WHERE id = ? AND sync_status IN (?, ?)
	`,
		string(donation.StatusSyncing),
		time.Now().UTC().UnixNano(),
		id,
		string(donation.StatusPending),
		string(donation.StatusFailed),
	)
}

// MarkSynced transitions a syncing record into synced and records the
// server-assigned id. The server id is written only while it is still 0,
// so it can never be overwritten once assigned.
//
// note carries the soft-success diagnostic ("" for a clean sync). A clean
// sync clears any previous error message.
func (s *Store) MarkSynced(ctx context.Context, id string, serverID int64, note string) error {
	return s.execExpectingRow(ctx, "mark synced", id, `
		UPDATE donations
		SET sync_status = ?,
		    server_donation_id = CASE WHEN server_donation_id = 0 THEN ? ELSE server_donation_id END,
		    error_message = ?
		WHERE id = ? AND sync_status = ?
	`,
		string(donation.StatusSynced),
		serverID,
		note,
		id,
		string(donation.StatusSyncing),
	)
}

// MarkFailed records a failed attempt. The terminal decision is made in
// SQL against the persisted attempt counter: at MaxSyncAttempts or more
// the record becomes failed_permanent and leaves the automatic queue.
func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	return s.execExpectingRow(ctx, "mark failed", id, `
		UPDATE donations
		SET sync_status = CASE WHEN sync_attempts >= ? THEN ? ELSE ? END,
		    error_message = ?
		WHERE id = ? AND sync_status = ?
	`,
		donation.MaxSyncAttempts,
		string(donation.StatusFailedPermanent),
		string(donation.StatusFailed),
		message,
		id,
		string(donation.StatusSyncing),
	)
}

// ResetForRetry returns a non-synced record to pending with zero attempts
// and no error message. This is the user-initiated retry: it is the only
// way out of failed_permanent.
func (s *Store) ResetForRetry(ctx context.Context, id string) error {
	return s.execExpectingRow(ctx, "reset for retry", id, `
		UPDATE donations
		SET sync_status = ?, sync_attempts = 0, error_message = ''
		WHERE id = ? AND sync_status != ?
	`,
		string(donation.StatusPending),
		id,
		string(donation.StatusSynced),
	)
}

// ResetAllFailed bulk-resets every failed and failed_permanent record to
// pending with zero attempts. Returns the number of records reset.
func (s *Store) ResetAllFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE donations
		SET sync_status = ?, sync_attempts = 0, error_message = ''
		WHERE sync_status IN (?, ?)
	`,
		string(donation.StatusPending),
		string(donation.StatusFailed),
		string(donation.StatusFailedPermanent),
	)
	if err != nil {
		return 0, fmt.Errorf("reset all failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset all failed: rows affected: %w", err)
	}
	return n, nil
}

// ReclaimInterrupted resets records stranded in syncing by a crash back to
// failed with a diagnostic message, making them eligible again. Run once
// at orchestrator startup, before any pass - a stale syncing record is
// never submitted directly.
func (s *Store) ReclaimInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE donations
		SET sync_status = ?, error_message = 'interrupted'
		WHERE sync_status = ?
	`,
		string(donation.StatusFailed),
		string(donation.StatusSyncing),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim interrupted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaim interrupted: rows affected: %w", err)
	}
	return n, nil
}

// Delete removes a record permanently. Idempotent - deleting an absent id
// is not an error. Deletion is an explicit user action, never automatic.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM donations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	return nil
}

// DeleteSyncedOlderThan removes synced records created before the cutoff.
// Unsynced records are never touched regardless of age. Returns the number
// of records removed.
func (s *Store) DeleteSyncedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM donations WHERE sync_status = ? AND created_at < ?
	`,
		string(donation.StatusSynced),
		cutoff.UTC().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete old synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old synced: rows affected: %w", err)
	}
	return n, nil
}
