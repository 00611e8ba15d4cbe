package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/tejasvimys/rama-sync/internal/donation"
)

const recordColumns = `
	id, receipt_number, server_donation_id,
	donor_name, organization_name, is_organization, donor_email, donor_phone,
	address1, address2, city, state, country, postal_code,
	amount, donation_type, payment_method, payment_reference, notes, collector_email,
	sync_status, sync_attempts, last_sync_attempt, error_message, created_at`

// Get returns the record with the given id, or NotFoundError.
func (s *Store) Get(ctx context.Context, id string) (*donation.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM donations WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id, Op: "get"}
	}
	if err != nil {
		return nil, fmt.Errorf("get donation: %w", err)
	}
	return rec, nil
}

// GetByReceipt returns the record with the given receipt number, or
// NotFoundError.
func (s *Store) GetByReceipt(ctx context.Context, receiptNumber string) (*donation.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM donations WHERE receipt_number = ?`, receiptNumber)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: receiptNumber, Op: "get by receipt"}
	}
	if err != nil {
		return nil, fmt.Errorf("get donation by receipt: %w", err)
	}
	return rec, nil
}

// ListEligible returns all pending and failed records in creation order,
// oldest first - the exact set and order a sync pass processes. The id
// tiebreak keeps the order deterministic for records created in the same
// nanosecond.
//
// Returns an empty slice (not nil) when the queue is empty.
func (s *Store) ListEligible(ctx context.Context) ([]*donation.Record, error) {
	return s.list(ctx, `
		SELECT `+recordColumns+`
		FROM donations
		WHERE sync_status IN (?, ?)
		ORDER BY created_at ASC, id ASC
	`,
		string(donation.StatusPending),
		string(donation.StatusFailed),
	)
}

// ListAll returns every record, newest first (display order).
func (s *Store) ListAll(ctx context.Context) ([]*donation.Record, error) {
	return s.list(ctx, `
		SELECT `+recordColumns+`
		FROM donations
		ORDER BY created_at DESC, id DESC
	`)
}

// ListByStatus returns records in any of the given statuses, newest first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...donation.Status) ([]*donation.Record, error) {
	if len(statuses) == 0 {
		return []*donation.Record{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	return s.list(ctx, `
		SELECT `+recordColumns+`
		FROM donations
		WHERE sync_status IN (`+placeholders+`)
		ORDER BY created_at DESC, id DESC
	`, args...)
}

// CountByStatus returns the number of records in any of the given
// statuses. Served entirely from the sync_status index - no row
// deserialization - so it is cheap enough for every periodic tick.
func (s *Store) CountByStatus(ctx context.Context, statuses ...donation.Status) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM donations WHERE sync_status IN (`+placeholders+`)`,
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by status: %w", err)
	}
	return count, nil
}

// TotalAmount sums the amounts of records in the given statuses using
// exact decimal arithmetic. Summing happens in Go because SQLite would
// coerce the text amounts to floats.
func (s *Store) TotalAmount(ctx context.Context, statuses ...donation.Status) (*apd.Decimal, error) {
	total := donation.ZeroAmount()
	if len(statuses) == 0 {
		return total, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT amount FROM donations WHERE sync_status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("total amount: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("total amount: scan: %w", err)
		}
		amt, err := donation.ParseAmount(text)
		if err != nil {
			return nil, fmt.Errorf("total amount: %w", err)
		}
		total, err = donation.AddAmount(total, amt)
		if err != nil {
			return nil, fmt.Errorf("total amount: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("total amount: iterate: %w", err)
	}
	return total, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*donation.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query donations: %w", err)
	}
	defer rows.Close()

	records := []*donation.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return records, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*donation.Record, error) {
	var (
		rec         donation.Record
		status      string
		amountText  string
		lastAttempt sql.NullInt64
		createdAt   int64
	)

	err := sc.Scan(
		&rec.ID,
		&rec.ReceiptNumber,
		&rec.ServerDonationID,
		&rec.DonorName,
		&rec.OrganizationName,
		&rec.IsOrganization,
		&rec.DonorEmail,
		&rec.DonorPhone,
		&rec.Address1,
		&rec.Address2,
		&rec.City,
		&rec.State,
		&rec.Country,
		&rec.PostalCode,
		&amountText,
		&rec.DonationType,
		&rec.PaymentMethod,
		&rec.PaymentReference,
		&rec.Notes,
		&rec.CollectorEmail,
		&status,
		&rec.SyncAttempts,
		&lastAttempt,
		&rec.ErrorMessage,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.SyncStatus = donation.Status(status)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	if lastAttempt.Valid {
		t := time.Unix(0, lastAttempt.Int64).UTC()
		rec.LastSyncAttempt = &t
	}
	rec.Amount, err = donation.ParseAmount(amountText)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount: %w", err)
	}
	return &rec, nil
}
