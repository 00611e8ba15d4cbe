package donation

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Status is the sync state of a donation record.
type Status string

const (
	StatusPending         Status = "pending"
	StatusSyncing         Status = "syncing"
	StatusSynced          Status = "synced"
	StatusFailed          Status = "failed"
	StatusFailedPermanent Status = "failed_permanent"
)

// MaxSyncAttempts is the number of failed submissions after which a record
// becomes failed_permanent and is excluded from automatic sync passes.
const MaxSyncAttempts = 3

// ReceiptPrefix prefixes every locally generated receipt number.
const ReceiptPrefix = "OFF"

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSyncing, StatusSynced, StatusFailed, StatusFailedPermanent:
		return true
	}
	return false
}

// Terminal reports whether s excludes the record from automatic processing.
func (s Status) Terminal() bool {
	return s == StatusSynced || s == StatusFailedPermanent
}

// Eligible reports whether a record in this status is a candidate for the
// next sync pass.
func (s Status) Eligible() bool {
	return s == StatusPending || s == StatusFailed
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next under automatic processing. Manual retry (any non-synced status
// back to pending) is handled separately by the store.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusSyncing
	case StatusSyncing:
		return next == StatusSynced || next == StatusFailed || next == StatusFailedPermanent
	case StatusFailed:
		return next == StatusSyncing || next == StatusFailedPermanent
	default:
		// synced and failed_permanent are terminal.
		return false
	}
}

// Display returns the human-facing label for a status.
func (s Status) Display() string {
	switch s {
	case StatusPending:
		return "Pending Sync"
	case StatusSyncing:
		return "Syncing..."
	case StatusSynced:
		return "Synced"
	case StatusFailed:
		return "Failed"
	case StatusFailedPermanent:
		return "Failed (Permanent)"
	default:
		return string(s)
	}
}

// Record is a locally captured, potentially-unsynced donation.
//
// ID is immutable for the record's lifetime. ServerDonationID stays 0
// until the record transitions into synced and is written at most once.
// All mutations go through the store's named operations; nothing outside
// internal/store writes these fields back to disk.
type Record struct {
	ID            string `json:"id"`
	ReceiptNumber string `json:"receiptNumber"`

	// ServerDonationID is assigned by the remote system on successful
	// sync. 0 means "not assigned" - including the soft-success case
	// where the server accepted the donation but the response could not
	// be parsed.
	ServerDonationID int64 `json:"serverDonationId"`

	DonorName        string `json:"donorName"`
	OrganizationName string `json:"organizationName,omitempty"`
	IsOrganization   bool   `json:"isOrganization"`
	DonorEmail       string `json:"donorEmail,omitempty"`
	DonorPhone       string `json:"donorPhone,omitempty"`
	Address1         string `json:"address1,omitempty"`
	Address2         string `json:"address2,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Country          string `json:"country,omitempty"`
	PostalCode       string `json:"postalCode,omitempty"`

	Amount           *apd.Decimal `json:"amount"`
	DonationType     string       `json:"donationType"`
	PaymentMethod    string       `json:"paymentMethod"`
	PaymentReference string       `json:"paymentReference,omitempty"`
	Notes            string       `json:"notes,omitempty"`
	CollectorEmail   string       `json:"collectorEmail"`

	SyncStatus      Status     `json:"syncStatus"`
	SyncAttempts    int        `json:"syncAttempts"`
	LastSyncAttempt *time.Time `json:"lastSyncAttempt,omitempty"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// DonorDisplayName returns the organization name for organization donors,
// otherwise the donor's personal name.
func (r *Record) DonorDisplayName() string {
	if r.IsOrganization && r.OrganizationName != "" {
		return r.OrganizationName
	}
	return r.DonorName
}

// Input carries the caller-supplied fields for creating a record.
// Identity, receipt number, timestamps and sync metadata are assigned by
// the store at creation time.
type Input struct {
	DonorName        string
	OrganizationName string
	IsOrganization   bool
	DonorEmail       string
	DonorPhone       string
	Address1         string
	Address2         string
	City             string
	State            string
	Country          string
	PostalCode       string

	Amount           *apd.Decimal
	DonationType     string
	PaymentMethod    string
	PaymentReference string
	Notes            string
	CollectorEmail   string
}

// PaymentMethodCash is the one payment method that needs no reference
// number. Everything else (Check, Card, UPI, ...) must carry one so the
// remote system can reconcile the payment.
const PaymentMethodCash = "Cash"

// Validate checks the input against the creation rules:
//
//   - Amount must be present and strictly positive.
//   - Either DonorName or OrganizationName must be non-blank.
//   - PaymentReference is required when PaymentMethod is not Cash.
//
// Validation happens at the store layer so an unsubmittable record never
// enters the sync queue.
func (in *Input) Validate() error {
	if in.Amount == nil || in.Amount.Sign() <= 0 {
		return &ValidationError{
			Code:    ErrCodeAmountNotPositive,
			Field:   "amount",
			Message: "amount must be greater than zero",
		}
	}
	if strings.TrimSpace(in.DonorName) == "" && strings.TrimSpace(in.OrganizationName) == "" {
		return &ValidationError{
			Code:    ErrCodeDonorRequired,
			Field:   "donorName",
			Message: "donor name or organization name is required",
		}
	}
	if in.PaymentMethod != PaymentMethodCash && strings.TrimSpace(in.PaymentReference) == "" {
		return &ValidationError{
			Code:    ErrCodeReferenceRequired,
			Field:   "paymentReference",
			Message: fmt.Sprintf("payment reference is required for %s payments", in.PaymentMethod),
		}
	}
	return nil
}

// Normalize applies NFC normalization and whitespace trimming to the
// donor-facing text fields. Called by the store before persisting so the
// same bytes that were validated are the bytes that reach the remote API.
func (in *Input) Normalize() {
	in.DonorName = NormalizeName(in.DonorName)
	in.OrganizationName = NormalizeName(in.OrganizationName)
	in.DonorEmail = strings.TrimSpace(in.DonorEmail)
	in.DonorPhone = strings.TrimSpace(in.DonorPhone)
	in.PaymentReference = strings.TrimSpace(in.PaymentReference)
}

// NormalizeName trims surrounding whitespace and applies Unicode NFC so
// visually identical names compare and serialize identically.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NewID returns a new UUIDv7 record identifier. UUIDv7 embeds a timestamp
// in the most significant bits, so ids sort roughly by creation time.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateReceiptNumber builds the human-facing receipt number for a
// record created at the given time: prefix, creation epoch seconds, and a
// random 4-digit suffix.
//
// Format: "OFF-1767312000-4821"
func GenerateReceiptNumber(now time.Time) string {
	suffix := 1000 + rand.Intn(9000)
	return fmt.Sprintf("%s-%d-%d", ReceiptPrefix, now.Unix(), suffix)
}
