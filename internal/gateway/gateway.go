// Package gateway adapts local donation records to the wire contract of
// the remote donation-receipt API.
//
// The remote endpoint is treated as an opaque service: it accepts a donor
// and donation payload and returns a server-assigned receipt identifier.
// Transport failures are reported as *TransportError. A 2xx response with
// an unparseable body is a soft success - the remote side is the source
// of truth for "did it persist", and resubmitting on a parse failure
// would risk a duplicate donation.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tejasvimys/rama-sync/internal/donation"
)

// submitPath is the donation submission endpoint, relative to the base URL.
const submitPath = "/api/donorreceipts/quick-with-receipt"

// maxErrorBody bounds how much of an error response is kept for the
// record's error message.
const maxErrorBody = 512

// TransportErrorCode categorizes transport failures.
type TransportErrorCode string

const (
	// ErrCodeUnreachable indicates a dial, DNS, TLS or timeout failure -
	// the request may or may not have reached the server.
	ErrCodeUnreachable TransportErrorCode = "UNREACHABLE"

	// ErrCodeHTTPStatus indicates the server answered with a non-2xx status.
	ErrCodeHTTPStatus TransportErrorCode = "HTTP_STATUS"
)

// TransportError is returned for any submission failure that should mark
// the record failed and keep it in the retry queue.
type TransportError struct {
	Code    TransportErrorCode
	Message string
	Status  int // HTTP status for ErrCodeHTTPStatus, 0 otherwise
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status=%d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTransportError reports whether err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Result is the outcome of a successful submission.
type Result struct {
	// ServerID is the server-assigned receipt identifier, 0 on soft
	// success.
	ServerID int64

	// SoftSuccess is true when the server accepted the donation but the
	// response body could not be parsed. The record is treated as synced
	// without a server identifier.
	SoftSuccess bool

	// Note carries the soft-success diagnostic for the record's error
	// message field. Empty on a clean success.
	Note string
}

// Client submits donation records to the remote receipt API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a gateway client. token may be empty when the remote
// endpoint does not require authentication (e.g. a relay that injects
// credentials).
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Submit sends one donation record to the remote endpoint.
//
// The record's local id travels as X-Idempotency-Key so the server can
// deduplicate the timeout-after-persist case; the body payload itself is
// unchanged by the key.
func (c *Client) Submit(ctx context.Context, rec *donation.Record) (Result, error) {
	payload := BuildSubmission(rec)
	body, err := json.Marshal(payload)
	if err != nil {
		// A record that cannot be serialized is a programming error, not
		// a transport failure.
		return Result{}, fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", rec.ID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &TransportError{
			Code:    ErrCodeUnreachable,
			Message: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		// Status was 2xx or not; without the body we cannot tell success
		// apart from failure, so treat as unreachable and retry.
		return Result{}, &TransportError{
			Code:    ErrCodeUnreachable,
			Message: fmt.Sprintf("read response: %v", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &TransportError{
			Code:    ErrCodeHTTPStatus,
			Message: truncate(string(respBody), maxErrorBody),
			Status:  resp.StatusCode,
		}
	}

	var parsed SubmissionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.DonorReceiptDetailID == 0 {
		// Soft success: the server persisted the donation (2xx) but we
		// cannot extract the identifier. Never resubmit.
		note := "server response not parseable, synced without server id"
		if err != nil {
			note = fmt.Sprintf("server response not parseable (%v), synced without server id", err)
		}
		return Result{SoftSuccess: true, Note: note}, nil
	}

	return Result{ServerID: parsed.DonorReceiptDetailID}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
