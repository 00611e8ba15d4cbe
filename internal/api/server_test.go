package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejasvimys/rama-sync/internal/donation"
	"github.com/tejasvimys/rama-sync/internal/store"
	"github.com/tejasvimys/rama-sync/internal/syncer"
)

// fakeSyncControl scripts the orchestrator surface.
type fakeSyncControl struct {
	status      syncer.Status
	triggerOK   bool
	triggered   int
	retried     []string
	retryAllN   int64
	retryAllErr error
	store       *store.Store
}

func (f *fakeSyncControl) Status() syncer.Status { return f.status }

func (f *fakeSyncControl) TriggerSync() bool {
	f.triggered++
	return f.triggerOK
}

func (f *fakeSyncControl) RetryDonation(ctx context.Context, id string) error {
	f.retried = append(f.retried, id)
	if f.store != nil {
		return f.store.ResetForRetry(ctx, id)
	}
	return nil
}

func (f *fakeSyncControl) RetryAllFailed(ctx context.Context) (int64, error) {
	return f.retryAllN, f.retryAllErr
}

func newTestServer(t *testing.T, sc *fakeSyncControl) (*Server, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	sc.store = s
	return NewServer("127.0.0.1:0", s, sc), s
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.True(t, env.Success)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func validCreate() CreateDonationRequest {
	return CreateDonationRequest{
		DonorName:        "Anil Kumar",
		Amount:           "125.50",
		DonationType:     "Annadanam",
		PaymentMethod:    "Check",
		PaymentReference: "CHK-2041",
		CollectorEmail:   "collector@example.org",
	}
}

func TestCreateDonation(t *testing.T) {
	sc := &fakeSyncControl{triggerOK: true}
	srv, s := newTestServer(t, sc)

	rr := doJSON(t, srv, http.MethodPost, "/api/donations", validCreate())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rec := decodeData[donation.Record](t, rr)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, donation.StatusPending, rec.SyncStatus)
	assert.Contains(t, rec.ReceiptNumber, donation.ReceiptPrefix+"-")
	assert.Equal(t, 1, sc.triggered, "create must nudge a sync pass")

	stored, err := s.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "125.50", stored.Amount.Text('f'))
}

func TestCreateDonation_ValidationError(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSyncControl{})

	req := validCreate()
	req.Amount = "-5"
	rr := doJSON(t, srv, http.MethodPost, "/api/donations", req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, string(donation.ErrCodeAmountNotPositive), resp.Code)
}

func TestCreateDonation_BadAmount(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSyncControl{})

	req := validCreate()
	req.Amount = "abc"
	rr := doJSON(t, srv, http.MethodPost, "/api/donations", req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, string(donation.ErrCodeBadAmount), resp.Code)
}

func TestGetDonation_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSyncControl{})

	rr := doJSON(t, srv, http.MethodGet, "/api/donations/nope", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Code)
}

func TestListDonations_StatusFilter(t *testing.T) {
	sc := &fakeSyncControl{triggerOK: true}
	srv, _ := newTestServer(t, sc)

	rr := doJSON(t, srv, http.MethodPost, "/api/donations", validCreate())
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/api/donations?status=pending", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	recs := decodeData[[]donation.Record](t, rr)
	assert.Len(t, recs, 1)

	rr = doJSON(t, srv, http.MethodGet, "/api/donations?status=synced", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	recs = decodeData[[]donation.Record](t, rr)
	assert.Empty(t, recs)

	rr = doJSON(t, srv, http.MethodGet, "/api/donations?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTriggerSync_Accepted(t *testing.T) {
	sc := &fakeSyncControl{triggerOK: true, status: syncer.Status{Online: true}}
	srv, _ := newTestServer(t, sc)

	rr := doJSON(t, srv, http.MethodPost, "/api/sync", nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestTriggerSync_ConflictWhenActive(t *testing.T) {
	sc := &fakeSyncControl{triggerOK: false, status: syncer.Status{Online: true, IsSyncing: true}}
	srv, _ := newTestServer(t, sc)

	rr := doJSON(t, srv, http.MethodPost, "/api/sync", nil)
	require.Equal(t, http.StatusConflict, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "sync_active", resp.Code)
}

func TestTriggerSync_ConflictWhenOffline(t *testing.T) {
	sc := &fakeSyncControl{triggerOK: false, status: syncer.Status{Online: false}}
	srv, _ := newTestServer(t, sc)

	rr := doJSON(t, srv, http.MethodPost, "/api/sync", nil)
	require.Equal(t, http.StatusConflict, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "offline", resp.Code)
}

func TestRetryAll(t *testing.T) {
	sc := &fakeSyncControl{retryAllN: 3}
	srv, _ := newTestServer(t, sc)

	rr := doJSON(t, srv, http.MethodPost, "/api/retry-all", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeData[RetryAllResponse](t, rr)
	assert.EqualValues(t, 3, resp.Reset)
}

func TestRetryDonation_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSyncControl{})

	rr := doJSON(t, srv, http.MethodPost, "/api/donations/nope/retry", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteDonation_Idempotent(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSyncControl{triggerOK: true})

	rr := doJSON(t, srv, http.MethodPost, "/api/donations", validCreate())
	require.Equal(t, http.StatusCreated, rr.Code)
	rec := decodeData[donation.Record](t, rr)

	rr = doJSON(t, srv, http.MethodDelete, "/api/donations/"+rec.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, srv, http.MethodDelete, "/api/donations/"+rec.ID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSummary(t *testing.T) {
	sc := &fakeSyncControl{triggerOK: true}
	srv, _ := newTestServer(t, sc)

	first := validCreate()
	second := validCreate()
	second.Amount = "0.10"
	for _, req := range []CreateDonationRequest{first, second} {
		rr := doJSON(t, srv, http.MethodPost, "/api/donations", req)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sum := decodeData[SummaryResponse](t, rr)
	assert.Equal(t, 2, sum.Pending)
	assert.Zero(t, sum.Synced)
	assert.Equal(t, "125.60", sum.TotalAmount)
}
