// Package api exposes the local status and admin HTTP surface of the
// sync daemon. It binds to loopback by default; it carries no auth of
// its own.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tejasvimys/rama-sync/internal/donation"
	"github.com/tejasvimys/rama-sync/internal/store"
	"github.com/tejasvimys/rama-sync/internal/syncer"
)

// SyncControl is the orchestrator surface the handlers need.
type SyncControl interface {
	Status() syncer.Status
	TriggerSync() bool
	RetryDonation(ctx context.Context, id string) error
	RetryAllFailed(ctx context.Context) (int64, error)
}

// CreateDonationRequest is the POST /api/donations body. Amount travels
// as a string so the value is never rounded through a float.
type CreateDonationRequest struct {
	DonorName        string `json:"donorName"`
	OrganizationName string `json:"organizationName"`
	IsOrganization   bool   `json:"isOrganization"`
	DonorEmail       string `json:"donorEmail"`
	DonorPhone       string `json:"donorPhone"`
	Address1         string `json:"address1"`
	Address2         string `json:"address2"`
	City             string `json:"city"`
	State            string `json:"state"`
	Country          string `json:"country"`
	PostalCode       string `json:"postalCode"`

	Amount           string `json:"amount"`
	DonationType     string `json:"donationType"`
	PaymentMethod    string `json:"paymentMethod"`
	PaymentReference string `json:"paymentReference"`
	Notes            string `json:"notes"`
	CollectorEmail   string `json:"collectorEmail"`
}

// SummaryResponse is the GET /api/summary body.
type SummaryResponse struct {
	Pending     int    `json:"pending"`
	Syncing     int    `json:"syncing"`
	Synced      int    `json:"synced"`
	Failed      int    `json:"failed"`
	Permanent   int    `json:"failedPermanent"`
	TotalAmount string `json:"totalAmount"`
}

// RetryAllResponse is the POST /api/retry-all body.
type RetryAllResponse struct {
	Reset int64 `json:"reset"`
}

// Server serves the admin API over a chi router.
type Server struct {
	store *store.Store
	sync  SyncControl
	http  *http.Server
}

// NewServer creates a Server listening on addr once Start is called.
func NewServer(addr string, s *store.Store, sc SyncControl) *Server {
	srv := &Server{store: s, sync: sc}
	srv.http = &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// Routes builds the router. Exposed for tests.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.GetStatus)
		r.Get("/summary", s.GetSummary)
		r.Post("/sync", s.TriggerSync)
		r.Post("/retry-all", s.RetryAll)

		r.Route("/donations", func(r chi.Router) {
			r.Get("/", s.ListDonations)
			r.Post("/", s.CreateDonation)
			r.Get("/{id}", s.GetDonation)
			r.Delete("/{id}", s.DeleteDonation)
			r.Post("/{id}/retry", s.RetryDonation)
		})
	})
	return r
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("admin api listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, s.sync.Status())
}

func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var resp SummaryResponse
	for _, c := range []struct {
		status donation.Status
		dst    *int
	}{
		{donation.StatusPending, &resp.Pending},
		{donation.StatusSyncing, &resp.Syncing},
		{donation.StatusSynced, &resp.Synced},
		{donation.StatusFailed, &resp.Failed},
		{donation.StatusFailedPermanent, &resp.Permanent},
	} {
		n, err := s.store.CountByStatus(ctx, c.status)
		if err != nil {
			handleError(w, err)
			return
		}
		*c.dst = n
	}

	total, err := s.store.TotalAmount(ctx,
		donation.StatusPending,
		donation.StatusSyncing,
		donation.StatusSynced,
		donation.StatusFailed,
		donation.StatusFailedPermanent,
	)
	if err != nil {
		handleError(w, err)
		return
	}
	resp.TotalAmount = total.Text('f')

	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if !s.sync.TriggerSync() {
		st := s.sync.Status()
		code, msg := "sync_active", "a sync pass is already running"
		if !st.Online {
			code, msg = "offline", "device is offline"
		}
		writeError(w, http.StatusConflict, code, msg)
		return
	}
	writeSuccess(w, http.StatusAccepted, nil)
}

func (s *Server) RetryAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.sync.RetryAllFailed(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, RetryAllResponse{Reset: n})
}

func (s *Server) ListDonations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		recs []*donation.Record
		err  error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := donation.Status(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "bad_status", "unknown sync status: "+raw)
			return
		}
		recs, err = s.store.ListByStatus(ctx, status)
	} else {
		recs, err = s.store.ListAll(ctx)
	}
	if err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, recs)
}

func (s *Server) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	amount, err := donation.ParseAmount(req.Amount)
	if err != nil {
		handleError(w, err)
		return
	}

	rec, err := s.store.Create(r.Context(), donation.Input{
		DonorName:        req.DonorName,
		OrganizationName: req.OrganizationName,
		IsOrganization:   req.IsOrganization,
		DonorEmail:       req.DonorEmail,
		DonorPhone:       req.DonorPhone,
		Address1:         req.Address1,
		Address2:         req.Address2,
		City:             req.City,
		State:            req.State,
		Country:          req.Country,
		PostalCode:       req.PostalCode,
		Amount:           amount,
		DonationType:     req.DonationType,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		Notes:            req.Notes,
		CollectorEmail:   req.CollectorEmail,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	// New records wait for the next pass; nudge one if we are online.
	s.sync.TriggerSync()

	writeSuccess(w, http.StatusCreated, rec)
}

func (s *Server) GetDonation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

func (s *Server) DeleteDonation(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (s *Server) RetryDonation(w http.ResponseWriter, r *http.Request) {
	if err := s.sync.RetryDonation(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}
