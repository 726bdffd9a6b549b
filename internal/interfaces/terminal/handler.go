package terminal

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cobasjano/JC-sistema-sub001/internal/application/offline"
	domainErrors "github.com/cobasjano/JC-sistema-sub001/internal/domain/errors"
	"github.com/cobasjano/JC-sistema-sub001/internal/domain/pending"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type checkoutItem struct {
	ProductID   string          `json:"product_id" validate:"required"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type checkoutRequest struct {
	Items            []checkoutItem  `json:"items" validate:"required,min=1,dive"`
	Total            decimal.Decimal `json:"total"`
	PaymentMethod    string          `json:"payment_method" validate:"max=32"`
	PaymentBreakdown json.RawMessage `json:"payment_breakdown,omitempty"`
	// Offline records the sale straight into the queue.
	Offline bool `json:"offline"`
}

type checkoutResponse struct {
	Status   string               `json:"status"`
	Sale     *offline.CreatedSale `json:"sale,omitempty"`
	QueuedID string               `json:"queued_id,omitempty"`
	Reason   string               `json:"reason,omitempty"`
}

type passResponse struct {
	Synced    int    `json:"synced"`
	Remaining int    `json:"remaining"`
	FailedID  string `json:"failed_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type statusResponse struct {
	Online  bool   `json:"online"`
	Syncing bool   `json:"syncing"`
	Pending int    `json:"pending"`
	Breaker string `json:"breaker,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handler serves the terminal's local checkout and queue API.
type Handler struct {
	capture *offline.CaptureUseCase
	store   pending.Store
	driver  *offline.Driver
	breaker func() string
}

func NewHandler(capture *offline.CaptureUseCase, store pending.Store, driver *offline.Driver, breakerState func() string) *Handler {
	return &Handler{capture: capture, store: store, driver: driver, breaker: breakerState}
}

// Checkout handles POST /checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domainErrors.NewValidationError("body", "invalid JSON: "+err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, domainErrors.NewValidationError("body", err.Error()))
		return
	}

	in := offline.SaleInput{
		Items:            make([]pending.Item, 0, len(req.Items)),
		Total:            req.Total,
		PaymentMethod:    req.PaymentMethod,
		PaymentBreakdown: req.PaymentBreakdown,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, pending.Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}

	var (
		res *offline.CaptureResult
		err error
	)
	if req.Offline {
		res, err = h.capture.RecordOffline(r.Context(), in)
	} else {
		res, err = h.capture.Capture(r.Context(), in)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if res.Queued {
		resp := checkoutResponse{Status: "queued", QueuedID: res.QueuedID}
		if res.Reason != nil {
			resp.Reason = res.Reason.Error()
		}
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{Status: "synced", Sale: res.Sale})
}

// ListPending handles GET /pending
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	sales, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sales == nil {
		sales = []pending.QueuedSale{}
	}
	writeJSON(w, http.StatusOK, sales)
}

// RemovePending handles DELETE /pending/{id}
func (h *Handler) RemovePending(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync handles POST /sync. With ?wait=true it runs a pass and reports the
// outcome; otherwise it only schedules one.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") != "true" {
		h.driver.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
		return
	}

	res, err := h.driver.DrainOnce(r.Context())
	if errors.Is(err, domainErrors.ErrSyncInProgress) || errors.Is(err, domainErrors.ErrNoSession) {
		writeError(w, r, err)
		return
	}
	resp := passResponse{Synced: res.Synced, Remaining: res.Remaining, FailedID: res.FailedID}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := statusResponse{Online: h.driver.Online(), Syncing: h.driver.Syncing(), Pending: n}
	if h.breaker != nil {
		resp.Breaker = h.breaker()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	var ve *domainErrors.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, domainErrors.ErrSaleWithoutItems),
		errors.Is(err, domainErrors.ErrInvalidQuantity),
		errors.Is(err, domainErrors.ErrInvalidPrice),
		errors.Is(err, domainErrors.ErrInvalidTotal):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, domainErrors.ErrNoSession):
		status, code = http.StatusUnauthorized, "no_session"
	case errors.Is(err, domainErrors.ErrSyncInProgress):
		status, code = http.StatusConflict, "sync_in_progress"
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("terminal request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// NewRouter builds the local API. It is meant to listen on loopback only.
func NewRouter(h *Handler, mws ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(mws...)

	r.Post("/checkout", h.Checkout)
	r.Get("/pending", h.ListPending)
	r.Delete("/pending/{id}", h.RemovePending)
	r.Post("/sync", h.Sync)
	r.Get("/status", h.Status)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
	})
	return r
}
