package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/meditationastro/medinow-sub000/internal/auth"
	"github.com/meditationastro/medinow-sub000/internal/checkout"
	"github.com/meditationastro/medinow-sub000/internal/console"
	"github.com/meditationastro/medinow-sub000/internal/domain/order"
	"github.com/meditationastro/medinow-sub000/internal/lookup"
	"github.com/meditationastro/medinow-sub000/internal/payment"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	checkout *checkout.Service
	lookup   *lookup.Service
	console  *console.Console
	logger   zerolog.Logger
}

func NewHandlers(checkoutSvc *checkout.Service, lookupSvc *lookup.Service, con *console.Console, logger zerolog.Logger) *Handlers {
	return &Handlers{
		checkout: checkoutSvc,
		lookup:   lookupSvc,
		console:  con,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd checkout.PlaceOrder
	if !h.decode(w, r, &cmd) {
		return
	}

	// Ownership and price trust come from the verified identity only.
	caller := auth.FromContext(r.Context())
	if caller != nil {
		cmd.UserID = caller.UserID
	}
	cmd.TrustPrices = caller.IsAdmin()

	result, err := h.checkout.PlaceOrder(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.lookup.ForCaller(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) TrackOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"orderId"`
		Email   string `json:"email"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.lookup.Track(r.Context(), req.OrderID, req.Email)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) RetryPayment(w http.ResponseWriter, r *http.Request) {
	var cmd checkout.RetryPayment
	if !h.decode(w, r, &cmd) {
		return
	}
	cmd.OrderID = chi.URLParam(r, "id")

	result, err := h.checkout.RetryPayment(r.Context(), cmd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Payment Handlers

func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	// The signature covers the raw bytes, so the body is read before decoding.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if err := h.checkout.HandleWebhook(r.Context(), body, r.Header.Get(payment.SignatureHeader)); err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handlers) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	o, err := h.checkout.HandleReturn(r.Context(), q.Get("order_id"), q.Get("session_id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

// Admin Handlers

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	orders, err := h.console.List(r.Context(), auth.FromContext(r.Context()), console.ListQuery{
		Status: q.Get("status"),
		Search: q.Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handlers) OrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.console.Stats(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	detail, err := h.console.Get(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.console.UpdateStatus(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := h.console.Delete(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), confirmed); err != nil {
		h.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondError maps service errors to status codes. Unexpected errors are
// logged and reported without detail.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve          *order.ValidationError
		unavailable *checkout.UnavailableError
	)
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, order.ErrOrderNotFound):
		respondMessage(w, http.StatusNotFound, "order not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		respondMessage(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		respondMessage(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, payment.ErrInvalidSignature):
		respondMessage(w, http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, payment.ErrMalformedEvent):
		respondMessage(w, http.StatusBadRequest, "malformed event")
	case errors.As(err, &unavailable):
		h.logger.Warn().Err(err).Str("order_id", unavailable.OrderID).Msg("checkout unavailable")
		respondJSON(w, http.StatusBadGateway, map[string]string{
			"error":   "payment provider unavailable, the order was saved and payment can be retried",
			"orderId": unavailable.OrderID,
		})
	default:
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		respondMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func intParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &order.ValidationError{Field: field, Reason: "must be an integer"}
	}
	return n, nil
}
