package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/logging"
)

// OperatorHeader carries the calling operator's chat ID. It names the actor
// in the audit trail; callers authenticate with the admin bearer token.
const OperatorHeader = "X-Operator-ID"

type HTTPHandler struct {
	orders OrderAdmin
	token  []byte
	logger logging.Logger
}

type OrderActionHTTPRequest struct {
	RequesterID int64 `json:"requester_id"`
}

type AdminHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// NewHTTPHandler serves the admin API. Every /api route requires
// "Authorization: Bearer <adminToken>"; an empty token rejects all of them.
func NewHTTPHandler(orders OrderAdmin, adminToken string, logger logging.Logger) *HTTPHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &HTTPHandler{orders: orders, token: []byte(adminToken), logger: logger.With("component", "http")}
}

// Routes returns a mux serving the admin API.
func (h *HTTPHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/orders", h.authenticate(h.ListOrders))
	mux.HandleFunc("/api/orders/confirm", h.authenticate(h.ConfirmOrder))
	mux.HandleFunc("/api/orders/cancel", h.authenticate(h.CancelOrder))
	return mux
}

func (h *HTTPHandler) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !validToken(h.token, bearerToken(r.Header.Get("Authorization"))) {
			h.logger.Warn(r.Context(), "admin request rejected", "path", r.URL.Path, "remote", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSON(w, http.StatusUnauthorized, AdminHTTPResponse{Message: "invalid or missing admin token"})
			return
		}
		next(w, r)
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func validToken(want []byte, got string) bool {
	if len(want) == 0 || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare(want, []byte(got)) == 1
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	operatorID, ok := h.operator(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), operatorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AdminHTTPResponse{Success: true, Data: toOrderViews(orders)})
}

func (h *HTTPHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	operatorID, requesterID, ok := h.action(w, r)
	if !ok {
		return
	}

	result, err := h.orders.ConfirmOrder(r.Context(), operatorID, requesterID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	message := "account created and delivered"
	if !result.Delivered {
		message = "account created, credentials must be delivered manually"
	}
	writeJSON(w, http.StatusOK, AdminHTTPResponse{Success: true, Message: message, Data: toConfirmView(result)})
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	operatorID, requesterID, ok := h.action(w, r)
	if !ok {
		return
	}

	order, err := h.orders.CancelOrder(r.Context(), operatorID, requesterID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AdminHTTPResponse{Success: true, Message: "order cancelled", Data: toOrderView(order)})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// action decodes a POST body naming the target requester.
func (h *HTTPHandler) action(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return 0, 0, false
	}
	operatorID, ok := h.operator(w, r)
	if !ok {
		return 0, 0, false
	}

	var req OrderActionHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, AdminHTTPResponse{Message: "invalid request body"})
		return 0, 0, false
	}
	if req.RequesterID <= 0 {
		writeJSON(w, http.StatusBadRequest, AdminHTTPResponse{Message: "requester_id must be positive"})
		return 0, 0, false
	}
	return operatorID, req.RequesterID, true
}

func (h *HTTPHandler) operator(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get(OperatorHeader), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, AdminHTTPResponse{Message: "missing or invalid " + OperatorHeader})
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status, message = http.StatusForbidden, "operator access required"
	case errors.Is(err, domain.ErrOrderNotFound):
		status, message = http.StatusNotFound, "no pending order"
	case errors.Is(err, domain.ErrConfirmInProgress):
		status, message = http.StatusConflict, "confirmation already in progress"
	case errors.Is(err, domain.ErrAPI), errors.Is(err, domain.ErrProvisioning), errors.Is(err, domain.ErrPlanNotFound):
		// Upstream failures are reported verbatim; the order stays pending.
		status, message = http.StatusBadGateway, err.Error()
	default:
		h.logger.Error(r.Context(), "admin request failed", "path", r.URL.Path, "error", err)
	}

	writeJSON(w, status, AdminHTTPResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
