package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

func doRequest(t *testing.T, h *HTTPHandler, method, path, operator, body string) (*httptest.ResponseRecorder, AdminHTTPResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	if operator != "" {
		req.Header.Set(OperatorHeader, operator)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	var resp AdminHTTPResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHTTPHandler_Health(t *testing.T) {
	h := NewHTTPHandler(&mockAdmin{}, testAdminToken, nil)

	rec, _ := doRequest(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHTTPHandler_ListOrders(t *testing.T) {
	admin := &mockAdmin{orders: []domain.PendingOrder{sampleOrder}}
	h := NewHTTPHandler(admin, testAdminToken, nil)

	rec, resp := doRequest(t, h, http.MethodGet, "/api/orders", "1000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	op, _ := admin.last()
	assert.Equal(t, int64(1000), op)

	var body struct {
		Data []OrderView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, int64(42), body.Data[0].RequesterID)
	assert.Equal(t, "Gold", body.Data[0].PlanName)
}

func TestHTTPHandler_MissingOperatorHeader(t *testing.T) {
	h := NewHTTPHandler(&mockAdmin{}, testAdminToken, nil)

	rec, resp := doRequest(t, h, http.MethodGet, "/api/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = doRequest(t, h, http.MethodGet, "/api/orders", "abc", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPHandler_RequiresAdminToken(t *testing.T) {
	admin := &mockAdmin{confirm: confirmedResult(true)}
	h := NewHTTPHandler(admin, testAdminToken, nil)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong token", "Bearer not-the-token"},
		{"wrong scheme", "Basic " + testAdminToken},
		{"empty bearer", "Bearer "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/orders/confirm", strings.NewReader(`{"requester_id":42}`))
			req.Header.Set(OperatorHeader, "1000")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		})
	}

	op, _ := admin.last()
	assert.Zero(t, op, "rejected requests must not reach the order service")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPHandler_EmptyConfiguredTokenRejectsAll(t *testing.T) {
	h := NewHTTPHandler(&mockAdmin{}, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set(OperatorHeader, "1000")
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPHandler_MethodNotAllowed(t *testing.T) {
	h := NewHTTPHandler(&mockAdmin{}, testAdminToken, nil)

	rec, _ := doRequest(t, h, http.MethodPost, "/api/orders", "1000", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = doRequest(t, h, http.MethodGet, "/api/orders/confirm", "1000", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPHandler_ConfirmOrder(t *testing.T) {
	admin := &mockAdmin{confirm: confirmedResult(true)}
	h := NewHTTPHandler(admin, testAdminToken, nil)

	rec, resp := doRequest(t, h, http.MethodPost, "/api/orders/confirm", "1000", `{"requester_id":42}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.NotContains(t, rec.Body.String(), "AbC123xyz789")

	op, req := admin.last()
	assert.Equal(t, int64(1000), op)
	assert.Equal(t, int64(42), req)
}

func TestHTTPHandler_ConfirmUndeliveredIncludesPassword(t *testing.T) {
	h := NewHTTPHandler(&mockAdmin{confirm: confirmedResult(false)}, testAdminToken, nil)

	rec, resp := doRequest(t, h, http.MethodPost, "/api/orders/confirm", "1000", `{"requester_id":42}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, resp.Message, "manually")
	assert.Contains(t, rec.Body.String(), "AbC123xyz789")
}

func TestHTTPHandler_BadBody(t *testing.T) {
	h := NewHTTPHandler(&mockAdmin{}, testAdminToken, nil)

	rec, _ := doRequest(t, h, http.MethodPost, "/api/orders/confirm", "1000", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, h, http.MethodPost, "/api/orders/cancel", "1000", `{"requester_id":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPHandler_ErrorMapping(t *testing.T) {
	upstream := fmt.Errorf("%w: username exists", domain.ErrProvisioning)
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"unauthorized", fmt.Errorf("caller 5: %w", domain.ErrUnauthorized), http.StatusForbidden, "operator access required"},
		{"not found", domain.ErrOrderNotFound, http.StatusNotFound, "no pending order"},
		{"in progress", domain.ErrConfirmInProgress, http.StatusConflict, "confirmation already in progress"},
		{"provisioning", upstream, http.StatusBadGateway, upstream.Error()},
		{"internal", fmt.Errorf("redis down"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHTTPHandler(&mockAdmin{err: tt.err}, testAdminToken, nil)

			rec, resp := doRequest(t, h, http.MethodPost, "/api/orders/confirm", "1000", `{"requester_id":42}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.msg, resp.Message)
		})
	}
}

func TestHTTPHandler_CancelOrder(t *testing.T) {
	admin := &mockAdmin{cancel: sampleOrder}
	h := NewHTTPHandler(admin, testAdminToken, nil)

	rec, resp := doRequest(t, h, http.MethodPost, "/api/orders/cancel", "1000", `{"requester_id":42}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "order cancelled", resp.Message)

	_, req := admin.last()
	assert.Equal(t, int64(42), req)
}
