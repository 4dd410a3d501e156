package scan

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, cat *fakeCatalog, mov *fakeMovements) (*chi.Mux, *Handler) {
	t.Helper()
	handler := NewHandler(slog.New(slog.DiscardHandler), newTestProcessor(cat, mov, nil, nil))
	r := chi.NewRouter()
	r.Route("/webhooks/scan", handler.MountRoutes)
	return r, handler
}

func postScan(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleScanSuccess(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{}
	router, _ := newTestRouter(t, cat, mov)

	rec := postScan(t, router, `{"barcode":"ABC123","device_id":"ESP32_01","timestamp":"2026-08-31T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Product ProductResult `json:"product"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, MsgProcessed, resp.Message)
	require.Equal(t, "ABC123", resp.Product.SKU)
	require.Equal(t, 5, resp.Product.OldQuantity)
	require.Equal(t, 4, resp.Product.NewQuantity)
}

func TestHandleScanNotFound(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{}
	router, _ := newTestRouter(t, cat, mov)

	rec := postScan(t, router, `{"barcode":"NOPE","device_id":"ESP32_01"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp failureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, MsgProductNotFound, resp.Message)
	require.Equal(t, "NOPE", resp.Barcode)
	require.Equal(t, 0, mov.count())
}

func TestHandleScanMalformedBody(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{}
	router, _ := newTestRouter(t, cat, mov)

	rec := postScan(t, router, `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, cat.lookupCalls)
	require.Equal(t, 0, mov.count())
}

func TestHandleScanMissingBarcode(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{}
	router, _ := newTestRouter(t, cat, mov)

	rec := postScan(t, router, `{"device_id":"ESP32_01"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp failureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, 0, cat.lookupCalls)
}

func TestHandleScanMovementFailure(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{appendErr: errors.New("db down")}
	router, _ := newTestRouter(t, cat, mov)

	rec := postScan(t, router, `{"barcode":"ABC123","device_id":"ESP32_01"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp failureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, MsgMovementFailed, resp.Message)
	require.Equal(t, 0, cat.decrementCalls)
}

func TestHandleLivenessTouchesNoStore(t *testing.T) {
	cat := newFakeCatalog(testProduct("ABC123", 5))
	mov := &fakeMovements{}
	router, handler := newTestRouter(t, cat, mov)
	fixed := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	handler.now = func() time.Time { return fixed }

	req := httptest.NewRequest(http.MethodGet, "/webhooks/scan", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp["message"], "active")
	require.Equal(t, "2026-08-31T10:00:00Z", resp["timestamp"])
	require.Equal(t, 0, cat.lookupCalls)
	require.Equal(t, 0, mov.count())
}
