package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refstats/internal/config"
)

func corsHandler(t *testing.T, cfg *config.CORSConfig) http.Handler {
	t.Helper()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return NewCORS(cfg).Handler()(next)
}

// ========== Defaults ==========

func TestCORS_ReadOnlyDefaults(t *testing.T) {
	h := corsHandler(t, &config.CORSConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORS_Preflight(t *testing.T) {
	h := corsHandler(t, &config.CORSConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/metrics", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rec.Body.String())
}

// ========== Configured values ==========

func TestCORS_ConfiguredLists(t *testing.T) {
	h := corsHandler(t, &config.CORSConfig{
		Origins: []string{"https://dash.example.com"},
		Methods: []string{"GET", "HEAD", "OPTIONS"},
		Headers: []string{"Content-Type", "X-Request-ID"},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,HEAD,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type,X-Request-ID", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestNewCORS_NilConfigPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewCORS(nil)
	})
}
