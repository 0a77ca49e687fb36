package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestLoggerPassesStatusThrough(t *testing.T) {
	logged := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/sale/status", nil)
	rr := httptest.NewRecorder()
	logged.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestCORS(t *testing.T) {
	next := okHandler()
	wrapped := CORS([]string{"https://shop.example.com"}, next)

	t.Run("no origin header passes untouched", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sale/status", nil)
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNoContent, rr.Code)
		require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allowed origin echoed with credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sale/status", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
		require.Equal(t, "https://shop.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/sale/reserve", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNoContent, rr.Code)
		require.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "X-CSRF-Token")
	})

	t.Run("preflight for unknown origin rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/sale/reserve", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
		require.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown origin on plain request gets no cors headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sale/status", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
		require.Equal(t, http.StatusNoContent, rr.Code)
		require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard allows any origin without credentials", func(t *testing.T) {
		open := CORS([]string{"*"}, next)
		req := httptest.NewRequest(http.MethodGet, "/sale/status", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		rr := httptest.NewRecorder()
		open.ServeHTTP(rr, req)
		require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		require.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
	})
}
