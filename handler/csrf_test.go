package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleCSRFTokenIssuesMatchingPair(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/csrf", nil)
	rr := httptest.NewRecorder()
	HandleCSRFToken().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)

	body := decodeBody(t, rr)
	require.Equal(t, cookie.Value, body["csrf_token"])
}

func TestHandleCSRFTokensAreUnique(t *testing.T) {
	issue := func() string {
		req := httptest.NewRequest(http.MethodGet, "/csrf", nil)
		rr := httptest.NewRecorder()
		HandleCSRFToken().ServeHTTP(rr, req)
		return decodeBody(t, rr)["csrf_token"].(string)
	}
	require.NotEqual(t, issue(), issue())
}

func TestRequireCSRF(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gated := RequireCSRF(next)

	newReq := func(cookie, header string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/sale/reserve", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookie})
		}
		if header != "" {
			req.Header.Set(csrfHeaderName, header)
		}
		return req
	}

	t.Run("matching pair passes", func(t *testing.T) {
		rr := httptest.NewRecorder()
		gated.ServeHTTP(rr, newReq("tok-1", "tok-1"))
		require.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("missing cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		gated.ServeHTTP(rr, newReq("", "tok-1"))
		require.Equal(t, http.StatusForbidden, rr.Code)
		require.Equal(t, codeCSRFRequired, decodeBody(t, rr)["code"])
	})

	t.Run("missing header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		gated.ServeHTTP(rr, newReq("tok-1", ""))
		require.Equal(t, http.StatusForbidden, rr.Code)
		require.Equal(t, codeCSRFRequired, decodeBody(t, rr)["code"])
	})

	t.Run("mismatch", func(t *testing.T) {
		rr := httptest.NewRecorder()
		gated.ServeHTTP(rr, newReq("tok-1", "tok-2"))
		require.Equal(t, http.StatusForbidden, rr.Code)
		require.Equal(t, codeCSRFMismatch, decodeBody(t, rr)["code"])
	})
}
