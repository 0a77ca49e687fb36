package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
)

const (
	csrfCookieName = "sale_csrf"
	csrfHeaderName = "X-CSRF-Token"
)

// HandleCSRFToken issues a double-submit token: one random value, set both
// as a cookie and in the response body. Mutating requests must echo it in
// the X-CSRF-Token header.
func HandleCSRFToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		token := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
	}
}

// RequireCSRF rejects requests whose X-CSRF-Token header does not match the
// token cookie. The compare is constant-time.
func RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusForbidden, codeCSRFRequired, "csrf token required")
			return
		}
		header := r.Header.Get(csrfHeaderName)
		if header == "" {
			writeError(w, http.StatusForbidden, codeCSRFRequired, "csrf token required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
			writeError(w, http.StatusForbidden, codeCSRFMismatch, "csrf token mismatch")
			return
		}
		next.ServeHTTP(w, r)
	})
}
