package handler

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed  = "method_not_allowed"
	codeInvalidBody       = "invalid_request_body"
	codeInvalidBuyerID    = "invalid_buyer_id"
	codeAlreadyReserved   = "already_reserved"
	codeSoldOut           = "sold_out"
	codeWindowClosed      = "window_closed"
	codeBusy              = "busy"
	codeSaleNotConfigured = "sale_not_configured"
	codeCSRFRequired      = "csrf_token_required"
	codeCSRFMismatch      = "csrf_token_mismatch"
	codeRateLimited       = "rate_limited"
	codeForbidden         = "forbidden"
	codeInternalError     = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{Error: msg, Code: code})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
