package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"flashsale/sale"
)

// StatusReader is the minimal interface the status endpoint needs.
type StatusReader interface {
	Status(ctx context.Context) (sale.Status, error)
}

// Reserver is the minimal interface the reserve endpoint needs.
type Reserver interface {
	Reserve(ctx context.Context, buyerID string) (sale.Result, error)
}

// PurchaseReader is the minimal interface the purchase lookup needs.
type PurchaseReader interface {
	Lookup(ctx context.Context, buyerID string) (sale.Purchase, error)
}

// OrderLogReader exposes the store's append-only order log.
type OrderLogReader interface {
	Orders(ctx context.Context) ([]sale.Order, error)
}

// DLQProcessor redrives dead-lettered order events.
type DLQProcessor interface {
	ProcessDLQ(ctx context.Context) (int, error)
}

type reserveRequest struct {
	BuyerID string `json:"buyer_id"`
}

type reserveResponse struct {
	Outcome   string `json:"outcome"`
	OrderID   string `json:"order_id,omitempty"`
	Remaining int64  `json:"remaining"`
}

// HandleStatus returns the sale phase and live stock.
func HandleStatus(svc StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		st, err := svc.Status(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// HandleReserve runs the reservation protocol for the posted buyer and maps
// the outcome onto a status code. budget caps how long one request may spend
// in the store, retries included, so a dead store cannot pin workers.
func HandleReserve(svc Reserver, budget time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req reserveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidBody, "invalid request body")
			return
		}
		buyerID, err := sale.ValidateBuyerID(req.BuyerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidBuyerID, err.Error())
			return
		}

		ctx := r.Context()
		if budget > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, budget)
			defer cancel()
		}

		res, err := svc.Reserve(ctx, buyerID)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		switch res.Outcome {
		case sale.OutcomeReserved:
			writeJSON(w, http.StatusOK, reserveResponse{
				Outcome:   res.Outcome.String(),
				OrderID:   res.OrderID,
				Remaining: res.Remaining,
			})
		case sale.OutcomeAlreadyReserved:
			writeJSON(w, http.StatusConflict, reserveResponse{
				Outcome: res.Outcome.String(),
				OrderID: res.OrderID,
			})
		case sale.OutcomeSoldOut:
			writeError(w, http.StatusGone, codeSoldOut, "sold out")
		case sale.OutcomeWindowClosed:
			writeError(w, http.StatusForbidden, codeWindowClosed, "sale window is closed")
		case sale.OutcomeBusy:
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, codeBusy, "store is busy, try again")
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
	}
}

// HandleLookup reports whether the buyer holds a committed reservation.
func HandleLookup(svc PurchaseReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		buyerID, err := sale.ValidateBuyerID(r.URL.Query().Get("buyer_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidBuyerID, err.Error())
			return
		}
		p, err := svc.Lookup(r.Context(), buyerID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// HandleOrders dumps the order log in commit order. Operator endpoint.
func HandleOrders(svc OrderLogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		orders, err := svc.Orders(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

// HandleRecoverDLQ redrives the dead-letter queue once and reports how many
// events were recovered. Operator endpoint.
func HandleRecoverDLQ(svc DLQProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		n, err := svc.ProcessDLQ(r.Context())
		if err != nil {
			slog.Error("dlq recovery failed", "error", err)
			writeError(w, http.StatusInternalServerError, codeInternalError, "dlq recovery failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"recovered": n})
	}
}

// HandleHealthz is the liveness probe.
func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, sale.ErrNotConfigured) {
		writeError(w, http.StatusInternalServerError, codeSaleNotConfigured, "sale is not configured")
		return
	}
	slog.Error("store request failed", "error", err)
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
