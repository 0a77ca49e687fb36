package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"flashsale/sale"
)

var rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sale_rate_limited_total",
	Help: "Requests rejected by the rate limiter",
})

// rateLimitScript runs a token bucket atomically in Redis so every instance
// shares one bucket per client.
//
//	KEYS[1] = bucket key
//	ARGV[1] = refill rate, tokens per second
//	ARGV[2] = capacity
//	ARGV[3] = current unix time, fractional seconds
//
// Returns 1 when a token was consumed, 0 when the bucket is empty.
var rateLimitScript = redis.NewScript(`
local tokens = tonumber(redis.call("HGET", KEYS[1], "tokens"))
local stamp = tonumber(redis.call("HGET", KEYS[1], "stamp"))
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

if not tokens or not stamp then
    tokens = capacity
    stamp = now
end

local elapsed = now - stamp
if elapsed > 0 then
    tokens = tokens + elapsed * rate
    if tokens > capacity then
        tokens = capacity
    end
    stamp = now
end

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "stamp", stamp)
redis.call("EXPIRE", KEYS[1], 120)

return allowed
`)

// RateLimiter throttles reserve traffic per client against the shared
// store. A nil limiter or a non-positive RPM disables the gate entirely;
// nothing about correctness depends on it.
type RateLimiter struct {
	client *redis.Client
	rpm    int
	burst  int
}

func NewRateLimiter(client *redis.Client, rpm, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{client: client, rpm: rpm, burst: burst}
}

// Allow consumes one token from the client's bucket.
func (l *RateLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	rate := float64(l.rpm) / 60
	now := float64(time.Now().UnixMicro()) / 1e6

	res, err := rateLimitScript.Run(ctx, l.client,
		[]string{"sale:ratelimit:" + clientKey}, rate, l.burst, now).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}

// Limit gates next behind the bucket. Buckets are keyed by buyer id when
// the body carries one, else by remote IP. Limiter failures fail open.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	if l == nil || l.rpm <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := peekBuyerID(r)
		if key == "" {
			key = clientIP(r)
		}
		ok, err := l.Allow(r.Context(), key)
		if err != nil {
			slog.Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			rateLimitedTotal.Inc()
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// peekLimit caps how much body the limiter will read; reserve payloads are
// a few dozen bytes.
const peekLimit = 4 << 10

type replayBody struct {
	io.Reader
	io.Closer
}

// peekBuyerID reads a bounded prefix of the body to key the bucket by buyer
// when one is present, then stitches the body back together for the handler.
func peekBuyerID(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	prefix, err := io.ReadAll(io.LimitReader(r.Body, peekLimit))
	r.Body = replayBody{io.MultiReader(bytes.NewReader(prefix), r.Body), r.Body}
	if err != nil {
		return ""
	}
	var req reserveRequest
	if json.Unmarshal(prefix, &req) != nil {
		return ""
	}
	buyerID, err := sale.ValidateBuyerID(req.BuyerID)
	if err != nil {
		return ""
	}
	return buyerID
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
