package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/capitalize-ai/commerce-assistant/pkg/metrics"
)

// SessionHeader lets widget clients name their chat session so the visitor
// limit follows the conversation rather than the network address.
const SessionHeader = "X-Session-ID"

// RateLimits configures the per-visitor and per-tenant budgets. A zero
// budget disables that limit.
type RateLimits struct {
	Visitor int
	Tenant  int
	Window  time.Duration
}

// RateLimit limits each visitor of a tenant and the tenant as a whole.
// Visitors are told apart by session header, then token subject, then IP.
// Requests without a tenant are limited by IP only.
func RateLimit(limits RateLimits) func(http.Handler) http.Handler {
	var chain []func(http.Handler) http.Handler
	if limits.Visitor > 0 {
		chain = append(chain, httprate.Limit(limits.Visitor, limits.Window,
			httprate.WithKeyFuncs(visitorKey),
			httprate.WithLimitHandler(limitExceeded("visitor", limits.Window)),
		))
	}
	if limits.Tenant > 0 {
		chain = append(chain, httprate.Limit(limits.Tenant, limits.Window,
			httprate.WithKeyFuncs(tenantKey),
			httprate.WithLimitHandler(limitExceeded("tenant", limits.Window)),
		))
	}
	return func(next http.Handler) http.Handler {
		for i := len(chain) - 1; i >= 0; i-- {
			next = chain[i](next)
		}
		return next
	}
}

func tenantKey(r *http.Request) (string, error) {
	if tenantID := GetTenantID(r.Context()); tenantID != "" {
		return "tenant:" + tenantID, nil
	}
	return httprate.KeyByIP(r)
}

func visitorKey(r *http.Request) (string, error) {
	tenantID := GetTenantID(r.Context())
	if tenantID == "" {
		return httprate.KeyByIP(r)
	}
	prefix := "tenant:" + tenantID
	if sid := r.Header.Get(SessionHeader); sid != "" && ValidateSessionID(sid) == nil {
		return prefix + ":session:" + sid, nil
	}
	if sub := GetSubject(r.Context()); sub != "" {
		return prefix + ":subject:" + sub, nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return prefix + ":ip:" + ip, nil
}

func limitExceeded(scope string, window time.Duration) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := GetTenantID(r.Context())
		if ValidateTenantID(tenantID) != nil {
			tenantID = "unknown"
		}
		metrics.RecordRateLimited(tenantID, scope)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", retryAfter)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limit exceeded","scope":"` + scope + `","retry_after":` + retryAfter + `}`))
	}
}
