// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ChatRequestsTotal counts chat turns by resolved intent.
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Total chat turns by intent",
		},
		[]string{"tenant_id", "intent"},
	)

	// ChatDuration tracks end-to-end chat turn latency.
	ChatDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_duration_seconds",
			Help:    "Chat turn duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2, 3},
		},
		[]string{"tenant_id"},
	)

	// IntentLayerTotal counts which classifier layer answered.
	IntentLayerTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_layer_total",
			Help: "Intent classifications by layer",
		},
		[]string{"layer"},
	)

	// CacheLookupsTotal counts result cache lookups by tier and outcome.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_lookups_total",
			Help: "Result cache lookups",
		},
		[]string{"tier", "result"},
	)

	// RetrievalResults tracks how many products a retrieval returned.
	RetrievalResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retrieval_results",
			Help:    "Products returned per retrieval",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// LLMCallsTotal counts LLM calls by operation and outcome.
	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "Total LLM calls",
		},
		[]string{"op", "status"},
	)

	// LLMCallDuration tracks LLM call latency.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, .75, 1, 1.5, 2, 5},
		},
		[]string{"op"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// SessionsActive tracks live sessions per tenant.
	SessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of live chat sessions",
		},
		[]string{"tenant_id"},
	)

	// CatalogReloadsTotal counts catalog rebuilds.
	CatalogReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Catalog reloads by outcome",
		},
		[]string{"tenant_id", "status"},
	)

	// CatalogProducts tracks the indexed product count per tenant.
	CatalogProducts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Products in the tenant index",
		},
		[]string{"tenant_id"},
	)

	// EventsPublishedTotal counts chat events published to NATS.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events published to the message bus",
		},
		[]string{"type", "status"},
	)

	// RateLimitedTotal counts requests rejected by a rate limit.
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests rejected by rate limiting",
		},
		[]string{"tenant_id", "scope"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordChat records a completed chat turn.
func RecordChat(tenantID, intent string, duration time.Duration) {
	ChatRequestsTotal.WithLabelValues(tenantID, intent).Inc()
	ChatDuration.WithLabelValues(tenantID).Observe(duration.Seconds())
}

// RecordIntentLayer records the classifier layer that produced a result.
func RecordIntentLayer(layer string) {
	IntentLayerTotal.WithLabelValues(layer).Inc()
}

// RecordCacheLookup records a result cache lookup.
func RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(tier, result).Inc()
}

// RecordLLMCall records metrics for a single LLM call.
func RecordLLMCall(op, status string, duration time.Duration) {
	LLMCallsTotal.WithLabelValues(op, status).Inc()
	LLMCallDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordLLMTokens records token usage reported by the provider.
func RecordLLMTokens(model string, tokensIn, tokensOut int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordCatalogReload records a catalog rebuild and the resulting size.
func RecordCatalogReload(tenantID, status string, products int) {
	CatalogReloadsTotal.WithLabelValues(tenantID, status).Inc()
	if status == "ok" {
		CatalogProducts.WithLabelValues(tenantID).Set(float64(products))
	}
}

// SetSessionsActive publishes the live session count of a tenant.
func SetSessionsActive(tenantID string, n int) {
	SessionsActive.WithLabelValues(tenantID).Set(float64(n))
}

// RecordEventPublished records the outcome of publishing an event.
func RecordEventPublished(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// RecordRateLimited records a request rejected by the tenant or visitor limit.
func RecordRateLimited(tenantID, scope string) {
	RateLimitedTotal.WithLabelValues(tenantID, scope).Inc()
}
