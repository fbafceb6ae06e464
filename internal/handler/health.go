package handler

import (
	"context"
	"net/http"
	"time"

	natsclient "github.com/capitalize-ai/commerce-assistant/internal/nats"
	"github.com/capitalize-ai/commerce-assistant/internal/service"
)

const natsPingTimeout = time.Second

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *natsclient.Client
	registry   *service.Registry
	preload    []string
}

// NewHealthHandler creates a new health handler. natsClient is nil when the
// event bus is disabled; preload lists tenants that must be loaded before
// the instance reports ready.
func NewHealthHandler(natsClient *natsclient.Client, registry *service.Registry, preload []string) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
		registry:   registry,
		preload:    preload,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.natsClient != nil {
		ctx, cancel := context.WithTimeout(r.Context(), natsPingTimeout)
		defer cancel()
		if err := h.natsClient.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "NATS not connected",
			})
			return
		}
	}

	for _, id := range h.preload {
		if _, ok := h.registry.Lookup(id); !ok {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "catalog not loaded: " + id,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
