// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/middleware"
	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/internal/service"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

// ChatHandler handles chat and session endpoints.
type ChatHandler struct {
	service  *service.ChatService
	provider string
	logger   *logger.Logger
}

// NewChatHandler creates a new chat handler. provider is reported by the
// stats endpoint.
func NewChatHandler(svc *service.ChatService, provider string, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service:  svc,
		provider: provider,
		logger:   log,
	}
}

// resolveTenant picks the tenant bound to the request. A tenant named in the
// body or query must match the authenticated one.
func resolveTenant(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	tenantID := middleware.GetTenantID(r.Context())
	if requested == "" {
		requested = r.URL.Query().Get("tenant_id")
	}
	switch {
	case tenantID == "":
		tenantID = requested
	case requested != "" && requested != tenantID:
		writeError(w, http.StatusForbidden, "tenant mismatch")
		return "", false
	}
	if err := middleware.ValidateTenantID(tenantID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	middleware.Annotate(r.Context(), tenantID, "")
	return tenantID, true
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenantID, ok := resolveTenant(w, r, req.TenantID)
	if !ok {
		return
	}
	req.TenantID = tenantID
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(middleware.SessionHeader)
	}

	if err := middleware.ValidateMessage(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateSessionID(req.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.CorrelationID = middleware.GetCorrelationID(ctx)

	resp, err := h.service.Chat(ctx, req)
	if err != nil {
		h.logger.Warn("chat request rejected", zap.String("tenant_id", tenantID), zap.Error(err))
		writeAppError(w, err)
		return
	}
	middleware.Annotate(ctx, "", resp.SessionID)

	writeJSON(w, http.StatusOK, resp)
}

// GetSession handles GET /api/v1/sessions/:id
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := resolveTenant(w, r, "")
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	middleware.Annotate(r.Context(), "", sessionID)

	snap, found := h.service.Session(tenantID, sessionID)
	if !found {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// DeleteSession handles DELETE /api/v1/sessions/:id
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := resolveTenant(w, r, "")
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	middleware.Annotate(r.Context(), "", sessionID)

	if !h.service.ResetSession(tenantID, sessionID) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/v1/stats. Callers without catalog:write only see
// their own tenant.
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := h.service.Stats(h.provider)

	if !middleware.HasScope(ctx, middleware.ScopeCatalogWrite) {
		own := middleware.GetTenantID(ctx)
		filtered := stats.Tenants[:0]
		for _, t := range stats.Tenants {
			if t.TenantID == own {
				filtered = append(filtered, t)
			}
		}
		stats.Tenants = filtered
	}

	writeJSON(w, http.StatusOK, stats)
}
