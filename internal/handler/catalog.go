package handler

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/service"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

// ReloadRequest names the tenant to reload. It may be omitted when the
// token is bound to a tenant.
type ReloadRequest struct {
	TenantID string `json:"tenant_id"`
}

// CatalogHandler handles catalog administration endpoints.
type CatalogHandler struct {
	service *service.ChatService
	logger  *logger.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(svc *service.ChatService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: svc,
		logger:  log,
	}
}

// Reload handles POST /api/v1/catalog/reload
func (h *CatalogHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReloadRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenantID, ok := resolveTenant(w, r, req.TenantID)
	if !ok {
		return
	}

	if err := h.service.CatalogChanged(ctx, tenantID, service.OriginAPI); err != nil {
		h.logger.Error("catalog reload failed", zap.String("tenant_id", tenantID), zap.Error(err))
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "reloaded",
		"tenant_id": tenantID,
	})
}
