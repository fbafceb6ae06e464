package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

// TurnReader reads published chat turns of a tenant.
type TurnReader interface {
	Turns(ctx context.Context, tenantID string, afterSequence uint64, limit int) ([]model.ChatEvent, uint64, bool, error)
}

// TurnsResponse is one page of chat turns.
type TurnsResponse struct {
	Turns        []model.ChatEvent `json:"turns"`
	LastSequence uint64            `json:"last_sequence"`
	HasMore      bool              `json:"has_more"`
}

// TurnHandler serves the chat turn log.
type TurnHandler struct {
	reader TurnReader
	logger *logger.Logger
}

// NewTurnHandler creates a new turn handler.
func NewTurnHandler(reader TurnReader, log *logger.Logger) *TurnHandler {
	return &TurnHandler{
		reader: reader,
		logger: log,
	}
}

// List handles GET /api/v1/turns
// Supports ?after_sequence=N for resuming from a specific point
func (h *TurnHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := resolveTenant(w, r, "")
	if !ok {
		return
	}

	afterSequence := uint64(0)
	limit := 50

	if seq := r.URL.Query().Get("after_sequence"); seq != "" {
		if parsed, err := strconv.ParseUint(seq, 10, 64); err == nil {
			afterSequence = parsed
		}
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	turns, last, more, err := h.reader.Turns(r.Context(), tenantID, afterSequence, limit)
	if err != nil {
		h.logger.Error("failed to read turns", zap.String("tenant_id", tenantID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read turns")
		return
	}
	if turns == nil {
		turns = []model.ChatEvent{}
	}

	writeJSON(w, http.StatusOK, &TurnsResponse{
		Turns:        turns,
		LastSequence: last,
		HasMore:      more,
	})
}
