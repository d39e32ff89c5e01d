package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/retention"
)

// Pruner runs one retention pass
type Pruner interface {
	Prune(ctx context.Context) (*retention.Result, error)
}

// RetentionHandler lets an admin trigger a retention pass outside the schedule
type RetentionHandler struct {
	pruner Pruner
	events interfaces.ServerEventLogger
	logger arbor.ILogger
}

func NewRetentionHandler(pruner Pruner, events interfaces.ServerEventLogger, logger arbor.ILogger) *RetentionHandler {
	return &RetentionHandler{
		pruner: pruner,
		events: events,
		logger: logger,
	}
}

// PruneHandler handles POST /api/retention/prune
func (h *RetentionHandler) PruneHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	result, err := h.pruner.Prune(r.Context())
	if err != nil {
		failRoute(w, r, h.events, models.SourceSystemMonitor, "Retention pass failed", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}
