package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/logs"
	"github.com/ternarybob/folio/internal/models"
)

// AuditHandler serves the audit trail read API
type AuditHandler struct {
	audit    interfaces.AuditService
	events   interfaces.ServerEventLogger
	location *time.Location
	logger   arbor.ILogger
}

func NewAuditHandler(audit interfaces.AuditService, events interfaces.ServerEventLogger, loc *time.Location, logger arbor.ILogger) *AuditHandler {
	return &AuditHandler{
		audit:    audit,
		events:   events,
		location: loc,
		logger:   logger,
	}
}

// DatesHandler handles GET /api/events/dates
func (h *AuditHandler) DatesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	dates, err := h.audit.ListDates(r.Context())
	if err != nil {
		failRoute(w, r, h.events, models.SourceAPIRouter, "Failed to list audit dates", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"dates":   dates,
	})
}

// EventsHandler handles GET /api/events?date=YYYY-MM-DD (default today)
func (h *AuditHandler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = logs.PartitionKey(time.Now(), h.location)
	}

	events, err := h.audit.GetEvents(r.Context(), date)
	if err != nil {
		failRoute(w, r, h.events, models.SourceAPIRouter, "Failed to read audit events", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"date":    date,
		"events":  events,
	})
}
