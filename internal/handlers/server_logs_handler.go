package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/logs"
	"github.com/ternarybob/folio/internal/models"
	"golang.org/x/time/rate"
)

// QueueStatsProvider exposes server log queue counters
type QueueStatsProvider interface {
	Stats() logs.QueueStats
}

// serverEventRequest is the body of POST /api/logs/server
type serverEventRequest struct {
	Source    string                 `json:"source" validate:"required,oneof=AUTH_SERVER API_ROUTER DATABASE_CONNECTOR SYSTEM_MONITOR IMAGE_PROCESSOR"`
	Level     string                 `json:"level" validate:"required,oneof=INFO WARN ERROR FATAL"`
	Message   string                 `json:"message" validate:"required"`
	Timestamp *time.Time             `json:"timestamp"`
	Context   map[string]interface{} `json:"context"`
	Error     *models.EventError     `json:"error"`
}

// ServerLogsHandler serves ingestion and reads of the server event log
type ServerLogsHandler struct {
	queue    interfaces.ServerEventLogger
	service  interfaces.ServerLogService
	stats    QueueStatsProvider
	limiter  *rate.Limiter
	location *time.Location
	logger   arbor.ILogger
}

// NewServerLogsHandler creates the handler. A zero ingest rate disables rate limiting.
func NewServerLogsHandler(queue interfaces.ServerEventLogger, service interfaces.ServerLogService, stats QueueStatsProvider, config common.ServerLogConfig, loc *time.Location, logger arbor.ILogger) *ServerLogsHandler {
	h := &ServerLogsHandler{
		queue:    queue,
		service:  service,
		stats:    stats,
		location: loc,
		logger:   logger,
	}
	if config.IngestRate > 0 {
		burst := config.IngestBurst
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(config.IngestRate), burst)
	}
	return h
}

// IngestHandler handles POST /api/logs/server
func (h *ServerLogsHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}
	if h.limiter != nil && !h.limiter.Allow() {
		WriteError(w, http.StatusTooManyRequests, "Too many server events, slow down")
		return
	}

	var req serverEventRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteError(w, decodeStatus(err), err.Error())
		return
	}

	event := models.ServerEvent{
		ID:      common.NewRecordID(),
		Source:  models.ProcessSource(req.Source),
		Level:   models.EventLevel(req.Level),
		Message: req.Message,
		Context: req.Context,
		Error:   req.Error,
	}
	if req.Timestamp != nil {
		event.Timestamp = *req.Timestamp
	}
	h.queue.Enqueue(event)

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"id":      event.ID,
	})
}

// DatesHandler handles GET /api/logs/server/dates
func (h *ServerLogsHandler) DatesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	dates, err := h.service.ListDates(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list server log dates")
		failRoute(w, r, h.queue, models.SourceAPIRouter, "Failed to list server log dates", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"dates":   dates,
	})
}

// ListHandler handles GET /api/logs/server?date=&levels=&sources=&limit=
func (h *ServerLogsHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	query := r.URL.Query()
	date := query.Get("date")
	if date == "" {
		date = logs.PartitionKey(time.Now(), h.location)
	}

	filter := interfaces.ServerLogFilter{}
	for _, level := range splitList(query.Get("levels")) {
		filter.Levels = append(filter.Levels, models.EventLevel(level))
	}
	for _, source := range splitList(query.Get("sources")) {
		filter.Sources = append(filter.Sources, models.ProcessSource(source))
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	events, err := h.service.GetEvents(r.Context(), date, filter)
	if err != nil {
		failRoute(w, r, h.queue, models.SourceAPIRouter, "Failed to read server logs", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"date":    date,
		"count":   len(events),
		"events":  events,
	})
}

// StatsHandler handles GET /api/logs/server/stats
func (h *ServerLogsHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	WriteJSON(w, http.StatusOK, h.stats.Stats())
}
