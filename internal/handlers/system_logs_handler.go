package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/services/logviewer"
)

// SystemLogsHandler lets an admin read the process log file written by the arbor file writer
type SystemLogsHandler struct {
	service *logviewer.Service
	logger  arbor.ILogger
}

func NewSystemLogsHandler(service *logviewer.Service, logger arbor.ILogger) *SystemLogsHandler {
	return &SystemLogsHandler{
		service: service,
		logger:  logger,
	}
}

// ListLogFilesHandler handles GET /api/system/logs/files
func (h *SystemLogsHandler) ListLogFilesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	files, err := h.service.ListLogFiles()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list log files")
		WriteError(w, http.StatusInternalServerError, "Failed to list log files")
		return
	}

	WriteJSON(w, http.StatusOK, files)
}

// GetLogContentHandler handles GET /api/system/logs/content?filename=&limit=&levels=
func (h *SystemLogsHandler) GetLogContentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if RequireUser(w, r) == nil {
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		WriteError(w, http.StatusBadRequest, "filename is required")
		return
	}

	limit := 1000
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	entries, err := h.service.GetLogContent(filename, limit, splitList(r.URL.Query().Get("levels")))
	if err != nil {
		h.logger.Error().Err(err).Str("filename", filename).Msg("Failed to get log content")
		WriteError(w, http.StatusInternalServerError, "Failed to get log content")
		return
	}

	WriteJSON(w, http.StatusOK, entries)
}
