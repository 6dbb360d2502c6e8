package handlers

import (
	"net/http"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/request"
	"github.com/ndewijer/note-kfet-kiosk/internal/api/response"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
	"github.com/ndewijer/note-kfet-kiosk/internal/validation"
)

// DeveloperHandler handles HTTP requests for the operator endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the DeveloperService.
type DeveloperHandler struct {
	DeveloperService *service.DeveloperService
}

// NewDeveloperHandler creates a new DeveloperHandler with the provided service dependency.
func NewDeveloperHandler(developerService *service.DeveloperService) *DeveloperHandler {
	return &DeveloperHandler{
		DeveloperService: developerService,
	}
}

// GetLogs handles GET /api/developer/logs.
func (h *DeveloperHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	filters, err := request.ParseLogFilters(r.URL.Query())
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "Invalid filter parameters", err.Error())
		return
	}

	logs, err := h.DeveloperService.GetLogs(r.Context(), filters)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, logs)
}

// GetLoggingConfig handles GET /api/developer/system-settings/logging.
func (h *DeveloperHandler) GetLoggingConfig(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.DeveloperService.GetLoggingConfig())
}

// SetLoggingConfig handles PUT /api/developer/system-settings/logging.
func (h *DeveloperHandler) SetLoggingConfig(w http.ResponseWriter, r *http.Request) {
	var req request.SetLoggingConfig
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := validation.ValidateLoggingConfig(req); err != nil {
		respondError(w, err)
		return
	}

	cfg, err := h.DeveloperService.SetLoggingConfig(req.Level, req.PersistLevel)
	if err != nil {
		response.RespondError(w, http.StatusConflict, "Failed to update logging", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}
