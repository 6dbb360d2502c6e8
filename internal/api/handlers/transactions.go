package handlers

import (
	"net/http"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/request"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
	"github.com/ndewijer/note-kfet-kiosk/internal/session"
	"github.com/ndewijer/note-kfet-kiosk/internal/validation"
)

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	validityService *service.ValidityService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(validityService *service.ValidityService) *TransactionHandler {
	return &TransactionHandler{
		validityService: validityService,
	}
}

// ToggleValidity validates an invalid transaction or invalidates a valid one.
// On success the session's read-only regions are flagged for refresh; on
// failure the server's messages become danger banners.
//
// Endpoint: PATCH /api/transactions/{id}/validity
// Body: request.ToggleValidityRequest
// Response: 200 OK with the updated transaction
func (h *TransactionHandler) ToggleValidity(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req request.ToggleValidityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := validation.ValidateToggleValidity(req); err != nil {
		respondError(w, err)
		return
	}

	tx, err := h.validityService.Toggle(r.Context(), id, req.ResourceType, req.Valid, req.InvalidityReason)
	if err != nil {
		notifyError(r, err)
		respondError(w, err)
		return
	}

	if s, ok := session.FromContext(r.Context()); ok {
		s.Refresh.Bump()
	}
	respondJSON(w, http.StatusOK, tx)
}
