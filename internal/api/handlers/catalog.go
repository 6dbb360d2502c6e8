package handlers

import (
	"net/http"

	"github.com/ndewijer/note-kfet-kiosk/internal/service"
)

// CatalogHandler serves the button catalog.
type CatalogHandler struct {
	catalogService *service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// Categories returns the displayed buttons grouped by category.
//
// Endpoint: GET /api/catalog
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.Categories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// Button returns one button.
//
// Endpoint: GET /api/catalog/buttons/{id}
func (h *CatalogHandler) Button(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	button, err := h.catalogService.Template(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, button)
}

// Sync downloads the catalog from the note API now instead of waiting for the
// schedule. A failed sync keeps the previous catalog.
//
// Endpoint: POST /api/catalog/sync
// Response: 200 OK with the sync record
// Error: 502 when the note API could not be read
func (h *CatalogHandler) Sync(w http.ResponseWriter, r *http.Request) {
	record, err := h.catalogService.Sync(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}
