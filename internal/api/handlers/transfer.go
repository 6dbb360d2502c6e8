package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/request"
	"github.com/ndewijer/note-kfet-kiosk/internal/api/response"
	"github.com/ndewijer/note-kfet-kiosk/internal/desk"
	"github.com/ndewijer/note-kfet-kiosk/internal/lookup"
	"github.com/ndewijer/note-kfet-kiosk/internal/mode"
	"github.com/ndewijer/note-kfet-kiosk/internal/render"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
)

// TransferHandler drives the transfer desk of the caller's session.
type TransferHandler struct{}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler() *TransferHandler {
	return &TransferHandler{}
}

// TransferResponse is the desk state, plus the settled requests after a
// submission.
type TransferResponse struct {
	desk.TransferView
	Result *service.BatchResult `json:"result,omitempty"`
}

func (h *TransferHandler) respond(w http.ResponseWriter, d *desk.TransferDesk, result *service.BatchResult, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, TransferResponse{TransferView: d.View(), Result: result})
}

func fieldParam(r *http.Request) (desk.Field, error) {
	return desk.ParseField(chi.URLParam(r, "field"))
}

// View returns the desk state.
//
// Endpoint: GET /api/transfer
func (h *TransferHandler) View(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	h.respond(w, s.Transfer, nil, nil)
}

// Search runs a keystroke of the source or destination field.
//
// Endpoint: POST /api/transfer/{field}/search
// Body: request.SearchRequest
func (h *TransferHandler) Search(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	f, err := fieldParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req request.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	_, err = s.Transfer.Search(r.Context(), f, req.Pattern)
	if errors.Is(err, lookup.ErrStale) {
		err = nil
	}
	h.respond(w, s.Transfer, nil, err)
}

// Select adds a lookup result to the sources or destinations.
//
// Endpoint: POST /api/transfer/{field}?alias={aliasId}
func (h *TransferHandler) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	f, err := fieldParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	aliasID, err := aliasParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	h.respond(w, s.Transfer, nil, s.Transfer.Select(f, aliasID))
}

// Remove removes one unit of a source or destination.
//
// Endpoint: DELETE /api/transfer/{field}/{id}
func (h *TransferHandler) Remove(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	f, err := fieldParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	h.respond(w, s.Transfer, nil, s.Transfer.Remove(f, id))
}

// SourceMe makes the kiosk's own note the only source.
//
// Endpoint: POST /api/transfer/me
func (h *TransferHandler) SourceMe(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	h.respond(w, s.Transfer, nil, s.Transfer.SourceMe(r.Context()))
}

// SetMode switches between transfer, gift, credit and debit.
//
// Endpoint: PUT /api/transfer/mode
// Body: request.ModeRequest
func (h *TransferHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req request.ModeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	m, err := mode.ParseTransfer(req.Mode)
	if err != nil {
		respondError(w, err)
		return
	}
	h.respond(w, s.Transfer, nil, s.Transfer.SetMode(m))
}

// Submit validates the form and issues the requests of the current mode.
//
// Endpoint: POST /api/transfer/submit
// Body: request.TransferRequest
// Response: 200 OK with the settled requests
// Error: 400 with per-field messages, 409 while a submission is in flight
func (h *TransferHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req request.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := s.Transfer.Submit(r.Context(), req.Form())
	if err != nil {
		respondError(w, err)
		return
	}
	h.respond(w, s.Transfer, &result, nil)
}

// Reset empties both carts, both fields and the holder names.
//
// Endpoint: DELETE /api/transfer
func (h *TransferHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	h.respond(w, s.Transfer, nil, s.Transfer.Reset())
}

// Fragment renders one list of the desk as HTML.
//
// Endpoint: GET /api/transfer/fragments/{region}
// Regions: sources, destinations, sourceResults, destinationResults
func (h *TransferHandler) Fragment(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	view := s.Transfer.View()

	region := chi.URLParam(r, "region")
	var chips []render.Chip
	switch region {
	case "sources":
		chips = view.Sources
	case "destinations":
		chips = view.Destinations
	case "sourceResults":
		chips = view.SourceResults
	case "destinationResults":
		chips = view.DestResults
	default:
		response.RespondError(w, http.StatusNotFound, "unknown region", region)
		return
	}

	fragment, err := renderRegion(chips, view.Errors[region])
	if err != nil {
		respondError(w, err)
		return
	}
	response.RespondHTML(w, http.StatusOK, fragment)
}
