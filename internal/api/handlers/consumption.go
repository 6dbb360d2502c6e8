package handlers

import (
	"errors"
	"html/template"
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

// ConsumptionHandler drives the consumption desk of the caller's session.
type ConsumptionHandler struct{}

// NewConsumptionHandler creates a new ConsumptionHandler
func NewConsumptionHandler() *ConsumptionHandler {
	return &ConsumptionHandler{}
}

// ConsumptionResponse is the desk state, plus the settled pairs when the call
// submitted a consumption.
type ConsumptionResponse struct {
	desk.ConsumptionView
	Result *service.BatchResult `json:"result,omitempty"`
}

func (h *ConsumptionHandler) respond(w http.ResponseWriter, d *desk.ConsumptionDesk, result *service.BatchResult, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ConsumptionResponse{ConsumptionView: d.View(), Result: result})
}

// View returns the desk state.
//
// Endpoint: GET /api/consos
func (h *ConsumptionHandler) View(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	h.respond(w, s.Consumption, nil, nil)
}

// Search runs a keystroke of the payer field. A response overtaken by a newer
// keystroke is not an error; the desk is returned unchanged.
//
// Endpoint: POST /api/consos/search
// Body: request.SearchRequest
func (h *ConsumptionHandler) Search(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req request.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	_, err := s.Consumption.Search(r.Context(), req.Pattern)
	if errors.Is(err, lookup.ErrStale) {
		err = nil
	}
	h.respond(w, s.Consumption, nil, err)
}

// SelectPayer adds a lookup result to the payers. In single mode with buttons
// selected the consumption is submitted and its result returned.
//
// Endpoint: POST /api/consos/payers?alias={aliasId}
func (h *ConsumptionHandler) SelectPayer(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	aliasID, err := aliasParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := s.Consumption.SelectPayer(r.Context(), aliasID)
	h.respond(w, s.Consumption, result, err)
}

// RemovePayer removes one unit of a payer.
//
// Endpoint: DELETE /api/consos/payers/{id}
func (h *ConsumptionHandler) RemovePayer(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	h.respond(w, s.Consumption, nil, s.Consumption.RemovePayer(id))
}

// AddItem adds one unit of a button. In single mode with a payer selected the
// consumption is submitted and its result returned.
//
// Endpoint: POST /api/consos/items/{id}
func (h *ConsumptionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := s.Consumption.AddItem(r.Context(), id)
	h.respond(w, s.Consumption, result, err)
}

// RemoveItem removes one unit of a button.
//
// Endpoint: DELETE /api/consos/items/{id}
func (h *ConsumptionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	h.respond(w, s.Consumption, nil, s.Consumption.RemoveItem(id))
}

// SetMode switches between single and double consumption.
//
// Endpoint: PUT /api/consos/mode
// Body: request.ModeRequest
func (h *ConsumptionHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req request.ModeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	m, err := mode.ParseConsumption(req.Mode)
	if err != nil {
		respondError(w, err)
		return
	}
	h.respond(w, s.Consumption, nil, s.Consumption.SetMode(m))
}

// Consume submits every payer × button pair.
//
// Endpoint: POST /api/consos/consume
// Response: 200 OK with the settled pairs
// Error: 400 when a cart is empty, 409 while a submission is in flight
func (h *ConsumptionHandler) Consume(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	result, err := s.Consumption.Consume(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	h.respond(w, s.Consumption, &result, nil)
}

// Reset empties both carts and the payer field.
//
// Endpoint: DELETE /api/consos
func (h *ConsumptionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	h.respond(w, s.Consumption, nil, s.Consumption.Reset())
}

// Fragment renders one list of the desk as HTML. An empty cart flagged by
// validation renders its message instead.
//
// Endpoint: GET /api/consos/fragments/{region}
// Regions: payers, items, results
func (h *ConsumptionHandler) Fragment(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	view := s.Consumption.View()

	region := chi.URLParam(r, "region")
	var chips []render.Chip
	switch region {
	case "payers":
		chips = view.Payers
	case "items":
		chips = view.Items
	case "results":
		chips = view.Results
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

func renderRegion(chips []render.Chip, notice string) (template.HTML, error) {
	if len(chips) == 0 && notice != "" {
		return render.Notice(notice)
	}
	return render.Fragment(chips)
}
