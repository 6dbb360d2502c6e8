package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/response"
	"github.com/ndewijer/note-kfet-kiosk/internal/banner"
)

// MessageHandler serves the banner feed of the caller's session.
type MessageHandler struct{}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler() *MessageHandler {
	return &MessageHandler{}
}

// MessagesResponse lists the live banners with the refresh generation, so a
// polling page knows when to reload its read-only regions.
type MessagesResponse struct {
	Messages   []banner.Message `json:"messages"`
	Generation uint64           `json:"generation"`
}

// List returns the live banners, oldest first.
//
// Endpoint: GET /api/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, MessagesResponse{
		Messages:   s.Feed.List(),
		Generation: s.Refresh.Load(),
	})
}

// Fragment renders the live banners as HTML.
//
// Endpoint: GET /api/messages/fragment
func (h *MessageHandler) Fragment(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	fragment, err := s.Feed.Fragment()
	if err != nil {
		respondError(w, err)
		return
	}
	response.RespondHTML(w, http.StatusOK, fragment)
}

// Dismiss removes a banner. The id is checked by ValidateUUIDMiddleware.
//
// Endpoint: DELETE /api/messages/{uuid}
func (h *MessageHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid UUID format", err.Error())
		return
	}
	if err := s.Feed.Dismiss(id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
