package handlers

import (
	"net/http"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/request"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
	"github.com/ndewijer/note-kfet-kiosk/internal/validation"
)

// MemberHandler handles aliases, friendships and the kiosk's own account.
type MemberHandler struct {
	memberService *service.MemberService
}

// NewMemberHandler creates a new MemberHandler
func NewMemberHandler(memberService *service.MemberService) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
	}
}

// Me returns the account the kiosk acts as, with its current balance.
//
// Endpoint: GET /api/me
func (h *MemberHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, err := h.memberService.CurrentAccount(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

// CreateAlias attaches a new alias to a note. Every message of a rejection is
// also shown as a banner.
//
// Endpoint: POST /api/aliases
// Body: request.CreateAliasRequest
// Response: 201 Created with the alias
func (h *MemberHandler) CreateAlias(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAliasRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := validation.ValidateCreateAlias(req); err != nil {
		respondError(w, err)
		return
	}

	alias, err := h.memberService.CreateAlias(r.Context(), req.Name, req.NoteID)
	if err != nil {
		notifyError(r, err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, alias)
}

// DeleteAlias removes an alias.
//
// Endpoint: DELETE /api/aliases/{id}
func (h *MemberHandler) DeleteAlias(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.memberService.DeleteAlias(r.Context(), id); err != nil {
		notifyError(r, err)
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTrust adds the note behind an alias as a friend.
//
// Endpoint: POST /api/trusts
// Body: request.CreateTrustRequest
// Response: 201 Created with the friendship
// Error: 400 when trusting oneself
func (h *MemberHandler) CreateTrust(w http.ResponseWriter, r *http.Request) {
	var req request.CreateTrustRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := validation.ValidateCreateTrust(req); err != nil {
		respondError(w, err)
		return
	}

	trust, err := h.memberService.CreateTrust(r.Context(), req.TrustingNoteID, req.Alias)
	if err != nil {
		notifyError(r, err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, trust)
}

// DeleteTrust removes a friendship.
//
// Endpoint: DELETE /api/trusts/{id}
func (h *MemberHandler) DeleteTrust(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.memberService.DeleteTrust(r.Context(), id); err != nil {
		notifyError(r, err)
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
