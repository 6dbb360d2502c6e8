package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/request"
	"github.com/ndewijer/note-kfet-kiosk/internal/api/response"
	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
	"github.com/ndewijer/note-kfet-kiosk/internal/session"
	"github.com/ndewijer/note-kfet-kiosk/internal/validation"
)

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data any) {
	response.RespondJSON(w, status, data)
}

// respondError maps a service error onto a status code and error body.
//
// Mapping:
//   - *validation.Error: 400 with the per-field messages
//   - ErrLocked: 409, a submission is in flight
//   - not-found sentinels: 404
//   - malformed input sentinels: 400
//   - note API rejections: 422 with every message of the server
//   - note API unreachable or failing: 502 or 503
func respondError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		response.RespondError(w, http.StatusBadRequest, "validation failed", verr.Fields)
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrLocked):
		response.RespondError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, apperrors.ErrTemplateNotFound),
		errors.Is(err, apperrors.ErrLookupResultNotFound),
		errors.Is(err, apperrors.ErrMessageNotFound),
		errors.Is(err, apperrors.ErrSpecialAccountNotFound),
		errors.Is(err, apperrors.ErrSessionNotFound):
		response.RespondError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, apperrors.ErrInvalidID),
		errors.Is(err, apperrors.ErrInvalidMode),
		errors.Is(err, apperrors.ErrUnknownField),
		errors.Is(err, apperrors.ErrSelfTrust),
		errors.Is(err, apperrors.ErrInvalidCursor):
		response.RespondError(w, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, apperrors.ErrNoIdentity),
		errors.Is(err, noteapi.ErrUnavailable):
		response.RespondError(w, http.StatusServiceUnavailable, err.Error(), "")
	case noteapi.IsRejection(err):
		apiErr, _ := noteapi.AsAPIError(err)
		response.RespondError(w, http.StatusUnprocessableEntity, apiErr.Message(), apiErr.Messages())
	case isUpstream(err):
		response.RespondError(w, http.StatusBadGateway, "note API request failed", err.Error())
	default:
		response.RespondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

func isUpstream(err error) bool {
	if _, ok := noteapi.AsAPIError(err); ok {
		return true
	}
	for _, sentinel := range []error{
		apperrors.ErrFailedToLookup,
		apperrors.ErrFailedToSyncCatalog,
		apperrors.ErrFailedToCreateAlias,
		apperrors.ErrFailedToDeleteAlias,
		apperrors.ErrFailedToCreateTrust,
		apperrors.ErrFailedToDeleteTrust,
		apperrors.ErrFailedToToggleValidity,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// notifyError shows err as sticky danger banners of the caller's session, one
// per server message.
func notifyError(r *http.Request, err error) {
	if s, ok := session.FromContext(r.Context()); ok {
		s.Feed.ErrMsg(err, 0)
	}
}

// currentSession returns the session attached by the session middleware.
func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		respondError(w, apperrors.ErrSessionNotFound)
	}
	return s, ok
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &validation.Error{Fields: map[string]string{"body": fmt.Sprintf("invalid JSON: %v", err)}}
	}
	return nil
}

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int, error) {
	return validation.ParseID(chi.URLParam(r, "id"))
}

// aliasParam reads the selected lookup result: the alias query parameter of
// a result chip, else the aliasId of the body. Zero selects the first result.
func aliasParam(r *http.Request) (int, error) {
	if raw := r.URL.Query().Get("alias"); raw != "" {
		return validation.ParseID(raw)
	}
	var req request.SelectRequest
	if err := decodeJSON(r, &req); err != nil {
		return 0, err
	}
	return req.AliasID, nil
}
