package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndewijer/note-kfet-kiosk/internal/api/response"
	"github.com/ndewijer/note-kfet-kiosk/internal/apperrors"
	"github.com/ndewijer/note-kfet-kiosk/internal/noteapi"
	"github.com/ndewijer/note-kfet-kiosk/internal/testutil"
	"github.com/ndewijer/note-kfet-kiosk/internal/validation"
)

// TestRespondJSON tests the respondJSON helper function.
// This is an internal test (package handlers, not handlers_test) because
// respondJSON is unexported.
func TestRespondJSON(t *testing.T) {
	t.Run("sets content-type and status code correctly", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"message": "success"}

		respondJSON(w, 200, data)

		if w.Code != 200 {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Header().Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type 'application/json', got '%s'", w.Header().Get("Content-Type"))
		}
	})

	t.Run("handles nil data without error", func(t *testing.T) {
		w := httptest.NewRecorder()

		respondJSON(w, 204, nil)

		if w.Code != 204 {
			t.Errorf("Expected status 204, got %d", w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("Expected empty body, got %q", w.Body.String())
		}
	})

	t.Run("handles un-encodable data gracefully", func(t *testing.T) {
		w := httptest.NewRecorder()

		// Channels cannot be JSON encoded
		data := map[string]any{
			"channel": make(chan int),
		}

		// Should not panic, just log the error
		respondJSON(w, 200, data)

		if w.Code != 200 {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}

// TestRespondError tests the mapping of service errors onto status codes.
//
// WHY: The page decides what to do from the status alone: 409 means wait for
// the running submission, 400 marks form fields, 422 shows the server's words.
// A wrong code makes the page retry a payment or hide a rejection.
func TestRespondError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &validation.Error{Fields: map[string]string{"amount": validation.MsgRequired}}, http.StatusBadRequest},
		{"locked", apperrors.ErrLocked, http.StatusConflict},
		{"wrapped not found", fmt.Errorf("lookup: %w", apperrors.ErrTemplateNotFound), http.StatusNotFound},
		{"message not found", apperrors.ErrMessageNotFound, http.StatusNotFound},
		{"self trust", apperrors.ErrSelfTrust, http.StatusBadRequest},
		{"unknown field", apperrors.ErrUnknownField, http.StatusBadRequest},
		{"no identity", apperrors.ErrNoIdentity, http.StatusServiceUnavailable},
		{"breaker open", noteapi.ErrUnavailable, http.StatusServiceUnavailable},
		{"rejection", testutil.Rejection("Solde insuffisant"), http.StatusUnprocessableEntity},
		{"server error", &noteapi.APIError{StatusCode: 502, Body: "bad gateway"}, http.StatusBadGateway},
		{"transport error", fmt.Errorf("%w: %w", apperrors.ErrFailedToLookup, errors.New("connection refused")), http.StatusBadGateway},
		{"anything else", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			respondError(w, tt.err)

			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	t.Run("validation errors carry the fields", func(t *testing.T) {
		w := httptest.NewRecorder()

		respondError(w, &validation.Error{Fields: map[string]string{"reason": validation.MsgRequired}})

		var body struct {
			Error   string            `json:"error"`
			Details map[string]string `json:"details"`
		}
		testutil.DecodeJSON(t, w, &body)
		if body.Details["reason"] != validation.MsgRequired {
			t.Errorf("Expected the reason field message, got %+v", body)
		}
	})

	t.Run("rejections carry the server message", func(t *testing.T) {
		w := httptest.NewRecorder()

		respondError(w, testutil.Rejection("Solde insuffisant"))

		var body response.ErrorResponse
		testutil.DecodeJSON(t, w, &body)
		if body.Error != "Solde insuffisant" {
			t.Errorf("Expected the server message, got %q", body.Error)
		}
	})
}
