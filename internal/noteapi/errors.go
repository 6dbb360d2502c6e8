package noteapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// APIError is returned when the note API answered with a non-2xx status.
// It is a business rejection as opposed to a transport failure.
type APIError struct {
	StatusCode     int
	Body           string
	Detail         string
	NonFieldErrors []string
	FieldErrors    map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("note api returned %d: %s", e.StatusCode, e.Message())
}

// Message picks the most useful human message: detail, then
// non_field_errors, then the raw body.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.NonFieldErrors) > 0 {
		return strings.Join(e.NonFieldErrors, " ")
	}
	return e.Body
}

// Messages flattens every message of the error body, one per entry, the way
// the page used to print one banner per error.
func (e *APIError) Messages() []string {
	var msgs []string
	if e.Detail != "" {
		msgs = append(msgs, e.Detail)
	}
	msgs = append(msgs, e.NonFieldErrors...)

	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		for _, msg := range e.FieldErrors[field] {
			msgs = append(msgs, field+": "+msg)
		}
	}

	if len(msgs) == 0 && e.Body != "" {
		msgs = append(msgs, e.Body)
	}
	return msgs
}

// IsServerError reports whether the status is 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsRejection reports whether err is a business rejection: the server
// answered with a 4xx status.
func IsRejection(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && !apiErr.IsServerError()
}

// Describe returns the message to show a user for any error of the client.
func Describe(err error) string {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Message()
	}
	return err.Error()
}

// newAPIError decodes the usual DRF error shapes: {"detail": "..."},
// {"non_field_errors": [...]}, {"field": [...]} or a bare list.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: strings.TrimSpace(string(body))}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil {
			apiErr.NonFieldErrors = list
		}
		return apiErr
	}

	for key, value := range raw {
		switch key {
		case "detail":
			_ = json.Unmarshal(value, &apiErr.Detail)
		case "non_field_errors":
			apiErr.NonFieldErrors = decodeMessages(value)
		default:
			if apiErr.FieldErrors == nil {
				apiErr.FieldErrors = make(map[string][]string)
			}
			apiErr.FieldErrors[key] = decodeMessages(value)
		}
	}
	return apiErr
}

func decodeMessages(value json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(value, &single); err == nil {
		return []string{single}
	}
	return []string{string(value)}
}
