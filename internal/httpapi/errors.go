package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/joelkehle/macro-onboarding/internal/store"
)

const (
	CodeValidation  = "validation"
	CodeNotFound    = "not_found"
	CodeConflict    = "conflict"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal"
)

type Error struct {
	Code      string
	Message   string
	Transient bool
	Status    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newError(code, message string, transient bool) *Error {
	return &Error{Code: code, Message: message, Transient: transient, Status: statusForCode(code)}
}

func validationJSONError(err error) error {
	return newError(CodeValidation, "invalid json: "+err.Error(), false)
}

func validationError(format string, args ...any) error {
	return newError(CodeValidation, fmt.Sprintf(format, args...), false)
}

func notFoundError(what, id string) error {
	return newError(CodeNotFound, fmt.Sprintf("%s %q not found", what, id), false)
}

func missingFieldsError(missing []string) error {
	return newError(CodeValidation, "missing or invalid fields: "+strings.Join(missing, ", "), false)
}

// storeError maps storage failures onto API errors.
func storeError(what, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFoundError(what, id)
	}
	return newError(CodeUnavailable, err.Error(), true)
}

func writeAPIError(w http.ResponseWriter, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = newError(CodeInternal, err.Error(), true)
	}
	writeJSON(w, ae.Status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":      ae.Code,
			"message":   ae.Message,
			"transient": ae.Transient,
		},
	})
}
