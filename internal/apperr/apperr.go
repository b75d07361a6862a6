// Package apperr defines the typed errors shared by the store adapters,
// the core and the interaction surfaces.
package apperr

import (
	"errors"
	"net/http"
)

// Error represents a typed, status-aware application error.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message,omitempty"`
	Status  int            `json:"-"`
	Fields  map[string]any `json:"fields,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" && e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return "error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, apperr.ErrStoreUnavailable) holds for derived errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates an error with the given code, HTTP status and message.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap derives a copy of base carrying err as its cause.
func Wrap(err error, base *Error, message string) *Error {
	if err == nil {
		return nil
	}
	if base == nil {
		base = ErrInternal
	}
	copy := *base
	if message != "" {
		copy.Message = message
	}
	copy.Err = err
	return &copy
}

// Derive returns a copy of base with a new message and no cause.
func Derive(base *Error, message string) *Error {
	copy := *base
	copy.Message = message
	return &copy
}

// WithFields returns a copy of base carrying per-field details, such as
// the failing request fields of a validation error.
func WithFields(base *Error, fields map[string]any) *Error {
	if base == nil {
		return nil
	}
	copy := *base
	copy.Fields = fields
	return &copy
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// Status returns the HTTP status for err, or 500 when err carries none.
func Status(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Code returns the machine-readable code for err, or "internal_error".
func Code(err error) string {
	if e, ok := As(err); ok && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

// Payload renders err as a JSON-friendly map for the HTTP surface.
func Payload(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	payload := map[string]any{
		"code":    Code(err),
		"message": err.Error(),
	}
	if e, ok := As(err); ok && len(e.Fields) > 0 {
		payload["fields"] = e.Fields
	}
	return payload
}

var (
	ErrStoreUnavailable    = New("store_unavailable", http.StatusServiceUnavailable, "store unavailable")
	ErrStoreWriteRejected  = New("store_write_rejected", http.StatusBadGateway, "store rejected write")
	ErrValidation          = New("validation_error", http.StatusBadRequest, "validation failed")
	ErrMalformedIdentifier = New("malformed_identifier", http.StatusInternalServerError, "malformed batch identifier")
	ErrSchemaMismatch      = New("schema_mismatch", http.StatusInternalServerError, "store header does not match schema")
	ErrNotFound            = New("not_found", http.StatusNotFound, "not found")
	ErrNotConfigured       = New("not_configured", http.StatusNotImplemented, "not configured")
	ErrInternal            = New("internal_error", http.StatusInternalServerError, "")
)
