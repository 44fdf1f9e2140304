// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/hlandauf/namecore/foundation/blockchain/names"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Code   int               `json:"code,omitempty"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap returns the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// StatusForKind maps a registry rejection to the HTTP status reported to
// clients.
func StatusForKind(kind names.ErrorKind) int {
	switch kind {
	case names.KindLength:
		return http.StatusBadRequest
	case names.KindNotFound:
		return http.StatusNotFound
	case names.KindCollision, names.KindNameActive, names.KindPendingConflict:
		return http.StatusConflict
	case names.KindWrongOwner:
		return http.StatusForbidden
	case names.KindImmature, names.KindExpired:
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}
