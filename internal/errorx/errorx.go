// Package errorx defines the typed errors returned by services and the HTTP
// status each of them maps to.
package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Unknown Kind = iota
	Validation
	NotFound
	Conflict
	Verification
	InsufficientBalance
	Unauthorized
	Forbidden
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Verification:
		return "verification"
	case InsufficientBalance:
		return "insufficient_balance"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Error is a client-facing failure. DistanceMeters and RadiusMeters are only
// set for geofence rejections.
type Error struct {
	Kind           Kind
	Message        string
	DistanceMeters *float64
	RadiusMeters   *float64
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// OutsideGeofence reports a claim that was farther than radius from the target.
func OutsideGeofence(distance, radius float64) *Error {
	return &Error{
		Kind:           Verification,
		Message:        "you must be at the correct location to complete this step",
		DistanceMeters: &distance,
		RadiusMeters:   &radius,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to its response code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation, InsufficientBalance:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Verification:
		return http.StatusUnprocessableEntity
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
