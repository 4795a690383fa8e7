package errors

import "net/http"

// Code represents an error code
type Code string

// Error codes
const (
	CodeOK                  Code = "OK"
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeNotFound            Code = "NOT_FOUND"
	CodeAlreadyExists       Code = "ALREADY_EXISTS"
	CodePermissionDenied    Code = "PERMISSION_DENIED"
	CodeFailedPrecondition  Code = "FAILED_PRECONDITION"
	CodeParticipantMismatch Code = "PARTICIPANT_MISMATCH"
	CodeAborted             Code = "ABORTED"
	CodeInternal            Code = "INTERNAL"
	CodeUnavailable         Code = "UNAVAILABLE"
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
)

// String returns the string representation of the code
func (c Code) String() string {
	return string(c)
}

// HTTPStatus returns the HTTP status a code maps to at the boundary.
// This table is the only place error codes become status codes; handlers
// never inspect error messages.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeFailedPrecondition:
		// Unmet state-machine preconditions are client-correctable requests,
		// not conditional-header failures.
		return http.StatusBadRequest
	case CodeParticipantMismatch:
		// A participant id that does not belong to the targeted encounter
		// reads as absent to the caller.
		return http.StatusNotFound
	case CodeAborted:
		return http.StatusConflict
	case CodeInternal:
		return http.StatusInternalServerError
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
