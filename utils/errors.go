package utils

import "net/http"

// ErrorKind classifies request failures. Every handler maps domain failures
// onto exactly one kind so HTTP status codes stay consistent across the API.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota
	KindUnauthenticated
	KindForbidden
	KindInvalidState
	KindValidation
	KindUpstream
)

type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func NotFoundError(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func UnauthenticatedError(msg string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Kind: KindForbidden, Message: msg}
}

// InvalidStateError marks an operation that is not legal for the entity's
// current status (confirming a non-initiated payment, regenerating a
// contract, updating a non-draft project).
func InvalidStateError(msg string) *AppError {
	return &AppError{Kind: KindInvalidState, Message: msg}
}

func ValidationError(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

// UpstreamError marks a failed collaborator call (payment gateway, document
// rendering, object storage). The caller must not have mutated state before
// raising it.
func UpstreamError(msg string) *AppError {
	return &AppError{Kind: KindUpstream, Message: msg}
}

func (k ErrorKind) httpStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidState:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteError renders err as an API response. Unrecognized errors become a
// generic 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*AppError); ok {
		WriteJSON(w, appErr.Kind.httpStatus(), APIResponse{Success: false, Message: appErr.Message})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, APIResponse{Success: false, Message: "Internal server error"})
}
