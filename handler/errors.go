package handler

import (
	"errors"
	"net/http"
)

var (
	ErrNilResponse          = errors.New("handler returned nil response")
	ErrInvalidJSON          = errors.New("invalid JSON")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrInvalidPath          = errors.New("invalid path parameter")
)

// HTTPError carries the status and client-facing message for an error.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates an HTTPError. An empty message becomes the status text.
func NewHTTPError(code int, message string) HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	return HTTPError{Code: code, Message: message}
}

var (
	ErrBadRequest   = NewHTTPError(http.StatusBadRequest, "")
	ErrUnauthorized = NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	ErrNotFound     = NewHTTPError(http.StatusNotFound, "")
	ErrInternal     = NewHTTPError(http.StatusInternalServerError, "Internal server error")
)
