package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/byteai/builder/pkg/logger"
	"github.com/byteai/builder/pkg/requestid"
)

// StatusOf maps err to a status and a message safe to show clients.
// Unclassified errors are reported as a generic 500.
func StatusOf(err error) (int, string) {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, httpErr.Message
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, ErrInvalidJSON), errors.Is(err, ErrInvalidPath):
		return http.StatusBadRequest, err.Error()
	}
	return ErrInternal.Code, ErrInternal.Message
}

// NewErrorHandler writes errors as JSON and logs them. Client errors log at
// warn, server errors at error.
func NewErrorHandler(log *slog.Logger) ErrorHandler {
	if log == nil {
		log = logger.Discard()
	}
	return func(ctx Context, err error) {
		status, msg := StatusOf(err)
		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		r := ctx.Request()
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)
		_ = writeJSON(ctx.ResponseWriter(), status, errorBody{Error: msg})
	}
}
