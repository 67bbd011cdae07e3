package handler

import (
	"errors"
	"net/http"
)

// HandlerFunc handles a request whose body and path were bound into R.
type HandlerFunc[R any] func(ctx Context, req R) Response

// Response renders itself to the client.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind populates v from the request. Binders return ErrBinderNotApplicable
// to step aside.
type Bind func(r *http.Request, v any) error

// ErrorHandler reports binding and rendering errors to the client.
type ErrorHandler func(ctx Context, err error)

// ErrBinderNotApplicable lets a binder skip a request it does not handle.
var ErrBinderNotApplicable = errors.New("binder not applicable")

type wrapConfig struct {
	binders      []Bind
	errorHandler ErrorHandler
}

// WrapOption configures Wrap.
type WrapOption func(*wrapConfig)

// WithBinders appends binders applied in order.
func WithBinders(binders ...Bind) WrapOption {
	return func(c *wrapConfig) {
		c.binders = append(c.binders, binders...)
	}
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h ErrorHandler) WrapOption {
	return func(c *wrapConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

func defaultErrorHandler(ctx Context, err error) {
	status, msg := StatusOf(err)
	_ = writeJSON(ctx.ResponseWriter(), status, errorBody{Error: msg})
}

// Wrap converts a typed handler to an http.HandlerFunc.
func Wrap[R any](h HandlerFunc[R], opts ...WrapOption) http.HandlerFunc {
	cfg := &wrapConfig{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := NewContext(w, r)

		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				if errors.Is(err, ErrBinderNotApplicable) {
					continue
				}
				cfg.errorHandler(ctx, err)
				return
			}
		}

		resp := h(ctx, req)
		if resp == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}
