// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and a request value already populated by
// the configured binders, and returns a Response that renders itself:
//
//	type createReq struct {
//		Name string `json:"name"`
//	}
//
//	h := func(ctx handler.Context, req createReq) handler.Response {
//		return handler.JSON(map[string]any{"name": req.Name})
//	}
//
//	r.Post("/items", handler.Wrap(h, handler.WithBinders(handler.BindJSON())))
//
// Errors returned by binders or by Render go to the ErrorHandler, which
// writes {"error": message} with a status taken from HTTPError.
package handler
