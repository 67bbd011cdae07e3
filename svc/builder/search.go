package builder

import (
	"errors"
	"net/http"

	"github.com/byteai/builder/handler"
	"github.com/byteai/builder/pkg/search"
)

type searchRequest struct {
	Query string `json:"query"`
}

func (h *Handler) searchDesigns(ctx handler.Context, req searchRequest) handler.Response {
	resp, err := h.search.Search(ctx, req.Query)
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		return handler.Error(http.StatusBadRequest, "Query is required")
	case err != nil:
		return h.internalError(ctx, "search failed", "", err)
	}
	return handler.JSON(resp)
}
