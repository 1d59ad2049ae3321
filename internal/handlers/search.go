package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/hansal/butchershop/internal/service/search"
	"github.com/hansal/butchershop/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) SearchProducts(c echo.Context) error {
	if h.ES == nil {
		return errorResponse(c, http.StatusServiceUnavailable, fmt.Errorf("search is not configured"))
	}

	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("query parameter q is required"))
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, hits, err := search.Search(c.Request().Context(), h.ES, h.Index, query, from, limit)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": hits,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}
