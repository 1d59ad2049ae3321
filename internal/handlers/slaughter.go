package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hansal/butchershop/internal/events"
	"github.com/hansal/butchershop/internal/service/slaughters"
)

type SlaughterHandler struct {
	Slaughters *slaughters.Service
	Producer   *events.Producer
}

func (h *SlaughterHandler) GetSlaughter(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	rec, err := h.Slaughters.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *SlaughterHandler) GetSlaughters(c echo.Context) error {
	list, err := h.Slaughters.List(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SlaughterHandler) SearchSlaughters(c echo.Context) error {
	tag := strings.TrimSpace(c.QueryParam("cowTag"))
	list, err := h.Slaughters.SearchByCowTag(c.Request().Context(), tag)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SlaughterHandler) GetSlaughtersByDateRange(c echo.Context) error {
	start, err := time.Parse("2006-01-02", c.QueryParam("startDate"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("invalid startDate, want YYYY-MM-DD"))
	}
	end, err := time.Parse("2006-01-02", c.QueryParam("endDate"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("invalid endDate, want YYYY-MM-DD"))
	}

	list, err := h.Slaughters.ByDateRange(c.Request().Context(), start, end)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SlaughterHandler) CreateSlaughter(c echo.Context) error {
	var req slaughters.CreateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	rec, err := h.Slaughters.Create(c.Request().Context(), req)
	if err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicSlaughters, fmt.Sprint(rec.ID), map[string]any{
		"type":        "slaughter_created",
		"slaughterID": rec.ID,
		"cowTag":      rec.CowTag,
		"totalWeight": rec.TotalWeight,
	})
	return c.JSON(http.StatusCreated, rec)
}

func (h *SlaughterHandler) UpdateSlaughter(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	var req slaughters.CreateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	rec, err := h.Slaughters.Update(c.Request().Context(), id, req)
	if err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicSlaughters, fmt.Sprint(rec.ID), map[string]any{
		"type":        "slaughter_updated",
		"slaughterID": rec.ID,
		"cowTag":      rec.CowTag,
	})
	return c.JSON(http.StatusOK, rec)
}

func (h *SlaughterHandler) DeleteSlaughter(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if err := h.Slaughters.Delete(c.Request().Context(), id); err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicSlaughters, fmt.Sprint(id), map[string]any{
		"type":        "slaughter_deleted",
		"slaughterID": id,
	})
	return c.NoContent(http.StatusNoContent)
}
