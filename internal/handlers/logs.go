package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hansal/butchershop/internal/logging"
)

type LogHandler struct {
	Buffer *logging.Buffer
}

func (h *LogHandler) GetLogs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Buffer.All())
}

func (h *LogHandler) GetLogsByLevel(c echo.Context) error {
	level := c.Param("level")
	if level == "" {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("level is required"))
	}
	return c.JSON(http.StatusOK, h.Buffer.ByLevel(level))
}

func (h *LogHandler) GetLogsSince(c echo.Context) error {
	since, err := time.Parse(time.RFC3339, c.QueryParam("since"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("invalid since, want RFC3339"))
	}
	return c.JSON(http.StatusOK, h.Buffer.Since(since))
}

func (h *LogHandler) GetLogCount(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"count": h.Buffer.Len()})
}

func (h *LogHandler) ClearLogs(c echo.Context) error {
	h.Buffer.Clear()
	return c.JSON(http.StatusOK, Response{Status: "ok", Message: "log buffer cleared"})
}
