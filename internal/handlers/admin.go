package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hansal/butchershop/internal/service/admin"
)

type AdminHandler struct {
	Admin *admin.Service
}

func (h *AdminHandler) ResetDatabase(c echo.Context) error {
	loaded, err := h.Admin.ResetAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":        true,
		"message":        "database reset to factory defaults",
		"productsLoaded": loaded,
	})
}

func (h *AdminHandler) InitProducts(c echo.Context) error {
	overwrite, _ := strconv.ParseBool(c.QueryParam("overwrite"))
	products, err := h.Admin.InitializeDefaults(c.Request().Context(), overwrite)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"products": products,
	})
}

func (h *AdminHandler) ClearProducts(c echo.Context) error {
	if err := h.Admin.ClearProducts(c.Request().Context()); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, Response{Status: "ok", Message: "product catalog cleared"})
}
