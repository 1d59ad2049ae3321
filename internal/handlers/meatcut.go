package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/hansal/butchershop/internal/service/inventory"
)

type MeatCutHandler struct {
	Inventory *inventory.Service
}

func (h *MeatCutHandler) GetMeatCut(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	cut, err := h.Inventory.GetCut(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, cut)
}

func (h *MeatCutHandler) GetMeatCuts(c echo.Context) error {
	cuts, err := h.Inventory.ListCuts(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, cuts)
}

func (h *MeatCutHandler) GetMeatCutsBySlaughter(c echo.Context) error {
	slaughterID, err := parseID(c, "slaughterId")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	cuts, err := h.Inventory.CutsBySlaughter(c.Request().Context(), slaughterID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, cuts)
}

func (h *MeatCutHandler) GetAvailabilityByProduct(c echo.Context) error {
	productID, err := parseID(c, "productId")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	list, err := h.Inventory.AvailabilityByProduct(c.Request().Context(), productID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

type allocationRequest struct {
	Weight decimal.Decimal `json:"weight"`
}

func (h *MeatCutHandler) AllocateWeight(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	var req allocationRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if err := h.Inventory.Allocate(c.Request().Context(), id, req.Weight); err != nil {
		return serviceError(c, err)
	}

	cut, err := h.Inventory.GetCut(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, cut)
}

func (h *MeatCutHandler) ReleaseWeight(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	var req allocationRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if err := h.Inventory.Release(c.Request().Context(), id, req.Weight); err != nil {
		return serviceError(c, err)
	}

	cut, err := h.Inventory.GetCut(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, cut)
}
