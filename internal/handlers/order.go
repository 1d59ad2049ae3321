package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hansal/butchershop/internal/events"
	"github.com/hansal/butchershop/internal/models"
	"github.com/hansal/butchershop/internal/service/orders"
)

type OrderHandler struct {
	Orders   *orders.Service
	Producer *events.Producer
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	order, err := h.Orders.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	list, err := h.Orders.List(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) SearchOrders(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("customerName"))
	list, err := h.Orders.SearchByCustomerName(c.Request().Context(), name)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) GetOrdersByStatus(c echo.Context) error {
	status := models.OrderStatus(strings.ToUpper(c.Param("status")))
	if !status.Valid() {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("unknown order status %q", c.Param("status")))
	}
	list, err := h.Orders.ByStatus(c.Request().Context(), status)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) GetCustomers(c echo.Context) error {
	list, err := h.Orders.Customers(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req orders.CreateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	order, err := h.Orders.Create(c.Request().Context(), req)
	if err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicOrders, fmt.Sprint(order.ID), map[string]any{
		"type":         "order_created",
		"orderID":      order.ID,
		"customerName": order.CustomerName,
		"totalAmount":  order.TotalAmount,
	})
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) UpdateOrder(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	var req orders.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	order, err := h.Orders.Update(c.Request().Context(), id, req)
	if err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicOrders, fmt.Sprint(order.ID), map[string]any{
		"type":    "order_updated",
		"orderID": order.ID,
	})
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	status := models.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("unknown order status %q", req.Status))
	}

	order, err := h.Orders.UpdateStatus(c.Request().Context(), id, status)
	if err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicOrders, fmt.Sprint(order.ID), map[string]any{
		"type":    "order_status_changed",
		"orderID": order.ID,
		"status":  order.Status,
	})
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AddOrderItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	var req orders.ItemRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	order, err := h.Orders.AddItem(c.Request().Context(), id, req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) RemoveOrderItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	order, err := h.Orders.RemoveItem(c.Request().Context(), id, itemID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) CancelOrder(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	order, err := h.Orders.Cancel(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicOrders, fmt.Sprint(order.ID), map[string]any{
		"type":    "order_cancelled",
		"orderID": order.ID,
	})
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if err := h.Orders.Delete(c.Request().Context(), id); err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicOrders, fmt.Sprint(id), map[string]any{
		"type":    "order_deleted",
		"orderID": id,
	})
	return c.NoContent(http.StatusNoContent)
}
