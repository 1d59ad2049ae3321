package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/hansal/butchershop/internal/events"
	"github.com/hansal/butchershop/internal/service/invoices"
)

type InvoiceHandler struct {
	Invoices *invoices.Service
	Producer *events.Producer
}

func (h *InvoiceHandler) GetInvoice(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	inv, err := h.Invoices.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) GetInvoiceByNumber(c echo.Context) error {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("invoice number is required"))
	}
	inv, err := h.Invoices.GetByNumber(c.Request().Context(), number)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) GetInvoiceByOrder(c echo.Context) error {
	orderID, err := parseID(c, "orderId")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	inv, err := h.Invoices.ByOrder(c.Request().Context(), orderID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) GetInvoices(c echo.Context) error {
	list, err := h.Invoices.List(c.Request().Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

type createInvoiceRequest struct {
	OrderID   uint            `json:"orderId"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	CreatedBy string          `json:"createdBy"`
}

func (h *InvoiceHandler) CreateInvoice(c echo.Context) error {
	var req createInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if req.OrderID == 0 {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("orderId is required"))
	}

	inv, err := h.Invoices.CreateFromOrder(c.Request().Context(), req.OrderID, req.TaxRate, req.CreatedBy)
	if err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicInvoices, fmt.Sprint(inv.ID), map[string]any{
		"type":          "invoice_created",
		"invoiceID":     inv.ID,
		"invoiceNumber": inv.InvoiceNumber,
		"orderID":       inv.OrderID,
		"totalAmount":   inv.TotalAmount,
	})
	return c.JSON(http.StatusCreated, inv)
}

func (h *InvoiceHandler) UpdateInvoice(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	var req invoices.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	inv, err := h.Invoices.Update(c.Request().Context(), id, req)
	if err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicInvoices, fmt.Sprint(inv.ID), map[string]any{
		"type":      "invoice_updated",
		"invoiceID": inv.ID,
		"status":    inv.Status,
	})
	return c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) DeleteInvoice(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if err := h.Invoices.Delete(c.Request().Context(), id); err != nil {
		return serviceError(c, err)
	}

	publish(c, h.Producer, events.TopicInvoices, fmt.Sprint(id), map[string]any{
		"type":      "invoice_deleted",
		"invoiceID": id,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *InvoiceHandler) GetInvoicePDF(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	payload, inv, err := h.Invoices.RenderSingle(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%s.pdf", inv.InvoiceNumber))
	return c.Blob(http.StatusOK, "application/pdf", payload)
}

type batchPDFRequest struct {
	InvoiceIDs []uint `json:"invoiceIds"`
}

func (h *InvoiceHandler) GetCombinedPDF(c echo.Context) error {
	var req batchPDFRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if len(req.InvoiceIDs) == 0 {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("invoiceIds is required"))
	}

	payload, err := h.Invoices.RenderCombined(c.Request().Context(), req.InvoiceIDs)
	if err != nil {
		return serviceError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=invoices.pdf")
	return c.Blob(http.StatusOK, "application/pdf", payload)
}

type batchFromOrdersRequest struct {
	OrderIDs  []uint          `json:"orderIds"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	CreatedBy string          `json:"createdBy"`
}

func (h *InvoiceHandler) RegenerateInvoices(c echo.Context) error {
	var req batchFromOrdersRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if len(req.OrderIDs) == 0 {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("orderIds is required"))
	}

	result, err := h.Invoices.RegenerateForOrders(c.Request().Context(), req.OrderIDs, req.TaxRate, req.CreatedBy)
	if err != nil {
		return serviceError(c, err)
	}

	for i := range result.Invoices {
		inv := &result.Invoices[i]
		publish(c, h.Producer, events.TopicInvoices, fmt.Sprint(inv.ID), map[string]any{
			"type":          "invoice_created",
			"invoiceID":     inv.ID,
			"invoiceNumber": inv.InvoiceNumber,
			"orderID":       inv.OrderID,
		})
	}

	status := http.StatusOK
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, result)
}
