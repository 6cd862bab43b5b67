package handlers

import (
	"net/http"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/services"

	"github.com/labstack/echo/v4"
)

// PaymentHandlers handles payments taken against orders
type PaymentHandlers struct {
	paymentService services.PaymentService
}

func NewPaymentHandlers(paymentService services.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{paymentService: paymentService}
}

func (h *PaymentHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermOrdersRead)
	write := rbac.RequirePermission(models.PermPaymentsWrite)
	g.GET("/payments", h.ListPayments, read)
	g.POST("/payments", h.RecordPayment, write)
	g.POST("/payments/:id/refund", h.Refund, write)
	g.GET("/orders/:id/payments", h.ListByOrder, read)
}

// RecordPayment handles POST /payments
func (h *PaymentHandlers) RecordPayment(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.RecordPaymentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	payment, err := h.paymentService.Record(c.Request().Context(), tenant, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, payment)
}

// ListPayments handles GET /payments
func (h *PaymentHandlers) ListPayments(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendError(c, err)
	}
	payments, err := h.paymentService.List(c.Request().Context(), tenant, limit, offset)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(payments, limit, offset))
}

// ListByOrder handles GET /orders/:id/payments
func (h *PaymentHandlers) ListByOrder(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	orderID, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	payments, err := h.paymentService.ListByOrder(c.Request().Context(), tenant, orderID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(payments, 0, 0))
}

// Refund handles POST /payments/:id/refund
func (h *PaymentHandlers) Refund(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	payment, err := h.paymentService.Refund(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}
