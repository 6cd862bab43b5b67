package handlers

import (
	"net/http"
	"strings"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/services"

	"github.com/labstack/echo/v4"
)

// CustomerHandlers handles HTTP requests for customers
type CustomerHandlers struct {
	customerService services.CustomerService
}

func NewCustomerHandlers(customerService services.CustomerService) *CustomerHandlers {
	return &CustomerHandlers{customerService: customerService}
}

func (h *CustomerHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	write := rbac.RequirePermission(models.PermCustomersWrite)
	g.GET("/customers", h.ListCustomers, write)
	g.POST("/customers", h.CreateCustomer, write)
	g.GET("/customers/:id", h.GetCustomer, write)
	g.PUT("/customers/:id", h.UpdateCustomer, write)
}

// CreateCustomer handles POST /customers
func (h *CustomerHandlers) CreateCustomer(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.CustomerRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	customer, err := h.customerService.Create(c.Request().Context(), tenant, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, customer)
}

// GetCustomer handles GET /customers/:id
func (h *CustomerHandlers) GetCustomer(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	customer, err := h.customerService.GetByID(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

// ListCustomers handles GET /customers?q= and GET /customers?phone= (exact lookup).
func (h *CustomerHandlers) ListCustomers(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	ctx := c.Request().Context()

	if phone := strings.TrimSpace(c.QueryParam("phone")); phone != "" {
		customer, err := h.customerService.FindByPhone(ctx, tenant, phone)
		if err != nil {
			return common.SendError(c, err)
		}
		return c.JSON(http.StatusOK, list([]*models.Customer{customer}, 1, 0))
	}

	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendError(c, err)
	}
	customers, err := h.customerService.Search(ctx, tenant, common.SanitizeSearchQuery(c.QueryParam("q")), limit, offset)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(customers, limit, offset))
}

// UpdateCustomer handles PUT /customers/:id
func (h *CustomerHandlers) UpdateCustomer(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.CustomerRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	customer, err := h.customerService.Update(c.Request().Context(), tenant, id, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}
