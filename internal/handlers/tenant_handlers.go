package handlers

import (
	"net/http"
	"strings"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/services"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TenantHandlers handles tenant-related HTTP requests
type TenantHandlers struct {
	tenantService services.TenantService
}

func NewTenantHandlers(tenantService services.TenantService) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService}
}

// RegisterPublic mounts self-service sign-up.
func (h *TenantHandlers) RegisterPublic(g *echo.Group) {
	g.POST("/tenants", h.Register)
}

// RegisterRoutes mounts the caller's own tenant routes.
func (h *TenantHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	g.GET("/tenant", h.GetCurrent)
	g.PUT("/tenant", h.UpdateCurrent, rbac.RequirePermission(models.PermTenantsWrite))
}

// RegisterAdmin mounts the platform operator routes.
func (h *TenantHandlers) RegisterAdmin(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermTenantsRead)
	approve := rbac.RequirePermission(models.PermTenantsApprove)
	g.GET("/tenants", h.ListTenants, read)
	g.GET("/tenants/:id", h.GetTenant, read)
	g.POST("/tenants/:id/approve", h.Approve, approve)
	g.POST("/tenants/:id/reject", h.Reject, approve)
	g.POST("/tenants/:id/suspend", h.Suspend, approve)
	g.POST("/tenants/:id/reactivate", h.Reactivate, approve)
}

// Register handles POST /tenants. New tenants wait for approval.
func (h *TenantHandlers) Register(c echo.Context) error {
	var req services.RegisterTenantRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	tenant, err := h.tenantService.Register(c.Request().Context(), &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, tenant)
}

// GetCurrent handles GET /tenant
func (h *TenantHandlers) GetCurrent(c echo.Context) error {
	id, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	tenant, err := h.tenantService.GetByID(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// UpdateCurrent handles PUT /tenant
func (h *TenantHandlers) UpdateCurrent(c echo.Context) error {
	id, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.UpdateTenantRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	tenant, err := h.tenantService.Update(c.Request().Context(), id, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// ListTenants handles GET /admin/tenants?status=
func (h *TenantHandlers) ListTenants(c echo.Context) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var status *models.TenantStatus
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		s := models.TenantStatus(raw)
		if !s.IsValid() {
			return common.SendValidationError(c, "status", "must be one of: pending, active, suspended, rejected")
		}
		status = &s
	}

	tenants, err := h.tenantService.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(tenants, limit, offset))
}

// GetTenant handles GET /admin/tenants/:id
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	tenant, err := h.tenantService.GetByID(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandlers) Approve(c echo.Context) error {
	return h.transition(c, func(id uuid.UUID, _ string) (*models.Tenant, error) {
		return h.tenantService.Approve(c.Request().Context(), id)
	})
}

func (h *TenantHandlers) Reject(c echo.Context) error {
	return h.transition(c, func(id uuid.UUID, reason string) (*models.Tenant, error) {
		return h.tenantService.Reject(c.Request().Context(), id, reason)
	})
}

func (h *TenantHandlers) Suspend(c echo.Context) error {
	return h.transition(c, func(id uuid.UUID, reason string) (*models.Tenant, error) {
		if reason == "" {
			return nil, apperr.New(apperr.CodeValidation, "a reason is required to suspend a tenant").
				WithDetails(map[string]string{"reason": "is required"})
		}
		return h.tenantService.Suspend(c.Request().Context(), id, reason)
	})
}

func (h *TenantHandlers) Reactivate(c echo.Context) error {
	return h.transition(c, func(id uuid.UUID, _ string) (*models.Tenant, error) {
		return h.tenantService.Reactivate(c.Request().Context(), id)
	})
}

func (h *TenantHandlers) transition(c echo.Context, fn func(id uuid.UUID, reason string) (*models.Tenant, error)) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	reason, err := bindReason(c)
	if err != nil {
		return common.SendError(c, err)
	}
	tenant, err := fn(id, reason)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, tenant)
}
