package handlers

import (
	"net/http"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/services"

	"github.com/labstack/echo/v4"
)

// StoreHandlers handles HTTP requests for a tenant's stores
type StoreHandlers struct {
	storeService services.StoreService
}

func NewStoreHandlers(storeService services.StoreService) *StoreHandlers {
	return &StoreHandlers{storeService: storeService}
}

func (h *StoreHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	write := rbac.RequirePermission(models.PermStoresWrite)
	g.GET("/stores", h.ListStores)
	g.POST("/stores", h.CreateStore, write)
	g.GET("/stores/:id", h.GetStore)
	g.PUT("/stores/:id", h.UpdateStore, write)
	g.DELETE("/stores/:id", h.DeleteStore, write)
}

// CreateStore handles POST /stores
func (h *StoreHandlers) CreateStore(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.StoreRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	store, err := h.storeService.Create(c.Request().Context(), tenant, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, store)
}

// GetStore handles GET /stores/:id
func (h *StoreHandlers) GetStore(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	store, err := h.storeService.GetByID(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, store)
}

// ListStores handles GET /stores
func (h *StoreHandlers) ListStores(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	stores, err := h.storeService.List(c.Request().Context(), tenant)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(stores, 0, 0))
}

// UpdateStore handles PUT /stores/:id
func (h *StoreHandlers) UpdateStore(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.StoreRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	store, err := h.storeService.Update(c.Request().Context(), tenant, id, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, store)
}

// DeleteStore handles DELETE /stores/:id
func (h *StoreHandlers) DeleteStore(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	if err := h.storeService.Delete(c.Request().Context(), tenant, id); err != nil {
		return common.SendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
