package handlers

import (
	"net/http"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/services"

	"github.com/labstack/echo/v4"
)

// CategoryHandlers handles HTTP requests for categories
type CategoryHandlers struct {
	categoryService services.CategoryService
}

func NewCategoryHandlers(categoryService services.CategoryService) *CategoryHandlers {
	return &CategoryHandlers{categoryService: categoryService}
}

func (h *CategoryHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermProductsRead)
	write := rbac.RequirePermission(models.PermProductsWrite)
	g.GET("/categories", h.ListCategories, read)
	g.POST("/categories", h.CreateCategory, write)
	g.GET("/categories/:id", h.GetCategory, read)
	g.PUT("/categories/:id", h.UpdateCategory, write)
	g.DELETE("/categories/:id", h.DeleteCategory, write)
}

// CreateCategory handles POST /categories
func (h *CategoryHandlers) CreateCategory(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.CategoryRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	category, err := h.categoryService.Create(c.Request().Context(), tenant, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, category)
}

// GetCategory handles GET /categories/:id
func (h *CategoryHandlers) GetCategory(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	category, err := h.categoryService.GetByID(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

// ListCategories handles GET /categories
func (h *CategoryHandlers) ListCategories(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	categories, err := h.categoryService.List(c.Request().Context(), tenant)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(categories, 0, 0))
}

// UpdateCategory handles PUT /categories/:id
func (h *CategoryHandlers) UpdateCategory(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.CategoryRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	category, err := h.categoryService.Update(c.Request().Context(), tenant, id, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /categories/:id
func (h *CategoryHandlers) DeleteCategory(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	if err := h.categoryService.Delete(c.Request().Context(), tenant, id); err != nil {
		return common.SendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
