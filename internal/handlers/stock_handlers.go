package handlers

import (
	"net/http"
	"strconv"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/services"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// StockHandlers handles per-store stock levels
type StockHandlers struct {
	stockService services.StockService
}

func NewStockHandlers(stockService services.StockService) *StockHandlers {
	return &StockHandlers{stockService: stockService}
}

func (h *StockHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermProductsRead)
	write := rbac.RequirePermission(models.PermStockWrite)
	g.GET("/stores/:id/stock", h.ListStock, read)
	g.GET("/stores/:id/stock/low", h.LowStock, read)
	g.GET("/stores/:id/stock/:productId", h.GetStock, read)
	g.PUT("/stores/:id/stock/:productId", h.SetLevel, write)
	g.POST("/stores/:id/stock/:productId/adjust", h.Adjust, write)
	g.GET("/stores/:id/stock/:productId/movements", h.Movements, read)
}

type stockPath struct {
	tenantID  uuid.UUID
	storeID   uuid.UUID
	productID uuid.UUID
}

func parseStockPath(c echo.Context, withProduct bool) (stockPath, error) {
	var p stockPath
	var err error
	if p.tenantID, err = tenantID(c); err != nil {
		return p, err
	}
	if p.storeID, err = pathUUID(c, "id"); err != nil {
		return p, err
	}
	if withProduct {
		if p.productID, err = pathUUID(c, "productId"); err != nil {
			return p, err
		}
	}
	return p, nil
}

// ListStock handles GET /stores/:id/stock
func (h *StockHandlers) ListStock(c echo.Context) error {
	p, err := parseStockPath(c, false)
	if err != nil {
		return common.SendError(c, err)
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendError(c, err)
	}
	levels, err := h.stockService.ListByStore(c.Request().Context(), p.tenantID, p.storeID, limit, offset)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(levels, limit, offset))
}

// LowStock handles GET /stores/:id/stock/low
func (h *StockHandlers) LowStock(c echo.Context) error {
	p, err := parseStockPath(c, false)
	if err != nil {
		return common.SendError(c, err)
	}
	levels, err := h.stockService.LowStock(c.Request().Context(), p.tenantID, p.storeID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(levels, 0, 0))
}

// GetStock handles GET /stores/:id/stock/:productId
func (h *StockHandlers) GetStock(c echo.Context) error {
	p, err := parseStockPath(c, true)
	if err != nil {
		return common.SendError(c, err)
	}
	level, err := h.stockService.Get(c.Request().Context(), p.tenantID, p.storeID, p.productID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, level)
}

// SetLevel handles PUT /stores/:id/stock/:productId
func (h *StockHandlers) SetLevel(c echo.Context) error {
	p, err := parseStockPath(c, true)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.SetStockRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	level, err := h.stockService.SetLevel(c.Request().Context(), p.tenantID, p.storeID, p.productID, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, level)
}

// Adjust handles POST /stores/:id/stock/:productId/adjust
func (h *StockHandlers) Adjust(c echo.Context) error {
	p, err := parseStockPath(c, true)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.AdjustStockRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	level, err := h.stockService.Adjust(c.Request().Context(), p.tenantID, p.storeID, p.productID, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, level)
}

// Movements handles GET /stores/:id/stock/:productId/movements?limit=
func (h *StockHandlers) Movements(c echo.Context) error {
	p, err := parseStockPath(c, true)
	if err != nil {
		return common.SendError(c, err)
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return common.SendError(c, apperr.New(apperr.CodeValidation, "limit must be a number"))
		}
	}
	movements, err := h.stockService.Movements(c.Request().Context(), p.tenantID, p.storeID, p.productID, limit)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(movements, limit, 0))
}
