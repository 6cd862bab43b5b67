package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Analytics is the slice of the analytics service the API exposes.
type Analytics interface {
	ResolveRange(from, to *time.Time) (models.DateRange, error)
	Dashboard(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID, r models.DateRange) (*models.Dashboard, error)
	Refresh(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID, r models.DateRange) (*models.Dashboard, error)
	Platform(ctx context.Context, r models.DateRange) (*models.PlatformDashboard, error)
	ExportOrders(ctx context.Context, w io.Writer, tenantID uuid.UUID, storeID *uuid.UUID, r models.DateRange) error
}

// AnalyticsHandlers serves tenant dashboards, the order export and the platform dashboard
type AnalyticsHandlers struct {
	analytics Analytics
}

func NewAnalyticsHandlers(analytics Analytics) *AnalyticsHandlers {
	return &AnalyticsHandlers{analytics: analytics}
}

func (h *AnalyticsHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermAnalyticsRead)
	g.GET("/analytics/dashboard", h.Dashboard, read)
	g.GET("/analytics/orders.xlsx", h.ExportOrders, read)
}

func (h *AnalyticsHandlers) RegisterAdmin(g *echo.Group, rbac *middleware.RBACMiddleware) {
	g.GET("/platform", h.Platform, rbac.RequirePermission(models.PermPlatformRead))
}

// scope reads store_id, from and to.
func (h *AnalyticsHandlers) scope(c echo.Context) (*uuid.UUID, models.DateRange, error) {
	storeID, err := queryUUID(c, "store_id")
	if err != nil {
		return nil, models.DateRange{}, err
	}
	r, err := h.dateRange(c)
	return storeID, r, err
}

func (h *AnalyticsHandlers) dateRange(c echo.Context) (models.DateRange, error) {
	from, err := queryTime(c, "from")
	if err != nil {
		return models.DateRange{}, err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return models.DateRange{}, err
	}
	return h.analytics.ResolveRange(from, to)
}

// Dashboard handles GET /analytics/dashboard?store_id=&from=&to=&refresh=
func (h *AnalyticsHandlers) Dashboard(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	storeID, r, err := h.scope(c)
	if err != nil {
		return common.SendError(c, err)
	}
	refresh, err := queryBool(c, "refresh")
	if err != nil {
		return common.SendError(c, err)
	}

	var dashboard *models.Dashboard
	if refresh != nil && *refresh {
		dashboard, err = h.analytics.Refresh(c.Request().Context(), tenant, storeID, r)
	} else {
		dashboard, err = h.analytics.Dashboard(c.Request().Context(), tenant, storeID, r)
	}
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, dashboard)
}

// ExportOrders handles GET /analytics/orders.xlsx
func (h *AnalyticsHandlers) ExportOrders(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	storeID, r, err := h.scope(c)
	if err != nil {
		return common.SendError(c, err)
	}

	var buf bytes.Buffer
	if err := h.analytics.ExportOrders(c.Request().Context(), &buf, tenant, storeID, r); err != nil {
		return common.SendError(c, err)
	}
	filename := fmt.Sprintf("orders_%s_%s.xlsx", r.From.Format("20060102"), r.To.AddDate(0, 0, -1).Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Platform handles GET /admin/platform?from=&to=
func (h *AnalyticsHandlers) Platform(c echo.Context) error {
	r, err := h.dateRange(c)
	if err != nil {
		return common.SendError(c, err)
	}
	dashboard, err := h.analytics.Platform(c.Request().Context(), r)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, dashboard)
}
