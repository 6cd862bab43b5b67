package handlers

import (
	"net/http"
	"strconv"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/services"
	"warehousepos/pkg/apperr"

	"github.com/labstack/echo/v4"
)

// ZoneHandlers handles delivery zones
type ZoneHandlers struct {
	zoneService services.ZoneService
}

func NewZoneHandlers(zoneService services.ZoneService) *ZoneHandlers {
	return &ZoneHandlers{zoneService: zoneService}
}

func (h *ZoneHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermOrdersRead)
	write := rbac.RequirePermission(models.PermZonesWrite)
	g.GET("/stores/:id/zones", h.ListZones, read)
	g.POST("/stores/:id/zones", h.CreateZone, write)
	g.GET("/stores/:id/zones/locate", h.Locate, read)
	g.GET("/zones/:id", h.GetZone, read)
	g.PUT("/zones/:id", h.UpdateZone, write)
	g.DELETE("/zones/:id", h.DeleteZone, write)
}

// CreateZone handles POST /stores/:id/zones
func (h *ZoneHandlers) CreateZone(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	storeID, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.ZoneRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	zone, err := h.zoneService.Create(c.Request().Context(), tenant, storeID, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, zone)
}

// ListZones handles GET /stores/:id/zones
func (h *ZoneHandlers) ListZones(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	storeID, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	zones, err := h.zoneService.ListByStore(c.Request().Context(), tenant, storeID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(zones, 0, 0))
}

// Locate handles GET /stores/:id/zones/locate?lat=&lng=
func (h *ZoneHandlers) Locate(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	storeID, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	lat, lng, err := queryPoint(c)
	if err != nil {
		return common.SendError(c, err)
	}
	zone, err := h.zoneService.Locate(c.Request().Context(), tenant, storeID, lat, lng)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, zone)
}

// GetZone handles GET /zones/:id
func (h *ZoneHandlers) GetZone(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	zone, err := h.zoneService.GetByID(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, zone)
}

// UpdateZone handles PUT /zones/:id
func (h *ZoneHandlers) UpdateZone(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.ZoneRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	zone, err := h.zoneService.Update(c.Request().Context(), tenant, id, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, zone)
}

// DeleteZone handles DELETE /zones/:id
func (h *ZoneHandlers) DeleteZone(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	if err := h.zoneService.Delete(c.Request().Context(), tenant, id); err != nil {
		return common.SendError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// queryPoint reads the required lat and lng query parameters. Range checks are left to the services.
func queryPoint(c echo.Context) (float64, float64, error) {
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if errLat != nil || errLng != nil {
		details := map[string]string{}
		if errLat != nil {
			details["lat"] = "must be a number"
		}
		if errLng != nil {
			details["lng"] = "must be a number"
		}
		return 0, 0, apperr.New(apperr.CodeValidation, "lat and lng are required").WithDetails(details)
	}
	return lat, lng, nil
}
