package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/services"
	"warehousepos/pkg/apperr"

	"github.com/labstack/echo/v4"
)

// RiderHandlers handles rider management and the rider app's own profile
type RiderHandlers struct {
	riderService services.RiderService
}

func NewRiderHandlers(riderService services.RiderService) *RiderHandlers {
	return &RiderHandlers{riderService: riderService}
}

func (h *RiderHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	manage := rbac.RequirePermission(models.PermRidersWrite)
	dispatch := rbac.RequirePermission(models.PermDispatch)
	g.GET("/riders", h.ListRiders, manage)
	g.POST("/riders", h.CreateRider, manage)
	g.GET("/riders/:id", h.GetRider, manage)
	g.PUT("/riders/:id", h.UpdateRider, manage)
	g.GET("/riders/:id/location", h.GetLocation, dispatch)
	g.GET("/stores/:id/riders/nearby", h.Nearby, dispatch)

	ride := rbac.RequirePermission(models.PermRide)
	g.GET("/rider/me", h.Me, ride)
	g.PUT("/rider/me/status", h.SetMyStatus, ride)
	g.POST("/rider/me/location", h.UpdateMyLocation, ride)
}

// CreateRider handles POST /riders
func (h *RiderHandlers) CreateRider(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.RiderRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	rider, err := h.riderService.Create(c.Request().Context(), tenant, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, rider)
}

// ListRiders handles GET /riders?status=
func (h *RiderHandlers) ListRiders(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var status *models.RiderStatus
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		s := models.RiderStatus(raw)
		if !s.IsValid() {
			return common.SendError(c, invalidQuery("status"))
		}
		status = &s
	}
	riders, err := h.riderService.List(c.Request().Context(), tenant, status)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(riders, 0, 0))
}

// GetRider handles GET /riders/:id
func (h *RiderHandlers) GetRider(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	rider, err := h.riderService.GetByID(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, rider)
}

// UpdateRider handles PUT /riders/:id
func (h *RiderHandlers) UpdateRider(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.RiderRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	rider, err := h.riderService.Update(c.Request().Context(), tenant, id, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, rider)
}

// GetLocation handles GET /riders/:id/location
func (h *RiderHandlers) GetLocation(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	loc, err := h.riderService.Location(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, loc)
}

// Nearby handles GET /stores/:id/riders/nearby?radius_km=
func (h *RiderHandlers) Nearby(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	storeID, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	radius := 0.0
	if raw := c.QueryParam("radius_km"); raw != "" {
		if radius, err = strconv.ParseFloat(raw, 64); err != nil {
			return common.SendError(c, apperr.New(apperr.CodeValidation, "radius_km must be a number"))
		}
	}
	riders, err := h.riderService.Nearby(c.Request().Context(), tenant, storeID, radius)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(riders, 0, 0))
}

// me resolves the rider profile of the calling user.
func (h *RiderHandlers) me(c echo.Context) (*models.Rider, error) {
	p, err := principal(c)
	if err != nil {
		return nil, err
	}
	tenant, err := tenantID(c)
	if err != nil {
		return nil, err
	}
	return h.riderService.Me(c.Request().Context(), tenant, p.UserID)
}

// Me handles GET /rider/me
func (h *RiderHandlers) Me(c echo.Context) error {
	rider, err := h.me(c)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, rider)
}

type riderStatusRequest struct {
	Status models.RiderStatus `json:"status" validate:"required,oneof=available offline"`
}

// SetMyStatus handles PUT /rider/me/status
func (h *RiderHandlers) SetMyStatus(c echo.Context) error {
	var req riderStatusRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	rider, err := h.me(c)
	if err != nil {
		return common.SendError(c, err)
	}
	updated, err := h.riderService.SetStatus(c.Request().Context(), rider.TenantID, rider.ID, req.Status)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

type locationRequest struct {
	Latitude  *float64 `json:"lat" validate:"required,latitude"`
	Longitude *float64 `json:"lng" validate:"required,longitude"`
}

// UpdateMyLocation handles POST /rider/me/location
func (h *RiderHandlers) UpdateMyLocation(c echo.Context) error {
	var req locationRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	rider, err := h.me(c)
	if err != nil {
		return common.SendError(c, err)
	}
	loc, err := h.riderService.UpdateLocation(c.Request().Context(), rider.TenantID, rider.ID, *req.Latitude, *req.Longitude)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, loc)
}
