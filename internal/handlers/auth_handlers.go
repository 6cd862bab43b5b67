package handlers

import (
	"net/http"

	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandlers exposes the caller's identity. Sign-in itself happens at the auth provider.
type AuthHandlers struct {
	rbacService services.RBACService
}

func NewAuthHandlers(rbacService services.RBACService) *AuthHandlers {
	return &AuthHandlers{rbacService: rbacService}
}

func (h *AuthHandlers) RegisterRoutes(g *echo.Group) {
	g.GET("/me", h.Me)
}

// MeResponse is the authenticated principal with the permissions its role grants.
type MeResponse struct {
	*models.Principal
	Permissions []models.Permission `json:"permissions"`
}

// Me handles GET /me
func (h *AuthHandlers) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return common.SendError(c, err)
	}
	perms := h.rbacService.Permissions(p.Role)
	if perms == nil {
		perms = []models.Permission{}
	}
	return c.JSON(http.StatusOK, MeResponse{Principal: p, Permissions: perms})
}
