package middleware

import (
	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/services"
	"warehousepos/pkg/apperr"

	"github.com/labstack/echo/v4"
)

type RBACMiddleware struct {
	rbacService services.RBACService
}

func NewRBACMiddleware(rbacService services.RBACService) *RBACMiddleware {
	return &RBACMiddleware{
		rbacService: rbacService,
	}
}

// RequirePermission rejects callers whose role does not grant permission. It must run after JWTMiddleware.
func (m *RBACMiddleware) RequirePermission(permission models.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			principal, ok := common.GetPrincipal(ctx)
			if !ok {
				return common.SendError(c, apperr.New(apperr.CodeUnauthorized, "User not authenticated"))
			}
			if err := m.rbacService.Authorize(ctx, principal, permission); err != nil {
				return common.SendError(c, err)
			}
			return next(c)
		}
	}
}

// RequireAnyPermission admits callers whose role grants at least one of permissions.
func (m *RBACMiddleware) RequireAnyPermission(permissions ...models.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			principal, ok := common.GetPrincipal(ctx)
			if !ok {
				return common.SendError(c, apperr.New(apperr.CodeUnauthorized, "User not authenticated"))
			}
			var err error = apperr.New(apperr.CodeForbidden, "Insufficient permissions")
			for _, permission := range permissions {
				if err = m.rbacService.Authorize(ctx, principal, permission); err == nil {
					return next(c)
				}
			}
			return common.SendError(c, err)
		}
	}
}

// RequireTenant rejects callers without a tenant, such as platform operators on tenant routes.
func (m *RBACMiddleware) RequireTenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := common.GetPrincipal(c.Request().Context())
			if !ok {
				return common.SendError(c, apperr.New(apperr.CodeUnauthorized, "User not authenticated"))
			}
			if _, err := m.rbacService.TenantScope(principal); err != nil {
				return common.SendError(c, err)
			}
			return next(c)
		}
	}
}
