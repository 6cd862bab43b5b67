package handlers

import (
	"net/http"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/pkg/logger"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// Handlers is every route group the API serves. Jobs may be nil when the process runs without a scheduler.
type Handlers struct {
	Health        *HealthHandlers
	Auth          *AuthHandlers
	Tenants       *TenantHandlers
	Stores        *StoreHandlers
	Categories    *CategoryHandlers
	Products      *ProductHandlers
	Stock         *StockHandlers
	Customers     *CustomerHandlers
	Orders        *OrderHandlers
	Payments      *PaymentHandlers
	Zones         *ZoneHandlers
	Riders        *RiderHandlers
	Deliveries    *DeliveryHandlers
	Portal        *PortalHandlers
	Analytics     *AnalyticsHandlers
	Notifications *NotificationHandlers
	Webhooks      *WebhookHandlers
	Jobs          *JobHandlers
}

type RouterOptions struct {
	Log         *logger.Logger
	Auth        echo.MiddlewareFunc
	RBAC        *middleware.RBACMiddleware
	CORSOrigins []string
	BodyLimit   string
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the echo server with global middleware and every route mounted.
func NewRouter(h Handlers, opts RouterOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = common.HTTPErrorHandler

	audit := middleware.NewAuditMiddleware(opts.Log)
	versions := middleware.NewVersionMiddleware()

	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.RequestID())
	e.Use(audit.RequestContext())
	e.Use(audit.AuditRequest())
	e.Use(echoMiddleware.RecoverWithConfig(echoMiddleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			opts.Log.Zerolog(c.Request().Context()).Error().Err(err).Bytes("stack", stack).Msg("panic recovered")
			return err
		},
	}))
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins:  opts.CORSOrigins,
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, IdempotencyKeyHeader},
		ExposeHeaders: []string{echo.HeaderXRequestID, "X-API-Version"},
	}))
	if opts.BodyLimit != "" {
		e.Use(echoMiddleware.BodyLimit(opts.BodyLimit))
	}
	e.Use(versions.APIVersionResolver())

	e.GET("/health", h.Health.LivenessCheck)
	e.GET("/health/ready", h.Health.ReadinessCheck)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}
	e.GET("/versions", versions.Info)
	h.Webhooks.RegisterRoutes(e)

	v1 := versions.VersionRoute(e, "v1")
	h.Tenants.RegisterPublic(v1)
	h.Portal.RegisterRoutes(v1)

	protected := v1.Group("", opts.Auth)
	h.Auth.RegisterRoutes(protected)

	tenant := protected.Group("", opts.RBAC.RequireTenant())
	h.Tenants.RegisterRoutes(tenant, opts.RBAC)
	h.Stores.RegisterRoutes(tenant, opts.RBAC)
	h.Categories.RegisterRoutes(tenant, opts.RBAC)
	h.Products.RegisterRoutes(tenant, opts.RBAC)
	h.Stock.RegisterRoutes(tenant, opts.RBAC)
	h.Customers.RegisterRoutes(tenant, opts.RBAC)
	h.Orders.RegisterRoutes(tenant, opts.RBAC)
	h.Payments.RegisterRoutes(tenant, opts.RBAC)
	h.Zones.RegisterRoutes(tenant, opts.RBAC)
	h.Riders.RegisterRoutes(tenant, opts.RBAC)
	h.Deliveries.RegisterRoutes(tenant, opts.RBAC)
	h.Analytics.RegisterRoutes(tenant, opts.RBAC)
	h.Notifications.RegisterRoutes(tenant, opts.RBAC)

	admin := protected.Group("/admin")
	h.Tenants.RegisterAdmin(admin, opts.RBAC)
	h.Analytics.RegisterAdmin(admin, opts.RBAC)
	if h.Jobs != nil {
		h.Jobs.RegisterAdmin(admin, opts.RBAC)
	}

	return e
}
