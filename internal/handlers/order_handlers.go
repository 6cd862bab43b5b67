package handlers

import (
	"net/http"
	"strings"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/services"

	"github.com/labstack/echo/v4"
)

// OrderHandlers handles counter sales and order lifecycle requests
type OrderHandlers struct {
	orderService services.OrderService
	storeService services.StoreService
	quoteService services.QuoteService
}

func NewOrderHandlers(orderService services.OrderService, storeService services.StoreService, quoteService services.QuoteService) *OrderHandlers {
	return &OrderHandlers{
		orderService: orderService,
		storeService: storeService,
		quoteService: quoteService,
	}
}

func (h *OrderHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	read := rbac.RequirePermission(models.PermOrdersRead)
	write := rbac.RequirePermission(models.PermOrdersWrite)
	g.POST("/stores/:id/quote", h.Quote, read)
	g.GET("/orders", h.GetOrders, read)
	g.POST("/orders", h.CreateOrder, write)
	g.GET("/orders/:id", h.GetOrder, read)
	g.GET("/orders/:id/history", h.History, read)
	g.POST("/orders/:id/advance", h.Advance, write)
	g.POST("/orders/:id/cancel", h.Cancel, write)
}

// Quote handles POST /stores/:id/quote. It prices a cart without placing an order.
func (h *OrderHandlers) Quote(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	storeID, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.QuoteRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	ctx := c.Request().Context()
	store, err := h.storeService.GetByID(ctx, tenant, storeID)
	if err != nil {
		return common.SendError(c, err)
	}
	quote, err := h.quoteService.Quote(ctx, store, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

// CreateOrder handles POST /orders (point of sale).
func (h *OrderHandlers) CreateOrder(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.CreateOrderRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	order, err := h.orderService.Create(c.Request().Context(), tenant, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandlers) GetOrder(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	order, err := h.orderService.GetByID(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// GetOrders handles GET /orders?q=&store_id=&customer_id=&status=&channel=&from=&to=
func (h *OrderHandlers) GetOrders(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	filter, err := orderFilter(c)
	if err != nil {
		return common.SendError(c, err)
	}
	orders, err := h.orderService.Search(c.Request().Context(), tenant, filter)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(orders, filter.Limit, filter.Offset))
}

func orderFilter(c echo.Context) (models.OrderSearchFilter, error) {
	var f models.OrderSearchFilter
	var err error
	if f.Limit, f.Offset, err = pagination(c); err != nil {
		return f, err
	}
	if f.StoreID, err = queryUUID(c, "store_id"); err != nil {
		return f, err
	}
	if f.CustomerID, err = queryUUID(c, "customer_id"); err != nil {
		return f, err
	}
	if f.CreatedFrom, err = queryTime(c, "from"); err != nil {
		return f, err
	}
	if f.CreatedTo, err = queryTime(c, "to"); err != nil {
		return f, err
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil {
		if err := common.ValidateDateRange(*f.CreatedFrom, *f.CreatedTo); err != nil {
			return f, err
		}
	}
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		s := models.OrderStatus(raw)
		if !s.IsValid() {
			return f, invalidQuery("status")
		}
		f.Status = &s
	}
	if raw := strings.TrimSpace(c.QueryParam("channel")); raw != "" {
		ch := models.Channel(raw)
		if !ch.IsValid() {
			return f, invalidQuery("channel")
		}
		f.Channel = &ch
	}
	f.Query = common.SanitizeSearchQuery(c.QueryParam("q"))
	return f, nil
}

type advanceRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// Advance handles POST /orders/:id/advance. The order moves exactly one step.
func (h *OrderHandlers) Advance(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	var req advanceRequest
	if c.Request().ContentLength != 0 {
		if err := common.BindAndValidate(c, &req); err != nil {
			return common.SendError(c, err)
		}
	}
	order, err := h.orderService.Advance(c.Request().Context(), tenant, id, strings.TrimSpace(req.Note))
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// Cancel handles POST /orders/:id/cancel. Items go back to stock.
func (h *OrderHandlers) Cancel(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	reason, err := bindReason(c)
	if err != nil {
		return common.SendError(c, err)
	}
	order, err := h.orderService.Cancel(c.Request().Context(), tenant, id, reason)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// History handles GET /orders/:id/history
func (h *OrderHandlers) History(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	events, err := h.orderService.History(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(events, 0, 0))
}
