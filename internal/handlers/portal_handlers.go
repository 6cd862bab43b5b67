package handlers

import (
	"net/http"
	"strings"

	"warehousepos/internal/common"
	"warehousepos/internal/services"
	"warehousepos/pkg/apperr"

	"github.com/labstack/echo/v4"
)

// IdempotencyKeyHeader makes portal checkouts safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// PortalHandlers serves the public storefront. None of its routes need a token.
type PortalHandlers struct {
	portalService services.PortalService
}

func NewPortalHandlers(portalService services.PortalService) *PortalHandlers {
	return &PortalHandlers{portalService: portalService}
}

func (h *PortalHandlers) RegisterRoutes(g *echo.Group) {
	p := g.Group("/portal/:slug")
	p.GET("", h.GetStore)
	p.GET("/products", h.ListProducts)
	p.POST("/quote", h.Quote)
	p.POST("/checkout", h.Checkout)
	p.GET("/orders/:id", h.Track)
}

func slug(c echo.Context) (string, error) {
	s := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	if s == "" {
		return "", apperr.New(apperr.CodeNotFound, "store not found")
	}
	return s, nil
}

// GetStore handles GET /portal/:slug
func (h *PortalHandlers) GetStore(c echo.Context) error {
	s, err := slug(c)
	if err != nil {
		return common.SendError(c, err)
	}
	store, err := h.portalService.Store(c.Request().Context(), s)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, store)
}

// ListProducts handles GET /portal/:slug/products. Inactive products are never listed.
func (h *PortalHandlers) ListProducts(c echo.Context) error {
	s, err := slug(c)
	if err != nil {
		return common.SendError(c, err)
	}
	filter, err := productFilter(c)
	if err != nil {
		return common.SendError(c, err)
	}
	products, err := h.portalService.Products(c.Request().Context(), s, filter)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(products, filter.Limit, filter.Offset))
}

// Quote handles POST /portal/:slug/quote
func (h *PortalHandlers) Quote(c echo.Context) error {
	s, err := slug(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.QuoteRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	quote, err := h.portalService.Quote(c.Request().Context(), s, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}

// Checkout handles POST /portal/:slug/checkout
func (h *PortalHandlers) Checkout(c echo.Context) error {
	s, err := slug(c)
	if err != nil {
		return common.SendError(c, err)
	}
	key := strings.TrimSpace(c.Request().Header.Get(IdempotencyKeyHeader))
	if len(key) > 128 {
		return common.SendError(c, apperr.New(apperr.CodeValidation, "Idempotency-Key is too long").
			WithDetails(map[string]string{"Idempotency-Key": "must be at most 128 characters"}))
	}
	var req services.CheckoutRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	order, err := h.portalService.Checkout(c.Request().Context(), s, key, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// Track handles GET /portal/:slug/orders/:id?phone=. Unknown id and phone pairs are NOT_FOUND.
func (h *PortalHandlers) Track(c echo.Context) error {
	s, err := slug(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	phone := strings.TrimSpace(c.QueryParam("phone"))
	if phone == "" {
		return common.SendError(c, apperr.New(apperr.CodeValidation, "phone is required").
			WithDetails(map[string]string{"phone": "is required"}))
	}
	order, err := h.portalService.Track(c.Request().Context(), s, id, phone)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}
