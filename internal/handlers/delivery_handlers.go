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

// DeliveryHandlers handles dispatch and the rider's side of delivery assignments
type DeliveryHandlers struct {
	deliveryService services.DeliveryService
	riderService    services.RiderService
}

func NewDeliveryHandlers(deliveryService services.DeliveryService, riderService services.RiderService) *DeliveryHandlers {
	return &DeliveryHandlers{deliveryService: deliveryService, riderService: riderService}
}

func (h *DeliveryHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	dispatch := rbac.RequirePermission(models.PermDispatch)
	g.POST("/deliveries", h.Assign, dispatch)
	g.GET("/deliveries/:id", h.GetDelivery, dispatch)
	g.POST("/deliveries/:id/cancel", h.Cancel, dispatch)
	g.GET("/orders/:id/deliveries", h.ListByOrder, rbac.RequirePermission(models.PermOrdersRead))

	ride := rbac.RequirePermission(models.PermRide)
	g.GET("/rider/deliveries", h.MyDeliveries, ride)
	g.POST("/rider/deliveries/:id/accept", h.Accept, ride)
	g.POST("/rider/deliveries/:id/reject", h.Reject, ride)
	g.POST("/rider/deliveries/:id/advance", h.Advance, ride)
	g.POST("/rider/deliveries/:id/fail", h.Fail, ride)
	g.POST("/rider/deliveries/:id/proof", h.UploadProof, ride)
}

// Assign handles POST /deliveries
func (h *DeliveryHandlers) Assign(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	var req services.AssignDeliveryRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return common.SendError(c, err)
	}
	assignment, err := h.deliveryService.Assign(c.Request().Context(), tenant, &req)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, assignment)
}

// GetDelivery handles GET /deliveries/:id
func (h *DeliveryHandlers) GetDelivery(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	assignment, err := h.deliveryService.GetByID(c.Request().Context(), tenant, id)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, assignment)
}

// Cancel handles POST /deliveries/:id/cancel
func (h *DeliveryHandlers) Cancel(c echo.Context) error {
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
	assignment, err := h.deliveryService.Cancel(c.Request().Context(), tenant, id, reason)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, assignment)
}

// ListByOrder handles GET /orders/:id/deliveries
func (h *DeliveryHandlers) ListByOrder(c echo.Context) error {
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	orderID, err := pathUUID(c, "id")
	if err != nil {
		return common.SendError(c, err)
	}
	assignments, err := h.deliveryService.ListByOrder(c.Request().Context(), tenant, orderID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(assignments, 0, 0))
}

// riderCall is the calling rider plus the assignment id from the path, when there is one.
type riderCall struct {
	tenantID     uuid.UUID
	riderID      uuid.UUID
	assignmentID uuid.UUID
}

func (h *DeliveryHandlers) riderCall(c echo.Context, withAssignment bool) (riderCall, error) {
	var rc riderCall
	p, err := principal(c)
	if err != nil {
		return rc, err
	}
	if rc.tenantID, err = tenantID(c); err != nil {
		return rc, err
	}
	rider, err := h.riderService.Me(c.Request().Context(), rc.tenantID, p.UserID)
	if err != nil {
		return rc, err
	}
	rc.riderID = rider.ID
	if withAssignment {
		if rc.assignmentID, err = pathUUID(c, "id"); err != nil {
			return rc, err
		}
	}
	return rc, nil
}

// MyDeliveries handles GET /rider/deliveries?limit=. Active assignments come first.
func (h *DeliveryHandlers) MyDeliveries(c echo.Context) error {
	rc, err := h.riderCall(c, false)
	if err != nil {
		return common.SendError(c, err)
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return common.SendError(c, apperr.New(apperr.CodeValidation, "limit must be a number"))
		}
	}
	assignments, err := h.deliveryService.ListForRider(c.Request().Context(), rc.tenantID, rc.riderID, limit)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, list(assignments, limit, 0))
}

// Accept handles POST /rider/deliveries/:id/accept
func (h *DeliveryHandlers) Accept(c echo.Context) error {
	rc, err := h.riderCall(c, true)
	if err != nil {
		return common.SendError(c, err)
	}
	assignment, err := h.deliveryService.Accept(c.Request().Context(), rc.tenantID, rc.riderID, rc.assignmentID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, assignment)
}

// Reject handles POST /rider/deliveries/:id/reject
func (h *DeliveryHandlers) Reject(c echo.Context) error {
	rc, err := h.riderCall(c, true)
	if err != nil {
		return common.SendError(c, err)
	}
	reason, err := bindReason(c)
	if err != nil {
		return common.SendError(c, err)
	}
	assignment, err := h.deliveryService.Reject(c.Request().Context(), rc.tenantID, rc.riderID, rc.assignmentID, reason)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, assignment)
}

// Advance handles POST /rider/deliveries/:id/advance
func (h *DeliveryHandlers) Advance(c echo.Context) error {
	rc, err := h.riderCall(c, true)
	if err != nil {
		return common.SendError(c, err)
	}
	assignment, err := h.deliveryService.Advance(c.Request().Context(), rc.tenantID, rc.riderID, rc.assignmentID)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, assignment)
}

// Fail handles POST /rider/deliveries/:id/fail. A reason is required.
func (h *DeliveryHandlers) Fail(c echo.Context) error {
	rc, err := h.riderCall(c, true)
	if err != nil {
		return common.SendError(c, err)
	}
	reason, err := bindReason(c)
	if err != nil {
		return common.SendError(c, err)
	}
	assignment, err := h.deliveryService.Fail(c.Request().Context(), rc.tenantID, rc.riderID, rc.assignmentID, reason)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, assignment)
}

// UploadProof handles POST /rider/deliveries/:id/proof (multipart field "photo").
func (h *DeliveryHandlers) UploadProof(c echo.Context) error {
	rc, err := h.riderCall(c, true)
	if err != nil {
		return common.SendError(c, err)
	}
	upload, closeFn, err := formImage(c, "photo")
	if err != nil {
		return common.SendError(c, err)
	}
	defer closeFn()

	proof, err := h.deliveryService.UploadProof(c.Request().Context(), rc.tenantID, rc.riderID, rc.assignmentID, upload)
	if err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusCreated, proof)
}
