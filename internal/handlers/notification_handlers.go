package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"warehousepos/internal/common"
	"warehousepos/internal/middleware"
	"warehousepos/internal/models"
	"warehousepos/internal/realtime"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeartbeatInterval keeps idle event streams open through proxies.
const HeartbeatInterval = 25 * time.Second

// EventSource subscribes to a tenant's realtime channel.
type EventSource interface {
	Subscribe(ctx context.Context, tenantID uuid.UUID) (*realtime.Subscription, error)
}

// RiderLookup resolves the rider profile behind a rider's token.
type RiderLookup interface {
	Me(ctx context.Context, tenantID, userID uuid.UUID) (*models.Rider, error)
}

// NotificationHandlers pushes order, payment and delivery events to the POS and delivery apps over server-sent events
type NotificationHandlers struct {
	events    EventSource
	riders    RiderLookup
	heartbeat time.Duration
	log       *logger.Logger
}

func NewNotificationHandlers(events EventSource, riders RiderLookup, log *logger.Logger) *NotificationHandlers {
	return &NotificationHandlers{events: events, riders: riders, heartbeat: HeartbeatInterval, log: log}
}

func (h *NotificationHandlers) RegisterRoutes(g *echo.Group, rbac *middleware.RBACMiddleware) {
	g.GET("/events", h.Stream, rbac.RequireAnyPermission(models.PermOrdersRead, models.PermRide))
}

// Stream handles GET /events. Riders only receive events about themselves.
func (h *NotificationHandlers) Stream(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return common.SendError(c, err)
	}
	tenant, err := tenantID(c)
	if err != nil {
		return common.SendError(c, err)
	}
	ctx := c.Request().Context()

	var riderID *uuid.UUID
	if p.Role == models.RoleRider {
		rider, err := h.riders.Me(ctx, tenant, p.UserID)
		if err != nil {
			return common.SendError(c, err)
		}
		riderID = &rider.ID
	}

	sub, err := h.events.Subscribe(ctx, tenant)
	if err != nil {
		return common.SendError(c, apperr.Wrap(apperr.CodeDependency, err, "event stream unavailable"))
	}
	defer func() {
		if err := sub.Close(); err != nil {
			h.log.Warn(ctx, "close event subscription: "+err.Error())
		}
	}()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(res, ": connected\n\n"); err != nil {
		return nil
	}
	res.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if !visibleTo(riderID, e) {
				continue
			}
			if err := writeEvent(res, e); err != nil {
				h.log.Debug(ctx, "event stream closed: "+err.Error())
				return nil
			}
			res.Flush()
		}
	}
}

// visibleTo limits a rider's stream to events naming that rider. Staff streams pass riderID nil and see everything.
func visibleTo(riderID *uuid.UUID, e models.Event) bool {
	if riderID == nil {
		return true
	}
	return e.RiderID != nil && *e.RiderID == *riderID
}

func writeEvent(w *echo.Response, e models.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload)
	return err
}
