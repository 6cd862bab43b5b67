package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOrderCreated     EventType = "order.created"
	EventOrderStatus      EventType = "order.status_changed"
	EventPaymentRecorded  EventType = "payment.recorded"
	EventDeliveryAssigned EventType = "delivery.assigned"
	EventDeliveryStatus   EventType = "delivery.status_changed"
	EventRiderLocation    EventType = "rider.location"
)

// Event is published on a tenant's realtime channel.
type Event struct {
	Type         EventType  `json:"type"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	OrderID      *uuid.UUID `json:"order_id,omitempty"`
	AssignmentID *uuid.UUID `json:"assignment_id,omitempty"`
	RiderID      *uuid.UUID `json:"rider_id,omitempty"`
	Status       string     `json:"status,omitempty"`
	Data         any        `json:"data,omitempty"`
	At           time.Time  `json:"at"`
}
