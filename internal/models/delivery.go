package models

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryAssigned  DeliveryStatus = "assigned"
	DeliveryAccepted  DeliveryStatus = "accepted"
	DeliveryPickedUp  DeliveryStatus = "picked_up"
	DeliveryInTransit DeliveryStatus = "in_transit"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRejected  DeliveryStatus = "rejected"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryCancelled DeliveryStatus = "cancelled"
)

var deliveryNext = map[DeliveryStatus]DeliveryStatus{
	DeliveryAssigned:  DeliveryAccepted,
	DeliveryAccepted:  DeliveryPickedUp,
	DeliveryPickedUp:  DeliveryInTransit,
	DeliveryInTransit: DeliveryDelivered,
}

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryAssigned, DeliveryAccepted, DeliveryPickedUp, DeliveryInTransit,
		DeliveryDelivered, DeliveryRejected, DeliveryFailed, DeliveryCancelled:
		return true
	}
	return false
}

// IsActive reports whether the assignment still holds the order and the rider.
func (s DeliveryStatus) IsActive() bool {
	_, ok := deliveryNext[s]
	return ok
}

// Next is the forward step of an active assignment.
func (s DeliveryStatus) Next() (DeliveryStatus, bool) {
	n, ok := deliveryNext[s]
	return n, ok
}

func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	switch next {
	case DeliveryRejected:
		return s == DeliveryAssigned
	case DeliveryFailed, DeliveryCancelled:
		return s.IsActive()
	}
	n, ok := s.Next()
	return ok && n == next
}

// OrderStatus is the order status mirrored when an assignment reaches s, if any.
func (s DeliveryStatus) OrderStatus() (OrderStatus, bool) {
	switch s {
	case DeliveryPickedUp:
		return OrderPickedUp, true
	case DeliveryInTransit:
		return OrderInTransit, true
	case DeliveryDelivered:
		return OrderDelivered, true
	}
	return "", false
}

type DeliveryAssignment struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	TenantID      uuid.UUID      `json:"tenant_id" db:"tenant_id"`
	OrderID       uuid.UUID      `json:"order_id" db:"order_id"`
	RiderID       uuid.UUID      `json:"rider_id" db:"rider_id"`
	Status        DeliveryStatus `json:"status" db:"status"`
	AssignedBy    *uuid.UUID     `json:"assigned_by" db:"assigned_by"`
	AssignedAt    time.Time      `json:"assigned_at" db:"assigned_at"`
	AcceptedAt    *time.Time     `json:"accepted_at" db:"accepted_at"`
	PickedUpAt    *time.Time     `json:"picked_up_at" db:"picked_up_at"`
	DeliveredAt   *time.Time     `json:"delivered_at" db:"delivered_at"`
	FailureReason *string        `json:"failure_reason" db:"failure_reason"`
	ProofKey      *string        `json:"proof_key" db:"proof_key"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// Stamp sets the timestamp that belongs to status s.
func (d *DeliveryAssignment) Stamp(s DeliveryStatus, at time.Time) {
	switch s {
	case DeliveryAccepted:
		d.AcceptedAt = &at
	case DeliveryPickedUp:
		d.PickedUpAt = &at
	case DeliveryDelivered:
		d.DeliveredAt = &at
	}
	d.Status = s
	d.UpdatedAt = at
}
