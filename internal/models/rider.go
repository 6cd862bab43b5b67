package models

import (
	"time"

	"github.com/google/uuid"
)

type RiderStatus string

const (
	RiderOffline   RiderStatus = "offline"
	RiderAvailable RiderStatus = "available"
	RiderBusy      RiderStatus = "busy"
)

func (s RiderStatus) IsValid() bool {
	return s == RiderOffline || s == RiderAvailable || s == RiderBusy
}

type VehicleType string

const (
	VehicleBicycle   VehicleType = "bicycle"
	VehicleMotorbike VehicleType = "motorbike"
	VehicleBike      VehicleType = "bike"
	VehicleCar       VehicleType = "car"
)

func (v VehicleType) IsValid() bool {
	switch v {
	case VehicleBicycle, VehicleMotorbike, VehicleBike, VehicleCar:
		return true
	}
	return false
}

type Rider struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	TenantID   uuid.UUID   `json:"tenant_id" db:"tenant_id"`
	UserID     *uuid.UUID  `json:"user_id" db:"user_id"`
	Name       string      `json:"name" db:"name"`
	Phone      string      `json:"phone" db:"phone"`
	Vehicle    VehicleType `json:"vehicle" db:"vehicle"`
	Status     RiderStatus `json:"status" db:"status"`
	LastSeenAt *time.Time  `json:"last_seen_at" db:"last_seen_at"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// RiderLocation is the last reported position of a rider.
type RiderLocation struct {
	RiderID    uuid.UUID `json:"rider_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	DistanceKm float64   `json:"distance_km,omitempty"`
	SeenAt     time.Time `json:"seen_at"`
}

// NearbyRider pairs a rider with its distance from a point.
type NearbyRider struct {
	Rider      *Rider  `json:"rider"`
	DistanceKm float64 `json:"distance_km"`
}
