package models

import (
	"time"

	"github.com/google/uuid"
)

type TenantStatus string

const (
	TenantPending   TenantStatus = "pending"
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
	TenantRejected  TenantStatus = "rejected"
)

var tenantTransitions = map[TenantStatus][]TenantStatus{
	TenantPending:   {TenantActive, TenantRejected},
	TenantActive:    {TenantSuspended},
	TenantSuspended: {TenantActive},
}

func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantPending, TenantActive, TenantSuspended, TenantRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether an operator may move a tenant from s to next.
func (s TenantStatus) CanTransitionTo(next TenantStatus) bool {
	for _, allowed := range tenantTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type BusinessType string

const (
	BusinessPharmacy    BusinessType = "pharmacy"
	BusinessShop        BusinessType = "shop"
	BusinessWholesale   BusinessType = "wholesale"
	BusinessSupermarket BusinessType = "supermarket"
	BusinessOther       BusinessType = "other"
)

func (b BusinessType) IsValid() bool {
	switch b {
	case BusinessPharmacy, BusinessShop, BusinessWholesale, BusinessSupermarket, BusinessOther:
		return true
	}
	return false
}

type Tenant struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	Slug         string       `json:"slug" db:"slug"`
	BusinessType BusinessType `json:"business_type" db:"business_type"`
	CountryCode  string       `json:"country_code" db:"country_code"`
	Phone        string       `json:"phone" db:"phone"`
	Email        *string      `json:"email" db:"email"`
	OwnerID      *uuid.UUID   `json:"owner_id" db:"owner_id"`
	Status       TenantStatus `json:"status" db:"status"`
	StatusReason *string      `json:"status_reason,omitempty" db:"status_reason"`
	ApprovedAt   *time.Time   `json:"approved_at,omitempty" db:"approved_at"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// CanSell reports whether the tenant may take orders.
func (t *Tenant) CanSell() bool {
	return t.Status == TenantActive
}
