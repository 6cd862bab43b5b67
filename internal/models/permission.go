package models

import (
	"github.com/google/uuid"
)

type Role string

const (
	RolePlatformAdmin Role = "platform_admin"
	RoleOwner         Role = "owner"
	RoleManager       Role = "manager"
	RoleCashier       Role = "cashier"
	RoleRider         Role = "rider"
	RoleCustomer      Role = "customer"
)

func (r Role) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

type Permission string

const (
	PermTenantsRead    Permission = "tenants:read"
	PermTenantsWrite   Permission = "tenants:write"
	PermTenantsApprove Permission = "tenants:approve"
	PermStoresWrite    Permission = "stores:write"
	PermProductsRead   Permission = "products:read"
	PermProductsWrite  Permission = "products:write"
	PermStockWrite     Permission = "stock:write"
	PermCustomersWrite Permission = "customers:write"
	PermOrdersRead     Permission = "orders:read"
	PermOrdersWrite    Permission = "orders:write"
	PermPaymentsWrite  Permission = "payments:write"
	PermZonesWrite     Permission = "zones:write"
	PermRidersWrite    Permission = "riders:write"
	PermDispatch       Permission = "deliveries:dispatch"
	PermRide           Permission = "deliveries:ride"
	PermAnalyticsRead  Permission = "analytics:read"
	PermPlatformRead   Permission = "platform:read"
)

var staffPermissions = []Permission{
	PermProductsRead, PermCustomersWrite, PermOrdersRead, PermOrdersWrite, PermPaymentsWrite,
}

var managerPermissions = append(append([]Permission{}, staffPermissions...),
	PermProductsWrite, PermStockWrite, PermZonesWrite, PermRidersWrite, PermDispatch, PermAnalyticsRead,
)

var rolePermissions = map[Role][]Permission{
	RolePlatformAdmin: {PermTenantsRead, PermTenantsApprove, PermPlatformRead, PermAnalyticsRead},
	RoleOwner:         append(append([]Permission{}, managerPermissions...), PermTenantsRead, PermTenantsWrite, PermStoresWrite),
	RoleManager:       managerPermissions,
	RoleCashier:       staffPermissions,
	RoleRider:         {PermRide},
	RoleCustomer:      {},
}

// AllPermissions lists every permission the platform knows.
func AllPermissions() []Permission {
	return []Permission{
		PermTenantsRead, PermTenantsWrite, PermTenantsApprove, PermStoresWrite, PermProductsRead,
		PermProductsWrite, PermStockWrite, PermCustomersWrite, PermOrdersRead, PermOrdersWrite,
		PermPaymentsWrite, PermZonesWrite, PermRidersWrite, PermDispatch, PermRide,
		PermAnalyticsRead, PermPlatformRead,
	}
}

// Can reports whether the role grants p.
func (r Role) Can(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller, built from verified token claims.
type Principal struct {
	UserID   uuid.UUID  `json:"user_id"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
	StoreID  *uuid.UUID `json:"store_id,omitempty"`
	Role     Role       `json:"role"`
	Phone    string     `json:"phone,omitempty"`
}
