package services

import (
	"context"
	"sort"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
)

type RBACService interface {
	// Authorize fails with FORBIDDEN unless the principal's role grants perm.
	Authorize(ctx context.Context, principal *models.Principal, perm models.Permission) error
	// TenantScope returns the tenant every query of the principal is limited to.
	TenantScope(principal *models.Principal) (uuid.UUID, error)
	Permissions(role models.Role) []models.Permission
}

type rbacService struct{}

func NewRBACService() RBACService {
	return &rbacService{}
}

func (s *rbacService) Authorize(ctx context.Context, principal *models.Principal, perm models.Permission) error {
	if principal == nil {
		return apperr.New(apperr.CodeUnauthorized, "authentication required")
	}
	if !principal.Role.Can(perm) {
		return apperr.Newf(apperr.CodeForbidden, "role %s lacks %s", principal.Role, perm)
	}
	return nil
}

func (s *rbacService) TenantScope(principal *models.Principal) (uuid.UUID, error) {
	if principal == nil {
		return uuid.Nil, apperr.New(apperr.CodeUnauthorized, "authentication required")
	}
	if principal.TenantID == nil || *principal.TenantID == uuid.Nil {
		return uuid.Nil, apperr.New(apperr.CodeForbidden, "token is not bound to a tenant")
	}
	return *principal.TenantID, nil
}

func (s *rbacService) Permissions(role models.Role) []models.Permission {
	var perms []models.Permission
	for _, p := range models.AllPermissions() {
		if role.Can(p) {
			perms = append(perms, p)
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}
