package services

import (
	"context"
	"fmt"
	"strings"

	"warehousepos/internal/caching"
	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
)

type TenantService interface {
	Register(ctx context.Context, req *RegisterTenantRequest) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateTenantRequest) (*models.Tenant, error)
	List(ctx context.Context, status *models.TenantStatus, limit, offset int) ([]*models.Tenant, error)
	Approve(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Tenant, error)
	Suspend(ctx context.Context, id uuid.UUID, reason string) (*models.Tenant, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	// RequireActive loads the tenant and fails unless it may sell.
	RequireActive(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type tenantService struct {
	tenantRepo   repositories.TenantRepository
	cacheService caching.CacheService
	log          *logger.Logger
}

func NewTenantService(tenantRepo repositories.TenantRepository, cacheService caching.CacheService, log *logger.Logger) TenantService {
	return &tenantService{tenantRepo: tenantRepo, cacheService: cacheService, log: log}
}

type RegisterTenantRequest struct {
	Name         string              `json:"name" validate:"required,min=2,max=120"`
	Slug         string              `json:"slug" validate:"omitempty,min=2,max=60"`
	BusinessType models.BusinessType `json:"business_type" validate:"required"`
	CountryCode  string              `json:"country_code" validate:"required,len=2"`
	Phone        string              `json:"phone" validate:"required"`
	Email        *string             `json:"email" validate:"omitempty,email"`
}

type UpdateTenantRequest struct {
	Name         string              `json:"name" validate:"required,min=2,max=120"`
	BusinessType models.BusinessType `json:"business_type" validate:"required"`
	Phone        string              `json:"phone" validate:"required"`
	Email        *string             `json:"email" validate:"omitempty,email"`
}

func (s *tenantService) Register(ctx context.Context, req *RegisterTenantRequest) (*models.Tenant, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.New(apperr.CodeValidation, "name is required")
	}
	if !req.BusinessType.IsValid() {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown business type %q", req.BusinessType)
	}
	country, ok := models.CountryByCode(strings.ToUpper(req.CountryCode))
	if !ok {
		return nil, apperr.Newf(apperr.CodeValidation, "country %q is not supported", req.CountryCode)
	}
	phone, err := common.NormalizePhone(req.Phone, country)
	if err != nil {
		return nil, err
	}

	slug := slugify(req.Slug)
	if slug == "" {
		slug = slugify(req.Name)
	}
	if slug == "" {
		return nil, apperr.New(apperr.CodeValidation, "name must contain letters or digits")
	}

	tenant := &models.Tenant{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Slug:         slug,
		BusinessType: req.BusinessType,
		CountryCode:  country.Code,
		Phone:        phone,
		Email:        req.Email,
		OwnerID:      common.ActorID(ctx),
		Status:       models.TenantPending,
	}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	s.log.Info(s.log.WithTenantID(ctx, tenant.ID.String()), "tenant registered")
	return tenant, nil
}

func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, id)
}

func (s *tenantService) Update(ctx context.Context, id uuid.UUID, req *UpdateTenantRequest) (*models.Tenant, error) {
	existing, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.BusinessType.IsValid() {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown business type %q", req.BusinessType)
	}
	country, _ := models.CountryByCode(existing.CountryCode)
	phone, err := common.NormalizePhone(req.Phone, country)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.BusinessType = req.BusinessType
	existing.Phone = phone
	existing.Email = req.Email
	if err := s.tenantRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *tenantService) List(ctx context.Context, status *models.TenantStatus, limit, offset int) ([]*models.Tenant, error) {
	if status != nil && !status.IsValid() {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown tenant status %q", *status)
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.tenantRepo.List(ctx, status, limit, offset)
}

func (s *tenantService) Approve(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.transition(ctx, id, models.TenantActive, "")
}

func (s *tenantService) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Tenant, error) {
	return s.transition(ctx, id, models.TenantRejected, reason)
}

func (s *tenantService) Suspend(ctx context.Context, id uuid.UUID, reason string) (*models.Tenant, error) {
	return s.transition(ctx, id, models.TenantSuspended, reason)
}

func (s *tenantService) Reactivate(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.transition(ctx, id, models.TenantActive, "")
}

func (s *tenantService) transition(ctx context.Context, id uuid.UUID, to models.TenantStatus, reason string) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tenant.Status.CanTransitionTo(to) {
		return nil, apperr.Newf(apperr.CodeStateConflict, "cannot move tenant from %s to %s", tenant.Status, to).
			WithDetails(map[string]string{"status": string(tenant.Status)})
	}

	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" {
		reasonPtr = &r
	}
	if err := s.tenantRepo.UpdateStatus(ctx, id, tenant.Status, to, reasonPtr); err != nil {
		return nil, err
	}

	if cacheErr := s.cacheService.InvalidateTenantCache(ctx, id); cacheErr != nil {
		s.log.Error(ctx, "invalidate tenant cache", cacheErr)
	}

	ctx = s.log.WithFields(ctx, map[string]any{"tenant_id": id.String(), "from": tenant.Status, "to": to})
	s.log.Info(ctx, "tenant status changed")

	tenant.Status = to
	tenant.StatusReason = reasonPtr
	return tenant, nil
}

func (s *tenantService) RequireActive(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tenant.CanSell() {
		return nil, apperr.New(apperr.CodeForbidden, fmt.Sprintf("tenant is %s and cannot sell", tenant.Status))
	}
	return tenant, nil
}
