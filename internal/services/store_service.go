package services

import (
	"context"
	"strings"
	"time"

	"warehousepos/internal/caching"
	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const storeCacheTTL = 10 * time.Minute

type StoreService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *StoreRequest) (*models.Store, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Store, error)
	// GetBySlug resolves a public storefront. Offline stores are reported as not found.
	GetBySlug(ctx context.Context, slug string) (*models.Store, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.Store, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *StoreRequest) (*models.Store, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type storeService struct {
	storeRepo    repositories.StoreRepository
	tenantRepo   repositories.TenantRepository
	cacheService caching.CacheService
	log          *logger.Logger
}

func NewStoreService(storeRepo repositories.StoreRepository, tenantRepo repositories.TenantRepository, cacheService caching.CacheService, log *logger.Logger) StoreService {
	return &storeService{storeRepo: storeRepo, tenantRepo: tenantRepo, cacheService: cacheService, log: log}
}

type StoreRequest struct {
	Name      string           `json:"name" validate:"required,min=2,max=120"`
	Slug      string           `json:"slug" validate:"omitempty,min=2,max=60"`
	Address   *string          `json:"address"`
	Phone     *string          `json:"phone"`
	Latitude  *float64         `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64         `json:"longitude" validate:"omitempty,longitude"`
	IsOnline  bool             `json:"is_online"`
	TaxRate   *decimal.Decimal `json:"tax_rate"`
}

func (r *StoreRequest) validate() error {
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return apperr.New(apperr.CodeValidation, "latitude and longitude must be set together")
	}
	if r.TaxRate != nil && (r.TaxRate.IsNegative() || r.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1))) {
		return apperr.New(apperr.CodeValidation, "tax_rate must be a fraction between 0 and 1")
	}
	return nil
}

func (s *storeService) normalizePhone(phone *string, countryCode string) (*string, error) {
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil, nil
	}
	country, _ := models.CountryByCode(countryCode)
	p, err := common.NormalizePhone(*phone, country)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *storeService) Create(ctx context.Context, tenantID uuid.UUID, req *StoreRequest) (*models.Store, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	country, _ := models.CountryByCode(tenant.CountryCode)
	phone, err := s.normalizePhone(req.Phone, tenant.CountryCode)
	if err != nil {
		return nil, err
	}

	slug := slugify(req.Slug)
	if slug == "" {
		slug = slugify(tenant.Slug + "-" + req.Name)
	}

	store := &models.Store{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      strings.TrimSpace(req.Name),
		Slug:      slug,
		Address:   req.Address,
		Phone:     phone,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		IsOnline:  req.IsOnline,
		Currency:  country.Currency,
		TaxRate:   decimal.Zero,
	}
	if req.TaxRate != nil {
		store.TaxRate = *req.TaxRate
	}
	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *storeService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Store, error) {
	return s.storeRepo.GetByID(ctx, tenantID, id)
}

func (s *storeService) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, apperr.New(apperr.CodeValidation, "slug is required")
	}

	if cached, err := s.cacheService.GetStore(ctx, slug); cached != nil {
		return cached, nil
	} else if err != nil {
		s.log.Error(ctx, "store cache read", err)
	}

	store, err := s.storeRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !store.IsOnline {
		return nil, apperr.New(apperr.CodeNotFound, "store not found")
	}

	if cacheErr := s.cacheService.SetStore(ctx, store, storeCacheTTL); cacheErr != nil {
		s.log.Error(ctx, "store cache write", cacheErr)
	}
	return store, nil
}

func (s *storeService) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Store, error) {
	return s.storeRepo.ListByTenant(ctx, tenantID)
}

func (s *storeService) Update(ctx context.Context, tenantID, id uuid.UUID, req *StoreRequest) (*models.Store, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	existing, err := s.storeRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	phone, err := s.normalizePhone(req.Phone, tenant.CountryCode)
	if err != nil {
		return nil, err
	}

	oldSlug := existing.Slug
	existing.Name = strings.TrimSpace(req.Name)
	if slug := slugify(req.Slug); slug != "" {
		existing.Slug = slug
	}
	existing.Address = req.Address
	existing.Phone = phone
	existing.Latitude = req.Latitude
	existing.Longitude = req.Longitude
	existing.IsOnline = req.IsOnline
	if req.TaxRate != nil {
		existing.TaxRate = *req.TaxRate
	}
	if err := s.storeRepo.Update(ctx, existing); err != nil {
		return nil, err
	}

	s.forget(ctx, oldSlug)
	if existing.Slug != oldSlug {
		s.forget(ctx, existing.Slug)
	}
	return existing, nil
}

func (s *storeService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	existing, err := s.storeRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.storeRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.forget(ctx, existing.Slug)
	return nil
}

func (s *storeService) forget(ctx context.Context, slug string) {
	if err := s.cacheService.DeleteStore(ctx, slug); err != nil {
		s.log.Error(ctx, "store cache invalidate", err)
	}
}
