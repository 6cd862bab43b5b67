package services

import (
	"context"
	"strings"

	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
)

type CustomerService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *CustomerRequest) (*models.Customer, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Customer, error)
	FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*models.Customer, error)
	Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Customer, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *CustomerRequest) (*models.Customer, error)
	// Upsert finds or creates the customer with this phone, refreshing name and address.
	Upsert(ctx context.Context, tenantID uuid.UUID, req *CustomerRequest) (*models.Customer, error)
}

type customerService struct {
	customerRepo repositories.CustomerRepository
	tenantRepo   repositories.TenantRepository
}

func NewCustomerService(customerRepo repositories.CustomerRepository, tenantRepo repositories.TenantRepository) CustomerService {
	return &customerService{customerRepo: customerRepo, tenantRepo: tenantRepo}
}

type CustomerRequest struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Phone   string  `json:"phone" validate:"required"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address"`
}

func (s *customerService) normalize(ctx context.Context, tenantID uuid.UUID, raw string) (string, error) {
	if common.IsE164(raw) {
		return raw, nil
	}
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	country, _ := models.CountryByCode(tenant.CountryCode)
	return common.NormalizePhone(raw, country)
}

func (s *customerService) build(ctx context.Context, tenantID uuid.UUID, req *CustomerRequest) (*models.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "customer name is required")
	}
	phone, err := s.normalize(ctx, tenantID, req.Phone)
	if err != nil {
		return nil, err
	}
	return &models.Customer{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Phone:    phone,
		Email:    req.Email,
		Address:  req.Address,
	}, nil
}

func (s *customerService) Create(ctx context.Context, tenantID uuid.UUID, req *CustomerRequest) (*models.Customer, error) {
	customer, err := s.build(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		if apperr.Is(err, apperr.CodeConflict) {
			return nil, apperr.New(apperr.CodeConflict, "a customer with this phone already exists")
		}
		return nil, err
	}
	return customer, nil
}

func (s *customerService) Upsert(ctx context.Context, tenantID uuid.UUID, req *CustomerRequest) (*models.Customer, error) {
	customer, err := s.build(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	if err := s.customerRepo.UpsertByPhone(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Customer, error) {
	return s.customerRepo.GetByID(ctx, tenantID, id)
}

func (s *customerService) FindByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*models.Customer, error) {
	normalized, err := s.normalize(ctx, tenantID, phone)
	if err != nil {
		return nil, err
	}
	return s.customerRepo.GetByPhone(ctx, tenantID, normalized)
}

func (s *customerService) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Customer, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.customerRepo.Search(ctx, tenantID, common.SanitizeSearchQuery(query), limit, offset)
}

func (s *customerService) Update(ctx context.Context, tenantID, id uuid.UUID, req *CustomerRequest) (*models.Customer, error) {
	existing, err := s.customerRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.build(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	existing.Name = updated.Name
	existing.Phone = updated.Phone
	existing.Email = updated.Email
	existing.Address = updated.Address
	if err := s.customerRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}
