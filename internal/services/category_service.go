package services

import (
	"context"
	"strings"

	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
)

type CategoryService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *CategoryRequest) (*models.Category, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.Category, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *CategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type categoryService struct {
	categoryRepo repositories.CategoryRepository
}

func NewCategoryService(categoryRepo repositories.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=80"`
	Description *string `json:"description"`
}

func (s *categoryService) Create(ctx context.Context, tenantID uuid.UUID, req *CategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "category name is required")
	}
	category := &models.Category{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        name,
		Description: req.Description,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *categoryService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Category, error) {
	return s.categoryRepo.GetByID(ctx, tenantID, id)
}

func (s *categoryService) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Category, error) {
	return s.categoryRepo.List(ctx, tenantID)
}

func (s *categoryService) Update(ctx context.Context, tenantID, id uuid.UUID, req *CategoryRequest) (*models.Category, error) {
	existing, err := s.categoryRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "category name is required")
	}
	existing.Name = name
	existing.Description = req.Description
	if err := s.categoryRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *categoryService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.categoryRepo.Delete(ctx, tenantID, id)
}
