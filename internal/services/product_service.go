package services

import (
	"context"
	"io"
	"strings"
	"time"

	"warehousepos/internal/caching"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const productCacheTTL = 15 * time.Minute

// MaxImageSize bounds product image and delivery proof uploads.
const MaxImageSize = 5 << 20

type ProductService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *ProductRequest) (*models.Product, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error)
	Search(ctx context.Context, tenantID uuid.UUID, filter models.ProductSearchFilter) ([]*models.Product, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *ProductRequest) (*models.Product, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	UploadImage(ctx context.Context, tenantID, productID uuid.UUID, upload ImageUpload) (*models.ProductImage, error)
	DeleteImage(ctx context.Context, tenantID, imageID uuid.UUID) error
}

type productService struct {
	productRepo      repositories.ProductRepository
	categoryRepo     repositories.CategoryRepository
	productImageRepo repositories.ProductImageRepository
	minioService     MinioService
	cacheService     caching.CacheService
	presignTTL       time.Duration
	log              *logger.Logger
}

func NewProductService(productRepo repositories.ProductRepository, categoryRepo repositories.CategoryRepository, productImageRepo repositories.ProductImageRepository, minioService MinioService, cacheService caching.CacheService, presignTTL time.Duration, log *logger.Logger) ProductService {
	return &productService{
		productRepo:      productRepo,
		categoryRepo:     categoryRepo,
		productImageRepo: productImageRepo,
		minioService:     minioService,
		cacheService:     cacheService,
		presignTTL:       presignTTL,
		log:              log,
	}
}

type ProductRequest struct {
	CategoryID  *uuid.UUID      `json:"category_id"`
	Name        string          `json:"name" validate:"required,max=160"`
	SKU         *string         `json:"sku" validate:"omitempty,max=64"`
	Barcode     *string         `json:"barcode" validate:"omitempty,max=64"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Unit        string          `json:"unit" validate:"omitempty,max=20"`
	IsActive    *bool           `json:"is_active"`
}

// ImageUpload is a file received from a multipart form.
type ImageUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	IsPrimary   bool
}

func (s *productService) validate(ctx context.Context, tenantID uuid.UUID, req *ProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperr.New(apperr.CodeValidation, "product name is required")
	}
	if req.Price.IsNegative() {
		return apperr.New(apperr.CodeValidation, "price cannot be negative")
	}
	if req.Cost.IsNegative() {
		return apperr.New(apperr.CodeValidation, "cost cannot be negative")
	}
	if req.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, tenantID, *req.CategoryID); err != nil {
			if apperr.Is(err, apperr.CodeNotFound) {
				return apperr.New(apperr.CodeValidation, "category does not exist")
			}
			return err
		}
	}
	return nil
}

func (s *productService) apply(p *models.Product, req *ProductRequest) {
	p.CategoryID = req.CategoryID
	p.Name = strings.TrimSpace(req.Name)
	p.SKU = req.SKU
	p.Barcode = req.Barcode
	p.Description = req.Description
	p.Price = req.Price.Round(2)
	p.Cost = req.Cost.Round(2)
	p.Unit = req.Unit
	if p.Unit == "" {
		p.Unit = "piece"
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
}

func (s *productService) Create(ctx context.Context, tenantID uuid.UUID, req *ProductRequest) (*models.Product, error) {
	if err := s.validate(ctx, tenantID, req); err != nil {
		return nil, err
	}
	product := &models.Product{ID: uuid.New(), TenantID: tenantID, IsActive: true}
	s.apply(product, req)
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	product, err := s.cacheService.GetProduct(ctx, tenantID, id)
	if err != nil {
		s.log.Error(ctx, "product cache read", err)
	}

	if product == nil {
		product, err = s.productRepo.GetByID(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		images, err := s.productImageRepo.ListByProduct(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		product.Images = images

		if cacheErr := s.cacheService.SetProduct(ctx, tenantID, product, productCacheTTL); cacheErr != nil {
			s.log.Error(ctx, "product cache write", cacheErr)
		}
	}

	s.signImages(ctx, product.Images)
	return product, nil
}

// signImages fills presigned URLs. URLs expire, so they are never cached.
func (s *productService) signImages(ctx context.Context, images []models.ProductImage) {
	for i := range images {
		url, err := s.minioService.PresignedURL(ctx, images[i].ObjectKey, s.presignTTL)
		if err != nil {
			s.log.Error(ctx, "presign product image", err)
			continue
		}
		images[i].URL = url
	}
}

func (s *productService) Search(ctx context.Context, tenantID uuid.UUID, filter models.ProductSearchFilter) ([]*models.Product, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Query = strings.TrimSpace(filter.Query)
	return s.productRepo.Search(ctx, tenantID, filter)
}

func (s *productService) Update(ctx context.Context, tenantID, id uuid.UUID, req *ProductRequest) (*models.Product, error) {
	existing, err := s.productRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, tenantID, req); err != nil {
		return nil, err
	}
	s.apply(existing, req)
	if err := s.productRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	s.forget(ctx, tenantID, id)
	return existing, nil
}

func (s *productService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	images, err := s.productImageRepo.ListByProduct(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	for _, img := range images {
		if err := s.minioService.Delete(ctx, img.ObjectKey); err != nil {
			s.log.Error(ctx, "delete product image object", err)
		}
	}
	s.forget(ctx, tenantID, id)
	return nil
}

func (s *productService) UploadImage(ctx context.Context, tenantID, productID uuid.UUID, upload ImageUpload) (*models.ProductImage, error) {
	ext, ok := imageExtension(upload.ContentType)
	if !ok {
		return nil, apperr.New(apperr.CodeValidation, "image must be JPEG, PNG or WebP")
	}
	if upload.Size <= 0 || upload.Size > MaxImageSize {
		return nil, apperr.New(apperr.CodeValidation, "image must be between 1 byte and 5 MB")
	}
	if _, err := s.productRepo.GetByID(ctx, tenantID, productID); err != nil {
		return nil, err
	}

	image := &models.ProductImage{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ProductID:   productID,
		ContentType: upload.ContentType,
		IsPrimary:   upload.IsPrimary,
	}
	image.ObjectKey = productImageKey(tenantID, productID, image.ID, ext)

	if err := s.minioService.Upload(ctx, image.ObjectKey, upload.Reader, upload.Size, upload.ContentType); err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "failed to store image")
	}
	if err := s.productImageRepo.Create(ctx, image); err != nil {
		if delErr := s.minioService.Delete(ctx, image.ObjectKey); delErr != nil {
			s.log.Error(ctx, "remove orphaned image object", delErr)
		}
		return nil, err
	}
	image.CreatedAt = time.Now().UTC()

	url, err := s.minioService.PresignedURL(ctx, image.ObjectKey, s.presignTTL)
	if err != nil {
		s.log.Error(ctx, "presign product image", err)
	}
	image.URL = url

	s.forget(ctx, tenantID, productID)
	return image, nil
}

func (s *productService) DeleteImage(ctx context.Context, tenantID, imageID uuid.UUID) error {
	image, err := s.productImageRepo.GetByID(ctx, tenantID, imageID)
	if err != nil {
		return err
	}
	if err := s.productImageRepo.Delete(ctx, tenantID, imageID); err != nil {
		return err
	}
	if err := s.minioService.Delete(ctx, image.ObjectKey); err != nil {
		s.log.Error(ctx, "delete product image object", err)
	}
	s.forget(ctx, tenantID, image.ProductID)
	return nil
}

func (s *productService) forget(ctx context.Context, tenantID, id uuid.UUID) {
	if err := s.cacheService.DeleteProduct(ctx, tenantID, id); err != nil {
		s.log.Error(ctx, "product cache invalidate", err)
	}
}
