package repositories

import (
	"context"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
)

type ProductImageRepository interface {
	Create(ctx context.Context, image *models.ProductImage) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ProductImage, error)
	ListByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]models.ProductImage, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type productImageRepo struct {
	db database.DB
}

func NewProductImageRepo(db database.DB) ProductImageRepository {
	return &productImageRepo{db: db}
}

func (r *productImageRepo) Create(ctx context.Context, image *models.ProductImage) error {
	query := `
		INSERT INTO product_images (id, tenant_id, product_id, object_key, content_type, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.db.Exec(ctx, query, image.ID, image.TenantID, image.ProductID, image.ObjectKey, image.ContentType, image.IsPrimary)
	return apperr.FromDB(err, "product image")
}

func (r *productImageRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ProductImage, error) {
	query := `
		SELECT id, tenant_id, product_id, object_key, content_type, is_primary, created_at
		FROM product_images
		WHERE tenant_id = $1 AND id = $2
	`
	img := &models.ProductImage{}
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(&img.ID, &img.TenantID, &img.ProductID, &img.ObjectKey,
		&img.ContentType, &img.IsPrimary, &img.CreatedAt)
	if err != nil {
		return nil, apperr.FromDB(err, "product image")
	}
	return img, nil
}

func (r *productImageRepo) ListByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]models.ProductImage, error) {
	query := `
		SELECT id, tenant_id, product_id, object_key, content_type, is_primary, created_at
		FROM product_images
		WHERE tenant_id = $1 AND product_id = $2
		ORDER BY is_primary DESC, created_at
	`
	rows, err := r.db.Query(ctx, query, tenantID, productID)
	if err != nil {
		return nil, apperr.FromDB(err, "product image")
	}
	defer rows.Close()

	var images []models.ProductImage
	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.TenantID, &img.ProductID, &img.ObjectKey, &img.ContentType, &img.IsPrimary, &img.CreatedAt); err != nil {
			return nil, apperr.FromDB(err, "product image")
		}
		images = append(images, img)
	}
	return images, apperr.FromDB(rows.Err(), "product image")
}

func (r *productImageRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM product_images WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return apperr.FromDB(err, "product image")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "product image not found")
	}
	return nil
}
