package repositories

import (
	"context"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type categoryRepo struct {
	db database.DB
}

func NewCategoryRepo(db database.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) Create(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (id, tenant_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, category.ID, category.TenantID, category.Name, category.Description)
	return apperr.FromDB(err, "category")
}

func (r *categoryRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Category, error) {
	query := `
		SELECT id, tenant_id, name, description, created_at, updated_at
		FROM categories
		WHERE tenant_id = $1 AND id = $2
	`
	c := &models.Category{}
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, apperr.FromDB(err, "category")
	}
	return c, nil
}

func (r *categoryRepo) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Category, error) {
	query := `
		SELECT id, tenant_id, name, description, created_at, updated_at
		FROM categories
		WHERE tenant_id = $1
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, apperr.FromDB(err, "category")
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, apperr.FromDB(err, "category")
		}
		categories = append(categories, c)
	}
	return categories, apperr.FromDB(rows.Err(), "category")
}

func (r *categoryRepo) Update(ctx context.Context, category *models.Category) error {
	query := `
		UPDATE categories SET name = $1, description = $2, updated_at = NOW()
		WHERE tenant_id = $3 AND id = $4
	`
	tag, err := r.db.Exec(ctx, query, category.Name, category.Description, category.TenantID, category.ID)
	if err != nil {
		return apperr.FromDB(err, "category")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "category not found")
	}
	return nil
}

func (r *categoryRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return apperr.FromDB(err, "category")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "category not found")
	}
	return nil
}
