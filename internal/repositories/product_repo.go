package repositories

import (
	"context"
	"fmt"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error)
	GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	Search(ctx context.Context, tenantID uuid.UUID, filter models.ProductSearchFilter) ([]*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type productRepo struct {
	db database.DB
}

func NewProductRepo(db database.DB) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `p.id, p.tenant_id, p.category_id, p.name, p.sku, p.barcode, p.description, p.price, p.cost, p.unit, p.is_active, p.created_at, p.updated_at`

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.TenantID, &p.CategoryID, &p.Name, &p.SKU, &p.Barcode, &p.Description,
		&p.Price, &p.Cost, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, tenant_id, category_id, name, sku, barcode, description, price, cost, unit, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, product.ID, product.TenantID, product.CategoryID, product.Name, product.SKU,
		product.Barcode, product.Description, product.Price, product.Cost, product.Unit, product.IsActive)
	return apperr.FromDB(err, "product")
}

func (r *productRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.tenant_id = $1 AND p.id = $2`
	p, err := scanProduct(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, apperr.FromDB(err, "product")
	}
	return p, nil
}

// GetByIDs loads a set of products in one round trip. Missing ids are simply absent from the map.
func (r *productRepo) GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.tenant_id = $1 AND p.id = ANY($2)`
	rows, err := r.db.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, apperr.FromDB(err, "product")
	}
	defer rows.Close()

	products := make(map[uuid.UUID]*models.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "product")
		}
		products[p.ID] = p
	}
	return products, apperr.FromDB(rows.Err(), "product")
}

func (r *productRepo) Search(ctx context.Context, tenantID uuid.UUID, filter models.ProductSearchFilter) ([]*models.Product, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	query := `SELECT ` + productColumns + ` FROM products p WHERE p.tenant_id = $1`
	args := []interface{}{tenantID}
	conditionCount := 1

	if filter.Query != "" {
		conditionCount++
		query += fmt.Sprintf(` AND (
			p.name ILIKE $%d OR
			COALESCE(p.sku, '') ILIKE $%d OR
			COALESCE(p.barcode, '') ILIKE $%d
		)`, conditionCount, conditionCount, conditionCount)
		args = append(args, "%"+filter.Query+"%")
	}

	if filter.CategoryID != nil {
		conditionCount++
		query += fmt.Sprintf(` AND p.category_id = $%d`, conditionCount)
		args = append(args, *filter.CategoryID)
	}

	if filter.Active != nil {
		conditionCount++
		query += fmt.Sprintf(` AND p.is_active = $%d`, conditionCount)
		args = append(args, *filter.Active)
	}

	query += ` ORDER BY p.name ASC`

	conditionCount++
	query += fmt.Sprintf(` LIMIT $%d`, conditionCount)
	args = append(args, filter.Limit)
	if filter.Offset > 0 {
		conditionCount++
		query += fmt.Sprintf(` OFFSET $%d`, conditionCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromDB(err, "product")
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "product")
		}
		products = append(products, p)
	}
	return products, apperr.FromDB(rows.Err(), "product")
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET category_id = $1, name = $2, sku = $3, barcode = $4, description = $5, price = $6, cost = $7,
		    unit = $8, is_active = $9, updated_at = NOW()
		WHERE tenant_id = $10 AND id = $11
	`
	tag, err := r.db.Exec(ctx, query, product.CategoryID, product.Name, product.SKU, product.Barcode, product.Description,
		product.Price, product.Cost, product.Unit, product.IsActive, product.TenantID, product.ID)
	if err != nil {
		return apperr.FromDB(err, "product")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "product not found")
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return apperr.FromDB(err, "product")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "product not found")
	}
	return nil
}
