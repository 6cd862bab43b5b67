package repositories

import (
	"context"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
)

type StoreRepository interface {
	Create(ctx context.Context, store *models.Store) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Store, error)
	GetBySlug(ctx context.Context, slug string) (*models.Store, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Store, error)
	Update(ctx context.Context, store *models.Store) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type storeRepo struct {
	db database.DB
}

func NewStoreRepo(db database.DB) StoreRepository {
	return &storeRepo{db: db}
}

const storeColumns = `id, tenant_id, name, slug, address, phone, latitude, longitude, is_online, currency, tax_rate, created_at, updated_at`

func scanStore(row rowScanner) (*models.Store, error) {
	s := &models.Store{}
	err := row.Scan(&s.ID, &s.TenantID, &s.Name, &s.Slug, &s.Address, &s.Phone, &s.Latitude, &s.Longitude,
		&s.IsOnline, &s.Currency, &s.TaxRate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *storeRepo) Create(ctx context.Context, store *models.Store) error {
	query := `
		INSERT INTO stores (id, tenant_id, name, slug, address, phone, latitude, longitude, is_online, currency, tax_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, store.ID, store.TenantID, store.Name, store.Slug, store.Address, store.Phone,
		store.Latitude, store.Longitude, store.IsOnline, store.Currency, store.TaxRate)
	return apperr.FromDB(err, "store")
}

func (r *storeRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE tenant_id = $1 AND id = $2`
	s, err := scanStore(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, apperr.FromDB(err, "store")
	}
	return s, nil
}

// GetBySlug is unscoped: the portal resolves the tenant from the store.
func (r *storeRepo) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE slug = $1`
	s, err := scanStore(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, apperr.FromDB(err, "store")
	}
	return s, nil
}

func (r *storeRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE tenant_id = $1 ORDER BY name`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, apperr.FromDB(err, "store")
	}
	defer rows.Close()

	var stores []*models.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "store")
		}
		stores = append(stores, s)
	}
	return stores, apperr.FromDB(rows.Err(), "store")
}

func (r *storeRepo) Update(ctx context.Context, store *models.Store) error {
	query := `
		UPDATE stores
		SET name = $1, address = $2, phone = $3, latitude = $4, longitude = $5, is_online = $6, tax_rate = $7, updated_at = NOW()
		WHERE tenant_id = $8 AND id = $9
	`
	tag, err := r.db.Exec(ctx, query, store.Name, store.Address, store.Phone, store.Latitude, store.Longitude,
		store.IsOnline, store.TaxRate, store.TenantID, store.ID)
	if err != nil {
		return apperr.FromDB(err, "store")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "store not found")
	}
	return nil
}

func (r *storeRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM stores WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return apperr.FromDB(err, "store")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "store not found")
	}
	return nil
}
