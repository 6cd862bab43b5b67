package repositories

import (
	"context"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TenantStatus, reason *string) error
	List(ctx context.Context, status *models.TenantStatus, limit, offset int) ([]*models.Tenant, error)
	CountByStatus(ctx context.Context) (map[models.TenantStatus]int, error)
}

type tenantRepo struct {
	db database.DB
}

func NewTenantRepo(db database.DB) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `id, name, slug, business_type, country_code, phone, email, owner_id, status, status_reason, approved_at, created_at, updated_at`

func scanTenant(row rowScanner) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.BusinessType, &t.CountryCode, &t.Phone, &t.Email, &t.OwnerID,
		&t.Status, &t.StatusReason, &t.ApprovedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, slug, business_type, country_code, phone, email, owner_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, tenant.ID, tenant.Name, tenant.Slug, tenant.BusinessType, tenant.CountryCode,
		tenant.Phone, tenant.Email, tenant.OwnerID, tenant.Status)
	return apperr.FromDB(err, "tenant")
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	t, err := scanTenant(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, apperr.FromDB(err, "tenant")
	}
	return t, nil
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE slug = $1`
	t, err := scanTenant(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, apperr.FromDB(err, "tenant")
	}
	return t, nil
}

func (r *tenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, business_type = $2, phone = $3, email = $4, updated_at = NOW()
		WHERE id = $5
	`
	tag, err := r.db.Exec(ctx, query, tenant.Name, tenant.BusinessType, tenant.Phone, tenant.Email, tenant.ID)
	if err != nil {
		return apperr.FromDB(err, "tenant")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "tenant not found")
	}
	return nil
}

// UpdateStatus moves a tenant from one status to another. A tenant that is no longer in from is a state conflict.
func (r *tenantRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TenantStatus, reason *string) error {
	query := `
		UPDATE tenants
		SET status = $1, status_reason = $2,
		    approved_at = CASE WHEN $1 = 'active' AND approved_at IS NULL THEN NOW() ELSE approved_at END,
		    updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, to, reason, id, from)
	if err != nil {
		return apperr.FromDB(err, "tenant")
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.CodeStateConflict, "tenant is no longer %s", from)
	}
	return nil
}

func (r *tenantRepo) List(ctx context.Context, status *models.TenantStatus, limit, offset int) ([]*models.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, apperr.FromDB(err, "tenant")
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "tenant")
		}
		tenants = append(tenants, t)
	}
	return tenants, apperr.FromDB(rows.Err(), "tenant")
}

func (r *tenantRepo) CountByStatus(ctx context.Context) (map[models.TenantStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM tenants GROUP BY status`)
	if err != nil {
		return nil, apperr.FromDB(err, "tenant")
	}
	defer rows.Close()

	counts := make(map[models.TenantStatus]int)
	for rows.Next() {
		var status models.TenantStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperr.FromDB(err, "tenant")
		}
		counts[status] = n
	}
	return counts, apperr.FromDB(rows.Err(), "tenant")
}
