package repositories

import (
	"context"
	"fmt"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Customer, error)
	GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*models.Customer, error)
	Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error
	UpsertByPhone(ctx context.Context, customer *models.Customer) error
}

type customerRepo struct {
	db database.DB
}

func NewCustomerRepo(db database.DB) CustomerRepository {
	return &customerRepo{db: db}
}

const customerColumns = `id, tenant_id, name, phone, email, address, created_at, updated_at`

func scanCustomer(row rowScanner) (*models.Customer, error) {
	c := &models.Customer{}
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *customerRepo) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (id, tenant_id, name, phone, email, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, customer.ID, customer.TenantID, customer.Name, customer.Phone, customer.Email, customer.Address)
	return apperr.FromDB(err, "customer")
}

func (r *customerRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE tenant_id = $1 AND id = $2`
	c, err := scanCustomer(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, apperr.FromDB(err, "customer")
	}
	return c, nil
}

func (r *customerRepo) GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE tenant_id = $1 AND phone = $2`
	c, err := scanCustomer(r.db.QueryRow(ctx, query, tenantID, phone))
	if err != nil {
		return nil, apperr.FromDB(err, "customer")
	}
	return c, nil
}

func (r *customerRepo) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Customer, error) {
	sql := `SELECT ` + customerColumns + ` FROM customers WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if query != "" {
		sql += ` AND (name ILIKE $2 OR phone ILIKE $2)`
		args = append(args, "%"+query+"%")
	}
	sql += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.FromDB(err, "customer")
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "customer")
		}
		customers = append(customers, c)
	}
	return customers, apperr.FromDB(rows.Err(), "customer")
}

func (r *customerRepo) Update(ctx context.Context, customer *models.Customer) error {
	query := `
		UPDATE customers SET name = $1, phone = $2, email = $3, address = $4, updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6
	`
	tag, err := r.db.Exec(ctx, query, customer.Name, customer.Phone, customer.Email, customer.Address, customer.TenantID, customer.ID)
	if err != nil {
		return apperr.FromDB(err, "customer")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "customer not found")
	}
	return nil
}

// UpsertByPhone creates the customer or refreshes the name and address of the one holding that phone.
// customer.ID is set to the stored row's id.
func (r *customerRepo) UpsertByPhone(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (id, tenant_id, name, phone, email, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (tenant_id, phone)
		DO UPDATE SET name = EXCLUDED.name,
		              email = COALESCE(EXCLUDED.email, customers.email),
		              address = COALESCE(EXCLUDED.address, customers.address),
		              updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, customer.ID, customer.TenantID, customer.Name, customer.Phone, customer.Email, customer.Address).
		Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
	return apperr.FromDB(err, "customer")
}
