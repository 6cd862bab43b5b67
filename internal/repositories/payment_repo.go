package repositories

import (
	"context"
	"errors"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type PaymentRepository interface {
	// Create stores the payment and returns the order's recomputed payment status.
	Create(ctx context.Context, payment *models.Payment) (models.PaymentStatus, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Payment, error)
	GetByReference(ctx context.Context, reference string) (*models.Payment, error)
	ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.Payment, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Payment, error)
	// UpdateStatus moves a payment from one state to another and returns the order's recomputed payment status.
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, from, to models.PaymentState) (models.PaymentStatus, error)
}

type paymentRepo struct {
	db database.DB
}

func NewPaymentRepo(db database.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

const paymentColumns = `id, tenant_id, order_id, method, amount, reference, provider, status, created_by, created_at, updated_at`

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(&p.ID, &p.TenantID, &p.OrderID, &p.Method, &p.Amount, &p.Reference, &p.Provider, &p.Status,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) Create(ctx context.Context, payment *models.Payment) (models.PaymentStatus, error) {
	var status models.PaymentStatus
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO payments (id, tenant_id, order_id, method, amount, reference, provider, status, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			RETURNING created_at, updated_at
		`, payment.ID, payment.TenantID, payment.OrderID, payment.Method, payment.Amount, payment.Reference,
			payment.Provider, payment.Status, payment.CreatedBy).Scan(&payment.CreatedAt, &payment.UpdatedAt)
		if err != nil {
			return apperr.FromDB(err, "payment")
		}
		status, err = settleOrder(ctx, tx, payment.TenantID, payment.OrderID)
		return err
	})
	return status, err
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, from, to models.PaymentState) (models.PaymentStatus, error) {
	var status models.PaymentStatus
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var orderID uuid.UUID
		err := tx.QueryRow(ctx, `
			UPDATE payments SET status = $1, updated_at = NOW()
			WHERE tenant_id = $2 AND id = $3 AND status = $4
			RETURNING order_id
		`, to, tenantID, id, from).Scan(&orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.Newf(apperr.CodeStateConflict, "payment is no longer %s", from)
			}
			return apperr.FromDB(err, "payment")
		}
		status, err = settleOrder(ctx, tx, tenantID, orderID)
		return err
	})
	return status, err
}

// settleOrder recomputes and stores the payment status of an order from its payments.
func settleOrder(ctx context.Context, q database.DB, tenantID, orderID uuid.UUID) (models.PaymentStatus, error) {
	var total, settled decimal.Decimal
	var refunded bool
	err := q.QueryRow(ctx, `
		SELECT o.total,
		       COALESCE(SUM(p.amount) FILTER (WHERE p.status = 'succeeded'), 0),
		       COALESCE(BOOL_OR(p.status = 'refunded'), FALSE)
		FROM orders o
		LEFT JOIN payments p ON p.order_id = o.id
		WHERE o.tenant_id = $1 AND o.id = $2
		GROUP BY o.id
	`, tenantID, orderID).Scan(&total, &settled, &refunded)
	if err != nil {
		return "", apperr.FromDB(err, "order")
	}

	status := models.DerivePaymentStatus(total, settled, refunded)
	_, err = q.Exec(ctx, `UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`, status, tenantID, orderID)
	if err != nil {
		return "", apperr.FromDB(err, "order")
	}
	return status, nil
}

func (r *paymentRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 AND id = $2`
	p, err := scanPayment(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, apperr.FromDB(err, "payment")
	}
	return p, nil
}

// GetByReference is unscoped: provider webhooks only know the reference.
func (r *paymentRepo) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = $1`
	p, err := scanPayment(r.db.QueryRow(ctx, query, reference))
	if err != nil {
		return nil, apperr.FromDB(err, "payment")
	}
	return p, nil
}

func (r *paymentRepo) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 AND order_id = $2 ORDER BY created_at`
	return r.list(ctx, query, tenantID, orderID)
}

func (r *paymentRepo) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, tenantID, limit, offset)
}

func (r *paymentRepo) list(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromDB(err, "payment")
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "payment")
		}
		payments = append(payments, p)
	}
	return payments, apperr.FromDB(rows.Err(), "payment")
}
