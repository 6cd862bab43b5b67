package repositories

import (
	"context"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DeliveryTransition is one status step of an assignment, with the order and rider changes that go with it.
type DeliveryTransition struct {
	Assignment  *models.DeliveryAssignment
	From        models.DeliveryStatus
	Order       *OrderTransition
	RiderStatus *models.RiderStatus
}

type DeliveryRepository interface {
	Create(ctx context.Context, a *models.DeliveryAssignment) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryAssignment, error)
	GetActiveByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*models.DeliveryAssignment, error)
	ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.DeliveryAssignment, error)
	ListForRider(ctx context.Context, tenantID, riderID uuid.UUID, limit int) ([]*models.DeliveryAssignment, error)
	Transition(ctx context.Context, t DeliveryTransition) error
	SetProof(ctx context.Context, tenantID, id uuid.UUID, key string) error
}

type deliveryRepo struct {
	db database.DB
}

func NewDeliveryRepo(db database.DB) DeliveryRepository {
	return &deliveryRepo{db: db}
}

const deliveryColumns = `id, tenant_id, order_id, rider_id, status, assigned_by, assigned_at, accepted_at, picked_up_at,
	delivered_at, failure_reason, proof_key, updated_at`

var activeDeliveryStatuses = []string{
	string(models.DeliveryAssigned), string(models.DeliveryAccepted),
	string(models.DeliveryPickedUp), string(models.DeliveryInTransit),
}

func scanDelivery(row rowScanner) (*models.DeliveryAssignment, error) {
	a := &models.DeliveryAssignment{}
	err := row.Scan(&a.ID, &a.TenantID, &a.OrderID, &a.RiderID, &a.Status, &a.AssignedBy, &a.AssignedAt, &a.AcceptedAt,
		&a.PickedUpAt, &a.DeliveredAt, &a.FailureReason, &a.ProofKey, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *deliveryRepo) Create(ctx context.Context, a *models.DeliveryAssignment) error {
	query := `
		INSERT INTO delivery_assignments (id, tenant_id, order_id, rider_id, status, assigned_by, assigned_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING assigned_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, a.ID, a.TenantID, a.OrderID, a.RiderID, a.Status, a.AssignedBy).Scan(&a.AssignedAt, &a.UpdatedAt)
	if err != nil {
		if apperr.Is(apperr.FromDB(err, "delivery"), apperr.CodeConflict) {
			return apperr.Wrap(apperr.CodeConflict, err, "order already has an active delivery")
		}
		return apperr.FromDB(err, "delivery")
	}
	return nil
}

func (r *deliveryRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryAssignment, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery_assignments WHERE tenant_id = $1 AND id = $2`
	a, err := scanDelivery(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, apperr.FromDB(err, "delivery")
	}
	return a, nil
}

func (r *deliveryRepo) GetActiveByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*models.DeliveryAssignment, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM delivery_assignments
		WHERE tenant_id = $1 AND order_id = $2 AND status = ANY($3)
	`
	a, err := scanDelivery(r.db.QueryRow(ctx, query, tenantID, orderID, activeDeliveryStatuses))
	if err != nil {
		return nil, apperr.FromDB(err, "delivery")
	}
	return a, nil
}

func (r *deliveryRepo) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.DeliveryAssignment, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM delivery_assignments
		WHERE tenant_id = $1 AND order_id = $2
		ORDER BY assigned_at DESC
	`
	return r.list(ctx, query, tenantID, orderID)
}

// ListForRider returns a rider's assignments, active ones first, then the most recent.
func (r *deliveryRepo) ListForRider(ctx context.Context, tenantID, riderID uuid.UUID, limit int) ([]*models.DeliveryAssignment, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM delivery_assignments
		WHERE tenant_id = $1 AND rider_id = $2
		ORDER BY (status = ANY($3)) DESC, assigned_at DESC
		LIMIT $4
	`
	return r.list(ctx, query, tenantID, riderID, activeDeliveryStatuses, limit)
}

func (r *deliveryRepo) list(ctx context.Context, query string, args ...any) ([]*models.DeliveryAssignment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromDB(err, "delivery")
	}
	defer rows.Close()

	var assignments []*models.DeliveryAssignment
	for rows.Next() {
		a, err := scanDelivery(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "delivery")
		}
		assignments = append(assignments, a)
	}
	return assignments, apperr.FromDB(rows.Err(), "delivery")
}

// Transition stores the assignment's new status and, in the same transaction, mirrors it onto the
// order and the rider.
func (r *deliveryRepo) Transition(ctx context.Context, t DeliveryTransition) error {
	a := t.Assignment
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE delivery_assignments
			SET status = $1, accepted_at = $2, picked_up_at = $3, delivered_at = $4, failure_reason = $5, updated_at = NOW()
			WHERE tenant_id = $6 AND id = $7 AND status = $8
		`, a.Status, a.AcceptedAt, a.PickedUpAt, a.DeliveredAt, a.FailureReason, a.TenantID, a.ID, t.From)
		if err != nil {
			return apperr.FromDB(err, "delivery")
		}
		if tag.RowsAffected() == 0 {
			return apperr.Newf(apperr.CodeStateConflict, "delivery is no longer %s", t.From)
		}

		if t.Order != nil {
			if err := transitionOrder(ctx, tx, *t.Order); err != nil {
				return err
			}
		}
		if t.RiderStatus != nil {
			if err := setRiderStatus(ctx, tx, a.TenantID, a.RiderID, *t.RiderStatus); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *deliveryRepo) SetProof(ctx context.Context, tenantID, id uuid.UUID, key string) error {
	tag, err := r.db.Exec(ctx, `UPDATE delivery_assignments SET proof_key = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`, key, tenantID, id)
	if err != nil {
		return apperr.FromDB(err, "delivery")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "delivery not found")
	}
	return nil
}
