package repositories

import (
	"context"
	"time"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
)

type RiderRepository interface {
	Create(ctx context.Context, rider *models.Rider) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Rider, error)
	GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.Rider, error)
	GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*models.Rider, error)
	List(ctx context.Context, tenantID uuid.UUID, status *models.RiderStatus) ([]*models.Rider, error)
	Update(ctx context.Context, rider *models.Rider) error
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.RiderStatus) error
	Touch(ctx context.Context, tenantID, id uuid.UUID, seenAt time.Time) error
	// MarkStaleOffline sets every available rider not seen since the cut-off to offline and returns them.
	// Busy riders keep their status until their assignment ends.
	MarkStaleOffline(ctx context.Context, seenBefore time.Time) ([]*models.Rider, error)
}

type riderRepo struct {
	db database.DB
}

func NewRiderRepo(db database.DB) RiderRepository {
	return &riderRepo{db: db}
}

const riderColumns = `id, tenant_id, user_id, name, phone, vehicle, status, last_seen_at, created_at, updated_at`

func scanRider(row rowScanner) (*models.Rider, error) {
	r := &models.Rider{}
	if err := row.Scan(&r.ID, &r.TenantID, &r.UserID, &r.Name, &r.Phone, &r.Vehicle, &r.Status, &r.LastSeenAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *riderRepo) Create(ctx context.Context, rider *models.Rider) error {
	query := `
		INSERT INTO riders (id, tenant_id, user_id, name, phone, vehicle, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, rider.ID, rider.TenantID, rider.UserID, rider.Name, rider.Phone, rider.Vehicle, rider.Status)
	return apperr.FromDB(err, "rider")
}

func (r *riderRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Rider, error) {
	query := `SELECT ` + riderColumns + ` FROM riders WHERE tenant_id = $1 AND id = $2`
	rider, err := scanRider(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, apperr.FromDB(err, "rider")
	}
	return rider, nil
}

func (r *riderRepo) GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.Rider, error) {
	query := `SELECT ` + riderColumns + ` FROM riders WHERE tenant_id = $1 AND user_id = $2`
	rider, err := scanRider(r.db.QueryRow(ctx, query, tenantID, userID))
	if err != nil {
		return nil, apperr.FromDB(err, "rider")
	}
	return rider, nil
}

func (r *riderRepo) GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*models.Rider, error) {
	query := `SELECT ` + riderColumns + ` FROM riders WHERE tenant_id = $1 AND id = ANY($2)`
	riders, err := r.list(ctx, query, tenantID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Rider, len(riders))
	for _, rider := range riders {
		byID[rider.ID] = rider
	}
	return byID, nil
}

func (r *riderRepo) List(ctx context.Context, tenantID uuid.UUID, status *models.RiderStatus) ([]*models.Rider, error) {
	query := `
		SELECT ` + riderColumns + `
		FROM riders
		WHERE tenant_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY name
	`
	return r.list(ctx, query, tenantID, status)
}

func (r *riderRepo) list(ctx context.Context, query string, args ...any) ([]*models.Rider, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromDB(err, "rider")
	}
	defer rows.Close()

	var riders []*models.Rider
	for rows.Next() {
		rider, err := scanRider(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "rider")
		}
		riders = append(riders, rider)
	}
	return riders, apperr.FromDB(rows.Err(), "rider")
}

func (r *riderRepo) Update(ctx context.Context, rider *models.Rider) error {
	query := `
		UPDATE riders SET name = $1, phone = $2, vehicle = $3, user_id = $4, updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6
	`
	tag, err := r.db.Exec(ctx, query, rider.Name, rider.Phone, rider.Vehicle, rider.UserID, rider.TenantID, rider.ID)
	if err != nil {
		return apperr.FromDB(err, "rider")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "rider not found")
	}
	return nil
}

func (r *riderRepo) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.RiderStatus) error {
	return setRiderStatus(ctx, r.db, tenantID, id, status)
}

func setRiderStatus(ctx context.Context, q database.DB, tenantID, id uuid.UUID, status models.RiderStatus) error {
	tag, err := q.Exec(ctx, `UPDATE riders SET status = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`, status, tenantID, id)
	if err != nil {
		return apperr.FromDB(err, "rider")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "rider not found")
	}
	return nil
}

func (r *riderRepo) Touch(ctx context.Context, tenantID, id uuid.UUID, seenAt time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE riders SET last_seen_at = $1 WHERE tenant_id = $2 AND id = $3`, seenAt, tenantID, id)
	if err != nil {
		return apperr.FromDB(err, "rider")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "rider not found")
	}
	return nil
}

func (r *riderRepo) MarkStaleOffline(ctx context.Context, seenBefore time.Time) ([]*models.Rider, error) {
	query := `
		UPDATE riders SET status = $1, updated_at = NOW()
		WHERE status = $2 AND (last_seen_at IS NULL OR last_seen_at < $3)
		RETURNING ` + riderColumns
	return r.list(ctx, query, models.RiderOffline, models.RiderAvailable, seenBefore)
}
