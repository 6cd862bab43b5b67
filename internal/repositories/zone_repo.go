package repositories

import (
	"context"
	"encoding/json"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

type ZoneRepository interface {
	Create(ctx context.Context, zone *models.DeliveryZone) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryZone, error)
	ListByStore(ctx context.Context, tenantID, storeID uuid.UUID, activeOnly bool) ([]*models.DeliveryZone, error)
	Update(ctx context.Context, zone *models.DeliveryZone) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type zoneRepo struct {
	db database.DB
}

func NewZoneRepo(db database.DB) ZoneRepository {
	return &zoneRepo{db: db}
}

const zoneColumns = `id, tenant_id, store_id, name, fee, polygon, is_active, created_at, updated_at`

func scanZone(row rowScanner) (*models.DeliveryZone, error) {
	z := &models.DeliveryZone{}
	var polygon []byte
	if err := row.Scan(&z.ID, &z.TenantID, &z.StoreID, &z.Name, &z.Fee, &polygon, &z.IsActive, &z.CreatedAt, &z.UpdatedAt); err != nil {
		return nil, err
	}
	g, err := geojson.UnmarshalGeometry(polygon)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "stored zone polygon is invalid")
	}
	z.Polygon = g
	return z, nil
}

func (r *zoneRepo) Create(ctx context.Context, zone *models.DeliveryZone) error {
	polygon, err := json.Marshal(zone.Polygon)
	if err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "polygon is invalid")
	}
	query := `
		INSERT INTO delivery_zones (id, tenant_id, store_id, name, fee, polygon, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, zone.ID, zone.TenantID, zone.StoreID, zone.Name, zone.Fee, polygon, zone.IsActive)
	return apperr.FromDB(err, "delivery zone")
}

func (r *zoneRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryZone, error) {
	query := `SELECT ` + zoneColumns + ` FROM delivery_zones WHERE tenant_id = $1 AND id = $2`
	z, err := scanZone(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, apperr.FromDB(err, "delivery zone")
	}
	return z, nil
}

func (r *zoneRepo) ListByStore(ctx context.Context, tenantID, storeID uuid.UUID, activeOnly bool) ([]*models.DeliveryZone, error) {
	query := `
		SELECT ` + zoneColumns + `
		FROM delivery_zones
		WHERE tenant_id = $1 AND store_id = $2 AND (NOT $3 OR is_active)
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, tenantID, storeID, activeOnly)
	if err != nil {
		return nil, apperr.FromDB(err, "delivery zone")
	}
	defer rows.Close()

	var zones []*models.DeliveryZone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "delivery zone")
		}
		zones = append(zones, z)
	}
	return zones, apperr.FromDB(rows.Err(), "delivery zone")
}

func (r *zoneRepo) Update(ctx context.Context, zone *models.DeliveryZone) error {
	polygon, err := json.Marshal(zone.Polygon)
	if err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "polygon is invalid")
	}
	query := `
		UPDATE delivery_zones SET name = $1, fee = $2, polygon = $3, is_active = $4, updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6
	`
	tag, err := r.db.Exec(ctx, query, zone.Name, zone.Fee, polygon, zone.IsActive, zone.TenantID, zone.ID)
	if err != nil {
		return apperr.FromDB(err, "delivery zone")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "delivery zone not found")
	}
	return nil
}

func (r *zoneRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM delivery_zones WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return apperr.FromDB(err, "delivery zone")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "delivery zone not found")
	}
	return nil
}
