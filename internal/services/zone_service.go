package services

import (
	"context"
	"encoding/json"
	"strings"

	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/shopspring/decimal"
)

type ZoneService interface {
	Create(ctx context.Context, tenantID, storeID uuid.UUID, req *ZoneRequest) (*models.DeliveryZone, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryZone, error)
	ListByStore(ctx context.Context, tenantID, storeID uuid.UUID) ([]*models.DeliveryZone, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *ZoneRequest) (*models.DeliveryZone, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// Locate returns the active zone of a store containing the point. Overlaps resolve to the smallest zone.
	Locate(ctx context.Context, tenantID, storeID uuid.UUID, lat, lng float64) (*models.DeliveryZone, error)
}

type zoneService struct {
	zoneRepo  repositories.ZoneRepository
	storeRepo repositories.StoreRepository
}

func NewZoneService(zoneRepo repositories.ZoneRepository, storeRepo repositories.StoreRepository) ZoneService {
	return &zoneService{zoneRepo: zoneRepo, storeRepo: storeRepo}
}

type ZoneRequest struct {
	Name     string          `json:"name" validate:"required,max=80"`
	Fee      decimal.Decimal `json:"fee"`
	Polygon  json.RawMessage `json:"polygon" validate:"required"`
	IsActive *bool           `json:"is_active"`
}

// parseZonePolygon decodes a GeoJSON Polygon and checks every ring is closed, has at least four
// positions and stays within longitude/latitude bounds.
func parseZonePolygon(raw json.RawMessage) (*geojson.Geometry, error) {
	if len(raw) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "polygon is required")
	}
	geom, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "polygon must be a GeoJSON geometry")
	}
	poly, ok := geom.Geometry().(orb.Polygon)
	if !ok {
		return nil, apperr.New(apperr.CodeValidation, "polygon must be a GeoJSON Polygon")
	}
	if len(poly) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "polygon has no rings")
	}
	for _, ring := range poly {
		if len(ring) < 4 {
			return nil, apperr.New(apperr.CodeValidation, "polygon ring needs at least 4 positions")
		}
		if !ring.Closed() {
			return nil, apperr.New(apperr.CodeValidation, "polygon ring must be closed")
		}
		for _, pt := range ring {
			if pt.Lon() < -180 || pt.Lon() > 180 || pt.Lat() < -90 || pt.Lat() > 90 {
				return nil, apperr.New(apperr.CodeValidation, "polygon coordinates out of range")
			}
		}
	}
	return geom, nil
}

func (s *zoneService) apply(z *models.DeliveryZone, req *ZoneRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperr.New(apperr.CodeValidation, "zone name is required")
	}
	if req.Fee.IsNegative() {
		return apperr.New(apperr.CodeValidation, "fee cannot be negative")
	}
	geom, err := parseZonePolygon(req.Polygon)
	if err != nil {
		return err
	}
	z.Name = name
	z.Fee = req.Fee.Round(2)
	z.Polygon = geom
	if req.IsActive != nil {
		z.IsActive = *req.IsActive
	}
	return nil
}

func (s *zoneService) Create(ctx context.Context, tenantID, storeID uuid.UUID, req *ZoneRequest) (*models.DeliveryZone, error) {
	if _, err := s.storeRepo.GetByID(ctx, tenantID, storeID); err != nil {
		return nil, err
	}
	zone := &models.DeliveryZone{ID: uuid.New(), TenantID: tenantID, StoreID: storeID, IsActive: true}
	if err := s.apply(zone, req); err != nil {
		return nil, err
	}
	if err := s.zoneRepo.Create(ctx, zone); err != nil {
		return nil, err
	}
	return zone, nil
}

func (s *zoneService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryZone, error) {
	return s.zoneRepo.GetByID(ctx, tenantID, id)
}

func (s *zoneService) ListByStore(ctx context.Context, tenantID, storeID uuid.UUID) ([]*models.DeliveryZone, error) {
	return s.zoneRepo.ListByStore(ctx, tenantID, storeID, false)
}

func (s *zoneService) Update(ctx context.Context, tenantID, id uuid.UUID, req *ZoneRequest) (*models.DeliveryZone, error) {
	zone, err := s.zoneRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(zone, req); err != nil {
		return nil, err
	}
	if err := s.zoneRepo.Update(ctx, zone); err != nil {
		return nil, err
	}
	return zone, nil
}

func (s *zoneService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.zoneRepo.Delete(ctx, tenantID, id)
}

func (s *zoneService) Locate(ctx context.Context, tenantID, storeID uuid.UUID, lat, lng float64) (*models.DeliveryZone, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperr.New(apperr.CodeValidation, "delivery point out of range")
	}
	zones, err := s.zoneRepo.ListByStore(ctx, tenantID, storeID, true)
	if err != nil {
		return nil, err
	}
	if zone := smallestContaining(zones, orb.Point{lng, lat}); zone != nil {
		return zone, nil
	}
	return nil, apperr.New(apperr.CodeNotFound, "delivery point is outside every delivery zone")
}

func smallestContaining(zones []*models.DeliveryZone, pt orb.Point) *models.DeliveryZone {
	var (
		best     *models.DeliveryZone
		bestArea float64
	)
	for _, z := range zones {
		if z.Polygon == nil || !z.IsActive {
			continue
		}
		poly, ok := z.Polygon.Geometry().(orb.Polygon)
		if !ok || len(poly) == 0 || !planar.PolygonContains(poly, pt) {
			continue
		}
		area := planar.Area(poly)
		if best == nil || area < bestArea {
			best, bestArea = z, area
		}
	}
	return best
}
