package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warehousepos/internal/caching"
	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	defaultNearbyRadiusKm = 5.0
	maxNearbyRadiusKm     = 50.0
	nearbyLimit           = 20
)

type RiderService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req *RiderRequest) (*models.Rider, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Rider, error)
	// Me resolves the rider profile linked to the calling user.
	Me(ctx context.Context, tenantID, userID uuid.UUID) (*models.Rider, error)
	List(ctx context.Context, tenantID uuid.UUID, status *models.RiderStatus) ([]*models.Rider, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, req *RiderRequest) (*models.Rider, error)
	// SetStatus lets a rider go online or offline. Busy is owned by delivery assignments.
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.RiderStatus) (*models.Rider, error)
	UpdateLocation(ctx context.Context, tenantID, id uuid.UUID, lat, lng float64) (*models.RiderLocation, error)
	Location(ctx context.Context, tenantID, id uuid.UUID) (*models.RiderLocation, error)
	// Nearby lists available riders around a store, nearest first.
	Nearby(ctx context.Context, tenantID, storeID uuid.UUID, radiusKm float64) ([]models.NearbyRider, error)
	// SweepStale takes riders offline when they have not reported a location since the cut-off.
	SweepStale(ctx context.Context, seenBefore time.Time) (int, error)
}

type RiderRequest struct {
	UserID  *uuid.UUID         `json:"user_id"`
	Name    string             `json:"name" validate:"required,max=120"`
	Phone   string             `json:"phone" validate:"required"`
	Vehicle models.VehicleType `json:"vehicle" validate:"required"`
}

type riderService struct {
	riderRepo  repositories.RiderRepository
	storeRepo  repositories.StoreRepository
	tenantRepo repositories.TenantRepository
	locations  caching.RiderLocationStore
	publisher  EventPublisher
	now        func() time.Time
	log        *logger.Logger
}

func NewRiderService(
	riderRepo repositories.RiderRepository,
	storeRepo repositories.StoreRepository,
	tenantRepo repositories.TenantRepository,
	locations caching.RiderLocationStore,
	publisher EventPublisher,
	log *logger.Logger,
) RiderService {
	return &riderService{
		riderRepo:  riderRepo,
		storeRepo:  storeRepo,
		tenantRepo: tenantRepo,
		locations:  locations,
		publisher:  publisher,
		now:        time.Now,
		log:        log,
	}
}

func (s *riderService) apply(ctx context.Context, tenantID uuid.UUID, r *models.Rider, req *RiderRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return apperr.New(apperr.CodeValidation, "name is required")
	}
	if !req.Vehicle.IsValid() {
		return apperr.Newf(apperr.CodeValidation, "unknown vehicle %q", req.Vehicle)
	}
	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}
	country, _ := models.CountryByCode(tenant.CountryCode)
	phone, err := common.NormalizePhone(req.Phone, country)
	if err != nil {
		return err
	}
	r.Name = name
	r.Phone = phone
	r.Vehicle = req.Vehicle
	r.UserID = req.UserID
	return nil
}

func (s *riderService) Create(ctx context.Context, tenantID uuid.UUID, req *RiderRequest) (*models.Rider, error) {
	rider := &models.Rider{ID: uuid.New(), TenantID: tenantID, Status: models.RiderOffline}
	if err := s.apply(ctx, tenantID, rider, req); err != nil {
		return nil, err
	}
	if err := s.riderRepo.Create(ctx, rider); err != nil {
		return nil, err
	}
	return rider, nil
}

func (s *riderService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Rider, error) {
	return s.riderRepo.GetByID(ctx, tenantID, id)
}

func (s *riderService) Me(ctx context.Context, tenantID, userID uuid.UUID) (*models.Rider, error) {
	rider, err := s.riderRepo.GetByUserID(ctx, tenantID, userID)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, apperr.New(apperr.CodeForbidden, "no rider profile is linked to this account")
		}
		return nil, err
	}
	return rider, nil
}

func (s *riderService) List(ctx context.Context, tenantID uuid.UUID, status *models.RiderStatus) ([]*models.Rider, error) {
	if status != nil && !status.IsValid() {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown rider status %q", *status)
	}
	return s.riderRepo.List(ctx, tenantID, status)
}

func (s *riderService) Update(ctx context.Context, tenantID, id uuid.UUID, req *RiderRequest) (*models.Rider, error) {
	rider, err := s.riderRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, tenantID, rider, req); err != nil {
		return nil, err
	}
	if err := s.riderRepo.Update(ctx, rider); err != nil {
		return nil, err
	}
	return rider, nil
}

func (s *riderService) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.RiderStatus) (*models.Rider, error) {
	if status != models.RiderAvailable && status != models.RiderOffline {
		return nil, apperr.New(apperr.CodeValidation, "status must be available or offline")
	}
	rider, err := s.riderRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if rider.Status == models.RiderBusy {
		return nil, apperr.New(apperr.CodeStateConflict, "rider is on a delivery")
	}
	if rider.Status == status {
		return rider, nil
	}
	if err := s.riderRepo.SetStatus(ctx, tenantID, id, status); err != nil {
		return nil, err
	}
	if status == models.RiderOffline {
		if err := s.locations.Remove(ctx, tenantID, id); err != nil {
			s.log.Error(ctx, "remove rider location", err)
		}
	}
	rider.Status = status
	return rider, nil
}

func (s *riderService) UpdateLocation(ctx context.Context, tenantID, id uuid.UUID, lat, lng float64) (*models.RiderLocation, error) {
	if lat < -85.05 || lat > 85.05 || lng < -180 || lng > 180 {
		return nil, apperr.New(apperr.CodeValidation, "location out of range")
	}
	rider, err := s.riderRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if rider.Status == models.RiderOffline {
		return nil, apperr.New(apperr.CodeStateConflict, "go online before sharing a location")
	}

	loc := models.RiderLocation{RiderID: id, Latitude: lat, Longitude: lng, SeenAt: s.now().UTC()}
	if err := s.locations.Save(ctx, tenantID, loc); err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "location store unavailable")
	}
	if err := s.riderRepo.Touch(ctx, tenantID, id, loc.SeenAt); err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.log, models.Event{
		Type:     models.EventRiderLocation,
		TenantID: tenantID,
		RiderID:  &id,
		Status:   string(rider.Status),
		Data:     loc,
	})
	return &loc, nil
}

func (s *riderService) Location(ctx context.Context, tenantID, id uuid.UUID) (*models.RiderLocation, error) {
	if _, err := s.riderRepo.GetByID(ctx, tenantID, id); err != nil {
		return nil, err
	}
	loc, err := s.locations.Get(ctx, tenantID, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "location store unavailable")
	}
	if loc == nil {
		return nil, apperr.New(apperr.CodeNotFound, "rider has not shared a location")
	}
	return loc, nil
}

func (s *riderService) Nearby(ctx context.Context, tenantID, storeID uuid.UUID, radiusKm float64) ([]models.NearbyRider, error) {
	if radiusKm <= 0 {
		radiusKm = defaultNearbyRadiusKm
	}
	if radiusKm > maxNearbyRadiusKm {
		return nil, apperr.Newf(apperr.CodeValidation, "radius cannot exceed %.0f km", maxNearbyRadiusKm)
	}
	store, err := s.storeRepo.GetByID(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}
	if !store.HasLocation() {
		return nil, apperr.New(apperr.CodeValidation, "store has no location")
	}

	// over-fetch since busy riders are dropped below
	locs, err := s.locations.Nearby(ctx, tenantID, *store.Latitude, *store.Longitude, radiusKm, nearbyLimit*2)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "location store unavailable")
	}
	if len(locs) == 0 {
		return []models.NearbyRider{}, nil
	}

	ids := make([]uuid.UUID, len(locs))
	for i, l := range locs {
		ids[i] = l.RiderID
	}
	riders, err := s.riderRepo.GetByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	nearby := make([]models.NearbyRider, 0, len(locs))
	for _, l := range locs {
		r, ok := riders[l.RiderID]
		if !ok || r.Status != models.RiderAvailable {
			continue
		}
		nearby = append(nearby, models.NearbyRider{Rider: r, DistanceKm: l.DistanceKm})
		if len(nearby) == nearbyLimit {
			break
		}
	}
	return nearby, nil
}

func (s *riderService) SweepStale(ctx context.Context, seenBefore time.Time) (int, error) {
	riders, err := s.riderRepo.MarkStaleOffline(ctx, seenBefore)
	if err != nil {
		return 0, err
	}
	var errs error
	for _, r := range riders {
		if err := s.locations.Remove(ctx, r.TenantID, r.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remove location of rider %s: %w", r.ID, err))
		}
	}
	if len(riders) > 0 {
		s.log.Info(s.log.WithField(ctx, "count", len(riders)), "stale riders taken offline")
	}
	return len(riders), errs
}
