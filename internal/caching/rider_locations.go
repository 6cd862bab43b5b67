package caching

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"warehousepos/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RiderLocationStore keeps the last known position of each rider in a per-tenant GEO set,
// with last-seen times in a companion hash.
type RiderLocationStore interface {
	Save(ctx context.Context, tenantID uuid.UUID, loc models.RiderLocation) error
	Get(ctx context.Context, tenantID, riderID uuid.UUID) (*models.RiderLocation, error)
	Nearby(ctx context.Context, tenantID uuid.UUID, lat, lng, radiusKm float64, limit int) ([]models.RiderLocation, error)
	Remove(ctx context.Context, tenantID, riderID uuid.UUID) error
}

type redisRiderLocations struct {
	client *redis.Client
}

func NewRiderLocationStore(client *redis.Client) RiderLocationStore {
	return &redisRiderLocations{client: client}
}

func geoKey(tenantID uuid.UUID) string {
	return keyPrefix + "riders:geo:" + tenantID.String()
}

func seenKey(tenantID uuid.UUID) string {
	return keyPrefix + "riders:seen:" + tenantID.String()
}

func (r *redisRiderLocations) Save(ctx context.Context, tenantID uuid.UUID, loc models.RiderLocation) error {
	member := loc.RiderID.String()
	pipe := r.client.TxPipeline()
	pipe.GeoAdd(ctx, geoKey(tenantID), &redis.GeoLocation{Name: member, Longitude: loc.Longitude, Latitude: loc.Latitude})
	pipe.HSet(ctx, seenKey(tenantID), member, loc.SeenAt.Unix())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save rider location: %w", err)
	}
	return nil
}

func (r *redisRiderLocations) seenAt(ctx context.Context, tenantID uuid.UUID, members ...string) (map[string]time.Time, error) {
	vals, err := r.client.HMGet(ctx, seenKey(tenantID), members...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(members))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
			out[members[i]] = time.Unix(sec, 0).UTC()
		}
	}
	return out, nil
}

// Get returns nil, nil when the rider has never reported a position.
func (r *redisRiderLocations) Get(ctx context.Context, tenantID, riderID uuid.UUID) (*models.RiderLocation, error) {
	member := riderID.String()
	pos, err := r.client.GeoPos(ctx, geoKey(tenantID), member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(pos) == 0 || pos[0] == nil {
		return nil, nil
	}
	seen, err := r.seenAt(ctx, tenantID, member)
	if err != nil {
		return nil, err
	}
	return &models.RiderLocation{
		RiderID:   riderID,
		Latitude:  pos[0].Latitude,
		Longitude: pos[0].Longitude,
		SeenAt:    seen[member],
	}, nil
}

// Nearby lists riders within radiusKm of the point, nearest first.
func (r *redisRiderLocations) Nearby(ctx context.Context, tenantID uuid.UUID, lat, lng, radiusKm float64, limit int) ([]models.RiderLocation, error) {
	if limit <= 0 {
		limit = 20
	}
	hits, err := r.client.GeoRadius(ctx, geoKey(tenantID), lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
		Count:     limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo radius: %w", err)
	}
	if len(hits) == 0 {
		return []models.RiderLocation{}, nil
	}

	members := make([]string, len(hits))
	for i, h := range hits {
		members[i] = h.Name
	}
	seen, err := r.seenAt(ctx, tenantID, members...)
	if err != nil {
		return nil, err
	}

	out := make([]models.RiderLocation, 0, len(hits))
	for _, h := range hits {
		id, err := uuid.Parse(h.Name)
		if err != nil {
			continue
		}
		out = append(out, models.RiderLocation{
			RiderID:    id,
			Latitude:   h.Latitude,
			Longitude:  h.Longitude,
			DistanceKm: h.Dist,
			SeenAt:     seen[h.Name],
		})
	}
	return out, nil
}

func (r *redisRiderLocations) Remove(ctx context.Context, tenantID, riderID uuid.UUID) error {
	member := riderID.String()
	pipe := r.client.TxPipeline()
	pipe.ZRem(ctx, geoKey(tenantID), member)
	pipe.HDel(ctx, seenKey(tenantID), member)
	_, err := pipe.Exec(ctx)
	return err
}
