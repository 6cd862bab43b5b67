package caching

import (
	"context"
	"testing"
	"time"

	"warehousepos/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocationStore(t *testing.T) RiderLocationStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRiderLocationStore(client)
}

func TestRiderLocationsNearestFirst(t *testing.T) {
	store := newLocationStore(t)
	ctx := context.Background()
	tenantID := uuid.New()
	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	near, far, outside := uuid.New(), uuid.New(), uuid.New()
	// Airport Residential and Osu in Accra, then Kumasi
	require.NoError(t, store.Save(ctx, tenantID, models.RiderLocation{RiderID: far, Latitude: 5.6050, Longitude: -0.1710, SeenAt: seen}))
	require.NoError(t, store.Save(ctx, tenantID, models.RiderLocation{RiderID: near, Latitude: 5.5560, Longitude: -0.1820, SeenAt: seen}))
	require.NoError(t, store.Save(ctx, tenantID, models.RiderLocation{RiderID: outside, Latitude: 6.6885, Longitude: -1.6244, SeenAt: seen}))

	got, err := store.Nearby(ctx, tenantID, 5.5550, -0.1830, 10, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, near, got[0].RiderID)
	assert.Equal(t, far, got[1].RiderID)
	assert.Less(t, got[0].DistanceKm, got[1].DistanceKm)
	assert.Equal(t, seen, got[0].SeenAt)

	other, err := store.Nearby(ctx, uuid.New(), 5.5550, -0.1830, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRiderLocationGetAndRemove(t *testing.T) {
	store := newLocationStore(t)
	ctx := context.Background()
	tenantID, riderID := uuid.New(), uuid.New()

	loc, err := store.Get(ctx, tenantID, riderID)
	require.NoError(t, err)
	assert.Nil(t, loc)

	seen := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Save(ctx, tenantID, models.RiderLocation{RiderID: riderID, Latitude: 6.5244, Longitude: 3.3792, SeenAt: seen}))

	loc, err = store.Get(ctx, tenantID, riderID)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.InDelta(t, 6.5244, loc.Latitude, 0.0001)
	assert.InDelta(t, 3.3792, loc.Longitude, 0.0001)
	assert.Equal(t, seen, loc.SeenAt)

	require.NoError(t, store.Remove(ctx, tenantID, riderID))
	loc, err = store.Get(ctx, tenantID, riderID)
	require.NoError(t, err)
	assert.Nil(t, loc)
}
