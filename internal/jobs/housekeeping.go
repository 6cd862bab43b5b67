package jobs

import (
	"context"
	"time"

	"warehousepos/pkg/logger"
)

type OrderExpirer interface {
	ExpireStale(ctx context.Context, createdBefore time.Time) (int, error)
}

// OrderExpiryJob cancels portal orders still pending after the TTL.
type OrderExpiryJob struct {
	orders OrderExpirer
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger
}

func NewOrderExpiryJob(orders OrderExpirer, ttl time.Duration, log *logger.Logger) *OrderExpiryJob {
	return &OrderExpiryJob{orders: orders, ttl: ttl, now: time.Now, log: log}
}

func (j *OrderExpiryJob) Name() string { return "order-expiry" }

func (j *OrderExpiryJob) Run(ctx context.Context) error {
	n, err := j.orders.ExpireStale(ctx, j.now().Add(-j.ttl))
	if n > 0 {
		j.log.Info(j.log.WithField(ctx, "expired", n), "stale pending orders cancelled")
	}
	return err
}

type RiderSweeper interface {
	SweepStale(ctx context.Context, seenBefore time.Time) (int, error)
}

// RiderPresenceJob takes silent riders offline.
type RiderPresenceJob struct {
	riders     RiderSweeper
	staleAfter time.Duration
	now        func() time.Time
}

func NewRiderPresenceJob(riders RiderSweeper, staleAfter time.Duration) *RiderPresenceJob {
	return &RiderPresenceJob{riders: riders, staleAfter: staleAfter, now: time.Now}
}

func (j *RiderPresenceJob) Name() string { return "rider-presence" }

func (j *RiderPresenceJob) Run(ctx context.Context) error {
	_, err := j.riders.SweepStale(ctx, j.now().Add(-j.staleAfter))
	return err
}
