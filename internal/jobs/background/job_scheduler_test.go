package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"warehousepos/pkg/logger"
	"warehousepos/pkg/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func counterValue(reg *prometheus.Registry, name, job string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "job" && lp.GetValue() == job {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRunNowExecutesAndRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	js, err := NewJobScheduler(nil, metrics.NewJobMetrics(reg), logger.Nop())
	require.NoError(t, err)

	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	require.NoError(t, js.Register(ok, time.Hour))
	require.NoError(t, js.Register(bad, time.Hour))
	require.NoError(t, js.Register(&countingJob{name: "off"}, 0))
	assert.Error(t, js.Register(&countingJob{name: "ok"}, time.Minute))

	js.Start()
	t.Cleanup(func() { _ = js.Stop() })

	require.NoError(t, js.RunNow("ok"))
	require.NoError(t, js.RunNow("bad"))
	assert.ErrorIs(t, js.RunNow("off"), ErrUnknownJob)

	assert.Eventually(t, func() bool {
		return ok.runs.Load() >= 1 && bad.runs.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return counterValue(reg, "wpos_job_success_total", "ok") >= 1 &&
			counterValue(reg, "wpos_job_failure_total", "bad") >= 1
	}, 2*time.Second, 10*time.Millisecond)

	status := js.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "bad", status[0].Name)
	assert.Equal(t, time.Hour, status[1].Interval)
}

func TestRedisLockerIsExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()
	locker := NewRedisLocker(client, time.Minute)

	first, err := locker.Lock(ctx, "low-stock-scan")
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "low-stock-scan")
	assert.Error(t, err)

	require.NoError(t, first.Unlock(ctx))
	again, err := locker.Lock(ctx, "low-stock-scan")
	require.NoError(t, err)
	require.NoError(t, again.Unlock(ctx))
}

func TestRedisLockExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()
	locker := NewRedisLocker(client, 30*time.Second)

	stale, err := locker.Lock(ctx, "order-expiry")
	require.NoError(t, err)
	mr.FastForward(31 * time.Second)

	fresh, err := locker.Lock(ctx, "order-expiry")
	require.NoError(t, err)

	// the stale holder must not release the new lock
	require.NoError(t, stale.Unlock(ctx))
	assert.True(t, mr.Exists(lockPrefix+"order-expiry"))
	require.NoError(t, fresh.Unlock(ctx))
}
