package background

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"warehousepos/pkg/logger"
	"warehousepos/pkg/metrics"

	"github.com/go-co-op/gocron/v2"
)

// Job is one unit of background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobStatus describes a registered job for the admin API.
type JobStatus struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	LastRun  *time.Time    `json:"last_run,omitempty"`
	NextRun  *time.Time    `json:"next_run,omitempty"`
}

type registered struct {
	job      gocron.Job
	interval time.Duration
}

// JobScheduler runs jobs on fixed intervals. Every job runs in singleton mode, and with a
// locker only one replica runs a given tick.
type JobScheduler struct {
	scheduler gocron.Scheduler
	metrics   *metrics.JobMetrics
	log       *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	jobs      map[string]registered
	mu        sync.RWMutex
}

func NewJobScheduler(locker gocron.Locker, m *metrics.JobMetrics, log *logger.Logger) (*JobScheduler, error) {
	opts := []gocron.SchedulerOption{gocron.WithLocation(time.UTC)}
	if locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(locker))
	}
	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobScheduler{
		scheduler: scheduler,
		metrics:   m,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]registered),
	}, nil
}

// Register schedules job every interval. A non-positive interval leaves the job disabled.
func (js *JobScheduler) Register(job Job, interval time.Duration) error {
	if interval <= 0 {
		js.log.Warn(js.log.WithField(js.ctx, "job", job.Name()), "job disabled")
		return nil
	}
	js.mu.Lock()
	defer js.mu.Unlock()

	if _, exists := js.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}
	j, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(js.execute, job),
		gocron.WithName(job.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	js.jobs[job.Name()] = registered{job: j, interval: interval}
	return nil
}

func (js *JobScheduler) execute(job Job) {
	ctx := js.log.WithField(js.ctx, "job", job.Name())
	start := time.Now()
	err := job.Run(ctx)
	js.metrics.ObserveDuration(job.Name(), time.Since(start))
	if err != nil {
		js.metrics.IncFailure(job.Name())
		js.log.Error(ctx, "job failed", err)
		return
	}
	js.metrics.IncSuccess(job.Name())
	js.log.Debug(js.log.WithField(ctx, "took", time.Since(start).String()), "job finished")
}

func (js *JobScheduler) Start() {
	js.log.Info(js.log.WithField(js.ctx, "jobs", len(js.jobs)), "starting job scheduler")
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (js *JobScheduler) Stop() error {
	js.cancel()
	return js.scheduler.Shutdown()
}

// ErrUnknownJob is returned by RunNow for names that were never registered.
var ErrUnknownJob = errors.New("unknown job")

// RunNow triggers a registered job outside its schedule.
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	r, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return ErrUnknownJob
	}
	return r.job.RunNow()
}

func (js *JobScheduler) Status() []JobStatus {
	js.mu.RLock()
	defer js.mu.RUnlock()

	out := make([]JobStatus, 0, len(js.jobs))
	for name, r := range js.jobs {
		st := JobStatus{Name: name, Interval: r.interval}
		if t, err := r.job.LastRun(); err == nil && !t.IsZero() {
			st.LastRun = &t
		}
		if t, err := r.job.NextRun(); err == nil && !t.IsZero() {
			st.NextRun = &t
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
