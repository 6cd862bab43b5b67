package jobs

import (
	"context"

	"warehousepos/pkg/logger"
)

// DashboardRefresher recomputes cached tenant dashboards.
type DashboardRefresher interface {
	RefreshActiveTenants(ctx context.Context) (int, error)
}

type AnalyticsRefreshJob struct {
	analytics DashboardRefresher
	log       *logger.Logger
}

func NewAnalyticsRefreshJob(analytics DashboardRefresher, log *logger.Logger) *AnalyticsRefreshJob {
	return &AnalyticsRefreshJob{analytics: analytics, log: log}
}

func (j *AnalyticsRefreshJob) Name() string { return "analytics-refresh" }

func (j *AnalyticsRefreshJob) Run(ctx context.Context) error {
	n, err := j.analytics.RefreshActiveTenants(ctx)
	if err != nil {
		return err
	}
	j.log.Info(j.log.WithField(ctx, "tenants", n), "dashboards refreshed")
	return nil
}
