package jobs

import (
	"context"
	"fmt"

	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/internal/services"
	"warehousepos/pkg/logger"

	"go.uber.org/multierr"
)

const tenantPageSize = 100

// LowStockScanJob texts each active tenant about stock at or below its reorder level.
type LowStockScanJob struct {
	tenantRepo repositories.TenantRepository
	storeRepo  repositories.StoreRepository
	stockRepo  repositories.StockRepository
	notifier   services.NotificationService
	log        *logger.Logger
}

func NewLowStockScanJob(tenantRepo repositories.TenantRepository, storeRepo repositories.StoreRepository, stockRepo repositories.StockRepository, notifier services.NotificationService, log *logger.Logger) *LowStockScanJob {
	return &LowStockScanJob{
		tenantRepo: tenantRepo,
		storeRepo:  storeRepo,
		stockRepo:  stockRepo,
		notifier:   notifier,
		log:        log,
	}
}

func (j *LowStockScanJob) Name() string { return "low-stock-scan" }

func (j *LowStockScanJob) Run(ctx context.Context) error {
	active := models.TenantActive
	var errs error
	low, notified := 0, 0
	for offset := 0; ; offset += tenantPageSize {
		tenants, err := j.tenantRepo.List(ctx, &active, tenantPageSize, offset)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list tenants: %w", err))
		}
		for _, t := range tenants {
			l, n, err := j.scanTenant(ctx, t)
			low += l
			notified += n
			errs = multierr.Append(errs, err)
		}
		if len(tenants) < tenantPageSize {
			break
		}
	}
	j.log.Info(j.log.WithFields(ctx, map[string]any{"low": low, "notified": notified}), "low stock scan finished")
	return errs
}

func (j *LowStockScanJob) scanTenant(ctx context.Context, t *models.Tenant) (int, int, error) {
	stores, err := j.storeRepo.ListByTenant(ctx, t.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("list stores of tenant %s: %w", t.ID, err)
	}
	var errs error
	low, notified := 0, 0
	for _, s := range stores {
		levels, err := j.stockRepo.LowStock(ctx, t.ID, s.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("low stock of store %s: %w", s.ID, err))
			continue
		}
		if len(levels) == 0 {
			continue
		}
		low += len(levels)
		j.log.Warn(j.log.WithFields(j.log.WithTenantID(ctx, t.ID.String()), map[string]any{
			"store_id": s.ID.String(),
			"items":    len(levels),
		}), "store has low stock")
		notified += j.notifier.LowStock(ctx, t, s, levels)
	}
	return low, notified, errs
}
