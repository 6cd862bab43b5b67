package analytics

import (
	"context"
	"fmt"
	"io"
	"time"

	"warehousepos/internal/caching"
	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	// DashboardTTL is how long a computed dashboard is served from Redis.
	DashboardTTL     = 5 * time.Minute
	defaultRangeDays = 30
	topProductsLimit = 10
	topTenantsLimit  = 50
	reportSheet      = "Orders"
)

// AnalyticsService computes tenant and platform dashboards and exports order reports.
type AnalyticsService struct {
	analyticsRepo repositories.AnalyticsRepository
	tenantRepo    repositories.TenantRepository
	stockRepo     repositories.StockRepository
	cacheService  caching.CacheService
	now           func() time.Time
	log           *logger.Logger
}

func NewAnalyticsService(analyticsRepo repositories.AnalyticsRepository, tenantRepo repositories.TenantRepository, stockRepo repositories.StockRepository, cacheService caching.CacheService, log *logger.Logger) *AnalyticsService {
	return &AnalyticsService{
		analyticsRepo: analyticsRepo,
		tenantRepo:    tenantRepo,
		stockRepo:     stockRepo,
		cacheService:  cacheService,
		now:           time.Now,
		log:           log,
	}
}

// ResolveRange fills in the default window (the last 30 days, whole UTC days) and validates it.
// The returned range is half open: From <= t < To.
func (a *AnalyticsService) ResolveRange(from, to *time.Time) (models.DateRange, error) {
	today := a.now().UTC().Truncate(24 * time.Hour)
	r := models.DateRange{
		From: today.AddDate(0, 0, -(defaultRangeDays - 1)),
		To:   today.AddDate(0, 0, 1),
	}
	if from != nil {
		r.From = from.UTC()
	}
	if to != nil {
		r.To = to.UTC()
	}
	if err := common.ValidateDateRange(r.From, r.To); err != nil {
		return models.DateRange{}, err
	}
	return r, nil
}

func cacheKey(storeID *uuid.UUID, r models.DateRange) string {
	store := "all"
	if storeID != nil {
		store = storeID.String()
	}
	return fmt.Sprintf("%s:%d:%d", store, r.From.Unix(), r.To.Unix())
}

// Dashboard returns the cached dashboard when there is one, computing and caching it otherwise.
func (a *AnalyticsService) Dashboard(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID, r models.DateRange) (*models.Dashboard, error) {
	key := cacheKey(storeID, r)
	cached, err := a.cacheService.GetDashboard(ctx, tenantID, key)
	if err != nil {
		a.log.Error(ctx, "read cached dashboard", err)
	}
	if cached != nil {
		return cached, nil
	}
	return a.Refresh(ctx, tenantID, storeID, r)
}

// Refresh recomputes a dashboard from the database and overwrites the cache entry.
func (a *AnalyticsService) Refresh(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID, r models.DateRange) (*models.Dashboard, error) {
	scope := repositories.AnalyticsScope{TenantID: tenantID, StoreID: storeID, Range: r}

	count, revenue, err := a.analyticsRepo.OrderSummary(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("order summary: %w", err)
	}
	statuses, err := a.analyticsRepo.StatusCounts(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	methods, err := a.analyticsRepo.PaymentsByMethod(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("payments by method: %w", err)
	}
	top, err := a.analyticsRepo.TopProducts(ctx, scope, topProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	daily, err := a.analyticsRepo.DailyRevenue(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("daily revenue: %w", err)
	}
	low, err := a.stockRepo.CountLow(ctx, tenantID, storeID)
	if err != nil {
		return nil, fmt.Errorf("low stock count: %w", err)
	}

	d := &models.Dashboard{
		TenantID:          tenantID,
		StoreID:           storeID,
		Range:             r,
		OrderCount:        count,
		Revenue:           revenue.Round(2),
		AverageOrderValue: decimal.Zero,
		StatusCounts:      statuses,
		PaymentsByMethod:  methods,
		TopProducts:       top,
		DailyRevenue:      daily,
		LowStockCount:     low,
		GeneratedAt:       a.now().UTC(),
	}
	if count > 0 {
		d.AverageOrderValue = revenue.Div(decimal.NewFromInt(int64(count))).Round(2)
	}
	if d.TopProducts == nil {
		d.TopProducts = []models.TopProduct{}
	}
	if d.DailyRevenue == nil {
		d.DailyRevenue = []models.DailyRevenue{}
	}

	if err := a.cacheService.SetDashboard(ctx, tenantID, cacheKey(storeID, r), d, DashboardTTL); err != nil {
		a.log.Error(ctx, "cache dashboard", err)
	}
	return d, nil
}

// RefreshActiveTenants recomputes the default dashboard of every active tenant. It returns how many were refreshed.
func (a *AnalyticsService) RefreshActiveTenants(ctx context.Context) (int, error) {
	r, err := a.ResolveRange(nil, nil)
	if err != nil {
		return 0, err
	}
	active := models.TenantActive
	refreshed := 0
	for offset := 0; ; offset += 100 {
		tenants, err := a.tenantRepo.List(ctx, &active, 100, offset)
		if err != nil {
			return refreshed, err
		}
		for _, t := range tenants {
			if _, err := a.Refresh(ctx, t.ID, nil, r); err != nil {
				a.log.Error(a.log.WithTenantID(ctx, t.ID.String()), "refresh dashboard", err)
				continue
			}
			refreshed++
		}
		if len(tenants) < 100 {
			return refreshed, nil
		}
	}
}

// Platform is the operator dashboard across every tenant. It is never cached.
func (a *AnalyticsService) Platform(ctx context.Context, r models.DateRange) (*models.PlatformDashboard, error) {
	statuses, err := a.tenantRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("tenants by status: %w", err)
	}
	byTenant, err := a.analyticsRepo.RevenueByTenant(ctx, r, topTenantsLimit)
	if err != nil {
		return nil, fmt.Errorf("revenue by tenant: %w", err)
	}

	p := &models.PlatformDashboard{
		Range:           r,
		TenantsByStatus: statuses,
		Revenue:         decimal.Zero,
		ByTenant:        byTenant,
		GeneratedAt:     a.now().UTC(),
	}
	if p.ByTenant == nil {
		p.ByTenant = []models.TenantRevenue{}
	}
	for _, t := range byTenant {
		p.OrderCount += t.Orders
		p.Revenue = p.Revenue.Add(t.Revenue)
	}
	return p, nil
}

var reportHeader = []any{"Order #", "Store", "Customer", "Channel", "Status", "Payment", "Total", "Created (UTC)"}

// ExportOrders writes the tenant's orders in the range as an xlsx workbook.
func (a *AnalyticsService) ExportOrders(ctx context.Context, w io.Writer, tenantID uuid.UUID, storeID *uuid.UUID, r models.DateRange) error {
	rows, err := a.analyticsRepo.OrderReport(ctx, repositories.AnalyticsScope{TenantID: tenantID, StoreID: storeID, Range: r})
	if err != nil {
		return fmt.Errorf("order report: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			a.log.Error(ctx, "close workbook", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(reportSheet, "A1", &reportHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(reportSheet, 1, 1, bold); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.OrderNumber,
			row.StoreName,
			row.CustomerName,
			string(row.Channel),
			string(row.Status),
			string(row.PaymentStatus),
			row.Total.InexactFloat64(),
			row.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		if err := f.SetCellStyle(reportSheet, "G2", fmt.Sprintf("G%d", len(rows)+1), money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(reportSheet, "B", "C", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(reportSheet, "H", "H", 18); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
