package repositories

import (
	"context"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AnalyticsScope selects the orders an aggregate runs over. A nil StoreID covers every store.
type AnalyticsScope struct {
	TenantID uuid.UUID
	StoreID  *uuid.UUID
	Range    models.DateRange
}

type AnalyticsRepository interface {
	OrderSummary(ctx context.Context, scope AnalyticsScope) (int, decimal.Decimal, error)
	StatusCounts(ctx context.Context, scope AnalyticsScope) (map[models.OrderStatus]int, error)
	PaymentsByMethod(ctx context.Context, scope AnalyticsScope) (map[models.PaymentMethod]decimal.Decimal, error)
	TopProducts(ctx context.Context, scope AnalyticsScope, limit int) ([]models.TopProduct, error)
	DailyRevenue(ctx context.Context, scope AnalyticsScope) ([]models.DailyRevenue, error)
	RevenueByTenant(ctx context.Context, r models.DateRange, limit int) ([]models.TenantRevenue, error)
	OrderReport(ctx context.Context, scope AnalyticsScope) ([]models.OrderReportRow, error)
}

type analyticsRepo struct {
	db database.DB
}

func NewAnalyticsRepo(db database.DB) AnalyticsRepository {
	return &analyticsRepo{db: db}
}

const scopeFilter = `o.tenant_id = $1 AND ($2::uuid IS NULL OR o.store_id = $2) AND o.created_at >= $3 AND o.created_at < $4`

func scopeArgs(s AnalyticsScope) []any {
	return []any{s.TenantID, s.StoreID, s.Range.From, s.Range.To}
}

// OrderSummary returns the number of non-cancelled orders and the sum of their totals.
func (r *analyticsRepo) OrderSummary(ctx context.Context, scope AnalyticsScope) (int, decimal.Decimal, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(o.total), 0)
		FROM orders o
		WHERE ` + scopeFilter + ` AND o.status <> 'cancelled'
	`
	var count int
	var revenue decimal.Decimal
	if err := r.db.QueryRow(ctx, query, scopeArgs(scope)...).Scan(&count, &revenue); err != nil {
		return 0, decimal.Zero, apperr.FromDB(err, "analytics")
	}
	return count, revenue, nil
}

func (r *analyticsRepo) StatusCounts(ctx context.Context, scope AnalyticsScope) (map[models.OrderStatus]int, error) {
	query := `SELECT o.status, COUNT(*) FROM orders o WHERE ` + scopeFilter + ` GROUP BY o.status`
	rows, err := r.db.Query(ctx, query, scopeArgs(scope)...)
	if err != nil {
		return nil, apperr.FromDB(err, "analytics")
	}
	defer rows.Close()

	counts := make(map[models.OrderStatus]int)
	for rows.Next() {
		var status models.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperr.FromDB(err, "analytics")
		}
		counts[status] = n
	}
	return counts, apperr.FromDB(rows.Err(), "analytics")
}

func (r *analyticsRepo) PaymentsByMethod(ctx context.Context, scope AnalyticsScope) (map[models.PaymentMethod]decimal.Decimal, error) {
	query := `
		SELECT p.method, COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		WHERE ` + scopeFilter + ` AND p.status = 'succeeded'
		GROUP BY p.method
	`
	rows, err := r.db.Query(ctx, query, scopeArgs(scope)...)
	if err != nil {
		return nil, apperr.FromDB(err, "analytics")
	}
	defer rows.Close()

	byMethod := make(map[models.PaymentMethod]decimal.Decimal)
	for rows.Next() {
		var method models.PaymentMethod
		var amount decimal.Decimal
		if err := rows.Scan(&method, &amount); err != nil {
			return nil, apperr.FromDB(err, "analytics")
		}
		byMethod[method] = amount
	}
	return byMethod, apperr.FromDB(rows.Err(), "analytics")
}

func (r *analyticsRepo) TopProducts(ctx context.Context, scope AnalyticsScope, limit int) ([]models.TopProduct, error) {
	query := `
		SELECT i.product_id, MAX(i.product_name), SUM(i.quantity), SUM(i.line_total)
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE ` + scopeFilter + ` AND o.status <> 'cancelled'
		GROUP BY i.product_id
		ORDER BY SUM(i.quantity) DESC, SUM(i.line_total) DESC
		LIMIT $5
	`
	rows, err := r.db.Query(ctx, query, append(scopeArgs(scope), limit)...)
	if err != nil {
		return nil, apperr.FromDB(err, "analytics")
	}
	defer rows.Close()

	var top []models.TopProduct
	for rows.Next() {
		var p models.TopProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Quantity, &p.Revenue); err != nil {
			return nil, apperr.FromDB(err, "analytics")
		}
		top = append(top, p)
	}
	return top, apperr.FromDB(rows.Err(), "analytics")
}

func (r *analyticsRepo) DailyRevenue(ctx context.Context, scope AnalyticsScope) ([]models.DailyRevenue, error) {
	query := `
		SELECT date_trunc('day', o.created_at) AS day, COUNT(*), COALESCE(SUM(o.total), 0)
		FROM orders o
		WHERE ` + scopeFilter + ` AND o.status <> 'cancelled'
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.Query(ctx, query, scopeArgs(scope)...)
	if err != nil {
		return nil, apperr.FromDB(err, "analytics")
	}
	defer rows.Close()

	var series []models.DailyRevenue
	for rows.Next() {
		var d models.DailyRevenue
		if err := rows.Scan(&d.Day, &d.Orders, &d.Revenue); err != nil {
			return nil, apperr.FromDB(err, "analytics")
		}
		series = append(series, d)
	}
	return series, apperr.FromDB(rows.Err(), "analytics")
}

// RevenueByTenant ranks tenants by revenue across the platform.
func (r *analyticsRepo) RevenueByTenant(ctx context.Context, dr models.DateRange, limit int) ([]models.TenantRevenue, error) {
	query := `
		SELECT t.id, t.name, COUNT(o.id), COALESCE(SUM(o.total), 0)
		FROM tenants t
		JOIN orders o ON o.tenant_id = t.id AND o.status <> 'cancelled' AND o.created_at >= $1 AND o.created_at < $2
		GROUP BY t.id, t.name
		ORDER BY COALESCE(SUM(o.total), 0) DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, dr.From, dr.To, limit)
	if err != nil {
		return nil, apperr.FromDB(err, "analytics")
	}
	defer rows.Close()

	var out []models.TenantRevenue
	for rows.Next() {
		var tr models.TenantRevenue
		if err := rows.Scan(&tr.TenantID, &tr.TenantName, &tr.Orders, &tr.Revenue); err != nil {
			return nil, apperr.FromDB(err, "analytics")
		}
		out = append(out, tr)
	}
	return out, apperr.FromDB(rows.Err(), "analytics")
}

func (r *analyticsRepo) OrderReport(ctx context.Context, scope AnalyticsScope) ([]models.OrderReportRow, error) {
	query := `
		SELECT o.order_number, s.name, COALESCE(c.name, ''), o.channel, o.status, o.payment_status, o.total, o.created_at
		FROM orders o
		JOIN stores s ON s.id = o.store_id
		LEFT JOIN customers c ON c.id = o.customer_id
		WHERE ` + scopeFilter + `
		ORDER BY o.created_at
	`
	rows, err := r.db.Query(ctx, query, scopeArgs(scope)...)
	if err != nil {
		return nil, apperr.FromDB(err, "analytics")
	}
	defer rows.Close()

	var report []models.OrderReportRow
	for rows.Next() {
		var row models.OrderReportRow
		if err := rows.Scan(&row.OrderNumber, &row.StoreName, &row.CustomerName, &row.Channel, &row.Status,
			&row.PaymentStatus, &row.Total, &row.CreatedAt); err != nil {
			return nil, apperr.FromDB(err, "analytics")
		}
		report = append(report, row)
	}
	return report, apperr.FromDB(rows.Err(), "analytics")
}
