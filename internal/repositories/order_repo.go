package repositories

import (
	"context"
	"fmt"
	"time"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderTransition is a single status step of one order.
type OrderTransition struct {
	TenantID uuid.UUID
	OrderID  uuid.UUID
	StoreID  uuid.UUID
	From     models.OrderStatus
	To       models.OrderStatus
	ActorID  *uuid.UUID
	Note     *string
	// Restock returns every item to the store, used on cancellation.
	Restock bool
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error)
	Track(ctx context.Context, storeID, id uuid.UUID, phone string) (*models.Order, error)
	Search(ctx context.Context, tenantID uuid.UUID, filter models.OrderSearchFilter) ([]*models.Order, error)
	TransitionStatus(ctx context.Context, t OrderTransition) error
	UpdatePaymentStatus(ctx context.Context, tenantID, id uuid.UUID, status models.PaymentStatus) error
	ListEvents(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.OrderEvent, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Order, error)
}

type orderRepo struct {
	db database.DB
}

func NewOrderRepo(db database.DB) OrderRepository {
	return &orderRepo{db: db}
}

const orderColumns = `o.id, o.tenant_id, o.store_id, o.customer_id, o.order_number, o.channel, o.fulfilment, o.status, o.payment_status,
	o.subtotal, o.discount, o.delivery_fee, o.tax, o.total, o.delivery_address, o.delivery_lat, o.delivery_lng, o.zone_id,
	o.notes, o.created_by, o.created_at, o.updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(&o.ID, &o.TenantID, &o.StoreID, &o.CustomerID, &o.OrderNumber, &o.Channel, &o.Fulfilment, &o.Status,
		&o.PaymentStatus, &o.Subtotal, &o.Discount, &o.DeliveryFee, &o.Tax, &o.Total, &o.DeliveryAddress,
		&o.DeliveryLat, &o.DeliveryLng, &o.ZoneID, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Create stores the order with its items and takes the items out of stock. A shortfall on any item
// aborts the whole order.
func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE stores SET order_seq = order_seq + 1
			WHERE tenant_id = $1 AND id = $2
			RETURNING order_seq
		`, order.TenantID, order.StoreID).Scan(&order.OrderNumber)
		if err != nil {
			return apperr.FromDB(err, "store")
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO orders (id, tenant_id, store_id, customer_id, order_number, channel, fulfilment, status, payment_status,
				subtotal, discount, delivery_fee, tax, total, delivery_address, delivery_lat, delivery_lng, zone_id, notes, created_by,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW(), NOW())
			RETURNING created_at, updated_at
		`, order.ID, order.TenantID, order.StoreID, order.CustomerID, order.OrderNumber, order.Channel, order.Fulfilment,
			order.Status, order.PaymentStatus, order.Subtotal, order.Discount, order.DeliveryFee, order.Tax, order.Total,
			order.DeliveryAddress, order.DeliveryLat, order.DeliveryLng, order.ZoneID, order.Notes, order.CreatedBy).
			Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return apperr.FromDB(err, "order")
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			item.TenantID = order.TenantID
			if item.ID == uuid.Nil {
				item.ID = uuid.New()
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO order_items (id, tenant_id, order_id, product_id, product_name, quantity, unit_price, line_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, item.ID, item.TenantID, item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.LineTotal)
			if err != nil {
				return apperr.FromDB(err, "order item")
			}

			_, err = applyStockDelta(ctx, tx, StockChange{
				TenantID: order.TenantID, StoreID: order.StoreID, ProductID: item.ProductID,
				Delta: -item.Quantity, Reason: models.StockSale, ReferenceID: &order.ID, ActorID: order.CreatedBy,
			})
			if err != nil {
				if ae := apperr.As(err); ae != nil && ae.Code() == apperr.CodeStateConflict {
					return apperr.Newf(apperr.CodeStateConflict, "insufficient stock for %s", item.ProductName).
						WithDetails(map[string]string{"product_id": item.ProductID.String()})
				}
				return err
			}
		}

		return insertOrderEvent(ctx, tx, order.TenantID, order.ID, nil, order.Status, order.CreatedBy, nil)
	})
}

func (r *orderRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.tenant_id = $1 AND o.id = $2`
	order, err := scanOrder(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, apperr.FromDB(err, "order")
	}
	if order.Items, err = r.listItems(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return order, nil
}

// Track finds a portal order by id, only when the phone matches the order's customer.
func (r *orderRepo) Track(ctx context.Context, storeID, id uuid.UUID, phone string) (*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.store_id = $1 AND o.id = $2 AND c.phone = $3
	`
	order, err := scanOrder(r.db.QueryRow(ctx, query, storeID, id, phone))
	if err != nil {
		return nil, apperr.FromDB(err, "order")
	}
	if order.Items, err = r.listItems(ctx, order.TenantID, id); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepo) listItems(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, order_id, product_id, product_name, quantity, unit_price, line_total
		FROM order_items
		WHERE tenant_id = $1 AND order_id = $2
		ORDER BY product_name
	`, tenantID, orderID)
	if err != nil {
		return nil, apperr.FromDB(err, "order item")
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.TenantID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, apperr.FromDB(err, "order item")
		}
		items = append(items, it)
	}
	return items, apperr.FromDB(rows.Err(), "order item")
}

func (r *orderRepo) Search(ctx context.Context, tenantID uuid.UUID, filter models.OrderSearchFilter) ([]*models.Order, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		LEFT JOIN customers c ON c.id = o.customer_id
		WHERE o.tenant_id = $1
	`
	args := []interface{}{tenantID}
	conditionCount := 1

	if filter.Query != "" {
		conditionCount++
		query += fmt.Sprintf(` AND (c.name ILIKE $%d OR c.phone ILIKE $%d)`, conditionCount, conditionCount)
		args = append(args, "%"+filter.Query+"%")
	}
	if filter.StoreID != nil {
		conditionCount++
		query += fmt.Sprintf(` AND o.store_id = $%d`, conditionCount)
		args = append(args, *filter.StoreID)
	}
	if filter.CustomerID != nil {
		conditionCount++
		query += fmt.Sprintf(` AND o.customer_id = $%d`, conditionCount)
		args = append(args, *filter.CustomerID)
	}
	if filter.Status != nil {
		conditionCount++
		query += fmt.Sprintf(` AND o.status = $%d`, conditionCount)
		args = append(args, *filter.Status)
	}
	if filter.Channel != nil {
		conditionCount++
		query += fmt.Sprintf(` AND o.channel = $%d`, conditionCount)
		args = append(args, *filter.Channel)
	}
	if filter.CreatedFrom != nil {
		conditionCount++
		query += fmt.Sprintf(` AND o.created_at >= $%d`, conditionCount)
		args = append(args, *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		conditionCount++
		query += fmt.Sprintf(` AND o.created_at < $%d`, conditionCount)
		args = append(args, *filter.CreatedTo)
	}

	query += ` ORDER BY o.created_at DESC`

	conditionCount++
	query += fmt.Sprintf(` LIMIT $%d`, conditionCount)
	args = append(args, filter.Limit)
	if filter.Offset > 0 {
		conditionCount++
		query += fmt.Sprintf(` OFFSET $%d`, conditionCount)
		args = append(args, filter.Offset)
	}

	return r.list(ctx, query, args...)
}

// ListStalePending returns pending orders of every tenant created before the cut-off, oldest first.
func (r *orderRepo) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.status = $1 AND o.created_at < $2
		ORDER BY o.created_at
		LIMIT $3
	`
	return r.list(ctx, query, models.OrderPending, createdBefore, limit)
}

func (r *orderRepo) list(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromDB(err, "order")
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "order")
		}
		orders = append(orders, o)
	}
	return orders, apperr.FromDB(rows.Err(), "order")
}

func (r *orderRepo) TransitionStatus(ctx context.Context, t OrderTransition) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		return transitionOrder(ctx, tx, t)
	})
}

// transitionOrder moves an order from t.From to t.To with a conditional update. If another request
// moved the order first, no row matches and the step is a state conflict.
func transitionOrder(ctx context.Context, q database.DB, t OrderTransition) error {
	tag, err := q.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3 AND status = $4
	`, t.To, t.TenantID, t.OrderID, t.From)
	if err != nil {
		return apperr.FromDB(err, "order")
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.CodeStateConflict, "order is no longer %s", t.From)
	}

	from := t.From
	if err := insertOrderEvent(ctx, q, t.TenantID, t.OrderID, &from, t.To, t.ActorID, t.Note); err != nil {
		return err
	}

	if !t.Restock {
		return nil
	}

	rows, err := q.Query(ctx, `SELECT product_id, quantity FROM order_items WHERE tenant_id = $1 AND order_id = $2`, t.TenantID, t.OrderID)
	if err != nil {
		return apperr.FromDB(err, "order item")
	}
	type line struct {
		productID uuid.UUID
		quantity  int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return apperr.FromDB(err, "order item")
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apperr.FromDB(err, "order item")
	}

	orderID := t.OrderID
	for _, l := range lines {
		_, err := applyStockDelta(ctx, q, StockChange{
			TenantID: t.TenantID, StoreID: t.StoreID, ProductID: l.productID,
			Delta: l.quantity, Reason: models.StockCancel, ReferenceID: &orderID, ActorID: t.ActorID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func insertOrderEvent(ctx context.Context, q database.DB, tenantID, orderID uuid.UUID, from *models.OrderStatus, to models.OrderStatus, actorID *uuid.UUID, note *string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO order_events (id, tenant_id, order_id, from_status, to_status, actor_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, uuid.New(), tenantID, orderID, from, to, actorID, note)
	return apperr.FromDB(err, "order event")
}

func (r *orderRepo) UpdatePaymentStatus(ctx context.Context, tenantID, id uuid.UUID, status models.PaymentStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE tenant_id = $2 AND id = $3`, status, tenantID, id)
	if err != nil {
		return apperr.FromDB(err, "order")
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "order not found")
	}
	return nil
}

func (r *orderRepo) ListEvents(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.OrderEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, order_id, from_status, to_status, actor_id, note, created_at
		FROM order_events
		WHERE tenant_id = $1 AND order_id = $2
		ORDER BY created_at
	`, tenantID, orderID)
	if err != nil {
		return nil, apperr.FromDB(err, "order event")
	}
	defer rows.Close()

	var events []*models.OrderEvent
	for rows.Next() {
		e := &models.OrderEvent{}
		if err := rows.Scan(&e.ID, &e.TenantID, &e.OrderID, &e.FromStatus, &e.ToStatus, &e.ActorID, &e.Note, &e.CreatedAt); err != nil {
			return nil, apperr.FromDB(err, "order event")
		}
		events = append(events, e)
	}
	return events, apperr.FromDB(rows.Err(), "order event")
}
