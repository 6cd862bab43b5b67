package repositories

import (
	"context"
	"errors"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StockChange is one adjustment of a (store, product) quantity.
type StockChange struct {
	TenantID    uuid.UUID
	StoreID     uuid.UUID
	ProductID   uuid.UUID
	Delta       int
	Reason      models.StockReason
	ReferenceID *uuid.UUID
	ActorID     *uuid.UUID
}

type StockRepository interface {
	Get(ctx context.Context, tenantID, storeID, productID uuid.UUID) (*models.StockLevel, error)
	ListByStore(ctx context.Context, tenantID, storeID uuid.UUID, limit, offset int) ([]*models.StockLevel, error)
	SetLevel(ctx context.Context, level *models.StockLevel, actorID *uuid.UUID) error
	Adjust(ctx context.Context, change StockChange) (*models.StockLevel, error)
	ListMovements(ctx context.Context, tenantID, storeID, productID uuid.UUID, limit int) ([]*models.StockMovement, error)
	LowStock(ctx context.Context, tenantID, storeID uuid.UUID) ([]*models.StockLevel, error)
	CountLow(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID) (int, error)
	AvailableForStore(ctx context.Context, tenantID, storeID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type stockRepo struct {
	db database.DB
}

func NewStockRepo(db database.DB) StockRepository {
	return &stockRepo{db: db}
}

const stockColumns = `s.tenant_id, s.store_id, s.product_id, p.name, s.quantity, s.reorder_level, s.updated_at`

func scanStockLevel(row rowScanner) (*models.StockLevel, error) {
	l := &models.StockLevel{}
	if err := row.Scan(&l.TenantID, &l.StoreID, &l.ProductID, &l.ProductName, &l.Quantity, &l.ReorderLevel, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *stockRepo) Get(ctx context.Context, tenantID, storeID, productID uuid.UUID) (*models.StockLevel, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM stock_levels s
		JOIN products p ON p.id = s.product_id
		WHERE s.tenant_id = $1 AND s.store_id = $2 AND s.product_id = $3
	`
	l, err := scanStockLevel(r.db.QueryRow(ctx, query, tenantID, storeID, productID))
	if err != nil {
		return nil, apperr.FromDB(err, "stock level")
	}
	return l, nil
}

func (r *stockRepo) ListByStore(ctx context.Context, tenantID, storeID uuid.UUID, limit, offset int) ([]*models.StockLevel, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM stock_levels s
		JOIN products p ON p.id = s.product_id
		WHERE s.tenant_id = $1 AND s.store_id = $2
		ORDER BY p.name
		LIMIT $3 OFFSET $4
	`
	return r.list(ctx, query, tenantID, storeID, limit, offset)
}

// LowStock returns the items of a store at or below their reorder level.
func (r *stockRepo) LowStock(ctx context.Context, tenantID, storeID uuid.UUID) ([]*models.StockLevel, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM stock_levels s
		JOIN products p ON p.id = s.product_id
		WHERE s.tenant_id = $1 AND s.store_id = $2 AND s.quantity <= s.reorder_level AND p.is_active
		ORDER BY s.quantity ASC, p.name
	`
	return r.list(ctx, query, tenantID, storeID)
}

func (r *stockRepo) list(ctx context.Context, query string, args ...any) ([]*models.StockLevel, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.FromDB(err, "stock level")
	}
	defer rows.Close()

	var levels []*models.StockLevel
	for rows.Next() {
		l, err := scanStockLevel(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "stock level")
		}
		levels = append(levels, l)
	}
	return levels, apperr.FromDB(rows.Err(), "stock level")
}

func (r *stockRepo) CountLow(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM stock_levels s
		JOIN products p ON p.id = s.product_id
		WHERE s.tenant_id = $1 AND ($2::uuid IS NULL OR s.store_id = $2) AND s.quantity <= s.reorder_level AND p.is_active
	`
	var n int
	if err := r.db.QueryRow(ctx, query, tenantID, storeID).Scan(&n); err != nil {
		return 0, apperr.FromDB(err, "stock level")
	}
	return n, nil
}

// SetLevel overwrites quantity and reorder level, recording the difference as a correction movement.
func (r *stockRepo) SetLevel(ctx context.Context, level *models.StockLevel, actorID *uuid.UUID) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var previous int
		err := tx.QueryRow(ctx, `
			SELECT quantity FROM stock_levels
			WHERE tenant_id = $1 AND store_id = $2 AND product_id = $3
			FOR UPDATE
		`, level.TenantID, level.StoreID, level.ProductID).Scan(&previous)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return apperr.FromDB(err, "stock level")
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO stock_levels (tenant_id, store_id, product_id, quantity, reorder_level, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (store_id, product_id)
			DO UPDATE SET quantity = EXCLUDED.quantity, reorder_level = EXCLUDED.reorder_level, updated_at = NOW()
			RETURNING updated_at
		`, level.TenantID, level.StoreID, level.ProductID, level.Quantity, level.ReorderLevel).Scan(&level.UpdatedAt)
		if err != nil {
			return apperr.FromDB(err, "stock level")
		}

		if delta := level.Quantity - previous; delta != 0 {
			return insertMovement(ctx, tx, StockChange{
				TenantID: level.TenantID, StoreID: level.StoreID, ProductID: level.ProductID,
				Delta: delta, Reason: models.StockCorrection, ActorID: actorID,
			})
		}
		return nil
	})
}

func (r *stockRepo) Adjust(ctx context.Context, change StockChange) (*models.StockLevel, error) {
	var level *models.StockLevel
	err := database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		level, err = applyStockDelta(ctx, tx, change)
		return err
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

// applyStockDelta changes one quantity and records the movement. Decrements are a single conditional
// UPDATE so two concurrent sales can never take the quantity below zero.
func applyStockDelta(ctx context.Context, q database.DB, change StockChange) (*models.StockLevel, error) {
	level := &models.StockLevel{TenantID: change.TenantID, StoreID: change.StoreID, ProductID: change.ProductID}

	var err error
	if change.Delta < 0 {
		err = q.QueryRow(ctx, `
			UPDATE stock_levels
			SET quantity = quantity - $1, updated_at = NOW()
			WHERE tenant_id = $2 AND store_id = $3 AND product_id = $4 AND quantity >= $1
			RETURNING quantity, reorder_level, updated_at
		`, -change.Delta, change.TenantID, change.StoreID, change.ProductID).Scan(&level.Quantity, &level.ReorderLevel, &level.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.CodeStateConflict, "insufficient stock").
				WithDetails(map[string]string{"product_id": change.ProductID.String()})
		}
	} else {
		err = q.QueryRow(ctx, `
			INSERT INTO stock_levels (tenant_id, store_id, product_id, quantity, reorder_level, updated_at)
			VALUES ($1, $2, $3, $4, 0, NOW())
			ON CONFLICT (store_id, product_id)
			DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity, updated_at = NOW()
			RETURNING quantity, reorder_level, updated_at
		`, change.TenantID, change.StoreID, change.ProductID, change.Delta).Scan(&level.Quantity, &level.ReorderLevel, &level.UpdatedAt)
	}
	if err != nil {
		return nil, apperr.FromDB(err, "stock level")
	}

	if err := insertMovement(ctx, q, change); err != nil {
		return nil, err
	}
	return level, nil
}

func insertMovement(ctx context.Context, q database.DB, change StockChange) error {
	_, err := q.Exec(ctx, `
		INSERT INTO stock_movements (id, tenant_id, store_id, product_id, delta, reason, reference_id, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`, uuid.New(), change.TenantID, change.StoreID, change.ProductID, change.Delta, change.Reason, change.ReferenceID, change.ActorID)
	return apperr.FromDB(err, "stock movement")
}

func (r *stockRepo) ListMovements(ctx context.Context, tenantID, storeID, productID uuid.UUID, limit int) ([]*models.StockMovement, error) {
	query := `
		SELECT id, tenant_id, store_id, product_id, delta, reason, reference_id, actor_id, created_at
		FROM stock_movements
		WHERE tenant_id = $1 AND store_id = $2 AND product_id = $3
		ORDER BY created_at DESC
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, tenantID, storeID, productID, limit)
	if err != nil {
		return nil, apperr.FromDB(err, "stock movement")
	}
	defer rows.Close()

	var movements []*models.StockMovement
	for rows.Next() {
		m := &models.StockMovement{}
		if err := rows.Scan(&m.ID, &m.TenantID, &m.StoreID, &m.ProductID, &m.Delta, &m.Reason, &m.ReferenceID, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, apperr.FromDB(err, "stock movement")
		}
		movements = append(movements, m)
	}
	return movements, apperr.FromDB(rows.Err(), "stock movement")
}

// AvailableForStore returns the on-hand quantity per product. Products without a stock row are absent.
func (r *stockRepo) AvailableForStore(ctx context.Context, tenantID, storeID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT product_id, quantity FROM stock_levels
		WHERE tenant_id = $1 AND store_id = $2 AND product_id = ANY($3)
	`, tenantID, storeID, productIDs)
	if err != nil {
		return nil, apperr.FromDB(err, "stock level")
	}
	defer rows.Close()

	available := make(map[uuid.UUID]int, len(productIDs))
	for rows.Next() {
		var id uuid.UUID
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, apperr.FromDB(err, "stock level")
		}
		available[id] = qty
	}
	return available, apperr.FromDB(rows.Err(), "stock level")
}
