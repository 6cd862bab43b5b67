package services

import (
	"context"

	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
)

type StockService interface {
	Get(ctx context.Context, tenantID, storeID, productID uuid.UUID) (*models.StockLevel, error)
	ListByStore(ctx context.Context, tenantID, storeID uuid.UUID, limit, offset int) ([]*models.StockLevel, error)
	SetLevel(ctx context.Context, tenantID, storeID, productID uuid.UUID, req *SetStockRequest) (*models.StockLevel, error)
	Adjust(ctx context.Context, tenantID, storeID, productID uuid.UUID, req *AdjustStockRequest) (*models.StockLevel, error)
	Movements(ctx context.Context, tenantID, storeID, productID uuid.UUID, limit int) ([]*models.StockMovement, error)
	LowStock(ctx context.Context, tenantID, storeID uuid.UUID) ([]*models.StockLevel, error)
}

type stockService struct {
	stockRepo   repositories.StockRepository
	storeRepo   repositories.StoreRepository
	productRepo repositories.ProductRepository
	log         *logger.Logger
}

func NewStockService(stockRepo repositories.StockRepository, storeRepo repositories.StoreRepository, productRepo repositories.ProductRepository, log *logger.Logger) StockService {
	return &stockService{stockRepo: stockRepo, storeRepo: storeRepo, productRepo: productRepo, log: log}
}

type SetStockRequest struct {
	Quantity     int `json:"quantity" validate:"gte=0"`
	ReorderLevel int `json:"reorder_level" validate:"gte=0"`
}

type AdjustStockRequest struct {
	Delta  int                `json:"delta" validate:"required"`
	Reason models.StockReason `json:"reason" validate:"required"`
	Note   *string            `json:"note"`
}

// checkAdjustment enforces the sign each reason allows. Order cancellations are internal only.
func checkAdjustment(delta int, reason models.StockReason) error {
	if delta == 0 {
		return apperr.New(apperr.CodeValidation, "delta must not be zero")
	}
	switch reason {
	case models.StockRestock, models.StockReturn:
		if delta < 0 {
			return apperr.Newf(apperr.CodeValidation, "%s must add stock", reason)
		}
	case models.StockSale, models.StockDamage:
		if delta > 0 {
			return apperr.Newf(apperr.CodeValidation, "%s must remove stock", reason)
		}
	case models.StockCorrection:
	default:
		return apperr.Newf(apperr.CodeValidation, "reason %q is not allowed", reason)
	}
	return nil
}

func (s *stockService) checkScope(ctx context.Context, tenantID, storeID, productID uuid.UUID) error {
	if _, err := s.storeRepo.GetByID(ctx, tenantID, storeID); err != nil {
		return err
	}
	if _, err := s.productRepo.GetByID(ctx, tenantID, productID); err != nil {
		return err
	}
	return nil
}

func (s *stockService) Get(ctx context.Context, tenantID, storeID, productID uuid.UUID) (*models.StockLevel, error) {
	return s.stockRepo.Get(ctx, tenantID, storeID, productID)
}

func (s *stockService) ListByStore(ctx context.Context, tenantID, storeID uuid.UUID, limit, offset int) ([]*models.StockLevel, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.stockRepo.ListByStore(ctx, tenantID, storeID, limit, offset)
}

func (s *stockService) SetLevel(ctx context.Context, tenantID, storeID, productID uuid.UUID, req *SetStockRequest) (*models.StockLevel, error) {
	if req.Quantity < 0 || req.ReorderLevel < 0 {
		return nil, apperr.New(apperr.CodeValidation, "quantity and reorder_level cannot be negative")
	}
	if err := s.checkScope(ctx, tenantID, storeID, productID); err != nil {
		return nil, err
	}
	level := &models.StockLevel{
		TenantID:     tenantID,
		StoreID:      storeID,
		ProductID:    productID,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
	}
	if err := s.stockRepo.SetLevel(ctx, level, common.ActorID(ctx)); err != nil {
		return nil, err
	}
	return level, nil
}

func (s *stockService) Adjust(ctx context.Context, tenantID, storeID, productID uuid.UUID, req *AdjustStockRequest) (*models.StockLevel, error) {
	if err := checkAdjustment(req.Delta, req.Reason); err != nil {
		return nil, err
	}
	if err := s.checkScope(ctx, tenantID, storeID, productID); err != nil {
		return nil, err
	}

	level, err := s.stockRepo.Adjust(ctx, repositories.StockChange{
		TenantID:  tenantID,
		StoreID:   storeID,
		ProductID: productID,
		Delta:     req.Delta,
		Reason:    req.Reason,
		ActorID:   common.ActorID(ctx),
	})
	if err != nil {
		return nil, err
	}

	if level.IsLow() {
		ctx = s.log.WithFields(ctx, map[string]any{
			"store_id":   storeID.String(),
			"product_id": productID.String(),
			"quantity":   level.Quantity,
		})
		s.log.Warn(ctx, "stock at or below reorder level")
	}
	return level, nil
}

func (s *stockService) Movements(ctx context.Context, tenantID, storeID, productID uuid.UUID, limit int) ([]*models.StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.stockRepo.ListMovements(ctx, tenantID, storeID, productID, limit)
}

func (s *stockService) LowStock(ctx context.Context, tenantID, storeID uuid.UUID) ([]*models.StockLevel, error) {
	if _, err := s.storeRepo.GetByID(ctx, tenantID, storeID); err != nil {
		return nil, err
	}
	return s.stockRepo.LowStock(ctx, tenantID, storeID)
}
