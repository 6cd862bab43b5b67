package services

import (
	"context"

	"warehousepos/internal/cart"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1,lte=10000"`
}

type QuoteRequest struct {
	Lines       []CartLineRequest `json:"lines" validate:"required,min=1,max=100,dive"`
	Discount    decimal.Decimal   `json:"discount"`
	Fulfilment  models.Fulfilment `json:"fulfilment" validate:"required"`
	DeliveryLat *float64          `json:"delivery_lat" validate:"omitempty,latitude"`
	DeliveryLng *float64          `json:"delivery_lng" validate:"omitempty,longitude"`
}

// Quote is a priced basket for one store.
type Quote struct {
	cart.Totals
	StoreID    uuid.UUID         `json:"store_id"`
	Currency   string            `json:"currency"`
	Fulfilment models.Fulfilment `json:"fulfilment"`
	ZoneID     *uuid.UUID        `json:"zone_id,omitempty"`
	ZoneName   *string           `json:"zone_name,omitempty"`
	// Stock is the on-hand quantity per product at quote time.
	Stock map[uuid.UUID]int `json:"stock"`
}

type QuoteService interface {
	// Quote re-prices the lines from the catalog. Client-side prices are ignored.
	Quote(ctx context.Context, store *models.Store, req *QuoteRequest) (*Quote, error)
}

type quoteService struct {
	productRepo repositories.ProductRepository
	stockRepo   repositories.StockRepository
	zoneService ZoneService
}

func NewQuoteService(productRepo repositories.ProductRepository, stockRepo repositories.StockRepository, zoneService ZoneService) QuoteService {
	return &quoteService{productRepo: productRepo, stockRepo: stockRepo, zoneService: zoneService}
}

func (s *quoteService) Quote(ctx context.Context, store *models.Store, req *QuoteRequest) (*Quote, error) {
	if !req.Fulfilment.IsValid() {
		return nil, apperr.New(apperr.CodeValidation, "fulfilment must be pickup or delivery")
	}
	if len(req.Lines) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "cart is empty")
	}

	lines := make([]cart.Line, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = cart.Line{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	lines = cart.Merge(lines)

	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := s.productRepo.GetByIDs(ctx, store.TenantID, ids)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		p, ok := products[lines[i].ProductID]
		if !ok {
			return nil, apperr.New(apperr.CodeValidation, "product not found").
				WithDetails(map[string]string{"product_id": lines[i].ProductID.String()})
		}
		if !p.IsActive {
			return nil, apperr.Newf(apperr.CodeValidation, "%s is not available", p.Name).
				WithDetails(map[string]string{"product_id": p.ID.String()})
		}
		lines[i].Name = p.Name
		lines[i].UnitPrice = p.Price
	}

	q := &Quote{StoreID: store.ID, Currency: store.Currency, Fulfilment: req.Fulfilment}
	fee := decimal.Zero
	if req.Fulfilment == models.FulfilmentDelivery {
		if req.DeliveryLat == nil || req.DeliveryLng == nil {
			return nil, apperr.New(apperr.CodeValidation, "delivery_lat and delivery_lng are required for delivery")
		}
		zone, err := s.zoneService.Locate(ctx, store.TenantID, store.ID, *req.DeliveryLat, *req.DeliveryLng)
		if err != nil {
			if apperr.Is(err, apperr.CodeNotFound) {
				return nil, apperr.New(apperr.CodeValidation, "this store does not deliver to that location")
			}
			return nil, err
		}
		fee = zone.Fee
		q.ZoneID = &zone.ID
		q.ZoneName = &zone.Name
	}

	totals, err := cart.Compute(lines, req.Discount, fee, store.TaxRate)
	if err != nil {
		return nil, err
	}
	q.Totals = *totals

	stock, err := s.stockRepo.AvailableForStore(ctx, store.TenantID, store.ID, ids)
	if err != nil {
		return nil, err
	}
	q.Stock = stock
	return q, nil
}
