package services

import (
	"context"

	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PortalService is the public storefront surface, addressed by store slug.
type PortalService interface {
	Store(ctx context.Context, slug string) (*PortalStore, error)
	Products(ctx context.Context, slug string, filter models.ProductSearchFilter) ([]PortalProduct, error)
	Quote(ctx context.Context, slug string, req *QuoteRequest) (*Quote, error)
	Checkout(ctx context.Context, slug, idempotencyKey string, req *CheckoutRequest) (*models.Order, error)
	Track(ctx context.Context, slug string, orderID uuid.UUID, phone string) (*models.Order, error)
}

// PortalStore is what shoppers see of a store.
type PortalStore struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Address   *string   `json:"address"`
	Phone     *string   `json:"phone"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Currency  string    `json:"currency"`
	Business  string    `json:"business_name"`
}

type PortalProduct struct {
	*models.Product
	InStock int `json:"in_stock"`
}

type portalService struct {
	storeService  StoreService
	tenantService TenantService
	productRepo   repositories.ProductRepository
	stockRepo     repositories.StockRepository
	quoteService  QuoteService
	orderService  OrderService
}

func NewPortalService(
	storeService StoreService,
	tenantService TenantService,
	productRepo repositories.ProductRepository,
	stockRepo repositories.StockRepository,
	quoteService QuoteService,
	orderService OrderService,
) PortalService {
	return &portalService{
		storeService:  storeService,
		tenantService: tenantService,
		productRepo:   productRepo,
		stockRepo:     stockRepo,
		quoteService:  quoteService,
		orderService:  orderService,
	}
}

// open resolves a store that is online and belongs to a tenant allowed to sell.
// Anything else looks like a missing store to shoppers.
func (s *portalService) open(ctx context.Context, slug string) (*models.Store, *models.Tenant, error) {
	store, err := s.storeService.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if !store.IsOnline {
		return nil, nil, apperr.New(apperr.CodeNotFound, "store not found")
	}
	tenant, err := s.tenantService.RequireActive(ctx, store.TenantID)
	if err != nil {
		if apperr.Is(err, apperr.CodeForbidden) {
			return nil, nil, apperr.New(apperr.CodeNotFound, "store not found")
		}
		return nil, nil, err
	}
	return store, tenant, nil
}

func (s *portalService) Store(ctx context.Context, slug string) (*PortalStore, error) {
	store, tenant, err := s.open(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &PortalStore{
		ID:        store.ID,
		Name:      store.Name,
		Slug:      store.Slug,
		Address:   store.Address,
		Phone:     store.Phone,
		Latitude:  store.Latitude,
		Longitude: store.Longitude,
		Currency:  store.Currency,
		Business:  tenant.Name,
	}, nil
}

func (s *portalService) Products(ctx context.Context, slug string, filter models.ProductSearchFilter) ([]PortalProduct, error) {
	store, _, err := s.open(ctx, slug)
	if err != nil {
		return nil, err
	}
	active := true
	filter.Active = &active
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	products, err := s.productRepo.Search(ctx, store.TenantID, filter)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return []PortalProduct{}, nil
	}

	ids := make([]uuid.UUID, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	stock, err := s.stockRepo.AvailableForStore(ctx, store.TenantID, store.ID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]PortalProduct, len(products))
	for i, p := range products {
		p.Cost = decimal.Zero // cost is not for shoppers
		out[i] = PortalProduct{Product: p, InStock: stock[p.ID]}
	}
	return out, nil
}

func (s *portalService) Quote(ctx context.Context, slug string, req *QuoteRequest) (*Quote, error) {
	store, _, err := s.open(ctx, slug)
	if err != nil {
		return nil, err
	}
	req.Discount = decimal.Zero
	return s.quoteService.Quote(ctx, store, req)
}

func (s *portalService) Checkout(ctx context.Context, slug, idempotencyKey string, req *CheckoutRequest) (*models.Order, error) {
	store, _, err := s.open(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.orderService.Checkout(ctx, store, idempotencyKey, req)
}

func (s *portalService) Track(ctx context.Context, slug string, orderID uuid.UUID, phone string) (*models.Order, error) {
	store, _, err := s.open(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.orderService.Track(ctx, store, orderID, phone)
}
