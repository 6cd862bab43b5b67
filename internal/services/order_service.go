package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warehousepos/internal/caching"
	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const (
	idempotencyTTL     = 24 * time.Hour
	idempotencyPending = "pending"
)

type OrderService interface {
	// Create records a counter sale. POS orders start confirmed.
	Create(ctx context.Context, tenantID uuid.UUID, req *CreateOrderRequest) (*models.Order, error)
	// Checkout places a portal order. Repeating a request with the same idempotency key returns the first order.
	Checkout(ctx context.Context, store *models.Store, idempotencyKey string, req *CheckoutRequest) (*models.Order, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error)
	Search(ctx context.Context, tenantID uuid.UUID, filter models.OrderSearchFilter) ([]*models.Order, error)
	Advance(ctx context.Context, tenantID, id uuid.UUID, note string) (*models.Order, error)
	Cancel(ctx context.Context, tenantID, id uuid.UUID, reason string) (*models.Order, error)
	History(ctx context.Context, tenantID, id uuid.UUID) ([]*models.OrderEvent, error)
	Track(ctx context.Context, store *models.Store, id uuid.UUID, phone string) (*models.Order, error)
	// ExpireStale cancels pending orders created before the cut-off and restocks them.
	ExpireStale(ctx context.Context, createdBefore time.Time) (int, error)
}

type CreateOrderRequest struct {
	StoreID         uuid.UUID         `json:"store_id" validate:"required"`
	CustomerID      *uuid.UUID        `json:"customer_id"`
	Customer        *CustomerRequest  `json:"customer"`
	Lines           []CartLineRequest `json:"lines" validate:"required,min=1,max=100,dive"`
	Discount        decimal.Decimal   `json:"discount"`
	Fulfilment      models.Fulfilment `json:"fulfilment"`
	DeliveryAddress *string           `json:"delivery_address"`
	DeliveryLat     *float64          `json:"delivery_lat" validate:"omitempty,latitude"`
	DeliveryLng     *float64          `json:"delivery_lng" validate:"omitempty,longitude"`
	Notes           *string           `json:"notes" validate:"omitempty,max=500"`
}

type CheckoutRequest struct {
	Customer        CustomerRequest   `json:"customer" validate:"required"`
	Lines           []CartLineRequest `json:"lines" validate:"required,min=1,max=100,dive"`
	Fulfilment      models.Fulfilment `json:"fulfilment" validate:"required"`
	DeliveryAddress *string           `json:"delivery_address"`
	DeliveryLat     *float64          `json:"delivery_lat" validate:"omitempty,latitude"`
	DeliveryLng     *float64          `json:"delivery_lng" validate:"omitempty,longitude"`
	Notes           *string           `json:"notes" validate:"omitempty,max=500"`
}

type orderService struct {
	orderRepo       repositories.OrderRepository
	storeRepo       repositories.StoreRepository
	customerRepo    repositories.CustomerRepository
	deliveryRepo    repositories.DeliveryRepository
	tenantService   TenantService
	customerService CustomerService
	quoteService    QuoteService
	notifier        NotificationService
	cacheService    caching.CacheService
	publisher       EventPublisher
	log             *logger.Logger
}

func NewOrderService(
	orderRepo repositories.OrderRepository,
	storeRepo repositories.StoreRepository,
	customerRepo repositories.CustomerRepository,
	deliveryRepo repositories.DeliveryRepository,
	tenantService TenantService,
	customerService CustomerService,
	quoteService QuoteService,
	notifier NotificationService,
	cacheService caching.CacheService,
	publisher EventPublisher,
	log *logger.Logger,
) OrderService {
	return &orderService{
		orderRepo:       orderRepo,
		storeRepo:       storeRepo,
		customerRepo:    customerRepo,
		deliveryRepo:    deliveryRepo,
		tenantService:   tenantService,
		customerService: customerService,
		quoteService:    quoteService,
		notifier:        notifier,
		cacheService:    cacheService,
		publisher:       publisher,
		log:             log,
	}
}

func deliveryDetailsValid(f models.Fulfilment, address *string) error {
	if f == models.FulfilmentDelivery && strings.TrimSpace(common.SafeString(address)) == "" {
		return apperr.New(apperr.CodeValidation, "delivery_address is required for delivery")
	}
	return nil
}

func buildOrder(store *models.Store, q *Quote) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		TenantID:      store.TenantID,
		StoreID:       store.ID,
		Fulfilment:    q.Fulfilment,
		PaymentStatus: models.DerivePaymentStatus(q.Total, decimal.Zero, false),
		Subtotal:      q.Subtotal,
		Discount:      q.Discount,
		DeliveryFee:   q.DeliveryFee,
		Tax:           q.Tax,
		Total:         q.Total,
		ZoneID:        q.ZoneID,
		Items:         make([]models.OrderItem, len(q.Lines)),
	}
	for i, l := range q.Lines {
		order.Items[i] = models.OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		}
	}
	return order
}

func (s *orderService) Create(ctx context.Context, tenantID uuid.UUID, req *CreateOrderRequest) (*models.Order, error) {
	if req.Fulfilment == "" {
		req.Fulfilment = models.FulfilmentPickup
	}
	if err := deliveryDetailsValid(req.Fulfilment, req.DeliveryAddress); err != nil {
		return nil, err
	}
	if _, err := s.tenantService.RequireActive(ctx, tenantID); err != nil {
		return nil, err
	}
	store, err := s.storeRepo.GetByID(ctx, tenantID, req.StoreID)
	if err != nil {
		return nil, err
	}

	var customerID *uuid.UUID
	switch {
	case req.CustomerID != nil:
		c, err := s.customerRepo.GetByID(ctx, tenantID, *req.CustomerID)
		if err != nil {
			return nil, err
		}
		customerID = &c.ID
	case req.Customer != nil:
		c, err := s.customerService.Upsert(ctx, tenantID, req.Customer)
		if err != nil {
			return nil, err
		}
		customerID = &c.ID
	}

	quote, err := s.quoteService.Quote(ctx, store, &QuoteRequest{
		Lines:       req.Lines,
		Discount:    req.Discount,
		Fulfilment:  req.Fulfilment,
		DeliveryLat: req.DeliveryLat,
		DeliveryLng: req.DeliveryLng,
	})
	if err != nil {
		return nil, err
	}

	order := buildOrder(store, quote)
	order.CustomerID = customerID
	order.Channel = models.ChannelPOS
	order.Status = models.OrderConfirmed
	order.DeliveryAddress = req.DeliveryAddress
	order.DeliveryLat = req.DeliveryLat
	order.DeliveryLng = req.DeliveryLng
	order.Notes = req.Notes
	order.CreatedBy = common.ActorID(ctx)

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	s.created(ctx, order)
	return order, nil
}

func idempotencyKey(storeID uuid.UUID, key string) string {
	return fmt.Sprintf("idem:checkout:%s:%s", storeID, key)
}

func (s *orderService) Checkout(ctx context.Context, store *models.Store, key string, req *CheckoutRequest) (*models.Order, error) {
	if err := deliveryDetailsValid(req.Fulfilment, req.DeliveryAddress); err != nil {
		return nil, err
	}
	if _, err := s.tenantService.RequireActive(ctx, store.TenantID); err != nil {
		return nil, err
	}

	key = strings.TrimSpace(key)
	if key != "" {
		existing, err := s.claimIdempotencyKey(ctx, store, key)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	order, err := s.checkout(ctx, store, req)
	if key != "" {
		redisKey := idempotencyKey(store.ID, key)
		if err != nil {
			if delErr := s.cacheService.Delete(ctx, redisKey); delErr != nil {
				s.log.Error(ctx, "release idempotency key", delErr)
			}
		} else if setErr := s.cacheService.SetString(ctx, redisKey, order.ID.String(), idempotencyTTL); setErr != nil {
			s.log.Error(ctx, "record idempotency key", setErr)
		}
	}
	return order, err
}

// claimIdempotencyKey returns the order a key already produced, or nil when the caller now owns the key.
func (s *orderService) claimIdempotencyKey(ctx context.Context, store *models.Store, key string) (*models.Order, error) {
	redisKey := idempotencyKey(store.ID, key)
	claimed, err := s.cacheService.SetNX(ctx, redisKey, idempotencyPending, idempotencyTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "idempotency store unavailable")
	}
	if claimed {
		return nil, nil
	}

	value, err := s.cacheService.GetString(ctx, redisKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "idempotency store unavailable")
	}
	orderID, parseErr := uuid.Parse(value)
	if parseErr != nil {
		return nil, apperr.New(apperr.CodeConflict, "a checkout with this Idempotency-Key is already in progress")
	}
	return s.orderRepo.GetByID(ctx, store.TenantID, orderID)
}

func (s *orderService) checkout(ctx context.Context, store *models.Store, req *CheckoutRequest) (*models.Order, error) {
	customer, err := s.customerService.Upsert(ctx, store.TenantID, &req.Customer)
	if err != nil {
		return nil, err
	}
	quote, err := s.quoteService.Quote(ctx, store, &QuoteRequest{
		Lines:       req.Lines,
		Discount:    decimal.Zero,
		Fulfilment:  req.Fulfilment,
		DeliveryLat: req.DeliveryLat,
		DeliveryLng: req.DeliveryLng,
	})
	if err != nil {
		return nil, err
	}

	order := buildOrder(store, quote)
	order.CustomerID = &customer.ID
	order.Channel = models.ChannelPortal
	order.Status = models.OrderPending
	order.DeliveryAddress = req.DeliveryAddress
	order.DeliveryLat = req.DeliveryLat
	order.DeliveryLng = req.DeliveryLng
	order.Notes = req.Notes

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	s.created(ctx, order)
	return order, nil
}

func (s *orderService) created(ctx context.Context, order *models.Order) {
	ctx = s.log.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"channel":      order.Channel,
	})
	s.log.Info(ctx, "order created")

	publish(ctx, s.publisher, s.log, models.Event{
		Type:     models.EventOrderCreated,
		TenantID: order.TenantID,
		OrderID:  &order.ID,
		Status:   string(order.Status),
		Data:     order,
	})
	s.notifier.OrderStatusChanged(ctx, order)
}

func (s *orderService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	return s.orderRepo.GetByID(ctx, tenantID, id)
}

func (s *orderService) Search(ctx context.Context, tenantID uuid.UUID, filter models.OrderSearchFilter) ([]*models.Order, error) {
	limit, offset, err := common.ValidatePaginationParams(filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = limit, offset
	filter.Query = common.SanitizeSearchQuery(filter.Query)
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown order status %q", *filter.Status)
	}
	if filter.Channel != nil && !filter.Channel.IsValid() {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown channel %q", *filter.Channel)
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil {
		if err := common.ValidateDateRange(*filter.CreatedFrom, *filter.CreatedTo); err != nil {
			return nil, err
		}
	}
	return s.orderRepo.Search(ctx, tenantID, filter)
}

// hasActiveDelivery reports whether a rider currently holds the order.
func (s *orderService) hasActiveDelivery(ctx context.Context, tenantID, orderID uuid.UUID) (bool, error) {
	_, err := s.deliveryRepo.GetActiveByOrder(ctx, tenantID, orderID)
	switch {
	case err == nil:
		return true, nil
	case apperr.Is(err, apperr.CodeNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *orderService) Advance(ctx context.Context, tenantID, id uuid.UUID, note string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	next, ok := order.Status.Next(order.Fulfilment)
	if !ok {
		return nil, apperr.Newf(apperr.CodeStateConflict, "order is %s and cannot advance", order.Status)
	}
	if order.Fulfilment == models.FulfilmentDelivery && (order.Status == models.OrderReady || !order.Status.CanCancel()) {
		active, err := s.hasActiveDelivery(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, apperr.New(apperr.CodeStateConflict, "order is out with a rider; the rider advances it")
		}
	}
	return s.transition(ctx, order, next, note, false)
}

func (s *orderService) Cancel(ctx context.Context, tenantID, id uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanCancel() {
		return nil, apperr.Newf(apperr.CodeStateConflict, "order is %s and can no longer be cancelled", order.Status)
	}
	active, err := s.hasActiveDelivery(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperr.New(apperr.CodeStateConflict, "cancel the delivery assignment before cancelling the order")
	}
	return s.transition(ctx, order, models.OrderCancelled, reason, true)
}

func (s *orderService) transition(ctx context.Context, order *models.Order, to models.OrderStatus, note string, restock bool) (*models.Order, error) {
	err := s.orderRepo.TransitionStatus(ctx, repositories.OrderTransition{
		TenantID: order.TenantID,
		OrderID:  order.ID,
		StoreID:  order.StoreID,
		From:     order.Status,
		To:       to,
		ActorID:  common.ActorID(ctx),
		Note:     common.StringPtr(note),
		Restock:  restock,
	})
	if err != nil {
		return nil, err
	}
	from := order.Status
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	s.statusChanged(ctx, order, from)
	return order, nil
}

func (s *orderService) statusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) {
	ctx = s.log.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "from": from, "to": order.Status})
	s.log.Info(ctx, "order status changed")

	publish(ctx, s.publisher, s.log, models.Event{
		Type:     models.EventOrderStatus,
		TenantID: order.TenantID,
		OrderID:  &order.ID,
		Status:   string(order.Status),
		Data:     map[string]any{"from": from, "to": order.Status, "order_number": order.OrderNumber},
	})
	s.notifier.OrderStatusChanged(ctx, order)
}

func (s *orderService) History(ctx context.Context, tenantID, id uuid.UUID) ([]*models.OrderEvent, error) {
	if _, err := s.orderRepo.GetByID(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return s.orderRepo.ListEvents(ctx, tenantID, id)
}

func (s *orderService) Track(ctx context.Context, store *models.Store, id uuid.UUID, phone string) (*models.Order, error) {
	tenant, err := s.tenantService.GetByID(ctx, store.TenantID)
	if err != nil {
		return nil, err
	}
	country, _ := models.CountryByCode(tenant.CountryCode)
	normalized, err := common.NormalizePhone(phone, country)
	if err != nil {
		return nil, err
	}
	return s.orderRepo.Track(ctx, store.ID, id, normalized)
}

func (s *orderService) ExpireStale(ctx context.Context, createdBefore time.Time) (int, error) {
	orders, err := s.orderRepo.ListStalePending(ctx, createdBefore, 200)
	if err != nil {
		return 0, err
	}

	var (
		expired int
		errs    error
	)
	for _, o := range orders {
		_, err := s.transition(ctx, o, models.OrderCancelled, "expired: not confirmed in time", true)
		switch {
		case err == nil:
			expired++
		case apperr.Is(err, apperr.CodeStateConflict):
			// confirmed or cancelled since it was listed
		default:
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", o.ID, err))
		}
	}
	return expired, errs
}
