package services

import (
	"context"
	"io"
	"time"

	"warehousepos/internal/models"
	"warehousepos/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock repositories

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TenantStatus, reason *string) error {
	args := m.Called(ctx, id, from, to, reason)
	return args.Error(0)
}

func (m *MockTenantRepository) List(ctx context.Context, status *models.TenantStatus, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) CountByStatus(ctx context.Context) (map[models.TenantStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.TenantStatus]int), args.Error(1)
}

type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) Create(ctx context.Context, store *models.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *MockStoreRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Store, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

func (m *MockStoreRepository) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

func (m *MockStoreRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Store, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Store), args.Error(1)
}

func (m *MockStoreRepository) Update(ctx context.Context, store *models.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *MockStoreRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Category, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Category, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Category), args.Error(1)
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*models.Product), args.Error(1)
}

func (m *MockProductRepository) Search(ctx context.Context, tenantID uuid.UUID, filter models.ProductSearchFilter) ([]*models.Product, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockProductImageRepository struct {
	mock.Mock
}

func (m *MockProductImageRepository) Create(ctx context.Context, image *models.ProductImage) error {
	args := m.Called(ctx, image)
	return args.Error(0)
}

func (m *MockProductImageRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ProductImage, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductImage), args.Error(1)
}

func (m *MockProductImageRepository) ListByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]models.ProductImage, error) {
	args := m.Called(ctx, tenantID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProductImage), args.Error(1)
}

func (m *MockProductImageRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockStockRepository struct {
	mock.Mock
}

func (m *MockStockRepository) Get(ctx context.Context, tenantID, storeID, productID uuid.UUID) (*models.StockLevel, error) {
	args := m.Called(ctx, tenantID, storeID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockLevel), args.Error(1)
}

func (m *MockStockRepository) ListByStore(ctx context.Context, tenantID, storeID uuid.UUID, limit, offset int) ([]*models.StockLevel, error) {
	args := m.Called(ctx, tenantID, storeID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StockLevel), args.Error(1)
}

func (m *MockStockRepository) SetLevel(ctx context.Context, level *models.StockLevel, actorID *uuid.UUID) error {
	args := m.Called(ctx, level, actorID)
	return args.Error(0)
}

func (m *MockStockRepository) Adjust(ctx context.Context, change repositories.StockChange) (*models.StockLevel, error) {
	args := m.Called(ctx, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockLevel), args.Error(1)
}

func (m *MockStockRepository) ListMovements(ctx context.Context, tenantID, storeID, productID uuid.UUID, limit int) ([]*models.StockMovement, error) {
	args := m.Called(ctx, tenantID, storeID, productID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StockMovement), args.Error(1)
}

func (m *MockStockRepository) LowStock(ctx context.Context, tenantID, storeID uuid.UUID) ([]*models.StockLevel, error) {
	args := m.Called(ctx, tenantID, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StockLevel), args.Error(1)
}

func (m *MockStockRepository) CountLow(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID, storeID)
	return args.Int(0), args.Error(1)
}

func (m *MockStockRepository) AvailableForStore(ctx context.Context, tenantID, storeID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	args := m.Called(ctx, tenantID, storeID, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int), args.Error(1)
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Customer, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*models.Customer, error) {
	args := m.Called(ctx, tenantID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Search(ctx context.Context, tenantID uuid.UUID, query string, limit, offset int) ([]*models.Customer, error) {
	args := m.Called(ctx, tenantID, query, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) UpsertByPhone(ctx context.Context, customer *models.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

type MockZoneRepository struct {
	mock.Mock
}

func (m *MockZoneRepository) Create(ctx context.Context, zone *models.DeliveryZone) error {
	args := m.Called(ctx, zone)
	return args.Error(0)
}

func (m *MockZoneRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryZone, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryZone), args.Error(1)
}

func (m *MockZoneRepository) ListByStore(ctx context.Context, tenantID, storeID uuid.UUID, activeOnly bool) ([]*models.DeliveryZone, error) {
	args := m.Called(ctx, tenantID, storeID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DeliveryZone), args.Error(1)
}

func (m *MockZoneRepository) Update(ctx context.Context, zone *models.DeliveryZone) error {
	args := m.Called(ctx, zone)
	return args.Error(0)
}

func (m *MockZoneRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) Track(ctx context.Context, storeID, id uuid.UUID, phone string) (*models.Order, error) {
	args := m.Called(ctx, storeID, id, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) Search(ctx context.Context, tenantID uuid.UUID, filter models.OrderSearchFilter) ([]*models.Order, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockOrderRepository) TransitionStatus(ctx context.Context, t repositories.OrderTransition) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdatePaymentStatus(ctx context.Context, tenantID, id uuid.UUID, status models.PaymentStatus) error {
	args := m.Called(ctx, tenantID, id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) ListEvents(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.OrderEvent, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OrderEvent), args.Error(1)
}

func (m *MockOrderRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Order, error) {
	args := m.Called(ctx, createdBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *models.Payment) (models.PaymentStatus, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(models.PaymentStatus), args.Error(1)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Payment, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, from, to models.PaymentState) (models.PaymentStatus, error) {
	args := m.Called(ctx, tenantID, id, from, to)
	return args.Get(0).(models.PaymentStatus), args.Error(1)
}

type MockRiderRepository struct {
	mock.Mock
}

func (m *MockRiderRepository) Create(ctx context.Context, rider *models.Rider) error {
	args := m.Called(ctx, rider)
	return args.Error(0)
}

func (m *MockRiderRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Rider, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rider), args.Error(1)
}

func (m *MockRiderRepository) GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.Rider, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rider), args.Error(1)
}

func (m *MockRiderRepository) GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*models.Rider, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*models.Rider), args.Error(1)
}

func (m *MockRiderRepository) List(ctx context.Context, tenantID uuid.UUID, status *models.RiderStatus) ([]*models.Rider, error) {
	args := m.Called(ctx, tenantID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Rider), args.Error(1)
}

func (m *MockRiderRepository) Update(ctx context.Context, rider *models.Rider) error {
	args := m.Called(ctx, rider)
	return args.Error(0)
}

func (m *MockRiderRepository) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.RiderStatus) error {
	args := m.Called(ctx, tenantID, id, status)
	return args.Error(0)
}

func (m *MockRiderRepository) Touch(ctx context.Context, tenantID, id uuid.UUID, seenAt time.Time) error {
	args := m.Called(ctx, tenantID, id, seenAt)
	return args.Error(0)
}

func (m *MockRiderRepository) MarkStaleOffline(ctx context.Context, seenBefore time.Time) ([]*models.Rider, error) {
	args := m.Called(ctx, seenBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Rider), args.Error(1)
}

type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) Create(ctx context.Context, a *models.DeliveryAssignment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockDeliveryRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryAssignment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryAssignment), args.Error(1)
}

func (m *MockDeliveryRepository) GetActiveByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*models.DeliveryAssignment, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryAssignment), args.Error(1)
}

func (m *MockDeliveryRepository) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.DeliveryAssignment, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DeliveryAssignment), args.Error(1)
}

func (m *MockDeliveryRepository) ListForRider(ctx context.Context, tenantID, riderID uuid.UUID, limit int) ([]*models.DeliveryAssignment, error) {
	args := m.Called(ctx, tenantID, riderID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DeliveryAssignment), args.Error(1)
}

func (m *MockDeliveryRepository) Transition(ctx context.Context, t repositories.DeliveryTransition) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockDeliveryRepository) SetProof(ctx context.Context, tenantID, id uuid.UUID, key string) error {
	args := m.Called(ctx, tenantID, id, key)
	return args.Error(0)
}

// Mock infrastructure

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, tenantID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCacheService) SetProduct(ctx context.Context, tenantID uuid.UUID, product *models.Product, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, product, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteProduct(ctx context.Context, tenantID, productID uuid.UUID) error {
	args := m.Called(ctx, tenantID, productID)
	return args.Error(0)
}

func (m *MockCacheService) GetStore(ctx context.Context, slug string) (*models.Store, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

func (m *MockCacheService) SetStore(ctx context.Context, store *models.Store, ttl time.Duration) error {
	args := m.Called(ctx, store, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteStore(ctx context.Context, slug string) error {
	args := m.Called(ctx, slug)
	return args.Error(0)
}

func (m *MockCacheService) GetDashboard(ctx context.Context, tenantID uuid.UUID, key string) (*models.Dashboard, error) {
	args := m.Called(ctx, tenantID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dashboard), args.Error(1)
}

func (m *MockCacheService) SetDashboard(ctx context.Context, tenantID uuid.UUID, key string, dashboard *models.Dashboard, ttl time.Duration) error {
	args := m.Called(ctx, tenantID, key, dashboard, ttl)
	return args.Error(0)
}

func (m *MockCacheService) InvalidateTenantCache(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockRiderLocationStore struct {
	mock.Mock
}

func (m *MockRiderLocationStore) Save(ctx context.Context, tenantID uuid.UUID, loc models.RiderLocation) error {
	args := m.Called(ctx, tenantID, loc)
	return args.Error(0)
}

func (m *MockRiderLocationStore) Get(ctx context.Context, tenantID, riderID uuid.UUID) (*models.RiderLocation, error) {
	args := m.Called(ctx, tenantID, riderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RiderLocation), args.Error(1)
}

func (m *MockRiderLocationStore) Nearby(ctx context.Context, tenantID uuid.UUID, lat, lng, radiusKm float64, limit int) ([]models.RiderLocation, error) {
	args := m.Called(ctx, tenantID, lat, lng, radiusKm, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RiderLocation), args.Error(1)
}

func (m *MockRiderLocationStore) Remove(ctx context.Context, tenantID, riderID uuid.UUID) error {
	args := m.Called(ctx, tenantID, riderID)
	return args.Error(0)
}

type MockMinioService struct {
	mock.Mock
}

func (m *MockMinioService) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, objectName, reader, size, contentType)
	return args.Error(0)
}

func (m *MockMinioService) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockMinioService) Delete(ctx context.Context, objectName string) error {
	args := m.Called(ctx, objectName)
	return args.Error(0)
}

func (m *MockMinioService) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) Send(ctx context.Context, to, message string) error {
	args := m.Called(ctx, to, message)
	return args.Error(0)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) OrderStatusChanged(ctx context.Context, order *models.Order) {
	m.Called(ctx, order)
}

func (m *MockNotificationService) LowStock(ctx context.Context, tenant *models.Tenant, store *models.Store, levels []*models.StockLevel) int {
	args := m.Called(ctx, tenant, store, levels)
	return args.Int(0)
}
