package handlers

import (
	"context"
	"io"
	"time"

	"warehousepos/internal/jobs/background"
	"warehousepos/internal/models"
	"warehousepos/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockDeliveryService struct{ mock.Mock }

func assignmentOrNil(args mock.Arguments) (*models.DeliveryAssignment, error) {
	a, _ := args.Get(0).(*models.DeliveryAssignment)
	return a, args.Error(1)
}

func (m *mockDeliveryService) Assign(ctx context.Context, tenantID uuid.UUID, req *services.AssignDeliveryRequest) (*models.DeliveryAssignment, error) {
	return assignmentOrNil(m.Called(ctx, tenantID, req))
}

func (m *mockDeliveryService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryAssignment, error) {
	return assignmentOrNil(m.Called(ctx, tenantID, id))
}

func (m *mockDeliveryService) Accept(ctx context.Context, tenantID, riderID, id uuid.UUID) (*models.DeliveryAssignment, error) {
	return assignmentOrNil(m.Called(ctx, tenantID, riderID, id))
}

func (m *mockDeliveryService) Reject(ctx context.Context, tenantID, riderID, id uuid.UUID, reason string) (*models.DeliveryAssignment, error) {
	return assignmentOrNil(m.Called(ctx, tenantID, riderID, id, reason))
}

func (m *mockDeliveryService) Advance(ctx context.Context, tenantID, riderID, id uuid.UUID) (*models.DeliveryAssignment, error) {
	return assignmentOrNil(m.Called(ctx, tenantID, riderID, id))
}

func (m *mockDeliveryService) Fail(ctx context.Context, tenantID, riderID, id uuid.UUID, reason string) (*models.DeliveryAssignment, error) {
	return assignmentOrNil(m.Called(ctx, tenantID, riderID, id, reason))
}

func (m *mockDeliveryService) Cancel(ctx context.Context, tenantID, id uuid.UUID, reason string) (*models.DeliveryAssignment, error) {
	return assignmentOrNil(m.Called(ctx, tenantID, id, reason))
}

func (m *mockDeliveryService) ListForRider(ctx context.Context, tenantID, riderID uuid.UUID, limit int) ([]*models.DeliveryAssignment, error) {
	args := m.Called(ctx, tenantID, riderID, limit)
	out, _ := args.Get(0).([]*models.DeliveryAssignment)
	return out, args.Error(1)
}

func (m *mockDeliveryService) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.DeliveryAssignment, error) {
	args := m.Called(ctx, tenantID, orderID)
	out, _ := args.Get(0).([]*models.DeliveryAssignment)
	return out, args.Error(1)
}

func (m *mockDeliveryService) UploadProof(ctx context.Context, tenantID, riderID, id uuid.UUID, upload services.ImageUpload) (*services.DeliveryProof, error) {
	args := m.Called(ctx, tenantID, riderID, id, upload)
	out, _ := args.Get(0).(*services.DeliveryProof)
	return out, args.Error(1)
}

type mockRiderService struct{ mock.Mock }

func riderOrNil(args mock.Arguments) (*models.Rider, error) {
	r, _ := args.Get(0).(*models.Rider)
	return r, args.Error(1)
}

func (m *mockRiderService) Create(ctx context.Context, tenantID uuid.UUID, req *services.RiderRequest) (*models.Rider, error) {
	return riderOrNil(m.Called(ctx, tenantID, req))
}

func (m *mockRiderService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Rider, error) {
	return riderOrNil(m.Called(ctx, tenantID, id))
}

func (m *mockRiderService) Me(ctx context.Context, tenantID, userID uuid.UUID) (*models.Rider, error) {
	return riderOrNil(m.Called(ctx, tenantID, userID))
}

func (m *mockRiderService) List(ctx context.Context, tenantID uuid.UUID, status *models.RiderStatus) ([]*models.Rider, error) {
	args := m.Called(ctx, tenantID, status)
	out, _ := args.Get(0).([]*models.Rider)
	return out, args.Error(1)
}

func (m *mockRiderService) Update(ctx context.Context, tenantID, id uuid.UUID, req *services.RiderRequest) (*models.Rider, error) {
	return riderOrNil(m.Called(ctx, tenantID, id, req))
}

func (m *mockRiderService) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status models.RiderStatus) (*models.Rider, error) {
	return riderOrNil(m.Called(ctx, tenantID, id, status))
}

func (m *mockRiderService) UpdateLocation(ctx context.Context, tenantID, id uuid.UUID, lat, lng float64) (*models.RiderLocation, error) {
	args := m.Called(ctx, tenantID, id, lat, lng)
	out, _ := args.Get(0).(*models.RiderLocation)
	return out, args.Error(1)
}

func (m *mockRiderService) Location(ctx context.Context, tenantID, id uuid.UUID) (*models.RiderLocation, error) {
	args := m.Called(ctx, tenantID, id)
	out, _ := args.Get(0).(*models.RiderLocation)
	return out, args.Error(1)
}

func (m *mockRiderService) Nearby(ctx context.Context, tenantID, storeID uuid.UUID, radiusKm float64) ([]models.NearbyRider, error) {
	args := m.Called(ctx, tenantID, storeID, radiusKm)
	out, _ := args.Get(0).([]models.NearbyRider)
	return out, args.Error(1)
}

func (m *mockRiderService) SweepStale(ctx context.Context, seenBefore time.Time) (int, error) {
	args := m.Called(ctx, seenBefore)
	return args.Int(0), args.Error(1)
}

type mockPortalService struct{ mock.Mock }

func (m *mockPortalService) Store(ctx context.Context, slug string) (*services.PortalStore, error) {
	args := m.Called(ctx, slug)
	out, _ := args.Get(0).(*services.PortalStore)
	return out, args.Error(1)
}

func (m *mockPortalService) Products(ctx context.Context, slug string, filter models.ProductSearchFilter) ([]services.PortalProduct, error) {
	args := m.Called(ctx, slug, filter)
	out, _ := args.Get(0).([]services.PortalProduct)
	return out, args.Error(1)
}

func (m *mockPortalService) Quote(ctx context.Context, slug string, req *services.QuoteRequest) (*services.Quote, error) {
	args := m.Called(ctx, slug, req)
	out, _ := args.Get(0).(*services.Quote)
	return out, args.Error(1)
}

func (m *mockPortalService) Checkout(ctx context.Context, slug, idempotencyKey string, req *services.CheckoutRequest) (*models.Order, error) {
	args := m.Called(ctx, slug, idempotencyKey, req)
	out, _ := args.Get(0).(*models.Order)
	return out, args.Error(1)
}

func (m *mockPortalService) Track(ctx context.Context, slug string, orderID uuid.UUID, phone string) (*models.Order, error) {
	args := m.Called(ctx, slug, orderID, phone)
	out, _ := args.Get(0).(*models.Order)
	return out, args.Error(1)
}

type mockPaymentService struct{ mock.Mock }

func (m *mockPaymentService) Record(ctx context.Context, tenantID uuid.UUID, req *services.RecordPaymentRequest) (*models.Payment, error) {
	args := m.Called(ctx, tenantID, req)
	out, _ := args.Get(0).(*models.Payment)
	return out, args.Error(1)
}

func (m *mockPaymentService) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.Payment, error) {
	args := m.Called(ctx, tenantID, orderID)
	out, _ := args.Get(0).([]*models.Payment)
	return out, args.Error(1)
}

func (m *mockPaymentService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Payment, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	out, _ := args.Get(0).([]*models.Payment)
	return out, args.Error(1)
}

func (m *mockPaymentService) Refund(ctx context.Context, tenantID, paymentID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, tenantID, paymentID)
	out, _ := args.Get(0).(*models.Payment)
	return out, args.Error(1)
}

func (m *mockPaymentService) HandleWebhook(ctx context.Context, signature string, body []byte) error {
	return m.Called(ctx, signature, body).Error(0)
}

type mockOTPSender struct{ mock.Mock }

func (m *mockOTPSender) SendOTP(ctx context.Context, phone, otp string) error {
	return m.Called(ctx, phone, otp).Error(0)
}

type mockAnalytics struct{ mock.Mock }

func (m *mockAnalytics) ResolveRange(from, to *time.Time) (models.DateRange, error) {
	args := m.Called(from, to)
	return args.Get(0).(models.DateRange), args.Error(1)
}

func (m *mockAnalytics) Dashboard(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID, r models.DateRange) (*models.Dashboard, error) {
	args := m.Called(ctx, tenantID, storeID, r)
	out, _ := args.Get(0).(*models.Dashboard)
	return out, args.Error(1)
}

func (m *mockAnalytics) Refresh(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID, r models.DateRange) (*models.Dashboard, error) {
	args := m.Called(ctx, tenantID, storeID, r)
	out, _ := args.Get(0).(*models.Dashboard)
	return out, args.Error(1)
}

func (m *mockAnalytics) Platform(ctx context.Context, r models.DateRange) (*models.PlatformDashboard, error) {
	args := m.Called(ctx, r)
	out, _ := args.Get(0).(*models.PlatformDashboard)
	return out, args.Error(1)
}

func (m *mockAnalytics) ExportOrders(ctx context.Context, w io.Writer, tenantID uuid.UUID, storeID *uuid.UUID, r models.DateRange) error {
	return m.Called(ctx, w, tenantID, storeID, r).Error(0)
}

type mockJobRunner struct{ mock.Mock }

func (m *mockJobRunner) Status() []background.JobStatus {
	return m.Called().Get(0).([]background.JobStatus)
}

func (m *mockJobRunner) RunNow(name string) error {
	return m.Called(name).Error(0)
}
