package services

import (
	"context"
	"time"

	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
)

type DeliveryService interface {
	// Assign hands a ready delivery order to an available rider.
	Assign(ctx context.Context, tenantID uuid.UUID, req *AssignDeliveryRequest) (*models.DeliveryAssignment, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryAssignment, error)
	Accept(ctx context.Context, tenantID, riderID, id uuid.UUID) (*models.DeliveryAssignment, error)
	Reject(ctx context.Context, tenantID, riderID, id uuid.UUID, reason string) (*models.DeliveryAssignment, error)
	// Advance moves the assignment one step forward and mirrors the step onto the order.
	Advance(ctx context.Context, tenantID, riderID, id uuid.UUID) (*models.DeliveryAssignment, error)
	Fail(ctx context.Context, tenantID, riderID, id uuid.UUID, reason string) (*models.DeliveryAssignment, error)
	Cancel(ctx context.Context, tenantID, id uuid.UUID, reason string) (*models.DeliveryAssignment, error)
	ListForRider(ctx context.Context, tenantID, riderID uuid.UUID, limit int) ([]*models.DeliveryAssignment, error)
	ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.DeliveryAssignment, error)
	UploadProof(ctx context.Context, tenantID, riderID, id uuid.UUID, upload ImageUpload) (*DeliveryProof, error)
}

type AssignDeliveryRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	RiderID uuid.UUID `json:"rider_id" validate:"required"`
}

type DeliveryProof struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type deliveryService struct {
	deliveryRepo repositories.DeliveryRepository
	orderRepo    repositories.OrderRepository
	riderRepo    repositories.RiderRepository
	minioService MinioService
	notifier     NotificationService
	publisher    EventPublisher
	presignTTL   time.Duration
	now          func() time.Time
	log          *logger.Logger
}

func NewDeliveryService(
	deliveryRepo repositories.DeliveryRepository,
	orderRepo repositories.OrderRepository,
	riderRepo repositories.RiderRepository,
	minioService MinioService,
	notifier NotificationService,
	publisher EventPublisher,
	presignTTL time.Duration,
	log *logger.Logger,
) DeliveryService {
	return &deliveryService{
		deliveryRepo: deliveryRepo,
		orderRepo:    orderRepo,
		riderRepo:    riderRepo,
		minioService: minioService,
		notifier:     notifier,
		publisher:    publisher,
		presignTTL:   presignTTL,
		now:          time.Now,
		log:          log,
	}
}

func (s *deliveryService) Assign(ctx context.Context, tenantID uuid.UUID, req *AssignDeliveryRequest) (*models.DeliveryAssignment, error) {
	order, err := s.orderRepo.GetByID(ctx, tenantID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Fulfilment != models.FulfilmentDelivery {
		return nil, apperr.New(apperr.CodeValidation, "only delivery orders can be assigned to a rider")
	}
	if order.Status != models.OrderReady {
		return nil, apperr.Newf(apperr.CodeStateConflict, "order is %s, it must be ready before dispatch", order.Status)
	}
	rider, err := s.riderRepo.GetByID(ctx, tenantID, req.RiderID)
	if err != nil {
		return nil, err
	}
	if rider.Status != models.RiderAvailable {
		return nil, apperr.Newf(apperr.CodeStateConflict, "rider is %s", rider.Status)
	}

	assignment := &models.DeliveryAssignment{
		ID:         uuid.New(),
		TenantID:   tenantID,
		OrderID:    order.ID,
		RiderID:    rider.ID,
		Status:     models.DeliveryAssigned,
		AssignedBy: common.ActorID(ctx),
	}
	if err := s.deliveryRepo.Create(ctx, assignment); err != nil {
		return nil, err
	}

	ctx = s.log.WithFields(ctx, map[string]any{"assignment_id": assignment.ID.String(), "rider_id": rider.ID.String()})
	s.log.Info(ctx, "delivery assigned")
	publish(ctx, s.publisher, s.log, models.Event{
		Type:         models.EventDeliveryAssigned,
		TenantID:     tenantID,
		OrderID:      &assignment.OrderID,
		AssignmentID: &assignment.ID,
		RiderID:      &assignment.RiderID,
		Status:       string(assignment.Status),
		Data:         assignment,
	})
	return assignment, nil
}

func (s *deliveryService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.DeliveryAssignment, error) {
	return s.deliveryRepo.GetByID(ctx, tenantID, id)
}

// owned loads an assignment and checks it belongs to the rider.
func (s *deliveryService) owned(ctx context.Context, tenantID, riderID, id uuid.UUID) (*models.DeliveryAssignment, error) {
	a, err := s.deliveryRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if a.RiderID != riderID {
		return nil, apperr.New(apperr.CodeForbidden, "assignment belongs to another rider")
	}
	return a, nil
}

func (s *deliveryService) Accept(ctx context.Context, tenantID, riderID, id uuid.UUID) (*models.DeliveryAssignment, error) {
	a, err := s.owned(ctx, tenantID, riderID, id)
	if err != nil {
		return nil, err
	}
	return a, s.move(ctx, a, models.DeliveryAccepted, "")
}

func (s *deliveryService) Reject(ctx context.Context, tenantID, riderID, id uuid.UUID, reason string) (*models.DeliveryAssignment, error) {
	a, err := s.owned(ctx, tenantID, riderID, id)
	if err != nil {
		return nil, err
	}
	return a, s.move(ctx, a, models.DeliveryRejected, reason)
}

func (s *deliveryService) Advance(ctx context.Context, tenantID, riderID, id uuid.UUID) (*models.DeliveryAssignment, error) {
	a, err := s.owned(ctx, tenantID, riderID, id)
	if err != nil {
		return nil, err
	}
	next, ok := a.Status.Next()
	if !ok || next == models.DeliveryAccepted {
		return nil, apperr.Newf(apperr.CodeStateConflict, "delivery is %s and cannot advance", a.Status)
	}
	return a, s.move(ctx, a, next, "")
}

func (s *deliveryService) Fail(ctx context.Context, tenantID, riderID, id uuid.UUID, reason string) (*models.DeliveryAssignment, error) {
	if reason == "" {
		return nil, apperr.New(apperr.CodeValidation, "reason is required")
	}
	a, err := s.owned(ctx, tenantID, riderID, id)
	if err != nil {
		return nil, err
	}
	return a, s.move(ctx, a, models.DeliveryFailed, reason)
}

func (s *deliveryService) Cancel(ctx context.Context, tenantID, id uuid.UUID, reason string) (*models.DeliveryAssignment, error) {
	a, err := s.deliveryRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return a, s.move(ctx, a, models.DeliveryCancelled, reason)
}

// riderStatusAfter is the rider status an assignment step leaves behind, if it changes.
func riderStatusAfter(to models.DeliveryStatus) *models.RiderStatus {
	var st models.RiderStatus
	switch to {
	case models.DeliveryAccepted:
		st = models.RiderBusy
	case models.DeliveryDelivered, models.DeliveryFailed, models.DeliveryCancelled:
		st = models.RiderAvailable
	default:
		return nil
	}
	return &st
}

// orderStatusAfter is the order status an assignment step leads to. An assignment that ends
// after pickup returns the goods, so the order goes back to ready for another rider.
func orderStatusAfter(to models.DeliveryStatus, current models.OrderStatus) (models.OrderStatus, bool) {
	if next, ok := to.OrderStatus(); ok {
		return next, true
	}
	if (to == models.DeliveryFailed || to == models.DeliveryCancelled) &&
		(current == models.OrderPickedUp || current == models.OrderInTransit) {
		return models.OrderReady, true
	}
	return "", false
}

func (s *deliveryService) move(ctx context.Context, a *models.DeliveryAssignment, to models.DeliveryStatus, reason string) error {
	from := a.Status
	if !from.CanTransitionTo(to) {
		return apperr.Newf(apperr.CodeStateConflict, "delivery cannot go from %s to %s", from, to).
			WithDetails(map[string]string{"status": string(from)})
	}

	order, err := s.orderRepo.GetByID(ctx, a.TenantID, a.OrderID)
	if err != nil {
		return err
	}

	transition := repositories.DeliveryTransition{
		Assignment:  a,
		From:        from,
		RiderStatus: riderStatusAfter(to),
	}
	orderFrom := order.Status
	orderTo, mirrored := orderStatusAfter(to, order.Status)
	if mirrored {
		if orderTo != models.OrderReady && !order.Status.CanTransitionTo(orderTo, order.Fulfilment) {
			return apperr.Newf(apperr.CodeStateConflict, "order is %s and cannot become %s", order.Status, orderTo)
		}
		transition.Order = &repositories.OrderTransition{
			TenantID: a.TenantID,
			OrderID:  order.ID,
			StoreID:  order.StoreID,
			From:     order.Status,
			To:       orderTo,
			ActorID:  common.ActorID(ctx),
			Note:     common.StringPtr("delivery " + string(to)),
		}
	}

	a.Stamp(to, s.now().UTC())
	if reason != "" {
		a.FailureReason = &reason
	}
	if err := s.deliveryRepo.Transition(ctx, transition); err != nil {
		a.Status = from
		return err
	}

	ctx = s.log.WithFields(ctx, map[string]any{"assignment_id": a.ID.String(), "from": from, "to": to})
	s.log.Info(ctx, "delivery status changed")
	publish(ctx, s.publisher, s.log, models.Event{
		Type:         models.EventDeliveryStatus,
		TenantID:     a.TenantID,
		OrderID:      &a.OrderID,
		AssignmentID: &a.ID,
		RiderID:      &a.RiderID,
		Status:       string(to),
		Data:         a,
	})
	if mirrored {
		order.Status = orderTo
		publish(ctx, s.publisher, s.log, models.Event{
			Type:     models.EventOrderStatus,
			TenantID: order.TenantID,
			OrderID:  &order.ID,
			Status:   string(orderTo),
			Data:     map[string]any{"from": orderFrom, "to": orderTo, "order_number": order.OrderNumber},
		})
		s.notifier.OrderStatusChanged(ctx, order)
	}
	return nil
}

func (s *deliveryService) ListForRider(ctx context.Context, tenantID, riderID uuid.UUID, limit int) ([]*models.DeliveryAssignment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.deliveryRepo.ListForRider(ctx, tenantID, riderID, limit)
}

func (s *deliveryService) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.DeliveryAssignment, error) {
	if _, err := s.orderRepo.GetByID(ctx, tenantID, orderID); err != nil {
		return nil, err
	}
	return s.deliveryRepo.ListByOrder(ctx, tenantID, orderID)
}

func (s *deliveryService) UploadProof(ctx context.Context, tenantID, riderID, id uuid.UUID, upload ImageUpload) (*DeliveryProof, error) {
	ext, ok := imageExtension(upload.ContentType)
	if !ok {
		return nil, apperr.New(apperr.CodeValidation, "proof must be a JPEG, PNG or WebP image")
	}
	if upload.Size <= 0 || upload.Size > MaxImageSize {
		return nil, apperr.Newf(apperr.CodeValidation, "proof must be between 1 byte and %d MB", MaxImageSize>>20)
	}
	a, err := s.owned(ctx, tenantID, riderID, id)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case models.DeliveryPickedUp, models.DeliveryInTransit, models.DeliveryDelivered:
	default:
		return nil, apperr.Newf(apperr.CodeStateConflict, "proof cannot be attached to a %s delivery", a.Status)
	}

	key := deliveryProofKey(tenantID, a.ID, ext)
	if err := s.minioService.Upload(ctx, key, upload.Reader, upload.Size, upload.ContentType); err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "object storage unavailable")
	}
	if err := s.deliveryRepo.SetProof(ctx, tenantID, a.ID, key); err != nil {
		if delErr := s.minioService.Delete(ctx, key); delErr != nil {
			s.log.Error(ctx, "remove orphaned proof", delErr)
		}
		return nil, err
	}
	url, err := s.minioService.PresignedURL(ctx, key, s.presignTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDependency, err, "object storage unavailable")
	}
	return &DeliveryProof{Key: key, URL: url}, nil
}
