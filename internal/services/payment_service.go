package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"

	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/internal/repositories"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentService interface {
	// Record stores a payment taken against an order. Provider payments start pending until the webhook settles them.
	Record(ctx context.Context, tenantID uuid.UUID, req *RecordPaymentRequest) (*models.Payment, error)
	ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.Payment, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Payment, error)
	Refund(ctx context.Context, tenantID, paymentID uuid.UUID) (*models.Payment, error)
	// HandleWebhook verifies and applies a payment provider callback.
	HandleWebhook(ctx context.Context, signature string, body []byte) error
}

type RecordPaymentRequest struct {
	OrderID   uuid.UUID            `json:"order_id" validate:"required"`
	Method    models.PaymentMethod `json:"method" validate:"required"`
	Amount    decimal.Decimal      `json:"amount"`
	Reference *string              `json:"reference" validate:"omitempty,max=120"`
	Provider  *string              `json:"provider" validate:"omitempty,max=40"`
}

// providerEvent is the subset of the provider webhook body the service reads.
type providerEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		// Amount is in minor units (pesewas, kobo).
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

const (
	providerChargeSuccess = "charge.success"
	providerChargeFailed  = "charge.failed"
)

type paymentService struct {
	paymentRepo   repositories.PaymentRepository
	orderRepo     repositories.OrderRepository
	publisher     EventPublisher
	webhookSecret string
	log           *logger.Logger
}

func NewPaymentService(paymentRepo repositories.PaymentRepository, orderRepo repositories.OrderRepository, publisher EventPublisher, webhookSecret string, log *logger.Logger) PaymentService {
	return &paymentService{
		paymentRepo:   paymentRepo,
		orderRepo:     orderRepo,
		publisher:     publisher,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (s *paymentService) Record(ctx context.Context, tenantID uuid.UUID, req *RecordPaymentRequest) (*models.Payment, error) {
	if !req.Method.IsValid() {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown payment method %q", req.Method)
	}
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperr.New(apperr.CodeValidation, "amount must be positive")
	}

	order, err := s.orderRepo.GetByID(ctx, tenantID, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderCancelled {
		return nil, apperr.New(apperr.CodeStateConflict, "order is cancelled")
	}

	existing, err := s.paymentRepo.ListByOrder(ctx, tenantID, order.ID)
	if err != nil {
		return nil, err
	}
	settled := decimal.Zero
	for _, p := range existing {
		if p.Status == models.PaymentSucceeded || p.Status == models.PaymentPending {
			settled = settled.Add(p.Amount)
		}
	}
	if balance := order.Total.Sub(settled); amount.GreaterThan(balance) {
		return nil, apperr.Newf(apperr.CodeValidation, "amount exceeds the outstanding balance of %s", balance.StringFixed(2)).
			WithDetails(map[string]string{"balance": balance.StringFixed(2)})
	}

	payment := &models.Payment{
		ID:        uuid.New(),
		TenantID:  tenantID,
		OrderID:   order.ID,
		Method:    req.Method,
		Amount:    amount,
		Reference: trimmed(req.Reference),
		Provider:  trimmed(req.Provider),
		Status:    models.PaymentSucceeded,
		CreatedBy: common.ActorID(ctx),
	}
	if payment.Provider != nil {
		if payment.Reference == nil {
			return nil, apperr.New(apperr.CodeValidation, "reference is required for provider payments")
		}
		payment.Status = models.PaymentPending
	}

	status, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		return nil, err
	}
	s.recorded(ctx, payment, status)
	return payment, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *paymentService) recorded(ctx context.Context, payment *models.Payment, orderStatus models.PaymentStatus) {
	ctx = s.log.WithFields(ctx, map[string]any{
		"payment_id": payment.ID.String(),
		"order_id":   payment.OrderID.String(),
		"status":     payment.Status,
	})
	s.log.Info(ctx, "payment recorded")
	publish(ctx, s.publisher, s.log, models.Event{
		Type:     models.EventPaymentRecorded,
		TenantID: payment.TenantID,
		OrderID:  &payment.OrderID,
		Status:   string(orderStatus),
		Data:     payment,
	})
}

func (s *paymentService) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.Payment, error) {
	if _, err := s.orderRepo.GetByID(ctx, tenantID, orderID); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByOrder(ctx, tenantID, orderID)
}

func (s *paymentService) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Payment, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.paymentRepo.List(ctx, tenantID, limit, offset)
}

func (s *paymentService) Refund(ctx context.Context, tenantID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentSucceeded {
		return nil, apperr.Newf(apperr.CodeStateConflict, "only succeeded payments can be refunded, this one is %s", payment.Status)
	}
	status, err := s.paymentRepo.UpdateStatus(ctx, tenantID, paymentID, models.PaymentSucceeded, models.PaymentReversed)
	if err != nil {
		return nil, err
	}
	payment.Status = models.PaymentReversed
	s.recorded(ctx, payment, status)
	return payment, nil
}

// verifySignature checks the hex HMAC-SHA512 of the raw body.
func verifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

func (s *paymentService) HandleWebhook(ctx context.Context, signature string, body []byte) error {
	if !verifySignature(s.webhookSecret, body, signature) {
		return apperr.New(apperr.CodeUnauthorized, "invalid webhook signature")
	}

	var event providerEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid webhook body")
	}

	var to models.PaymentState
	switch event.Event {
	case providerChargeSuccess:
		to = models.PaymentSucceeded
	case providerChargeFailed:
		to = models.PaymentFailed
	default:
		s.log.Debug(s.log.WithField(ctx, "event", event.Event), "ignoring payment webhook event")
		return nil
	}
	if event.Data.Reference == "" {
		return apperr.New(apperr.CodeValidation, "webhook has no reference")
	}

	ctx = s.log.WithField(ctx, "reference", event.Data.Reference)
	payment, err := s.paymentRepo.GetByReference(ctx, event.Data.Reference)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			s.log.Warn(ctx, "payment webhook for unknown reference")
			return nil
		}
		return err
	}
	if payment.Status != models.PaymentPending {
		s.log.Info(ctx, "payment webhook already applied")
		return nil
	}
	if to == models.PaymentSucceeded && !payment.Amount.Mul(decimal.NewFromInt(100)).Equal(decimal.NewFromInt(event.Data.Amount)) {
		return apperr.Newf(apperr.CodeValidation, "webhook amount %d does not match payment amount %s",
			event.Data.Amount, payment.Amount.StringFixed(2))
	}

	status, err := s.paymentRepo.UpdateStatus(ctx, payment.TenantID, payment.ID, models.PaymentPending, to)
	if err != nil {
		if apperr.Is(err, apperr.CodeStateConflict) {
			// another delivery of the same webhook won
			return nil
		}
		return err
	}
	payment.Status = to
	s.recorded(ctx, payment, status)
	return nil
}
