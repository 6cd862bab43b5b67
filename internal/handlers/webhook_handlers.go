package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"warehousepos/internal/common"
	"warehousepos/internal/services"
	"warehousepos/internal/sms"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PaymentSignatureHeader carries the provider's HMAC of the raw body.
const PaymentSignatureHeader = "X-Paystack-Signature"

const maxHookBody = 64 << 10

// OTPSender delivers a verification code.
type OTPSender interface {
	SendOTP(ctx context.Context, phone, otp string) error
}

// WebhookHandlers handles callbacks from the payment provider and the auth provider's SMS hook.
type WebhookHandlers struct {
	paymentService services.PaymentService
	otp            OTPSender
	hookSecret     string
	now            func() time.Time
	log            *logger.Logger
}

func NewWebhookHandlers(paymentService services.PaymentService, otp OTPSender, hookSecret string, log *logger.Logger) *WebhookHandlers {
	return &WebhookHandlers{
		paymentService: paymentService,
		otp:            otp,
		hookSecret:     hookSecret,
		now:            time.Now,
		log:            log,
	}
}

func (h *WebhookHandlers) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhooks/payments", h.PaymentWebhook)
	e.POST("/hooks/sms", h.SMSHook)
}

// PaymentWebhook handles POST /webhooks/payments
func (h *WebhookHandlers) PaymentWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxHookBody))
	if err != nil {
		return common.SendClientError(c, "Failed to read request body")
	}
	signature := c.Request().Header.Get(PaymentSignatureHeader)
	if signature == "" {
		return common.SendError(c, apperr.New(apperr.CodeUnauthorized, "Missing webhook signature"))
	}
	if err := h.paymentService.HandleWebhook(c.Request().Context(), signature, body); err != nil {
		return common.SendError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type smsHookRequest struct {
	User struct {
		Phone string `json:"phone"`
	} `json:"user"`
	SMS struct {
		OTP string `json:"otp"`
	} `json:"sms"`
}

type smsHookError struct {
	HTTPCode int    `json:"http_code"`
	Message  string `json:"message"`
}

// SMSHook handles POST /hooks/sms. The auth provider treats any non-200 as an outage,
// so failures are reported in the body with status 200.
func (h *WebhookHandlers) SMSHook(c echo.Context) error {
	ctx := c.Request().Context()
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxHookBody))
	if err != nil {
		return h.hookError(c, apperr.New(apperr.CodeValidation, "failed to read request body"))
	}

	if h.hookSecret != "" {
		if err := sms.VerifyWebhook(h.hookSecret, c.Request().Header, body, h.now()); err != nil {
			h.log.Warn(ctx, "sms hook signature rejected: "+err.Error())
			return h.hookError(c, apperr.Wrap(apperr.CodeUnauthorized, err, "invalid webhook signature"))
		}
	}

	var req smsHookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return h.hookError(c, apperr.Wrap(apperr.CodeValidation, err, "invalid JSON payload"))
	}
	phone := strings.TrimSpace(req.User.Phone)
	if phone != "" && !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}

	if err := h.otp.SendOTP(ctx, phone, strings.TrimSpace(req.SMS.OTP)); err != nil {
		return h.hookError(c, err)
	}
	return c.JSON(http.StatusOK, struct{}{})
}

func (h *WebhookHandlers) hookError(c echo.Context, err error) error {
	c.Set(common.ErrorContextKey, err)
	code, message := http.StatusInternalServerError, "failed to send verification code"
	if ae := apperr.As(err); ae != nil {
		code, message = ae.HTTPStatus(), ae.Message()
	}
	return c.JSON(http.StatusOK, map[string]smsHookError{
		"error": {HTTPCode: code, Message: message},
	})
}
