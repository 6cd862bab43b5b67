package sms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"
)

// OTPMessage is the text sent for a verification code.
const OTPMessage = "Your WarehousePOS verification code is %s"

type RateLimiter interface {
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// OTPService delivers verification codes on behalf of the auth provider.
type OTPService struct {
	sender  *Router
	limiter RateLimiter
	limit   int
	window  time.Duration
	log     *logger.Logger
}

func NewOTPService(sender *Router, limiter RateLimiter, limit int, window time.Duration, log *logger.Logger) *OTPService {
	return &OTPService{sender: sender, limiter: limiter, limit: limit, window: window, log: log}
}

// SendOTP sends otp to phone. Every failure is a coded error so the hook can report it.
func (s *OTPService) SendOTP(ctx context.Context, phone, otp string) error {
	if phone == "" || otp == "" {
		return apperr.New(apperr.CodeValidation, "phone and otp are required")
	}
	if _, err := s.sender.SenderFor(phone); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "SMS delivery is not available for this phone number region")
	}

	limited, err := s.limiter.IsRateLimited(ctx, "otp:"+phone, s.limit, s.window)
	if err != nil {
		// limiter errors fail open
		s.log.Error(ctx, "otp rate limiter unavailable", err)
	} else if limited {
		return apperr.New(apperr.CodeRateLimit, "too many verification codes requested, try again later")
	}

	if err := s.sender.Send(ctx, phone, fmt.Sprintf(OTPMessage, otp)); err != nil {
		if errors.Is(err, ErrUnsupportedRegion) {
			return apperr.Wrap(apperr.CodeValidation, err, "SMS delivery is not available for this phone number region")
		}
		return apperr.Wrap(apperr.CodeDependency, err, "failed to send verification code")
	}
	return nil
}
