package common

import (
	"context"
	"strings"
	"time"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	TenantIDKey  contextKey = "tenant_id"
	PrincipalKey contextKey = "principal"
)

// WithPrincipal stores the caller and its ids on ctx.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	ctx = context.WithValue(ctx, PrincipalKey, p)
	ctx = context.WithValue(ctx, UserIDKey, p.UserID)
	if p.TenantID != nil {
		ctx = context.WithValue(ctx, TenantIDKey, *p.TenantID)
	}
	return ctx
}

// GetPrincipal extracts the authenticated caller from the request context
func GetPrincipal(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*models.Principal)
	return p, ok && p != nil
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetTenantIDFromContext extracts the tenant ID from the request context
func GetTenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(uuid.UUID)
	return tenantID, ok
}

// ActorID returns a pointer to the caller's user id, or nil for anonymous callers.
func ActorID(ctx context.Context) *uuid.UUID {
	if id, ok := GetUserIDFromContext(ctx); ok {
		return &id
	}
	return nil
}

// ValidateUUID parses a path or body id.
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, apperr.Newf(apperr.CodeValidation, "%s is required", fieldName)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.CodeValidation, "%s must be a valid UUID", fieldName)
	}
	return id, nil
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	if offset > 1000000 {
		return 0, 0, apperr.New(apperr.CodeValidation, "offset cannot exceed 1,000,000")
	}
	return limit, offset, nil
}

// ValidateDateRange validates date ranges to prevent abuse
func ValidateDateRange(startDate, endDate time.Time) error {
	if endDate.Before(startDate) {
		return apperr.New(apperr.CodeValidation, "end date cannot be before start date")
	}
	if endDate.Sub(startDate) > 366*24*time.Hour {
		return apperr.New(apperr.CodeValidation, "date range cannot exceed one year")
	}
	return nil
}

// SanitizeSearchQuery strips LIKE wildcards and bounds the length.
func SanitizeSearchQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	query = strings.ReplaceAll(query, "%", "")
	query = strings.ReplaceAll(query, "_", "")
	if len(query) > 100 {
		query = query[:100]
	}
	return strings.TrimSpace(query)
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
