package handlers

import (
	"strconv"
	"strings"
	"time"

	"warehousepos/internal/common"
	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// principal returns the authenticated caller. Protected routes always have one.
func principal(c echo.Context) (*models.Principal, error) {
	p, ok := common.GetPrincipal(c.Request().Context())
	if !ok {
		return nil, apperr.New(apperr.CodeUnauthorized, "User not authenticated")
	}
	return p, nil
}

// tenantID is the tenant every query of the request is scoped to. It only ever comes from the token.
func tenantID(c echo.Context) (uuid.UUID, error) {
	id, ok := common.GetTenantIDFromContext(c.Request().Context())
	if !ok || id == uuid.Nil {
		return uuid.Nil, apperr.New(apperr.CodeForbidden, "token is not bound to a tenant")
	}
	return id, nil
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	return common.ValidateUUID(c.Param(name), name)
}

// queryUUID parses an optional id from the query string.
func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	id, err := common.ValidateUUID(raw, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func queryBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Newf(apperr.CodeValidation, "%s must be true or false", name)
	}
	return &b, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates (taken as UTC midnight).
func queryTime(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperr.Newf(apperr.CodeValidation, "%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", name)
	}
	return &t, nil
}

// pagination reads limit and offset, applying the shared bounds.
func pagination(c echo.Context) (int, int, error) {
	limit, offset := 0, 0
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, apperr.New(apperr.CodeValidation, "limit must be a number")
		}
		limit = v
	}
	if raw := c.QueryParam("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, apperr.New(apperr.CodeValidation, "offset must be a number")
		}
		offset = v
	}
	return common.ValidatePaginationParams(limit, offset)
}

// listResponse wraps collection results.
type listResponse[T any] struct {
	Data   []T `json:"data"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

func list[T any](items []T, limit, offset int) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Data: items, Limit: limit, Offset: offset}
}

// reasonRequest is the body of state changes that take an optional note.
type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func bindReason(c echo.Context) (string, error) {
	var req reasonRequest
	if c.Request().ContentLength == 0 {
		return "", nil
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		return "", err
	}
	return strings.TrimSpace(req.Reason), nil
}

func invalidQuery(name string) error {
	return apperr.Newf(apperr.CodeValidation, "invalid %s", name).
		WithDetails(map[string]string{name: "is not a known value"})
}
