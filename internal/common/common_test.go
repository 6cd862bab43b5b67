package common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		raw     string
		country models.Country
		want    string
	}{
		{"0241234567", models.Ghana, "+233241234567"},
		{"024 123 4567", models.Ghana, "+233241234567"},
		{"233241234567", models.Ghana, "+233241234567"},
		{"+233241234567", models.Nigeria, "+233241234567"},
		{"08031234567", models.Nigeria, "+2348031234567"},
		{"002348031234567", models.Ghana, "+2348031234567"},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.raw, tc.country)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	for _, bad := range []string{"", "abc", "+0123", "12"} {
		_, err := NormalizePhone(bad, models.Ghana)
		assert.True(t, apperr.Is(err, apperr.CodeValidation), bad)
	}
}

func TestPrincipalContext(t *testing.T) {
	tenantID := uuid.New()
	p := &models.Principal{UserID: uuid.New(), TenantID: &tenantID, Role: models.RoleCashier}

	ctx := WithPrincipal(context.Background(), p)

	got, ok := GetPrincipal(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)

	tid, ok := GetTenantIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, tenantID, tid)

	uid, ok := GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, p.UserID, uid)
	assert.Equal(t, &p.UserID, ActorID(ctx))

	assert.Nil(t, ActorID(context.Background()))
}

func TestValidatePaginationParams(t *testing.T) {
	l, o, err := ValidatePaginationParams(0, -5)
	require.NoError(t, err)
	assert.Equal(t, 50, l)
	assert.Equal(t, 0, o)

	l, _, err = ValidatePaginationParams(10000, 0)
	require.NoError(t, err)
	assert.Equal(t, 500, l)

	_, _, err = ValidatePaginationParams(10, 2000000)
	assert.Error(t, err)
}

func TestValidateDateRange(t *testing.T) {
	now := time.Now()
	assert.NoError(t, ValidateDateRange(now.AddDate(0, -1, 0), now))
	assert.Error(t, ValidateDateRange(now, now.AddDate(0, 0, -1)))
	assert.Error(t, ValidateDateRange(now.AddDate(-2, 0, 0), now))
}

func TestSanitizeSearchQuery(t *testing.T) {
	assert.Equal(t, "panadol", SanitizeSearchQuery("  %pana_dol% "))
	assert.Equal(t, "", SanitizeSearchQuery("   "))
	assert.Len(t, SanitizeSearchQuery(strings.Repeat("a", 300)), 100)
}

type createThing struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
	Kind     string `json:"kind" validate:"oneof=pos portal"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	err := ValidateStruct(&createThing{Kind: "fax"})
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeValidation, ae.Code())
	assert.Equal(t, "is required", ae.Details()["name"])
	assert.Equal(t, "must be 1 or more", ae.Details()["quantity"])
	assert.Equal(t, "must be one of: pos, portal", ae.Details()["kind"])
}

func TestSendErrorMapsCodes(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, SendError(c, apperr.New(apperr.CodeStateConflict, "cannot cancel a delivered order")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"STATE_CONFLICT"`)
	assert.Contains(t, rec.Body.String(), "cannot cancel a delivered order")

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, SendError(c, errors.New("pq: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.NotNil(t, c.Get(ErrorContextKey))
}
