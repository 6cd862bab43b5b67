package middleware

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warehousepos/internal/common"
	"warehousepos/internal/config"
	"warehousepos/internal/models"
	"warehousepos/internal/services"
	"warehousepos/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-entropy"

func signHS256(t *testing.T, claims JWTCustomClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func validClaims(role models.Role, tenantID *uuid.UUID) JWTCustomClaims {
	c := JWTCustomClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	if tenantID != nil {
		c.TenantID = tenantID.String()
	}
	return c
}

// newServer mounts a handler that echoes the principal behind JWT and, optionally, RBAC.
func newServer(t *testing.T, verifier *TokenVerifier, perm models.Permission) *echo.Echo {
	t.Helper()
	e := echo.New()
	g := e.Group("/v1", JWTMiddleware(verifier, logger.Nop()))
	if perm != "" {
		g.Use(NewRBACMiddleware(services.NewRBACService()).RequirePermission(perm))
	}
	g.GET("/whoami", func(c echo.Context) error {
		p, ok := common.GetPrincipal(c.Request().Context())
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, p)
	})
	return e
}

func hsVerifier(t *testing.T) *TokenVerifier {
	t.Helper()
	v, err := NewTokenVerifier(context.Background(), config.AuthConfig{JWTSecret: testSecret, Audience: "authenticated"}, logger.Nop())
	require.NoError(t, err)
	return v
}

func do(e *echo.Echo, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddlewareSetsPrincipal(t *testing.T) {
	tenantID, storeID := uuid.New(), uuid.New()
	claims := validClaims(models.RoleCashier, &tenantID)
	claims.StoreID = storeID.String()
	claims.Phone = "+233241234567"

	rec := do(newServer(t, hsVerifier(t), ""), "/v1/whoami", signHS256(t, claims))

	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Principal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, claims.Subject, p.UserID.String())
	assert.Equal(t, tenantID, *p.TenantID)
	assert.Equal(t, storeID, *p.StoreID)
	assert.Equal(t, models.RoleCashier, p.Role)
}

func TestJWTMiddlewareRejects(t *testing.T) {
	tenantID := uuid.New()
	e := newServer(t, hsVerifier(t), "")

	expired := validClaims(models.RoleOwner, &tenantID)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongAudience := validClaims(models.RoleOwner, &tenantID)
	wrongAudience.Audience = jwt.ClaimStrings{"anon"}

	noTenant := validClaims(models.RoleOwner, nil)

	badRole := validClaims("superuser", &tenantID)

	otherKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(models.RoleOwner, &tenantID)).
		SignedString([]byte("another-secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"missing":        "",
		"garbage":        "not.a.jwt",
		"expired":        signHS256(t, expired),
		"wrong audience": signHS256(t, wrongAudience),
		"no tenant":      signHS256(t, noTenant),
		"unknown role":   signHS256(t, badRole),
		"wrong key":      otherKey,
	}
	for name, token := range cases {
		rec := do(e, "/v1/whoami", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`, name)
	}
}

func TestJWTMiddlewareAcceptsPlatformAdminWithoutTenant(t *testing.T) {
	rec := do(newServer(t, hsVerifier(t), models.PermPlatformRead), "/v1/whoami",
		signHS256(t, validClaims(models.RolePlatformAdmin, nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddlewareReadsQueryToken(t *testing.T) {
	tenantID := uuid.New()
	token := signHS256(t, validClaims(models.RoleRider, &tenantID))

	rec := do(newServer(t, hsVerifier(t), ""), "/v1/whoami?access_token="+token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddlewareVerifiesAgainstJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := map[string]any{"keys": []map[string]string{{
		"kty": "RSA",
		"kid": "k1",
		"alg": "RS256",
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	defer srv.Close()

	verifier, err := NewTokenVerifier(context.Background(), config.AuthConfig{
		JWKSURL:  srv.URL,
		Issuer:   "https://auth.example.com",
		Audience: "authenticated",
	}, logger.Nop())
	require.NoError(t, err)
	defer verifier.Close()

	tenantID := uuid.New()
	claims := validClaims(models.RoleManager, &tenantID)
	claims.Issuer = "https://auth.example.com"
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(key)
	require.NoError(t, err)

	e := newServer(t, verifier, models.PermDispatch)
	assert.Equal(t, http.StatusOK, do(e, "/v1/whoami", signed).Code)

	// an HS256 token must not pass once the verifier is JWKS-backed
	assert.Equal(t, http.StatusUnauthorized, do(e, "/v1/whoami", signHS256(t, claims)).Code)
}

func TestRequirePermission(t *testing.T) {
	tenantID := uuid.New()
	e := newServer(t, hsVerifier(t), models.PermStockWrite)

	rec := do(e, "/v1/whoami", signHS256(t, validClaims(models.RoleCashier, &tenantID)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)

	rec = do(e, "/v1/whoami", signHS256(t, validClaims(models.RoleManager, &tenantID)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyPermission(t *testing.T) {
	tenantID := uuid.New()
	e := echo.New()
	g := e.Group("/v1", JWTMiddleware(hsVerifier(t), logger.Nop()),
		NewRBACMiddleware(services.NewRBACService()).RequireAnyPermission(models.PermOrdersRead, models.PermRide))
	g.GET("/events", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for _, role := range []models.Role{models.RoleCashier, models.RoleManager, models.RoleRider} {
		rec := do(e, "/v1/events", signHS256(t, validClaims(role, &tenantID)))
		assert.Equal(t, http.StatusNoContent, rec.Code, role)
	}

	rec := do(e, "/v1/events", signHS256(t, validClaims(models.RoleCustomer, &tenantID)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)
}

func TestRequireTenant(t *testing.T) {
	e := echo.New()
	g := e.Group("/v1", JWTMiddleware(hsVerifier(t), logger.Nop()), NewRBACMiddleware(services.NewRBACService()).RequireTenant())
	g.GET("/stores", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := do(e, "/v1/stores", signHS256(t, validClaims(models.RolePlatformAdmin, nil)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPIVersionResolver(t *testing.T) {
	vm := NewVersionMiddleware()
	e := echo.New()
	e.Use(vm.APIVersionResolver())
	v1 := vm.VersionRoute(e, "v1")
	v1.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, c.Get(APIVersionKey).(string)) })
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, c.Get(APIVersionKey).(string)) })

	rec := do(e, "/v1/ping", "")
	assert.Equal(t, "v1", rec.Body.String())
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	assert.Equal(t, "v1", do(e, "/health", "").Body.String())

	rec = do(e, "/v7/ping", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "supported_versions")
}

func TestDeprecatedVersionHeaders(t *testing.T) {
	vm := NewVersionMiddleware()
	sunset := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	vm.Deprecate("v1", &sunset)

	e := echo.New()
	vm.VersionRoute(e, "v1").GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := do(e, "/v1/ping", "")
	assert.Equal(t, "true", rec.Header().Get("X-API-Deprecated"))
	assert.Contains(t, rec.Header().Get("Warning"), "2027-01-31")
}

func TestExtractVersionFromPath(t *testing.T) {
	cases := map[string]string{
		"/v1":          "v1",
		"/v1/products": "v1",
		"/v12/x":       "v12",
		"/v0/x":        "",
		"/video":       "",
		"/health":      "",
		"/v":           "",
	}
	for path, want := range cases {
		assert.Equal(t, want, extractVersionFromPath(path), path)
	}
}

func TestAuditRequestLogsWithRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: buf})
	audit := NewAuditMiddleware(log)

	e := echo.New()
	e.Use(echoMiddleware.RequestID(), audit.RequestContext(), audit.AuditRequest())
	e.POST("/v1/orders", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })
	e.GET("/v1/orders", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/v1/broken", func(c echo.Context) error { return echo.NewHTTPError(http.StatusBadGateway, "upstream") })

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	e.ServeHTTP(httptest.NewRecorder(), req)
	assert.Zero(t, buf.Len(), "successful reads log at debug")

	req = httptest.NewRequest(http.MethodPost, "/v1/orders", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	e.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "/v1/orders", entry["route"])
	assert.EqualValues(t, http.StatusCreated, entry["status"])
	assert.Equal(t, "info", entry["level"])

	buf.Reset()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/broken", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
}
