package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warehousepos/internal/common"
	"warehousepos/internal/config"
	"warehousepos/internal/models"
	"warehousepos/pkg/apperr"
	"warehousepos/pkg/logger"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// TokenLookup accepts the usual bearer header and an access_token query parameter for EventSource clients.
const TokenLookup = "header:Authorization:Bearer ,query:access_token"

// JWTCustomClaims are the claims the auth provider puts on access tokens.
type JWTCustomClaims struct {
	TenantID string      `json:"tenant_id,omitempty"`
	StoreID  string      `json:"store_id,omitempty"`
	Role     models.Role `json:"role"`
	Phone    string      `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the request caller.
func (c *JWTCustomClaims) Principal() (*models.Principal, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, errors.New("subject is not a user id")
	}
	if !c.Role.IsValid() {
		return nil, fmt.Errorf("unknown role %q", c.Role)
	}
	p := &models.Principal{UserID: userID, Role: c.Role, Phone: c.Phone}
	if c.TenantID != "" {
		id, err := uuid.Parse(c.TenantID)
		if err != nil {
			return nil, errors.New("tenant_id is not a uuid")
		}
		p.TenantID = &id
	}
	if c.StoreID != "" {
		id, err := uuid.Parse(c.StoreID)
		if err != nil {
			return nil, errors.New("store_id is not a uuid")
		}
		p.StoreID = &id
	}
	if p.TenantID == nil && p.Role != models.RolePlatformAdmin {
		return nil, errors.New("tenant_id is required")
	}
	return p, nil
}

// TokenVerifier checks signatures against the provider JWKS, or the shared secret when no JWKS is configured.
type TokenVerifier struct {
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
	jwks    *keyfunc.JWKS
}

func NewTokenVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) (*TokenVerifier, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired(), jwt.WithLeeway(30 * time.Second)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	v := &TokenVerifier{}
	switch {
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			Ctx:               ctx,
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				log.Error(ctx, "refresh jwks", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("load jwks: %w", err)
		}
		v.jwks = jwks
		v.keyFunc = jwks.Keyfunc
		opts = append(opts, jwt.WithValidMethods([]string{"RS256", "ES256"}))
	case cfg.JWTSecret != "":
		secret := []byte(cfg.JWTSecret)
		v.keyFunc = func(*jwt.Token) (any, error) { return secret, nil }
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	default:
		return nil, errors.New("no token verification key configured")
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

// Parse verifies raw and returns its claims.
func (v *TokenVerifier) Parse(raw string) (*JWTCustomClaims, error) {
	claims := new(JWTCustomClaims)
	if _, err := v.parser.ParseWithClaims(raw, claims, v.keyFunc); err != nil {
		return nil, err
	}
	return claims, nil
}

// Close stops the background JWKS refresh.
func (v *TokenVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// JWTMiddleware authenticates the request and stores the principal on its context.
func JWTMiddleware(verifier *TokenVerifier, log *logger.Logger) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: TokenLookup,
		ParseTokenFunc: func(c echo.Context, auth string) (any, error) {
			claims, err := verifier.Parse(auth)
			if err != nil {
				return nil, err
			}
			principal, err := claims.Principal()
			if err != nil {
				return nil, err
			}

			ctx := common.WithPrincipal(c.Request().Context(), principal)
			ctx = log.WithUserID(ctx, principal.UserID.String())
			if principal.TenantID != nil {
				ctx = log.WithTenantID(ctx, principal.TenantID.String())
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			log.Debug(c.Request().Context(), "rejected token: "+err.Error())
			return common.SendError(c, apperr.New(apperr.CodeUnauthorized, "Invalid or missing token"))
		},
	})
}
