package middleware

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"warehousepos/internal/common"
	"warehousepos/pkg/apperr"

	"github.com/labstack/echo/v4"
)

const APIVersionKey = "api_version"

// APIVersion represents API version information
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active", "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// VersionMiddleware provides API versioning functionality
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
	defaultVersion    string
}

func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		supportedVersions: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active", Message: "Current stable API version"},
		},
		defaultVersion: "v1",
	}
}

// VersionHeader adds version information to response headers
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-API-Version", version)
			if ver, ok := vm.supportedVersions[version]; ok && ver.Status == "deprecated" {
				h.Set("X-API-Deprecated", "true")
				if ver.SunsetDate != nil {
					h.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
					h.Set("Warning", `299 warehousepos "This API version is deprecated and will be removed on `+ver.SunsetDate.Format("2006-01-02")+`"`)
				}
			}
			return next(c)
		}
	}
}

// VersionRoute creates a version-specific route group
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string, m ...echo.MiddlewareFunc) *echo.Group {
	group := e.Group("/"+version, vm.VersionHeader(version))
	group.Use(m...)
	return group
}

// APIVersionResolver rejects unknown /vN prefixes and records the resolved version on the context.
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := extractVersionFromPath(c.Request().URL.Path)
			if version == "" {
				c.Set(APIVersionKey, vm.defaultVersion)
				return next(c)
			}
			if _, ok := vm.supportedVersions[version]; !ok {
				return common.SendError(c, apperr.New(apperr.CodeNotFound, "Unsupported API version").
					WithDetails(map[string]string{"supported_versions": strings.Join(vm.SupportedVersions(), ", ")}))
			}
			c.Set(APIVersionKey, version)
			return next(c)
		}
	}
}

// extractVersionFromPath returns "v2" for "/v2/...", and "" when the path carries no version.
func extractVersionFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/v")
	if !ok {
		return ""
	}
	end := strings.IndexByte(rest, '/')
	if end < 0 {
		end = len(rest)
	}
	num := rest[:end]
	if num == "" || num[0] == '0' {
		return ""
	}
	for _, r := range num {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return "v" + num
}

// SupportedVersions lists the versions still served, sorted.
func (vm *VersionMiddleware) SupportedVersions() []string {
	versions := make([]string, 0, len(vm.supportedVersions))
	for version := range vm.supportedVersions {
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions
}

// Deprecate marks a version deprecated with an optional sunset date.
func (vm *VersionMiddleware) Deprecate(version string, sunset *time.Time) {
	if ver, ok := vm.supportedVersions[version]; ok {
		ver.Status = "deprecated"
		ver.SunsetDate = sunset
		vm.supportedVersions[version] = ver
	}
}

// Info serves the version table.
func (vm *VersionMiddleware) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"current":  vm.defaultVersion,
		"versions": vm.supportedVersions,
	})
}
