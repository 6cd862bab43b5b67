package common

import (
	"errors"
	"fmt"
	"net/http"

	"warehousepos/pkg/apperr"

	"github.com/labstack/echo/v4"
)

// ErrorContextKey is where SendError leaves the original error for the request logger.
const ErrorContextKey = "handler_error"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendError writes err using its application code. Uncoded errors become a generic 500.
func SendError(c echo.Context, err error) error {
	c.Set(ErrorContextKey, err)
	ae := apperr.As(err)
	if ae == nil {
		return c.JSON(http.StatusInternalServerError,
			CreateErrorResponse(string(apperr.CodeInternal), "internal server error", nil))
	}
	message := ae.Message()
	if ae.Code() == apperr.CodeInternal {
		message = "internal server error"
	}
	return c.JSON(ae.HTTPStatus(), CreateErrorResponse(string(ae.Code()), message, ae.Details()))
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse(string(apperr.CodeValidation), "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse(string(apperr.CodeValidation), message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse(string(apperr.CodeNotFound), fmt.Sprintf("%s not found", resource), nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse(string(apperr.CodeUnauthorized), "Unauthorized access", nil))
}

// SendForbiddenError sends a forbidden error response
func SendForbiddenError(c echo.Context) error {
	return c.JSON(http.StatusForbidden, CreateErrorResponse(string(apperr.CodeForbidden), "Insufficient permissions", nil))
}

// HTTPErrorHandler renders errors that reach echo (unknown routes, bad methods, body limits, panics)
// in the same envelope the handlers use.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = SendError(c, err)
		return
	}
	code := codeForStatus(he.Code)
	message := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
		message = m
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, CreateErrorResponse(string(code), message, nil))
}

func codeForStatus(status int) apperr.Code {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return apperr.CodeValidation
	case http.StatusUnauthorized:
		return apperr.CodeUnauthorized
	case http.StatusForbidden:
		return apperr.CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperr.CodeNotFound
	case http.StatusConflict:
		return apperr.CodeConflict
	case http.StatusTooManyRequests:
		return apperr.CodeRateLimit
	case http.StatusServiceUnavailable:
		return apperr.CodeDependency
	}
	return apperr.CodeInternal
}
