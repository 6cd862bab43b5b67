package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

var statusByCode = map[Code]int{
	CodeValidation:    http.StatusBadRequest,
	CodeUnauthorized:  http.StatusUnauthorized,
	CodeForbidden:     http.StatusForbidden,
	CodeNotFound:      http.StatusNotFound,
	CodeConflict:      http.StatusConflict,
	CodeStateConflict: http.StatusUnprocessableEntity,
	CodeRateLimit:     http.StatusTooManyRequests,
	CodeInternal:      http.StatusInternalServerError,
	CodeDependency:    http.StatusServiceUnavailable,
}

// HTTPStatus returns the response status for a code. Unknown codes map to 500.
func HTTPStatus(code Code) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is an application error with a stable code and a message safe to show clients.
type Error struct {
	code    Code
	message string
	details map[string]string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) WithDetails(details map[string]string) *Error {
	cp := *e
	cp.details = details
	return &cp
}

func (e *Error) Code() Code                 { return e.code }
func (e *Error) Message() string            { return e.message }
func (e *Error) Details() map[string]string { return e.details }
func (e *Error) Unwrap() error              { return e.cause }
func (e *Error) HTTPStatus() int            { return HTTPStatus(e.code) }

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// As finds the first *Error in the chain.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// CodeOf returns the code of err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	if e := As(err); e != nil {
		return e.code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	e := As(err)
	return e != nil && e.code == code
}

// FromDB translates driver errors into coded errors. Nil stays nil.
func FromDB(err error, resource string) error {
	if err == nil {
		return nil
	}
	if As(err) != nil {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(CodeNotFound, err, resource+" not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return Wrap(CodeConflict, err, resource+" already exists")
		case "23503":
			return Wrap(CodeValidation, err, resource+" references a missing record")
		case "23514":
			return Wrap(CodeValidation, err, resource+" violates a constraint")
		}
	}
	return Wrap(CodeInternal, err, "database error")
}
