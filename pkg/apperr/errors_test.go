package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeNotFound:      http.StatusNotFound,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeRateLimit:     http.StatusTooManyRequests,
		Code("BOGUS"):     http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatus(code), code)
	}
}

func TestAsFindsWrappedError(t *testing.T) {
	base := New(CodeNotFound, "order not found")
	wrapped := fmt.Errorf("loading order: %w", base)

	got := As(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, CodeNotFound, got.Code())
	assert.True(t, Is(wrapped, CodeNotFound))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestWithDetailsCopies(t *testing.T) {
	base := New(CodeValidation, "validation failed")
	withDetails := base.WithDetails(map[string]string{"name": "is required"})

	assert.Nil(t, base.Details())
	assert.Equal(t, "is required", withDetails.Details()["name"])
}

func TestFromDB(t *testing.T) {
	assert.Nil(t, FromDB(nil, "product"))

	notFound := FromDB(pgx.ErrNoRows, "product")
	assert.True(t, Is(notFound, CodeNotFound))
	assert.Equal(t, "product not found", As(notFound).Message())

	dup := FromDB(&pgconn.PgError{Code: "23505"}, "store")
	assert.True(t, Is(dup, CodeConflict))

	other := FromDB(errors.New("connection reset"), "store")
	assert.True(t, Is(other, CodeInternal))

	already := New(CodeStateConflict, "nope")
	assert.Same(t, already, FromDB(already, "order"))
}
