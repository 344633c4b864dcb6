package pkgerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("returns code from direct DomainError", func(t *testing.T) {
		err := New(CodeNotFound, "request missing")
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})

	t.Run("returns code through wrapping", func(t *testing.T) {
		inner := New(CodeInvalidState, "already responded")
		err := fmt.Errorf("accept consent: %w", inner)
		assert.Equal(t, CodeInvalidState, CodeOf(err))
	})

	t.Run("defaults to internal for plain errors", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidState, http.StatusConflict},
		{CodeAlreadyActive, http.StatusConflict},
		{CodeAlreadyMember, http.StatusConflict},
		{CodeNoLedgerKey, http.StatusPreconditionFailed},
		{CodeLedgerUnavailable, http.StatusServiceUnavailable},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ToHTTPStatus(New(tc.code, "x")), string(tc.code))
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := Wrap(errors.New("pq: conflict"), CodeAlreadyActive, "duplicate pending request")
	assert.True(t, errors.Is(err, New(CodeAlreadyActive, "")))
	assert.False(t, errors.Is(err, New(CodeNotFound, "")))
}
