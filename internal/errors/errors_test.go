package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tpoisot/IntroScientificComputing/domain/core"
)

func TestFromDomain_Codes(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{core.NewParameterError("e", 2), CodeInvalidParameter, http.StatusBadRequest},
		{core.NewDimensionError(2, 3), CodeDimensionMismatch, http.StatusBadRequest},
		{core.NewConfigError("samples", "must be positive"), CodeConfigInvalid, http.StatusBadRequest},
		{fmt.Errorf("summarise: %w", core.ErrEmptyPosterior), CodeEmptyPosterior, http.StatusUnprocessableEntity},
		{core.NewNotFoundError("run", "x"), CodeNotFound, http.StatusNotFound},
		{fmt.Errorf("run: %w", context.Canceled), CodeCanceled, StatusClientClosedRequest},
		{fmt.Errorf("run: %w", context.DeadlineExceeded), CodeTimeout, http.StatusServiceUnavailable},
		{stderrors.New("boom"), CodeInternalError, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		err := FromDomain(tc.err)
		assert.Equal(t, tc.code, GetCode(err), tc.err.Error())
		assert.Equal(t, tc.status, HTTPStatus(GetCode(err)))
		assert.ErrorIs(t, err, tc.err)
	}
}

func TestWrap_KeepsCode(t *testing.T) {
	base := ConfigInvalid("ABC_SAMPLES must be positive")
	wrapped := Wrap(base, "failed to load configuration")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.Contains(t, wrapped.Error(), "failed to load configuration")
	assert.Contains(t, wrapped.Error(), "ABC_SAMPLES")

	domain := Wrapf(core.NewParameterError("m", -1), "trial %d", 7)
	assert.Equal(t, CodeInvalidParameter, GetCode(domain))
	assert.ErrorIs(t, domain, core.ErrInvalidParameter)

	assert.Nil(t, Wrap(nil, "x"))
	assert.Nil(t, FromDomain(nil))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeDatabaseError, stderrors.New("connection refused"))
	assert.Equal(t, CodeDatabaseError, GetCode(err))
	assert.Equal(t, "connection refused", err.Error())
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, IsCancellation(CodeCanceled))
	assert.True(t, IsCancellation(CodeTimeout))
	assert.False(t, IsCancellation(CodeInternalError))
}
