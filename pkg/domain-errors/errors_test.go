package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsCompareByCode(t *testing.T) {
	err := New(CodeNotOwner, "caller is not the wallet owner")

	require.ErrorIs(t, err, New(CodeNotOwner, ""))
	assert.NotErrorIs(t, err, New(CodeNotGuardian, ""))
}

func TestHasCodeWalksWrappedChain(t *testing.T) {
	inner := New(CodeBalanceUnavailable, "ledger down")
	outer := Wrap(inner, CodeInternal, "transfer failed")
	wrapped := fmt.Errorf("handler: %w", outer)

	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.True(t, HasCode(wrapped, CodeBalanceUnavailable))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	assert.Equal(t, CodeInternal, CodeOf(wrapped))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "guardian already voted", Message(New(CodeAlreadyVoted, "guardian already voted")))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "", Message(nil))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidThreshold:    http.StatusBadRequest,
		CodeNotOwner:            http.StatusForbidden,
		CodeNotGuardian:         http.StatusForbidden,
		CodeAlreadyVoted:        http.StatusConflict,
		CodeAddressMismatch:     http.StatusConflict,
		CodeInsufficientBalance: http.StatusUnprocessableEntity,
		CodeBalanceUnavailable:  http.StatusServiceUnavailable,
		CodeUnauthorized:        http.StatusUnauthorized,
		CodeNotFound:            http.StatusNotFound,
		CodeRateLimited:         http.StatusTooManyRequests,
		Code("unknown"):         http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), "code %s", code)
	}
}
