package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatusClassifiesBackendResponses(t *testing.T) {
	cases := map[int]Kind{
		http.StatusBadRequest:          KindValidation,
		http.StatusUnprocessableEntity: KindValidation,
		http.StatusUnauthorized:        KindUnauthorized,
		http.StatusForbidden:           KindForbidden,
		http.StatusNotFound:            KindNotFound,
		http.StatusConflict:            KindConflict,
		http.StatusTooManyRequests:     KindRateLimited,
		http.StatusGatewayTimeout:      KindTimeout,
		http.StatusInternalServerError: KindServer,
		http.StatusServiceUnavailable:  KindServer,
	}
	for status, want := range cases {
		got := FromStatus(status, "")
		assert.Equal(t, want, got.Kind, "status %d", status)
		assert.Equal(t, status, got.Code)
		assert.Equal(t, http.StatusText(status), got.Message)
	}
}

func TestRetryableKinds(t *testing.T) {
	assert.True(t, FromStatus(http.StatusInternalServerError, "boom").Retryable())
	assert.True(t, FromStatus(http.StatusTooManyRequests, "").Retryable())
	assert.True(t, ErrTimeout.Retryable())
	assert.True(t, ErrOffline.Retryable())

	assert.False(t, FromStatus(http.StatusConflict, "").Retryable())
	assert.False(t, NewValidation("bad input").Retryable())
	assert.False(t, ErrUnauthorized.Retryable())
}

func TestRetryableSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("submit transaction: %w", ErrOffline)
	assert.True(t, Retryable(err))
	assert.False(t, Retryable(errors.New("plain")))
}

func TestFromTransport(t *testing.T) {
	assert.Same(t, ErrTimeout, FromTransport(context.DeadlineExceeded))

	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	assert.Same(t, ErrOffline, FromTransport(dialErr))

	assert.Nil(t, FromTransport(nil))
}

func TestGetAppErrorFallsBackToServer(t *testing.T) {
	appErr := GetAppError(errors.New("unexpected"))
	require.NotNil(t, appErr)
	assert.Equal(t, KindServer, appErr.Kind)
	assert.Equal(t, "unexpected", appErr.Message)

	wrapped := fmt.Errorf("%w: line 3", NewValidation("quantity"))
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.True(t, IsAppError(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(NewValidation("bad")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("%w: shift", New(KindConflict, "busy"))))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrOffline))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(ErrTimeout))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(FromStatus(http.StatusInternalServerError, "")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("disk full")))
}
