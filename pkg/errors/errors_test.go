package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	err := WithCode(KindTransport, 502, "bad gateway")
	assert.Equal(t, "transport error (code 502): bad gateway", err.Error())
}

func TestIsRetryable(t *testing.T) {
	retryable := []Kind{KindTransport, KindRateLimit, KindServerError}
	for _, k := range retryable {
		assert.True(t, IsRetryable(k), "kind %s should be retryable", k)
	}

	notRetryable := []Kind{KindAuth, KindExtraction, KindNotFound, KindAutomation, KindUnknown}
	for _, k := range notRetryable {
		assert.False(t, IsRetryable(k), "kind %s should not be retryable", k)
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(KindAuth))
	assert.False(t, IsFatal(KindTransport))
	assert.False(t, IsFatal(KindAutomation))
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{404, KindNotFound},
		{429, KindRateLimit},
		{500, KindServerError},
		{503, KindServerError},
		{400, KindTransport},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindForStatus(tt.status), "status %d", tt.status)
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(500))
	assert.True(t, IsRetryableStatusCode(504))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(403))
}
