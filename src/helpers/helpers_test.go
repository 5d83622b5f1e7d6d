package helpers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"volume-screener/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger {
	return logger.NewWithWriter("test", logger.LevelError, io.Discard)
}

func TestNetworkErrorRetryable(t *testing.T) {
	assert.True(t, NewNetworkError("x", 0, nil).Retryable())
	assert.True(t, NewNetworkError("x", 429, nil).Retryable())
	assert.True(t, NewNetworkError("x", 418, nil).Retryable())
	assert.True(t, NewNetworkError("x", 503, nil).Retryable())
	assert.False(t, NewNetworkError("x", 400, nil).Retryable())
	assert.False(t, NewNetworkError("x", 404, nil).Retryable())
}

func TestErrorsUnwrap(t *testing.T) {
	root := errors.New("disk full")
	err := fmt.Errorf("persist: %w", NewCacheError("write cache", root))

	var cacheErr *CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.ErrorIs(t, err, root)
	assert.Equal(t, "write cache: disk full", cacheErr.Error())
}

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := RetryWithBackoff(context.Background(), quietLogger(), "ping", 3, time.Millisecond, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), quietLogger(), "fetch", 5, time.Millisecond, func() (struct{}, error) {
		calls++
		return struct{}{}, NewNetworkError("bad request", 400, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RetryWithBackoff(ctx, quietLogger(), "fetch", 5, time.Second, func() (int, error) {
		return 0, errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProxyManager(t *testing.T) {
	pm := NewProxyManager([]string{"10.0.0.1:3128", "", "https://user:pw@proxy.local:8443", "ftp://proxy.local:21"}, "")
	require.True(t, pm.HasProxies())

	first, err := pm.GetCurrentProxy()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:3128", first)

	pm.RotateProxy()
	second, _ := pm.GetCurrentProxy()
	assert.Equal(t, "https://user:pw@proxy.local:8443", second)
	assert.Equal(t, "https://redacted@proxy.local:8443", RedactProxy(second))

	assert.Equal(t, defaultUserAgent, pm.GetUserAgent())
}

func TestProxyManagerEmpty(t *testing.T) {
	pm := NewProxyManager(nil, "ua")
	assert.False(t, pm.HasProxies())
	p, err := pm.GetCurrentProxy()
	require.NoError(t, err)
	assert.Empty(t, p)
	pm.RotateProxy()
	assert.Equal(t, "ua", pm.GetUserAgent())
}
