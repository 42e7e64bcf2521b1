package sourceclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func TestTransport_Get_RetriesOnUpstream5xxThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := newTransport(server.URL, "", nil)
	tr.sleep = noSleep

	body, err := tr.get(context.Background(), "/x", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
	require.EqualValues(t, 3, attempts.Load())
}

func TestTransport_Get_NotFoundDoesNotRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tr := newTransport(server.URL, "", nil)
	tr.sleep = noSleep

	_, err := tr.get(context.Background(), "/x", nil)
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualValues(t, 1, attempts.Load())
}

func TestTransport_Get_MalformedStatusDoesNotRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	tr := newTransport(server.URL, "", nil)
	tr.sleep = noSleep

	_, err := tr.get(context.Background(), "/x", nil)
	require.ErrorIs(t, err, ErrMalformed)
	require.EqualValues(t, 1, attempts.Load())
}

func TestTransport_Get_ExhaustsRetriesOnPersistent5xx(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr := newTransport(server.URL, "", nil)
	tr.sleep = noSleep

	_, err := tr.get(context.Background(), "/x", nil)
	require.ErrorIs(t, err, ErrUpstream5xx)
	require.EqualValues(t, maxAttempts, attempts.Load())
}

func TestTransport_Get_HonorsRetryAfterOnRateLimit(t *testing.T) {
	var attempts atomic.Int32
	var sleptFor time.Duration

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tr := newTransport(server.URL, "", nil)
	tr.sleep = func(ctx context.Context, d time.Duration) error {
		sleptFor = d
		return nil
	}

	_, err := tr.get(context.Background(), "/x", nil)
	require.NoError(t, err)
	require.InDelta(t, 7*time.Second, sleptFor, float64(4*time.Second))
}

func TestTransport_Get_NetworkFailuresTripCircuitBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	server.Close() // closed immediately: every dial now fails with a network error

	tr := newTransport(server.URL, "", nil)
	tr.sleep = noSleep

	for i := 0; i < consecutiveFailureThreshold; i++ {
		_, err := tr.get(context.Background(), "/x", nil)
		require.Error(t, err)
	}

	_, err := tr.get(context.Background(), "/x", nil)
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestTransport_Get_ContextCancelledDuringBackoffAbortsImmediately(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	tr := newTransport(server.URL, "", nil)
	tr.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := tr.get(ctx, "/x", nil)
	require.True(t, errors.Is(err, context.Canceled))
	require.EqualValues(t, 1, attempts.Load())
}

func TestCircuitBreaker_OpensAfterThresholdAndHalfOpensAfterCooldown(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	b := newCircuitBreaker(clock)

	for i := 0; i < consecutiveFailureThreshold; i++ {
		require.True(t, b.allow())
		b.recordNetworkFailure()
	}
	require.False(t, b.allow())

	now = now.Add(openDuration)
	require.True(t, b.allow(), "should half-open once cooldown elapses")

	b.recordSuccess()
	require.True(t, b.allow())
}

func TestCircuitBreaker_HalfOpenFailureReopensImmediately(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	b := newCircuitBreaker(clock)

	for i := 0; i < consecutiveFailureThreshold; i++ {
		b.recordNetworkFailure()
	}
	now = now.Add(openDuration)
	require.True(t, b.allow())

	b.recordNetworkFailure()
	require.False(t, b.allow())
}
