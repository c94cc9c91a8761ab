package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(auth string) *Client {
	c := New(auth, time.Second)
	c.Backoff = time.Millisecond
	return c
}

func TestDoWithRetryRecoversFrom5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := fastClient("Bearer tok")
	ctx := context.Background()
	resp, err := c.DoWithRetry(ctx, func() (*http.Request, error) {
		return c.NewRequest(ctx, http.MethodGet, srv.URL, nil)
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestDoWithRetryStopsOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad phone", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := fastClient("")
	ctx := context.Background()
	_, err := c.DoWithRetry(ctx, func() (*http.Request, error) {
		return c.NewRequest(ctx, http.MethodGet, srv.URL, nil)
	})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "bad phone", se.Body)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDoWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := fastClient("")
	c.MaxAttempts = 2
	ctx := context.Background()
	_, err := c.DoWithRetry(ctx, func() (*http.Request, error) {
		return c.NewRequest(ctx, http.MethodGet, srv.URL, nil)
	})
	require.Error(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestDoWithRetryHonorsCancelledContext(t *testing.T) {
	c := fastClient("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.DoWithRetry(ctx, func() (*http.Request, error) {
		t.Fatalf("request should not be built")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
