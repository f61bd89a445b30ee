package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	res, err := URL(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "hello", string(res.Body))
	assert.Equal(t, "text/plain", res.ContentType)
}

func TestURL_AppliesHeadersAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-01-01", r.URL.Query().Get("dateStart"))
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.Headers = map[string]string{"Authorization": "Bearer token123"}
	opts.Query = map[string][]string{"dateStart": {"2026-01-01"}}

	_, err := URL(context.Background(), srv.URL, opts)
	require.NoError(t, err)
}

func TestURL_NonOKStatusReturnsResultAndError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("gone"))
	}))
	defer srv.Close()

	res, err := URL(context.Background(), srv.URL, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.False(t, fe.Transient())
	assert.False(t, fe.RateLimited())
}

func TestURL_InvalidURL(t *testing.T) {
	_, err := URL(context.Background(), "not a url", nil)
	assert.Error(t, err)
}

func TestURLWithRetry_RecoversFromTransientFailures(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	res, err := URLWithRetry(context.Background(), srv.URL, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(res.Body))
	assert.Equal(t, int64(3), hits.Load())
}

func TestURLWithRetry_PermanentFailureIsNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := URLWithRetry(context.Background(), srv.URL, nil, 5)
	require.Error(t, err)
	assert.Equal(t, int64(1), hits.Load())
}

func TestErrorRateLimited(t *testing.T) {
	e := &Error{StatusCode: http.StatusTooManyRequests, Message: "HTTP status 429"}
	assert.True(t, e.RateLimited())
	assert.True(t, e.Transient())
}
