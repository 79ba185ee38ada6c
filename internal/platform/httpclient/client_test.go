package httpclient

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/logx"
	"phishtrace/internal/platform/rate"
)

func newClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg, logx.NewSilent())
	require.NoError(t, err)
	return c
}

func TestNew_AppliesDefaults(t *testing.T) {
	c := newClient(t, Config{MaxRetries: 5})

	cfg := c.Config()
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.Equal(t, 1, cfg.MaxRetries, "retries are bounded to one")
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, "phishtrace/1.0", cfg.UserAgent)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
}

func TestNew_InvalidProxy(t *testing.T) {
	_, err := New(Config{ProxyURL: "::not a url"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "phishtrace-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/rdap+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	c := newClient(t, Config{UserAgent: "phishtrace-test"})
	resp, err := c.Get(context.Background(), server.URL, map[string]string{"Accept": "application/rdap+json"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(resp.Body))
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, server.Listener.Addr().String(), resp.RemoteAddr)
	assert.False(t, resp.Truncated)
}

func TestClient_DoesNotFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/next", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("landing"))
	}))
	defer server.Close()

	c := newClient(t, Config{})
	resp, err := c.Get(context.Background(), server.URL+"/start", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/next", resp.Header.Get("Location"))

	follow := newClient(t, Config{FollowRedirects: true})
	resp, err = follow.Get(context.Background(), server.URL+"/start", nil)
	require.NoError(t, err)
	assert.Equal(t, "landing", string(resp.Body))
}

func TestClient_RetriesOnceOnStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := newClient(t, Config{RetryOnStatus: true, RetryBackoff: time.Millisecond})
	resp, err := c.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_RetryExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newClient(t, Config{RetryOnStatus: true, RetryBackoff: time.Millisecond})
	_, err := c.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRateLimit))
	assert.Equal(t, int32(2), calls.Load(), "one attempt plus a single retry")
}

func TestClient_StatusReturnedWithoutRetryOnStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newClient(t, Config{})
	resp, err := c.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestClient_CallTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := newClient(t, Config{CallTimeout: 50 * time.Millisecond, RetryBackoff: time.Millisecond})
	c.config.MaxRetries = 0

	start := time.Now()
	_, err := c.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_ParentContextDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	c := newClient(t, Config{CallTimeout: time.Minute})
	_, err := c.Get(ctx, server.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
}

func TestClient_TruncatesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	c := newClient(t, Config{MaxBodyBytes: 16})
	resp, err := c.Get(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Len(t, resp.Body, 16)
	assert.True(t, resp.Truncated)
}

func TestClient_TLSFailure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	c := newClient(t, Config{})
	c.config.MaxRetries = 0
	_, err := c.Get(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTLS(err))
}

func TestClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	c := newClient(t, Config{RetryBackoff: time.Millisecond})
	_, err := c.Get(context.Background(), addr, nil)
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
	assert.False(t, errors.IsTimeout(err))
}

func TestClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	limiter := rate.NewHostLimiter(1000, 1)
	c := newClient(t, Config{Limiter: limiter})
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), server.URL, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, limiter.Hosts())
}

func TestClassify(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		ctx    context.Context
		err    error
		target error
	}{
		{"context done", canceled, fmt.Errorf("read: %w", context.Canceled), errors.ErrTimeout},
		{"dns not found", context.Background(), &net.DNSError{Err: "no such host", Name: "x.invalid", IsNotFound: true}, errors.ErrNotFound},
		{"dns timeout", context.Background(), &net.DNSError{Err: "timeout", Name: "x.example", IsTimeout: true}, errors.ErrTimeout},
		{"dns other", context.Background(), &net.DNSError{Err: "server misbehaving", Name: "x.example"}, errors.ErrTransient},
		{"unknown authority", context.Background(), fmt.Errorf("get: %w", x509.UnknownAuthorityError{}), errors.ErrTLS},
		{"dial", context.Background(), &net.OpError{Op: "dial", Err: errors.New("no route")}, errors.ErrConnectionFailed},
		{"other", context.Background(), errors.New("boom"), errors.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.ctx, tt.err)
			assert.True(t, errors.Is(got, tt.target), "got %v", got)
		})
	}

	assert.NoError(t, Classify(context.Background(), nil))
}
