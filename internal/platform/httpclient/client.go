// Package httpclient provides the HTTP client shared by the redirect fetcher and
// the registry client: per-call timeouts, a single bounded retry, per-host rate
// limiting and classification of transport failures into platform sentinels.
package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/logx"
	"phishtrace/internal/platform/rate"
	"phishtrace/internal/platform/resilience"
	"phishtrace/internal/platform/telemetry"
)

// Client performs single GET calls with bounded retry and rate limiting.
type Client struct {
	httpClient *http.Client
	limiter    *rate.HostLimiter
	logger     logx.Logger
	config     Config
}

// Config holds the configuration for the HTTP client.
type Config struct {
	// CallTimeout bounds each attempt, including reading the body.
	// Default: 10 seconds
	CallTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	// Values above 1 are clamped to 1.
	// Default: 1
	MaxRetries int

	// RetryBackoff is the wait before the retry.
	// Default: 500 milliseconds
	RetryBackoff time.Duration

	// UserAgent is the User-Agent header value.
	// Default: "phishtrace/1.0"
	UserAgent string

	// ProxyURL routes every request through an HTTP proxy when set.
	ProxyURL string

	// MaxBodyBytes caps how much of a body is read; the rest is discarded.
	// Default: 1 MiB
	MaxBodyBytes int64

	// FollowRedirects lets net/http follow 3xx responses. The redirect
	// fetcher disables it so that every hop is observed.
	FollowRedirects bool

	// RetryOnStatus turns 429 and 502/503/504 into retryable errors
	// instead of returning the response.
	RetryOnStatus bool

	// Limiter throttles requests per host; nil disables throttling.
	Limiter *rate.HostLimiter

	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CallTimeout:  10 * time.Second,
		MaxRetries:   1,
		RetryBackoff: 500 * time.Millisecond,
		UserAgent:    "phishtrace/1.0",
		MaxBodyBytes: 1 << 20,
	}
}

// Response is a fully read HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Truncated  bool
	RemoteAddr string
	Elapsed    time.Duration
}

// New creates a new HTTP client with the given configuration.
func New(config Config, logger logx.Logger) (*Client, error) {
	defaults := DefaultConfig()
	if config.CallTimeout <= 0 {
		config.CallTimeout = defaults.CallTimeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.MaxRetries > 1 {
		config.MaxRetries = 1
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = defaults.RetryBackoff
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if logger == nil {
		logger = logx.NewSilent()
	}

	transport := config.Transport
	if transport == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		if config.ProxyURL != "" {
			proxy, err := url.Parse(config.ProxyURL)
			if err != nil || proxy.Host == "" {
				return nil, errors.Mark(errors.ErrInvalidInput, errors.Errorf("invalid proxy url %q", config.ProxyURL))
			}
			base.Proxy = http.ProxyURL(proxy)
		}
		transport = base
	}

	httpClient := &http.Client{Transport: transport}
	if !config.FollowRedirects {
		httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Client{
		httpClient: httpClient,
		limiter:    config.Limiter,
		logger:     logger.With("component", "httpclient"),
		config:     config,
	}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.config }

// Get performs a GET request with retry and rate limiting.
// Every returned error is marked with a platform sentinel.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "http.get")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", rawURL))

	policy := resilience.Single(c.config.RetryBackoff)
	policy.MaxRetries = c.config.MaxRetries

	var resp *Response
	err := resilience.Do(ctx, policy, c.logger, func(ctx context.Context, attempt int) error {
		r, err := c.attempt(ctx, rawURL, headers, attempt)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.String("net.peer", resp.RemoteAddr),
	)
	return resp, nil
}

func (c *Client) attempt(ctx context.Context, rawURL string, headers map[string]string, attempt int) (*Response, error) {
	if err := c.limiter.WaitURL(ctx, rawURL); err != nil {
		return nil, errors.Mark(errors.ErrTimeout, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	out := &Response{URL: rawURL}
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Conn != nil {
				out.RemoteAddr = info.Conn.RemoteAddr().String()
			}
		},
	}
	callCtx = httptrace.WithClientTrace(callCtx, trace)

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Mark(errors.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	c.logger.Debug("HTTP request", "url", rawURL, "attempt", attempt+1)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = Classify(callCtx, err)
		c.logger.Debug("HTTP request failed", "url", rawURL, "attempt", attempt+1, "error", err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes+1))
	if err != nil {
		return nil, Classify(callCtx, err)
	}
	if int64(len(body)) > c.config.MaxBodyBytes {
		body = body[:c.config.MaxBodyBytes]
		out.Truncated = true
	}

	out.StatusCode = resp.StatusCode
	out.Header = resp.Header
	out.Body = body
	out.Elapsed = time.Since(start)

	c.logger.Debug("HTTP response received",
		"url", rawURL,
		"status", resp.StatusCode,
		"duration_ms", out.Elapsed.Milliseconds(),
	)

	if c.config.RetryOnStatus {
		if err := statusError(resp.StatusCode); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// statusError maps throttling and gateway statuses to retryable sentinels.
func statusError(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return errors.Wrapf(errors.ErrRateLimit, "HTTP %d", status)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return errors.Wrapf(errors.ErrServiceUnavailable, "HTTP %d", status)
	default:
		return nil
	}
}

// Classify marks a transport error with the sentinel that describes it.
// A done ctx always classifies as a timeout.
func Classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx != nil && ctx.Err() != nil {
		return errors.Mark(errors.ErrTimeout, err)
	}

	var (
		netErr       net.Error
		dnsErr       *net.DNSError
		opErr        *net.OpError
		unknownCA    x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidCert  x509.CertificateInvalidError
		verifyErr    *tls.CertificateVerificationError
		recordHdrErr tls.RecordHeaderError
		alertErr     tls.AlertError
	)

	switch {
	case errors.As(err, &unknownCA),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidCert),
		errors.As(err, &verifyErr),
		errors.As(err, &recordHdrErr),
		errors.As(err, &alertErr):
		return errors.Mark(errors.ErrTLS, err)
	case errors.As(err, &dnsErr):
		if dnsErr.IsNotFound {
			return errors.Mark(errors.ErrNotFound, err)
		}
		if dnsErr.IsTimeout {
			return errors.Mark(errors.ErrTimeout, err)
		}
		return errors.Mark(errors.ErrTransient, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return errors.Mark(errors.ErrTimeout, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return errors.Mark(errors.ErrConnectionFailed, err)
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return errors.Mark(errors.ErrTransient, err)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return errors.Mark(errors.ErrConnectionFailed, err)
	default:
		return errors.Mark(errors.ErrTransient, err)
	}
}
