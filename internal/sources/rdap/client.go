// Package rdap implements the registry side of the network resolver: RDAP
// (Registration Data Access Protocol) queries for IP networks and domains, and
// the IANA bootstrap loader that builds the delegation table.
package rdap

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"phishtrace/internal/core/domain"
	"phishtrace/internal/core/ports"
	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/httpclient"
	"phishtrace/internal/platform/logx"
	"phishtrace/internal/platform/rate"
	"phishtrace/internal/platform/resilience"
	"phishtrace/internal/platform/telemetry"
)

const (
	sourceName = "rdap"

	acceptHeader = "application/rdap+json, application/json;q=0.9"
)

var _ ports.RegistryClient = (*Client)(nil)

// Client implementa ports.RegistryClient sobre httpclient.
// El cliente HTTP debe seguir redirecciones (referrals entre RIRs).
type Client struct {
	http     *httpclient.Client
	breakers *resilience.BreakerGroup
	logger   logx.Logger
}

// NewClient crea un cliente RDAP. breakers puede ser nil (sin circuit breaker).
func NewClient(httpClient *httpclient.Client, breakers *resilience.BreakerGroup, logger logx.Logger) *Client {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &Client{
		http:     httpClient,
		breakers: breakers,
		logger:   logger.With("component", sourceName),
	}
}

// QueryRegistry implements ports.RegistryClient
func (c *Client) QueryRegistry(ctx context.Context, serviceURL string, key domain.AttributionKey) (*domain.Registration, error) {
	queryURL, err := QueryURL(serviceURL, key)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "rdap.query")
	defer span.End()
	span.SetAttributes(
		attribute.String("rdap.key", key.Value),
		attribute.String("rdap.url", queryURL),
	)

	var reg *domain.Registration
	service := rate.HostOf(serviceURL)
	err = c.breakers.Execute(service, func() error {
		r, err := c.query(ctx, queryURL, key)
		if err != nil {
			return err
		}
		reg = r
		return nil
	}, countsAgainstService)

	if err != nil {
		span.RecordError(err)
		c.logger.Debug("RDAP query failed",
			"key", key.Value,
			"service", service,
			"error", err.Error(),
		)
		return nil, err
	}

	c.logger.Debug("RDAP query completed", "key", key.Value, "service", service, "handle", reg.Handle)
	return reg, nil
}

func (c *Client) query(ctx context.Context, queryURL string, key domain.AttributionKey) (*domain.Registration, error) {
	resp, err := c.http.Get(ctx, queryURL, map[string]string{"Accept": acceptHeader})
	if err != nil {
		return nil, errors.Wrapf(err, "rdap query %s", queryURL)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return decodeResponse(resp.Body, key)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(errors.ErrNotFound, "rdap %s: HTTP 404", key.Value)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.Wrapf(errors.ErrRateLimit, "rdap %s: HTTP 429", key.Value)
	case resp.StatusCode >= 500:
		return nil, errors.Wrapf(errors.ErrServiceUnavailable, "rdap %s: HTTP %d", key.Value, resp.StatusCode)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidResponse, "rdap %s: unexpected HTTP %d", key.Value, resp.StatusCode)
	}
}

// countsAgainstService decide qué fallos abren el circuit breaker: solo los
// que indican un servicio caído. Un 404 o una respuesta mal formada no.
func countsAgainstService(err error) bool {
	switch {
	case errors.Is(err, errors.ErrNotFound),
		errors.Is(err, errors.ErrInvalidResponse),
		errors.Is(err, errors.ErrInvalidInput),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// QueryURL construye {service}/ip/{addr} o {service}/domain/{name}.
func QueryURL(serviceURL string, key domain.AttributionKey) (string, error) {
	base, err := url.Parse(strings.TrimSpace(serviceURL))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return "", errors.Wrapf(errors.ErrInvalidInput, "invalid registry service url %q", serviceURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	var object string
	switch key.Type {
	case domain.KeyIP:
		object = "ip/" + key.Value
	case domain.KeyDomain:
		object = "domain/" + key.Value
	default:
		return "", errors.Wrapf(errors.ErrInvalidInput, "unsupported key type %q", key.Type)
	}

	base.RawQuery = ""
	base.Fragment = ""
	return base.String() + object, nil
}
