// Package geofencing is a client for the platform geofence registration
// service.
package geofencing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoalarm/internal/resilience"
)

// Trigger is a transition the platform should report.
type Trigger string

const (
	TriggerEnter Trigger = "ENTER"
	TriggerExit  Trigger = "EXIT"
)

// NeverExpire keeps a registration alive until it is removed.
const NeverExpire int64 = -1

// Registration is one geofence handed to the platform for monitoring.
type Registration struct {
	RequestID        string    `json:"request_id"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	RadiusMeters     float64   `json:"radius_meters"`
	Triggers         []Trigger `json:"triggers"`
	ExpirationMillis int64     `json:"expiration_millis"`
	InitialTrigger   Trigger   `json:"initial_trigger"`
}

// Client registers geofences with the platform.
type Client interface {
	// RegisterAll replaces every registration held for this application.
	RegisterAll(ctx context.Context, regs []Registration) error
	// UnregisterAll removes every registration held for this application.
	UnregisterAll(ctx context.Context) error
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithBreaker routes every call through cb.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *httpClient) {
		c.breaker = cb
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	breaker *resilience.CircuitBreaker
}

// NewClient creates a registration client against baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerFromConfig("geofencing", 0, 0))
	}
	return c
}

type registerRequest struct {
	Geofences []Registration `json:"geofences"`
}

func (c *httpClient) RegisterAll(ctx context.Context, regs []Registration) error {
	body, err := json.Marshal(registerRequest{Geofences: regs})
	if err != nil {
		return eris.Wrap(err, "geofencing: marshal request")
	}
	return c.do(ctx, http.MethodPut, body, "geofencing: register")
}

func (c *httpClient) UnregisterAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, nil, "geofencing: unregister")
}

func (c *httpClient) do(ctx context.Context, method string, body []byte, op string) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/geofences", rdr)
		if err != nil {
			return eris.Wrapf(err, "%s: create request", op)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrapf(err, "%s: send request", op)
		}
		defer resp.Body.Close() //nolint:errcheck
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return resilience.StatusError(op, resp.StatusCode)
		}
		return nil
	})
}

// NopClient accepts every call without contacting a service. It is used
// when no registration service is configured.
type NopClient struct{}

func (NopClient) RegisterAll(context.Context, []Registration) error { return nil }
func (NopClient) UnregisterAll(context.Context) error               { return nil }
