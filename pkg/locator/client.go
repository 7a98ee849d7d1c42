// Package locator is a client for the platform location provider.
package locator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/internal/resilience"
)

// Accuracy is the requested fix priority.
type Accuracy string

const (
	AccuracyHigh     Accuracy = "HIGH_ACCURACY"
	AccuracyBalanced Accuracy = "BALANCED_POWER_ACCURACY"
)

// ErrSecurity is returned when the provider refuses access to location.
var ErrSecurity = eris.New("locator: location access refused")

// Client samples device location. A nil position with a nil error means the
// provider has no fix.
type Client interface {
	CurrentPosition(ctx context.Context, accuracy Accuracy) (*model.Position, error)
	LastKnownPosition(ctx context.Context) (*model.Position, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. A non-positive rate disables
// limiting.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *httpClient) {
		if perSec <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a location provider client against baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("locator", "fetch position")
	}
	return c
}

type fixResponse struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_m"`
}

func (c *httpClient) CurrentPosition(ctx context.Context, accuracy Accuracy) (*model.Position, error) {
	q := url.Values{"priority": []string{string(accuracy)}}
	return c.fetch(ctx, "/location/current?"+q.Encode(), "locator: current position")
}

func (c *httpClient) LastKnownPosition(ctx context.Context) (*model.Position, error) {
	return c.fetch(ctx, "/location/last", "locator: last known position")
}

func (c *httpClient) fetch(ctx context.Context, path, op string) (*model.Position, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*model.Position, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "%s: rate limit", op)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: create request", op)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: send request", op)
		}
		defer resp.Body.Close() //nolint:errcheck

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusNoContent:
			return nil, nil
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, eris.Wrapf(ErrSecurity, "%s: status %d", op, resp.StatusCode)
		default:
			return nil, resilience.StatusError(op, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "%s: read response", op)
		}
		var fix fixResponse
		if err := json.Unmarshal(body, &fix); err != nil {
			return nil, eris.Wrapf(err, "%s: unmarshal response", op)
		}
		return &model.Position{Latitude: fix.Latitude, Longitude: fix.Longitude}, nil
	})
}

// StaticClient reports a fixed position for both the current and the last
// known fix. A nil Position behaves like a provider without a fix.
type StaticClient struct {
	Position *model.Position
}

var _ Client = StaticClient{}

func (s StaticClient) CurrentPosition(context.Context, Accuracy) (*model.Position, error) {
	return s.fix(), nil
}

func (s StaticClient) LastKnownPosition(context.Context) (*model.Position, error) {
	return s.fix(), nil
}

func (s StaticClient) fix() *model.Position {
	if s.Position == nil {
		return nil
	}
	p := *s.Position
	return &p
}
