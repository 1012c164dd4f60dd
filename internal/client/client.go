package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/textweather/internal/circuitbreaker"
	"github.com/kjstillabower/textweather/internal/models"
	"github.com/kjstillabower/textweather/internal/observability"
	"github.com/kjstillabower/textweather/internal/traffic"
)

// Gateway is the external data gateway used by the view controller. Every operation
// collapses transport, status, parsing and empty-result failures into the failed Result.
type Gateway interface {
	SearchLocation(ctx context.Context, city, state string) Result[[]models.Place]
	ResolveForecastEndpoint(ctx context.Context, lat, lon string) Result[models.ForecastEndpoint]
	GetForecast(ctx context.Context, forecastURL string) Result[[]models.ForecastPeriod]
}

// Upstream service names, used as metric labels and breaker keys.
const (
	ServiceNominatim   = "nominatim"
	ServiceNWSPoints   = "nws_points"
	ServiceNWSForecast = "nws_forecast"
)

// DefaultUserAgent identifies the app to Nominatim and NWS, both of which require one.
const DefaultUserAgent = "TextWeatherApp/1.0"

// DefaultCountryCodes restricts place search to the US and its territories.
var DefaultCountryCodes = []string{"us", "pr", "gu", "vi", "as", "mp"}

var (
	ErrUpstreamStatus    = errors.New("upstream returned non-success status")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrNoResults         = errors.New("no results")
)

// Config configures a Client. Zero values take package defaults.
type Config struct {
	NominatimURL string
	NWSURL       string
	UserAgent    string
	CountryCodes []string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Client implements Gateway against Nominatim and api.weather.gov.
type Client struct {
	nominatimURL string
	nwsURL       string
	userAgent    string
	countryCodes []string
	http         *http.Client
	logger       *zap.Logger
	breakers     map[string]*circuitbreaker.CircuitBreaker
}

// New returns a Client. No retries are performed.
func New(cfg Config) *Client {
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.NWSURL == "" {
		cfg.NWSURL = "https://api.weather.gov"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if len(cfg.CountryCodes) == 0 {
		cfg.CountryCodes = DefaultCountryCodes
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		nominatimURL: cfg.NominatimURL,
		nwsURL:       cfg.NWSURL,
		userAgent:    cfg.UserAgent,
		countryCodes: cfg.CountryCodes,
		http:         &http.Client{Timeout: cfg.Timeout},
		logger:       cfg.Logger,
		breakers:     make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// SetCircuitBreaker guards calls to service with cb. Call before serving traffic.
func (c *Client) SetCircuitBreaker(service string, cb *circuitbreaker.CircuitBreaker) {
	c.breakers[service] = cb
}

// getJSON issues a GET to rawURL and decodes a 2xx JSON body into out.
func (c *Client) getJSON(ctx context.Context, service, rawURL, accept string, out interface{}) error {
	return c.breakers[service].Call(func() error {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", accept)

		resp, err := c.http.Do(req)
		if err != nil {
			observability.GatewayCallsTotal.WithLabelValues(service, "error").Inc()
			observability.GatewayDuration.WithLabelValues(service, "error").Observe(time.Since(start).Seconds())
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return fmt.Errorf("request timeout: %w", err)
			}
			return fmt.Errorf("http request failed: %w", err)
		}
		defer resp.Body.Close()

		status := statusLabel(resp.StatusCode)
		observability.GatewayCallsTotal.WithLabelValues(service, status).Inc()
		observability.GatewayDuration.WithLabelValues(service, status).Observe(time.Since(start).Seconds())

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: HTTP %d", ErrUpstreamStatus, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return nil
	})
}

// recordOutcome logs and counts a finished gateway call. Empty results are not upstream
// failures for health purposes.
func (c *Client) recordOutcome(service string, err error) {
	if err == nil {
		traffic.RecordUpstreamSuccess()
		return
	}
	category := CategorizeError(err)
	observability.GatewayFailuresTotal.WithLabelValues(service, string(category)).Inc()
	if category == ErrorCategoryEmpty {
		traffic.RecordUpstreamSuccess()
	} else {
		traffic.RecordUpstreamFailure()
	}
	c.logger.Debug("gateway call failed",
		zap.String("service", service),
		zap.String("category", string(category)),
		zap.Error(err))
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
