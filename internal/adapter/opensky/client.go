package opensky

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/but-pixelated/AircraftTracker-Live/internal/config"
	"github.com/but-pixelated/AircraftTracker-Live/internal/domain"
	"github.com/but-pixelated/AircraftTracker-Live/internal/observability"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	statesPath   = "/states/all"
	breakerName  = "opensky"
	maxBodyBytes = 512
)

// Client fetches state vectors from the OpenSky REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	username   string
	password   string

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*domain.Snapshot]
	tracer  trace.Tracer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates an OpenSky client. Basic auth is sent only when both
// username and password are configured.
func NewClient(cfg config.OpenSkyConfig, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		limiter:   newLimiter(cfg.RequestsPerSecond, cfg.Burst),
		tracer:    otel.Tracer("github.com/but-pixelated/AircraftTracker-Live/internal/adapter/opensky"),
		metrics:   metrics,
		logger:    logger,
	}
	if cfg.HasCredentials() {
		c.username = cfg.Username
		c.password = cfg.Password
	}
	c.breaker = c.newBreaker(cfg.BreakerFailures, cfg.BreakerTimeout)
	return c
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (c *Client) newBreaker(failures uint32, timeout time.Duration) *gobreaker.CircuitBreaker[*domain.Snapshot] {
	return gobreaker.NewCircuitBreaker[*domain.Snapshot](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			c.metrics.BreakerState.Set(breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// GetStates performs one GET /states/all. Every failure is returned as a
// classified error; the snapshot is nil in that case.
func (c *Client) GetStates(ctx context.Context, q domain.Query) (*domain.Snapshot, error) {
	ctx, span := c.tracer.Start(ctx, "opensky.get_states")
	defer span.End()

	start := time.Now()
	snap, err := c.getStates(ctx, q)
	c.metrics.ProviderDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = domain.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetAttributes(attribute.Int("opensky.records", snap.Len()))
	}
	c.metrics.ProviderRequests.WithLabelValues(outcome).Inc()
	return snap, err
}

func (c *Client) getStates(ctx context.Context, q domain.Query) (*domain.Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", domain.ErrTransport, err)
	}

	snap, err := c.breaker.Execute(func() (*domain.Snapshot, error) {
		return c.doRequest(ctx, q)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("opensky request short-circuited", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, domain.ErrCircuitOpen)
	}
	return snap, err
}

func (c *Client) doRequest(ctx context.Context, q domain.Query) (*domain.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statesURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrTransport, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("opensky request failed", "error", err)
		return nil, fmt.Errorf("%w: states request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		c.logger.Warn("opensky authentication failed, check ID_AUTH and PW_AUTH")
		return nil, domain.ErrAuthentication
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		perr := &domain.ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
		c.logger.Warn("opensky returned error status", "status", resp.StatusCode, "body", perr.Body)
		return nil, perr
	}

	var body statesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrTransport, err)
	}
	snap, err := body.snapshot()
	if err != nil {
		c.logger.Warn("opensky returned malformed state", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	c.logger.Debug("opensky states fetched", "records", snap.Len(), "time", snap.Time)
	return snap, nil
}

func (c *Client) statesURL(q domain.Query) string {
	params := url.Values{
		"time": {strconv.FormatInt(q.ResolveTime(), 10)},
	}
	if q.ICAO24 != "" {
		params.Set("icao24", strings.ToLower(q.ICAO24))
	}
	if b := q.BBox; b != nil {
		params.Set("lamin", formatCoord(b.LatMin))
		params.Set("lamax", formatCoord(b.LatMax))
		params.Set("lomin", formatCoord(b.LonMin))
		params.Set("lomax", formatCoord(b.LonMax))
	}
	return c.baseURL + statesPath + "?" + params.Encode()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CheckReadiness fails while the circuit breaker is open.
func (c *Client) CheckReadiness(_ context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return domain.ErrCircuitOpen
	}
	return nil
}
