package fplapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/fpl-livescore/internal/platform/cache"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
	"github.com/riskibarqy/fpl-livescore/internal/platform/resilience"
	"github.com/riskibarqy/fpl-livescore/internal/usecase"
)

const (
	DefaultBaseURL   = "https://fantasy.premierleague.com/api"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	maxBodyBytes = 16 << 20
)

var (
	// ErrUpstreamUnavailable marks transient failures that survived every
	// retry, and calls shed by the circuit breaker.
	ErrUpstreamUnavailable = crerr.New("fpl upstream unavailable")
	// ErrUpstreamRejected marks terminal 4xx responses other than 429.
	ErrUpstreamRejected = crerr.New("fpl upstream rejected request")
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	Limiter        *resilience.Limiter
	Retry          resilience.RetryPolicy
	CircuitBreaker resilience.CircuitBreakerConfig
	// Cache is optional; without it every Fetch goes to the network.
	Cache  *cache.Store
	Logger *logging.Logger
	Sleep  resilience.Sleeper
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *resilience.Limiter
	retry      resilience.RetryPolicy
	breaker    *resilience.CircuitBreaker
	cache      *cache.Store
	logger     *logging.Logger
	sleep      resilience.Sleeper
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = resilience.NewLimiter(resilience.DefaultLimiterCapacity)
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = resilience.SleepContext
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		limiter:    limiter,
		retry:      resilience.NormalizeRetryPolicy(cfg.Retry),
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
		cache:      cfg.Cache,
		logger:     logger.Named("fplapi"),
		sleep:      sleep,
	}
	c.breaker.OnTransition(func(from, to resilience.CircuitState) {
		c.logger.Warn("fpl circuit breaker state changed", "from", from, "to", to)
	})
	return c
}

// Get issues an uncached GET for path relative to the API root.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")

	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "fpl circuit breaker rejected request", "url", fullURL, "state", c.breaker.State())
		return nil, unavailable(err)
	}

	raw, err := c.executeRequest(ctx, fullURL)
	c.breaker.Record(err != nil && crerr.Is(err, ErrUpstreamUnavailable))
	return raw, err
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		raw, status, err := c.attempt(ctx, fullURL)
		if err == nil {
			return raw, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		throttled := status == http.StatusTooManyRequests
		if !throttled && !isRetryableStatus(status) {
			return nil, rejected(status, err)
		}

		// A throttled attempt always waits out its backoff, including the
		// last one, so a burst of 429s keeps the caller off the API.
		if attempt == c.retry.MaxAttempts-1 && !throttled {
			break
		}
		delay := c.retry.Delay(attempt, throttled)
		c.logger.DebugContext(ctx, "fpl request retry scheduled", "url", fullURL, "attempt", attempt+1, "status", status, "delay", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.logger.WarnContext(ctx, "fpl request failed", "url", fullURL, "attempts", c.retry.MaxAttempts, "error", lastErr)
	return nil, unavailable(lastErr)
}

// attempt performs a single round trip while holding one limiter permit.
// Status is 0 for transport level failures.
func (c *Client) attempt(ctx context.Context, fullURL string) ([]byte, int, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, 0, err
	}
	defer c.limiter.Release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, resp.StatusCode, nil
	}

	return nil, resp.StatusCode, fmt.Errorf("upstream status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
}

// transport errors (status 0) retry on the server error schedule
func isRetryableStatus(status int) bool {
	return status == 0 || status >= 500
}

func unavailable(cause error) error {
	return crerr.Mark(fmt.Errorf("%w: %v", usecase.ErrDependencyUnavailable, cause), ErrUpstreamUnavailable)
}

func rejected(status int, cause error) error {
	base := usecase.ErrInvalidInput
	if status == http.StatusNotFound {
		base = usecase.ErrNotFound
	}
	return crerr.Mark(fmt.Errorf("%w: %v", base, cause), ErrUpstreamRejected)
}

func abbreviateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) <= 240 {
		return body
	}
	return body[:240] + "..."
}
