package statsbomb

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	fasthttp "github.com/valyala/fasthttp"

	"github.com/playpulse/playpulse/internal/domain/match"
	"github.com/playpulse/playpulse/internal/platform/logging"
	"github.com/playpulse/playpulse/internal/platform/resilience"
	"github.com/playpulse/playpulse/internal/usecase"
)

const (
	defaultBaseURL        = "https://raw.githubusercontent.com/statsbomb/open-data/master/data"
	defaultTimeout        = 15 * time.Second
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = time.Second
	maxResponseBytes      = 48 << 20
)

var bearerTokenRegex = regexp.MustCompile(`(?i)bearer\s+[^\s"']+`)

var (
	errStatsBombTransient = crerr.New("statsbomb transient failure")
	errNoData             = crerr.New("statsbomb resource has no data")
)

type ClientConfig struct {
	HTTPClient     *fasthttp.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client fetches competitions, matches, and events from the StatsBomb
// open-data tree. Every call retries transient failures internally; callers
// see either a decoded result or one terminal error.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	token          string
	timeout        time.Duration
	maxAttempts    int
	retryBaseDelay time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:                "playpulse",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
			MaxResponseBodySize: maxResponseBytes,
		}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	retryBaseDelay := cfg.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = defaultRetryBaseDelay
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		maxAttempts:    maxAttempts,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// ListCompetitions returns every competition/season pairing the source
// publishes, newest season first.
func (c *Client) ListCompetitions(ctx context.Context) ([]match.Competition, error) {
	var rows []competitionRow
	if err := c.doJSON(ctx, "/competitions.json", &rows); err != nil {
		return nil, fmt.Errorf("fetch competitions: %w", err)
	}

	return mapCompetitions(rows), nil
}

// ListMatches returns the fixtures for one competition/season, newest first.
// A missing matches file means the pairing has no published fixtures and is
// reported as an empty result, not an error.
func (c *Client) ListMatches(ctx context.Context, competitionID, seasonID int64) ([]match.Match, error) {
	if competitionID <= 0 || seasonID <= 0 {
		return nil, fmt.Errorf("%w: competition id and season id must be positive", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/matches/%d/%d.json", competitionID, seasonID)
	var rows []matchRow
	if err := c.doJSON(ctx, path, &rows); err != nil {
		if stderrors.Is(err, errNoData) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch matches competition_id=%d season_id=%d: %w", competitionID, seasonID, err)
	}

	return mapMatches(rows), nil
}

// ListEvents returns the event rows recorded for one match. A missing events
// file is an empty result, not an error.
func (c *Client) ListEvents(ctx context.Context, matchID int64) ([]match.EventRecord, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("%w: match id must be positive", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/events/%d.json", matchID)
	var rows []eventRow
	if err := c.doJSON(ctx, path, &rows); err != nil {
		if stderrors.Is(err, errNoData) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch events match_id=%d: %w", matchID, err)
	}

	return mapEvents(matchID, rows), nil
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "statsbomb circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match data source is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errStatsBombTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		if stderrors.Is(err, errStatsBombTransient) {
			return fmt.Errorf("%w: %s", usecase.ErrDependencyUnavailable, sanitizeSensitiveText(err.Error(), c.token))
		}
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode source payload: %w", err)
	}

	return nil
}

// executeRequest performs one fetch with bounded retry. Transport failures
// and retryable statuses are retried with exponentially increasing delay;
// other statuses fail immediately.
func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, status, err := c.sendOnce(fullURL)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("%w: send request: %s", errStatsBombTransient, sanitizeSensitiveText(err.Error(), c.token))
		case status == fasthttp.StatusNotFound:
			return nil, fmt.Errorf("%w: url=%s", errNoData, fullURL)
		case status >= 200 && status < 300:
			return raw, nil
		case isRetryableStatus(status):
			lastErr = fmt.Errorf("%w: source status=%d body=%s", errStatsBombTransient, status, abbreviateBody(raw))
		default:
			return nil, fmt.Errorf("source status=%d body=%s", status, sanitizeSensitiveText(abbreviateBody(raw), c.token))
		}

		if attempt == c.maxAttempts-1 {
			break
		}

		timer := time.NewTimer(retryDelay(c.retryBaseDelay, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: source request failed", errStatsBombTransient)
	}
	c.logger.WarnContext(ctx, "statsbomb request failed", "url", fullURL, "attempts", c.maxAttempts, "error", lastErr)
	return nil, lastErr
}

// sendOnce issues a single GET and copies the body out before the pooled
// request/response objects are released.
func (c *Client) sendOnce(fullURL string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if err := c.httpClient.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, 0, err
	}

	raw := append([]byte(nil), resp.Body()...)
	return raw, resp.StatusCode(), nil
}

// retryDelay doubles the base delay per completed attempt: attempt 0 waits
// base, attempt 1 waits 2*base, attempt 2 waits 4*base.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 16 {
		attempt = 16
	}
	return base << uint(attempt)
}

func isRetryableStatus(code int) bool {
	return code == fasthttp.StatusTooManyRequests || code >= fasthttp.StatusInternalServerError
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	value = bearerTokenRegex.ReplaceAllString(value, "Bearer REDACTED")
	return value
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
