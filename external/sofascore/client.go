package sofascore

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/football-schedules/internal/domain/match"
	"github.com/riskibarqy/football-schedules/internal/platform/logging"
	"github.com/riskibarqy/football-schedules/internal/platform/resilience"
	"github.com/riskibarqy/football-schedules/internal/usecase"
)

const (
	DefaultURLTemplate = "https://api.sofascore.com/api/v1/sport/football/scheduled-events/%s"
	defaultTimeout     = 30 * time.Second
)

var errTransportFailure = crerr.New("sofascore transport failure")

// Transport performs the raw GET against the upstream.
type Transport interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type ClientConfig struct {
	Transport      Transport
	URLTemplate    string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	transport   Transport
	urlTemplate string
	timeout     time.Duration
	logger      *logging.Logger
	breaker     *resilience.CircuitBreaker
}

type scheduledEventsEnvelope struct {
	Events []match.Match `json:"events"`
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Transport == nil {
		return nil, crerr.New("sofascore transport is required")
	}

	urlTemplate := strings.TrimSpace(cfg.URLTemplate)
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if strings.Count(urlTemplate, "%s") != 1 {
		return nil, crerr.Newf("sofascore url template must contain exactly one %%s placeholder: %q", urlTemplate)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		transport:   cfg.Transport,
		urlTemplate: urlTemplate,
		timeout:     timeout,
		logger:      logger,
		breaker:     resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
	}, nil
}

func (c *Client) URLFor(date time.Time) string {
	return fmt.Sprintf(c.urlTemplate, date.Format(usecase.ScheduleDateLayout))
}

// Fetch returns the scheduled events of one date. Failures are logged and
// reported on the result, never returned as a panic or partial data.
func (c *Client) Fetch(ctx context.Context, date time.Time) usecase.FetchResult {
	day := date.Format(usecase.ScheduleDateLayout)
	result := usecase.FetchResult{Date: day}

	matches, err := c.fetch(ctx, c.URLFor(date))
	if err != nil {
		c.logger.WarnContext(ctx, "fetch scheduled events failed", "date", day, "error", err)
		result.Err = fmt.Errorf("fetch scheduled events date=%s: %w", day, err)
		return result
	}

	c.logger.DebugContext(ctx, "fetched scheduled events", "date", day, "count", len(matches))
	result.Matches = matches
	return result
}

func (c *Client) fetch(ctx context.Context, url string) ([]match.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var raw []byte
	err := c.breaker.Execute(func() error {
		body, getErr := c.transport.Get(ctx, url)
		if getErr != nil {
			return crerr.Mark(crerr.Wrap(getErr, "get scheduled events"), errTransportFailure)
		}
		raw = body
		return nil
	}, isTransportFailure)
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "sofascore circuit breaker rejected request", "state", c.breaker.State())
		return nil, fmt.Errorf("%w: sofascore is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return nil, err
	}

	return decodeScheduledEvents(raw)
}

func decodeScheduledEvents(raw []byte) ([]match.Match, error) {
	var envelope scheduledEventsEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode scheduled events: %w", err)
	}
	if envelope.Events == nil {
		return []match.Match{}, nil
	}
	return envelope.Events, nil
}

func isTransportFailure(err error) bool {
	return crerr.Is(err, errTransportFailure)
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
