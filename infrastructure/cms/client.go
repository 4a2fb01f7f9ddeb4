// Package cms implements the branch fetcher against the headless CMS query
// API. Each call issues one GROQ query over HTTPS, guarded by a circuit
// breaker and a bounded retry loop.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	"kujisan/infrastructure/config"
	"kujisan/infrastructure/validation"
	pkgerrors "kujisan/pkg/errors"
	"kujisan/pkg/observability"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const serviceName = "sanity"

// statusError is a non-2xx answer from the query API
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("query API returned %d: %s", e.Status, e.Body)
}

// retryable reports whether another attempt may succeed
func (e *statusError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// Client queries person branches from the CMS
type Client struct {
	http       *http.Client
	endpoint   string
	token      string
	maxRetries int
	backoff    time.Duration
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
	metrics    *observability.Collector
}

// NewClient creates a CMS client from configuration
func NewClient(cfg config.CMSConfig, logger *zap.Logger, metrics *observability.Collector) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := cfg.BaseURL
	if base == "" {
		if cfg.ProjectID == "" {
			return nil, pkgerrors.NewValidationError("cms project id or base url is required")
		}
		host := "api.sanity.io"
		if cfg.UseCDN {
			host = "apicdn.sanity.io"
		}
		base = fmt.Sprintf("https://%s.%s", cfg.ProjectID, host)
	}

	endpoint := fmt.Sprintf("%s/v%s/data/query/%s",
		strings.TrimRight(base, "/"), strings.TrimPrefix(cfg.APIVersion, "v"), cfg.Dataset)

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c := &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		endpoint:   endpoint,
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		logger:     logger.Named("cms"),
		metrics:    metrics,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        serviceName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// a bad query is our fault, not the upstream's
			var se *statusError
			if errors.As(err, &se) {
				return !se.retryable()
			}
			return err == nil
		},
	})

	return c, nil
}

// FetchRoot returns every generation-1 person on the male root line
func (c *Client) FetchRoot(ctx context.Context) ([]*entities.TreePerson, error) {
	start := time.Now()
	var docs []*personDocument
	err := c.query(ctx, "fetch_root", rootQuery, nil, &docs)
	c.metrics.RecordFetch(serviceName, "root", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	people := make([]*entities.TreePerson, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			people = append(people, d.toEntity())
		}
	}

	people, report := validation.SanitizeAll(people)
	if report.Dropped() {
		c.logger.Warn("Dropped malformed entries from root branches",
			zap.Int("partners", report.DroppedPartners),
			zap.Int("children", report.DroppedChildren),
		)
	}
	return people, nil
}

// FetchBranch returns one person's unions and children, or nil when the id
// is unknown or the document is malformed
func (c *Client) FetchBranch(ctx context.Context, id valueobjects.PersonID) (*entities.TreePerson, error) {
	if id.IsPlaceholder() {
		return nil, nil
	}

	start := time.Now()
	var doc *personDocument
	err := c.query(ctx, "fetch_branch", branchQuery, map[string]string{"nodeId": id.String()}, &doc)
	c.metrics.RecordFetch(serviceName, "branch", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	person := doc.toEntity()
	report, err := validation.Sanitize(person)
	if err != nil {
		c.logger.Warn("Ignoring malformed branch",
			zap.String("person_id", id.String()),
			zap.Error(err),
		)
		return nil, nil
	}
	if report.Dropped() {
		c.logger.Warn("Dropped malformed entries from branch",
			zap.String("person_id", id.String()),
			zap.Int("partners", report.DroppedPartners),
			zap.Int("children", report.DroppedChildren),
		)
	}
	return person, nil
}

// HealthCheck runs a trivial query
func (c *Client) HealthCheck(ctx context.Context) error {
	var n int
	return c.query(ctx, "ping", pingQuery, nil, &n)
}

func (c *Client) query(ctx context.Context, op, groq string, params map[string]string, out interface{}) error {
	ctx, span := observability.Tracer().Start(ctx, "cms."+op)
	defer span.End()

	target, err := c.buildURL(groq, params)
	if err != nil {
		return pkgerrors.NewInternalError("build query url").WithCause(err)
	}

	var body []byte
	for attempt := 0; ; attempt++ {
		span.SetAttributes(attribute.Int("cms.attempt", attempt+1))

		var res interface{}
		res, err = c.breaker.Execute(func() (interface{}, error) {
			return c.do(ctx, target)
		})
		if err == nil {
			body = res.([]byte)
			break
		}

		if !c.shouldRetry(ctx, err) || attempt >= c.maxRetries {
			break
		}

		wait := c.backoff * time.Duration(1<<attempt)
		c.logger.Debug("Retrying query",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(wait):
			continue
		}
		break
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return c.classify(op, err)
	}

	envelope := queryResponse[json.RawMessage]{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return pkgerrors.NewExternalError(serviceName, fmt.Errorf("decode envelope: %w", err))
	}
	if len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return pkgerrors.NewExternalError(serviceName, fmt.Errorf("decode result: %w", err))
	}
	return nil
}

func (c *Client) buildURL(groq string, params map[string]string) (string, error) {
	values := url.Values{}
	values.Set("query", groq)
	for k, v := range params {
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		values.Set("$"+k, string(encoded))
	}
	return c.endpoint + "?" + values.Encode(), nil
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &statusError{Status: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

func (c *Client) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	return true
}

func (c *Client) classify(op string, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return pkgerrors.NewUnavailableError(serviceName).WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.NewTimeoutError(serviceName + " " + op).WithCause(err)
	default:
		return pkgerrors.NewExternalError(serviceName, err).
			WithDetails(map[string]interface{}{"operation": op})
	}
}
