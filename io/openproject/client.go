package openproject

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/igorsal/commit-bridge/internal/config"
	"github.com/igorsal/commit-bridge/internal/interfaces"
	pkgerrors "github.com/igorsal/commit-bridge/pkg/errors"
)

const (
	serviceName     = "openproject"
	workPackagePath = "/api/v3/work_packages/{id}"
	activitiesPath  = "/api/v3/work_packages/{id}/activities"
	statusHrefFmt   = "/api/v3/statuses/%s"

	// OpenProject API keys authenticate as HTTP Basic with this fixed user
	apiKeyUser = "apikey"
)

type Client struct {
	httpClient     *resty.Client
	config         config.TrackerConfig
	logger         interfaces.Logger
	circuitBreaker interfaces.CircuitBreaker
	metrics        interfaces.MetricsCollector
}

// NewClient creates a new OpenProject API client with circuit breaker and metrics.
// The API key is sent as Basic auth ("apikey:<key>"). Failed calls are never retried.
func NewClient(cfg config.TrackerConfig, logger interfaces.Logger, metrics interfaces.MetricsCollector) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(apiKeyUser, cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/hal+json")

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openproject-api",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("OpenProject API circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.SetGauge("circuit_breaker_state", float64(to), map[string]string{
				"service": serviceName,
				"name":    name,
			})
		},
	})

	return &Client{
		httpClient:     client,
		config:         cfg,
		logger:         logger,
		circuitBreaker: &circuitBreakerWrapper{cb: cb},
		metrics:        metrics,
	}
}

// circuitBreakerWrapper implements interfaces.CircuitBreaker
type circuitBreakerWrapper struct {
	cb *gobreaker.CircuitBreaker
}

func (w *circuitBreakerWrapper) Execute(req func() (interface{}, error)) (interface{}, error) {
	return w.cb.Execute(req)
}

func (w *circuitBreakerWrapper) Name() string {
	return w.cb.Name()
}

func (w *circuitBreakerWrapper) State() string {
	return w.cb.State().String()
}

// AddComment posts body as a new activity on the work package
func (c *Client) AddComment(ctx context.Context, issueID int, body string) error {
	return c.call("add_comment", issueID, func() error {
		return c.executeAddComment(ctx, issueID, body)
	})
}

// SetStatus moves the work package to statusID. The current lock version is
// read first, as OpenProject requires it for updates.
func (c *Client) SetStatus(ctx context.Context, issueID int, statusID string) error {
	return c.call("set_status", issueID, func() error {
		return c.executeSetStatus(ctx, issueID, statusID)
	})
}

// call runs fn through the circuit breaker and records metrics
func (c *Client) call(operation string, issueID int, fn func() error) error {
	startTime := time.Now()
	labels := map[string]string{
		"service":   serviceName,
		"operation": operation,
	}

	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	c.metrics.RecordDuration("tracker_request_duration_seconds", time.Since(startTime).Seconds(), labels)

	if err != nil {
		labels["status"] = "error"
		c.metrics.IncrementCounter("tracker_requests_total", labels)

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("OpenProject call rejected by circuit breaker",
				"operation", operation,
				"issue_id", issueID,
				"breaker", c.circuitBreaker.Name(),
				"state", c.circuitBreaker.State(),
			)
			return pkgerrors.NewUnavailableError(serviceName).
				WithCause(err).
				WithContext("issue_id", issueID).
				WithContext("breaker", c.circuitBreaker.Name()).
				WithContext("breaker_state", c.circuitBreaker.State())
		}
		return err
	}

	labels["status"] = "success"
	c.metrics.IncrementCounter("tracker_requests_total", labels)

	c.logger.Debug("OpenProject call succeeded",
		"operation", operation,
		"issue_id", issueID,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return nil
}

func (c *Client) executeAddComment(ctx context.Context, issueID int, body string) error {
	var apiErr ErrorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.Itoa(issueID)).
		SetBody(CommentRequest{Comment: Formattable{Raw: body}}).
		SetError(&apiErr).
		Post(activitiesPath)
	if err != nil {
		return c.transportError(err)
	}
	if resp.IsError() {
		return c.statusError(resp, &apiErr, issueID)
	}
	return nil
}

func (c *Client) executeSetStatus(ctx context.Context, issueID int, statusID string) error {
	var wp WorkPackage
	var apiErr ErrorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.Itoa(issueID)).
		SetResult(&wp).
		SetError(&apiErr).
		Get(workPackagePath)
	if err != nil {
		return c.transportError(err)
	}
	if resp.IsError() {
		return c.statusError(resp, &apiErr, issueID)
	}

	href := fmt.Sprintf(statusHrefFmt, statusID)
	if wp.Links.Status.Href == href {
		c.logger.Debug("Work package already in target status", "issue_id", issueID, "status_id", statusID)
		return nil
	}

	resp, err = c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", strconv.Itoa(issueID)).
		SetBody(StatusUpdateRequest{
			LockVersion: wp.LockVersion,
			Links:       StatusUpdateLinks{Status: Link{Href: href}},
		}).
		SetError(&apiErr).
		Patch(workPackagePath)
	if err != nil {
		return c.transportError(err)
	}
	if resp.IsError() {
		return c.statusError(resp, &apiErr, issueID)
	}
	return nil
}

func (c *Client) transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return pkgerrors.NewTimeoutError(serviceName, c.config.Timeout.String()).WithCause(err)
	}
	return pkgerrors.NewExternalError(serviceName, err.Error()).WithCause(err)
}

func (c *Client) statusError(resp *resty.Response, apiErr *ErrorResponse, issueID int) error {
	message := strings.TrimSpace(apiErr.Message)
	if message == "" {
		message = strings.TrimSpace(string(resp.Body()))
	}

	var appErr *pkgerrors.AppError
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		appErr = pkgerrors.NewUnauthorizedError("OpenProject rejected the API key")
	case http.StatusNotFound:
		appErr = pkgerrors.NewNotFoundError(fmt.Sprintf("work package %d not found", issueID))
	case http.StatusTooManyRequests:
		appErr = pkgerrors.NewRateLimitError(serviceName)
	default:
		appErr = pkgerrors.NewExternalError(serviceName, fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), message))
	}

	if apiErr.ErrorIdentifier != "" {
		appErr = appErr.WithCode(apiErr.ErrorIdentifier)
	}
	return appErr.
		WithContext("issue_id", issueID).
		WithContext("status_code", resp.StatusCode())
}
