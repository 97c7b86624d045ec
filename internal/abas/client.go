// Package abas is a client for the ABAS ERP EDP web service. Every call is a
// JSON POST to a single endpoint; the response envelope is validated here and
// turned into typed results or one of the client's error types.
package abas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxTries = 4 // first attempt plus three retries
	defaultBackoff  = 500 * time.Millisecond
	maxErrorBody    = 512
)

// Client talks to one EDP endpoint.
type Client struct {
	base   string
	http   *http.Client
	token  string
	logger *slog.Logger

	maxTries       uint
	initialBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken sends the token as bearer authorization.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetry sets the number of attempts and the first backoff interval.
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(c *Client) {
		c.maxTries = maxTries
		c.initialBackoff = initial
	}
}

// WithLogger sets the logger for request events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the given endpoint.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:           strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: defaultTimeout},
		logger:         slog.Default(),
		maxTries:       defaultMaxTries,
		initialBackoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the EDP endpoint URL.
func (c *Client) Endpoint() string { return c.base }

// Post sends req and returns the validated envelope. Read-only requests are
// retried on 502/503/504 and network errors with exponential backoff; other
// requests are retried only when the connection was refused.
func (c *Client) Post(ctx context.Context, req Request) (*Response, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff

	attempt := 0
	op := func() (*Response, error) {
		attempt++
		resp, err := c.do(ctx, req)
		if err == nil {
			return resp, nil
		}
		if c.retryable(req, err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("abas request failed, retrying",
				"action", req.Action, "attempt", attempt, "backoff", next, "error", err)
		}),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) retryable(req Request, err error) bool {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		if errors.Is(connErr.Err, context.Canceled) {
			return false
		}
		return req.readOnly() || errors.Is(connErr.Err, syscall.ECONNREFUSED)
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && req.readOnly() {
		switch httpErr.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding abas request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building abas request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &ConnectionError{Endpoint: c.base, Payload: req, Timeout: isTimeout(err), Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &ConnectionError{Endpoint: c.base, Payload: req, Timeout: isTimeout(err), Err: err}
	}

	c.logger.Debug("abas request",
		"action", req.Action,
		"target", target(req),
		"status", httpResp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if httpResp.StatusCode >= 400 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &HTTPError{Endpoint: c.base, Payload: req, StatusCode: httpResp.StatusCode, Body: strings.TrimSpace(snippet)}
	}

	resp, err := decodeEnvelope(body)
	if err != nil {
		return nil, invalidResponse(c.base, req, "malformed response: %v", err)
	}
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = "unknown API error"
		}
		apiErr := &APIError{Endpoint: c.base, Payload: req, Code: resp.Code, Message: message}
		if resp.Code == CodeAuth {
			return nil, &AuthError{APIError: apiErr}
		}
		return nil, apiErr
	}
	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func target(req Request) string {
	switch {
	case req.Infosystem != "":
		return req.Infosystem
	case req.DatabaseAndGroup != "":
		return req.DatabaseAndGroup
	default:
		return req.ID
	}
}

// Query runs a query action.
func (c *Client) Query(ctx context.Context, databaseAndGroup string, fields []string, filter *Filter) (QueryResult, error) {
	req := Request{Action: ActionQuery, DatabaseAndGroup: databaseAndGroup, Fields: fields, Filter: filter}
	resp, err := c.Post(ctx, req)
	if err != nil {
		return QueryResult{}, err
	}
	res, err := parseQuery(resp.ResultData)
	if err != nil {
		return QueryResult{}, invalidResponse(c.base, req, "%v", err)
	}
	return res, nil
}

// Read reads one record with its table rows.
func (c *Client) Read(ctx context.Context, id string, fields, tableFields []string) (ReadResult, error) {
	req := Request{Action: ActionRead, ID: id, Fields: fields, TableFields: tableFields}
	resp, err := c.Post(ctx, req)
	if err != nil {
		return ReadResult{}, err
	}
	res, err := parseTable(resp.ResultData)
	if err != nil {
		return ReadResult{}, invalidResponse(c.base, req, "%v", err)
	}
	return ReadResult(res), nil
}

// Infosystem runs an infosystem with the given inputs.
func (c *Client) Infosystem(ctx context.Context, req Request) (InfosystemResult, error) {
	req.Action = ActionInfosystem
	resp, err := c.Post(ctx, req)
	if err != nil {
		return InfosystemResult{}, err
	}
	res, err := parseTable(resp.ResultData)
	if err != nil {
		return InfosystemResult{}, invalidResponse(c.base, req, "%v", err)
	}
	return InfosystemResult(res), nil
}

// Create creates a record and returns its ID.
func (c *Client) Create(ctx context.Context, databaseAndGroup string, data []Field) (CreateResult, error) {
	req := Request{Action: ActionCreate, DatabaseAndGroup: databaseAndGroup, Data: data}
	resp, err := c.Post(ctx, req)
	if err != nil {
		return CreateResult{}, err
	}
	res, err := parseCreate(resp.ResultData)
	if err != nil {
		return CreateResult{}, invalidResponse(c.base, req, "%v", err)
	}
	return res, nil
}
