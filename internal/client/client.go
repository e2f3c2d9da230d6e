// Package client calls Backend service methods, either through the HTTP
// gateway or in process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	defaultMaxRetries      = 2
	defaultInitialInterval = 100 * time.Millisecond
	maxResponseBody        = 4 << 20
)

// Error is a failed method call. Status is zero for in-process calls.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Invoker is an in-process transport, such as runtime.Invoker.
type Invoker interface {
	Invoke(ctx context.Context, method string, input []byte) ([]byte, error)
}

// codedError is implemented by in-process failures, such as
// *runtime.ServiceError.
type codedError interface {
	error
	ErrorCode() string
	ErrorMessage() string
}

// Client calls the methods of one service.
type Client struct {
	endpoint        string
	httpClient      *http.Client
	invoker         Invoker
	maxRetries      uint64
	retryMethods    map[string]bool
	initialInterval time.Duration
	logger          zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for gateway calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMaxRetries sets how often a call to a read-only method is retried
// after a transport failure or a 502, 503 or 504 reply. Default 2.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryMethods marks additional methods as safe to send more than once.
// greet and the get_ methods are always retried.
func WithRetryMethods(methods ...string) Option {
	return func(c *Client) {
		for _, m := range methods {
			c.retryMethods[m] = true
		}
	}
}

// WithInitialInterval sets the first retry delay. Default 100ms.
func WithInitialInterval(d time.Duration) Option {
	return func(c *Client) {
		c.initialInterval = d
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the service mounted at endpoint, for example
// http://localhost:8080/rpc/eventsphere.Backend.v1.
func New(endpoint string, opts ...Option) *Client {
	c := newClient(opts)
	c.endpoint = strings.TrimSuffix(endpoint, "/")
	return c
}

// NewLocal creates a client that calls invoker directly.
func NewLocal(invoker Invoker, opts ...Option) *Client {
	c := newClient(opts)
	c.invoker = invoker
	return c
}

func newClient(opts []Option) *Client {
	c := &Client{
		httpClient:      http.DefaultClient,
		maxRetries:      defaultMaxRetries,
		retryMethods:    map[string]bool{},
		initialInterval: defaultInitialInterval,
		logger:          zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With().Str("component", "client").Logger()
	return c
}

// Call invokes method with in encoded as JSON and decodes the result into
// out. out may be nil.
func (c *Client) Call(ctx context.Context, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s input: %w", method, err)
	}

	var data []byte
	if c.invoker != nil {
		data, err = c.invokeLocal(ctx, method, body)
	} else {
		data, err = c.post(ctx, method, body)
	}
	if err != nil {
		return err
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s output: %w", method, err)
	}
	return nil
}

func (c *Client) invokeLocal(ctx context.Context, method string, body []byte) ([]byte, error) {
	data, err := c.invoker.Invoke(ctx, method, body)
	if err == nil {
		return data, nil
	}

	var coded codedError
	if errors.As(err, &coded) {
		return nil, &Error{Code: coded.ErrorCode(), Message: coded.ErrorMessage()}
	}
	return nil, err
}

func (c *Client) post(ctx context.Context, method string, body []byte) ([]byte, error) {
	url := c.endpoint + "/" + method

	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, fmt.Errorf("post %s: %w", method, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", method, err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}

		callErr := decodeError(resp.StatusCode, data)
		if retryable(resp.StatusCode) {
			return nil, callErr
		}
		return nil, backoff.Permanent(callErr)
	}

	// A timed out call may still complete on the server, so methods that
	// change state are sent once.
	maxRetries := c.maxRetries
	if !c.idempotent(method) {
		maxRetries = 0
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx)

	data, err := backoff.RetryNotifyWithData(op, b, func(err error, next time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("method", method).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("call failed, retrying")
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) idempotent(method string) bool {
	return method == "greet" || strings.HasPrefix(method, "get_") || c.retryMethods[method]
}

func decodeError(status int, data []byte) *Error {
	callErr := &Error{}
	if err := json.Unmarshal(data, callErr); err != nil || callErr.Code == "" {
		callErr = &Error{Code: "", Message: strings.TrimSpace(string(data))}
	}
	callErr.Status = status
	return callErr
}

func retryable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Greet calls the greet method and returns the greeting text. It implements
// greeter.Greeter.
func (c *Client) Greet(ctx context.Context, name string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.Call(ctx, "greet", map[string]string{"name": name}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
