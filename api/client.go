// Package api is the WHOOP developer API client. Every call carries a bearer
// token from the token manager, recovers once from a 401 by forcing a refresh
// and maps failures to apperr kinds.
package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"github.com/phuslu/log"

	"github.com/go-whoop/whoop-cli/apperr"
	"github.com/go-whoop/whoop-cli/auth"
)

const (
	// DefaultBaseURL is the WHOOP developer API origin.
	DefaultBaseURL = "https://api.prod.whoop.com/developer"

	defaultTimeout = 30 * time.Second
)

// User-facing failure messages.
const (
	msgRateLimited  = "Rate limited by WHOOP API. Retry after %ds."
	msgNotFound     = "Resource not found. Check the ID and try again."
	msgServerError  = "WHOOP API server error. Please try again later."
	msgNetworkError = "Could not reach WHOOP API. Check your internet connection."
	msgStatusFailed = "Request failed with status %d"
)

// TokenSource supplies bearer tokens. forceRefresh skips the expiry check.
type TokenSource interface {
	ValidToken(ctx context.Context, forceRefresh bool) (string, error)
}

// Client calls the WHOOP API. It holds no state besides its transport.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	retry      *retry.Client
	timeout    time.Duration
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API origin.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets a logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an API client. Transport-level retries are disabled and
// every status is handed back as a response; the only automatic retry is the
// single one after a 401.
func NewClient(tokens TokenSource, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: DefaultBaseURL,
		tokens:  tokens,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	if c.logger == nil {
		c.logger = &log.Logger{Level: log.ErrorLevel, Writer: &log.IOWriter{Writer: io.Discard}}
	}

	rc, err := retry.NewClient(
		retry.WithHTTPClient(c.httpClient),
		retry.WithMaxRetries(0),
		retry.WithRetryableChecker(func(error, *http.Response) bool { return false }),
		retry.WithLogger(auth.NewRetryLogger(c.logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	c.retry = rc
	return c, nil
}

// do performs one API call, decoding a JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	token, err := c.tokens.ValidToken(ctx, false)
	if err != nil {
		return err
	}

	status, header, body, err := c.send(ctx, method, path, query, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		c.logger.Debug().Str("path", path).Msg("access token rejected, forcing refresh")

		token, err = c.tokens.ValidToken(ctx, true)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return apperr.Wrap(apperr.SessionExpired, http.StatusUnauthorized, auth.MsgSessionExpired, err)
		}

		status, header, body, err = c.send(ctx, method, path, query, token)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return apperr.New(apperr.SessionExpired, http.StatusUnauthorized, auth.MsgSessionExpired)
		}
	}

	if err := classify(status, header, body, time.Now()); err != nil {
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

// send issues a single attempt. Transport failures come back as NetworkError.
func (c *Client) send(
	ctx context.Context,
	method, path string,
	query url.Values,
	token string,
) (int, http.Header, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.retry.DoWithContext(reqCtx, req)
	if err != nil && resp == nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return 0, nil, nil, apperr.Wrap(apperr.NetworkError, 0, msgNetworkError, err)
	}
	// A response that came with an error still carries the status to classify.
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, apperr.Wrap(apperr.NetworkError, 0, msgNetworkError, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	return resp.StatusCode, resp.Header, body, nil
}

// classify maps a non-2xx response to an apperr kind. 401 reaching here is a
// plain request failure.
func classify(status int, header http.Header, body []byte, now time.Time) error {
	switch {
	case status < http.StatusBadRequest:
		return nil
	case status == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(header.Get("Retry-After"), now)
		e := apperr.New(apperr.RateLimited, status, fmt.Sprintf(msgRateLimited, retryAfter))
		e.RetryAfter = retryAfter
		return e
	case status == http.StatusNotFound:
		return apperr.New(apperr.NotFound, status, msgNotFound)
	case status < http.StatusInternalServerError:
		return apperr.New(apperr.RequestFailed, status, bodyMessage(body, status))
	default:
		return apperr.New(apperr.ServerError, status, msgServerError)
	}
}

// parseRetryAfter reads delay-seconds or an HTTP-date, defaulting to 60s.
func parseRetryAfter(value string, now time.Time) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return apperr.DefaultRetryAfter
	}
	if n, err := strconv.Atoi(value); err == nil && n >= 0 {
		return n
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return int((d + time.Second - 1) / time.Second)
		}
		return 0
	}
	return apperr.DefaultRetryAfter
}

// bodyMessage pulls "message" or "error" out of a JSON error body.
func bodyMessage(body []byte, status int) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "error"} {
			if v, ok := payload[key]; ok && v != nil {
				if s, ok := v.(string); ok {
					if s != "" {
						return s
					}
					continue
				}
				return fmt.Sprint(v)
			}
		}
	}
	return fmt.Sprintf(msgStatusFailed, status)
}
