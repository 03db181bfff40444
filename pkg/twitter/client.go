package twitter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Zxoir/twitter-month-archiver/pkg/logger"
	"github.com/Zxoir/twitter-month-archiver/pkg/ratelimit"
)

// Error types for X API operations
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an X API error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("twitter %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// errorFromStatus classifies a non-2xx status into a typed error.
func errorFromStatus(status int, body string) *Error {
	var t ErrorType
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		t = ErrorTypeAuth
	case status == http.StatusNotFound:
		t = ErrorTypeNotFound
	case status == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case status >= 500:
		t = ErrorTypeServerError
	default:
		t = ErrorTypeUnknown
	}
	return &Error{
		Type:    t,
		Message: fmt.Sprintf("unexpected status %d: %s", status, body),
		Code:    status,
	}
}

// Client is an X v2 API client with bearer-token auth. Throttled responses
// (429/503) are retried in place after a backoff sleep, so callers never see
// a rate limit unless a retry cap is configured.
type Client struct {
	httpClient         *http.Client
	baseURL            string
	bearerToken        string
	backoff            *ratelimit.Backoff
	maxThrottleRetries int
	logger             logger.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (useful for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBackoff sets the throttle backoff strategy.
func WithBackoff(b *ratelimit.Backoff) Option {
	return func(c *Client) {
		c.backoff = b
	}
}

// WithMaxThrottleRetries caps throttle retries per request. 0 means
// unlimited, which is the historical behaviour and the default.
func WithMaxThrottleRetries(n int) Option {
	return func(c *Client) {
		c.maxThrottleRetries = n
	}
}

// NewClient creates a new X API client.
func NewClient(bearerToken string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     DefaultBaseURL,
		bearerToken: bearerToken,
		backoff:     ratelimit.New(),
		logger:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get performs an authenticated GET. Transport failures come back as typed
// network errors.
func (c *Client) get(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	return resp, nil
}

// throttled reports whether the status is a slow-down signal.
func throttled(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// LookupUser resolves a handle (without @) to its numeric user id.
//
// A throttled response sleeps per the backoff and retries the same lookup.
// Any other failure to resolve is reported by an empty id: a 200 without a
// nested id, or a non-throttle error status (logged, not retried). Transport
// errors are returned so the caller can tell the difference.
func (c *Client) LookupUser(username string) (string, error) {
	url := UserByUsernameURL(c.baseURL, username)

	for retries := 0; ; retries++ {
		resp, err := c.get(url)
		if err != nil {
			return "", err
		}

		if throttled(resp.StatusCode) {
			headers := resp.Header
			drain(resp)
			if c.maxThrottleRetries > 0 && retries >= c.maxThrottleRetries {
				return "", &Error{
					Type:    ErrorTypeRateLimit,
					Message: fmt.Sprintf("throttle retry limit (%d) reached looking up %s", c.maxThrottleRetries, username),
					Code:    resp.StatusCode,
				}
			}
			c.logger.InfoWithFields("rate limited, backing off", map[string]interface{}{
				"username": username,
				"status":   resp.StatusCode,
			})
			c.backoff.Sleep(headers)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return "", &Error{
				Type:    ErrorTypeNetwork,
				Message: fmt.Sprintf("failed to read response body: %v", readErr),
				Code:    resp.StatusCode,
			}
		}

		if resp.StatusCode != http.StatusOK {
			c.logger.WarnWithFields("user lookup failed", map[string]interface{}{
				"username": username,
				"status":   resp.StatusCode,
				"body":     preview(body),
			})
			return "", nil
		}

		var lookup userLookupResponse
		if err := json.Unmarshal(body, &lookup); err != nil {
			c.logger.WarnWithFields("failed to parse user lookup response", map[string]interface{}{
				"username": username,
				"error":    err.Error(),
				"body":     preview(body),
			})
			return "", nil
		}

		return lookup.Data.ID, nil
	}
}

// UserTweets fetches one timeline page for a user id.
//
// Throttled responses are retried in place after the backoff sleep, without
// the caller seeing them, so pagination state never advances on a 429/503.
// Any other error is terminal for this request.
func (c *Client) UserTweets(userID string, q TimelineQuery) (*Page, error) {
	url := UserTweetsURL(c.baseURL, userID, q)

	for retries := 0; ; retries++ {
		resp, err := c.get(url)
		if err != nil {
			return nil, err
		}

		if throttled(resp.StatusCode) {
			headers := resp.Header
			drain(resp)
			if c.maxThrottleRetries > 0 && retries >= c.maxThrottleRetries {
				return nil, &Error{
					Type:    ErrorTypeRateLimit,
					Message: fmt.Sprintf("throttle retry limit (%d) reached fetching timeline", c.maxThrottleRetries),
					Code:    resp.StatusCode,
				}
			}
			c.logger.InfoWithFields("rate limited, backing off", map[string]interface{}{
				"user_id": userID,
				"status":  resp.StatusCode,
			})
			c.backoff.Sleep(headers)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &Error{
				Type:    ErrorTypeNetwork,
				Message: fmt.Sprintf("failed to read response body: %v", readErr),
				Code:    resp.StatusCode,
			}
		}

		if resp.StatusCode != http.StatusOK {
			return nil, errorFromStatus(resp.StatusCode, preview(body))
		}

		var page Page
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, &Error{
				Type:    ErrorTypeParsing,
				Message: fmt.Sprintf("failed to parse timeline page: %v", err),
				Code:    resp.StatusCode,
			}
		}

		return &page, nil
	}
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// preview truncates a response body for log output.
func preview(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
