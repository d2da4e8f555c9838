package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxErrorText bounds how much of a non-JSON error body ends up in Message.
const maxErrorText = 200

// APIError is a non-2xx response from Finnhub.
type APIError struct {
	StatusCode int
	Path       string
	Message    string        // Finnhub's "error" field, else the status text
	RetryAfter time.Duration // From the Retry-After header on 429s
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("finnhub: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("finnhub %s: status %d: %s", e.Path, e.StatusCode, e.Message)
}

// IsRateLimited reports whether the request hit the API call limit.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsRetryable reports whether the request may succeed if sent again.
// Finnhub answers rate limiting with 429 and transient faults with 5xx;
// 501 means the endpoint does not exist.
func (e *APIError) IsRetryable() bool {
	if e.IsRateLimited() {
		return true
	}
	return e.StatusCode >= 500 && e.StatusCode != http.StatusNotImplemented
}

// newAPIError builds an APIError from a failed response. Finnhub reports
// failures as {"error": "..."}.
func newAPIError(resp *http.Response, path string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Path:       path,
		Body:       body,
	}

	var payload struct {
		Error string `json:"error"`
	}
	switch {
	case json.Unmarshal(body, &payload) == nil && payload.Error != "":
		apiErr.Message = payload.Error
	case len(body) > 0 && !json.Valid(body):
		text := strings.TrimSpace(string(body))
		if len(text) > maxErrorText {
			text = text[:maxErrorText]
		}
		apiErr.Message = text
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	if apiErr.IsRateLimited() {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

// doRequest performs one HTTP request against the API.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Finnhub-Token", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp, path, body)
	}

	return body, nil
}

// retryDelay returns the wait before the given retry attempt (1-based):
// retryBackoff doubled per attempt, scaled by a random factor in [0.5, 1.5).
func (c *Client) retryDelay(attempt int) time.Duration {
	base := c.retryBackoff << (attempt - 1)
	if base <= 0 {
		return 0
	}
	return base/2 + time.Duration(rand.Int64N(int64(base)))
}

// doWithRetry performs a request, retrying rate limits and server faults.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	var lastErr error
	var wait time.Duration

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying finnhub request",
				"attempt", attempt,
				"wait", wait,
				"path", path,
			)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		body, err := c.doRequest(ctx, method, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}

		wait = c.retryDelay(attempt + 1)
		if apiErr.IsRateLimited() {
			c.logger.Warn("finnhub rate limit reached", "path", path, "message", apiErr.Message)
			wait = max(wait, apiErr.RetryAfter)
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET request with retries and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}
