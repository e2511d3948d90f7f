package ghprofile

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// getJSON performs an upstream GET and decodes the JSON response into out.
// Transient failures are retried up to retries extra attempts with
// exponential backoff; a negative retries falls back to the client default.
func (c *Client) getJSON(ctx context.Context, rawURL, token string, retries int, out any) error {
	if retries < 0 {
		retries = c.retries
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.doGet(ctx, rawURL, token)
		if err != nil {
			// No response at all. Context cancellation is the caller's
			// decision and is surfaced as-is.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			lastErr := &APIError{Msg: "request failed", cause: err}
			if attempt >= retries {
				return lastErr
			}
			if err := c.sleep(ctx, c.backoffDelay(attempt)); err != nil {
				return err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return &APIError{Status: http.StatusBadGateway, Msg: "reading response body", cause: readErr}
			}
			if err := json.Unmarshal(body, out); err != nil {
				return &APIError{Status: http.StatusBadGateway, Msg: "invalid JSON in response", cause: err}
			}
			return nil
		}

		lastErr := apiErrorFromResponse(resp, body)
		if !retryableResponse(resp) || attempt >= retries {
			return lastErr
		}

		delay := c.backoffDelay(attempt)
		// Honor whichever upstream wait signal is longer, still bounded by
		// the per-attempt cap.
		if wait := rateLimitWait(resp.Header, c.now()); wait > delay {
			delay = wait
		}
		if delay > c.backoffMax {
			delay = c.backoffMax
		}
		c.logDebug("retrying github request",
			"url", rawURL, "status", resp.StatusCode, "attempt", attempt+1, "wait", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (c *Client) doGet(ctx context.Context, rawURL, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.httpClient.Do(req)
}

// backoffDelay doubles from the base each attempt, capped at the maximum.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.backoffBase
	for i := 0; i < attempt && delay < c.backoffMax; i++ {
		delay *= 2
	}
	if delay > c.backoffMax {
		delay = c.backoffMax
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryableResponse reports whether a response signals a transient condition:
// a server error, 429, or a 403 with the rate limit exhausted.
func retryableResponse(resp *http.Response) bool {
	switch {
	case resp.StatusCode >= 500:
		return true
	case resp.StatusCode == http.StatusTooManyRequests:
		return true
	case resp.StatusCode == http.StatusForbidden:
		return strings.TrimSpace(resp.Header.Get("X-RateLimit-Remaining")) == "0"
	default:
		return false
	}
}

// rateLimitWait returns the wait demanded by Retry-After or the rate-limit
// reset timestamp, whichever is longer. Zero when neither applies.
func rateLimitWait(h http.Header, now time.Time) time.Duration {
	var wait time.Duration

	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			wait = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(v); err == nil {
			wait = at.Sub(now)
		}
	}
	if v := strings.TrimSpace(h.Get("X-RateLimit-Reset")); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			if until := time.Unix(unix, 0).Sub(now); until > wait {
				wait = until
			}
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func apiErrorFromResponse(resp *http.Response, body []byte) *APIError {
	msg := resp.Status
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	}
	return &APIError{
		Status: resp.StatusCode,
		Msg:    msg,
		Body:   string(body),
	}
}
