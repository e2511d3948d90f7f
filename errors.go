package ghprofile

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoLinkedAccount = errors.New("no linked account")
	ErrNoEmail         = errors.New("github account has no email address")
)

// ConfigurationError reports missing or invalid caller input. It is never
// retried and always maps to a client-side fault.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

// OAuthError reports a failure in the OAuth flow: the token exchange or the
// profile fetch. Status is the HTTP-like status the boundary layer should
// translate for the user; Body carries the upstream payload when one was read.
type OAuthError struct {
	Status int
	Msg    string
	Body   string
}

func (e *OAuthError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("oauth: %s (status %d)", e.Msg, e.Status)
	}
	return fmt.Sprintf("oauth: status %d", e.Status)
}

// APIError reports a failed GitHub data fetch after the retry budget is
// exhausted. Status is the last upstream status observed, or zero when no
// response arrived at all.
type APIError struct {
	Status int
	Msg    string
	Body   string

	cause error
}

func (e *APIError) Error() string {
	switch {
	case e.cause != nil:
		return fmt.Sprintf("github: %s: %v", e.Msg, e.cause)
	case e.Msg != "":
		return fmt.Sprintf("github: %s (status %d)", e.Msg, e.Status)
	default:
		return fmt.Sprintf("github: status %d", e.Status)
	}
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Retryable reports whether the recorded status is in the transient set:
// 5xx, 429, or no response at all. A rate-limited 403 is retryable too, but
// that is decided from the response headers before the error is built.
func (e *APIError) Retryable() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}
