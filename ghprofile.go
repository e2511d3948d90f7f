// Package ghprofile links a GitHub account to a local user and fetches the
// account's public repository and language data for profile display.
//
// It is built from three pieces: a short-lived handshake state store for the
// OAuth2 authorization-code flow, an in-memory TTL cache that keeps repeated
// reads off GitHub's rate-limited API, and a client that retries transient
// upstream failures with backoff while honoring rate-limit signaling.
package ghprofile

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	defaultAPIBase   = "https://api.github.com"
	defaultUserAgent = "ghprofile"

	// DefaultRepoCacheTTL bounds how stale a cached repository listing may be.
	DefaultRepoCacheTTL = 5 * time.Minute
	// DefaultLanguageCacheTTL is longer than the repository TTL: language
	// byte counts change far less often than repository activity.
	DefaultLanguageCacheTTL = 1 * time.Hour
	// DefaultStateTTL is how long an issued OAuth handshake state stays
	// consumable.
	DefaultStateTTL = 10 * time.Minute

	defaultCacheSize   = 128
	defaultRetries     = 2
	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffMax  = 30 * time.Second
)

// Config carries the GitHub OAuth application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Scope is the raw requested scope string, split on whitespace and
	// commas, e.g. "read:user user:email".
	Scope string
}

// Client talks to GitHub on behalf of the surrounding application. It owns
// its caches and handshake state store exclusively; losing either only costs
// extra upstream calls.
type Client struct {
	config Config
	scopes []string

	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string

	apiBase  string
	endpoint oauth2.Endpoint

	repoTTL     time.Duration
	languageTTL time.Duration

	retries     int
	backoffBase time.Duration
	backoffMax  time.Duration

	states    *StateStore
	repos     *Cache[[]Repository]
	languages *Cache[map[string]int64]

	now func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets an optional logger for debug-level retry notes. A nil
// logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRepoCacheTTL sets the default TTL for cached repository listings.
func WithRepoCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.repoTTL = ttl
	}
}

// WithLanguageCacheTTL sets the default TTL for cached language mappings.
func WithLanguageCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.languageTTL = ttl
	}
}

// WithRetries sets how many extra attempts follow a retryable failure.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the base delay for the first retry and the cap applied to
// any single wait, including waits extended by rate-limit headers.
func WithBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.backoffBase = base
		}
		if max > 0 {
			c.backoffMax = max
		}
	}
}

// WithStateTTL sets the handshake state validity window.
func WithStateTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.states = NewStateStore(ttl)
		}
	}
}

// WithCacheSize sets the maximum entry count for each cache.
func WithCacheSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.repos = NewCache[[]Repository](n, c.repoTTL)
			c.languages = NewCache[map[string]int64](n, c.languageTTL)
		}
	}
}

// New creates a Client for the given OAuth application settings.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		config:      cfg,
		scopes:      splitScope(cfg.Scope),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		userAgent:   defaultUserAgent,
		apiBase:     defaultAPIBase,
		endpoint:    github.Endpoint,
		repoTTL:     DefaultRepoCacheTTL,
		languageTTL: DefaultLanguageCacheTTL,
		retries:     defaultRetries,
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
		states:      NewStateStore(DefaultStateTTL),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.repos == nil {
		c.repos = NewCache[[]Repository](defaultCacheSize, c.repoTTL)
	}
	if c.languages == nil {
		c.languages = NewCache[map[string]int64](defaultCacheSize, c.languageTTL)
	}
	return c
}

// States returns the handshake state store owned by this client.
func (c *Client) States() *StateStore {
	return c.states
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		RedirectURL:  c.config.RedirectURL,
		Scopes:       c.scopes,
		Endpoint:     c.endpoint,
	}
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}

func splitScope(scope string) []string {
	fields := strings.FieldsFunc(scope, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ','
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
