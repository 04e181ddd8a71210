// Package session is the authenticated client for the Qeem API.
//
// A Client owns the credential for a single identity. It attaches the bearer token
// to every request, refreshes the token pair when the API rejects it (one shared
// refresh no matter how many requests fail at once), retries the rejected request
// once, and clears all session state when the session cannot be recovered.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/qeem-client/credentials"
	"github.com/jrsteele09/qeem-client/users"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshTimeout = 15 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultUserAgent      = "qeem-client/1.0"
)

// State of the session
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// IdentityListener is told when the authenticated identity changes.
// An empty id means no identity.
type IdentityListener func(previous, current string)

// Client is the session-aware API client. It is safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	store          credentials.Store
	logger         zerolog.Logger
	refreshTimeout time.Duration
	nowTime        func() time.Time
	onExpired      func()
	listeners      []IdentityListener
	userAgent      string

	mu    sync.RWMutex
	cred  *credentials.Credential // never mutated in place; replaced as a whole
	user  *users.User
	state State

	refreshes singleflight.Group
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for every call
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithStore sets where the credential is persisted. Defaults to memory.
func WithStore(store credentials.Store) ClientOption {
	return func(c *Client) {
		c.store = store
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRefreshTimeout bounds how long the shared refresh may stay in flight
func WithRefreshTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.refreshTimeout = d
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// WithOnExpired registers the callback run once each time the session expires
func WithOnExpired(fn func()) ClientOption {
	return func(c *Client) {
		c.onExpired = fn
	}
}

// WithIdentityListener adds a listener for identity changes
func WithIdentityListener(l IdentityListener) ClientOption {
	return func(c *Client) {
		c.listeners = append(c.listeners, l)
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates an anonymous client for the API at baseURL.
func New(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[session.New] invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: defaultRequestTimeout},
		store:          credentials.NewMemoryStore(),
		logger:         zerolog.Nop(),
		refreshTimeout: defaultRefreshTimeout,
		nowTime:        time.Now,
		userAgent:      defaultUserAgent,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.httpClient == nil {
		return nil, errors.New("[session.New] http client is required")
	}
	if c.store == nil {
		return nil, errors.New("[session.New] credential store is required")
	}
	if c.refreshTimeout <= 0 {
		return nil, errors.New("[session.New] refresh timeout must be positive")
	}
	return c, nil
}

// State returns the current session state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// CurrentUser returns a copy of the authenticated user, or nil.
func (c *Client) CurrentUser() *users.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// IdentityID returns the id of the authenticated user, or "" when anonymous.
func (c *Client) IdentityID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user.IdentityID()
}

// AccessToken returns the access token requests are currently sent with.
func (c *Client) AccessToken() string {
	return c.snapshot().AccessToken()
}

func (c *Client) snapshot() *credentials.Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cred
}

func (c *Client) notify(previous, current string) {
	if previous == current {
		return
	}
	for _, l := range c.listeners {
		l(previous, current)
	}
}

// replaceCredential swaps in a refreshed pair if the pair in used is still the
// current one. It reports the credential that is current afterwards.
func (c *Client) replaceCredential(used, next *credentials.Credential) *credentials.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cred == nil || !c.cred.SamePair(used) {
		return c.cred
	}
	// The identity may have been bound while the refresh was in flight.
	next.UserID = c.cred.UserID
	c.cred = next
	return next
}

// clear drops the session if it still holds the pair in used (nil matches
// anything) and reports whether it did.
func (c *Client) clear(ctx context.Context, used *credentials.Credential) bool {
	c.mu.Lock()
	if c.cred == nil || (used != nil && !c.cred.SamePair(used)) {
		c.mu.Unlock()
		return false
	}
	previous := c.user.IdentityID()
	c.cred = nil
	c.user = nil
	c.state = Anonymous
	c.mu.Unlock()

	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear stored credential")
	}
	c.notify(previous, "")
	return true
}
