package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/jrsteele09/qeem-client/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HealthStatus is the body of /health
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Login exchanges e-mail and password for a token pair and fetches the identity
// behind it. The session is Authenticated only once that fetch succeeds. A
// rejected login leaves any existing session untouched.
func (c *Client) Login(ctx context.Context, email, password string) (*users.User, error) {
	c.mu.Lock()
	before := c.state
	c.state = Authenticating
	c.mu.Unlock()

	restore := func() {
		c.mu.Lock()
		if c.state == Authenticating {
			c.state = before
		}
		c.mu.Unlock()
	}

	payload, err := encode(loginRequest{Email: email, Password: password})
	if err != nil {
		restore()
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, LoginPath, payload, nil)
	if err != nil {
		restore()
		return nil, err
	}
	if resp.status == http.StatusUnauthorized || resp.status == http.StatusBadRequest {
		restore()
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidCredentials, apiError(resp).Message)
	}
	var tr tokenResponse
	if err := decode(resp, &tr); err != nil {
		restore()
		return nil, err
	}
	cred, err := c.credential(tr, nil)
	if err != nil {
		restore()
		return nil, err
	}

	// The new pair replaces whatever was held, atomically.
	c.mu.Lock()
	previous := c.user.IdentityID()
	c.cred = cred
	c.user = nil
	c.state = Authenticating
	c.mu.Unlock()
	c.notify(previous, "")

	var fetched users.User
	err = c.call(ctx, http.MethodGet, MePath, nil, &fetched, cred)
	var user *users.User
	if err == nil {
		user, err = c.bind(ctx, fetched)
	}
	if err != nil {
		c.clear(ctx, cred)
		return nil, fmt.Errorf("[Login] fetch identity: %w", err)
	}
	c.logger.Info().Str("user_id", user.IdentityID()).Msg("Logged in")
	return user, nil
}

// establish fetches the identity behind the current credential, refreshing it
// if needed.
func (c *Client) establish(ctx context.Context) (*users.User, error) {
	var user users.User
	if err := c.Do(ctx, http.MethodGet, MePath, nil, &user); err != nil {
		return nil, err
	}
	return c.bind(ctx, user)
}

// bind marks the session Authenticated as user and persists the credential.
func (c *Client) bind(ctx context.Context, user users.User) (*users.User, error) {
	if user.IdentityID() == "" {
		return nil, errors.New("[session] identity response has no id")
	}

	c.mu.Lock()
	current := c.cred
	if current == nil {
		c.mu.Unlock()
		return nil, apperrors.ErrSessionExpired
	}
	// The pair may have been refreshed during the fetch; bind whatever is current.
	bound := current.Clone()
	bound.UserID = user.IdentityID()
	previous := c.user.IdentityID()
	c.cred = bound
	c.user = &user
	c.state = Authenticated
	c.mu.Unlock()

	if err := c.store.Save(ctx, bound); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist credential")
	}
	c.notify(previous, user.IdentityID())
	out := user
	return &out, nil
}

// FetchCurrentUser re-reads the identity of the current session.
func (c *Client) FetchCurrentUser(ctx context.Context) (*users.User, error) {
	if c.snapshot() == nil {
		return nil, apperrors.ErrNotAuthenticated
	}
	return c.establish(ctx)
}

// Restore resumes a persisted session. An unusable credential is discarded; a
// credential that could not be checked because the API was unreachable or
// failing is kept for the next attempt.
func (c *Client) Restore(ctx context.Context) (*users.User, error) {
	cred, err := c.store.Load(ctx)
	if errors.Is(err, apperrors.ErrNoCredential) {
		return nil, apperrors.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("[Restore] load credential: %w", err)
	}
	if !cred.Complete() {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to clear incomplete credential")
		}
		return nil, apperrors.ErrNotAuthenticated
	}

	c.mu.Lock()
	previous := c.user.IdentityID()
	c.cred = cred
	c.user = nil
	c.state = Authenticating
	c.mu.Unlock()
	c.notify(previous, "")

	user, err := c.establish(ctx)
	if err == nil {
		c.logger.Debug().Str("user_id", user.IdentityID()).Msg("Session restored")
		return user, nil
	}

	if errors.Is(err, apperrors.ErrNetwork) || errors.Is(err, apperrors.ErrServer) {
		c.mu.Lock()
		if c.cred.SamePair(cred) {
			c.cred = nil
			c.state = Anonymous
		}
		c.mu.Unlock()
		return nil, fmt.Errorf("[Restore] %w", err)
	}
	c.clear(ctx, nil)
	return nil, fmt.Errorf("[Restore] %w", err)
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, r users.Registration) (*users.User, error) {
	if err := users.ValidateRegistration(r); err != nil {
		return nil, err
	}
	var user users.User
	if err := c.call(ctx, http.MethodPost, RegisterPath, r, &user, nil); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout clears the session and tells the API, ignoring any failure to do so.
func (c *Client) Logout(ctx context.Context) {
	cred := c.snapshot()
	c.clear(ctx, nil)
	if cred == nil {
		return
	}

	err := c.call(ctx, http.MethodPost, LogoutPath, refreshRequest{RefreshToken: cred.RefreshToken()}, nil, cred)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Logout notification failed")
	}
	c.logger.Info().Str("user_id", cred.UserID).Msg("Logged out")
}

// VerifyEmail confirms an e-mail address with the token sent to it.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.NewValidationError("token", "is required")
	}
	return c.call(ctx, http.MethodPost, VerifyEmailPath, map[string]string{"token": token}, nil, nil)
}

// ResendVerification asks for a new verification e-mail.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.NewValidationError("email", "is required")
	}
	return c.call(ctx, http.MethodPost, ResendVerificationPath, map[string]string{"email": email}, nil, nil)
}

// Health reports whether the API is up.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var h HealthStatus
	if err := c.call(ctx, http.MethodGet, HealthPath, nil, &h, nil); err != nil {
		return nil, err
	}
	return &h, nil
}
