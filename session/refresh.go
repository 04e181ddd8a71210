package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/qeem-client/credentials"
	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/jrsteele09/qeem-client/metrics"
)

// API paths used by the session
const (
	LoginPath              = "/api/v1/auth/login"
	RegisterPath           = "/api/v1/auth/register"
	RefreshPath            = "/api/v1/auth/refresh"
	LogoutPath             = "/api/v1/auth/logout"
	MePath                 = "/api/v1/auth/me"
	VerifyEmailPath        = "/api/v1/auth/verify-email"
	ResendVerificationPath = "/api/v1/auth/resend-verification"
	HealthPath             = "/health"
)

// tokenResponse is the body of login and refresh
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// credential builds a Credential from a token response. A response without a
// refresh token keeps the one from previous.
func (c *Client) credential(tr tokenResponse, previous *credentials.Credential) (*credentials.Credential, error) {
	if tr.AccessToken == "" {
		return nil, errors.New("[session] token response has no access_token")
	}
	refresh := tr.RefreshToken
	if refresh == "" {
		refresh = previous.RefreshToken()
	}
	if refresh == "" {
		return nil, errors.New("[session] token response has no refresh_token")
	}

	cred := credentials.New(tr.AccessToken, refresh, tr.TokenType, c.expiry(tr))
	if previous != nil {
		cred.UserID = previous.UserID
	}
	return cred, nil
}

// expiry comes from expires_in, else from the exp claim of a JWT access token.
// Zero means unknown.
func (c *Client) expiry(tr tokenResponse) time.Time {
	if tr.ExpiresIn > 0 {
		return c.nowTime().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Refresh exchanges the refresh token for a new pair, joining any refresh
// already in flight.
func (c *Client) Refresh(ctx context.Context) error {
	cred := c.snapshot()
	if cred == nil {
		return apperrors.ErrNotAuthenticated
	}
	_, err := c.refreshFrom(ctx, cred)
	return err
}

// refreshFrom returns the credential to use in place of used, which the API
// rejected. If used has already been superseded the current credential is
// returned without a refresh. Otherwise every caller waits on one shared
// refresh; a caller whose ctx ends stops waiting but the refresh carries on.
func (c *Client) refreshFrom(ctx context.Context, used *credentials.Credential) (*credentials.Credential, error) {
	current := c.snapshot()
	if current == nil {
		return nil, apperrors.ErrSessionExpired
	}
	if !current.SamePair(used) {
		return current, nil
	}

	ch := c.refreshes.DoChan(current.RefreshToken(), func() (any, error) {
		return c.doRefresh(ctx, current)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*credentials.Credential), nil
	}
}

// doRefresh runs detached from the first caller's cancellation, bounded by the
// refresh timeout.
func (c *Client) doRefresh(parent context.Context, used *credentials.Credential) (*credentials.Credential, error) {
	if current := c.snapshot(); !current.SamePair(used) {
		if current == nil {
			return nil, apperrors.ErrSessionExpired
		}
		return current, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.refreshTimeout)
	defer cancel()

	c.logger.Debug().Str("user_id", used.UserID).Msg("Refreshing access token")

	var tr tokenResponse
	err := c.call(ctx, http.MethodPost, RefreshPath, refreshRequest{RefreshToken: used.RefreshToken()}, &tr, nil)
	var next *credentials.Credential
	if err == nil {
		next, err = c.credential(tr, used)
	}
	if err != nil {
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshFailed).Inc()
		c.logger.Warn().Err(err).Str("user_id", used.UserID).Msg("Token refresh failed")
		return nil, c.expire(ctx, used)
	}

	metrics.RefreshTotal.WithLabelValues(metrics.RefreshSucceeded).Inc()
	if current := c.replaceCredential(used, next); current != next {
		// Logged out or replaced while the refresh was in flight.
		if current == nil {
			return nil, apperrors.ErrSessionExpired
		}
		return current, nil
	}
	if err := c.store.Save(ctx, next); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist refreshed credential")
	}
	return next, nil
}

// expire clears the session held by used and reports ErrSessionExpired. The
// expiry callback runs only for the caller that actually cleared it.
func (c *Client) expire(ctx context.Context, used *credentials.Credential) error {
	if c.clear(ctx, used) {
		metrics.SessionExpiredTotal.Inc()
		c.logger.Info().Str("user_id", used.UserID).Msg("Session expired")
		if c.onExpired != nil {
			c.onExpired()
		}
	}
	return fmt.Errorf("[session] %w", apperrors.ErrSessionExpired)
}
