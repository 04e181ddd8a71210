package credentials

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// expiryDelta is how early an access token is treated as expired, so a request is
// never sent with a token about to lapse in flight.
const expiryDelta = 10 * time.Second

// Credential is the token pair held for the single authenticated identity.
// The access token is short-lived; the refresh token is only ever sent to the
// refresh and logout endpoints.
type Credential struct {
	Token  *oauth2.Token
	UserID string // Identity the pair belongs to, set after the identity fetch
}

// New builds a credential from a token endpoint response.
func New(accessToken, refreshToken, tokenType string, expiry time.Time) *Credential {
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &Credential{
		Token: &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    tokenType,
			Expiry:       expiry,
		},
	}
}

func (c *Credential) AccessToken() string {
	if c == nil || c.Token == nil {
		return ""
	}
	return c.Token.AccessToken
}

func (c *Credential) RefreshToken() string {
	if c == nil || c.Token == nil {
		return ""
	}
	return c.Token.RefreshToken
}

// Complete reports whether both halves of the pair are present.
func (c *Credential) Complete() bool {
	return c.AccessToken() != "" && c.RefreshToken() != ""
}

// Expired reports whether the access token has a known expiry that has passed.
// A zero expiry means unknown and is never treated as expired.
func (c *Credential) Expired(now time.Time) bool {
	if c == nil || c.Token == nil || c.Token.Expiry.IsZero() {
		return false
	}
	return !now.Before(c.Token.Expiry.Add(-expiryDelta))
}

// SamePair reports whether c and other hold the same token pair. Two nil
// credentials match; the bound identity is ignored.
func (c *Credential) SamePair(other *Credential) bool {
	if (c == nil) != (other == nil) {
		return false
	}
	return c.AccessToken() == other.AccessToken() && c.RefreshToken() == other.RefreshToken()
}

// Clone returns a deep copy so stores and callers never share mutable state.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	out := &Credential{UserID: c.UserID}
	if c.Token != nil {
		tok := *c.Token
		out.Token = &tok
	}
	return out
}

// Store persists the credential in a single process-wide slot.
type Store interface {
	// Load returns the stored credential or errors.ErrNoCredential.
	Load(ctx context.Context) (*Credential, error)
	// Save replaces the stored credential; both tokens are written together.
	Save(ctx context.Context, c *Credential) error
	// Clear empties the slot. Clearing an empty slot is not an error.
	Clear(ctx context.Context) error
}
