package devapi

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// tokenPair is the body returned by login and refresh
type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// tokenIssuer signs HS256 access tokens and keeps one opaque refresh token per user.
type tokenIssuer struct {
	secret        []byte
	accessTTL     time.Duration
	refreshLength int
	nowTime       func() time.Time

	mu         sync.Mutex
	generation int64            // access tokens from older generations are rejected
	refresh    map[string]int64 // refresh token -> user id
	byUser     map[int64]string
}

func newTokenIssuer(secret []byte, accessTTL time.Duration, refreshLength int, nowTime func() time.Time) *tokenIssuer {
	if refreshLength <= 0 {
		refreshLength = 32
	}
	return &tokenIssuer{
		secret:        secret,
		accessTTL:     accessTTL,
		refreshLength: refreshLength,
		nowTime:       nowTime,
		refresh:       make(map[string]int64),
		byUser:        make(map[int64]string),
	}
}

// Issue creates a fresh pair for userID, replacing any refresh token it held.
func (t *tokenIssuer) Issue(userID int64) (*tokenPair, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.issueLocked(userID)
}

func (t *tokenIssuer) issueLocked(userID int64) (*tokenPair, error) {
	now := t.nowTime()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": now.Unix(),
		"exp": now.Add(t.accessTTL).Unix(),
		"jti": uuid.New().String(),
		"gen": t.generation,
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	// Single refresh token per user
	if existing, ok := t.byUser[userID]; ok {
		delete(t.refresh, existing)
	}
	tokenBytes := make([]byte, t.refreshLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	refresh := hex.EncodeToString(tokenBytes)
	t.refresh[refresh] = userID
	t.byUser[userID] = refresh

	return &tokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(t.accessTTL / time.Second),
	}, nil
}

// Rotate exchanges a refresh token for a new pair. The old token stops working.
func (t *tokenIssuer) Rotate(refresh string) (*tokenPair, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	userID, ok := t.refresh[refresh]
	if !ok {
		return nil, ErrInvalidRefreshToken
	}
	return t.issueLocked(userID)
}

// Revoke drops a refresh token. Unknown tokens are ignored.
func (t *tokenIssuer) Revoke(refresh string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if userID, ok := t.refresh[refresh]; ok {
		delete(t.refresh, refresh)
		delete(t.byUser, userID)
	}
}

// VerifyAccessToken returns the user id an access token was issued to.
func (t *tokenIssuer) VerifyAccessToken(token string) (int64, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.nowTime), jwt.WithExpirationRequired())
	if err != nil {
		return 0, err
	}

	gen, ok := claims["gen"].(float64)
	t.mu.Lock()
	current := t.generation
	t.mu.Unlock()
	if !ok || int64(gen) != current {
		return 0, errors.New("access token revoked")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(sub, 10, 64)
}

// expireAccess invalidates every access token issued so far.
func (t *tokenIssuer) expireAccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
}

func (t *tokenIssuer) revokeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh = make(map[string]int64)
	t.byUser = make(map[int64]string)
}
