package users

import (
	"context"
	"net/http"

	"github.com/jrsteele09/qeem-client/cache"
)

const profileCacheKey = "users/profile"

// Requester issues authenticated API calls. *session.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
	IdentityID() string
}

// Service reads and updates the current user's profile
type Service struct {
	api   Requester
	cache *cache.Identity
}

// NewService creates a profile service. A nil cache disables caching.
func NewService(api Requester, c *cache.Identity) *Service {
	return &Service{api: api, cache: c}
}

// Profile returns the current user's profile, from cache when fresh.
func (s *Service) Profile(ctx context.Context) (*Profile, error) {
	owner := s.api.IdentityID()
	if s.cache != nil {
		if p, ok := cache.GetAs[Profile](s.cache, owner, profileCacheKey); ok {
			return &p, nil
		}
	}

	var p Profile
	if err := s.api.Do(ctx, http.MethodGet, ProfilePath, nil, &p); err != nil {
		return nil, err
	}
	s.remember(owner, p)
	return &p, nil
}

// UpdateProfile sends a partial update and replaces the cached profile with the result.
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	owner := s.api.IdentityID()
	var p Profile
	if err := s.api.Do(ctx, http.MethodPut, ProfilePath, update, &p); err != nil {
		return nil, err
	}
	s.remember(owner, p)
	return &p, nil
}

// remember caches p for owner, the identity the request was sent as.
func (s *Service) remember(owner string, p Profile) {
	if s.cache == nil {
		return
	}
	s.cache.Set(owner, profileCacheKey, p)
}
