package rates

import (
	"context"
	"net/http"
	"slices"

	"github.com/jrsteele09/qeem-client/cache"
)

const historyCacheKey = "rates/history"

// Requester issues authenticated API calls. *session.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
	IdentityID() string
}

// Service calculates rates and lists past calculations
type Service struct {
	api   Requester
	cache *cache.Identity
}

// NewService creates a rate service. A nil cache disables caching.
func NewService(api Requester, c *cache.Identity) *Service {
	return &Service{api: api, cache: c}
}

// Calculate validates req and asks the API for a recommendation.
func (s *Service) Calculate(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	owner := s.api.IdentityID()
	var resp Response
	if err := s.api.Do(ctx, http.MethodPost, CalculatePath, req, &resp); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Remove(owner, historyCacheKey)
	}
	return &resp, nil
}

// History returns past calculations, newest first as the API orders them.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	owner := s.api.IdentityID()
	if s.cache != nil {
		if h, ok := cache.GetAs[[]HistoryEntry](s.cache, owner, historyCacheKey); ok {
			return slices.Clone(h), nil
		}
	}

	var history []HistoryEntry
	if err := s.api.Do(ctx, http.MethodGet, HistoryPath, nil, &history); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(owner, historyCacheKey, slices.Clone(history))
	}
	return history, nil
}
