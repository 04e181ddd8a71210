package market

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/jrsteele09/qeem-client/cache"
	"github.com/jrsteele09/qeem-client/internal/utils"
	"golang.org/x/sync/errgroup"
)

// API paths served for market data
const (
	StatisticsPath = "/api/v1/market/statistics"
	TrendsPath     = "/api/v1/market/trends"
)

// Period types accepted by the market endpoints
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// Requester issues authenticated API calls. *session.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
	IdentityID() string
}

// StatisticsQuery filters /api/v1/market/statistics. Zero fields are omitted.
type StatisticsQuery struct {
	ProjectType string
	Location    string
	PeriodType  string
	DateFrom    time.Time
	DateTo      time.Time
	Limit       int
	Offset      int
}

func (q StatisticsQuery) encode() string {
	v := url.Values{}
	setIf(v, "project_type", q.ProjectType)
	setIf(v, "location", q.Location)
	setIf(v, "period_type", q.PeriodType)
	if !q.DateFrom.IsZero() {
		v.Set("date_from", q.DateFrom.Format(time.DateOnly))
	}
	if !q.DateTo.IsZero() {
		v.Set("date_to", q.DateTo.Format(time.DateOnly))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v.Encode()
}

// TrendsQuery filters /api/v1/market/trends. Zero fields are omitted.
type TrendsQuery struct {
	ProjectType string
	Location    string
	PeriodType  string
	Window      int
}

func (q TrendsQuery) encode() string {
	v := url.Values{}
	setIf(v, "project_type", q.ProjectType)
	setIf(v, "location", q.Location)
	setIf(v, "period_type", q.PeriodType)
	if q.Window > 0 {
		v.Set("window", strconv.Itoa(q.Window))
	}
	return v.Encode()
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}

// StatisticsItem is a statistics record as sent on the wire
type StatisticsItem struct {
	ProjectType string    `json:"project_type"`
	Location    string    `json:"location"`
	PeriodType  string    `json:"period_type,omitempty"`
	PeriodStart time.Time `json:"period_start"`
	AverageRate float64   `json:"average_rate"`
	MedianRate  float64   `json:"median_rate"`
	MinRate     float64   `json:"min_rate"`
	MaxRate     float64   `json:"max_rate"`
	SampleSize  int       `json:"sample_size,omitempty"`
	DemandScore *float64  `json:"demand_score,omitempty"`
	MarketTrend *string   `json:"market_trend,omitempty"`
}

// StatisticsResponse is the body of /api/v1/market/statistics
type StatisticsResponse struct {
	Items  []StatisticsItem `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// TrendsPointItem is a trend point as sent on the wire
type TrendsPointItem struct {
	PeriodStart time.Time `json:"period_start"`
	AverageRate float64   `json:"average_rate"`
	MedianRate  *float64  `json:"median_rate,omitempty"`
	SampleSize  *int      `json:"sample_size,omitempty"`
	MarketTrend *string   `json:"market_trend,omitempty"`
}

// TrendsResponse is the body of /api/v1/market/trends
type TrendsResponse struct {
	ProjectType string            `json:"project_type,omitempty"`
	Location    string            `json:"location,omitempty"`
	PeriodType  string            `json:"period_type"`
	Points      []TrendsPointItem `json:"points"`
}

func (r StatisticsResponse) clone() StatisticsResponse {
	out := r
	out.Items = slices.Clone(r.Items)
	for i := range out.Items {
		out.Items[i].DemandScore = utils.Copy(out.Items[i].DemandScore)
		out.Items[i].MarketTrend = utils.Copy(out.Items[i].MarketTrend)
	}
	return out
}

func (r TrendsResponse) clone() TrendsResponse {
	out := r
	out.Points = slices.Clone(r.Points)
	for i := range out.Points {
		p := &out.Points[i]
		p.MedianRate = utils.Copy(p.MedianRate)
		p.SampleSize = utils.Copy(p.SampleSize)
		p.MarketTrend = utils.Copy(p.MarketTrend)
	}
	return out
}

// Records converts wire items into aggregator records.
func (r StatisticsResponse) Records() []StatisticsRecord {
	out := make([]StatisticsRecord, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, StatisticsRecord{
			ProjectType: it.ProjectType,
			Location:    it.Location,
			PeriodStart: it.PeriodStart,
			AverageRate: it.AverageRate,
			MedianRate:  it.MedianRate,
			MinRate:     it.MinRate,
			MaxRate:     it.MaxRate,
			DemandScore: it.DemandScore,
			TrendLabel:  it.MarketTrend,
		})
	}
	return out
}

// TrendPoints converts wire points into aggregator trend points, in API order.
func (r TrendsResponse) TrendPoints() []TrendPoint {
	out := make([]TrendPoint, 0, len(r.Points))
	for _, p := range r.Points {
		out = append(out, TrendPoint(p))
	}
	return out
}

// Category is a preset market view
type Category string

const (
	CategoryTech      Category = "tech"
	CategoryDesign    Category = "design"
	CategoryMarketing Category = "marketing"
	CategoryAll       Category = "all"
)

var categoryProjectTypes = map[Category]string{
	CategoryTech:      "web_development",
	CategoryDesign:    "design",
	CategoryMarketing: "marketing",
	CategoryAll:       "",
}

// Preset query parameters for a category view
const (
	presetStatisticsLimit = 20
	presetTrendsWindow    = 12
)

// ParseCategory accepts tech, design, marketing or all. Empty means all.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryAll, nil
	}
	c := Category(s)
	if _, ok := categoryProjectTypes[c]; !ok {
		return "", fmt.Errorf("[ParseCategory] unknown category %q", s)
	}
	return c, nil
}

// Queries returns the statistics and trends queries behind a category view.
func (c Category) Queries() (StatisticsQuery, TrendsQuery) {
	pt := categoryProjectTypes[c]
	return StatisticsQuery{ProjectType: pt, PeriodType: PeriodWeekly, Limit: presetStatisticsLimit},
		TrendsQuery{ProjectType: pt, PeriodType: PeriodWeekly, Window: presetTrendsWindow}
}

// CategoryView is everything the market page renders for a category
type CategoryView struct {
	Category   Category
	Statistics []StatisticsRecord
	Trends     []TrendPoint
	ByType     AggregateView
	ByLocation AggregateView
	Insights   MarketInsights
}

// Service fetches market data through the session client
type Service struct {
	api   Requester
	cache *cache.Identity
}

// NewService creates a market service. A nil cache disables caching.
func NewService(api Requester, c *cache.Identity) *Service {
	return &Service{api: api, cache: c}
}

// Statistics fetches statistics matching q.
func (s *Service) Statistics(ctx context.Context, q StatisticsQuery) (*StatisticsResponse, error) {
	return fetch[StatisticsResponse](ctx, s, withQuery(StatisticsPath, q.encode()))
}

// Trends fetches the trend series matching q.
func (s *Service) Trends(ctx context.Context, q TrendsQuery) (*TrendsResponse, error) {
	return fetch[TrendsResponse](ctx, s, withQuery(TrendsPath, q.encode()))
}

// Insights fetches statistics and trends for a category concurrently and aggregates them.
func (s *Service) Insights(ctx context.Context, c Category) (*CategoryView, error) {
	sq, tq := c.Queries()

	var (
		stats  *StatisticsResponse
		trends *TrendsResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.Statistics(gctx, sq)
		return err
	})
	g.Go(func() error {
		var err error
		trends, err = s.Trends(gctx, tq)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := stats.Records()
	points := trends.TrendPoints()
	return &CategoryView{
		Category:   c,
		Statistics: records,
		Trends:     points,
		ByType:     GroupAverages(records, GroupByProjectType),
		ByLocation: GroupAverages(records, GroupByLocation),
		Insights:   ComputeInsights(records, points),
	}, nil
}

// response is a wire body that can be deep copied in and out of the cache
type response[T any] interface {
	clone() T
}

// fetch GETs path, memoised per identity under the full request path. Callers
// always get their own copy.
func fetch[T response[T]](ctx context.Context, s *Service, path string) (*T, error) {
	owner := s.api.IdentityID()
	if s.cache != nil {
		if v, ok := cache.GetAs[T](s.cache, owner, path); ok {
			out := v.clone()
			return &out, nil
		}
	}

	var out T
	if err := s.api.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(owner, path, out.clone())
	}
	return &out, nil
}
