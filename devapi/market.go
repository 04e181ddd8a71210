package devapi

import (
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/jrsteele09/qeem-client/internal/utils"
	"github.com/jrsteele09/qeem-client/market"
	"github.com/jrsteele09/qeem-client/rates"
)

const (
	seedWeeks         = 12
	defaultStatsLimit = 50
	maxStatsLimit     = 200
)

// seedStart is the first seeded week.
var seedStart = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

var seedLocations = map[string]float64{
	"cairo":      1.0,
	"alexandria": 0.85,
	"giza":       0.9,
}

// marketData is a fixed set of weekly statistics. It is never modified after seeding.
type marketData struct {
	items []market.StatisticsItem
}

func seedMarketData() *marketData {
	types := append([]rates.ProjectType(nil), rates.ProjectTypes...)
	locations := make([]string, 0, len(seedLocations))
	for l := range seedLocations {
		locations = append(locations, l)
	}
	sort.Strings(locations)

	var items []market.StatisticsItem
	for ti, pt := range types {
		for _, loc := range locations {
			for week := 0; week < seedWeeks; week++ {
				// Even project types drift up, odd ones drift down.
				drift := 0.02
				label := "up"
				if ti%2 == 1 {
					drift, label = -0.01, "down"
				}
				avg := math.Round(baseRates[pt] * seedLocations[loc] * (1 + drift*float64(week)))
				demand := 0.5 + float64((ti+week)%5)*0.25
				items = append(items, market.StatisticsItem{
					ProjectType: string(pt),
					Location:    loc,
					PeriodType:  market.PeriodWeekly,
					PeriodStart: seedStart.AddDate(0, 0, 7*week),
					AverageRate: avg,
					MedianRate:  math.Round(avg * 0.95),
					MinRate:     math.Round(avg * 0.6),
					MaxRate:     math.Round(avg * 1.6),
					SampleSize:  20 + (ti*7+week*3)%30,
					DemandScore: utils.Ptr(demand),
					MarketTrend: utils.Ptr(label),
				})
			}
		}
	}
	return &marketData{items: items}
}

type marketFilter struct {
	projectType string
	location    string
	periodType  string
	from, to    time.Time
}

func parseMarketFilter(q url.Values) (marketFilter, error) {
	f := marketFilter{
		projectType: q.Get("project_type"),
		location:    q.Get("location"),
		periodType:  q.Get("period_type"),
	}
	var err error
	if v := q.Get("date_from"); v != "" {
		if f.from, err = time.Parse(time.DateOnly, v); err != nil {
			return f, err
		}
	}
	if v := q.Get("date_to"); v != "" {
		if f.to, err = time.Parse(time.DateOnly, v); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (f marketFilter) match(it market.StatisticsItem) bool {
	switch {
	case f.projectType != "" && it.ProjectType != f.projectType:
		return false
	case f.location != "" && it.Location != f.location:
		return false
	case f.periodType != "" && it.PeriodType != f.periodType:
		return false
	case !f.from.IsZero() && it.PeriodStart.Before(f.from):
		return false
	case !f.to.IsZero() && it.PeriodStart.After(f.to):
		return false
	}
	return true
}

// statistics returns matching items, newest period first.
func (m *marketData) statistics(f marketFilter) []market.StatisticsItem {
	var out []market.StatisticsItem
	for _, it := range m.items {
		if f.match(it) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PeriodStart.After(out[j].PeriodStart)
	})
	return out
}

// trends averages matching items per period, oldest first, keeping the last window periods.
func (m *marketData) trends(f marketFilter, window int) []market.TrendsPointItem {
	type bucket struct {
		total   float64
		samples int
		count   int
	}
	buckets := make(map[time.Time]*bucket)
	for _, it := range m.items {
		if !f.match(it) {
			continue
		}
		b, ok := buckets[it.PeriodStart]
		if !ok {
			b = &bucket{}
			buckets[it.PeriodStart] = b
		}
		b.total += it.AverageRate
		b.samples += it.SampleSize
		b.count++
	}

	periods := make([]time.Time, 0, len(buckets))
	for p := range buckets {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	if window > 0 && len(periods) > window {
		periods = periods[len(periods)-window:]
	}

	out := make([]market.TrendsPointItem, 0, len(periods))
	previous := 0.0
	for i, p := range periods {
		b := buckets[p]
		avg := math.Round(b.total / float64(b.count))
		label := "stable"
		switch {
		case i > 0 && avg > previous:
			label = "trending_up"
		case i > 0 && avg < previous:
			label = "trending_down"
		}
		out = append(out, market.TrendsPointItem{
			PeriodStart: p,
			AverageRate: avg,
			SampleSize:  utils.Ptr(b.samples),
			MarketTrend: utils.Ptr(label),
		})
		previous = avg
	}
	return out
}

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) MarketStatisticsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f, err := parseMarketFilter(q)
		if err != nil {
			writeJSONError(w, http.StatusUnprocessableEntity, "Invalid date", "VALIDATION_ERROR",
				map[string]any{"field": "date_from", "message": "must be YYYY-MM-DD"})
			return
		}
		limit, err := intParam(q, "limit", defaultStatsLimit)
		if err != nil || limit < 1 || limit > maxStatsLimit {
			writeJSONError(w, http.StatusUnprocessableEntity, "Invalid limit", "VALIDATION_ERROR",
				map[string]any{"field": "limit", "message": "must be between 1 and 200"})
			return
		}
		offset, err := intParam(q, "offset", 0)
		if err != nil || offset < 0 {
			writeJSONError(w, http.StatusUnprocessableEntity, "Invalid offset", "VALIDATION_ERROR",
				map[string]any{"field": "offset", "message": "must not be negative"})
			return
		}

		all := s.market.statistics(f)
		page := []market.StatisticsItem{}
		if offset < len(all) {
			page = all[offset:min(offset+limit, len(all))]
		}
		writeJSON(w, http.StatusOK, market.StatisticsResponse{Items: page, Total: len(all), Limit: limit, Offset: offset})
	}
}

func (s *Server) MarketTrendsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f, err := parseMarketFilter(q)
		if err != nil {
			writeJSONError(w, http.StatusUnprocessableEntity, "Invalid date", "VALIDATION_ERROR", nil)
			return
		}
		window, err := intParam(q, "window", seedWeeks)
		if err != nil || window < 1 {
			writeJSONError(w, http.StatusUnprocessableEntity, "Invalid window", "VALIDATION_ERROR",
				map[string]any{"field": "window", "message": "must be positive"})
			return
		}
		periodType := f.periodType
		if periodType == "" {
			periodType = market.PeriodWeekly
		}
		writeJSON(w, http.StatusOK, market.TrendsResponse{
			ProjectType: f.projectType,
			Location:    f.location,
			PeriodType:  periodType,
			Points:      s.market.trends(f, window),
		})
	}
}
