// Package market folds market statistics and trend points into chart-ready views.
//
// The aggregation functions are pure: they never mutate their inputs and return the
// same output for the same input. Empty input always produces zero output.
package market

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/qeem-client/internal/utils"
)

// StatisticsRecord is one market observation for a project type and location
type StatisticsRecord struct {
	ProjectType string
	Location    string
	PeriodStart time.Time
	AverageRate float64
	MedianRate  float64
	MinRate     float64
	MaxRate     float64
	DemandScore *float64
	TrendLabel  *string
}

// TrendPoint is one time-bucketed rate observation
type TrendPoint struct {
	PeriodStart time.Time
	AverageRate float64
	MedianRate  *float64
	SampleSize  *int
	MarketTrend *string
}

// GroupKey selects the record field records are grouped by
type GroupKey int

const (
	GroupByProjectType GroupKey = iota
	GroupByLocation
)

func (k GroupKey) String() string {
	if k == GroupByLocation {
		return "location"
	}
	return "project_type"
}

func (k GroupKey) of(r StatisticsRecord) string {
	if k == GroupByLocation {
		return r.Location
	}
	return r.ProjectType
}

// Aggregate is the summary of one group
type Aggregate struct {
	Value    int
	ColorTag string
	Min      float64
	Max      float64
}

// AggregateView maps a group label to its aggregate
type AggregateView map[string]Aggregate

// MarketInsights is the headline snapshot shown above the charts
type MarketInsights struct {
	TotalJobs            int
	AverageRate          int
	GrowthRate           int
	HighDemandSkillCount int
	TotalSkillCount      int
	GrowingSkillCount    int
}

// Demand tiers
type Demand string

const (
	DemandLow    Demand = "low"
	DemandMedium Demand = "medium"
	DemandHigh   Demand = "high"
)

// Trend directions
type Direction string

const (
	TrendUp     Direction = "up"
	TrendDown   Direction = "down"
	TrendStable Direction = "stable"
)

// round matches the rounding the API consumers were built against: halves go up.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// GroupAverages groups records by key and averages averageRate within each group.
func GroupAverages(records []StatisticsRecord, key GroupKey) AggregateView {
	type acc struct {
		total    float64
		count    int
		min, max float64
	}

	groups := make(map[string]*acc)
	for _, r := range records {
		label := key.of(r)
		g, ok := groups[label]
		if !ok {
			g = &acc{min: r.MinRate, max: r.MaxRate}
			groups[label] = g
		}
		g.total += r.AverageRate
		g.count++
		g.min = math.Min(g.min, r.MinRate)
		g.max = math.Max(g.max, r.MaxRate)
	}

	view := make(AggregateView, len(groups))
	for label, g := range groups {
		view[label] = Aggregate{
			Value:    round(g.total / float64(g.count)),
			ColorTag: ColorTag(label),
			Min:      g.min,
			Max:      g.max,
		}
	}
	return view
}

// ComputeInsights derives the headline numbers from statistics and a chronological
// trend series.
func ComputeInsights(records []StatisticsRecord, trends []TrendPoint) MarketInsights {
	if len(records) == 0 {
		return MarketInsights{}
	}

	var total, jobs float64
	skills := make(map[string]struct{})
	for _, r := range records {
		total += r.AverageRate
		jobs += utils.ValueOr(r.DemandScore, 1.0) * 100
		skills[r.ProjectType] = struct{}{}
	}
	average := round(total / float64(len(records)))

	highDemand := 0
	for _, r := range records {
		if r.AverageRate > float64(average) {
			highDemand++
		}
	}

	growing := 0
	for _, p := range trends {
		if strings.Contains(strings.ToLower(utils.Value(p.MarketTrend)), "up") {
			growing++
		}
	}

	return MarketInsights{
		TotalJobs:            round(jobs),
		AverageRate:          average,
		GrowthRate:           growthRate(trends),
		HighDemandSkillCount: highDemand,
		TotalSkillCount:      len(skills),
		GrowingSkillCount:    growing,
	}
}

// growthRate is the percentage change between the last two points, never negative.
// A zero previous average has no defined change and reports 0.
func growthRate(trends []TrendPoint) int {
	if len(trends) < 2 {
		return 0
	}
	latest, previous := trends[len(trends)-1], trends[len(trends)-2]
	if previous.AverageRate == 0 {
		return 0
	}
	growth := round((latest.AverageRate - previous.AverageRate) / previous.AverageRate * 100)
	return max(0, growth)
}

// DemandLevel classifies rate against the market average. A zero average is low.
func DemandLevel(rate, average float64) Demand {
	if average == 0 {
		return DemandLow
	}
	ratio := rate / average
	switch {
	case ratio >= 1.2:
		return DemandHigh
	case ratio >= 0.8:
		return DemandMedium
	default:
		return DemandLow
	}
}

// TrendDirection reads a free-form market trend label.
func TrendDirection(label string) Direction {
	l := strings.ToLower(label)
	switch {
	case l == "":
		return TrendStable
	case strings.Contains(l, "up"), strings.Contains(l, "rising"), strings.Contains(l, "growing"):
		return TrendUp
	case strings.Contains(l, "down"), strings.Contains(l, "falling"), strings.Contains(l, "declining"):
		return TrendDown
	default:
		return TrendStable
	}
}

// ChartPoint is one labelled bar or point
type ChartPoint struct {
	Label    string
	Value    int
	ColorTag string
}

// TimeSeries labels each trend point by its period date in loc.
func TimeSeries(trends []TrendPoint, loc *time.Location) []ChartPoint {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]ChartPoint, 0, len(trends))
	for _, p := range trends {
		out = append(out, ChartPoint{
			Label:    p.PeriodStart.In(loc).Format(time.DateOnly),
			Value:    round(p.AverageRate),
			ColorTag: defaultColorTag,
		})
	}
	return out
}

// SortedPoints orders a view for display: highest value first, then by label.
func SortedPoints(view AggregateView) []ChartPoint {
	out := make([]ChartPoint, 0, len(view))
	for label, a := range view {
		out = append(out, ChartPoint{Label: label, Value: a.Value, ColorTag: a.ColorTag})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	return out
}
