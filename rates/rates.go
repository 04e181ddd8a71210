// Package rates holds the rate calculator contract and a client for it.
package rates

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
)

// API paths served for rates
const (
	CalculatePath = "/api/v1/rates/calculate"
	HistoryPath   = "/api/v1/rates/history"
)

type ProjectType string

const (
	WebDevelopment    ProjectType = "web_development"
	MobileDevelopment ProjectType = "mobile_development"
	Design            ProjectType = "design"
	Writing           ProjectType = "writing"
	Marketing         ProjectType = "marketing"
	Consulting        ProjectType = "consulting"
	DataAnalysis      ProjectType = "data_analysis"
	Other             ProjectType = "other"
)

var ProjectTypes = []ProjectType{
	WebDevelopment, MobileDevelopment, Design, Writing, Marketing, Consulting, DataAnalysis, Other,
}

type Complexity string

const (
	Simple     Complexity = "simple"
	Moderate   Complexity = "moderate"
	Complex    Complexity = "complex"
	Enterprise Complexity = "enterprise"
)

var Complexities = []Complexity{Simple, Moderate, Complex, Enterprise}

type ClientRegion string

const (
	RegionEgypt  ClientRegion = "egypt"
	RegionMENA   ClientRegion = "mena"
	RegionEurope ClientRegion = "europe"
	RegionUSA    ClientRegion = "usa"
	RegionGlobal ClientRegion = "global"
)

var ClientRegions = []ClientRegion{RegionEgypt, RegionMENA, RegionEurope, RegionUSA, RegionGlobal}

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyRush   Urgency = "rush"
)

var Urgencies = []Urgency{UrgencyNormal, UrgencyRush}

// Calculation methods reported by the API
const (
	MethodRuleBased    = "rule_based"
	MethodMLPrediction = "ml_prediction"
)

// Request is the body of a rate calculation
type Request struct {
	ProjectType       ProjectType  `json:"project_type"`
	ProjectComplexity Complexity   `json:"project_complexity"`
	EstimatedHours    int          `json:"estimated_hours"`
	ExperienceYears   int          `json:"experience_years"`
	SkillsCount       int          `json:"skills_count"`
	Location          string       `json:"location"`
	ClientRegion      ClientRegion `json:"client_region"`
	Urgency           Urgency      `json:"urgency"`
}

// Response is the three-tier recommendation
type Response struct {
	MinimumRate     float64 `json:"minimum_rate"`
	CompetitiveRate float64 `json:"competitive_rate"`
	PremiumRate     float64 `json:"premium_rate"`
	Currency        string  `json:"currency"`
	Method          string  `json:"method"`
	Rationale       string  `json:"rationale,omitempty"`
}

// HistoryEntry is one past calculation
type HistoryEntry struct {
	ID        int64     `json:"id"`
	Request   Request   `json:"request"`
	Response  Response  `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks enum membership and ranges before the request is sent.
func (r Request) Validate() error {
	if !oneOf(r.ProjectType, ProjectTypes) {
		return invalidEnum("project_type", ProjectTypes)
	}
	if !oneOf(r.ProjectComplexity, Complexities) {
		return invalidEnum("project_complexity", Complexities)
	}
	if r.EstimatedHours < 1 || r.EstimatedHours > 10000 {
		return apperrors.NewValidationError("estimated_hours", "must be between 1 and 10000")
	}
	if r.ExperienceYears < 0 || r.ExperienceYears > 60 {
		return apperrors.NewValidationError("experience_years", "must be between 0 and 60")
	}
	if r.SkillsCount < 0 || r.SkillsCount > 100 {
		return apperrors.NewValidationError("skills_count", "must be between 0 and 100")
	}
	if strings.TrimSpace(r.Location) == "" {
		return apperrors.NewValidationError("location", "is required")
	}
	if !oneOf(r.ClientRegion, ClientRegions) {
		return invalidEnum("client_region", ClientRegions)
	}
	if !oneOf(r.Urgency, Urgencies) {
		return invalidEnum("urgency", Urgencies)
	}
	return nil
}

func oneOf[T comparable](v T, allowed []T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func invalidEnum[T ~string](field string, allowed []T) error {
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return apperrors.NewValidationError(field, fmt.Sprintf("must be one of %s", strings.Join(names, ", ")))
}
