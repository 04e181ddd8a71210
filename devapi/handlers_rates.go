package devapi

import (
	"fmt"
	"math"
	"net/http"

	"github.com/jrsteele09/qeem-client/rates"
)

// Hourly base rates in EGP
var baseRates = map[rates.ProjectType]float64{
	rates.WebDevelopment:    400,
	rates.MobileDevelopment: 450,
	rates.Design:            300,
	rates.Writing:           200,
	rates.Marketing:         250,
	rates.Consulting:        500,
	rates.DataAnalysis:      450,
	rates.Other:             250,
}

var complexityFactors = map[rates.Complexity]float64{
	rates.Simple:     0.8,
	rates.Moderate:   1.0,
	rates.Complex:    1.3,
	rates.Enterprise: 1.6,
}

var regionFactors = map[rates.ClientRegion]float64{
	rates.RegionEgypt:  1.0,
	rates.RegionMENA:   1.3,
	rates.RegionEurope: 2.0,
	rates.RegionUSA:    2.4,
	rates.RegionGlobal: 1.8,
}

// calculateRate is the rule-based three-tier recommendation.
func calculateRate(req rates.Request) rates.Response {
	experience := 1 + math.Min(float64(req.ExperienceYears), 20)*0.03
	skills := 1 + math.Min(float64(req.SkillsCount), 20)*0.01
	urgency := 1.0
	if req.Urgency == rates.UrgencyRush {
		urgency = 1.25
	}

	competitive := baseRates[req.ProjectType] * complexityFactors[req.ProjectComplexity] *
		regionFactors[req.ClientRegion] * experience * skills * urgency

	return rates.Response{
		MinimumRate:     math.Round(competitive * 0.8),
		CompetitiveRate: math.Round(competitive),
		PremiumRate:     math.Round(competitive * 1.3),
		Currency:        "EGP",
		Method:          rates.MethodRuleBased,
		Rationale: fmt.Sprintf("%s %s project for a %s client with %d years of experience",
			req.ProjectComplexity, req.ProjectType, req.ClientRegion, req.ExperienceYears),
	}
}

func (s *Server) CalculateRateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rates.Request
		if !decodeBody(w, r, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			writeValidationError(w, err)
			return
		}

		resp := calculateRate(req)
		if err := s.accounts.AddCalculation(userIDFrom(r.Context()), req, resp, s.nowTime()); err != nil {
			writeJSONError(w, http.StatusNotFound, "User not found", "NOT_FOUND", nil)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) RateHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := s.accounts.History(userIDFrom(r.Context()))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "User not found", "NOT_FOUND", nil)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}
