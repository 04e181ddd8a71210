package devapi

import (
	"net/http"

	"github.com/jrsteele09/qeem-client/users"
)

func (s *Server) GetProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := s.accounts.Profile(userIDFrom(r.Context()))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "Profile not found", "NOT_FOUND", nil)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update users.ProfileUpdate
		if !decodeBody(w, r, &update) {
			return
		}
		if err := update.Validate(); err != nil {
			writeValidationError(w, err)
			return
		}
		profile, err := s.accounts.UpdateProfile(userIDFrom(r.Context()), update)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "Profile not found", "NOT_FOUND", nil)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}
