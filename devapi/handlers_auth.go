package devapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/qeem-client/users"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg users.Registration
		if !decodeBody(w, r, &reg) {
			return
		}
		if err := users.ValidateRegistration(reg); err != nil {
			writeValidationError(w, err)
			return
		}

		user, token, err := s.accounts.Create(reg, s.nowTime())
		if errors.Is(err, ErrEmailTaken) {
			writeJSONError(w, http.StatusConflict, "Email already registered", "EMAIL_EXISTS", nil)
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to create account")
			writeJSONError(w, http.StatusInternalServerError, "Could not create account", "INTERNAL_ERROR", nil)
			return
		}

		s.logger.Info().Int64("user_id", user.ID).Str("verification_token", token).Msg("Account registered")
		writeJSON(w, http.StatusCreated, user)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		user, ok := s.accounts.Authenticate(req.Email, req.Password)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "Incorrect email or password", "INVALID_CREDENTIALS", nil)
			return
		}
		if !user.IsActive {
			writeJSONError(w, http.StatusForbidden, "Account disabled", "ACCOUNT_DISABLED", nil)
			return
		}
		s.issue(w, user.ID)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		if s.refreshDelay > 0 {
			select {
			case <-time.After(s.refreshDelay):
			case <-r.Context().Done():
				return
			}
		}

		var req refreshTokenRequest
		if !decodeBody(w, r, &req) {
			return
		}
		pair, err := s.tokens.Rotate(req.RefreshToken)
		if errors.Is(err, ErrInvalidRefreshToken) {
			writeJSONError(w, http.StatusUnauthorized, "Invalid refresh token", "INVALID_REFRESH_TOKEN", nil)
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to rotate refresh token")
			writeJSONError(w, http.StatusInternalServerError, "Could not refresh token", "INTERNAL_ERROR", nil)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshTokenRequest
		if !decodeBody(w, r, &req) {
			return
		}
		s.tokens.Revoke(req.RefreshToken)
		writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.accounts.Get(userIDFrom(r.Context()))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "User not found", "NOT_FOUND", nil)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if !s.accounts.Verify(req.Token) {
			writeJSONError(w, http.StatusBadRequest, "Invalid or expired verification token", "INVALID_TOKEN",
				map[string]any{"field": "token", "message": "invalid or expired"})
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified"})
	}
}

// ResendVerificationHandler answers the same way whether or not the address is known.
func (s *Server) ResendVerificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if token, ok := s.accounts.NewVerification(req.Email); ok {
			s.logger.Info().Str("verification_token", token).Msg("Verification re-sent")
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "If the address is registered, a verification email has been sent"})
	}
}

func (s *Server) issue(w http.ResponseWriter, userID int64) {
	pair, err := s.tokens.Issue(userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue tokens")
		writeJSONError(w, http.StatusInternalServerError, "Could not issue tokens", "INTERNAL_ERROR", nil)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}
