package devapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

type contextKey int

const userIDKey contextKey = iota

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) APIMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	chained := []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
	}
	return append(chained, mw...)
}

// statusRecorder remembers the status written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)

		if s.env == "DEV" {
			fmt.Println(routeLine(r.Method, r.URL.Path))
		}
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Dur("duration", time.Since(start)).
			Msg("Request")
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("Handler panicked")
				writeJSONError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR", nil)
			}
		}()
		next(w, r)
	}
}

// RequireAuth rejects requests without a valid bearer access token.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, http.StatusUnauthorized, "Not authenticated", "NOT_AUTHENTICATED", nil)
			return
		}
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			writeJSONError(w, http.StatusUnauthorized, "Invalid authorization header", "INVALID_TOKEN", nil)
			return
		}

		userID, err := s.tokens.VerifyAccessToken(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Could not validate credentials", "INVALID_TOKEN", nil)
			return
		}
		if _, err := s.accounts.Get(userID); err != nil {
			writeJSONError(w, http.StatusUnauthorized, "User not found", "INVALID_TOKEN", nil)
			return
		}
		if s.rejectAccess.Load() {
			writeJSONError(w, http.StatusForbidden, "Not enough permissions", "FORBIDDEN", nil)
			return
		}
		if status := int(s.failStatus.Load()); status != 0 {
			writeJSONError(w, status, "Service unavailable", "SERVER_ERROR", nil)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
