// Package devapi is an in-memory implementation of the Qeem REST API for local
// development and integration tests.
package devapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/jrsteele09/qeem-client/internal/config"
	"github.com/rs/zerolog"
)

// Config is the configuration the dev API reads
type Config interface {
	config.EnvConfig
	config.DevAPIConfig
}

type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	logger zerolog.Logger

	accounts *accountStore
	tokens   *tokenIssuer
	market   *marketData

	nowTime      func() time.Time
	refreshDelay time.Duration
	refreshCalls atomic.Int64

	rejectAccess atomic.Bool
	failStatus   atomic.Int64
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithLogger sets the request logger
func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithRefreshDelay holds every refresh request open for d before answering
func WithRefreshDelay(d time.Duration) ServerOption {
	return func(s *Server) {
		s.refreshDelay = d
	}
}

func New(cfg Config, options ...ServerOption) (*Server, error) {
	if cfg.GetJWTSecret() == "" {
		return nil, errors.New("[devapi.New] jwt secret is required")
	}
	if cfg.GetAccessTokenTTL() <= 0 {
		return nil, errors.New("[devapi.New] access token ttl must be positive")
	}

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	s.accounts = newAccountStore()
	s.tokens = newTokenIssuer([]byte(cfg.GetJWTSecret()), cfg.GetAccessTokenTTL(), cfg.GetRefreshTokenLength(), s.nowTime)
	s.market = seedMarketData()

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	public := s.APIMiddleware()
	private := s.APIMiddleware(s.RequireAuth)

	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), public...))

	s.RegisterRouteFunc("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), public...))
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), public...))
	s.RegisterRouteFunc("POST "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), public...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), public...))
	s.RegisterRouteFunc("POST "+RouteVerifyEmail, ChainMiddleware(s.VerifyEmailHandler(), public...))
	s.RegisterRouteFunc("POST "+RouteResendVerification, ChainMiddleware(s.ResendVerificationHandler(), public...))
	s.RegisterRouteFunc("GET "+RouteMe, ChainMiddleware(s.MeHandler(), private...))

	s.RegisterRouteFunc("GET "+RouteProfile, ChainMiddleware(s.GetProfileHandler(), private...))
	s.RegisterRouteFunc("PUT "+RouteProfile, ChainMiddleware(s.UpdateProfileHandler(), private...))

	s.RegisterRouteFunc("POST "+RouteRateCalculate, ChainMiddleware(s.CalculateRateHandler(), private...))
	s.RegisterRouteFunc("GET "+RouteRateHistory, ChainMiddleware(s.RateHistoryHandler(), private...))

	s.RegisterRouteFunc("GET "+RouteMarketStatistics, ChainMiddleware(s.MarketStatisticsHandler(), private...))
	s.RegisterRouteFunc("GET "+RouteMarketTrends, ChainMiddleware(s.MarketTrendsHandler(), private...))
}

var methodColors = map[string]*color.Color{
	http.MethodGet:    color.New(color.FgGreen),
	http.MethodPost:   color.New(color.FgBlue),
	http.MethodPut:    color.New(color.FgCyan),
	http.MethodDelete: color.New(color.FgYellow),
	http.MethodPatch:  color.New(color.FgMagenta),
}

var otherMethodColor = color.New(color.FgHiBlack)

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, ok := strings.Cut(route, " ")
		if !ok {
			method, path = "", route
		}
		fmt.Println(routeLine(method, path))
	}
}

func routeLine(method, path string) string {
	c, ok := methodColors[method]
	if !ok {
		c = otherMethodColor
	}
	return fmt.Sprintf("[%s] %s", c.Sprintf(" %-7s", method), path)
}
