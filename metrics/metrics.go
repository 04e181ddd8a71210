package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qeem_client_requests_total",
			Help: "Total API requests issued by the session client",
		},
		[]string{"method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qeem_client_request_duration_seconds",
			Help:    "API request round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Session metrics
	RefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qeem_client_refresh_total",
			Help: "Token refresh attempts sent to the API",
		},
		[]string{"result"},
	)

	SessionExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qeem_client_session_expired_total",
			Help: "Sessions cleared after an unrecoverable authentication failure",
		},
	)

	// Cache metrics
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qeem_client_cache_hits_total",
			Help: "Per-identity cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qeem_client_cache_misses_total",
			Help: "Per-identity cache misses",
		},
	)

	CacheResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qeem_client_cache_resets_total",
			Help: "Per-identity cache purges on identity change",
		},
	)
)

// Refresh results
const (
	RefreshSucceeded = "success"
	RefreshFailed    = "failure"
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RefreshTotal,
		SessionExpiredTotal,
		CacheHits,
		CacheMisses,
		CacheResets,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start serves metrics in the background
func (s *Server) Start() {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
}

// Stop shuts the metrics server down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Shutdown(ctx)
}
