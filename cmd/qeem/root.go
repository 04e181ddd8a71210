package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jrsteele09/qeem-client/cache"
	"github.com/jrsteele09/qeem-client/internal/config"
	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/jrsteele09/qeem-client/internal/logging"
	"github.com/jrsteele09/qeem-client/market"
	"github.com/jrsteele09/qeem-client/metrics"
	"github.com/jrsteele09/qeem-client/rates"
	"github.com/jrsteele09/qeem-client/session"
	"github.com/jrsteele09/qeem-client/users"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version     = "dev"
	configPath  string
	metricsAddr string
	logLevel    string
)

// app is everything a command needs, built once per invocation
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	client  *session.Client
	cache   *cache.Identity
	users   *users.Service
	rates   *rates.Service
	market  *market.Service
	closers []func() error
	metrics *metrics.Server
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "qeem",
	Short: "Qeem - freelance rate recommendations from the command line",
	Long: `qeem talks to the Qeem API: log in, keep your profile up to date, calculate
rates for a project and browse market statistics.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.GetEnv(config.ConfigPathEnv, ""), "Path to configuration file (env "+config.ConfigPathEnv+")")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_ = teardown()
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level := cfg.GetLogLevel()
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.New(level, cfg.GetLogFormat(), os.Stderr)

	a := &app{cfg: cfg, logger: logger}
	current = a

	addr := metricsAddr
	if addr == "" {
		addr = cfg.GetMetricsAddr()
	}
	if addr != "" {
		a.metrics = metrics.NewServer(addr, logger)
		a.metrics.Start()
	}

	store, closeStore, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeStore)

	a.cache = cache.New(cfg.GetCacheSize(), cfg.GetCacheTTL())
	client, err := session.New(cfg.GetBaseURL(),
		session.WithHTTPClient(newHTTPClient(cfg)),
		session.WithStore(store),
		session.WithLogger(logger),
		session.WithRefreshTimeout(cfg.GetRefreshTimeout()),
		session.WithUserAgent(cfg.GetUserAgent()+"/"+version),
		session.WithIdentityListener(a.cache.IdentityChanged),
		session.WithOnExpired(func() {
			fmt.Fprintln(os.Stderr, color.YellowString("Your session has expired. Run `qeem login` to sign in again."))
		}),
	)
	if err != nil {
		return err
	}
	a.client = client
	a.users = users.NewService(client, a.cache)
	a.rates = rates.NewService(client, a.cache)
	a.market = market.NewService(client, a.cache)
	return nil
}

func teardown() error {
	a := current
	if a == nil {
		return nil
	}
	current = nil

	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.metrics != nil {
		if err := a.metrics.Stop(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// restore resumes the stored session; commands that need one call it first.
func (a *app) restore(ctx context.Context) (*users.User, error) {
	user, err := a.client.Restore(ctx)
	if err != nil {
		return nil, apperrors.Wrapf(err, "not logged in")
	}
	return user, nil
}
