package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/qeem-client/devapi"
	"github.com/jrsteele09/qeem-client/internal/config"
	"github.com/jrsteele09/qeem-client/internal/logging"
	"github.com/jrsteele09/qeem-client/metrics"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	refreshDelay time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "qeem-devapi",
	Short:        "Run an in-memory Qeem API for local development",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger := logging.New(cfg.GetLogLevel(), cfg.GetLogFormat(), os.Stderr)
		return run(cfg, logger)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.GetEnv(config.ConfigPathEnv, ""), "Path to configuration file (env "+config.ConfigPathEnv+")")
	rootCmd.Flags().DurationVar(&refreshDelay, "refresh-delay", 0, "Delay every token refresh by this long")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	api, err := devapi.New(cfg, devapi.WithLogger(logger), devapi.WithRefreshDelay(refreshDelay))
	if err != nil {
		return err
	}

	var metricsServer *metrics.Server
	if addr := cfg.GetMetricsAddr(); addr != "" {
		metricsServer = metrics.NewServer(addr, logger)
		metricsServer.Start()
	}

	displayAppname(cfg.GetAppName() + " API")
	server := &http.Server{
		Addr:              cfg.GetDevAPIPort(),
		Handler:           api,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(server, logger) }()

	select {
	case err := <-serveErr:
		returnError = err
	case <-waitForStopSignal():
		returnError = shutdown(server)
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		returnError = errors.Join(returnError, metricsServer.Stop(ctx))
	}
	logger.Info().Msg("Server stopped")
	return returnError
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
