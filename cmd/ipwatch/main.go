package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/justin4957/logflow-ipwatch/internal/alert"
	"github.com/justin4957/logflow-ipwatch/internal/analyzer"
	"github.com/justin4957/logflow-ipwatch/internal/clock"
	"github.com/justin4957/logflow-ipwatch/internal/config"
	"github.com/justin4957/logflow-ipwatch/internal/dashboard"
	"github.com/justin4957/logflow-ipwatch/internal/metrics"
	"github.com/justin4957/logflow-ipwatch/internal/stream"
)

var (
	cfgFile string

	Version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "ipwatch",
	Short: "Alert on IPs that hammer a marker endpoint",
	Long: `ipwatch tails a daily-rotating access log ({dir}/{prefix}YYYY-MM-DD),
counts requests containing a marker per client IP over a sliding window,
and reports offenders to syslog through logger(1).

Examples:
  ipwatch --log-dir /logs/apache --prefix ssl_www_log- --marker today_download
  ipwatch --config /etc/ipwatch/config.yaml --dashboard
  IPWATCH_THRESHOLD=20 ipwatch`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMonitor,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ipwatch %s\n", Version)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file (defaults apply when absent)")
	flags.String("log-dir", "", "directory holding the daily log files")
	flags.String("prefix", "", "log file name prefix before the date")
	flags.String("marker", "", "substring identifying relevant requests")
	flags.Int("threshold", 0, "hits within the window that trigger an alert")
	flags.Int("window", 0, "sliding window length in seconds")
	flags.Int("interval", 0, "poll interval in seconds")
	flags.Bool("dashboard", false, "serve the status dashboard")
	flags.String("log-level", "", "diagnostic log level (debug, info, warn, error)")

	for _, name := range []string{"log-dir", "prefix", "marker", "threshold", "window", "interval", "dashboard", "log-level"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	viper.SetEnvPrefix("IPWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the YAML file and applies flag and environment overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if viper.IsSet("log-dir") {
		cfg.LogDir = viper.GetString("log-dir")
	}
	if viper.IsSet("prefix") {
		cfg.LogPrefix = viper.GetString("prefix")
	}
	if viper.IsSet("marker") {
		cfg.Marker = viper.GetString("marker")
	}
	if viper.IsSet("threshold") {
		cfg.DetectorConfig.ThresholdCount = viper.GetInt("threshold")
	}
	if viper.IsSet("window") {
		cfg.DetectorConfig.TimeWindowSeconds = viper.GetInt("window")
	}
	if viper.IsSet("interval") {
		cfg.FollowerConfig.CheckIntervalSeconds = viper.GetInt("interval")
	}
	if viper.IsSet("dashboard") {
		cfg.DashboardConfig.Enabled = viper.GetBool("dashboard")
	}
	if viper.IsSet("log-level") {
		cfg.LoggingConfig.Level = viper.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
	})
}

func runMonitor(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.LoggingConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()

	return run(ctx, cfg)
}

// run wires the follower, monitor and optional dashboard, and blocks until
// ctx is done or the follower fails
func run(ctx context.Context, cfg *config.Config) error {
	log.Info().
		Str("dir", cfg.LogDir).
		Str("prefix", cfg.LogPrefix).
		Str("marker", cfg.Marker).
		Int("threshold", cfg.DetectorConfig.ThresholdCount).
		Dur("window", cfg.DetectorConfig.TimeWindow()).
		Msg("ipwatch started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var waiter stream.Waiter = stream.TimerWaiter{}
	if cfg.FollowerConfig.WatchDir {
		nw, err := stream.NewNotifyWaiter(cfg.LogDir, cfg.LogPrefix)
		if err != nil {
			log.Warn().Err(err).Msg("Directory watch unavailable, polling only")
		} else {
			defer nw.Close()
			waiter = nw
		}
	}

	clk := clock.Real{}
	sink := alert.NewLoggerSink(cfg.AlertConfig, m)
	monitor := analyzer.NewMonitor(cfg, sink, clk, m)
	follower := stream.NewFollower(cfg, clk, waiter)

	dashboardDone := make(chan struct{})
	if cfg.DashboardConfig.Enabled {
		server := dashboard.NewServer(cfg.DashboardConfig, monitor.Status(), reg)
		go func() {
			defer close(dashboardDone)
			if err := server.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Dashboard stopped")
			}
		}()
	} else {
		close(dashboardDone)
	}

	events, errs := follower.Start(ctx, 1000)
	err := monitor.Run(ctx, events, errs)

	// Let the follower release its file handle before returning
	cancel()
	for range events {
	}
	<-dashboardDone

	return err
}

func main() {
	err := rootCmd.Execute()
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Info().Msg("Monitoring stopped")
	default:
		log.Error().Err(err).Msg("ipwatch failed")
		os.Exit(1)
	}
}
