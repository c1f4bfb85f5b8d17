package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/leshan-fleet/internal/config"
	"github.com/muurk/leshan-fleet/internal/discovery"
	"github.com/muurk/leshan-fleet/internal/logging"
	"github.com/muurk/leshan-fleet/internal/lwm2m"
)

// Global flags
var (
	configPath     string
	serverURL      string
	logLevel       string
	logFile        string
	requestTimeout time.Duration
	pollInterval   time.Duration
	scanTimeout    time.Duration
)

// Flags shared by the fleet commands; they override the profile when set
var (
	workers       int
	applyWorkers  int
	deviceTimeout time.Duration
	deviceType    string
)

// settings is the effective profile: built-in defaults, then the profile
// file, then flags given on the command line
var settings *config.Profile

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Profile file (default $XDG_CONFIG_HOME/leshan-fleet/config.yaml)")
	flags.StringVar(&serverURL, "server", config.DefaultServer, `Leshan REST base URL, or "auto" to find one via mDNS`)
	flags.StringVar(&logLevel, "log-level", logging.DefaultLevel, "Log level (debug, info, warn, error, off)")
	flags.StringVar(&logFile, "log-file", "", "Write logs to this file, rotated, instead of stdout")
	flags.DurationVar(&requestTimeout, "request-timeout", config.DefaultRequestTimeout, "Timeout for each REST request")
	flags.DurationVar(&pollInterval, "poll-interval", config.DefaultPollInterval, "Sleep between device status reads")
	flags.DurationVar(&scanTimeout, "scan-timeout", discovery.DefaultScanTimeout, "How long to browse for a server with --server auto")
}

// loadSettings builds the effective profile and initializes logging
func loadSettings(cmd *cobra.Command, args []string) error {
	profile, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	mergeFlags(profile, flags.Changed)
	if err := profile.Validate(); err != nil {
		return err
	}
	settings = profile

	if logFile != "" {
		err = logging.InitializeToFile(settings.LogLevel, logFile)
	} else {
		err = logging.Initialize(settings.LogLevel)
	}
	if err != nil {
		return err
	}

	logging.Debug("Effective settings",
		zap.String("server", settings.Server),
		zap.Duration("poll_interval", settings.PollInterval.Std()),
		zap.Duration("request_timeout", settings.RequestTimeout.Std()),
		zap.Duration("device_timeout", settings.DeviceTimeout.Std()),
		zap.Int("max_workers", settings.MaxWorkers),
	)
	return nil
}

// mergeFlags copies the global flags the user set onto profile
func mergeFlags(profile *config.Profile, changed func(name string) bool) {
	if changed("server") {
		profile.Server = serverURL
	}
	if changed("log-level") {
		profile.LogLevel = logLevel
	}
	if changed("request-timeout") {
		profile.RequestTimeout = config.Duration(requestTimeout)
	}
	if changed("poll-interval") {
		profile.PollInterval = config.Duration(pollInterval)
	}
	if changed("workers") {
		profile.MaxWorkers = workers
	}
	if changed("apply-workers") {
		profile.MaxApplyWorkers = applyWorkers
	}
	if changed("device-timeout") {
		profile.DeviceTimeout = config.Duration(deviceTimeout)
	}
	if changed("device-type") {
		profile.DeviceType = deviceType
	}
}

// resolveServer returns the REST base URL, browsing mDNS for "auto"
func resolveServer(ctx context.Context) (string, error) {
	if settings.Server != config.ServerAuto {
		return settings.Server, nil
	}

	scanner := discovery.NewServerScanner()
	scanner.Timeout = scanTimeout

	logging.Info("Looking for a management server via mDNS", zap.Duration("timeout", scanTimeout))
	server, err := scanner.FindFirst(ctx)
	if err != nil {
		return "", fmt.Errorf("server discovery failed: %w", err)
	}
	logging.Info("Using discovered management server", zap.String("server", server.String()))
	return server.BaseURL(), nil
}

// newClient creates the REST client for the effective server
func newClient(ctx context.Context) (*lwm2m.Client, string, error) {
	base, err := resolveServer(ctx)
	if err != nil {
		return nil, "", err
	}
	client := lwm2m.NewClient(base)
	client.SetTimeout(settings.RequestTimeout.Std())
	return client, base, nil
}
