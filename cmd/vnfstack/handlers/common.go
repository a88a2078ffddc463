// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/metrics"
	"github.com/imamik/vnfstack/internal/platform/hcloud"
	"github.com/imamik/vnfstack/internal/platform/openstack"
	"github.com/imamik/vnfstack/internal/platform/ssh"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/provisioning/instance"
)

// Settings are the global CLI flags.
type Settings struct {
	Verbose     bool
	MetricsFile string
}

var settings Settings

// Configure applies the global flags to every following handler call.
func Configure(s Settings) {
	settings = s
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfig reads and validates an environment file.
	loadConfig = config.Load

	// newProvider connects to the control plane the environment names.
	newProvider = func(cfg *config.Config, runID string) (cloud.Provider, error) {
		resourceLabels := provisioning.ResourceLabels(cfg.Name, runID)
		timeouts := cfg.EffectiveTimeouts()
		switch cfg.Provider {
		case config.ProviderOpenStack:
			return openstack.NewRealClient(cfg.OpenStack.Connection,
				openstack.WithTimeouts(timeouts),
				openstack.WithLabels(resourceLabels),
			)
		case config.ProviderHCloud:
			opts := []hcloud.ClientOption{
				hcloud.WithTimeouts(timeouts),
				hcloud.WithLabels(resourceLabels),
			}
			if cfg.HCloud.Location != "" {
				opts = append(opts, hcloud.WithLocation(cfg.HCloud.Location))
			}
			if cfg.HCloud.NetworkZone != "" {
				opts = append(opts, hcloud.WithNetworkZone(cfg.HCloud.NetworkZone))
			}
			return hcloud.NewRealClient(cfg.HCloud.Token, opts...), nil
		}
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}

	// newProber creates the SSH reachability prober.
	newProber = func(cfg *config.Config, logger logr.Logger) instance.Prober {
		return &ssh.Prober{Port: cfg.SSH.Port, Proxy: cfg.SSH.Proxy, Logger: logger}
	}

	// newObserver creates the observer phases report to.
	newObserver = func() provisioning.Observer {
		return provisioning.NewConsoleObserver()
	}

	// writeMetrics dumps the metrics registry.
	writeMetrics = metrics.WriteTextfile
)

// newLogger bridges logr onto the standard logger. Debug lines need -v.
func newLogger() logr.Logger {
	verbosity := 0
	if settings.Verbose {
		verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			log.Printf("[%s] %s", prefix, args)
			return
		}
		log.Print(args)
	}, funcr.Options{Verbosity: verbosity})
}

// setup loads the environment and builds a provisioning context for it.
func setup(ctx context.Context, configPath string) (*provisioning.Context, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	runID := provisioning.NewRunID()
	provider, err := newProvider(cfg, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Provider, err)
	}

	logger := newLogger()
	return provisioning.NewContext(ctx, cfg, provider, newProber(cfg, logger.WithName("ssh")),
		provisioning.WithObserver(newObserver()),
		provisioning.WithLogger(logger),
		provisioning.WithRunID(runID),
	), nil
}

// flushMetrics writes the metrics file when one was requested. A write
// failure is logged and does not change the command's result.
func flushMetrics() {
	if settings.MetricsFile == "" {
		return
	}
	if err := writeMetrics(settings.MetricsFile); err != nil {
		log.Printf("Warning: failed to write metrics to %s: %v", settings.MetricsFile, err)
	}
}
