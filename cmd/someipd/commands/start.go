package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/someipd/internal/config"
	"github.com/marmos91/someipd/internal/conn"
	"github.com/marmos91/someipd/internal/controlapi"
	"github.com/marmos91/someipd/internal/logger"
	"github.com/marmos91/someipd/internal/mac"
	"github.com/marmos91/someipd/internal/metrics"
	"github.com/marmos91/someipd/internal/reactor"
	"github.com/marmos91/someipd/internal/telemetry"
	"github.com/marmos91/someipd/internal/udpendpoint"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the someipd daemon",
	Long: `Start the someipd network transport and message dispatch daemon.

By default, the daemon runs in the background. Use --foreground to run
in the foreground for debugging or when managed by a process supervisor.

Examples:
  # Start in background (default)
  someipd start

  # Start in foreground
  someipd start --foreground

  # Start with a custom configuration file
  someipd start --config /etc/someipd/config.yaml`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/someipd/someipd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/someipd/someipd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "someipd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "someipd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("someipd - SOME/IP network transport & dispatch daemon")
	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	} else {
		logger.Info("profiling disabled")
	}

	loop := reactor.New(256)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		loop.Metrics = metrics.NewRecorder()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	if cfg.Security.MAC.Enabled {
		key, err := os.ReadFile(cfg.Security.MAC.KeyPath)
		if err != nil {
			return fmt.Errorf("failed to read MAC key: %w", err)
		}
		loop.AuthFilter = mac.New(key)
		logger.Info("message authentication enabled", "key_path", cfg.Security.MAC.KeyPath)
	} else {
		logger.Info("message authentication disabled")
	}

	provider := config.NewProvider(cfg)
	threshold := conn.ErrorThreshold{
		I: provider.ErrorThreshold().InvalidCountLimit,
		V: provider.ErrorThreshold().ValidRunToReset,
	}
	bulkPolicy := udpendpoint.BulkReadPolicy{
		BulkReadCount:          provider.BulkReadParams().BulkReadCount,
		MinDatagramsToContinue: provider.BulkReadParams().MinDatagramsToContinue,
		MaxConsecutiveCalls:    provider.BulkReadParams().MaxConsecutiveCalls,
		ReceivePeriod:          provider.BulkReadParams().ReceivePeriod,
	}

	closers, err := startEndpoints(ctx, loop, provider.Endpoints(), threshold, bulkPolicy, cfg.Network.MaxReassemblyKeys)
	if err != nil {
		return fmt.Errorf("failed to start endpoints: %w", err)
	}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var controlServer *controlapi.Server
	if cfg.ControlAPI.Enabled {
		port, err := listenAddressPort(cfg.ControlAPI.ListenAddress, 8090)
		if err != nil {
			return fmt.Errorf("invalid control API listen address: %w", err)
		}
		controlServer, err = controlapi.NewServer(controlapi.Config{
			Enabled: true,
			Port:    port,
			JWT:     controlapi.JWTConfig{Secret: cfg.ControlAPI.JWTSecret},
		}, loop)
		if err != nil {
			return fmt.Errorf("failed to create control API server: %w", err)
		}
		logger.Info("control API enabled", "port", port)
	} else {
		logger.Info("control API disabled")
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 2)
	go loop.Run(ctx)

	if metricsServer != nil {
		go func() { serverDone <- metricsServer.Start(ctx) }()
	}
	if controlServer != nil {
		go func() { serverDone <- controlServer.Start(ctx) }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("daemon is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	}

	logger.Info("daemon stopped")
	return nil
}

// listenAddressPort extracts the port from a "host:port" listen address,
// falling back to defaultPort when addr is empty.
func listenAddressPort(addr string, defaultPort int) (int, error) {
	if addr == "" {
		return defaultPort, nil
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return port, nil
}
