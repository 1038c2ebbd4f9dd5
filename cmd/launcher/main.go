package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"

	"github.com/socialgouv/companion-launcher/pkg/config"
	pkgerrors "github.com/socialgouv/companion-launcher/pkg/errors"
	"github.com/socialgouv/companion-launcher/pkg/grpc"
	"github.com/socialgouv/companion-launcher/pkg/http"
	"github.com/socialgouv/companion-launcher/pkg/launcher"
	"github.com/socialgouv/companion-launcher/pkg/layout"
	"github.com/socialgouv/companion-launcher/pkg/logger"
	"github.com/socialgouv/companion-launcher/pkg/supervisor"
)

func main() {
	defaults := config.DefaultConfig()

	configFile := flag.String("config", os.Getenv(config.EnvConfigFile), "Path to a YAML configuration file")
	autoStart := flag.Bool("auto-start", defaults.AutoStart, "Spawn the companion at startup")
	startupGrace := flag.Duration("startup-grace", defaults.StartupGrace, "Wait after starting the companion before the host runs")
	stopTimeout := flag.Duration("stop-timeout", defaults.StopTimeout, "Wait for the companion to exit after signalling (0 disables)")
	entryPath := flag.String("entry-path", "", "Companion entry point, skips layout probing")
	workDir := flag.String("work-dir", "", "Companion working directory, skips layout probing")
	outputMode := flag.String("output-mode", defaults.OutputMode, "Companion output handling (inherit, log)")
	logLevel := flag.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", defaults.LogFormat, "Log format (auto, text, json). Auto uses text for TTY, JSON otherwise")
	statusAddr := flag.String("status-addr", "", "HTTP status server address (empty disables)")
	healthAddr := flag.String("health-addr", "", "gRPC health server address (empty disables)")
	tlsEnabled := flag.Bool("tls-enabled", false, "Enable TLS on the gRPC health server")
	tlsCertFile := flag.String("tls-cert-file", "", "Path to TLS certificate file")
	tlsKeyFile := flag.String("tls-key-file", "", "Path to TLS key file")
	flag.Parse()

	// Defaults, then file, then environment
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Command line flags have the highest priority, but only when set explicitly
	changed := flag.CommandLine.Changed
	if changed("auto-start") {
		cfg.AutoStart = *autoStart
	}
	if changed("startup-grace") {
		cfg.StartupGrace = *startupGrace
	}
	if changed("stop-timeout") {
		cfg.StopTimeout = *stopTimeout
	}
	if changed("entry-path") {
		cfg.EntryPath = *entryPath
	}
	if changed("work-dir") {
		cfg.WorkDir = *workDir
	}
	if changed("output-mode") {
		cfg.OutputMode = *outputMode
	}
	if changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = *logFormat
	}
	if changed("status-addr") {
		cfg.StatusAddress = *statusAddr
	}
	if changed("health-addr") {
		cfg.HealthAddress = *healthAddr
	}
	if changed("tls-enabled") {
		cfg.TLSEnabled = *tlsEnabled
	}
	if changed("tls-cert-file") {
		cfg.TLSCertFile = *tlsCertFile
	}
	if changed("tls-key-file") {
		cfg.TLSKeyFile = *tlsKeyFile
	}

	baseLog := logger.NewLogrusLogger(cfg.LogLevel, cfg.LogFormat)
	log := logger.WithComponent(baseLog, "main")

	if err := cfg.Validate(); err != nil {
		err = pkgerrors.WrapWithCode(err, pkgerrors.ErrorCodeInvalidInput, "configuration validation failed")
		log.WithFields(pkgerrors.GetFields(err)).Fatal("Invalid configuration")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var healthServer *grpc.HealthServer
	supervisorOpts := []supervisor.Option{
		supervisor.WithLogger(baseLog),
		supervisor.WithMetrics(supervisor.NewMetrics(registry)),
		supervisor.WithOutputMode(cfg.OutputMode),
		supervisor.WithStopTimeout(cfg.StopTimeout),
	}
	if cfg.HealthAddress != "" {
		healthServer = grpc.NewHealthServer(baseLog)
		supervisorOpts = append(supervisorOpts, supervisor.WithStateChangeCallback(healthServer.OnStateChange))
	}
	sup := supervisor.New(supervisorOpts...)

	resolver := layout.NewResolver(
		layout.WithLogger(baseLog),
		layout.WithOverrides(cfg.EntryPath, cfg.WorkDir),
	)

	l := launcher.New(resolver, sup,
		launcher.WithAutoStart(cfg.AutoStart),
		launcher.WithStartupGrace(cfg.StartupGrace),
		launcher.WithLogger(baseLog),
	)
	log = log.WithField(logger.FieldLaunchID, l.LaunchID())

	var statusServer *http.Server
	if cfg.StatusAddress != "" {
		statusServer = http.NewServer(sup, registry, baseLog)
		go func() {
			if err := statusServer.Start(cfg.StatusAddress); err != nil {
				err = pkgerrors.WrapWithCode(err, pkgerrors.ErrorCodeInternalError, "failed to start HTTP status server")
				log.WithFields(pkgerrors.GetFields(err)).Error("HTTP status server stopped")
			}
		}()
	}
	if healthServer != nil {
		go func() {
			if err := healthServer.Start(cfg.HealthAddress, cfg.TLSEnabled, cfg.TLSCertFile, cfg.TLSKeyFile); err != nil {
				err = pkgerrors.WrapWithCode(err, pkgerrors.ErrorCodeInternalError, "failed to start gRPC health server")
				log.WithFields(pkgerrors.GetFields(err)).Error("gRPC health server stopped")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Without a GUI the host simply waits for a termination signal
	host := launcher.HostFunc(func(ctx context.Context) error {
		log.Info("Launcher running, waiting for termination signal")
		<-ctx.Done()
		log.Info("Received termination signal")
		return nil
	})

	if err := l.Run(ctx, host); err != nil {
		log.WithFields(pkgerrors.GetFields(err)).Error("Host exited with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if statusServer != nil {
		if err := statusServer.Stop(shutdownCtx); err != nil {
			err = pkgerrors.Wrap(err, "error stopping HTTP status server")
			log.WithFields(pkgerrors.GetFields(err)).Error("Failed to stop HTTP status server")
		}
	}
	if healthServer != nil {
		healthServer.Stop()
	}

	log.Info("Shutdown complete")
}
