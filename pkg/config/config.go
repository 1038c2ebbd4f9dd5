package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/yaml"
)

const (
	// EnvPrefix is the prefix for all launcher environment variables
	EnvPrefix = "LAUNCHER"
	// EnvConfigFile names the environment variable pointing at a YAML config file
	EnvConfigFile = EnvPrefix + "_CONFIG_FILE"
)

// Output modes for the companion's standard streams
const (
	// OutputInherit passes the launcher's stdout and stderr to the companion
	OutputInherit = "inherit"
	// OutputLog pipes companion output line by line into the launcher logger
	OutputLog = "log"
)

// Config holds the configuration for the launcher
type Config struct {
	// AutoStart controls whether the companion is spawned at startup
	AutoStart bool `envconfig:"AUTO_START"`

	// StartupGrace is how long startup waits before the UI is shown
	StartupGrace time.Duration `envconfig:"STARTUP_GRACE"`

	// StopTimeout bounds the wait for the companion to exit after signalling.
	// Zero means signal and return immediately.
	StopTimeout time.Duration `envconfig:"STOP_TIMEOUT"`

	// EntryPath overrides the resolved companion entry point
	EntryPath string `envconfig:"ENTRY_PATH"`

	// WorkDir overrides the resolved companion working directory
	WorkDir string `envconfig:"WORK_DIR"`

	// OutputMode is either "inherit" or "log"
	OutputMode string `envconfig:"OUTPUT_MODE"`

	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`

	// StatusAddress is the HTTP status listener address; empty disables it
	StatusAddress string `envconfig:"STATUS_ADDRESS"`

	// HealthAddress is the gRPC health listener address; empty disables it
	HealthAddress string `envconfig:"HEALTH_ADDRESS"`

	TLSEnabled  bool   `envconfig:"TLS_ENABLED"`
	TLSCertFile string `envconfig:"TLS_CERT_FILE"`
	TLSKeyFile  string `envconfig:"TLS_KEY_FILE"`
}

// fileConfig mirrors Config for YAML files. Pointers distinguish unset keys
// and durations are written as strings such as "2s".
type fileConfig struct {
	AutoStart     *bool   `json:"autoStart,omitempty"`
	StartupGrace  *string `json:"startupGrace,omitempty"`
	StopTimeout   *string `json:"stopTimeout,omitempty"`
	EntryPath     *string `json:"entryPath,omitempty"`
	WorkDir       *string `json:"workDir,omitempty"`
	OutputMode    *string `json:"outputMode,omitempty"`
	LogLevel      *string `json:"logLevel,omitempty"`
	LogFormat     *string `json:"logFormat,omitempty"`
	StatusAddress *string `json:"statusAddress,omitempty"`
	HealthAddress *string `json:"healthAddress,omitempty"`
	TLSEnabled    *bool   `json:"tlsEnabled,omitempty"`
	TLSCertFile   *string `json:"tlsCertFile,omitempty"`
	TLSKeyFile    *string `json:"tlsKeyFile,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		AutoStart:    true,
		StartupGrace: 2 * time.Second,
		StopTimeout:  0,
		OutputMode:   OutputInherit,
		LogLevel:     "info",
		LogFormat:    "auto",
	}
}

// LoadConfig builds the configuration from defaults, the optional file named by
// LAUNCHER_CONFIG_FILE, then LAUNCHER_* environment variables.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv(EnvConfigFile))
}

// Load builds the configuration from defaults, the file at path (if not empty),
// then LAUNCHER_* environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	return cfg, nil
}

// LoadFile applies the keys present in a YAML file on top of c
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return c.applyYAML(data)
}

func (c *Config) applyYAML(data []byte) error {
	var fc fileConfig
	if err := yaml.UnmarshalStrict(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	var errs []error
	if fc.StartupGrace != nil {
		d, err := time.ParseDuration(*fc.StartupGrace)
		if err != nil {
			errs = append(errs, fmt.Errorf("startupGrace: %w", err))
		} else {
			c.StartupGrace = d
		}
	}
	if fc.StopTimeout != nil {
		d, err := time.ParseDuration(*fc.StopTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("stopTimeout: %w", err))
		} else {
			c.StopTimeout = d
		}
	}
	if len(errs) > 0 {
		return utilerrors.NewAggregate(errs)
	}

	setBool(&c.AutoStart, fc.AutoStart)
	setBool(&c.TLSEnabled, fc.TLSEnabled)
	setString(&c.EntryPath, fc.EntryPath)
	setString(&c.WorkDir, fc.WorkDir)
	setString(&c.OutputMode, fc.OutputMode)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.StatusAddress, fc.StatusAddress)
	setString(&c.HealthAddress, fc.HealthAddress)
	setString(&c.TLSCertFile, fc.TLSCertFile)
	setString(&c.TLSKeyFile, fc.TLSKeyFile)

	return nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate validates the configuration and reports every problem found
func (c *Config) Validate() error {
	var errs []error

	if c.StartupGrace < 0 {
		errs = append(errs, fmt.Errorf("startup grace must not be negative"))
	}
	if c.StopTimeout < 0 {
		errs = append(errs, fmt.Errorf("stop timeout must not be negative"))
	}
	switch c.OutputMode {
	case OutputInherit, OutputLog:
	default:
		errs = append(errs, fmt.Errorf("output mode must be %q or %q, got %q", OutputInherit, OutputLog, c.OutputMode))
	}
	switch c.LogFormat {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be auto, text or json, got %q", c.LogFormat))
	}
	if c.TLSEnabled {
		if c.HealthAddress == "" {
			errs = append(errs, fmt.Errorf("TLS requires a health address"))
		}
		if c.TLSCertFile == "" || c.TLSKeyFile == "" {
			errs = append(errs, fmt.Errorf("TLS requires both certificate and key files"))
		}
	}

	return utilerrors.NewAggregate(errs)
}
