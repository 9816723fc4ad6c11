// Package config loads the daemon's static configuration: logging,
// telemetry, the endpoint/service tables, I/O policy parameters, and
// security provider settings. Configuration sources, highest precedence
// first: environment variables (SOMEIPD_*), a YAML config file, then the
// defaults in this package. CLI flags only choose which file is read; no
// flag is bound to a configuration value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the daemon's complete static configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	ControlAPI ControlAPIConfig `mapstructure:"control_api" yaml:"control_api"`
	Network    NetworkConfig    `mapstructure:"network" yaml:"network"`
	Security   SecurityConfig   `mapstructure:"security" yaml:"security"`

	// ShutdownTimeout bounds how long the daemon waits for the reactor
	// loop and its connections to drain on SIGTERM.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls log output, mirroring the teacher's own
// logging config shape field-for-field.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing and
// Pyroscope continuous profiling.
type TelemetryConfig struct {
	Enabled    bool            `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string          `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool            `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64         `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	Profiling  ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ControlAPIConfig configures the introspection/control HTTP API.
type ControlAPIConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address"`
	JWTSecret     string `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`
}

// EndpointConfig is one statically-configured local endpoint.
type EndpointConfig struct {
	Address       string              `mapstructure:"address" validate:"required" yaml:"address"`
	Port          int                 `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`
	Protocol      string              `mapstructure:"protocol" validate:"required,oneof=tcp udp" yaml:"protocol"`
	Variant       string              `mapstructure:"variant" validate:"omitempty,oneof=active_unicast passive_unicast multicast" yaml:"variant"`
	MTU           int                 `mapstructure:"mtu" yaml:"mtu"`
	SecureName    string              `mapstructure:"secure_name" yaml:"secure_name,omitempty"`
	SocketOptions SocketOptionsConfig `mapstructure:"socket_options" yaml:"socket_options"`
}

// SocketOptionsConfig mirrors collab.SocketOptions; see §6.
type SocketOptionsConfig struct {
	DSCP              int           `mapstructure:"dscp" validate:"omitempty,min=0,max=63" yaml:"dscp,omitempty"`
	KeepAliveEnabled  bool          `mapstructure:"keep_alive_enabled" yaml:"keep_alive_enabled"`
	KeepAliveIdle     time.Duration `mapstructure:"keep_alive_idle" yaml:"keep_alive_idle,omitempty"`
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval" yaml:"keep_alive_interval,omitempty"`
	KeepAliveCount    int           `mapstructure:"keep_alive_count" yaml:"keep_alive_count,omitempty"`
	LingerSeconds     int           `mapstructure:"linger_seconds" yaml:"linger_seconds,omitempty"`
	DisableNagle      bool          `mapstructure:"disable_nagle" yaml:"disable_nagle"`
}

// ErrorThresholdConfig mirrors collab.ErrorThresholdParams.
type ErrorThresholdConfig struct {
	InvalidCountLimit int `mapstructure:"invalid_count_limit" yaml:"invalid_count_limit"`
	ValidRunToReset   int `mapstructure:"valid_run_to_reset" yaml:"valid_run_to_reset"`
}

// BulkReadConfig mirrors collab.BulkReadParams.
type BulkReadConfig struct {
	BulkReadCount          int           `mapstructure:"bulk_read_count" yaml:"bulk_read_count"`
	MinDatagramsToContinue int           `mapstructure:"min_datagrams_to_continue" yaml:"min_datagrams_to_continue"`
	MaxConsecutiveCalls    int           `mapstructure:"max_consecutive_calls" yaml:"max_consecutive_calls"`
	ReceivePeriod          time.Duration `mapstructure:"receive_period" yaml:"receive_period"`
}

// TPConfig configures SOME/IP-TP segmentation for one service/method (or
// the network-wide default when ServiceID/MethodOrEventID are both zero).
type TPConfig struct {
	ServiceID        uint16        `mapstructure:"service_id" yaml:"service_id"`
	MethodOrEventID  uint16        `mapstructure:"method_or_event_id" yaml:"method_or_event_id"`
	SegmentLength    int           `mapstructure:"segment_length" validate:"omitempty,min=32,max=1408" yaml:"segment_length"`
	MaxMessageLength int           `mapstructure:"max_message_length" validate:"omitempty,min=1" yaml:"max_message_length"`
	BurstSize        int           `mapstructure:"burst_size" validate:"omitempty,min=1" yaml:"burst_size"`
	SeparationTime   time.Duration `mapstructure:"separation_time" yaml:"separation_time"`
}

// NetworkConfig is the transport-facing half of the configuration: the
// endpoint table and the I/O policy knobs of §4.7/§4.8.
type NetworkConfig struct {
	Endpoints         []EndpointConfig     `mapstructure:"endpoints" yaml:"endpoints"`
	ErrorThreshold    ErrorThresholdConfig `mapstructure:"error_threshold" yaml:"error_threshold"`
	BulkRead          BulkReadConfig       `mapstructure:"bulk_read" yaml:"bulk_read"`
	TP                []TPConfig           `mapstructure:"tp" yaml:"tp"`
	MaxReassemblyKeys int                  `mapstructure:"max_reassembly_keys" validate:"omitempty,min=1" yaml:"max_reassembly_keys"`
}

// SecurityConfig configures the MAC filter and TLS/DTLS providers.
type SecurityConfig struct {
	MAC MACConfig `mapstructure:"mac" yaml:"mac"`
	TLS TLSConfig `mapstructure:"tls" yaml:"tls"`
}

// MACConfig configures the HMAC-based MessageAuthenticationFilter.
type MACConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	KeyPath string `mapstructure:"key_path" validate:"required_if=Enabled true" yaml:"key_path,omitempty"`
}

// TLSConfig configures the default crypto/tls-based TlsProvider.
type TLSConfig struct {
	CertFile          string `mapstructure:"cert_file" yaml:"cert_file,omitempty"`
	KeyFile           string `mapstructure:"key_file" yaml:"key_file,omitempty"`
	CAFile            string `mapstructure:"ca_file" yaml:"ca_file,omitempty"`
	RequireClientCert bool   `mapstructure:"require_client_cert" yaml:"require_client_cert"`
}

// Load loads configuration from environment, file, and defaults, in that
// decreasing order of precedence, then validates the result. When no
// config file is found it returns GetDefaultConfig() as is, without
// consulting the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration the way Load does, but names itself after
// the teacher's convention for the one call site every CLI entrypoint
// uses: cmd/someipd's commands call this, never Load directly.
func MustLoad(configPath string) (*Config, error) {
	return Load(configPath)
}

// SaveConfig writes cfg to path as YAML with restricted permissions,
// since it may carry a JWT secret or MAC key path.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SOMEIPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "someipd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "someipd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

var structValidator = validator.New()

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return structValidator.Struct(cfg)
}
