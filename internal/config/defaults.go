package config

import "time"

// ApplyDefaults fills any zero-valued field of cfg with its default,
// following the teacher's pattern of a single idempotent pass applied
// both after unmarshal and when building GetDefaultConfig from scratch.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.Profiling.Endpoint == "" {
		cfg.Telemetry.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Telemetry.Profiling.ProfileTypes) == 0 {
		cfg.Telemetry.Profiling.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}

	if cfg.ControlAPI.ListenAddress == "" {
		cfg.ControlAPI.ListenAddress = "127.0.0.1:8090"
	}

	if cfg.Network.ErrorThreshold.InvalidCountLimit == 0 {
		cfg.Network.ErrorThreshold.InvalidCountLimit = 3
	}
	if cfg.Network.ErrorThreshold.ValidRunToReset == 0 {
		cfg.Network.ErrorThreshold.ValidRunToReset = 2
	}

	if cfg.Network.BulkRead.BulkReadCount == 0 {
		cfg.Network.BulkRead.BulkReadCount = 32
	}
	if cfg.Network.BulkRead.MinDatagramsToContinue == 0 {
		cfg.Network.BulkRead.MinDatagramsToContinue = 1
	}
	if cfg.Network.BulkRead.MaxConsecutiveCalls == 0 {
		cfg.Network.BulkRead.MaxConsecutiveCalls = 8
	}

	if cfg.Network.MaxReassemblyKeys == 0 {
		cfg.Network.MaxReassemblyKeys = 256
	}

	for i := range cfg.Network.Endpoints {
		if cfg.Network.Endpoints[i].Variant == "" {
			cfg.Network.Endpoints[i].Variant = "active_unicast"
		}
		if cfg.Network.Endpoints[i].MTU == 0 {
			cfg.Network.Endpoints[i].MTU = 1400
		}
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

// GetDefaultConfig returns a Config with every field at its default
// value, useful for generating sample config files and in tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Network: NetworkConfig{
			Endpoints: []EndpointConfig{
				{Address: "0.0.0.0", Port: 30509, Protocol: "udp"},
				{Address: "0.0.0.0", Port: 30501, Protocol: "tcp"},
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
