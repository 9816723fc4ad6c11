// Package metrics defines the daemon's Prometheus-backed observability
// surface: an optional Recorder interface the reactor and transport
// layers call into, and a registry that is nil (zero overhead) unless
// explicitly enabled by configuration.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection and constructs the process-wide
// registry. Calling it more than once replaces the prior registry; it is
// intended to be called exactly once at startup.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	enabled = true
	registry = prometheus.NewRegistry()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the process-wide registry, or nil if metrics were
// never enabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}
