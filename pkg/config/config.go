// Package config provides the unified configuration system for the Harvest
// connector. It defines a single BaseConfig structure that every connector
// instance uses, organized into logical sections:
//   - Performance: Page/batch sizes, buffering
//   - Timeouts: Connection and request timeouts
//   - Reliability: Retry logic, circuit breakers, rate limiting
//   - Security: TLS and credentials
//   - Observability: Metrics and logging
//
// Example usage:
//
//	cfg := config.NewBaseConfig("greenhouse", "source")
//	cfg.Security.Credentials = map[string]string{"api_key": key}
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// BaseConfig is the single configuration structure all connectors use.
type BaseConfig struct {
	// Name identifies the connector instance
	Name string `yaml:"name" json:"name"`
	// Type specifies the connector type (e.g., "greenhouse")
	Type string `yaml:"type" json:"type"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	// Performance settings control throughput and resource usage
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// Timeouts define various timeout durations
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Reliability settings for error handling and resilience
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability"`

	// Security configuration for authentication and encryption
	Security SecurityConfig `yaml:"security" json:"security"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// PerformanceConfig contains performance-related settings.
type PerformanceConfig struct {
	// BatchSize controls the number of records handed downstream together
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// BufferSize sets the size of the record channel buffer
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
	// EnableStreaming enables streaming mode if supported
	EnableStreaming bool `yaml:"enable_streaming" json:"enable_streaming"`
}

// TimeoutConfig contains timeout-related settings.
type TimeoutConfig struct {
	// Request timeout for individual API calls
	Request time.Duration `yaml:"request" json:"request"`
	// Connection timeout for establishing connections
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Idle timeout before closing inactive connections
	Idle time.Duration `yaml:"idle" json:"idle"`
	// KeepAlive interval for connection health checks
	KeepAlive time.Duration `yaml:"keep_alive" json:"keep_alive"`
}

// ReliabilityConfig contains reliability and error handling settings.
type ReliabilityConfig struct {
	// RetryAttempts sets maximum retry attempts for failed operations
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryDelay is the initial delay between retries
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// MaxRetryDelay caps the maximum retry delay
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
	// CircuitBreaker enables circuit breaker pattern
	CircuitBreaker bool `yaml:"circuit_breaker" json:"circuit_breaker"`
	// RateLimitPerSec limits API requests per second (0 = unlimited)
	RateLimitPerSec int `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	// HealthCheck enables periodic health checks
	HealthCheck bool `yaml:"health_check" json:"health_check"`
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	// EnableTLS enables TLS/SSL encryption
	EnableTLS bool `yaml:"enable_tls" json:"enable_tls"`
	// TLSSkipVerify disables certificate verification (insecure)
	TLSSkipVerify bool `yaml:"tls_skip_verify" json:"tls_skip_verify"`
	// AuthType specifies authentication method (api_key)
	AuthType string `yaml:"auth_type" json:"auth_type"`
	// Credentials stores authentication credentials (use env vars in production)
	Credentials map[string]string `yaml:"credentials" json:"credentials"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableLogging controls logging output
	EnableLogging bool `yaml:"enable_logging" json:"enable_logging"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewBaseConfig creates a BaseConfig with sensible defaults for the given
// connector name and type.
func NewBaseConfig(name, connType string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Type:    connType,
		Version: "1.0",
		Performance: PerformanceConfig{
			BatchSize:  100,
			BufferSize: 1000,
		},
		Timeouts: TimeoutConfig{
			Request:    30 * time.Second,
			Connection: 10 * time.Second,
			Idle:       90 * time.Second,
			KeepAlive:  30 * time.Second,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:   3,
			RetryDelay:      time.Second,
			MaxRetryDelay:   30 * time.Second,
			CircuitBreaker:  true,
			RateLimitPerSec: 10,
			HealthCheck:     true,
		},
		Security: SecurityConfig{
			EnableTLS: true,
			AuthType:  "api_key",
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			EnableLogging: true,
			LogLevel:      "info",
		},
	}
}

// Validate checks the configuration and fills in defaults for zero values.
func (c *BaseConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("connector name is required")
	}
	if c.Type == "" {
		return fmt.Errorf("connector type is required")
	}

	if c.Performance.BatchSize <= 0 {
		c.Performance.BatchSize = 100
	}
	if c.Performance.BufferSize <= 0 {
		c.Performance.BufferSize = 1000
	}
	if c.Timeouts.Request <= 0 {
		c.Timeouts.Request = 30 * time.Second
	}
	if c.Timeouts.Connection <= 0 {
		c.Timeouts.Connection = 10 * time.Second
	}
	if c.Reliability.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must not be negative")
	}
	if c.Reliability.RateLimitPerSec < 0 {
		return fmt.Errorf("rate_limit_per_sec must not be negative")
	}

	return nil
}
