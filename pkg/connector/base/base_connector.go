// Package base provides the foundational BaseConnector that source
// connectors embed. It implements the common plumbing: circuit breaker,
// rate limiting, health monitoring, metrics collection, and retry logic.
//
// Connectors embed BaseConnector and call Initialize before use:
//
//	type GreenhouseSource struct {
//	    *base.BaseConnector
//	    // connector-specific fields
//	}
//
// Lifecycle: NewBaseConnector -> Initialize -> (operate) -> Close.
package base

import (
	"context"
	"sync"
	"time"

	"github.com/recruitsync/harvest-connector/pkg/clients"
	"github.com/recruitsync/harvest-connector/pkg/config"
	"github.com/recruitsync/harvest-connector/pkg/connector/core"
	"github.com/recruitsync/harvest-connector/pkg/errors"
	"github.com/recruitsync/harvest-connector/pkg/logger"
	"github.com/recruitsync/harvest-connector/pkg/metrics"
	"go.uber.org/zap"
)

// BaseConnector provides common functionality for all connectors.
type BaseConnector struct {
	// Core fields
	name          string
	connectorType core.ConnectorType
	version       string
	config        *config.BaseConfig
	logger        *zap.Logger

	// State management
	state      core.State
	position   core.Position
	stateMutex sync.RWMutex

	// Resource management
	ctx        context.Context
	cancel     context.CancelFunc
	closed     bool
	closeMutex sync.Mutex

	// Production features
	circuitBreaker   *clients.CircuitBreaker
	rateLimiter      clients.RateLimiter
	healthChecker    *HealthChecker
	metricsCollector *metrics.Collector
	retryPolicy      *RetryPolicy
	progressReporter *ProgressReporter
}

// NewBaseConnector creates a new base connector with the specified name,
// type, and version. Connector implementations call this in their
// constructors.
func NewBaseConnector(name string, connectorType core.ConnectorType, version string) *BaseConnector {
	return &BaseConnector{
		name:          name,
		connectorType: connectorType,
		version:       version,
		state:         make(core.State),
		logger:        logger.Get().With(zap.String("connector", name)),
	}
}

// Initialize sets up the production features of the base connector: circuit
// breaker, rate limiter, health monitoring, metrics, and retry policy.
// It must be called before using the connector.
func (bc *BaseConnector) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if cfg == nil {
		return errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}

	bc.config = cfg
	bc.ctx, bc.cancel = context.WithCancel(ctx)

	if cfg.Reliability.CircuitBreaker {
		bc.circuitBreaker = clients.NewCircuitBreaker(clients.CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 3,
			Timeout:          30 * time.Second,
		}, bc.logger)
	}

	if cfg.Reliability.RateLimitPerSec > 0 {
		bc.rateLimiter = clients.NewRateLimiter(
			cfg.Reliability.RateLimitPerSec,
			cfg.Reliability.RateLimitPerSec*2, // Allow bursts up to 2x the limit
		)
	}

	if cfg.Reliability.HealthCheck {
		bc.healthChecker = NewHealthChecker(bc.name, 30*time.Second)
		bc.healthChecker.Start(bc.ctx)
	}

	bc.metricsCollector = metrics.NewCollector(bc.name)

	bc.retryPolicy = NewRetryPolicy(
		cfg.Reliability.RetryAttempts,
		cfg.Reliability.RetryDelay,
	)
	if cfg.Reliability.MaxRetryDelay > 0 {
		bc.retryPolicy.MaxDelay = cfg.Reliability.MaxRetryDelay
	}

	bc.progressReporter = NewProgressReporter(bc.logger, bc.metricsCollector)

	bc.logger.Info("connector initialized",
		zap.String("type", string(bc.connectorType)),
		zap.String("version", bc.version))

	return nil
}

// Name returns the connector name
func (bc *BaseConnector) Name() string {
	return bc.name
}

// Type returns the connector type
func (bc *BaseConnector) Type() core.ConnectorType {
	return bc.connectorType
}

// Version returns the connector version
func (bc *BaseConnector) Version() string {
	return bc.version
}

// GetState returns a copy of the current state
func (bc *BaseConnector) GetState() core.State {
	bc.stateMutex.RLock()
	defer bc.stateMutex.RUnlock()

	stateCopy := make(core.State)
	for k, v := range bc.state {
		stateCopy[k] = v
	}
	return stateCopy
}

// SetState updates the connector state
func (bc *BaseConnector) SetState(state core.State) error {
	bc.stateMutex.Lock()
	defer bc.stateMutex.Unlock()

	bc.state = state
	bc.logger.Debug("state updated", zap.Any("state", state))
	return nil
}

// GetPosition returns the current position
func (bc *BaseConnector) GetPosition() core.Position {
	bc.stateMutex.RLock()
	defer bc.stateMutex.RUnlock()
	return bc.position
}

// SetPosition updates the current position
func (bc *BaseConnector) SetPosition(position core.Position) error {
	bc.stateMutex.Lock()
	defer bc.stateMutex.Unlock()

	bc.position = position
	if position != nil {
		bc.logger.Debug("position updated", zap.String("position", position.String()))
	}
	return nil
}

// Health performs a health check
func (bc *BaseConnector) Health(ctx context.Context) error {
	if bc.closed {
		return errors.New(errors.ErrorTypeConnection, "connector is closed")
	}

	if bc.healthChecker != nil {
		status := bc.healthChecker.GetStatus()
		if status.Status != "healthy" {
			return errors.Wrap(status.Error, errors.ErrorTypeHealth, "health check failed")
		}
	}

	return nil
}

// Metrics returns current metrics
func (bc *BaseConnector) Metrics() map[string]interface{} {
	m := bc.metricsCollector.GetAll()

	m["name"] = bc.name
	m["type"] = bc.connectorType
	m["version"] = bc.version
	m["uptime"] = time.Since(bc.metricsCollector.StartTime()).Seconds()

	if bc.circuitBreaker != nil {
		cbState := bc.circuitBreaker.GetState()
		m["circuit_breaker_state"] = cbState.State
	}

	if bc.rateLimiter != nil {
		rlStats := bc.rateLimiter.GetStats()
		m["rate_limit"] = rlStats.Rate
		m["rate_limiter_allowed"] = rlStats.AllowedRequests
		m["rate_limiter_blocked"] = rlStats.BlockedRequests
	}

	if bc.healthChecker != nil {
		status := bc.healthChecker.GetStatus()
		m["health_status"] = status.Status
		m["health_check_count"] = bc.healthChecker.CheckCount()
		m["health_failure_count"] = bc.healthChecker.FailureCount()
	}

	return m
}

// Close shuts down the connector
func (bc *BaseConnector) Close(ctx context.Context) error {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()

	if bc.closed {
		return nil
	}

	bc.logger.Info("closing connector")

	if bc.cancel != nil {
		bc.cancel()
	}

	if bc.healthChecker != nil {
		bc.healthChecker.Stop()
	}

	bc.closed = true
	bc.logger.Info("connector closed")

	return nil
}

// ExecuteWithRetry executes a function with exponential backoff retries for
// retryable errors.
func (bc *BaseConnector) ExecuteWithRetry(ctx context.Context, fn func() error) error {
	return bc.retryPolicy.ExecuteWithCondition(ctx, fn, errors.IsRetryable)
}

// ExecuteWithCircuitBreaker executes a function with circuit breaker
// protection. If the circuit is open, the function is not executed.
func (bc *BaseConnector) ExecuteWithCircuitBreaker(fn func() error) error {
	if bc.circuitBreaker == nil {
		return fn()
	}
	return bc.circuitBreaker.Execute(fn)
}

// RateLimit enforces the configured rate limit, blocking if necessary.
// Returns immediately if no rate limiter is configured.
func (bc *BaseConnector) RateLimit(ctx context.Context) error {
	if bc.rateLimiter == nil {
		return nil
	}
	return bc.rateLimiter.Wait(ctx)
}

// ReportProgress reports operation progress
func (bc *BaseConnector) ReportProgress(processed, total int64) {
	if bc.progressReporter != nil {
		bc.progressReporter.ReportProgress(processed, total)
	}
}

// GetLogger returns the connector logger
func (bc *BaseConnector) GetLogger() *zap.Logger {
	return bc.logger
}

// GetConfig returns the connector configuration
func (bc *BaseConnector) GetConfig() *config.BaseConfig {
	return bc.config
}

// GetContext returns the connector context
func (bc *BaseConnector) GetContext() context.Context {
	return bc.ctx
}

// GetMetricsCollector returns the metrics collector
func (bc *BaseConnector) GetMetricsCollector() *metrics.Collector {
	return bc.metricsCollector
}

// IsHealthy returns true if the connector is healthy
func (bc *BaseConnector) IsHealthy() bool {
	if bc.closed {
		return false
	}

	if bc.healthChecker != nil {
		status := bc.healthChecker.GetStatus()
		return status.Status == "healthy"
	}

	return true
}

// UpdateHealth updates the health status
func (bc *BaseConnector) UpdateHealth(healthy bool, details map[string]interface{}) {
	if bc.healthChecker != nil {
		bc.healthChecker.UpdateStatus(healthy, details)
	}
}

// SetHealthCheckFunc installs the function the periodic health checker runs
func (bc *BaseConnector) SetHealthCheckFunc(fn func(ctx context.Context) error) {
	if bc.healthChecker != nil {
		bc.healthChecker.SetCheckFunc(fn)
	}
}
