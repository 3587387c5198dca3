package greenhouse

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/recruitsync/harvest-connector/pkg/clients"
	"github.com/recruitsync/harvest-connector/pkg/config"
	"github.com/recruitsync/harvest-connector/pkg/connector/base"
	"github.com/recruitsync/harvest-connector/pkg/connector/core"
	"github.com/recruitsync/harvest-connector/pkg/errors"
	"github.com/recruitsync/harvest-connector/pkg/models"
	"go.uber.org/zap"
)

// GreenhouseSource extracts recruiting records from the Greenhouse Harvest
// API. It implements core.Source: the declared stream set comes from the
// catalog, runtime availability from the access prober, and records flow
// through the depth-first traversal engine.
type GreenhouseSource struct {
	*base.BaseConnector

	apiKey  string
	baseURL string
	// requested is the operator-selected stream subset; empty means all
	// accessible streams
	requested []string

	httpClient *clients.HTTPClient
	client     *Client
	catalog    *Catalog
	prober     *Prober

	extractedRecords int64
}

// Position tracks extraction progress as the entity being read and the
// number of records emitted so far across the whole run.
type Position struct {
	Entity  string `json:"entity"`
	Records int64  `json:"records"`
}

// String returns the position in entity:count form.
func (p *Position) String() string {
	return fmt.Sprintf("%s:%d", p.Entity, p.Records)
}

// Compare orders positions by emitted record count.
func (p *Position) Compare(other core.Position) int {
	o, ok := other.(*Position)
	if !ok {
		return 0
	}
	switch {
	case p.Records < o.Records:
		return -1
	case p.Records > o.Records:
		return 1
	default:
		return 0
	}
}

// NewGreenhouseSource creates an uninitialized Greenhouse source connector.
func NewGreenhouseSource(cfg *config.BaseConfig) (core.Source, error) {
	name := "greenhouse"
	if cfg != nil && cfg.Name != "" {
		name = cfg.Name
	}
	return &GreenhouseSource{
		BaseConnector: base.NewBaseConnector(name, core.ConnectorTypeSource, "1.0.0"),
	}, nil
}

// Initialize validates credentials, builds the API client, and wires the
// catalog and prober. The connector is usable after Initialize returns.
func (s *GreenhouseSource) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if err := s.BaseConnector.Initialize(ctx, cfg); err != nil {
		return err
	}

	s.apiKey = cfg.Security.Credentials["api_key"]
	if s.apiKey == "" {
		return errors.New(errors.ErrorTypeConfig, "api_key credential is required")
	}
	s.baseURL = cfg.Security.Credentials["base_url"]

	if streams := cfg.Security.Credentials["streams"]; streams != "" {
		s.requested = splitStreams(streams)
	}

	httpCfg := clients.DefaultHTTPConfig()
	if cfg.Timeouts.Request > 0 {
		httpCfg.RequestTimeout = cfg.Timeouts.Request
	}
	if cfg.Timeouts.Connection > 0 {
		httpCfg.DialTimeout = cfg.Timeouts.Connection
	}
	if cfg.Timeouts.Idle > 0 {
		httpCfg.IdleConnTimeout = cfg.Timeouts.Idle
	}
	// 0 disables client-side throttling (config contract: 0 = unlimited).
	httpCfg.RateLimit = float64(cfg.Reliability.RateLimitPerSec)
	httpCfg.RateBurst = cfg.Reliability.RateLimitPerSec * 2
	httpCfg.CircuitBreakerEnabled = cfg.Reliability.CircuitBreaker
	httpCfg.InsecureSkipVerify = cfg.Security.TLSSkipVerify

	httpClient, err := clients.NewHTTPClient(httpCfg, s.GetLogger())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to build HTTP client")
	}
	s.httpClient = httpClient

	opts := []ClientOption{WithMetrics(s.GetMetricsCollector())}
	if s.baseURL != "" {
		opts = append(opts, WithBaseURL(s.baseURL))
	}
	client, err := NewClient(s.apiKey, httpClient, s.GetLogger(), opts...)
	if err != nil {
		return err
	}
	s.client = client
	s.catalog = NewCatalog()
	s.prober = NewProber(client, s.catalog, s.GetLogger(), s.GetMetricsCollector())

	for _, entity := range s.requested {
		if _, _, err := s.catalog.Resolve(entity); err != nil {
			return err
		}
	}

	// Periodic health rides on a cheap single-endpoint probe. A permission
	// denial still proves the key reaches the API, so it counts as healthy.
	s.SetHealthCheckFunc(func(ctx context.Context) error {
		_, err := s.prober.Probe(ctx, "users")
		return err
	})

	s.GetLogger().Info("greenhouse source initialized",
		zap.Int("declared_streams", len(s.catalog.Entities())),
		zap.Strings("requested_streams", s.requested))

	return nil
}

// SetStreams restricts extraction to the given entity names. Unknown names
// are rejected.
func (s *GreenhouseSource) SetStreams(streams []string) error {
	if s.catalog == nil {
		return errors.New(errors.ErrorTypeInternal, "source not initialized")
	}
	for _, entity := range streams {
		if _, _, err := s.catalog.Resolve(entity); err != nil {
			return err
		}
	}
	s.requested = streams
	return nil
}

// Discover probes the API and returns the declared streams the configured
// API key can actually read.
func (s *GreenhouseSource) Discover(ctx context.Context) ([]core.StreamDescriptor, error) {
	return s.prober.FilterStreams(ctx, declaredStreams(s.catalog))
}

// List starts a lazy traversal of one entity. Filter params apply to the
// root collection request.
func (s *GreenhouseSource) List(entity string, params url.Values) (*Iterator, error) {
	root, chain, err := s.catalog.Resolve(entity)
	if err != nil {
		return nil, err
	}
	return newTraversal(s.client.Resource(root), chain, params), nil
}

// HealthCheck runs a full probe sweep and reports whether the connection
// is usable, with a human-readable reason when it is not.
func (s *GreenhouseSource) HealthCheck(ctx context.Context) (bool, string) {
	return s.prober.HealthCheck(ctx)
}

// AccessibleEndpoints returns the entity names the API key can read.
func (s *GreenhouseSource) AccessibleEndpoints(ctx context.Context) ([]string, error) {
	return s.prober.AccessibleEndpoints(ctx)
}

// Read streams records for the selected entities. Entities are read in
// catalog order; within an entity the traversal engine's ordering holds.
// The stream ends on the first error or when all entities are drained.
func (s *GreenhouseSource) Read(ctx context.Context) (*core.RecordStream, error) {
	selected, err := s.selectEntities(ctx)
	if err != nil {
		return nil, err
	}

	bufferSize := s.GetConfig().Performance.BufferSize
	records := make(chan *models.Record, bufferSize)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)

		for _, entity := range selected {
			if err := s.readEntity(ctx, entity, records); err != nil {
				errs <- err
				return
			}
		}
	}()

	return &core.RecordStream{Records: records, Errors: errs}, nil
}

// ReadBatch streams records grouped into batches of at most batchSize.
func (s *GreenhouseSource) ReadBatch(ctx context.Context, batchSize int) (*core.BatchStream, error) {
	if batchSize <= 0 {
		batchSize = s.GetConfig().Performance.BatchSize
	}

	stream, err := s.Read(ctx)
	if err != nil {
		return nil, err
	}

	batches := make(chan []*models.Record, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(batches)
		defer close(errs)

		batch := make([]*models.Record, 0, batchSize)
		flush := func() {
			if len(batch) > 0 {
				batches <- batch
				batch = make([]*models.Record, 0, batchSize)
			}
		}

		for {
			select {
			case rec, ok := <-stream.Records:
				if !ok {
					flush()
					if err, ok := <-stream.Errors; ok && err != nil {
						errs <- err
					}
					return
				}
				batch = append(batch, rec)
				if len(batch) >= batchSize {
					flush()
				}
			case <-ctx.Done():
				errs <- errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "batch read cancelled")
				return
			}
		}
	}()

	return &core.BatchStream{Batches: batches, Errors: errs}, nil
}

// readEntity drains one entity's traversal into the output channel.
func (s *GreenhouseSource) readEntity(ctx context.Context, entity string, out chan<- *models.Record) error {
	s.GetLogger().Info("reading entity", zap.String("entity", entity))

	it, err := s.List(entity, url.Values{})
	if err != nil {
		return err
	}

	count := 0
	for it.Next(ctx) {
		select {
		case out <- it.Record():
			count++
			total := atomic.AddInt64(&s.extractedRecords, 1)
			if total%int64(s.GetConfig().Performance.BatchSize) == 0 {
				s.ReportProgress(total, 0)
				_ = s.SetPosition(&Position{Entity: entity, Records: total})
			}
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "read cancelled")
		}
	}
	if err := it.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData,
			fmt.Sprintf("extraction failed for entity %s", entity))
	}

	s.GetMetricsCollector().RecordsExtracted(entity, count)
	_ = s.SetPosition(&Position{Entity: entity, Records: atomic.LoadInt64(&s.extractedRecords)})

	s.GetLogger().Info("entity complete",
		zap.String("entity", entity),
		zap.Int("records", count))

	return nil
}

// selectEntities resolves which entities this run reads: the requested
// subset when one was configured, otherwise every accessible entity.
func (s *GreenhouseSource) selectEntities(ctx context.Context) ([]string, error) {
	if len(s.requested) > 0 {
		return s.requested, nil
	}
	accessible, err := s.prober.AccessibleEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	if len(accessible) == 0 {
		return nil, errors.New(errors.ErrorTypePermission, noPermissionsMessage)
	}
	return accessible, nil
}

// SupportsIncremental reports cursor-based incremental support. The
// Harvest list endpoints used here are full-refresh only.
func (s *GreenhouseSource) SupportsIncremental() bool {
	return false
}

// SupportsBatch reports batch read support.
func (s *GreenhouseSource) SupportsBatch() bool {
	return true
}

// Metrics returns base connector metrics plus extraction counters.
func (s *GreenhouseSource) Metrics() map[string]interface{} {
	m := s.BaseConnector.Metrics()
	m["extracted_records"] = atomic.LoadInt64(&s.extractedRecords)
	if s.httpClient != nil {
		stats := s.httpClient.Stats()
		m["http_total_requests"] = stats.TotalRequests
		m["http_failed_requests"] = stats.FailedRequests
		m["circuit_breaker"] = s.httpClient.CircuitBreakerState().State
	}
	return m
}

func splitStreams(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
