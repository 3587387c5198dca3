package greenhouse

import (
	"context"
	"net/url"

	"github.com/recruitsync/harvest-connector/pkg/connector/core"
	"github.com/recruitsync/harvest-connector/pkg/errors"
	"github.com/recruitsync/harvest-connector/pkg/metrics"
	"go.uber.org/zap"
)

// noPermissionsMessage is returned by HealthCheck when the API key cannot
// read a single endpoint.
const noPermissionsMessage = "Your API Key does not have permission for any existing endpoints. " +
	"Please grant read permissions for required streams/endpoints"

// Prober determines which catalog entities the configured API key can
// read. Permission denials are expected and tolerated; any other failure
// is treated as fatal because it means probe results would be unreliable.
type Prober struct {
	client  *Client
	catalog *Catalog
	logger  *zap.Logger
	metrics *metrics.Collector

	// probeFn issues the minimal read for one entity. Swapped in tests.
	probeFn func(ctx context.Context, entity string) error
}

// NewProber creates a prober over the given client and catalog.
func NewProber(client *Client, catalog *Catalog, log *zap.Logger, collector *metrics.Collector) *Prober {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Prober{
		client:  client,
		catalog: catalog,
		logger:  log.With(zap.String("component", "access_prober")),
		metrics: collector,
	}
	p.probeFn = p.probe
	return p
}

// probe issues a single first-page read against the entity's root
// collection and discards the records. Only the outcome matters.
func (p *Prober) probe(ctx context.Context, entity string) error {
	root, _, err := p.catalog.Resolve(entity)
	if err != nil {
		return err
	}
	_, err = p.client.Resource(root).Get(ctx, url.Values{})
	return err
}

// Probe checks a single entity. It returns true when the entity is
// readable, false when the API key lacks permission for it, and a non-nil
// error for any other failure.
func (p *Prober) Probe(ctx context.Context, entity string) (bool, error) {
	err := p.probeFn(ctx, entity)
	switch {
	case err == nil:
		if p.metrics != nil {
			p.metrics.ProbeResult("accessible")
		}
		return true, nil
	case errors.IsPermission(err):
		if p.metrics != nil {
			p.metrics.ProbeResult("forbidden")
		}
		p.logger.Warn("endpoint not available for this API key",
			zap.String("entity", entity))
		return false, nil
	default:
		if p.metrics != nil {
			p.metrics.ProbeResult("error")
		}
		return false, err
	}
}

// AccessibleEndpoints probes every catalog entity in declared order and
// returns the readable subset, order preserved. The first non-permission
// failure aborts the sweep and is returned as-is.
func (p *Prober) AccessibleEndpoints(ctx context.Context) ([]string, error) {
	accessible := make([]string, 0, len(entities))

	for _, entity := range p.catalog.Entities() {
		ok, err := p.Probe(ctx, entity)
		if err != nil {
			return nil, err
		}
		if ok {
			accessible = append(accessible, entity)
		}
	}

	p.logger.Info("access probe complete",
		zap.Int("accessible", len(accessible)),
		zap.Int("declared", len(entities)))

	return accessible, nil
}

// HealthCheck reports whether the connection is usable. It fails when the
// probe sweep hits a fatal error or when the API key cannot read any
// endpoint at all.
func (p *Prober) HealthCheck(ctx context.Context) (bool, string) {
	accessible, err := p.AccessibleEndpoints(ctx)
	if err != nil {
		return false, err.Error()
	}
	if len(accessible) == 0 {
		return false, noPermissionsMessage
	}
	return true, ""
}

// FilterStreams narrows a declared stream set down to the streams the API
// key can read, preserving the declared order.
func (p *Prober) FilterStreams(ctx context.Context, declared []core.StreamDescriptor) ([]core.StreamDescriptor, error) {
	accessible, err := p.AccessibleEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	readable := make(map[string]bool, len(accessible))
	for _, name := range accessible {
		readable[name] = true
	}

	filtered := make([]core.StreamDescriptor, 0, len(declared))
	for _, stream := range declared {
		if readable[stream.Name] {
			filtered = append(filtered, stream)
		}
	}
	return filtered, nil
}
