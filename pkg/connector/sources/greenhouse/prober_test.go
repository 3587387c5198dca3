package greenhouse

import (
	"context"
	"testing"

	"github.com/recruitsync/harvest-connector/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedProber returns a Prober whose probe outcome per entity is looked
// up in the given table: nil entry means accessible, a permission error
// means denied, anything else is fatal. Entities absent from the table are
// accessible.
func scriptedProber(t *testing.T, outcomes map[string]error, probed *[]string) *Prober {
	t.Helper()
	p := NewProber(nil, NewCatalog(), zap.NewNop(), nil)
	p.probeFn = func(_ context.Context, entity string) error {
		if probed != nil {
			*probed = append(*probed, entity)
		}
		return outcomes[entity]
	}
	return p
}

var errForbidden = errors.New(errors.ErrorTypePermission, "This API Key does not have permission for this endpoint")

func TestProbeAccessible(t *testing.T) {
	p := scriptedProber(t, nil, nil)

	ok, err := p.Probe(context.Background(), "candidates")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProbeDeniedIsNotAnError(t *testing.T) {
	p := scriptedProber(t, map[string]error{"offers": errForbidden}, nil)

	ok, err := p.Probe(context.Background(), "offers")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProbeFatalError(t *testing.T) {
	p := scriptedProber(t, map[string]error{
		"offers": errors.New(errors.ErrorTypeConnection, "connection refused"),
	}, nil)

	ok, err := p.Probe(context.Background(), "offers")
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestAccessibleEndpointsFiltersDenied(t *testing.T) {
	denied := map[string]error{
		"offers":                  errForbidden,
		"scorecards":              errForbidden,
		"applications.interviews": errForbidden,
	}
	p := scriptedProber(t, denied, nil)

	got, err := p.AccessibleEndpoints(context.Background())
	require.NoError(t, err)

	assert.Len(t, got, 22)
	assert.NotContains(t, got, "offers")
	assert.NotContains(t, got, "scorecards")
	assert.NotContains(t, got, "applications.interviews")

	// Declared order survives filtering.
	want := make([]string, 0, 22)
	for _, e := range NewCatalog().Entities() {
		if denied[e] == nil {
			want = append(want, e)
		}
	}
	assert.Equal(t, want, got)
}

func TestAccessibleEndpointsAllDenied(t *testing.T) {
	denied := make(map[string]error)
	for _, e := range NewCatalog().Entities() {
		denied[e] = errForbidden
	}
	p := scriptedProber(t, denied, nil)

	got, err := p.AccessibleEndpoints(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAccessibleEndpointsFatalAborts(t *testing.T) {
	// "close_reasons" is the third declared entity. The sweep must stop
	// there instead of probing the rest.
	fatal := errors.New(errors.ErrorTypeAuthentication, "invalid credentials")
	var probed []string
	p := scriptedProber(t, map[string]error{"close_reasons": fatal}, &probed)

	got, err := p.AccessibleEndpoints(context.Background())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
	assert.Equal(t, []string{"applications", "candidates", "close_reasons"}, probed)
}

func TestHealthCheckHealthy(t *testing.T) {
	denied := map[string]error{"offers": errForbidden}
	p := scriptedProber(t, denied, nil)

	ok, msg := p.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.Empty(t, msg)
}

func TestHealthCheckNoPermissions(t *testing.T) {
	denied := make(map[string]error)
	for _, e := range NewCatalog().Entities() {
		denied[e] = errForbidden
	}
	p := scriptedProber(t, denied, nil)

	ok, msg := p.HealthCheck(context.Background())
	assert.False(t, ok)
	assert.Equal(t, noPermissionsMessage, msg)
}

func TestHealthCheckFatalError(t *testing.T) {
	p := scriptedProber(t, map[string]error{
		"applications": errors.New(errors.ErrorTypeConnection, "dial tcp: timeout"),
	}, nil)

	ok, msg := p.HealthCheck(context.Background())
	assert.False(t, ok)
	assert.Contains(t, msg, "dial tcp: timeout")
}

func TestFilterStreams(t *testing.T) {
	denied := map[string]error{
		"candidates":    errForbidden,
		"jobs.stages":   errForbidden,
		"custom_fields": errForbidden,
	}
	p := scriptedProber(t, denied, nil)

	declared := declaredStreams(NewCatalog())
	got, err := p.FilterStreams(context.Background(), declared)
	require.NoError(t, err)

	assert.Len(t, got, 22)
	for _, s := range got {
		assert.NotContains(t, []string{"candidates", "jobs.stages", "custom_fields"}, s.Name)
	}
	assert.Equal(t, "applications", got[0].Name)
}

func TestFilterStreamsFatal(t *testing.T) {
	p := scriptedProber(t, map[string]error{
		"departments": errors.New(errors.ErrorTypeRateLimit, "too many requests"),
	}, nil)

	_, err := p.FilterStreams(context.Background(), declaredStreams(NewCatalog()))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRateLimit))
}

func TestDeclaredStreamsShape(t *testing.T) {
	streams := declaredStreams(NewCatalog())

	require.Len(t, streams, 25)
	for _, s := range streams {
		assert.Equal(t, []string{"id"}, s.PrimaryKey, s.Name)
		require.NotNil(t, s.Schema, s.Name)
		assert.Equal(t, s.Name, s.Schema.Name)
		assert.Equal(t, "id", s.Schema.Fields[0].Name)
		assert.True(t, s.Schema.Fields[0].Primary)
	}
}
