package extract

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"testing"

	"github.com/recruitsync/harvest-connector/pkg/compression"
	"github.com/recruitsync/harvest-connector/pkg/config"
	"github.com/recruitsync/harvest-connector/pkg/connector/core"
	"github.com/recruitsync/harvest-connector/pkg/errors"
	"github.com/recruitsync/harvest-connector/pkg/json"
	"github.com/recruitsync/harvest-connector/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource yields a fixed record list, then optionally an error.
type stubSource struct {
	records []*models.Record
	err     error
}

func (s *stubSource) Initialize(context.Context, *config.BaseConfig) error { return nil }
func (s *stubSource) Discover(context.Context) ([]core.StreamDescriptor, error) {
	return nil, nil
}
func (s *stubSource) Read(ctx context.Context) (*core.RecordStream, error) {
	records := make(chan *models.Record, len(s.records))
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(records)
		for _, r := range s.records {
			records <- r
		}
		if s.err != nil {
			errs <- s.err
		}
	}()
	return &core.RecordStream{Records: records, Errors: errs}, nil
}
func (s *stubSource) ReadBatch(context.Context, int) (*core.BatchStream, error) {
	return nil, errors.New(errors.ErrorTypeCapability, "not supported")
}
func (s *stubSource) Close(context.Context) error     { return nil }
func (s *stubSource) GetPosition() core.Position      { return nil }
func (s *stubSource) SetPosition(core.Position) error { return nil }
func (s *stubSource) GetState() core.State            { return nil }
func (s *stubSource) SetState(core.State) error       { return nil }
func (s *stubSource) SupportsIncremental() bool       { return false }
func (s *stubSource) SupportsBatch() bool             { return false }
func (s *stubSource) Health(context.Context) error    { return nil }
func (s *stubSource) Metrics() map[string]interface{} { return nil }

func stubRecords(n int) []*models.Record {
	out := make([]*models.Record, n)
	for i := 0; i < n; i++ {
		rec := models.NewRecord("greenhouse", map[string]interface{}{"id": i + 1})
		rec.Metadata.Entity = "candidates"
		out[i] = rec
	}
	return out
}

func TestRunnerWritesJSONLines(t *testing.T) {
	src := &stubSource{records: stubRecords(3)}
	runner := NewRunner(src, Options{})

	var buf bytes.Buffer
	n, err := runner.Run(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var rec models.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		assert.Equal(t, "candidates", rec.Metadata.Entity)
		lines++
	}
	assert.Equal(t, 3, lines)
}

func TestRunnerEmptySource(t *testing.T) {
	runner := NewRunner(&stubSource{}, Options{})

	var buf bytes.Buffer
	n, err := runner.Run(context.Background(), &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, buf.Len())
}

func TestRunnerGzipOutput(t *testing.T) {
	src := &stubSource{records: stubRecords(2)}
	runner := NewRunner(src, Options{Compression: compression.Gzip})

	var buf bytes.Buffer
	n, err := runner.Run(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	gz, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	plain, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(plain, []byte("\n")))
}

func TestRunnerPropagatesSourceError(t *testing.T) {
	src := &stubSource{
		records: stubRecords(1),
		err:     errors.New(errors.ErrorTypePermission, "forbidden"),
	}
	runner := NewRunner(src, Options{})

	var buf bytes.Buffer
	n, err := runner.Run(context.Background(), &buf)
	require.Error(t, err)
	assert.True(t, errors.IsPermission(err))
	// Records delivered before the failure are still on the output.
	assert.Equal(t, int64(1), n)
}
