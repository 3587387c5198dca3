package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payload = bytes.Repeat([]byte(`{"id": 12345, "status": "active"}`+"\n"), 200)

func TestParseAlgorithm(t *testing.T) {
	for _, name := range []string{"none", "gzip", "snappy", "lz4", "zstd"} {
		got, err := ParseAlgorithm(name)
		require.NoError(t, err)
		assert.Equal(t, Algorithm(name), got)
	}

	_, err := ParseAlgorithm("brotli")
	assert.Error(t, err)
}

func TestNoneWriterPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, None, Default)
	require.NoError(t, err)

	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, payload, buf.Bytes())
}

func TestGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Gzip, Best)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSnappyRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Snappy, Default)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := io.ReadAll(snappy.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestLZ4RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, LZ4, Fastest)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := io.ReadAll(lz4.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestZstdRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Zstd, Default)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "", Extension(None))
	assert.Equal(t, ".gz", Extension(Gzip))
	assert.Equal(t, ".zst", Extension(Zstd))
}
