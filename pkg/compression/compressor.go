// Package compression provides streaming compression for extracted record
// output. It supports multiple algorithms with configurable levels.
//
// Algorithm selection:
//   - Snappy/LZ4: best for speed, moderate compression
//   - Zstd: best compression ratio, good speed
//   - Gzip: wide compatibility, good compression
//
// Example:
//
//	w, err := compression.NewWriter(f, compression.Zstd, compression.Default)
//	if err != nil { ... }
//	defer w.Close()
//	enc := json.NewEncoder(w)
package compression

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
)

// Level represents compression level, trading speed against ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Best maximizes compression ratio
	Best Level = 9
)

// ParseAlgorithm validates an algorithm name from configuration.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case None, Gzip, Snappy, LZ4, Zstd:
		return Algorithm(name), nil
	case "":
		return None, nil
	default:
		return None, fmt.Errorf("unknown compression algorithm %q", name)
	}
}

// nopWriteCloser passes writes through and makes Close a no-op, so callers
// can treat uncompressed output uniformly.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w with a streaming compressor for the given algorithm.
// The returned writer must be closed to flush compressed trailers; closing
// it does not close the underlying writer.
func NewWriter(w io.Writer, algorithm Algorithm, level Level) (io.WriteCloser, error) {
	switch algorithm {
	case None:
		return nopWriteCloser{w}, nil

	case Gzip:
		gzLevel := gzip.DefaultCompression
		switch {
		case level <= Fastest:
			gzLevel = gzip.BestSpeed
		case level >= Best:
			gzLevel = gzip.BestCompression
		}
		return gzip.NewWriterLevel(w, gzLevel)

	case Snappy:
		return snappy.NewBufferedWriter(w), nil

	case LZ4:
		lw := lz4.NewWriter(w)
		if level >= Best {
			if err := lw.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
				return nil, err
			}
		}
		return lw, nil

	case Zstd:
		zLevel := zstd.SpeedDefault
		switch {
		case level <= Fastest:
			zLevel = zstd.SpeedFastest
		case level >= Best:
			zLevel = zstd.SpeedBestCompression
		}
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zLevel))

	default:
		return nil, fmt.Errorf("unknown compression algorithm %q", algorithm)
	}
}

// Extension returns the conventional file extension for the algorithm,
// including the leading dot, or an empty string for None.
func Extension(algorithm Algorithm) string {
	switch algorithm {
	case Gzip:
		return ".gz"
	case Snappy:
		return ".snappy"
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	default:
		return ""
	}
}
