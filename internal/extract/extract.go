// Package extract drains a source connector into a JSON-lines stream,
// optionally compressed. It is the glue between the connector's record
// channels and whatever sink the operator pointed the CLI at.
package extract

import (
	"context"
	"io"

	"github.com/recruitsync/harvest-connector/pkg/compression"
	"github.com/recruitsync/harvest-connector/pkg/connector/core"
	"github.com/recruitsync/harvest-connector/pkg/errors"
	"github.com/recruitsync/harvest-connector/pkg/json"
	"github.com/recruitsync/harvest-connector/pkg/logger"
	"go.uber.org/zap"
)

// Options configures an extraction run.
type Options struct {
	// Compression selects the output compression algorithm
	Compression compression.Algorithm
	// CompressionLevel tunes speed versus ratio
	CompressionLevel compression.Level
}

// Runner writes every record a source produces to an output writer, one
// JSON object per line.
type Runner struct {
	source core.Source
	opts   Options
	logger *zap.Logger
}

// NewRunner creates a runner for an initialized source.
func NewRunner(source core.Source, opts Options) *Runner {
	if opts.Compression == "" {
		opts.Compression = compression.None
	}
	if opts.CompressionLevel == 0 {
		opts.CompressionLevel = compression.Default
	}
	return &Runner{
		source: source,
		opts:   opts,
		logger: logger.Get().With(zap.String("component", "extract_runner")),
	}
}

// Run streams the source into w and returns the number of records written.
// The stream is written in arrival order; on failure the records already
// written remain valid output.
func (r *Runner) Run(ctx context.Context, w io.Writer) (int64, error) {
	out, err := compression.NewWriter(w, r.opts.Compression, r.opts.CompressionLevel)
	if err != nil {
		return 0, err
	}

	stream, err := r.source.Read(ctx)
	if err != nil {
		_ = out.Close()
		return 0, err
	}

	enc := json.NewEncoder(out)

	var written int64
	for rec := range stream.Records {
		if err := enc.Encode(rec); err != nil {
			_ = out.Close()
			return written, errors.Wrap(err, errors.ErrorTypeData, "failed to encode record")
		}
		written++
	}

	// The error channel is closed by the source after the record channel.
	if readErr, ok := <-stream.Errors; ok && readErr != nil {
		_ = out.Close()
		return written, readErr
	}

	if err := out.Close(); err != nil {
		return written, errors.Wrap(err, errors.ErrorTypeData, "failed to flush output")
	}

	r.logger.Info("extraction finished", zap.Int64("records", written))
	return written, nil
}
