// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package output

import (
	"context"
	"io"
	"os"

	"clo/cli/internal/dsn"
	apperr "clo/cli/internal/errors"
	"clo/cli/internal/logging"
	"clo/cli/internal/settings"
)

// Sink receives the result of one call.
type Sink interface {
	Write(ctx context.Context, model string, v any, f Format) error
	Close() error
}

// Open returns the sink named by target: "-" for stdout, a postgres:// URL
// for a database table, or a file path.
func Open(ctx context.Context, target string, stdout io.Writer, log *logging.Logger) (Sink, error) {
	switch {
	case target == "" || target == settings.Stdout:
		return &writerSink{w: stdout}, nil
	case dsn.IsPostgres(target):
		return OpenPostgres(ctx, target, log)
	}
	f, err := os.Create(target)
	if err != nil {
		return nil, apperr.Wrap(apperr.Output, "opening output file", err)
	}
	log.Debugf("Writing output to %s", target)
	return &writerSink{w: f, closer: f}, nil
}

type writerSink struct {
	w      io.Writer
	closer io.Closer
}

func (s *writerSink) Write(_ context.Context, _ string, v any, f Format) error {
	return Render(s.w, v, f)
}

func (s *writerSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
