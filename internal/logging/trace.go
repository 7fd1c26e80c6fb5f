// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"bytes"
	"io"
	"sync"
)

// TraceWriter returns a writer that logs every line written to it at TRACE.
// Close logs a trailing partial line. Nothing is logged when TRACE is not
// enabled.
func (l *Logger) TraceWriter() io.WriteCloser {
	if !l.Enabled(TRACE) {
		return nopCloser{io.Discard}
	}
	return &traceWriter{log: l}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type traceWriter struct {
	mu  sync.Mutex
	log *Logger
	buf bytes.Buffer
}

func (w *traceWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.log.Trace(line[:len(line)-1])
	}
	return len(p), nil
}

func (w *traceWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.log.Trace(w.buf.String())
		w.buf.Reset()
	}
	return nil
}
