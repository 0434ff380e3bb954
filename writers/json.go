//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of ndjstrip.
//
// ndjstrip is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ndjstrip is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ndjstrip. If not, see https://www.gnu.org/licenses/.

package writers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/aaronlmathis/ndjstrip/codec"
	"github.com/aaronlmathis/ndjstrip/core"
)

var errWriterState = errors.New("writer is in error state")

// JSONWriterError wraps JSON-specific write errors with context.
type JSONWriterError struct {
	Op  string
	Err error
}

func (e *JSONWriterError) Error() string {
	return fmt.Sprintf("json writer %s: %v", e.Op, e.Err)
}

func (e *JSONWriterError) Unwrap() error {
	return e.Err
}

// JSONWriterStats holds JSON write performance statistics.
type JSONWriterStats struct {
	RecordsWritten  int64
	BytesWritten    int64
	FlushCount      int64
	FlushDuration   time.Duration
	LastFlushTime   time.Time
	NullValueCounts map[string]int64
}

// JSONWriterOptions configures JSON lines output.
type JSONWriterOptions struct {
	// BatchSize is the number of lines buffered before a flush when FlushOnWrite is off.
	// Zero or less flushes every line.
	BatchSize int
	// FlushOnWrite pushes every line to the underlying writer as it is written.
	FlushOnWrite bool
}

// WriterOptionJSON is a functional option.
type WriterOptionJSON func(*JSONWriterOptions)

func WithJSONBatchSize(size int) WriterOptionJSON {
	return func(opts *JSONWriterOptions) {
		opts.BatchSize = size
	}
}

func WithFlushOnWrite(flush bool) WriterOptionJSON {
	return func(opts *JSONWriterOptions) {
		opts.FlushOnWrite = flush
	}
}

// JSONWriter implements DataSink for JSON lines output with stats and batching.
// Every record is written as one line of compact JSON followed by "\n".
type JSONWriter struct {
	writer     io.Writer
	closer     io.Closer
	options    JSONWriterOptions
	buf        []byte
	pending    int
	stats      JSONWriterStats
	errorState bool
	closed     bool
	mu         sync.Mutex
}

// NewJSONWriter creates a new JSON writer for line-delimited JSON output
func NewJSONWriter(w io.WriteCloser, opts ...WriterOptionJSON) *JSONWriter {
	options := JSONWriterOptions{
		BatchSize:    1000,
		FlushOnWrite: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &JSONWriter{
		writer:  w,
		closer:  w,
		options: options,
		stats: JSONWriterStats{
			NullValueCounts: make(map[string]int64),
		},
	}
}

// CreateJSONFile creates or truncates the file at path and returns a writer for it.
func CreateJSONFile(path string, opts ...WriterOptionJSON) (*JSONWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &JSONWriterError{Op: "create", Err: err}
	}
	return NewJSONWriter(f, opts...), nil
}

// Write implements the DataSink interface
func (j *JSONWriter) Write(ctx context.Context, record *core.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.errorState {
		return &JSONWriterError{Op: "write", Err: errWriterState}
	}
	if j.closed {
		return &JSONWriterError{Op: "write", Err: os.ErrClosed}
	}

	data, err := codec.EncodeRecord(record)
	if err != nil {
		return &JSONWriterError{Op: "marshal", Err: err}
	}

	record.Range(func(key string, value interface{}) bool {
		if value == nil {
			j.stats.NullValueCounts[key]++
		}
		return true
	})

	j.buf = append(j.buf, data...)
	j.buf = append(j.buf, '\n')
	j.pending++
	j.stats.RecordsWritten++

	if j.options.FlushOnWrite || j.options.BatchSize <= 0 || j.pending >= j.options.BatchSize {
		return j.flushLocked()
	}
	return nil
}

// Flush implements the DataSink interface
func (j *JSONWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *JSONWriter) flushLocked() error {
	if j.errorState {
		return &JSONWriterError{Op: "flush", Err: errWriterState}
	}
	if j.pending == 0 {
		return nil
	}

	start := time.Now()
	n, err := j.writer.Write(j.buf)
	j.stats.BytesWritten += int64(n)
	if err != nil {
		j.errorState = true
		return &JSONWriterError{Op: "write", Err: err}
	}
	if flusher, ok := j.writer.(interface{ Flush() error }); ok {
		if err := flusher.Flush(); err != nil {
			j.errorState = true
			return &JSONWriterError{Op: "flush", Err: err}
		}
	}

	j.buf = j.buf[:0]
	j.pending = 0
	j.stats.FlushCount++
	j.stats.FlushDuration += time.Since(start)
	j.stats.LastFlushTime = time.Now()
	return nil
}

// Stats returns a copy of the writer's statistics.
func (j *JSONWriter) Stats() JSONWriterStats {
	j.mu.Lock()
	defer j.mu.Unlock()

	stats := j.stats
	stats.NullValueCounts = make(map[string]int64, len(j.stats.NullValueCounts))
	for k, v := range j.stats.NullValueCounts {
		stats.NullValueCounts[k] = v
	}
	return stats
}

// Close implements the DataSink interface.
// Buffered lines are flushed before the underlying writer is closed.
func (j *JSONWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	flushErr := j.flushLocked()
	if j.closer != nil {
		if err := j.closer.Close(); err != nil && flushErr == nil {
			return &JSONWriterError{Op: "close", Err: err}
		}
	}
	return flushErr
}
