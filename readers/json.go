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

package readers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aaronlmathis/ndjstrip/codec"
	"github.com/aaronlmathis/ndjstrip/core"
)

// MaxLineSize is the longest line a streaming JSONReader accepts.
const MaxLineSize = 64 * 1024 * 1024

// JSONReaderStats holds statistics about the reader's progress.
type JSONReaderStats struct {
	LinesRead int64
	BytesRead int64
}

// JSONReader implements DataSource for JSON lines files.
// Each line is trimmed of surrounding whitespace and must hold one JSON object.
type JSONReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	source  string
	stats   JSONReaderStats
	done    bool
}

// NewJSONReader creates a new JSON reader for line-delimited JSON
func NewJSONReader(r io.ReadCloser) *JSONReader {
	return newJSONReader(r, r, MaxLineSize)
}

// NewJSONFileReader reads the whole file at path into memory and returns a
// reader over its lines. The file is closed before NewJSONFileReader returns.
func NewJSONFileReader(path string) (*JSONReader, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	reader := newJSONReader(bytes.NewReader(content), nil, len(content)+1)
	reader.source = path
	return reader, nil
}

func newJSONReader(r io.Reader, closer io.Closer, maxLine int) *JSONReader {
	scanner := bufio.NewScanner(r)
	initial := 64 * 1024
	if maxLine < initial {
		initial = maxLine
	}
	scanner.Buffer(make([]byte, 0, initial), maxLine)
	return &JSONReader{
		scanner: scanner,
		closer:  closer,
	}
}

// Read implements the DataSource interface.
// Lines that do not hold a JSON object fail with a *core.ParseError.
func (j *JSONReader) Read(ctx context.Context) (*core.Record, error) {
	if j.done {
		return nil, io.EOF
	}
	if !j.scanner.Scan() {
		j.done = true
		if err := j.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan line %d: %w", j.stats.LinesRead+1, err)
		}
		return nil, io.EOF
	}

	line := j.scanner.Bytes()
	j.stats.LinesRead++
	j.stats.BytesRead += int64(len(line)) + 1

	record, err := codec.DecodeRecord(bytes.TrimSpace(line))
	if err != nil {
		return nil, &core.ParseError{Line: int(j.stats.LinesRead), Err: err}
	}

	return record, nil
}

// Source returns the path the reader was opened from, if any.
func (j *JSONReader) Source() string {
	return j.source
}

// Stats returns the reader's statistics.
func (j *JSONReader) Stats() JSONReaderStats {
	return j.stats
}

// Close implements the DataSource interface
func (j *JSONReader) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
