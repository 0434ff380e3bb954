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

package ndjstrip

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"k8s.io/klog/v2"

	"github.com/aaronlmathis/ndjstrip/core"
	"github.com/aaronlmathis/ndjstrip/readers"
	"github.com/aaronlmathis/ndjstrip/transform"
	"github.com/aaronlmathis/ndjstrip/writers"
)

const (
	// InputFile is read from the working directory.
	InputFile = "revocations_matrix_distribution_by_race.json"
	// OutputFile is created in the working directory, replacing any existing file.
	OutputFile = "revocations_matrix_distribution_by_race_updated.json"
	// TargetField is removed from every record.
	TargetField = "state_code"
)

// outputBatchSize is the number of lines buffered between writes to the output file.
const outputBatchSize = 1000

// Run removes TargetField from every record of InputFile and writes the result to OutputFile.
func Run(ctx context.Context) (Result, error) {
	return StripFile(ctx, InputFile, OutputFile, TargetField)
}

// StripFile copies the newline-delimited JSON file at inputPath to outputPath,
// dropping field from every record.
//
// The input is read and parsed in full before outputPath is opened. The first
// line that is not a JSON object aborts the run with a *core.ParseError and
// outputPath is left as it was. Records without field are copied unchanged.
func StripFile(ctx context.Context, inputPath, outputPath, field string) (Result, error) {
	reader, err := readers.NewJSONFileReader(inputPath)
	if err != nil {
		return Result{}, err
	}
	klog.V(2).Infof("read %s, stripping %q", inputPath, field)

	removed := 0
	var writer *writers.JSONWriter
	pipeline, err := NewPipeline().
		From(reader).
		Map(func(ctx context.Context, record *core.Record) (*core.Record, error) {
			if record.Has(field) {
				removed++
			}
			return record, nil
		}).
		Transform(transform.RemoveField(field)).
		ToDeferred(func(ctx context.Context) (core.DataSink, error) {
			klog.V(2).Infof("parsed %d records, creating %s", reader.Stats().LinesRead, outputPath)
			w, err := writers.CreateJSONFile(outputPath,
				writers.WithFlushOnWrite(false),
				writers.WithJSONBatchSize(outputBatchSize))
			if err != nil {
				return nil, err
			}
			writer = w
			return w, nil
		}).
		Build()
	if err != nil {
		reader.Close()
		return Result{}, err
	}

	result, err := pipeline.Execute(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to strip %q from %s: %w", field, inputPath, err)
	}

	klog.Infof("wrote %d records to %s (%q removed from %d)", result.RecordsWritten, outputPath, field, removed)
	if v := klog.V(2); v.Enabled() && writer != nil {
		v.Info(writeSummary(writer.Stats()))
	}
	return result, nil
}

// writeSummary renders output statistics with null counts sorted by field.
func writeSummary(stats writers.JSONWriterStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d bytes in %d flushes (%s)", stats.BytesWritten, stats.FlushCount, stats.FlushDuration)

	fields := make([]string, 0, len(stats.NullValueCounts))
	for field := range stats.NullValueCounts {
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return sb.String()
	}
	sort.Strings(fields)

	sb.WriteString(", null values:")
	for _, field := range fields {
		fmt.Fprintf(&sb, " %s=%d", field, stats.NullValueCounts[field])
	}
	return sb.String()
}
