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
	"errors"
	"fmt"
	"io"

	"github.com/aaronlmathis/ndjstrip/core"
)

// Package ndjstrip rewrites newline-delimited JSON files record by record.
//
// Core Concepts:
//   - DataSource: reads records, e.g. readers.JSONReader.
//   - DataSink: writes records, e.g. writers.JSONWriter.
//   - Transformer / Filter: per-record logic applied in order.
//   - Pipeline: fluent builder tying the above together.
//
// Example usage:
//
//   pipeline, err := ndjstrip.NewPipeline().
//       From(reader).
//       Transform(transform.RemoveField("state_code")).
//       ToDeferred(func(ctx context.Context) (core.DataSink, error) {
//           return writers.CreateJSONFile(path)
//       }).
//       Build()
//   if err != nil { log.Fatal(err) }
//   result, err := pipeline.Execute(context.Background())

// SinkOpener opens a sink once the source has been fully drained.
type SinkOpener func(ctx context.Context) (core.DataSink, error)

// Result summarizes a pipeline run.
type Result struct {
	RecordsRead    int64
	RecordsWritten int64
	// RecordsSkipped counts records dropped by filters, nil transform results or skipped errors.
	RecordsSkipped int64
}

// PipelineBuilder provides a fluent API for constructing transformation pipelines.
// Use NewPipeline() to create a new builder, then chain From, Transform, Filter, To, and configuration methods.
type PipelineBuilder struct {
	pipeline *Pipeline
}

// NewPipeline creates a new PipelineBuilder for constructing a pipeline.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: &Pipeline{
			transformers: make([]core.Transformer, 0),
			filters:      make([]core.Filter, 0),
			strategy:     core.FailFast,
		},
	}
}

// From sets the DataSource for the pipeline.
func (pb *PipelineBuilder) From(source core.DataSource) *PipelineBuilder {
	pb.pipeline.source = source
	return pb
}

// Transform adds a Transformer to the pipeline.
func (pb *PipelineBuilder) Transform(transformer core.Transformer) *PipelineBuilder {
	pb.pipeline.transformers = append(pb.pipeline.transformers, transformer)
	return pb
}

// Filter adds a Filter to the pipeline.
func (pb *PipelineBuilder) Filter(filter core.Filter) *PipelineBuilder {
	pb.pipeline.filters = append(pb.pipeline.filters, filter)
	return pb
}

// Map adds a mapping transformation to the pipeline using a function.
func (pb *PipelineBuilder) Map(fn func(ctx context.Context, record *core.Record) (*core.Record, error)) *PipelineBuilder {
	return pb.Transform(core.TransformFunc(fn))
}

// Where adds a filtering condition to the pipeline using a function.
func (pb *PipelineBuilder) Where(fn func(ctx context.Context, record *core.Record) (bool, error)) *PipelineBuilder {
	return pb.Filter(core.FilterFunc(fn))
}

// To sets the DataSink for the pipeline. Records are written as they are read.
func (pb *PipelineBuilder) To(sink core.DataSink) *PipelineBuilder {
	pb.pipeline.sink = sink
	return pb
}

// ToDeferred sets a sink that is opened only after every record has been
// read and transformed. Records are held in memory until then, so a failure
// while reading leaves the destination untouched.
func (pb *PipelineBuilder) ToDeferred(open SinkOpener) *PipelineBuilder {
	pb.pipeline.open = open
	return pb
}

// WithErrorStrategy sets the error handling strategy for the pipeline.
func (pb *PipelineBuilder) WithErrorStrategy(strategy core.ErrorStrategy) *PipelineBuilder {
	pb.pipeline.strategy = strategy
	return pb
}

// WithErrorHandler sets a custom error handler for the pipeline.
func (pb *PipelineBuilder) WithErrorHandler(handler core.ErrorHandler) *PipelineBuilder {
	pb.pipeline.errorHandler = handler
	return pb
}

// Build validates and constructs the Pipeline from the builder.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	if pb.pipeline.source == nil {
		return nil, fmt.Errorf("pipeline requires a data source")
	}
	if pb.pipeline.sink == nil && pb.pipeline.open == nil {
		return nil, fmt.Errorf("pipeline requires a data sink")
	}
	if pb.pipeline.sink != nil && pb.pipeline.open != nil {
		return nil, fmt.Errorf("pipeline accepts either To or ToDeferred, not both")
	}
	return pb.pipeline, nil
}

// Pipeline represents a data processing pipeline.
//
// Use Execute to process all records from the DataSource through transformations and filters, writing to the DataSink.
type Pipeline struct {
	transformers []core.Transformer
	filters      []core.Filter
	source       core.DataSource
	sink         core.DataSink
	open         SinkOpener
	strategy     core.ErrorStrategy
	errorHandler core.ErrorHandler
	collected    []error
}

// Execute runs the pipeline, processing all records from source to sink.
//
// Records are never dropped for being empty, so without filters or skipped
// errors the sink receives exactly as many records as the source produced.
// The source and sink are closed before Execute returns.
func (p *Pipeline) Execute(ctx context.Context) (Result, error) {
	if p.open != nil {
		return p.executeDeferred(ctx)
	}
	return p.executeStreaming(ctx)
}

// Errors returns the errors gathered under the CollectErrors strategy.
func (p *Pipeline) Errors() []error {
	return p.collected
}

func (p *Pipeline) executeStreaming(ctx context.Context) (result Result, err error) {
	defer func() {
		p.source.Close()
		if cerr := closeSink(p.sink); err == nil {
			err = cerr
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		record, ok, err := p.next(ctx, &result)
		if err != nil {
			return result, err
		}
		if record == nil {
			if !ok {
				return result, nil
			}
			continue
		}

		if err := p.sink.Write(ctx, record); err != nil {
			if err := p.handleError(ctx, record, err); err != nil {
				return result, err
			}
			result.RecordsSkipped++
			continue
		}
		result.RecordsWritten++
	}
}

func (p *Pipeline) executeDeferred(ctx context.Context) (Result, error) {
	var result Result

	records, err := p.drain(ctx, &result)
	if err != nil {
		return result, err
	}

	sink, err := p.open(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to open sink: %w", err)
	}

	for _, record := range records {
		select {
		case <-ctx.Done():
			sink.Close()
			return result, ctx.Err()
		default:
		}

		if err := sink.Write(ctx, record); err != nil {
			if err := p.handleError(ctx, record, err); err != nil {
				sink.Close()
				return result, err
			}
			result.RecordsSkipped++
			continue
		}
		result.RecordsWritten++
	}

	return result, closeSink(sink)
}

// drain reads and transforms every record, closing the source when done.
func (p *Pipeline) drain(ctx context.Context, result *Result) ([]*core.Record, error) {
	defer p.source.Close()

	records := make([]*core.Record, 0)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, ok, err := p.next(ctx, result)
		if err != nil {
			return nil, err
		}
		if record == nil {
			if !ok {
				return records, nil
			}
			continue
		}
		records = append(records, record)
	}
}

// next reads one record and runs it through transformers and filters.
// A nil record with ok set means the record was skipped; ok false means the source is exhausted.
func (p *Pipeline) next(ctx context.Context, result *Result) (*core.Record, bool, error) {
	record, err := p.source.Read(ctx)
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if err != nil {
		if err := p.handleError(ctx, record, err); err != nil {
			return nil, false, err
		}
		result.RecordsSkipped++
		return nil, true, nil
	}
	result.RecordsRead++

	transformed, err := p.applyTransformations(ctx, record)
	if err != nil {
		if err := p.handleError(ctx, record, err); err != nil {
			return nil, false, err
		}
		result.RecordsSkipped++
		return nil, true, nil
	}
	if transformed == nil {
		result.RecordsSkipped++
		return nil, true, nil
	}

	include, err := p.applyFilters(ctx, transformed)
	if err != nil {
		if err := p.handleError(ctx, record, err); err != nil {
			return nil, false, err
		}
		result.RecordsSkipped++
		return nil, true, nil
	}
	if !include {
		result.RecordsSkipped++
		return nil, true, nil
	}

	return transformed, true, nil
}

// applyFilters applies all configured filters to a record.
// Returns true if the record should be included, false otherwise, or an error if a filter returns an error.
func (p *Pipeline) applyFilters(ctx context.Context, record *core.Record) (bool, error) {
	for _, filter := range p.filters {
		include, err := filter.ShouldInclude(ctx, record)
		if err != nil {
			return false, err
		}
		if !include {
			return false, nil
		}
	}
	return true, nil
}

// applyTransformations applies all configured transformers to a record in sequence.
// A transformer returning nil drops the record and stops the chain.
func (p *Pipeline) applyTransformations(ctx context.Context, record *core.Record) (*core.Record, error) {
	current := record
	for _, transformer := range p.transformers {
		transformed, err := transformer.Transform(ctx, current)
		if err != nil {
			return nil, err
		}
		if transformed == nil {
			return nil, nil
		}
		current = transformed
	}
	return current, nil
}

// handleError handles errors according to the pipeline's error strategy and handler.
// Returns an error if processing should stop, or nil to continue.
func (p *Pipeline) handleError(ctx context.Context, record *core.Record, err error) error {
	switch p.strategy {
	case core.FailFast:
		return err
	case core.SkipErrors:
		if p.errorHandler != nil {
			return p.errorHandler.HandleError(ctx, record, err)
		}
		return nil
	case core.CollectErrors:
		p.collected = append(p.collected, err)
		if p.errorHandler != nil {
			return p.errorHandler.HandleError(ctx, record, err)
		}
		return nil
	default:
		return err
	}
}

func closeSink(sink core.DataSink) error {
	if err := sink.Flush(); err != nil {
		sink.Close()
		return fmt.Errorf("failed to flush sink: %w", err)
	}
	if err := sink.Close(); err != nil {
		return fmt.Errorf("failed to close sink: %w", err)
	}
	return nil
}
