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

package core

import "context"

// Package core defines the core types for the ndjstrip pipeline.
//
// This file contains the ordered record type and the function adapters.

// Field is a single key/value pair, used to build records in declaration order.
type Field struct {
	Key   string
	Value interface{}
}

// Record represents a single JSON object flowing through the pipeline.
// Keys keep the order in which they were first set, so a record decoded
// from a line serializes back with its keys where they were.
//
// Values are JSON-compatible: nil, bool, string, json.Number, []interface{}
// or a nested *Record. A json.RawMessage is written verbatim. Other Go values
// are accepted and encoded by reflection.
type Record struct {
	keys   []string
	values map[string]interface{}
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return NewRecordWithCapacity(0)
}

// NewRecordWithCapacity returns an empty record sized for n keys.
func NewRecordWithCapacity(n int) *Record {
	return &Record{
		keys:   make([]string, 0, n),
		values: make(map[string]interface{}, n),
	}
}

// RecordOf builds a record from fields in order. A repeated key keeps its
// first position and takes the last value.
func RecordOf(fields ...Field) *Record {
	record := NewRecordWithCapacity(len(fields))
	for _, f := range fields {
		record.Set(f.Key, f.Value)
	}
	return record
}

// Len returns the number of keys in the record.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the record's keys in order. The slice is a copy.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	value, ok := r.values[key]
	return value, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set stores value under key. A new key is appended; an existing key keeps its position.
func (r *Record) Set(key string, value interface{}) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Delete removes key and reports whether it was present.
func (r *Record) Delete(key string) bool {
	if r == nil {
		return false
	}
	if _, exists := r.values[key]; !exists {
		return false
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
	return true
}

// Range calls fn for each key in order until fn returns false.
func (r *Record) Range(fn func(key string, value interface{}) bool) {
	if r == nil {
		return
	}
	for _, k := range r.keys {
		if !fn(k, r.values[k]) {
			return
		}
	}
}

// Clone returns a shallow copy. Nested records and slices are shared.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := NewRecordWithCapacity(len(r.keys))
	for _, k := range r.keys {
		clone.keys = append(clone.keys, k)
		clone.values[k] = r.values[k]
	}
	return clone
}

// TransformFunc is a function adapter for the Transformer interface.
// Allows ordinary functions to be used as Transformers.
type TransformFunc func(ctx context.Context, record *Record) (*Record, error)

// Transform implements the Transformer interface for TransformFunc.
func (f TransformFunc) Transform(ctx context.Context, record *Record) (*Record, error) {
	return f(ctx, record)
}

// FilterFunc is a function adapter for the Filter interface.
// Allows ordinary functions to be used as Filters.
type FilterFunc func(ctx context.Context, record *Record) (bool, error)

// ShouldInclude implements the Filter interface for FilterFunc.
func (f FilterFunc) ShouldInclude(ctx context.Context, record *Record) (bool, error) {
	return f(ctx, record)
}
