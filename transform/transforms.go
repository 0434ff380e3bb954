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

package transform

import (
	"context"

	"github.com/aaronlmathis/ndjstrip/core"
)

// Package transform provides reusable, composable record transformations for ndjstrip pipelines.
//
// Every transformer returns a new record and leaves its input untouched.
// Key order of the input is kept.

// RemoveField creates a transformer that removes the specified field from each record.
// If the field doesn't exist, an unchanged copy of the record is returned.
func RemoveField(field string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record *core.Record) (*core.Record, error) {
		result := record.Clone()
		result.Delete(field)
		return result, nil
	})
}

// RemoveFields creates a transformer that removes multiple specified fields from each record.
// Fields that don't exist are ignored. More efficient than chaining multiple RemoveField calls.
func RemoveFields(fields ...string) core.Transformer {
	fieldsToRemove := make(map[string]bool, len(fields))
	for _, field := range fields {
		fieldsToRemove[field] = true
	}

	return core.TransformFunc(func(ctx context.Context, record *core.Record) (*core.Record, error) {
		if record == nil {
			return nil, nil
		}
		result := core.NewRecordWithCapacity(record.Len())
		record.Range(func(key string, value interface{}) bool {
			if !fieldsToRemove[key] {
				result.Set(key, value)
			}
			return true
		})
		return result, nil
	})
}

// Select creates a transformer that selects only the specified fields from each record.
// Output keys follow the order of fields; fields missing from the record are omitted.
func Select(fields ...string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record *core.Record) (*core.Record, error) {
		if record == nil {
			return nil, nil
		}
		result := core.NewRecordWithCapacity(len(fields))
		for _, field := range fields {
			if value, exists := record.Get(field); exists {
				result.Set(field, value)
			}
		}
		return result, nil
	})
}

// Rename creates a transformer that renames fields according to the provided mapping.
// Keys are original field names, values are new field names. A renamed field keeps its position.
func Rename(mapping map[string]string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record *core.Record) (*core.Record, error) {
		if record == nil {
			return nil, nil
		}
		result := core.NewRecordWithCapacity(record.Len())
		record.Range(func(key string, value interface{}) bool {
			if newKey, exists := mapping[key]; exists {
				result.Set(newKey, value)
			} else {
				result.Set(key, value)
			}
			return true
		})
		return result, nil
	})
}
