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

// Package codec converts single lines of newline-delimited JSON to and from
// ordered records.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"

	"github.com/aaronlmathis/ndjstrip/core"
)

var api = jsoniter.Config{EscapeHTML: false}.Froze()

// ErrInvalidUTF8 is returned for input that is not UTF-8 text.
var ErrInvalidUTF8 = errors.New("line is not valid UTF-8")

// DecodeRecord parses data as a single JSON object.
//
// Key order is kept at every nesting level and numbers are returned as
// json.Number so their text survives a round trip. A string holding an
// unpaired UTF-16 surrogate escape such as "\ud800" has no Go string form and
// is returned as its raw json.RawMessage token instead. Data that is valid JSON
// but not an object yields core.ErrNotObject.
func DecodeRecord(data []byte) (*core.Record, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}
	// strict RFC 8259 check first: the iterator tolerates trailing data and null keys
	var strict json.RawMessage
	if err := json.Unmarshal(data, &strict); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	iter := api.BorrowIterator(data)
	defer api.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, core.ErrNotObject
	}
	d := decoder{surrogates: hasLoneSurrogate(data)}
	record := d.readObject(iter)
	if iter.Error != nil {
		return nil, fmt.Errorf("invalid JSON: %w", iter.Error)
	}
	return record, nil
}

type decoder struct {
	// surrogates is set when the line holds an unpaired \uD800-\uDFFF escape
	surrogates bool
}

func (d decoder) readObject(iter *jsoniter.Iterator) *core.Record {
	record := core.NewRecord()
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		if d.surrogates && strings.ContainsRune(field, utf8.RuneError) {
			iter.ReportError("readObject", "object key holds an unpaired UTF-16 surrogate")
			return false
		}
		record.Set(field, d.readValue(iter))
		return iter.Error == nil
	})
	return record
}

func (d decoder) readValue(iter *jsoniter.Iterator) interface{} {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		return d.readObject(iter)
	case jsoniter.ArrayValue:
		values := make([]interface{}, 0)
		iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
			values = append(values, d.readValue(iter))
			return iter.Error == nil
		})
		return values
	case jsoniter.StringValue:
		if !d.surrogates {
			return iter.ReadString()
		}
		return d.readRawString(iter)
	case jsoniter.NumberValue:
		return iter.ReadNumber()
	case jsoniter.BoolValue:
		return iter.ReadBool()
	case jsoniter.NilValue:
		iter.ReadNil()
		return nil
	default:
		iter.ReportError("readValue", "unexpected JSON token")
		return nil
	}
}

// readRawString keeps the token text of strings that would not survive decoding.
func (d decoder) readRawString(iter *jsoniter.Iterator) interface{} {
	raw := iter.SkipAndReturnBytes()
	if iter.Error != nil {
		return nil
	}
	if hasLoneSurrogate(raw) {
		return json.RawMessage(raw)
	}
	var s string
	if err := api.Unmarshal(raw, &s); err != nil {
		iter.ReportError("readRawString", err.Error())
		return nil
	}
	return s
}

// hasLoneSurrogate reports whether data holds a \uXXXX escape in the UTF-16
// surrogate range that is not part of a high/low pair.
func hasLoneSurrogate(data []byte) bool {
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			continue
		}
		i++
		if i >= len(data) || data[i] != 'u' {
			continue
		}
		r, ok := hex4(data[i+1:])
		if !ok {
			continue
		}
		i += 4
		if !utf16.IsSurrogate(r) {
			continue
		}
		if r >= 0xDC00 {
			return true
		}
		if i+2 < len(data) && data[i+1] == '\\' && data[i+2] == 'u' {
			if low, ok := hex4(data[i+3:]); ok && low >= 0xDC00 && low <= 0xDFFF {
				i += 6
				continue
			}
		}
		return true
	}
	return false
}

func hex4(b []byte) (rune, bool) {
	if len(b) < 4 {
		return 0, false
	}
	v, err := strconv.ParseUint(string(b[:4]), 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
