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

package codec

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"

	"github.com/aaronlmathis/ndjstrip/core"
)

// EncodeRecord serializes a record as compact JSON: no whitespace between
// tokens, keys in record order, no HTML escaping. The result has no trailing newline.
func EncodeRecord(record *core.Record) ([]byte, error) {
	stream := api.BorrowStream(nil)
	defer api.ReturnStream(stream)

	writeRecord(stream, record)
	if stream.Error != nil {
		return nil, stream.Error
	}

	buf := stream.Buffer()
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

func writeRecord(stream *jsoniter.Stream, record *core.Record) {
	if record == nil {
		stream.WriteNil()
		return
	}
	stream.WriteObjectStart()
	first := true
	record.Range(func(key string, value interface{}) bool {
		if !first {
			stream.WriteMore()
		}
		first = false
		stream.WriteObjectField(key)
		writeValue(stream, value)
		return stream.Error == nil
	})
	stream.WriteObjectEnd()
}

func writeValue(stream *jsoniter.Stream, value interface{}) {
	switch v := value.(type) {
	case nil:
		stream.WriteNil()
	case *core.Record:
		writeRecord(stream, v)
	case []interface{}:
		stream.WriteArrayStart()
		for i, elem := range v {
			if i > 0 {
				stream.WriteMore()
			}
			writeValue(stream, elem)
		}
		stream.WriteArrayEnd()
	case string:
		stream.WriteString(v)
	case json.RawMessage:
		stream.WriteRaw(string(v))
	case json.Number:
		if v == "" {
			stream.WriteRaw("0")
			return
		}
		stream.WriteRaw(v.String())
	case bool:
		stream.WriteBool(v)
	default:
		stream.WriteVal(v)
	}
}
