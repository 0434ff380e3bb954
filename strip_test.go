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
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/ndjstrip/codec"
	"github.com/aaronlmathis/ndjstrip/core"
	"github.com/aaronlmathis/ndjstrip/writers"
)

// stripContent runs StripFile over content in a temp dir and returns the output lines
func stripContent(t *testing.T, content string) ([]string, Result) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, InputFile)
	out := filepath.Join(dir, OutputFile)
	require.NoError(t, os.WriteFile(in, []byte(content), 0o644))

	result, err := StripFile(context.Background(), in, out, TargetField)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	if len(data) == 0 {
		return nil, result
	}
	require.True(t, strings.HasSuffix(string(data), "\n"), "output must end with a newline")
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"), result
}

func TestStripFile_RemovesStateCode(t *testing.T) {
	lines, result := stripContent(t,
		`{"state_code":"US_ND","race":"BLACK","count":12}`+"\n"+
			`{"race":"WHITE","count":5}`+"\n"+
			`{"district":"ALL","state_code":"US_MO","charge_category":"GENERAL","supervision_type":"PAROLE","race":"HISPANIC","total_supervision_count":104,"metric_period_months":36}`+"\n")

	want := []string{
		`{"race":"BLACK","count":12}`,
		`{"race":"WHITE","count":5}`,
		`{"district":"ALL","charge_category":"GENERAL","supervision_type":"PAROLE","race":"HISPANIC","total_supervision_count":104,"metric_period_months":36}`,
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Result{RecordsRead: 3, RecordsWritten: 3}, result)
}

func TestStripFile_CompactsAndTrims(t *testing.T) {
	lines, _ := stripContent(t, "  { \"state_code\" : \"US_ND\", \"nested\": {\"state_code\": \"kept\", \"b\": [1, 2]} }  \r\n")

	// Only the top-level key goes; nested objects are copied as they are
	want := []string{`{"nested":{"state_code":"kept","b":[1,2]}}`}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestStripFile_EmptyRecordStaysALine(t *testing.T) {
	lines, _ := stripContent(t, "{\"state_code\":\"US_ND\"}\n{}\n")
	assert.Equal(t, []string{`{}`, `{}`}, lines)
}

func TestStripFile_EmptyInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, InputFile)
	out := filepath.Join(dir, OutputFile)
	require.NoError(t, os.WriteFile(in, nil, 0o644))

	result, err := StripFile(context.Background(), in, out, TargetField)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())
}

func TestStripFile_OverwritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, InputFile)
	out := filepath.Join(dir, OutputFile)
	require.NoError(t, os.WriteFile(in, []byte(`{"state_code":"US_ND","a":1}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(out, []byte("old line 1\nold line 2\nold line 3\n"), 0o644))

	_, err := StripFile(context.Background(), in, out, TargetField)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(data))
}

func TestStripFile_MalformedLineAborts(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, InputFile)
	out := filepath.Join(dir, OutputFile)
	require.NoError(t, os.WriteFile(in, []byte(
		`{"state_code":"US_ND","race":"BLACK","count":12}`+"\n"+
			`{"state_code":"US_ND",}`+"\n"), 0o644))

	_, err := StripFile(context.Background(), in, out, TargetField)
	require.Error(t, err)

	var parseErr *core.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 2, parseErr.Line)

	// Nothing is written when parsing fails
	_, statErr := os.Stat(out)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestStripFile_NonObjectLineAborts(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, InputFile)
	out := filepath.Join(dir, OutputFile)
	require.NoError(t, os.WriteFile(in, []byte("[\"state_code\"]\n"), 0o644))

	_, err := StripFile(context.Background(), in, out, TargetField)
	assert.ErrorIs(t, err, core.ErrNotObject)
}

func TestStripFile_MissingInput(t *testing.T) {
	dir := t.TempDir()

	_, err := StripFile(context.Background(), filepath.Join(dir, InputFile), filepath.Join(dir, OutputFile), TargetField)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, statErr := os.Stat(filepath.Join(dir, OutputFile))
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestStripFile_UnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, InputFile)
	require.NoError(t, os.WriteFile(in, []byte(`{"a":1}`+"\n"), 0o644))

	_, err := StripFile(context.Background(), in, filepath.Join(dir, "no-such-dir", OutputFile), TargetField)
	assert.Error(t, err)
}

func TestStripFile_SecondPassIsStable(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	third := filepath.Join(dir, "third.json")
	require.NoError(t, os.WriteFile(first, []byte(
		`{"state_code":"US_ND","race":"BLACK","count":12}`+"\n"+
			`{ "race": "WHITE", "count": 5.0 }`+"\n"), 0o644))

	ctx := context.Background()
	_, err := StripFile(ctx, first, second, TargetField)
	require.NoError(t, err)
	_, err = StripFile(ctx, second, third, TargetField)
	require.NoError(t, err)

	a, err := os.ReadFile(second)
	require.NoError(t, err)
	b, err := os.ReadFile(third)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestStripFile_LineCountMatches(t *testing.T) {
	var sb strings.Builder
	const n = 2500
	for i := 0; i < n; i++ {
		sb.WriteString(`{"state_code":"US_PA","idx":`)
		sb.WriteString(strings.Repeat("1", 1+i%5))
		sb.WriteString("}\n")
	}

	lines, result := stripContent(t, sb.String())
	assert.Len(t, lines, n)
	assert.Equal(t, int64(n), result.RecordsWritten)
	for _, line := range lines {
		assert.NotContains(t, line, "state_code")
	}
}

func TestRun_UsesWorkingDirectory(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile(InputFile, []byte(`{"state_code":"US_ND","race":"BLACK","count":12}`+"\n"), 0o644))

	result, err := Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.RecordsWritten)

	data, err := os.ReadFile(OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "{\"race\":\"BLACK\",\"count\":12}\n", string(data))
}

func TestStripFile_KeepsUnpairedSurrogateEscapes(t *testing.T) {
	lines, _ := stripContent(t,
		`{"state_code":"US_ND","name":"\ud800"}`+"\n"+
			`{"state_code":"US_ND","tags":["ok","\udc00"],"pair":"\ud83d\ude00"}`+"\n")

	want := []string{
		`{"name":"\ud800"}`,
		`{"tags":["ok","\udc00"],"pair":"😀"}`,
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestStripFile_InvalidUTF8Aborts(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, InputFile)
	out := filepath.Join(dir, OutputFile)
	require.NoError(t, os.WriteFile(in, []byte(
		`{"state_code":"US_ND","a":1}`+"\n"+
			"{\"state_code\":\"US_ND\",\"b\":\"\xff\"}\n"), 0o644))

	_, err := StripFile(context.Background(), in, out, TargetField)
	require.Error(t, err)

	var parseErr *core.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 2, parseErr.Line)
	assert.ErrorIs(t, err, codec.ErrInvalidUTF8)

	_, statErr := os.Stat(out)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestWriteSummary(t *testing.T) {
	stats := writers.JSONWriterStats{
		BytesWritten:    120,
		FlushCount:      2,
		FlushDuration:   3 * time.Millisecond,
		NullValueCounts: map[string]int64{"race": 1, "count": 4},
	}
	assert.Equal(t, "120 bytes in 2 flushes (3ms), null values: count=4 race=1", writeSummary(stats))

	stats.NullValueCounts = map[string]int64{}
	assert.Equal(t, "120 bytes in 2 flushes (3ms)", writeSummary(stats))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}
