// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogSink struct{}

func (mockLogSink) Info(level int, msg string, keysAndValues ...interface{})  {}
func (mockLogSink) Error(err error, msg string, keysAndValues ...interface{}) {}

func BenchmarkLogger(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()

	logger := New(mockLogSink{}, 0, map[Component]Level{
		ComponentCommand: LevelDebug,
	})
	for i := 0; i < b.N; i++ {
		logger.Print(LevelInfo, KV{Comp: ComponentCommand, Msg: "started"})
	}
}

func TestSelectMaxDocumentLength(t *testing.T) {
	for _, tcase := range []struct {
		name     string
		arg      uint
		expected uint
		env      map[string]string
	}{
		{name: "default", arg: 0, expected: DefaultMaxDocumentLength},
		{name: "non-zero", arg: 100, expected: 100},
		{
			name: "valid env", arg: 0, expected: 100,
			env: map[string]string{maxDocumentLengthEnvVar: "100"},
		},
		{
			name: "invalid env", arg: 0, expected: DefaultMaxDocumentLength,
			env: map[string]string{maxDocumentLengthEnvVar: "foo"},
		},
	} {
		t.Run(tcase.name, func(t *testing.T) {
			t.Cleanup(func() { os.Unsetenv(maxDocumentLengthEnvVar) })
			for k, v := range tcase.env {
				os.Setenv(k, v)
			}
			actual := selectMaxDocumentLength(func() uint { return tcase.arg }, getEnvMaxDocumentLength)
			assert.Equal(t, tcase.expected, actual)
		})
	}
}

func TestSelectLogSink(t *testing.T) {
	for _, tcase := range []struct {
		name     string
		arg      LogSink
		expected LogSink
		env      map[string]string
	}{
		{name: "default", arg: nil, expected: newOSSink(os.Stderr)},
		{name: "non-nil", arg: mockLogSink{}, expected: mockLogSink{}},
	} {
		t.Run(tcase.name, func(t *testing.T) {
			t.Cleanup(func() { os.Unsetenv(logSinkPathEnvVar) })
			for k, v := range tcase.env {
				os.Setenv(k, v)
			}
			actual := selectLogSink(func() LogSink { return tcase.arg }, getEnvLogSink)
			assert.IsType(t, tcase.expected, actual)
		})
	}
}

func TestSelectComponentLevels(t *testing.T) {
	selected := selectComponentLevels(func() map[Component]Level {
		return map[Component]Level{ComponentCommand: LevelDebug}
	})
	require.Equal(t, LevelDebug, selected[ComponentCommand])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "he...", truncate("hello", 2))
}
