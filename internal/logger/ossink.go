// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"fmt"
	"io"
	"sync"
)

// osSink is the Logger's fallback LogSink when no structured sink (e.g.
// zapSink) is configured: a line-oriented writer, guarded by a mutex since
// StartPrintListener's goroutine is the only writer but callers may also
// call Sink.Info directly in tests.
type osSink struct {
	mu sync.Mutex
	w  io.Writer
}

func newOSSink(w io.Writer) LogSink { return &osSink{w: w} }

func (s *osSink) Info(level int, msg string, keysAndValues ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "[%d] %s %v\n", level, msg, keysAndValues)
}

func (s *osSink) Error(err error, msg string, keysAndValues ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "[error] %s: %v %v\n", msg, err, keysAndValues)
}
