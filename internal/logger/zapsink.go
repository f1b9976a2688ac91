// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import "go.uber.org/zap"

// ZapSink adapts a *zap.Logger to LogSink, the production structured sink
// named in SPEC_FULL.md's AMBIENT STACK ("go-logr/logr-shaped LogSink"
// wired to go.uber.org/zap). Debug-level messages (level > 0, matching the
// driver convention that 0 is Info) log at zap's Debug level; everything
// else logs at Info.
type ZapSink struct {
	l *zap.Logger
}

// NewZapSink wraps l. A nil l is replaced with zap.NewNop().
func NewZapSink(l *zap.Logger) *ZapSink {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapSink{l: l}
}

func (s *ZapSink) Info(level int, msg string, keysAndValues ...interface{}) {
	fields := kvToFields(keysAndValues)
	if level > 0 {
		s.l.Debug(msg, fields...)
		return
	}
	s.l.Info(msg, fields...)
}

func (s *ZapSink) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(kvToFields(keysAndValues), zap.Error(err))
	s.l.Error(msg, fields...)
}

func kvToFields(kv []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}
