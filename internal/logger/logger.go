// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

import (
	"os"
	"strconv"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
)

const jobBufferSize = 100
const logSinkPathEnvVar = "MONGODB_LOG_PATH"
const maxDocumentLengthEnvVar = "MONGODB_LOG_MAX_DOCUMENT_LENGTH"

// DefaultMaxDocumentLength is the default maximum length of a stringified BSON document in bytes.
const DefaultMaxDocumentLength = 1000

// TruncationSuffix are trailing ellipsis "..." appended to a message to indicate to the user that truncation occurred.
// This constant does not count toward the max document length.
const TruncationSuffix = "..."

// LogSink represents a logging implementation. It is specifically designed to be a subset of go-logr/logr's LogSink
// interface.
type LogSink interface {
	Info(level int, msg string, keysAndValues ...interface{})
	Error(err error, msg string, keysAndValues ...interface{})
}

type job struct {
	level Level
	msg   ComponentMessage
}

// Logger is this module's logger. It is used to log messages either to the
// OS (stderr/stdout) or to a custom LogSink, such as the zap-backed sink in
// zapsink.go (AMBIENT STACK "Logging").
type Logger struct {
	ComponentLevels   map[Component]Level
	Sink              LogSink
	MaxDocumentLength uint

	jobs chan job
}

// New constructs a new Logger with the given LogSink. If sink is nil, the
// logger falls back to an os.Stderr sink.
//
// A level set in componentLevels takes precedence for its component; any
// component absent from componentLevels takes its level from the environment.
func New(sink LogSink, maxDocumentLength uint, componentLevels map[Component]Level) *Logger {
	l := &Logger{
		ComponentLevels: selectComponentLevels(
			func() map[Component]Level { return componentLevels },
			getEnvComponentLevels,
		),
		MaxDocumentLength: selectMaxDocumentLength(
			func() uint { return maxDocumentLength },
			getEnvMaxDocumentLength,
		),
		Sink: selectLogSink(
			func() LogSink { return sink },
			getEnvLogSink,
		),
		jobs: make(chan job, jobBufferSize),
	}
	return l
}

// Close stops accepting new messages. StartPrintListener's goroutine exits
// once the channel drains.
func (logger Logger) Close() { close(logger.jobs) }

// Is reports whether level is enabled for component.
func (logger Logger) Is(level Level, component Component) bool {
	return logger.ComponentLevels[component] >= level
}

// Print enqueues msg at level, dropping it in favor of CommandMessageDropped
// if the queue is full, so a burst of traffic never blocks the caller.
func (logger *Logger) Print(level Level, msg ComponentMessage) {
	select {
	case logger.jobs <- job{level, msg}:
	default:
		select {
		case logger.jobs <- job{level, CommandMessageDropped{}}:
		default:
		}
	}
}

// StartPrintListener starts a goroutine that drains logger's queue to its
// configured Sink until Close is called.
func StartPrintListener(logger *Logger) {
	go func() {
		for j := range logger.jobs {
			if !logger.Is(j.level, j.msg.Component()) {
				continue
			}
			sink := logger.Sink
			if sink == nil {
				continue
			}
			kv := formatMessage(j.msg.Serialize(), logger.MaxDocumentLength)
			sink.Info(int(j.level)-DiffToInfo, j.msg.Message(), kv...)
		}
	}()
}

func truncate(str string, width uint) string {
	if len(str) <= int(width) {
		return str
	}
	newStr := str[:width]
	if newStr[len(newStr)-1]&0xC0 == 0xC0 {
		return newStr[:len(newStr)-1]
	}
	if newStr[len(newStr)-1]&0xC0 == 0x80 {
		for i := len(newStr) - 1; i >= 0; i-- {
			if newStr[i]&0xC0 == 0xC0 {
				return newStr[:i]
			}
		}
	}
	return newStr + TruncationSuffix
}

// formatMessage truncates any "command"/"reply" bsoncore.Document values in
// keysAndValues to commandWidth bytes of their debug-string form, the Go
// translation of the teacher's bson.Raw truncation (the teacher's own
// formatMessage operates on go.mongodb.org/mongo-driver/bson.Raw; this
// module's wire layer produces bsoncore.Document directly, so truncation
// operates on that instead).
func formatMessage(keysAndValues []interface{}, commandWidth uint) []interface{} {
	out := make([]interface{}, len(keysAndValues))
	copy(out, keysAndValues)
	for i := 0; i+1 < len(out); i += 2 {
		key, _ := out[i].(string)
		if key != "command" && key != "reply" {
			continue
		}
		doc, ok := out[i+1].(bsoncore.Document)
		if !ok {
			continue
		}
		str := doc.String()
		if len(doc) == 0 {
			str = bsoncore.Document(bsoncore.EmptyDocument()).String()
		}
		out[i+1] = truncate(str, commandWidth)
	}
	return out
}

func getEnvMaxDocumentLength() uint {
	max := os.Getenv(maxDocumentLengthEnvVar)
	if max == "" {
		return 0
	}
	maxUint, err := strconv.ParseUint(max, 10, 32)
	if err != nil {
		return 0
	}
	return uint(maxUint)
}

func selectMaxDocumentLength(getLen ...func() uint) uint {
	for _, get := range getLen {
		if l := get(); l != 0 {
			return l
		}
	}
	return DefaultMaxDocumentLength
}

type logSinkPath string

const (
	logSinkPathStdOut logSinkPath = "stdout"
	logSinkPathStdErr logSinkPath = "stderr"
)

// getEnvLogSink checks MONGODB_LOG_PATH for "stdout"/"stderr"/a file path.
// Absent any of those, it returns nil so selectLogSink falls through to its
// stderr default.
func getEnvLogSink() LogSink {
	path := os.Getenv(logSinkPathEnvVar)
	switch logSinkPath(path) {
	case logSinkPathStdErr:
		return newOSSink(os.Stderr)
	case logSinkPathStdOut:
		return newOSSink(os.Stdout)
	}
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return newOSSink(os.Stderr)
	}
	return newOSSink(f)
}

func selectLogSink(getSink ...func() LogSink) LogSink {
	for _, get := range getSink {
		if sink := get(); sink != nil {
			return sink
		}
	}
	return newOSSink(os.Stderr)
}

func getEnvComponentLevels() map[Component]Level {
	levels := make(map[Component]Level)
	global := ParseLevel(os.Getenv("MONGODB_LOG_ALL"))
	for comp, envVar := range map[Component]string{
		ComponentCommand:    "MONGODB_LOG_COMMAND",
		ComponentConnection: "MONGODB_LOG_CONNECTION",
		ComponentTopology:   "MONGODB_LOG_TOPOLOGY",
	} {
		level := global
		if global == LevelOff {
			level = ParseLevel(os.Getenv(envVar))
		}
		levels[comp] = level
	}
	return levels
}

func selectComponentLevels(getters ...func() map[Component]Level) map[Component]Level {
	selected := make(map[Component]Level)
	set := make(map[Component]struct{})
	for _, get := range getters {
		for comp, level := range get() {
			if _, ok := set[comp]; ok {
				continue
			}
			selected[comp] = level
			set[comp] = struct{}{}
		}
	}
	return selected
}
