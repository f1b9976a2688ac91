// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package nanosender implements the emitter/handler/operation asynchronous
// composition model of spec.md §4.4/§4.5 using Go generics in place of the
// source material's type-erased "box" storage (see DESIGN.md "Open Question
// decisions", #1). A Sender[T] is cold: connecting it to a Receiver[T]
// produces an Operation that does nothing until Start is called, matching
// spec.md §4.4 "cold-start semantics".
package nanosender

// Receiver is the handler side of a connected sender: exactly one of
// SetValue, SetError, or SetStopped is called exactly once for any given
// Operation (spec.md §4.4 "completion is exactly-once, exactly one of three
// outcomes").
type Receiver[T any] interface {
	SetValue(T)
	SetError(error)
	SetStopped()
}

// Operation is the result of connecting a Sender to a Receiver. It does no
// work until Start is called.
type Operation interface {
	Start()
}

// Sender is the emitter side: a cold, potentially-repeatable description of
// an asynchronous operation that completes with a T, an error, or a stop.
type Sender[T any] interface {
	Connect(r Receiver[T]) Operation
}

// funcReceiver adapts three plain closures to the Receiver interface, used
// throughout this package to avoid hand-writing a Receiver type per
// combinator.
type funcReceiver[T any] struct {
	value   func(T)
	errFn   func(error)
	stopped func()
}

func (f funcReceiver[T]) SetValue(v T)    { f.value(v) }
func (f funcReceiver[T]) SetError(e error) { f.errFn(e) }
func (f funcReceiver[T]) SetStopped()      { f.stopped() }

// NewReceiver builds a Receiver from three closures. Any nil closure is
// replaced with a no-op, so callers can supply only the outcomes they care
// about.
func NewReceiver[T any](value func(T), errFn func(error), stopped func()) Receiver[T] {
	if value == nil {
		value = func(T) {}
	}
	if errFn == nil {
		errFn = func(error) {}
	}
	if stopped == nil {
		stopped = func() {}
	}
	return funcReceiver[T]{value: value, errFn: errFn, stopped: stopped}
}

// funcOperation adapts a plain closure to the Operation interface.
type funcOperation func()

func (f funcOperation) Start() { f() }

// justSender is the Sender returned by Just: it synchronously reports a
// fixed value the moment Start is called.
type justSender[T any] struct{ value T }

// Just returns a Sender that completes synchronously, inside Start, with
// value (spec.md §4.5 "just").
func Just[T any](value T) Sender[T] {
	return justSender[T]{value: value}
}

func (j justSender[T]) Connect(r Receiver[T]) Operation {
	return funcOperation(func() { r.SetValue(j.value) })
}

// justErrorSender completes synchronously with an error.
type justErrorSender[T any] struct{ err error }

// JustError returns a Sender that completes synchronously with err.
func JustError[T any](err error) Sender[T] {
	return justErrorSender[T]{err: err}
}

func (j justErrorSender[T]) Connect(r Receiver[T]) Operation {
	return funcOperation(func() { r.SetError(j.err) })
}

// justStoppedSender completes synchronously with a stop signal.
type justStoppedSender[T any] struct{}

// JustStopped returns a Sender that completes synchronously with a stop
// signal and no value.
func JustStopped[T any]() Sender[T] { return justStoppedSender[T]{} }

func (justStoppedSender[T]) Connect(r Receiver[T]) Operation {
	return funcOperation(func() { r.SetStopped() })
}

// thenSender runs fn on the upstream value, completing with the result.
type thenSender[T, U any] struct {
	upstream Sender[T]
	fn       func(T) (U, error)
}

// Then returns a Sender that connects upstream, and on a successful value
// applies fn, completing with fn's result or propagating fn's error (spec.md
// §4.5 "then" — a synchronous continuation run on the completing context).
// Errors and stop signals from upstream pass through unchanged.
func Then[T, U any](upstream Sender[T], fn func(T) (U, error)) Sender[U] {
	return thenSender[T, U]{upstream: upstream, fn: fn}
}

func (t thenSender[T, U]) Connect(r Receiver[U]) Operation {
	inner := t.upstream.Connect(NewReceiver(
		func(v T) {
			out, err := t.fn(v)
			if err != nil {
				r.SetError(err)
				return
			}
			r.SetValue(out)
		},
		r.SetError,
		r.SetStopped,
	))
	return inner
}

// Map is Then for a fn that cannot fail.
func Map[T, U any](upstream Sender[T], fn func(T) U) Sender[U] {
	return Then(upstream, func(v T) (U, error) { return fn(v), nil })
}
