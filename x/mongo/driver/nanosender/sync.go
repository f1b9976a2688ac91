// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package nanosender

import (
	"sync"

	"github.com/amongoc/amongoc-go/x/mongo/driver/stoptoken"
)

// Tie binds upstream's cancellation to tok: if tok stops before upstream
// completes, downstream receives a stop signal immediately, racing the
// upstream completion the same way Timeout races a timer (spec.md §4.5
// "tie" — used to cancel an operation chain when an unrelated token fires,
// as opposed to Timeout's own internally-created timer). Unlike a
// cooperative-cancellation primitive, Tie cannot abort upstream's own work
// in flight; it only stops *observing* it and reports the stop to
// downstream, matching this module's Receiver contract of exactly one
// outcome.
func Tie[T any](tok *stoptoken.Source, upstream Sender[T]) Sender[T] {
	return tieSender[T]{tok: tok, upstream: upstream}
}

type tieSender[T any] struct {
	tok      *stoptoken.Source
	upstream Sender[T]
}

func (t tieSender[T]) Connect(r Receiver[T]) Operation {
	return funcOperation(func() {
		var once sync.Once
		var cb *stoptoken.Callback
		finishValue := func(v T) {
			once.Do(func() {
				if cb != nil {
					cb.Unregister()
				}
				r.SetValue(v)
			})
		}
		finishError := func(e error) {
			once.Do(func() {
				if cb != nil {
					cb.Unregister()
				}
				r.SetError(e)
			})
		}
		finishStopped := func() {
			once.Do(func() {
				if cb != nil {
					cb.Unregister()
				}
				r.SetStopped()
			})
		}
		if t.tok != nil {
			cb = t.tok.Register(finishStopped)
		}
		op := t.upstream.Connect(NewReceiver(finishValue, finishError, finishStopped))
		op.Start()
	})
}

// Detach starts upstream and discards its outcome, except for errors, which
// are handed to onError if non-nil (spec.md §4.5 "detach" — fire-and-forget
// work such as logging or best-effort cleanup that the caller does not wait
// on). The returned Operation's Start returns when upstream's own Start
// returns: a synchronous upstream (such as Just or Go) completes inside it,
// while an asynchronous one continues on whatever goroutine/loop it
// schedules itself onto.
func Detach[T any](upstream Sender[T], onError func(error)) Operation {
	return funcOperation(func() {
		op := upstream.Connect(NewReceiver(
			func(T) {},
			func(e error) {
				if onError != nil {
					onError(e)
				}
			},
			func() {},
		))
		op.Start()
	})
}
