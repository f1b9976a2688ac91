// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package nanosender

// Await is the handle a Go-coroutine body uses to suspend until a Sender
// completes, standing in for the source material's compiler-generated
// coroutine await points (original_source/src/amongoc/coroutine.hpp, see
// SPEC_FULL.md "Supplemented features"). It may only be called from inside
// the body passed to Go.
type Await interface {
	// await suspends the goroutine running the body until s completes,
	// returning its value, or panicking with a stopSignal or the error
	// that the enclosing Go plumbing recovers and translates into
	// SetStopped/SetError, so callers write ordinary straight-line Go
	// instead of threading errors back out of nested closures.
	await(s Sender[any]) any
}

type stopSignal struct{}

type awaitImpl struct {
	reqCh  chan Sender[any]
	respCh chan awaitResult
}

type awaitResult struct {
	value   any
	err     error
	stopped bool
}

func (a *awaitImpl) await(s Sender[any]) any {
	a.reqCh <- s
	res := <-a.respCh
	if res.stopped {
		panic(stopSignal{})
	}
	if res.err != nil {
		panic(res.err)
	}
	return res.value
}

// AwaitValue is the typed convenience most callers use: it awaits s and
// type-asserts the result to T.
func AwaitValue[T any](a Await, s Sender[T]) T {
	erased := Map(s, func(v T) any { return v })
	return a.await(erased).(T)
}

// Go adapts an imperative function body into a Sender[T], the way a native
// coroutine would in the source material: body runs on its own goroutine,
// suspending at each AwaitValue call until the awaited Sender completes, and
// finally returning (value, nil) for success or (_, err) for failure. It is
// the idiomatic Go substitute for the source's coroutine promises noted in
// SPEC_FULL.md §9 Design Notes.
func Go[T any](body func(a Await) (T, error)) Sender[T] {
	return goSender[T]{body: body}
}

type goSender[T any] struct {
	body func(a Await) (T, error)
}

func (g goSender[T]) Connect(r Receiver[T]) Operation {
	return funcOperation(func() {
		a := &awaitImpl{
			reqCh:  make(chan Sender[any]),
			respCh: make(chan awaitResult),
		}
		done := make(chan struct{})
		var (
			value   T
			err     error
			stopped bool
		)
		go func() {
			defer close(done)
			defer func() {
				if rec := recover(); rec != nil {
					switch v := rec.(type) {
					case stopSignal:
						stopped = true
					case error:
						err = v
					default:
						panic(rec)
					}
				}
			}()
			value, err = g.body(a)
		}()

	loop:
		for {
			select {
			case s, ok := <-a.reqCh:
				if !ok {
					break loop
				}
				op := s.Connect(NewReceiver(
					func(v any) { a.respCh <- awaitResult{value: v} },
					func(e error) { a.respCh <- awaitResult{err: e} },
					func() { a.respCh <- awaitResult{stopped: true} },
				))
				op.Start()
			case <-done:
				break loop
			}
		}
		switch {
		case stopped:
			r.SetStopped()
		case err != nil:
			r.SetError(err)
		default:
			r.SetValue(value)
		}
	})
}
