// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package nanosender

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amongoc/amongoc-go/x/mongo/driver/driverutil/status"
	"github.com/amongoc/amongoc-go/x/mongo/driver/stoptoken"
)

// letSender is the flat-map combinator: connects upstream, and on a value
// builds a fresh downstream Sender from it via fn, then connects to that
// (spec.md §4.5 "let" — a continuation that itself returns a sender, useful
// when the continuation is itself asynchronous, unlike Then's synchronous
// continuation).
type letSender[T, U any] struct {
	upstream Sender[T]
	fn       func(T) Sender[U]
}

// Let returns a Sender that, on a successful upstream value, builds and runs
// a new Sender via fn, forwarding its completion.
func Let[T, U any](upstream Sender[T], fn func(T) Sender[U]) Sender[U] {
	return letSender[T, U]{upstream: upstream, fn: fn}
}

func (l letSender[T, U]) Connect(r Receiver[U]) Operation {
	var downstream Operation
	upstreamOp := l.upstream.Connect(NewReceiver(
		func(v T) {
			downstream = l.fn(v).Connect(r)
			downstream.Start()
		},
		r.SetError,
		r.SetStopped,
	))
	return funcOperation(func() { upstreamOp.Start() })
}

// whenAllOutcome collects either a value, an error, or a stop for one
// upstream of a WhenAll.
type whenAllOutcome[T any] struct {
	value   T
	err     error
	stopped bool
}

// WhenAll runs every sender concurrently (one goroutine apiece, via
// errgroup, per SPEC_FULL.md's DOMAIN STACK wiring of
// golang.org/x/sync/errgroup) and completes with the slice of all results
// in input order once every sender has completed. If any sender errors, the
// first error (in input order) is reported and the others' values are
// discarded; if none error but at least one stops, the result stops
// (spec.md §4.5 "when_all").
func WhenAll[T any](senders ...Sender[T]) Sender[[]T] {
	return whenAllSender[T]{senders: senders}
}

type whenAllSender[T any] struct{ senders []Sender[T] }

func (w whenAllSender[T]) Connect(r Receiver[[]T]) Operation {
	return funcOperation(func() {
		n := len(w.senders)
		outcomes := make([]whenAllOutcome[T], n)
		var eg errgroup.Group
		for i, s := range w.senders {
			i, s := i, s
			eg.Go(func() error {
				var wg sync.WaitGroup
				wg.Add(1)
				op := s.Connect(NewReceiver(
					func(v T) { outcomes[i] = whenAllOutcome[T]{value: v}; wg.Done() },
					func(e error) { outcomes[i] = whenAllOutcome[T]{err: e}; wg.Done() },
					func() { outcomes[i] = whenAllOutcome[T]{stopped: true}; wg.Done() },
				))
				op.Start()
				wg.Wait()
				return nil
			})
		}
		_ = eg.Wait()

		values := make([]T, n)
		stopped := false
		for i, o := range outcomes {
			if o.err != nil {
				r.SetError(o.err)
				return
			}
			if o.stopped {
				stopped = true
				continue
			}
			values[i] = o.value
		}
		if stopped {
			r.SetStopped()
			return
		}
		r.SetValue(values)
	})
}

// FirstCompleted races senders against each other and forwards whichever
// completes first (by any outcome): requesting stop is done on tok, which is
// also requested-to-stop the instant a winner is found, so registered losers
// can cancel promptly instead of running to natural completion (spec.md
// §4.5 "first_completed"). tok may be nil, in which case losers simply are
// not signalled (equivalent to a null stoptoken.Token).
func FirstCompleted[T any](tok *stoptoken.Source, senders ...Sender[T]) Sender[T] {
	return firstSender[T]{senders: senders, all: true, tok: tok}
}

// FirstWhere is like FirstCompleted but only a SetValue for which
// predicate(index, value) reports true counts as a win; values predicate
// rejects, and every error or stop, are discarded unless every sender loses,
// in which case the last error observed is forwarded, or a stop if no
// sender errored (spec.md §4.5
// "first_where(predicate, s1..sn)" — first_completed is the specialization
// where predicate always accepts, e.g. first successful DNS result across a
// list of addresses). tok, like in FirstCompleted, is requested-to-stop on a
// win so losers can cancel.
func FirstWhere[T any](tok *stoptoken.Source, predicate func(index int, value T) bool, senders ...Sender[T]) Sender[T] {
	return firstSender[T]{senders: senders, predicate: predicate, tok: tok}
}

type firstSender[T any] struct {
	senders   []Sender[T]
	predicate func(index int, value T) bool
	all       bool
	tok       *stoptoken.Source
}

func (f firstSender[T]) Connect(r Receiver[T]) Operation {
	return funcOperation(func() {
		var once sync.Once
		done := make(chan struct{})
		var mu sync.Mutex
		remaining := len(f.senders)
		var lastErr error
		lastStopped := false

		finish := func(fn func()) {
			once.Do(func() {
				if f.tok != nil {
					f.tok.RequestStop()
				}
				fn()
				close(done)
			})
		}

		loseOne := func() {
			mu.Lock()
			remaining--
			atLast := remaining == 0
			err := lastErr
			stopped := lastStopped
			mu.Unlock()
			if atLast {
				finish(func() {
					if err != nil {
						r.SetError(err)
					} else {
						_ = stopped
						r.SetStopped()
					}
				})
			}
		}

		var wg sync.WaitGroup
		for i, s := range f.senders {
			i, s := i, s
			wg.Add(1)
			go func() {
				defer wg.Done()
				op := s.Connect(NewReceiver(
					func(v T) {
						if f.all || f.predicate(i, v) {
							finish(func() { r.SetValue(v) })
							return
						}
						loseOne()
					},
					func(e error) {
						if f.all {
							finish(func() { r.SetError(e) })
							return
						}
						mu.Lock()
						lastErr = e
						mu.Unlock()
						loseOne()
					},
					func() {
						if f.all {
							finish(r.SetStopped)
							return
						}
						mu.Lock()
						lastStopped = true
						mu.Unlock()
						loseOne()
					},
				))
				op.Start()
			}()
		}
		wg.Wait()
	})
}

// scheduleSender defers completion onto clock via CallSoon before reporting
// value (spec.md §4.5 "schedule" — used to yield back to the loop between
// steps of a chain so a long synchronous chain doesn't starve other work).
type scheduleSender[T any] struct {
	clock Clock
	value T
}

// Schedule returns a Sender that completes with value after yielding once
// through clock.CallSoon.
func Schedule[T any](clock Clock, value T) Sender[T] {
	return scheduleSender[T]{clock: clock, value: value}
}

func (s scheduleSender[T]) Connect(r Receiver[T]) Operation {
	return funcOperation(func() {
		s.clock.CallSoon(func() { r.SetValue(s.value) })
	})
}

// ScheduleAfter returns a Sender that completes with value after d elapses
// on clock (spec.md §4.5 "schedule_after").
func ScheduleAfter[T any](clock Clock, d time.Duration, value T) Sender[T] {
	return scheduleAfterSender[T]{clock: clock, d: d, value: value}
}

type scheduleAfterSender[T any] struct {
	clock Clock
	d     time.Duration
	value T
}

func (s scheduleAfterSender[T]) Connect(r Receiver[T]) Operation {
	return funcOperation(func() {
		s.clock.CallLater(s.d, func() { r.SetValue(s.value) })
	})
}

// Timeout races upstream against a timer on clock; if the timer fires
// first, downstream sees status.IOTimedOut (spec.md §4.5 "timeout": "the
// outer receiver sees status ETIMEDOUT") and upstream is asked to cancel via
// tok's source (spec.md §4.6 stop tokens). If upstream completes first, the
// timer is cancelled.
func Timeout[T any](clock Clock, d time.Duration, tok *stoptoken.Source, upstream Sender[T]) Sender[T] {
	return timeoutSender[T]{clock: clock, d: d, tok: tok, upstream: upstream}
}

type timeoutSender[T any] struct {
	clock    Clock
	d        time.Duration
	tok      *stoptoken.Source
	upstream Sender[T]
}

func (t timeoutSender[T]) Connect(r Receiver[T]) Operation {
	return funcOperation(func() {
		var once sync.Once
		var cancelTimer CancelFunc
		op := t.upstream.Connect(NewReceiver(
			func(v T) {
				once.Do(func() {
					if cancelTimer != nil {
						cancelTimer()
					}
					r.SetValue(v)
				})
			},
			func(e error) {
				once.Do(func() {
					if cancelTimer != nil {
						cancelTimer()
					}
					r.SetError(e)
				})
			},
			func() {
				once.Do(func() {
					if cancelTimer != nil {
						cancelTimer()
					}
					r.SetStopped()
				})
			},
		))
		cancelTimer = t.clock.CallLater(t.d, func() {
			once.Do(func() {
				if t.tok != nil {
					t.tok.RequestStop()
				}
				r.SetError(status.New(status.Status{Category: status.IO, Code: status.IOTimedOut}, nil))
			})
		})
		op.Start()
	})
}
