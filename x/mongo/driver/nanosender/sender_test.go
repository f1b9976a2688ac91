// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package nanosender

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amongoc/amongoc-go/x/mongo/driver/driverutil/status"
	"github.com/amongoc/amongoc-go/x/mongo/driver/stoptoken"
)

// syncResult runs s to completion on the calling goroutine and returns its
// outcome, for combinators that complete synchronously or via an internal
// goroutine that signals back through the Receiver.
func syncResult[T any](t *testing.T, s Sender[T]) (T, error, bool) {
	t.Helper()
	var (
		value   T
		err     error
		stopped bool
	)
	done := make(chan struct{})
	op := s.Connect(NewReceiver(
		func(v T) { value = v; close(done) },
		func(e error) { err = e; close(done) },
		func() { stopped = true; close(done) },
	))
	op.Start()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sender never completed")
	}
	return value, err, stopped
}

func TestJust(t *testing.T) {
	v, err, stopped := syncResult(t, Just(42))
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.Equal(t, 42, v)
}

func TestJustError(t *testing.T) {
	wantErr := errors.New("boom")
	_, err, stopped := syncResult[int](t, JustError[int](wantErr))
	assert.False(t, stopped)
	assert.ErrorIs(t, err, wantErr)
}

func TestJustStopped(t *testing.T) {
	_, err, stopped := syncResult[int](t, JustStopped[int]())
	require.NoError(t, err)
	assert.True(t, stopped)
}

func TestThenAndMap(t *testing.T) {
	s := Then(Just(2), func(v int) (int, error) { return v * 10, nil })
	v, err, _ := syncResult(t, s)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	mapped := Map(Just("x"), func(v string) string { return v + v })
	mv, err, _ := syncResult(t, mapped)
	require.NoError(t, err)
	assert.Equal(t, "xx", mv)

	failErr := errors.New("then failed")
	failing := Then(Just(1), func(int) (int, error) { return 0, failErr })
	_, err, _ = syncResult(t, failing)
	assert.ErrorIs(t, err, failErr)
}

func TestLet(t *testing.T) {
	s := Let(Just(3), func(v int) Sender[int] { return Just(v + 1) })
	v, err, _ := syncResult(t, s)
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}

func TestWhenAll(t *testing.T) {
	s := WhenAll(Just(1), Just(2), Just(3))
	v, err, _ := syncResult(t, s)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v)
}

func TestWhenAllPropagatesError(t *testing.T) {
	wantErr := errors.New("one failed")
	s := WhenAll(Just(1), JustError[int](wantErr), Just(3))
	_, err, _ := syncResult(t, s)
	assert.ErrorIs(t, err, wantErr)
}

func anyValue[T any](int, T) bool { return true }

func TestFirstWhereIgnoresLoserErrors(t *testing.T) {
	wantErr := errors.New("all failed")
	s := FirstWhere(nil, anyValue[int], JustError[int](wantErr), JustError[int](wantErr))
	_, err, _ := syncResult(t, s)
	assert.ErrorIs(t, err, wantErr)

	winner := FirstWhere(nil, anyValue[int], JustError[int](errors.New("loser")), Just(7))
	v, err, _ := syncResult(t, winner)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFirstWherePredicateRejectsNonMatchingValues(t *testing.T) {
	onlyEven := func(_ int, v int) bool { return v%2 == 0 }
	s := FirstWhere(nil, onlyEven, Just(3), Just(4))
	v, err, stopped := syncResult(t, s)
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.Equal(t, 4, v)
}

func TestFirstWhereRequestsStopOnWin(t *testing.T) {
	tok := stoptoken.NewSource()
	s := FirstWhere(tok, anyValue[int], Just(1))
	_, err, _ := syncResult(t, s)
	require.NoError(t, err)
	assert.True(t, tok.Stopped())
}

func TestFirstCompletedForwardsFirstOutcomeRegardless(t *testing.T) {
	s := FirstCompleted[int](nil, JustStopped[int](), Just(9))
	v, err, stopped := syncResult(t, s)
	// Either sender may win the race; whichever does, its outcome is forwarded
	// as is: a stop with no value, or the value 9.
	require.NoError(t, err)
	assert.True(t, stopped != (v == 9))
}

func TestDetachRunsAsyncAndReportsErrors(t *testing.T) {
	var gotErr error
	done := make(chan struct{})
	op := Detach(JustError[int](errors.New("detached failure")), func(e error) {
		gotErr = e
		close(done)
	})
	op.Start()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onError never called")
	}
	assert.EqualError(t, gotErr, "detached failure")
}

func TestTie(t *testing.T) {
	src := stoptoken.NewSource()
	s := Tie(src, Just(5))
	v, err, stopped := syncResult(t, s)
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.Equal(t, 5, v)
}

func TestTieReportsStopWhenSourceAlreadyStopped(t *testing.T) {
	src := stoptoken.NewSource()
	src.RequestStop()
	// A blocking upstream that never completes on its own; Tie must still
	// report the stop immediately since src is already stopped at Connect
	// time (stoptoken.Source.Register invokes inline).
	block := Sender[int](funcOperationSender[int]{})
	s := Tie(src, block)
	_, err, stopped := syncResult(t, s)
	require.NoError(t, err)
	assert.True(t, stopped)
}

// funcOperationSender is a Sender that never completes on its own; used to
// confirm Tie's stop signal arrives without the upstream ever calling back.
type funcOperationSender[T any] struct{}

func (funcOperationSender[T]) Connect(Receiver[T]) Operation {
	return funcOperation(func() {})
}

type mockClock struct {
	soon  []func()
	later []func()
}

func (c *mockClock) CallSoon(fn func()) { c.soon = append(c.soon, fn); fn() }
func (c *mockClock) CallLater(d time.Duration, fn func()) CancelFunc {
	c.later = append(c.later, fn)
	fn()
	return func() {}
}

func TestScheduleAndScheduleAfter(t *testing.T) {
	clock := &mockClock{}
	v, err, _ := syncResult(t, Schedule(clock, "soon"))
	require.NoError(t, err)
	assert.Equal(t, "soon", v)

	v2, err, _ := syncResult(t, ScheduleAfter(clock, time.Second, "later"))
	require.NoError(t, err)
	assert.Equal(t, "later", v2)
}

func TestTimeoutUpstreamWins(t *testing.T) {
	clock := &neverFiringClock{}
	s := Timeout(clock, time.Hour, stoptoken.NewSource(), Just(1))
	v, err, stopped := syncResult(t, s)
	require.NoError(t, err)
	assert.False(t, stopped)
	assert.Equal(t, 1, v)
}

// neverFiringClock's CallLater never invokes fn, so the upstream Sender
// always wins the race in TestTimeoutUpstreamWins.
type neverFiringClock struct{}

func (neverFiringClock) CallSoon(func())                            {}
func (neverFiringClock) CallLater(time.Duration, func()) CancelFunc { return func() {} }

// alwaysFiringClock's CallLater invokes fn immediately, so the timer always
// wins the race in TestTimeoutFiresWithETIMEDOUT.
type alwaysFiringClock struct{}

func (alwaysFiringClock) CallSoon(func()) {}
func (alwaysFiringClock) CallLater(_ time.Duration, fn func()) CancelFunc {
	fn()
	return func() {}
}

func TestTimeoutFiresWithETIMEDOUT(t *testing.T) {
	clock := alwaysFiringClock{}
	tok := stoptoken.NewSource()
	// block never completes on its own, so only the timer can complete this.
	block := Sender[int](funcOperationSender[int]{})
	s := Timeout(clock, time.Millisecond, tok, block)
	v, err, stopped := syncResult(t, s)
	assert.Zero(t, v)
	assert.False(t, stopped)
	require.Error(t, err)

	var statusErr *status.Error
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.Status.IsTimeout())
	assert.Equal(t, status.IOTimedOut, statusErr.Status.Code)
	assert.True(t, tok.Stopped(), "timeout must request stop on tok so upstream can cancel")
}

func TestGoCoroutine(t *testing.T) {
	s := Go(func(a Await) (int, error) {
		v := AwaitValue(a, Just(10))
		w := AwaitValue(a, Just(v+5))
		return w, nil
	})
	v, err, _ := syncResult(t, s)
	require.NoError(t, err)
	assert.Equal(t, 15, v)
}

func TestGoCoroutinePropagatesError(t *testing.T) {
	wantErr := errors.New("coroutine await failed")
	s := Go(func(a Await) (int, error) {
		_ = AwaitValue(a, JustError[int](wantErr))
		return 0, nil
	})
	_, err, _ := syncResult(t, s)
	assert.ErrorIs(t, err, wantErr)
}

func TestGoCoroutinePropagatesStop(t *testing.T) {
	s := Go(func(a Await) (int, error) {
		_ = AwaitValue(a, JustStopped[int]())
		return 0, nil
	})
	_, err, stopped := syncResult(t, s)
	require.NoError(t, err)
	assert.True(t, stopped)
}
