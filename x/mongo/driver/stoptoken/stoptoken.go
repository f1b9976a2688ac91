// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package stoptoken implements the intrusive stop source/token/callback
// primitive used to propagate cancellation through a sender chain
// (spec.md §4.6). It is deliberately not built on context.Context: the
// nanosender package needs to register/unregister plain callbacks on an
// arbitrary handler's token without forcing every sender to thread a
// context value through its state, mirroring the source material's
// intrusive, allocation-free design.
//
// Go's garbage collector removes one hazard the source material spends most
// of its complexity on: a callback being destroyed while it is concurrently
// executing on another goroutine can never touch freed memory, because
// nothing is freed out from under a live reference. Unregister therefore
// just unlinks the callback from the list and returns; it does not block
// waiting for an in-flight invocation to finish, since there is no
// use-after-free to protect against by doing so. See DESIGN.md.
package stoptoken

import "sync"

// Source owns the list of registered callbacks and the stopped/not-stopped
// state (spec.md §3 "Stop source / token / callback").
type Source struct {
	mu      sync.Mutex
	stopped bool
	list    *Callback
}

// Callback is a registration returned by Source.Register or Token.Register.
// Its zero value, like the nil *Callback a null Token's Register returns, is
// a valid no-op to Unregister.
type Callback struct {
	fn      func()
	source  *Source
	removed bool
	prev    *Callback
	next    *Callback
}

// NewSource returns a fresh, not-yet-stopped Source.
func NewSource() *Source { return &Source{} }

// Token returns a borrowed Token over s.
func (s *Source) Token() Token { return Token{source: s} }

// Stopped reports whether RequestStop has been called on s. It reports true
// from the start of the first call, before that call's callbacks have run.
func (s *Source) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Register adds fn as a callback to run when RequestStop is called. If s is
// already stopped, fn runs inline before Register returns (spec.md §4.6:
// "registration on an already-stopped source invokes the callback inline").
func (s *Source) Register(fn func()) *Callback {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		fn()
		return &Callback{fn: fn, removed: true}
	}
	cb := &Callback{fn: fn, source: s, next: s.list}
	if s.list != nil {
		s.list.prev = cb
	}
	s.list = cb
	s.mu.Unlock()
	return cb
}

// RequestStop transitions s to stopped and invokes every registered
// callback exactly once, in LIFO registration order, then returns true. A
// second call (from any goroutine) is a no-op and returns false (spec.md
// §4.6, "request_stop is idempotent").
func (s *Source) RequestStop() bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.stopped = true
	for {
		cb := s.list
		if cb == nil {
			break
		}
		s.unlink(cb)
		cb.removed = true
		fn := cb.fn
		s.mu.Unlock()
		fn()
		s.mu.Lock()
	}
	s.mu.Unlock()
	return true
}

func (s *Source) unlink(cb *Callback) {
	if cb.prev != nil {
		cb.prev.next = cb.next
	} else {
		s.list = cb.next
	}
	if cb.next != nil {
		cb.next.prev = cb.prev
	}
	cb.prev, cb.next = nil, nil
}

// Unregister removes cb from its source's callback list. It is a no-op if
// cb is nil, already removed, or its callback has already run. Safe to
// call concurrently with RequestStop, and safe to call from within the
// callback's own function (self-unregistration during execution).
func (cb *Callback) Unregister() {
	if cb == nil || cb.source == nil || cb.removed {
		return
	}
	s := cb.source
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb.removed {
		return
	}
	s.unlink(cb)
	cb.removed = true
}

// Token is a borrowed, copyable handle on a Source. The zero Token is the
// "null" stop token: it is shaped like a stoppable token but never signals
// (spec.md §4.6 "Null stop token").
type Token struct {
	source *Source
}

// Stoppable reports whether t is backed by a real Source.
func (t Token) Stoppable() bool { return t.source != nil }

// Stopped reports whether t's source has been stopped. A null token is
// never stopped.
func (t Token) Stopped() bool { return t.source != nil && t.source.Stopped() }

// Register registers fn on t's source, or is a no-op returning nil for a
// null token (spec.md §4.4: "if the handler has no stop mechanism,
// registration is a no-op returning nil").
func (t Token) Register(fn func()) *Callback {
	if t.source == nil {
		return nil
	}
	return t.source.Register(fn)
}
