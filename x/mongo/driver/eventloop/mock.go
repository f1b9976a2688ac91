// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package eventloop

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"
)

// Mock is a deterministic, single-threaded, virtual-clock Loop for tests
// (SPEC_FULL.md "Supplemented features"). Nothing runs until Run or Advance
// is called; CallSoon/CallLater only enqueue work. This matches how the
// teacher's mock topology/connection test doubles let a test drive time and
// callback ordering explicitly instead of racing real goroutines.
type Mock struct {
	mu       sync.Mutex
	now      time.Time
	ready    []func()
	timers   []*mockTimer
	addrs    map[string][]Address
	conns    map[string]Connection
	pool     *BufferPool
	dialErrs map[string]error
}

type mockTimer struct {
	at        time.Time
	fn        func()
	cancelled bool
}

// NewMock returns a Mock loop with its virtual clock at the Unix epoch.
func NewMock() *Mock {
	return &Mock{
		now:      time.Unix(0, 0),
		addrs:    map[string][]Address{},
		conns:    map[string]Connection{},
		dialErrs: map[string]error{},
		pool:     NewBufferPool(4096),
	}
}

func (m *Mock) CallSoon(fn func()) {
	m.mu.Lock()
	m.ready = append(m.ready, fn)
	m.mu.Unlock()
}

func (m *Mock) CallLater(d time.Duration, fn func()) CancelFunc {
	m.mu.Lock()
	t := &mockTimer{at: m.now.Add(d), fn: fn}
	m.timers = append(m.timers, t)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		t.cancelled = true
		m.mu.Unlock()
	}
}

// SetAddrs configures the Address list GetAddrInfo returns for a given
// "host:port" lookup key, for tests that need deterministic resolution.
func (m *Mock) SetAddrs(host, port string, addrs []Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addrs[net.JoinHostPort(host, port)] = addrs
}

// SetConnection configures the Connection TCPConnect returns for a given
// Address, or SetDialError to make the dial fail instead.
func (m *Mock) SetConnection(addr Address, conn Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[addr.Addr] = conn
}

func (m *Mock) SetDialError(addr Address, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialErrs[addr.Addr] = err
}

func (m *Mock) GetAddrInfo(_ context.Context, host, port string) ([]Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	addrs, ok := m.addrs[net.JoinHostPort(host, port)]
	if !ok {
		return nil, errors.New("eventloop: mock has no addresses configured for " + net.JoinHostPort(host, port))
	}
	return addrs, nil
}

func (m *Mock) TCPConnect(_ context.Context, addr Address) (Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.dialErrs[addr.Addr]; ok {
		return nil, err
	}
	conn, ok := m.conns[addr.Addr]
	if !ok {
		return nil, errors.New("eventloop: mock has no connection configured for " + addr.Addr)
	}
	return conn, nil
}

func (m *Mock) Allocator() *BufferPool { return m.pool }

// Now returns the loop's current virtual time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Run drains the ready queue until empty, running each callback in queue
// order. Callbacks that themselves call CallSoon are picked up within the
// same Run call.
func (m *Mock) Run() {
	for {
		m.mu.Lock()
		if len(m.ready) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.ready[0]
		m.ready = m.ready[1:]
		m.mu.Unlock()
		fn()
	}
}

// Advance moves the virtual clock forward by d, firing every timer whose
// deadline falls at or before the new time, in deadline order, then drains
// the ready queue (Run).
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	sort.Slice(m.timers, func(i, j int) bool { return m.timers[i].at.Before(m.timers[j].at) })
	var due []*mockTimer
	var pending []*mockTimer
	for _, t := range m.timers {
		if !t.at.After(m.now) {
			due = append(due, t)
		} else {
			pending = append(pending, t)
		}
	}
	m.timers = pending
	m.mu.Unlock()

	for _, t := range due {
		if !t.cancelled {
			t.fn()
		}
	}
	m.Run()
}
