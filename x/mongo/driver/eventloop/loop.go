// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package eventloop defines the Loop interface spec.md §3/§4.8 treats as an
// external collaborator (call_soon, call_later, getaddrinfo, tcp_connect,
// tcp_read_some, tcp_write_some, get_allocator), plus two implementations:
// Real, a goroutine-and-net.Conn-backed loop for production use, and Mock,
// a deterministic virtual-clock loop for tests (SPEC_FULL.md "Supplemented
// features", grounded on original_source/src/amongoc/default_loop.cpp).
package eventloop

import (
	"context"
	"net"
	"time"

	"github.com/amongoc/amongoc-go/x/mongo/driver/nanosender"
)

// CancelFunc cancels a pending CallLater registration. It is the same type
// as nanosender.CancelFunc, so CallLater matches nanosender.Clock's method.
type CancelFunc = nanosender.CancelFunc

// Loop is the scheduling, name-resolution, and socket I/O surface the wire
// client and nanosender combinators depend on (spec.md §3 "Event loop").
// It satisfies nanosender.Clock.
type Loop interface {
	// CallSoon schedules fn to run on the loop at the next opportunity.
	CallSoon(fn func())
	// CallLater schedules fn to run after d elapses. The returned
	// CancelFunc prevents fn from running if called before it fires.
	CallLater(d time.Duration, fn func()) CancelFunc
	// GetAddrInfo resolves host/port to a list of dialable addresses
	// (spec.md §3 "Address info").
	GetAddrInfo(ctx context.Context, host, port string) ([]Address, error)
	// TCPConnect opens a connection to addr.
	TCPConnect(ctx context.Context, addr Address) (Connection, error)
	// Allocator returns the loop's buffer allocator (spec.md §3
	// "get_allocator" — this module uses Go's GC-backed allocator, so
	// Allocator returns a BufferPool rather than a raw allocator handle,
	// the idiomatic translation of "pass an allocator down" in a language
	// with implicit memory management).
	Allocator() *BufferPool
}

// Address is one resolved candidate returned by GetAddrInfo.
type Address struct {
	Network string // "tcp4" or "tcp6"
	Addr    string // host:port, ready for net.Dial
}

// Connection is a minimal read/write/close surface over a resolved
// connection, matching spec.md §3's "tcp_read_some"/"tcp_write_some" (partial
// reads/writes are expected and normal, same as net.Conn).
type Connection interface {
	ReadSome(buf []byte) (int, error)
	WriteSome(buf []byte) (int, error)
	Close() error
	RemoteAddr() net.Addr
}
