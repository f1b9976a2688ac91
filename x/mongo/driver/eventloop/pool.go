// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package eventloop

import "sync"

// BufferPool is the Go stand-in for the source material's allocator handle
// (spec.md §3 "get_allocator"): a sync.Pool-backed source of scratch read
// buffers, so the connection read loop doesn't allocate on every message.
type BufferPool struct {
	pool sync.Pool
	size int
}

// NewBufferPool returns a pool that hands out byte slices of len==bufSize.
func NewBufferPool(bufSize int) *BufferPool {
	bp := &BufferPool{size: bufSize}
	bp.pool.New = func() any { return make([]byte, bp.size) }
	return bp
}

// Get returns a buffer of the pool's configured size.
func (bp *BufferPool) Get() []byte { return bp.pool.Get().([]byte) }

// Put returns buf to the pool, provided its capacity matches.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != bp.size {
		return
	}
	bp.pool.Put(buf[:bp.size])
}
