// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package eventloop

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConn struct{ net.Conn }

func (stubConn) ReadSome([]byte) (int, error)  { return 0, nil }
func (stubConn) WriteSome([]byte) (int, error) { return 0, nil }
func (stubConn) Close() error                  { return nil }
func (stubConn) RemoteAddr() net.Addr          { return nil }

func TestMockCallSoonRunsInOrder(t *testing.T) {
	m := NewMock()
	var order []int
	m.CallSoon(func() { order = append(order, 1) })
	m.CallSoon(func() { order = append(order, 2) })
	m.Run()
	assert.Equal(t, []int{1, 2}, order)
}

func TestMockCallLaterFiresOnAdvance(t *testing.T) {
	m := NewMock()
	fired := false
	m.CallLater(5*time.Second, func() { fired = true })
	m.Advance(4 * time.Second)
	assert.False(t, fired)
	m.Advance(time.Second)
	assert.True(t, fired)
}

func TestMockCallLaterCancel(t *testing.T) {
	m := NewMock()
	fired := false
	cancel := m.CallLater(time.Second, func() { fired = true })
	cancel()
	m.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestMockAddressAndConnectionFixtures(t *testing.T) {
	m := NewMock()
	addr := Address{Network: "tcp4", Addr: "10.0.0.1:27017"}
	m.SetAddrs("db.example.com", "27017", []Address{addr})

	addrs, err := m.GetAddrInfo(nil, "db.example.com", "27017")
	require.NoError(t, err)
	assert.Equal(t, []Address{addr}, addrs)

	conn := stubConn{}
	m.SetConnection(addr, conn)
	got, err := m.TCPConnect(nil, addr)
	require.NoError(t, err)
	assert.Equal(t, Connection(conn), got)
}

func TestMockDialError(t *testing.T) {
	m := NewMock()
	addr := Address{Network: "tcp4", Addr: "10.0.0.2:27017"}
	m.SetDialError(addr, assert.AnError)
	_, err := m.TCPConnect(nil, addr)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMockGetAddrInfoUnconfiguredReturnsError(t *testing.T) {
	m := NewMock()
	_, err := m.GetAddrInfo(nil, "unknown", "27017")
	assert.Error(t, err)
}

func TestBufferPool(t *testing.T) {
	pool := NewBufferPool(64)
	buf := pool.Get()
	assert.Len(t, buf, 64)
	pool.Put(buf)
	buf2 := pool.Get()
	assert.Len(t, buf2, 64)
}
