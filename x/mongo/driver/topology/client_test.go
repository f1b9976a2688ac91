// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
	"github.com/amongoc/amongoc-go/x/bsonx/bsonmut"
	"github.com/amongoc/amongoc-go/x/mongo/driver/eventloop"
	"github.com/amongoc/amongoc-go/x/mongo/driver/wiremessage"
)

// pipeConn adapts a net.Conn (one end of a net.Pipe) to eventloop.Connection
// for tests, the same shape eventloop.Real's unexported realConnection
// wraps production net.Conn values in.
type pipeConn struct{ net.Conn }

func (c pipeConn) ReadSome(buf []byte) (int, error)  { return c.Conn.Read(buf) }
func (c pipeConn) WriteSome(buf []byte) (int, error) { return c.Conn.Write(buf) }

// fakeServer reads one OP_MSG request off conn and writes back a reply body
// built by makeReply(requestID).
func fakeServer(t *testing.T, conn net.Conn, makeReply func(requestID int32) bsoncore.Document) {
	t.Helper()
	go func() {
		header := make([]byte, 16)
		if _, err := readFullRaw(conn, header); err != nil {
			return
		}
		h, _, ok := wiremessage.ReadHeader(header)
		if !ok {
			return
		}
		rest := make([]byte, h.MessageLength-16)
		if _, err := readFullRaw(conn, rest); err != nil {
			return
		}
		full := append(header, rest...)
		msg, _, err := wiremessage.ReadMessage(full)
		if err != nil {
			return
		}
		reply := makeReply(msg.Header.RequestID)
		out := wiremessage.WriteOpMsg(nil, wiremessage.NextRequestID(), msg.Header.RequestID, 0, reply)
		_, _ = conn.Write(out)
	}()
}

func readFullRaw(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func newConnectedClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() { serverSide.Close(); clientSide.Close() })

	loop := eventloop.NewMock()
	addr := eventloop.Address{Network: "tcp4", Addr: "127.0.0.1:27017"}
	loop.SetAddrs("127.0.0.1", "27017", []eventloop.Address{addr})
	loop.SetConnection(addr, pipeConn{clientSide})

	c := NewClient(WithHost("127.0.0.1", "27017"), WithLoop(loop), WithDialTimeout(time.Second))
	require.NoError(t, c.Connect(context.Background()))
	return c, serverSide
}

func TestClientConnect(t *testing.T) {
	c, server := newConnectedClient(t)
	defer server.Close()
	defer c.Disconnect(context.Background())
}

func TestClientConnectFailsWithNoAddresses(t *testing.T) {
	loop := eventloop.NewMock()
	c := NewClient(WithHost("nope", "27017"), WithLoop(loop), WithDialTimeout(50*time.Millisecond))
	err := c.Connect(context.Background())
	assert.Error(t, err)
}

func TestClientRunCommandRoundTrip(t *testing.T) {
	c, server := newConnectedClient(t)
	defer server.Close()
	defer c.Disconnect(context.Background())

	fakeServer(t, server, func(int32) bsoncore.Document {
		doc, err := bsonmut.Build(bsonmut.Double("ok", 1))
		require.NoError(t, err)
		return doc
	})

	cmd, err := bsonmut.Build(bsonmut.Int32("hello", 1))
	require.NoError(t, err)

	reply, err := c.RunCommand(context.Background(), "admin", cmd)
	require.NoError(t, err)
	ok, found := reply.Lookup("ok")
	require.True(t, found)
	v, ok2 := ok.DoubleOK()
	require.True(t, ok2)
	assert.Equal(t, 1.0, v)
}

func TestClientRunCommandNotConnected(t *testing.T) {
	loop := eventloop.NewMock()
	c := NewClient(WithLoop(loop))
	cmd, err := bsonmut.Build(bsonmut.Int32("hello", 1))
	require.NoError(t, err)
	_, err = c.RunCommand(context.Background(), "admin", cmd)
	assert.ErrorIs(t, err, ErrNotConnected)
}
