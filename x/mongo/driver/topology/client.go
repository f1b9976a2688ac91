// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package topology composes bsoncore, bsonmut, nanosender, wiremessage, and
// eventloop into the single wire client spec.md's data model calls for
// (§2 "Wire client (composition of the above)"). It is grounded on the
// teacher's own x/mongo/driver/topology.Server — ConnectServer/NewServer
// constructor shape, Connection(ctx)/Disconnect(ctx) lifecycle methods, and
// a String method for diagnostics — scaled down from a replica-set-aware
// topology monitor to a single dialed connection, since multi-node topology
// discovery is explicitly out of scope (spec.md §1 Non-goals).
package topology

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amongoc/amongoc-go/internal"
	"github.com/amongoc/amongoc-go/internal/logger"
	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
	"github.com/amongoc/amongoc-go/x/bsonx/bsonmut"
	"github.com/amongoc/amongoc-go/x/mongo/driver/eventloop"
	"github.com/amongoc/amongoc-go/x/mongo/driver/nanosender"
	"github.com/amongoc/amongoc-go/x/mongo/driver/stoptoken"
	"github.com/amongoc/amongoc-go/x/mongo/driver/wiremessage"
)

// ErrNotConnected is returned by Client methods called before Connect.
var ErrNotConnected = errors.New("topology: client is not connected")

// ClientOptions configures a Client (AMBIENT STACK "Configuration":
// functional-options, matching the teacher's mongo/options convention).
type ClientOptions struct {
	host          string
	port          string
	dialTimeout   time.Duration
	maxMessageLen int32
	loop          eventloop.Loop
	sink          logger.LogSink
	compressor    wiremessage.CompressorID
}

// ClientOption configures a Client, functional-options style.
type ClientOption func(*ClientOptions)

// WithHost sets the target host and port, default "localhost"/"27017".
func WithHost(host, port string) ClientOption {
	return func(o *ClientOptions) { o.host, o.port = host, port }
}

// WithDialTimeout bounds address resolution and connection establishment.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(o *ClientOptions) { o.dialTimeout = d }
}

// WithMaxMessageLen bounds the size of a single accepted wire message.
func WithMaxMessageLen(n int32) ClientOption {
	return func(o *ClientOptions) { o.maxMessageLen = n }
}

// WithLoop supplies the eventloop.Loop the client dials and schedules
// through; tests pass an *eventloop.Mock, production code an *eventloop.Real.
func WithLoop(loop eventloop.Loop) ClientOption {
	return func(o *ClientOptions) { o.loop = loop }
}

// WithLogSink attaches a structured log sink (AMBIENT STACK "Logging").
func WithLogSink(sink logger.LogSink) ClientOption {
	return func(o *ClientOptions) { o.sink = sink }
}

// WithCompressor wraps every outgoing command in an OP_COMPRESSED envelope
// using the given codec (DOMAIN STACK: github.com/klauspost/compress/zstd,
// github.com/golang/snappy). The default, CompressorNoop, sends plain
// OP_MSG. Replies are always accepted whether compressed or not, matching
// the teacher's compressorMap-driven uncompressMessage, which picks the
// codec from the reply itself rather than assuming the one last sent.
func WithCompressor(id wiremessage.CompressorID) ClientOption {
	return func(o *ClientOptions) { o.compressor = id }
}

func defaultClientOptions() *ClientOptions {
	return &ClientOptions{
		host:          "localhost",
		port:          "27017",
		dialTimeout:   10 * time.Second,
		maxMessageLen: 48 * 1024 * 1024,
		loop:          eventloop.NewReal(),
	}
}

// Client is a single dialed wire connection (spec.md §2 "Wire client").
type Client struct {
	opts *ClientOptions
	log  *logger.Logger

	mu   sync.Mutex
	conn eventloop.Connection
}

// NewClient builds a Client from opts without dialing.
func NewClient(opts ...ClientOption) *Client {
	o := defaultClientOptions()
	for _, fn := range opts {
		fn(o)
	}
	l := logger.New(o.sink, 0, nil)
	logger.StartPrintListener(l)
	return &Client{
		opts: o,
		log:  l,
	}
}

// Connect resolves the configured host/port and dials the first reachable
// address (spec.md §4.8 "getaddrinfo"/"tcp_connect", composed via
// FirstWhere so the first successful candidate wins). tok is requested to
// stop the moment a candidate wins; a callback registered on it cancels
// dialCtx so the remaining in-flight dials are aborted immediately instead
// of lingering until dialCtx's own deadline.
func (c *Client) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.dialTimeout)
	defer cancel()

	tok := stoptoken.NewSource()
	tok.Register(func() { cancel() })

	addrs, err := c.opts.loop.GetAddrInfo(dialCtx, c.opts.host, c.opts.port)
	if err != nil {
		return fmt.Errorf("topology: resolve %s:%s: %w", c.opts.host, c.opts.port, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("topology: no addresses for %s:%s", c.opts.host, c.opts.port)
	}

	senders := make([]nanosender.Sender[eventloop.Connection], 0, len(addrs))
	for _, a := range addrs {
		a := a
		senders = append(senders, nanosender.Go(func(_ nanosender.Await) (eventloop.Connection, error) {
			return c.opts.loop.TCPConnect(dialCtx, a)
		}))
	}

	var conn eventloop.Connection
	done := make(chan error, 1)
	anyConnection := func(int, eventloop.Connection) bool { return true }
	op := nanosender.FirstWhere(tok, anyConnection, senders...).Connect(nanosender.NewReceiver(
		func(v eventloop.Connection) { conn = v; done <- nil },
		func(e error) { done <- e },
		func() { done <- errors.New("topology: connect cancelled") },
	))
	op.Start()
	if err := <-done; err != nil {
		return fmt.Errorf("topology: connect %s:%s: %w", c.opts.host, c.opts.port, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.log.Print(logger.LevelDebug, logger.KV{
		Comp: logger.ComponentTopology, Msg: "connection established",
		Pairs: []interface{}{"remote", conn.RemoteAddr().String()},
	})
	return nil
}

// Disconnect closes the underlying connection.
func (c *Client) Disconnect(context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// RunCommand sends cmd as an OP_MSG body section against db and returns the
// server's reply document, blocking until the reply is fully read (spec.md
// §4.7 "wire framer", §6 "request-id counter"). It is the synchronous
// convenience built atop RunCommandSender.
func (c *Client) RunCommand(ctx context.Context, db string, cmd bsoncore.Document) (bsoncore.Document, error) {
	result := make(chan struct {
		doc bsoncore.Document
		err error
	}, 1)
	op := c.RunCommandSender(ctx, db, cmd).Connect(nanosender.NewReceiver(
		func(doc bsoncore.Document) {
			result <- struct {
				doc bsoncore.Document
				err error
			}{doc: doc}
		},
		func(err error) {
			result <- struct {
				doc bsoncore.Document
				err error
			}{err: err}
		},
		func() {
			result <- struct {
				doc bsoncore.Document
				err error
			}{err: context.Canceled}
		},
	))
	op.Start()
	r := <-result
	return r.doc, r.err
}

// RunCommandSender is the asynchronous form of RunCommand: a cold Sender
// that, once started, writes the command and reads the reply on its own
// goroutine via nanosender.Go, composing the whole round trip as a single
// emitter the way spec.md §4.4/§4.5 describes (spec.md §2 "Wire client
// (composition of the above)").
func (c *Client) RunCommandSender(ctx context.Context, db string, cmd bsoncore.Document) nanosender.Sender[bsoncore.Document] {
	return nanosender.Go(func(_ nanosender.Await) (bsoncore.Document, error) {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return nil, ErrNotConnected
		}

		// Abort the in-flight read/write by closing the connection if ctx
		// is cancelled before the round trip finishes; the pending
		// ReadSome/WriteSome unblocks with an error from the closed conn.
		listener := internal.NewCancellationListener()
		go listener.Listen(ctx, func() { conn.Close() })
		defer listener.StopListening()

		full, err := bsonmutAppendDB(cmd, db)
		if err != nil {
			return nil, err
		}

		reqID := wiremessage.NextRequestID()
		out := wiremessage.WriteOpMsg(nil, reqID, 0, 0, full)
		if c.opts.compressor != wiremessage.CompressorNoop {
			compressed, err := wiremessage.WriteOpCompressed(nil, c.opts.compressor, reqID, 0, out)
			if err != nil {
				return nil, fmt.Errorf("topology: compress: %w", err)
			}
			out = compressed
		}
		if int32(len(out)) > c.opts.maxMessageLen {
			return nil, fmt.Errorf("topology: outgoing message of %d bytes exceeds limit %d", len(out), c.opts.maxMessageLen)
		}
		if err := writeAll(conn, out); err != nil {
			return nil, fmt.Errorf("topology: write: %w", err)
		}

		reply, err := readOneMessage(conn, c.opts.maxMessageLen)
		if err != nil {
			return nil, fmt.Errorf("topology: read: %w", err)
		}
		msg, _, err := wiremessage.ReadEither(reply)
		if err != nil {
			return nil, fmt.Errorf("topology: parse reply: %w", err)
		}
		if msg.Header.ResponseTo != reqID {
			return nil, fmt.Errorf("topology: reply responseTo=%d does not match request %d", msg.Header.ResponseTo, reqID)
		}
		c.log.Print(logger.LevelDebug, logger.KV{
			Comp: logger.ComponentCommand, Msg: "command succeeded",
			Pairs: []interface{}{"db", db, "requestId", reqID},
		})
		return msg.Body, nil
	})
}

func writeAll(conn eventloop.Connection, buf []byte) error {
	for len(buf) > 0 {
		n, err := conn.WriteSome(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// readOneMessage reads exactly one wire message: the 16-byte header, then
// messageLength-16 more bytes (spec.md §4.7).
func readOneMessage(conn eventloop.Connection, maxLen int32) ([]byte, error) {
	header := make([]byte, 16)
	if err := readFull(conn, header); err != nil {
		return nil, err
	}
	h, _, ok := wiremessage.ReadHeader(header)
	if !ok {
		return nil, errors.New("topology: short header")
	}
	if h.MessageLength < 16 || h.MessageLength > maxLen {
		return nil, fmt.Errorf("topology: reply declares invalid length %d", h.MessageLength)
	}
	rest := make([]byte, h.MessageLength-16)
	if err := readFull(conn, rest); err != nil {
		return nil, err
	}
	return append(header, rest...), nil
}

func readFull(conn eventloop.Connection, buf []byte) error {
	for len(buf) > 0 {
		n, err := conn.ReadSome(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// bsonmutAppendDB splices a "$db" field onto cmd via the mutator's Splice
// primitive, required on every OP_MSG body per the global command
// arguments convention (grounded on
// other_examples/d4aa2073_gravitational-teleport__lib-srv-db-mongodb-protocol-opmsg.go.go's
// GetDatabase, which expects exactly one "$db" key in the body).
func bsonmutAppendDB(cmd bsoncore.Document, db string) (bsoncore.Document, error) {
	m := bsonmut.NewFromDocument(append(bsoncore.Document(nil), cmd...))
	if err := m.AppendString("$db", db); err != nil {
		return nil, fmt.Errorf("topology: append $db: %w", err)
	}
	return m.Document(), nil
}
