// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package wiremessage implements the OP_MSG wire framer (spec.md §4.7,
// §6 "Wire message"): a standard 16-byte header followed by a uint32
// flagBits field and one or more sections. Naming and section-kind layout
// follow the teacher's own x/mongo/driver/wiremessage package, cross-checked
// against other_examples/d4aa2073_gravitational-teleport__lib-srv-db-mongodb-protocol-opmsg.go.go
// for the header/flag/section breakdown.
package wiremessage

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
)

// OpCode identifies the kind of wire message (spec.md §6). This module only
// emits and parses OP_MSG; the legacy opcodes are recognized so a reply
// carrying one produces a clear protocol error instead of silently
// misparsing.
type OpCode int32

const (
	OpReply      OpCode = 1
	OpUpdate     OpCode = 2001
	OpInsert     OpCode = 2002
	OpQuery      OpCode = 2004
	OpGetMore    OpCode = 2005
	OpDelete     OpCode = 2006
	OpKillCursor OpCode = 2007
	OpCompressed OpCode = 2012
	OpMsg        OpCode = 2013
)

func (c OpCode) String() string {
	switch c {
	case OpReply:
		return "reply"
	case OpCompressed:
		return "compressed"
	case OpMsg:
		return "msg"
	default:
		return "unknown"
	}
}

// MsgFlag is the OP_MSG flagBits bitmask (spec.md §6).
type MsgFlag uint32

const (
	ChecksumPresent MsgFlag = 1 << 0
	MoreToCome      MsgFlag = 1 << 1
	ExhaustAllowed  MsgFlag = 1 << 16
)

// SectionType identifies an OP_MSG section's kind byte.
type SectionType byte

const (
	SectionBody             SectionType = 0
	SectionDocumentSequence SectionType = 1
)

// Header is the standard 16-byte message header common to every opcode.
type Header struct {
	MessageLength int32
	RequestID     int32
	ResponseTo    int32
	OpCode        OpCode
}

const headerLen = 16

// requestCounter hands out process-wide unique request ids, matching the
// teacher's CurrentRequestID-style monotonic counter.
var requestCounter int32

// NextRequestID returns the next request id for an outgoing message
// (spec.md §6 "request-id counter").
func NextRequestID() int32 {
	return atomic.AddInt32(&requestCounter, 1)
}

// AppendHeader appends a 16-byte header to dst.
func AppendHeader(dst []byte, h Header) []byte {
	dst = bsoncore.AppendInt32(dst, h.MessageLength)
	dst = bsoncore.AppendInt32(dst, h.RequestID)
	dst = bsoncore.AppendInt32(dst, h.ResponseTo)
	dst = bsoncore.AppendInt32(dst, int32(h.OpCode))
	return dst
}

// ReadHeader reads a 16-byte header from the front of src, returning the
// remaining bytes.
func ReadHeader(src []byte) (Header, []byte, bool) {
	if len(src) < headerLen {
		return Header{}, src, false
	}
	length := int32(binary.LittleEndian.Uint32(src[0:4]))
	reqID := int32(binary.LittleEndian.Uint32(src[4:8]))
	respTo := int32(binary.LittleEndian.Uint32(src[8:12]))
	opcode := int32(binary.LittleEndian.Uint32(src[12:16]))
	return Header{
		MessageLength: length,
		RequestID:     reqID,
		ResponseTo:    respTo,
		OpCode:        OpCode(opcode),
	}, src[headerLen:], true
}
