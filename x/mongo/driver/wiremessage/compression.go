// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
)

// CompressorID identifies an OP_COMPRESSED payload codec, matching the
// teacher's core/connection.go compressorMap keying (grounded on
// wiremessage.CompressorID there; values per the wire protocol spec).
type CompressorID uint8

const (
	CompressorNoop   CompressorID = 0
	CompressorSnappy CompressorID = 1
	CompressorZlib   CompressorID = 2
	CompressorZstd   CompressorID = 3
)

func (id CompressorID) String() string {
	switch id {
	case CompressorNoop:
		return "noop"
	case CompressorSnappy:
		return "snappy"
	case CompressorZlib:
		return "zlib"
	case CompressorZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Compressed is a decoded OP_COMPRESSED message: a header plus the opcode
// and length of the message it carries, grounded on the teacher's
// wiremessage.Compressed struct (core/connection.go).
type Compressed struct {
	Header           Header
	OriginalOpCode   OpCode
	UncompressedSize int32
	CompressorID     CompressorID
	CompressedBytes  []byte
}

var zstdEncoder, _ = zstd.NewWriter(nil)
var zstdDecoder, _ = zstd.NewReader(nil)

// compressBytes compresses src with the named codec.
func compressBytes(id CompressorID, src []byte) ([]byte, error) {
	switch id {
	case CompressorNoop:
		return src, nil
	case CompressorSnappy:
		return snappy.Encode(nil, src), nil
	case CompressorZstd:
		return zstdEncoder.EncodeAll(src, nil), nil
	default:
		return nil, fmt.Errorf("wiremessage: unsupported compressor %s", id)
	}
}

// uncompressBytes reverses compressBytes, growing dst as needed.
func uncompressBytes(id CompressorID, src []byte, size int32) ([]byte, error) {
	switch id {
	case CompressorNoop:
		return src, nil
	case CompressorSnappy:
		return snappy.Decode(make([]byte, 0, size), src)
	case CompressorZstd:
		return zstdDecoder.DecodeAll(src, make([]byte, 0, size))
	default:
		return nil, fmt.Errorf("wiremessage: unsupported compressor %s", id)
	}
}

// WriteOpCompressed wraps an already-encoded wire message (header included,
// as produced by e.g. WriteOpMsg) in an OP_COMPRESSED envelope using the
// given codec, appended to dst.
func WriteOpCompressed(dst []byte, id CompressorID, requestID, responseTo int32, original []byte) ([]byte, error) {
	originalHeader, originalBody, ok := ReadHeader(original)
	if !ok {
		return nil, ErrShortMessage
	}
	compressed, err := compressBytes(id, originalBody)
	if err != nil {
		return nil, err
	}

	start := len(dst)
	dst = AppendHeader(dst, Header{RequestID: requestID, ResponseTo: responseTo, OpCode: OpCompressed})
	dst = bsoncore.AppendInt32(dst, int32(originalHeader.OpCode))
	dst = bsoncore.AppendInt32(dst, int32(len(originalBody)))
	dst = append(dst, byte(id))
	dst = append(dst, compressed...)
	bsoncore.UpdateLength(dst, int32(start), int32(len(dst)-start))
	return dst, nil
}

// ReadOpCompressed parses the OP_COMPRESSED-specific fields following a
// header already consumed by ReadHeader, returning the decoded envelope
// without uncompressing its payload.
func ReadOpCompressed(header Header, body []byte) (Compressed, error) {
	if len(body) < 9 {
		return Compressed{}, ErrShortMessage
	}
	origOp, body, _ := bsoncore.ReadInt32(body)
	size, body, _ := bsoncore.ReadInt32(body)
	id := CompressorID(body[0])
	body = body[1:]
	return Compressed{
		Header:           header,
		OriginalOpCode:   OpCode(origOp),
		UncompressedSize: size,
		CompressorID:     id,
		CompressedBytes:  body,
	}, nil
}

// DecompressToOpMsg fully decodes an OP_COMPRESSED wire message (header
// included) into the OP_MSG it carries, the only original opcode this
// driver's read path accepts (spec.md's OP_MSG-only scope).
func DecompressToOpMsg(src []byte) (Message, error) {
	header, rest, ok := ReadHeader(src)
	if !ok {
		return Message{}, ErrShortMessage
	}
	if header.OpCode != OpCompressed {
		return Message{}, fmt.Errorf("%w: got %s", ErrNotOpMsg, header.OpCode)
	}
	bodyLen := int(header.MessageLength) - headerLen
	if bodyLen < 0 || bodyLen > len(rest) {
		return Message{}, ErrShortMessage
	}
	compressed, err := ReadOpCompressed(header, rest[:bodyLen])
	if err != nil {
		return Message{}, err
	}
	if compressed.OriginalOpCode != OpMsg {
		return Message{}, fmt.Errorf("wiremessage: OP_COMPRESSED wraps unsupported opcode %s", compressed.OriginalOpCode)
	}
	uncompressed, err := uncompressBytes(compressed.CompressorID, compressed.CompressedBytes, compressed.UncompressedSize)
	if err != nil {
		return Message{}, fmt.Errorf("wiremessage: uncompress %s payload: %w", compressed.CompressorID, err)
	}
	innerHeader := Header{
		MessageLength: int32(headerLen + len(uncompressed)),
		RequestID:     header.RequestID,
		ResponseTo:    header.ResponseTo,
		OpCode:        OpMsg,
	}
	return parseOpMsgBody(innerHeader, uncompressed)
}

// ReadEither parses a complete wire message from the front of src, whether
// it is a plain OP_MSG or an OP_COMPRESSED envelope carrying one,
// transparently uncompressing the latter. It returns the remainder of src
// after the message, as ReadMessage does.
func ReadEither(src []byte) (Message, []byte, error) {
	header, _, ok := ReadHeader(src)
	if !ok {
		return Message{}, src, ErrShortMessage
	}
	bodyLen := int(header.MessageLength) - headerLen
	if bodyLen < 0 || bodyLen > len(src)-headerLen {
		return Message{}, src, ErrShortMessage
	}
	full, remainder := src[:header.MessageLength], src[header.MessageLength:]
	if header.OpCode == OpCompressed {
		msg, err := DecompressToOpMsg(full)
		if err != nil {
			return Message{}, src, err
		}
		return msg, remainder, nil
	}
	msg, _, err := ReadMessage(full)
	if err != nil {
		return Message{}, src, err
	}
	return msg, remainder, nil
}
