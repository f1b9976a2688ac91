// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"errors"
	"fmt"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
)

// ErrShortMessage indicates a message's declared length exceeds the bytes
// actually available.
var ErrShortMessage = errors.New("wiremessage: declared length exceeds available bytes")

// ErrNotOpMsg indicates a header's opcode is not OP_MSG.
var ErrNotOpMsg = errors.New("wiremessage: opcode is not OP_MSG")

// Message is a fully decoded OP_MSG: a header, flag bits, a required body
// document, and zero or more document-sequence sections (spec.md §6).
type Message struct {
	Header            Header
	Flags             MsgFlag
	Body              bsoncore.Document
	DocumentSequences []DocumentSequence
}

// DocumentSequence is an OP_MSG "kind 1" section: a named sequence of
// documents, used for e.g. batched inserts.
type DocumentSequence struct {
	Identifier string
	Documents  []bsoncore.Document
}

// WriteOpMsg encodes body (and any document sequences) as a complete OP_MSG
// wire message, appended to dst, with requestID and responseTo as given
// (pass responseTo=0 for a new outgoing request). The checksum flag is
// never set on write (DESIGN.md Open Question decision #5 / SPEC_FULL.md
// decision #2).
func WriteOpMsg(dst []byte, requestID, responseTo int32, flags MsgFlag, body bsoncore.Document, seqs ...DocumentSequence) []byte {
	flags &^= ChecksumPresent
	start := len(dst)
	dst = AppendHeader(dst, Header{RequestID: requestID, ResponseTo: responseTo, OpCode: OpMsg})
	dst = bsoncore.AppendInt32(dst, int32(flags))
	dst = append(dst, byte(SectionBody))
	dst = append(dst, body...)
	for _, seq := range seqs {
		dst = append(dst, byte(SectionDocumentSequence))
		seqStart := len(dst)
		dst = bsoncore.AppendInt32(dst, 0) // placeholder length, patched below
		dst = append(dst, seq.Identifier...)
		dst = append(dst, 0x00)
		for _, doc := range seq.Documents {
			dst = append(dst, doc...)
		}
		seqLen := int32(len(dst) - seqStart)
		bsoncore.UpdateLength(dst, int32(seqStart), seqLen)
	}
	msgLen := int32(len(dst) - start)
	bsoncore.UpdateLength(dst, int32(start), msgLen)
	return dst
}

// ReadMessage parses a complete wire message (header plus declared-length
// body) from the front of src, returning the remainder of src after the
// message. It returns
// ErrShortMessage if the header declares more bytes than src has, so a
// caller can treat that as "need more input" from the connection rather
// than a malformed message.
func ReadMessage(src []byte) (Message, []byte, error) {
	header, rest, ok := ReadHeader(src)
	if !ok {
		return Message{}, src, ErrShortMessage
	}
	if header.OpCode != OpMsg {
		return Message{}, src, fmt.Errorf("%w: got %s", ErrNotOpMsg, header.OpCode)
	}
	bodyLen := int(header.MessageLength) - headerLen
	if bodyLen < 0 || bodyLen > len(rest) {
		return Message{}, src, ErrShortMessage
	}
	body, remainder := rest[:bodyLen], rest[bodyLen:]
	msg, err := parseOpMsgBody(header, body)
	if err != nil {
		return Message{}, src, err
	}
	return msg, remainder, nil
}

func parseOpMsgBody(header Header, body []byte) (Message, error) {
	if len(body) < 4 {
		return Message{}, ErrShortMessage
	}
	flagsRaw, body, ok := bsoncore.ReadInt32(body)
	if !ok {
		return Message{}, ErrShortMessage
	}
	flags := MsgFlag(flagsRaw)

	// Strip, but do not verify, a trailing CRC-32C checksum if present
	// (SPEC_FULL.md Open Question decision #2).
	if flags&ChecksumPresent != 0 {
		if len(body) < 4 {
			return Message{}, ErrShortMessage
		}
		body = body[:len(body)-4]
	}

	msg := Message{Header: header, Flags: flags}
	sawBody := false
	for len(body) > 0 {
		kind := SectionType(body[0])
		body = body[1:]
		switch kind {
		case SectionBody:
			doc, err := bsoncore.NewDocument(body)
			if err != nil {
				return Message{}, fmt.Errorf("wiremessage: body section: %w", err)
			}
			msg.Body = doc
			body = body[len(doc):]
			sawBody = true
		case SectionDocumentSequence:
			seq, consumed, err := readDocumentSequence(body)
			if err != nil {
				return Message{}, err
			}
			msg.DocumentSequences = append(msg.DocumentSequences, seq)
			body = body[consumed:]
		default:
			return Message{}, fmt.Errorf("wiremessage: unknown section kind %d", kind)
		}
	}
	if !sawBody {
		return Message{}, errors.New("wiremessage: OP_MSG has no body section")
	}
	return msg, nil
}

func readDocumentSequence(src []byte) (DocumentSequence, int, error) {
	if len(src) < 4 {
		return DocumentSequence{}, 0, ErrShortMessage
	}
	length, _, ok := bsoncore.ReadLength(src)
	if !ok {
		return DocumentSequence{}, 0, ErrShortMessage
	}
	seqLen := int(length)
	if seqLen < 4 || seqLen > len(src) {
		return DocumentSequence{}, 0, ErrShortMessage
	}
	rest := src[4:seqLen]
	nul := indexByte(rest, 0x00)
	if nul < 0 {
		return DocumentSequence{}, 0, errors.New("wiremessage: document sequence identifier missing null terminator")
	}
	identifier := string(rest[:nul])
	rest = rest[nul+1:]

	var docs []bsoncore.Document
	for len(rest) > 0 {
		doc, err := bsoncore.NewDocument(rest)
		if err != nil {
			return DocumentSequence{}, 0, fmt.Errorf("wiremessage: document sequence %q: %w", identifier, err)
		}
		docs = append(docs, doc)
		rest = rest[len(doc):]
	}
	return DocumentSequence{Identifier: identifier, Documents: docs}, seqLen, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
