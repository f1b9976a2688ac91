// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amongoc/amongoc-go/x/bsonx/bsoncore"
	"github.com/amongoc/amongoc-go/x/bsonx/bsonmut"
)

func buildDoc(t *testing.T, key, value string) bsoncore.Document {
	t.Helper()
	doc, err := bsonmut.Build(bsonmut.StringField(key, value))
	require.NoError(t, err)
	return doc
}

func TestWriteReadOpMsgRoundTrip(t *testing.T) {
	body := buildDoc(t, "hello", "world")
	out := WriteOpMsg(nil, 7, 0, 0, body)

	msg, rest, err := ReadMessage(out)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, int32(7), msg.Header.RequestID)
	assert.Equal(t, OpMsg, msg.Header.OpCode)
	assert.Equal(t, body, msg.Body)
	assert.Empty(t, msg.DocumentSequences)
}

func TestReadMessageRejectsNonOpMsg(t *testing.T) {
	dst := AppendHeader(nil, Header{OpCode: OpReply, RequestID: 1})
	dst = append(dst, []byte{0, 0, 0, 0}...)
	_, _, err := ReadMessage(dst)
	assert.ErrorIs(t, err, ErrNotOpMsg)
}

func TestReadMessageShortInput(t *testing.T) {
	_, _, err := ReadMessage([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortMessage)
}

func TestReadMessageHandlesTruncatedDeclaredLength(t *testing.T) {
	body := buildDoc(t, "k", "v")
	out := WriteOpMsg(nil, 1, 0, 0, body)
	// Declares more bytes than are actually present: treat as "need more
	// input" rather than a hard parse error.
	truncated := out[:len(out)-2]
	_, _, err := ReadMessage(truncated)
	assert.ErrorIs(t, err, ErrShortMessage)
}

func TestWriteOpMsgAlwaysStripsChecksumFlagOnWrite(t *testing.T) {
	body := buildDoc(t, "k", "v")
	out := WriteOpMsg(nil, 1, 0, ChecksumPresent|MoreToCome, body)
	msg, _, err := ReadMessage(out)
	require.NoError(t, err)
	assert.Equal(t, MoreToCome, msg.Flags)
	assert.Zero(t, msg.Flags&ChecksumPresent)
}

func TestReadMessageStripsObservedChecksumWithoutVerifying(t *testing.T) {
	body := buildDoc(t, "k", "v")
	out := WriteOpMsg(nil, 1, 0, 0, body)
	// Simulate a peer that sets ChecksumPresent and appends 4 junk bytes:
	// flip the flag bit in the already-written header/flags and append a
	// bogus checksum.
	out[16] |= byte(ChecksumPresent)
	out = append(out, []byte{0xDE, 0xAD, 0xBE, 0xEF}...)
	out = bsoncore.UpdateLength(out, 0, int32(len(out)))

	msg, _, err := ReadMessage(out)
	require.NoError(t, err)
	assert.Equal(t, body, msg.Body)
}

func TestWriteOpMsgWithDocumentSequence(t *testing.T) {
	body := buildDoc(t, "insert", "coll")
	doc1 := buildDoc(t, "a", "1")
	doc2 := buildDoc(t, "a", "2")
	out := WriteOpMsg(nil, 3, 0, 0, body, DocumentSequence{
		Identifier: "documents",
		Documents:  []bsoncore.Document{doc1, doc2},
	})

	msg, _, err := ReadMessage(out)
	require.NoError(t, err)
	require.Len(t, msg.DocumentSequences, 1)
	seq := msg.DocumentSequences[0]
	assert.Equal(t, "documents", seq.Identifier)
	require.Len(t, seq.Documents, 2)
	assert.Equal(t, doc1, seq.Documents[0])
	assert.Equal(t, doc2, seq.Documents[1])
}

func TestNextRequestIDIsMonotonicAndUnique(t *testing.T) {
	a := NextRequestID()
	b := NextRequestID()
	assert.Greater(t, b, a)
}
