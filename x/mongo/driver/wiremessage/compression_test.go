// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpCompressedRoundTripSnappy(t *testing.T) {
	testOpCompressedRoundTrip(t, CompressorSnappy)
}

func TestOpCompressedRoundTripZstd(t *testing.T) {
	testOpCompressedRoundTrip(t, CompressorZstd)
}

func testOpCompressedRoundTrip(t *testing.T, id CompressorID) {
	t.Helper()
	body := buildDoc(t, "ok", "1")
	plain := WriteOpMsg(nil, 7, 0, 0, body)

	compressed, err := WriteOpCompressed(nil, id, 7, 0, plain)
	require.NoError(t, err)

	header, _, ok := ReadHeader(compressed)
	require.True(t, ok)
	require.Equal(t, OpCompressed, header.OpCode)

	msg, remainder, err := ReadEither(compressed)
	require.NoError(t, err)
	require.Empty(t, remainder)
	require.Equal(t, OpMsg, msg.Header.OpCode)
	require.Equal(t, int32(7), msg.Header.RequestID)
	require.Equal(t, body, msg.Body)
}

func TestReadEitherPassesThroughUncompressedOpMsg(t *testing.T) {
	body := buildDoc(t, "ok", "1")
	plain := WriteOpMsg(nil, 3, 0, 0, body)

	msg, remainder, err := ReadEither(plain)
	require.NoError(t, err)
	require.Empty(t, remainder)
	require.Equal(t, body, msg.Body)
}

func TestCompressBytesRejectsUnknownCodec(t *testing.T) {
	_, err := compressBytes(CompressorID(99), []byte("x"))
	require.Error(t, err)
}

