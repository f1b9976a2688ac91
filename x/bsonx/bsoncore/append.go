// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bsoncore

import (
	"encoding/binary"
	"io"
	"math"
)

// AppendType appends t to dst.
func AppendType(dst []byte, t Type) []byte { return append(dst, byte(t)) }

// AppendKey appends the BSON key name followed by its null terminator.
// Embedded null bytes in key are not permitted by the wire format; callers
// constructing documents through Append* helpers directly (rather than
// through the mutator, which truncates at the first null per spec.md §4.3)
// are responsible for supplying a clean key.
func AppendKey(dst []byte, key string) []byte { return append(append(dst, key...), 0x00) }

// AppendHeader appends a type tag and key to dst, the prefix shared by every
// element.
func AppendHeader(dst []byte, t Type, key string) []byte {
	return AppendKey(AppendType(dst, t), key)
}

// ReadLength reads a little-endian int32 length prefix from the front of
// src. It returns false if src is too short.
func ReadLength(src []byte) (int32, []byte, bool) { return ReadInt32(src) }

// ReadInt32 reads a little-endian int32 from the front of src.
func ReadInt32(src []byte) (int32, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return int32(binary.LittleEndian.Uint32(src)), src[4:], true
}

// AppendInt32 appends a little-endian int32 to dst.
func AppendInt32(dst []byte, i32 int32) []byte {
	return append(dst, byte(i32), byte(i32>>8), byte(i32>>16), byte(i32>>24))
}

// ReadInt64 reads a little-endian int64 from the front of src.
func ReadInt64(src []byte) (int64, []byte, bool) {
	if len(src) < 8 {
		return 0, src, false
	}
	return int64(binary.LittleEndian.Uint64(src)), src[8:], true
}

// AppendInt64 appends a little-endian int64 to dst.
func AppendInt64(dst []byte, i64 int64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(i64))
	return append(dst, buf[:]...)
}

// AppendDouble appends a little-endian float64 to dst.
func AppendDouble(dst []byte, f float64) []byte {
	return AppendInt64(dst, int64(math.Float64bits(f)))
}

// ReadDouble reads a little-endian float64 from the front of src.
func ReadDouble(src []byte) (float64, []byte, bool) {
	bits, rem, ok := ReadInt64(src)
	if !ok {
		return 0, src, false
	}
	return math.Float64frombits(uint64(bits)), rem, true
}

// AppendBoolean appends a single BSON boolean byte to dst.
func AppendBoolean(dst []byte, b bool) []byte {
	if b {
		return append(dst, 1)
	}
	return append(dst, 0)
}

// ReadBoolean reads a single BSON boolean byte from src.
func ReadBoolean(src []byte) (bool, []byte, bool) {
	if len(src) < 1 {
		return false, src, false
	}
	return src[0] != 0, src[1:], true
}

// AppendString appends a length-prefixed, null-terminated UTF-8 string
// value to dst.
func AppendString(dst []byte, s string) []byte {
	dst = AppendInt32(dst, int32(len(s)+1))
	dst = append(dst, s...)
	return append(dst, 0x00)
}

// ReadString reads a length-prefixed, null-terminated UTF-8 string value
// from the front of src.
func ReadString(src []byte) (string, []byte, bool) {
	length, rem, ok := ReadLength(src)
	if !ok || length < 1 || int(length) > len(rem) {
		return "", src, false
	}
	if rem[length-1] != 0x00 {
		return "", src, false
	}
	return string(rem[:length-1]), rem[length:], true
}

// AppendObjectID appends a 12-byte object id to dst.
func AppendObjectID(dst []byte, id ObjectID) []byte { return append(dst, id[:]...) }

// ReadObjectID reads a 12-byte object id from the front of src.
func ReadObjectID(src []byte) (ObjectID, []byte, bool) {
	var id ObjectID
	if len(src) < 12 {
		return id, src, false
	}
	copy(id[:], src[:12])
	return id, src[12:], true
}

// AppendDocumentStart reserves a 4-byte length header in dst and returns the
// index at which it was reserved along with the new slice; the caller must
// later call UpdateLength once the document body and trailing zero have
// been appended.
func AppendDocumentStart(dst []byte) (int32, []byte) {
	return ReserveLength(dst)
}

// ReserveLength appends 4 zero bytes to dst to be filled in later via
// UpdateLength, returning the index of the reservation.
func ReserveLength(dst []byte) (int32, []byte) {
	idx := int32(len(dst))
	return idx, append(dst, 0x00, 0x00, 0x00, 0x00)
}

// UpdateLength writes length into dst at idx, little-endian.
func UpdateLength(dst []byte, idx, length int32) []byte {
	binary.LittleEndian.PutUint32(dst[idx:], uint32(length))
	return dst
}

// AppendDocumentEnd appends the trailing zero byte and backfills the length
// header reserved at idx with len(dst)+1-idx.
func AppendDocumentEnd(dst []byte, idx int32) []byte {
	dst = append(dst, 0x00)
	return UpdateLength(dst, idx, int32(len(dst))-idx)
}

// AppendDocument appends the raw bytes of doc to dst.
func AppendDocument(dst []byte, doc []byte) []byte { return append(dst, doc...) }

// BuildDocument wraps AppendDocumentStart/AppendDocumentEnd around fn, which
// should append zero or more encoded elements to the slice it is handed.
func BuildDocument(dst []byte, fn func(dst []byte) []byte) []byte {
	idx, dst := AppendDocumentStart(dst)
	dst = fn(dst)
	return AppendDocumentEnd(dst, idx)
}

// EmptyDocument returns the 5-byte canonical empty BSON document {}.
func EmptyDocument() []byte { return []byte{5, 0, 0, 0, 0} }

func newBufferFromReader(r io.Reader) ([]byte, error) {
	var lengthBytes [4]byte
	if _, err := io.ReadFull(r, lengthBytes[:]); err != nil {
		return nil, err
	}
	length, _, ok := ReadLength(lengthBytes[:])
	if !ok || length < 5 {
		return nil, ErrInvalidHeader
	}
	buf := make([]byte, length)
	copy(buf, lengthBytes[:])
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		return nil, err
	}
	if buf[length-1] != 0x00 {
		return nil, ErrMissingNull
	}
	return buf, nil
}
